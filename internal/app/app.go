// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/cloud"
	"github.com/jeranaias/dischat/internal/config"
	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/orchestrator"
	"github.com/jeranaias/dischat/internal/provider"
	"github.com/jeranaias/dischat/internal/remote"
	"github.com/jeranaias/dischat/internal/search"
	"github.com/jeranaias/dischat/internal/storage"
	"github.com/jeranaias/dischat/internal/store"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoAPIKey is returned before any network call when no key is set.
	ErrNoAPIKey = errors.New("no API key configured; run 'dischat setup'")

	// ErrEmptyMessage is returned for a turn without text or attachments.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoActiveChat is returned by operations that need an open conversation.
	ErrNoActiveChat = errors.New("no active conversation")

	// ErrUnknownModel is returned by SetModel for ids outside the catalogue.
	ErrUnknownModel = errors.New("unknown model")
)

// closeTimeout bounds the remote disconnect at shutdown.
const closeTimeout = 5 * time.Second

// =============================================================================
// OPTIONS
// =============================================================================

// CompleterFunc builds the completion client for a provider and key.
type CompleterFunc func(p *provider.Provider, apiKey string) cloud.Completer

// Option customizes an App.
type Option func(*App)

// WithBackend uses b for local state instead of opening the configured driver.
func WithBackend(b storage.Backend) Option {
	return func(a *App) { a.backend = b }
}

// WithRemote uses r as the sync remote, regardless of the sync config.
func WithRemote(r remote.Remote) Option {
	return func(a *App) { a.remote = r }
}

// WithCompleter replaces the go-openai client factory.
func WithCompleter(fn CompleterFunc) Option {
	return func(a *App) { a.newCompleter = fn }
}

// WithSearcher replaces the web search gateway.
func WithSearcher(s search.Searcher) Option {
	return func(a *App) { a.searcher = s }
}

// =============================================================================
// APP
// =============================================================================

// App is the coordinator for one dischat session.
type App struct {
	cfg *config.Config

	backend storage.Backend
	local   *storage.Local
	store   *store.Store
	remote  remote.Remote
	userID  string

	searcher     search.Searcher
	newCompleter CompleterFunc

	mu       sync.RWMutex
	provider *provider.Provider
	apiKey   string
	model    string
	orch     *orchestrator.Orchestrator

	cancelWatch context.CancelFunc
	closeOnce   sync.Once
}

// New creates an App from cfg. Call Init before use.
func New(cfg *config.Config, opts ...Option) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	a := &App{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.newCompleter == nil {
		a.newCompleter = a.defaultCompleter
	}
	if a.searcher == nil {
		a.searcher = search.New(SearchConfig(cfg.Search))
	}
	return a
}

func (a *App) defaultCompleter(p *provider.Provider, apiKey string) cloud.Completer {
	return cloud.New(p, apiKey, cloud.Options{
		Referer: a.cfg.Provider.Referer,
		AppName: a.cfg.Provider.AppTitle,
	})
}

// SearchConfig maps the search section of the config onto the gateway's.
func SearchConfig(sc config.SearchConfig) search.Config {
	return search.Config{
		InstantURL:        sc.InstantURL,
		ProxyURL:          sc.ProxyURL,
		ResultsURL:        sc.ResultsURL,
		Timeout:           time.Duration(sc.TimeoutSecs) * time.Second,
		RequestsPerSecond: sc.RequestsPerSecond,
		MaxResults:        sc.MaxResults,
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Init opens local state, migrates legacy keys, loads conversations and,
// when sync is configured, merges the remote collection and subscribes to
// its changes. Sync failures are logged and leave the app local-only.
func (a *App) Init(ctx context.Context) error {
	if a.backend == nil {
		b, err := a.openBackend()
		if err != nil {
			return err
		}
		a.backend = b
	}
	a.local = storage.NewLocal(a.backend)

	if migrated, err := a.local.MigrateLegacyKey(); err != nil {
		log.Warn().Err(err).Msg("legacy API key migration failed")
	} else if migrated {
		log.Info().Msg("migrated legacy API key")
	}

	a.resolveProvider()

	a.store = store.New(a.local)
	a.store.LoadLocal()

	a.userID = a.cfg.Sync.UserID
	if a.userID == "" {
		a.userID = a.local.GuestUserID()
	}

	if a.remote == nil && a.cfg.Sync.Enabled {
		r, err := remote.Open(ctx, remote.Options{
			Backend:  a.cfg.Sync.Backend,
			MongoURI: a.cfg.Sync.MongoURI,
			Database: a.cfg.Sync.Database,
			Dir:      a.cfg.Sync.Dir,
			UserID:   a.userID,
		})
		if err != nil {
			log.Warn().Err(err).Str("backend", a.cfg.Sync.Backend).Msg("sync unavailable, continuing with local conversations")
		} else {
			a.remote = r
		}
	}
	if a.remote != nil {
		a.attachSync(ctx)
	}

	log.Debug().
		Str("provider", a.Provider().Name).
		Str("user", a.userID).
		Bool("sync", a.store.SyncEnabled()).
		Int("conversations", a.store.Len()).
		Msg("app initialized")
	return nil
}

func (a *App) openBackend() (storage.Backend, error) {
	path, err := a.cfg.StatePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	b, err := storage.Open(a.cfg.Storage.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}
	return b, nil
}

// attachSync merges the remote collection and starts the change watcher.
func (a *App) attachSync(ctx context.Context) {
	a.store.AttachRemote(a.remote)
	if err := a.store.LoadRemote(ctx); err != nil {
		log.Warn().Err(err).Msg("initial sync failed")
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	if err := a.store.StartWatch(watchCtx); err != nil {
		cancel()
		log.Warn().Err(err).Msg("realtime sync unavailable")
		return
	}
	a.cancelWatch = cancel
}

// resolveProvider picks provider, key and model from config, falling back
// to local state, and builds the orchestrator.
func (a *App) resolveProvider() {
	name := a.cfg.Provider.Name
	if name == "" {
		name = a.local.Provider()
	}
	p, err := provider.Parse(name)
	if err != nil {
		log.Warn().Err(err).Msg("falling back to default provider")
		p = provider.Get(provider.Groq)
	}

	key := a.cfg.Provider.APIKey
	if key == "" {
		key = a.local.APIKey()
	}

	a.mu.Lock()
	a.provider = p
	a.apiKey = key
	a.model = a.cfg.Provider.Model
	a.rebuildLocked()
	a.mu.Unlock()
}

func (a *App) rebuildLocked() {
	settings := orchestrator.DefaultSettings()
	settings.Model = a.model
	if a.cfg.Provider.Temperature > 0 {
		settings.Temperature = float32(a.cfg.Provider.Temperature)
	}
	if a.cfg.Provider.MaxTokens > 0 {
		settings.MaxTokens = a.cfg.Provider.MaxTokens
	}
	a.orch = orchestrator.New(a.provider, a.newCompleter(a.provider, a.apiKey), a.searcher, settings)
}

// Close stops the watcher, flushes queued remote writes and closes the
// remote and local backends.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.cancelWatch != nil {
			a.cancelWatch()
		}
		if a.store != nil {
			a.store.Close()
		}
		if a.remote != nil {
			ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			if err := a.remote.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close remote: %w", err))
			}
			cancel()
		}
		if a.local != nil {
			if err := a.local.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close local state: %w", err))
			}
		}
	})
	return errors.Join(errs...)
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Config returns the configuration the app was built with.
func (a *App) Config() *config.Config { return a.cfg }

// Store returns the conversation store.
func (a *App) Store() *store.Store { return a.store }

// Local returns the persisted local state.
func (a *App) Local() *storage.Local { return a.local }

// UserID is the identity scoping the remote collection.
func (a *App) UserID() string { return a.userID }

// SyncEnabled reports whether a remote is attached.
func (a *App) SyncEnabled() bool {
	return a.store != nil && a.store.SyncEnabled()
}

// Provider returns the active provider.
func (a *App) Provider() *provider.Provider {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.provider
}

// Model returns the model chosen for turns without attachments.
func (a *App) Model() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.model == "" || !a.provider.HasModel(a.model) {
		return a.provider.DefaultModel()
	}
	return a.model
}

// HasAPIKey reports whether a key is configured.
func (a *App) HasAPIKey() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.apiKey != ""
}

func (a *App) orchestrator() (*orchestrator.Orchestrator, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.orch, a.apiKey != ""
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// Conversations lists all conversations, newest first.
func (a *App) Conversations() []model.Conversation {
	return a.store.List()
}

// Find searches conversation titles and messages.
func (a *App) Find(query string) []model.Conversation {
	return a.store.Search(query)
}

// Active returns the open conversation, if any.
func (a *App) Active() (model.Conversation, bool) {
	return a.store.Active()
}

// NewChat closes the active conversation; the next Send starts a new one.
func (a *App) NewChat() error {
	return a.store.ClearActive()
}

// Switch opens conversation id.
func (a *App) Switch(id int) (model.Conversation, error) {
	if err := a.store.SetActive(id); err != nil {
		return model.Conversation{}, err
	}
	conv, _ := a.store.Get(id)
	return conv, nil
}

// Delete removes conversation id and returns the active id afterwards.
func (a *App) Delete(id int) (int, error) {
	return a.store.Delete(id)
}

// OnRefresh registers the callback for realtime updates of the active
// conversation.
func (a *App) OnRefresh(fn store.RefreshFunc) {
	a.store.OnRefresh(fn)
}
