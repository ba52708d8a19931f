// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/util"
)

// DefaultDebounce is how long the dir watcher waits for a file to settle.
const DefaultDebounce = 150 * time.Millisecond

// dirDocument is the on-disk shape; the id lives in the file name.
type dirDocument struct {
	Title     string          `json:"title"`
	Messages  []model.Message `json:"messages"`
	CreatedAt string          `json:"createdAt"`
	UpdatedAt string          `json:"updatedAt"`
}

// =============================================================================
// DIR REMOTE
// =============================================================================

// DirRemote stores one JSON file per conversation under
// <root>/users/<uid>/chats/<id>.json. Any folder shared between machines
// (network mount, file sync tool) works as the remote.
type DirRemote struct {
	dir      string
	Debounce time.Duration
}

// OpenDir prepares the user's directory under root.
func OpenDir(root, userID string) (*DirRemote, error) {
	if root == "" {
		return nil, fmt.Errorf("sync dir is required")
	}
	dir := filepath.Join(root, "users", sanitizeUserID(userID), "chats")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create sync dir: %w", err)
	}
	return &DirRemote{dir: dir, Debounce: DefaultDebounce}, nil
}

// Dir returns the directory holding this user's documents.
func (d *DirRemote) Dir() string {
	return d.dir
}

func (d *DirRemote) path(id int) string {
	return filepath.Join(d.dir, DocumentID(id)+".json")
}

// idFromPath extracts the conversation id from a document path. Temp files
// and foreign files are rejected.
func idFromPath(path string) (int, bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, ".json") {
		return 0, false
	}
	id, err := ParseDocumentID(strings.TrimSuffix(name, ".json"))
	if err != nil {
		return 0, false
	}
	return id, true
}

func readDocument(path string, id int) (model.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Conversation{}, err
	}
	var doc dirDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Conversation{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return model.Conversation{
		ID:        id,
		Title:     doc.Title,
		Messages:  doc.Messages,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

// LoadAll implements Remote. Unreadable documents are skipped.
func (d *DirRemote) LoadAll(ctx context.Context) ([]model.Conversation, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read sync dir: %w", err)
	}
	out := make([]model.Conversation, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, ok := idFromPath(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		conv, err := readDocument(filepath.Join(d.dir, e.Name()), id)
		if err != nil {
			log.Warn().Err(err).Msg("skipping remote conversation")
			continue
		}
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Upsert implements Remote.
func (d *DirRemote) Upsert(ctx context.Context, conv model.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conv = prepare(conv)
	data, err := json.MarshalIndent(dirDocument{
		Title:     conv.Title,
		Messages:  conv.Messages,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversation %d: %w", conv.ID, err)
	}
	return util.AtomicWriteFileWithDir(d.path(conv.ID), data, 0600, 0700)
}

// Delete implements Remote. Deleting a missing document is not an error.
func (d *DirRemote) Delete(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(d.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete conversation %d: %w", id, err)
	}
	return nil
}

// Close implements Remote.
func (d *DirRemote) Close(ctx context.Context) error {
	return nil
}

// =============================================================================
// WATCHER
// =============================================================================

// Watch implements Remote with fsnotify. File events are debounced and
// delivered as one batch per settle interval.
func (d *DirRemote) Watch(ctx context.Context) (<-chan []Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(d.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", d.dir, err)
	}

	w := &dirWatcher{
		remote:  d,
		watcher: watcher,
		pending: make(map[int]time.Time),
		known:   make(map[int]bool),
		out:     make(chan []Change),
	}
	// Seed known ids so existing files report as modified, not added
	if existing, err := d.LoadAll(ctx); err == nil {
		for _, c := range existing {
			w.known[c.ID] = true
		}
	}

	go w.run(ctx)
	return w.out, nil
}

type dirWatcher struct {
	remote  *DirRemote
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[int]time.Time // id -> last event time
	known   map[int]bool

	out chan []Change
}

func (w *dirWatcher) run(ctx context.Context) {
	defer close(w.out)
	defer w.watcher.Close()

	debounce := w.remote.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	ticker := time.NewTicker(debounce / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			id, ok := idFromPath(event.Name)
			if !ok {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending[id] = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("sync dir watcher error")

		case <-ticker.C:
			batch := w.settled(debounce)
			if len(batch) == 0 {
				continue
			}
			select {
			case w.out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// settled resolves ids whose last event is older than debounce into changes
// by looking at what is on disk now.
func (w *dirWatcher) settled(debounce time.Duration) []Change {
	now := time.Now()

	w.mu.Lock()
	var ids []int
	for id, at := range w.pending {
		if now.Sub(at) >= debounce {
			ids = append(ids, id)
			delete(w.pending, id)
		}
	}
	w.mu.Unlock()
	sort.Ints(ids)

	var batch []Change
	for _, id := range ids {
		conv, err := readDocument(w.remote.path(id), id)
		switch {
		case err == nil:
			kind := Modified
			if !w.known[id] {
				kind = Added
			}
			w.known[id] = true
			batch = append(batch, Change{Kind: kind, Conversation: conv})
		case os.IsNotExist(err):
			if w.known[id] {
				delete(w.known, id)
				batch = append(batch, Change{Kind: Removed, Conversation: model.Conversation{ID: id}})
			}
		default:
			log.Warn().Err(err).Int("conversation_id", id).Msg("unreadable sync document")
		}
	}
	return batch
}
