// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/remote"
	"github.com/jeranaias/dischat/internal/storage"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotFound is returned when no conversation has the requested id.
	ErrNotFound = errors.New("conversation not found")

	// ErrNoRemote is returned by remote operations when sync is not attached.
	ErrNoRemote = errors.New("sync is not enabled")
)

// uploadQueueSize bounds pending background remote writes. Enqueueing blocks
// once it is full.
const uploadQueueSize = 256

// RefreshFunc is called after a realtime batch touched the active
// conversation. ok is false when there is no longer an active conversation.
type RefreshFunc func(active model.Conversation, ok bool)

// =============================================================================
// STORE
// =============================================================================

// Store is the process-wide conversation list. All methods are safe for
// concurrent use; reads return deep copies.
type Store struct {
	mu        sync.Mutex
	local     *storage.Local
	convs     []model.Conversation
	active    int
	streaming map[int]bool
	onRefresh RefreshFunc

	remote   remote.Remote
	tasks    chan task
	pending  sync.WaitGroup
	inflight map[int]int // queued upserts per conversation id
	cancel   context.CancelFunc
	done     chan struct{}
}

type task struct {
	name string
	id   int
	run  func(ctx context.Context) error
}

// New creates a store backed by local. Call LoadLocal to populate it.
func New(local *storage.Local) *Store {
	return &Store{
		local:     local,
		streaming: make(map[int]bool),
		inflight:  make(map[int]int),
	}
}

// LoadLocal replaces the in-memory list with the locally persisted one and
// restores the active conversation if it still exists.
func (s *Store) LoadLocal() {
	convs := s.local.Conversations()
	model.SortByCreatedDesc(convs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs = convs
	s.active = 0
	if id, ok := s.local.CurrentChatID(); ok && model.IndexOf(s.convs, id) >= 0 {
		s.active = id
	}
	log.Debug().Int("count", len(convs)).Int("active", s.active).Msg("loaded local conversations")
}

// OnRefresh registers the callback for realtime updates of the active
// conversation. Pass nil to clear it.
func (s *Store) OnRefresh(fn RefreshFunc) {
	s.mu.Lock()
	s.onRefresh = fn
	s.mu.Unlock()
}

// =============================================================================
// REMOTE ATTACHMENT
// =============================================================================

// AttachRemote enables sync against r and starts the background writer.
// Any previously attached remote is detached first.
func (s *Store) AttachRemote(r remote.Remote) {
	s.DetachRemote()

	ctx, cancel := context.WithCancel(context.Background())
	tasks := make(chan task, uploadQueueSize)
	done := make(chan struct{})

	s.mu.Lock()
	s.remote = r
	s.tasks = tasks
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.worker(ctx, tasks, done)
}

// DetachRemote waits for queued remote writes, then stops sync. The remote
// itself is not closed.
func (s *Store) DetachRemote() {
	s.mu.Lock()
	tasks, cancel, done := s.tasks, s.cancel, s.done
	s.remote = nil
	s.tasks = nil
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if tasks == nil {
		return
	}
	s.pending.Wait()
	close(tasks)
	<-done
	cancel()
}

// SyncEnabled reports whether a remote is attached.
func (s *Store) SyncEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote != nil
}

// Flush blocks until every queued remote write has finished.
func (s *Store) Flush() {
	s.pending.Wait()
}

func (s *Store) worker(ctx context.Context, tasks <-chan task, done chan<- struct{}) {
	defer close(done)
	for t := range tasks {
		// RELIABILITY: remote failures never reach the caller; local state
		// already holds the change.
		if err := t.run(ctx); err != nil {
			log.Warn().Err(err).Str("op", t.name).Int("id", t.id).Msg("remote sync failed")
		}
		if t.name == "upsert" {
			s.mu.Lock()
			if s.inflight[t.id]--; s.inflight[t.id] <= 0 {
				delete(s.inflight, t.id)
			}
			s.mu.Unlock()
		}
		s.pending.Done()
	}
}

// reserveLocked claims n slots of pending work so DetachRemote waits for
// them. It returns a nil remote when sync is off.
func (s *Store) reserveLocked(n int) (remote.Remote, chan task) {
	if s.remote == nil || n == 0 {
		return nil, nil
	}
	s.pending.Add(n)
	return s.remote, s.tasks
}

// reserveUpsertsLocked reserves one upsert per id and marks them in flight.
func (s *Store) reserveUpsertsLocked(ids ...int) (remote.Remote, chan task) {
	r, tasks := s.reserveLocked(len(ids))
	if r != nil {
		for _, id := range ids {
			s.inflight[id]++
		}
	}
	return r, tasks
}

// enqueue hands a reserved task to the worker. Call without s.mu held.
func enqueue(tasks chan task, t task) {
	tasks <- t
}

func upsertTask(r remote.Remote, conv model.Conversation) task {
	return task{
		name: "upsert",
		id:   conv.ID,
		run:  func(ctx context.Context) error { return r.Upsert(ctx, conv) },
	}
}

func deleteTask(r remote.Remote, id int) task {
	return task{
		name: "delete",
		id:   id,
		run:  func(ctx context.Context) error { return r.Delete(ctx, id) },
	}
}

// LoadRemote fetches the remote collection, merges it with the local list,
// persists the result and queues uploads of local-only conversations. On a
// fetch failure the local list is kept and the error is returned.
func (s *Store) LoadRemote(ctx context.Context) error {
	s.mu.Lock()
	r := s.remote
	s.mu.Unlock()
	if r == nil {
		return ErrNoRemote
	}

	fetched, err := r.LoadAll(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("remote load failed, keeping local conversations")
		return fmt.Errorf("load remote conversations: %w", err)
	}

	s.mu.Lock()
	merged, uploads := Merge(fetched, s.convs)
	s.convs = merged
	if s.active != 0 && model.IndexOf(s.convs, s.active) < 0 {
		s.active = 0
	}
	persistErr := s.persistLocked()
	uploadIDs := make([]int, len(uploads))
	for i, c := range uploads {
		uploadIDs[i] = c.ID
	}
	r, tasks := s.reserveUpsertsLocked(uploadIDs...)
	s.mu.Unlock()

	if r != nil {
		for _, c := range uploads {
			enqueue(tasks, upsertTask(r, c))
		}
	}
	log.Info().Int("remote", len(fetched)).Int("uploads", len(uploads)).Msg("merged remote conversations")
	return persistErr
}

// StartWatch subscribes to remote changes and applies each batch until ctx
// is done.
func (s *Store) StartWatch(ctx context.Context) error {
	s.mu.Lock()
	r := s.remote
	s.mu.Unlock()
	if r == nil {
		return ErrNoRemote
	}

	ch, err := r.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch remote: %w", err)
	}
	go func() {
		for batch := range ch {
			s.ApplyRemoteChanges(batch)
		}
		log.Debug().Msg("remote watch stopped")
	}()
	return nil
}

// =============================================================================
// REALTIME CHANGES
// =============================================================================

// ApplyRemoteChanges folds one batch of remote events into the list.
// Added and modified conversations replace the entry with the same id in
// place, or are prepended when absent. Removed ids are dropped. The refresh
// callback fires when the active conversation was touched and is not
// streaming.
//
// Added and modified events for a conversation with local upserts still
// queued are skipped: they predate the local write, whose own echo follows.
func (s *Store) ApplyRemoteChanges(batch []remote.Change) {
	if len(batch) == 0 {
		return
	}

	s.mu.Lock()
	touched := false
	for _, ch := range batch {
		id := ch.Conversation.ID
		if ch.Kind != remote.Removed && s.inflight[id] > 0 {
			log.Debug().Int("conversation_id", id).Msg("skipping remote change older than queued local write")
			continue
		}
		if id == s.active {
			touched = true
		}
		idx := model.IndexOf(s.convs, id)
		switch ch.Kind {
		case remote.Added, remote.Modified:
			conv := ch.Conversation.Clone()
			if idx >= 0 {
				s.convs[idx] = conv
			} else {
				s.convs = append([]model.Conversation{conv}, s.convs...)
			}
		case remote.Removed:
			if idx >= 0 {
				s.convs = append(s.convs[:idx], s.convs[idx+1:]...)
			}
			if id == s.active {
				s.active = s.replacementLocked()
			}
		}
	}
	if err := s.persistLocked(); err != nil {
		log.Warn().Err(err).Msg("persist remote changes failed")
	}

	fn := s.onRefresh
	var active model.Conversation
	ok := false
	notify := touched && fn != nil && !s.streaming[s.active]
	if notify {
		if idx := model.IndexOf(s.convs, s.active); idx >= 0 {
			active, ok = s.convs[idx].Clone(), true
		}
	}
	s.mu.Unlock()

	if notify {
		fn(active, ok)
	}
}

// SetStreaming marks a conversation as awaiting a completion. Realtime
// refreshes of it are suppressed until cleared.
func (s *Store) SetStreaming(id int, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.streaming[id] = true
	} else {
		delete(s.streaming, id)
	}
}

// Streaming reports whether id is awaiting a completion.
func (s *Store) Streaming(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming[id]
}

// =============================================================================
// QUERIES
// =============================================================================

// List returns a copy of all conversations, newest first.
func (s *Store) List() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, len(s.convs))
	for i, c := range s.convs {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// Get returns a copy of the conversation with id.
func (s *Store) Get(id int) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := model.IndexOf(s.convs, id)
	if idx < 0 {
		return model.Conversation{}, false
	}
	return s.convs[idx].Clone(), true
}

// Search returns conversations whose title or messages contain query.
func (s *Store) Search(query string) []model.Conversation {
	query = strings.TrimSpace(query)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Conversation
	for i := range s.convs {
		if s.convs[i].Matches(query) {
			out = append(out, s.convs[i].Clone())
		}
	}
	return out
}

// NextID returns the id the next created conversation would receive.
func (s *Store) NextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.NextID(s.convs)
}

// ActiveID returns the active conversation id, or 0 for none.
func (s *Store) ActiveID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Active returns a copy of the active conversation.
func (s *Store) Active() (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := model.IndexOf(s.convs, s.active)
	if s.active == 0 || idx < 0 {
		return model.Conversation{}, false
	}
	return s.convs[idx].Clone(), true
}

// SetActive makes id the active conversation.
func (s *Store) SetActive(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if model.IndexOf(s.convs, id) < 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.active = id
	return s.local.SetCurrentChatID(id)
}

// ClearActive leaves no conversation active, the state before a new chat's
// first message.
func (s *Store) ClearActive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = 0
	return s.local.SetCurrentChatID(0)
}

// =============================================================================
// MUTATIONS
// =============================================================================

// Create builds a conversation with the next free id, prepends it, makes it
// active and persists it. build receives the assigned id.
func (s *Store) Create(build func(id int) model.Conversation) (model.Conversation, error) {
	s.mu.Lock()
	id := model.NextID(s.convs)
	conv := build(id)
	conv.ID = id
	conv.Title = model.ClampTitle(conv.Title)
	if conv.CreatedAt == "" {
		conv.CreatedAt = model.Now()
	}
	if err := conv.Validate(); err != nil {
		s.mu.Unlock()
		return model.Conversation{}, fmt.Errorf("invalid conversation: %w", err)
	}
	s.convs = append([]model.Conversation{conv.Clone()}, s.convs...)
	s.active = id
	err := s.persistLocked()
	r, tasks := s.reserveUpsertsLocked(id)
	s.mu.Unlock()

	if r != nil {
		enqueue(tasks, upsertTask(r, conv.Clone()))
	}
	return conv, err
}

// Save replaces the conversation with the same id, or prepends it, then
// persists locally and queues a remote upsert.
func (s *Store) Save(conv model.Conversation) error {
	if err := conv.Validate(); err != nil {
		return fmt.Errorf("invalid conversation: %w", err)
	}
	conv = conv.Clone()

	s.mu.Lock()
	if idx := model.IndexOf(s.convs, conv.ID); idx >= 0 {
		s.convs[idx] = conv
	} else {
		s.convs = append([]model.Conversation{conv}, s.convs...)
	}
	err := s.persistLocked()
	r, tasks := s.reserveUpsertsLocked(conv.ID)
	s.mu.Unlock()

	if r != nil {
		enqueue(tasks, upsertTask(r, conv.Clone()))
	}
	return err
}

// Update applies fn to the freshest copy of conversation id and saves the
// result. Concurrent realtime changes are never overwritten by a stale copy.
func (s *Store) Update(id int, fn func(c *model.Conversation)) (model.Conversation, error) {
	s.mu.Lock()
	idx := model.IndexOf(s.convs, id)
	if idx < 0 {
		s.mu.Unlock()
		return model.Conversation{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	conv := s.convs[idx].Clone()
	fn(&conv)
	conv.ID = id
	s.convs[idx] = conv.Clone()
	err := s.persistLocked()
	r, tasks := s.reserveUpsertsLocked(id)
	s.mu.Unlock()

	if r != nil {
		enqueue(tasks, upsertTask(r, conv.Clone()))
	}
	return conv, err
}

// Delete removes conversation id. When it was active, the most recent
// remaining conversation becomes active, or none when the list is empty.
// The returned id is the active conversation afterwards.
func (s *Store) Delete(id int) (int, error) {
	s.mu.Lock()
	idx := model.IndexOf(s.convs, id)
	if idx < 0 {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	s.convs = append(s.convs[:idx], s.convs[idx+1:]...)
	delete(s.streaming, id)
	if s.active == id {
		s.active = s.replacementLocked()
	}
	active := s.active
	err := s.persistLocked()
	r, tasks := s.reserveLocked(1)
	s.mu.Unlock()

	if r != nil {
		enqueue(tasks, deleteTask(r, id))
	}
	return active, err
}

// replacementLocked picks the conversation that becomes active after the
// active one disappears.
func (s *Store) replacementLocked() int {
	if len(s.convs) == 0 {
		return 0
	}
	sorted := make([]model.Conversation, len(s.convs))
	copy(sorted, s.convs)
	model.SortByCreatedDesc(sorted)
	return sorted[0].ID
}

func (s *Store) persistLocked() error {
	if err := s.local.SaveConversations(s.convs); err != nil {
		return fmt.Errorf("persist conversations: %w", err)
	}
	if err := s.local.SetCurrentChatID(s.active); err != nil {
		return fmt.Errorf("persist active conversation: %w", err)
	}
	return nil
}

// Close flushes pending remote writes and detaches the remote.
func (s *Store) Close() {
	s.DetachRemote()
}
