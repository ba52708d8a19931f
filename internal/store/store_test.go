// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/dischat/internal/model"
	"github.com/jeranaias/dischat/internal/remote"
	"github.com/jeranaias/dischat/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

type fakeRemote struct {
	mu      sync.Mutex
	convs   map[int]model.Conversation
	deleted []int
	loadErr error
	putErr  error
	changes chan []remote.Change
	// gate, when set, holds every Upsert until it is closed.
	gate chan struct{}
}

func newFakeRemote(convs ...model.Conversation) *fakeRemote {
	f := &fakeRemote{convs: map[int]model.Conversation{}, changes: make(chan []remote.Change, 4)}
	for _, c := range convs {
		f.convs[c.ID] = c
	}
	return f
}

func (f *fakeRemote) LoadAll(ctx context.Context) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]model.Conversation, 0, len(f.convs))
	for _, c := range f.convs {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (f *fakeRemote) Upsert(ctx context.Context, conv model.Conversation) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.convs[conv.ID] = conv.Clone()
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.convs, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRemote) Watch(ctx context.Context) (<-chan []remote.Change, error) {
	return f.changes, nil
}

func (f *fakeRemote) Close(ctx context.Context) error { return nil }

func (f *fakeRemote) get(id int) (model.Conversation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	return c, ok
}

func newLocal(t *testing.T) *storage.Local {
	t.Helper()
	b, err := storage.Open("file", filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	l := storage.NewLocal(b)
	t.Cleanup(func() { l.Close() })
	return l
}

func at(day int) string {
	return model.FormatTime(time.Date(2024, 1, day, 12, 0, 0, 0, time.UTC))
}

func conv(id int, title string, day int) model.Conversation {
	c := model.Conversation{ID: id, Title: title, Messages: []model.Message{}}
	if day > 0 {
		c.CreatedAt = at(day)
	}
	return c
}

func ids(convs []model.Conversation) []int {
	out := make([]int, len(convs))
	for i, c := range convs {
		out[i] = c.ID
	}
	return out
}

// =============================================================================
// MERGE
// =============================================================================

func TestMerge_RemoteWinsOnCollision(t *testing.T) {
	remoteConvs := []model.Conversation{conv(1, "A", 1)}
	localConvs := []model.Conversation{conv(1, "A-local", 1), conv(2, "B", 2)}

	merged, uploads := Merge(remoteConvs, localConvs)

	assert.Equal(t, []int{2, 1}, ids(merged))
	assert.Equal(t, "A", merged[1].Title)
	require.Len(t, uploads, 1)
	assert.Equal(t, 2, uploads[0].ID)
}

func TestMerge_NormalizesLocalOnly(t *testing.T) {
	local := []model.Conversation{{ID: 5}}

	merged, uploads := Merge(nil, local)

	require.Len(t, merged, 1)
	assert.Equal(t, model.UntitledTitle, merged[0].Title)
	assert.NotNil(t, merged[0].Messages)
	assert.NotEmpty(t, merged[0].CreatedAt)
	require.Len(t, uploads, 1)
	assert.Equal(t, merged[0].CreatedAt, uploads[0].CreatedAt)
	assert.Empty(t, local[0].Title, "input must not be modified")
}

func TestMerge_MissingDatesSortLast(t *testing.T) {
	remoteConvs := []model.Conversation{conv(1, "old", 1), conv(2, "undated", 0), conv(3, "new", 3)}

	merged, uploads := Merge(remoteConvs, nil)

	assert.Equal(t, []int{3, 1, 2}, ids(merged))
	assert.Empty(t, uploads)
}

func TestMerge_NoDuplicates(t *testing.T) {
	merged, _ := Merge(
		[]model.Conversation{conv(1, "a", 1), conv(2, "b", 2)},
		[]model.Conversation{conv(2, "b", 2), conv(3, "c", 3), conv(1, "a", 1)},
	)
	assert.ElementsMatch(t, []int{1, 2, 3}, ids(merged))
}

func TestNeedsRerender(t *testing.T) {
	tests := []struct {
		displayed, stored int
		want              bool
	}{
		{2, 2, false},
		{2, 3, false},
		{3, 2, false},
		{2, 4, true},
		{5, 2, true},
	}
	for _, tt := range tests {
		if got := NeedsRerender(tt.displayed, tt.stored); got != tt.want {
			t.Errorf("NeedsRerender(%d, %d) = %v, want %v", tt.displayed, tt.stored, got, tt.want)
		}
	}
}

// =============================================================================
// LOCAL OPERATIONS
// =============================================================================

func TestCreate_AssignsNextIDAndActivates(t *testing.T) {
	local := newLocal(t)
	s := New(local)
	s.LoadLocal()

	c1, err := s.Create(func(id int) model.Conversation {
		return model.Conversation{Title: "first", Messages: []model.Message{model.NewMessage(model.RoleUser, "hi")}}
	})
	require.NoError(t, err)
	c2, err := s.Create(func(id int) model.Conversation {
		return model.Conversation{Title: "second", Messages: []model.Message{}}
	})
	require.NoError(t, err)

	assert.Equal(t, 1, c1.ID)
	assert.Equal(t, 2, c2.ID)
	assert.NotEmpty(t, c1.CreatedAt)
	assert.Equal(t, 2, s.ActiveID())

	// Persisted before returning.
	reloaded := New(local)
	reloaded.LoadLocal()
	assert.Equal(t, 2, reloaded.Len())
	assert.Equal(t, 2, reloaded.ActiveID())
}

func TestUpdate_ReadModifyWrite(t *testing.T) {
	s := New(newLocal(t))
	s.LoadLocal()
	c, err := s.Create(func(int) model.Conversation { return model.Conversation{Title: "t", Messages: []model.Message{}} })
	require.NoError(t, err)

	// A realtime change lands between the two local writes.
	s.ApplyRemoteChanges([]remote.Change{{Kind: remote.Modified, Conversation: model.Conversation{
		ID: c.ID, Title: "renamed elsewhere", Messages: []model.Message{model.NewMessage(model.RoleUser, "remote")}, CreatedAt: c.CreatedAt,
	}}})

	got, err := s.Update(c.ID, func(cv *model.Conversation) {
		cv.Append(model.NewMessage(model.RoleAssistant, "reply"))
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed elsewhere", got.Title)
	assert.Len(t, got.Messages, 2)

	_, err = s.Update(99, func(*model.Conversation) {})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSave_RejectsInvalid(t *testing.T) {
	s := New(newLocal(t))
	err := s.Save(model.Conversation{ID: 0, Title: "x"})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Len())
}

func TestDelete_ActiveFallsBackToMostRecent(t *testing.T) {
	local := newLocal(t)
	require.NoError(t, local.SaveConversations([]model.Conversation{conv(1, "a", 1), conv(2, "b", 3), conv(3, "c", 2)}))
	require.NoError(t, local.SetCurrentChatID(2))
	s := New(local)
	s.LoadLocal()
	require.Equal(t, 2, s.ActiveID())

	active, err := s.Delete(2)
	require.NoError(t, err)
	assert.Equal(t, 3, active)

	active, err = s.Delete(1)
	require.NoError(t, err)
	assert.Equal(t, 3, active, "deleting an inactive conversation keeps the active one")

	active, err = s.Delete(3)
	require.NoError(t, err)
	assert.Equal(t, 0, active)
	_, ok := s.Active()
	assert.False(t, ok)

	_, err = s.Delete(3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadLocal_DropsStaleActiveID(t *testing.T) {
	local := newLocal(t)
	require.NoError(t, local.SaveConversations([]model.Conversation{conv(1, "a", 1)}))
	require.NoError(t, local.SetCurrentChatID(7))
	s := New(local)
	s.LoadLocal()
	assert.Equal(t, 0, s.ActiveID())
}

func TestSearch(t *testing.T) {
	local := newLocal(t)
	c := conv(1, "Go channels", 1)
	c.Messages = []model.Message{model.NewMessage(model.RoleUser, "explain select")}
	require.NoError(t, local.SaveConversations([]model.Conversation{c, conv(2, "Cooking", 2)}))
	s := New(local)
	s.LoadLocal()

	assert.Equal(t, []int{1}, ids(s.Search("SELECT")))
	assert.Equal(t, []int{1}, ids(s.Search("channels")))
	assert.Len(t, s.Search(""), 2)
}

// =============================================================================
// SYNC
// =============================================================================

func TestLoadRemote_MergesAndUploadsLocalOnly(t *testing.T) {
	local := newLocal(t)
	require.NoError(t, local.SaveConversations([]model.Conversation{conv(1, "A-local", 1), conv(2, "B", 2)}))
	r := newFakeRemote(conv(1, "A", 1))

	s := New(local)
	s.LoadLocal()
	s.AttachRemote(r)
	defer s.Close()

	require.NoError(t, s.LoadRemote(context.Background()))
	s.Flush()

	got, ok := s.Get(1)
	require.True(t, ok)
	assert.Equal(t, "A", got.Title)
	_, ok = r.get(2)
	assert.True(t, ok, "local-only conversation uploaded")
	assert.Equal(t, []int{2, 1}, ids(s.List()))
}

func TestLoadRemote_FailureKeepsLocal(t *testing.T) {
	local := newLocal(t)
	require.NoError(t, local.SaveConversations([]model.Conversation{conv(1, "A", 1)}))
	r := newFakeRemote()
	r.loadErr = errors.New("offline")

	s := New(local)
	s.LoadLocal()
	s.AttachRemote(r)
	defer s.Close()

	assert.Error(t, s.LoadRemote(context.Background()))
	assert.Equal(t, []int{1}, ids(s.List()))
}

func TestLoadRemote_WithoutRemote(t *testing.T) {
	s := New(newLocal(t))
	assert.ErrorIs(t, s.LoadRemote(context.Background()), ErrNoRemote)
	assert.ErrorIs(t, s.StartWatch(context.Background()), ErrNoRemote)
}

func TestRemoteFailuresAreNotSurfaced(t *testing.T) {
	r := newFakeRemote()
	r.putErr = errors.New("quota exceeded")
	s := New(newLocal(t))
	s.AttachRemote(r)
	defer s.Close()

	_, err := s.Create(func(int) model.Conversation { return model.Conversation{Title: "t", Messages: []model.Message{}} })
	require.NoError(t, err)
	s.Flush()
	assert.Equal(t, 1, s.Len())
}

func TestDelete_MirrorsToRemote(t *testing.T) {
	local := newLocal(t)
	require.NoError(t, local.SaveConversations([]model.Conversation{conv(1, "a", 1)}))
	r := newFakeRemote(conv(1, "a", 1))
	s := New(local)
	s.LoadLocal()
	s.AttachRemote(r)

	_, err := s.Delete(1)
	require.NoError(t, err)
	s.Close()

	_, ok := r.get(1)
	assert.False(t, ok)
	assert.False(t, s.SyncEnabled())
}

func TestApplyRemoteChanges(t *testing.T) {
	local := newLocal(t)
	require.NoError(t, local.SaveConversations([]model.Conversation{conv(1, "a", 1), conv(2, "b", 2)}))
	s := New(local)
	s.LoadLocal()

	modified := conv(1, "a2", 1)
	s.ApplyRemoteChanges([]remote.Change{
		{Kind: remote.Added, Conversation: conv(3, "c", 3)},
		{Kind: remote.Modified, Conversation: modified},
		{Kind: remote.Removed, Conversation: model.Conversation{ID: 2}},
	})

	assert.Equal(t, []int{3, 1}, ids(s.List()), "added entries are prepended, modified in place")
	got, _ := s.Get(1)
	assert.Equal(t, "a2", got.Title)

	reloaded := New(local)
	reloaded.LoadLocal()
	assert.Equal(t, 2, reloaded.Len())
}

func TestApplyRemoteChanges_RefreshAndStreaming(t *testing.T) {
	local := newLocal(t)
	require.NoError(t, local.SaveConversations([]model.Conversation{conv(1, "a", 1), conv(2, "b", 2)}))
	require.NoError(t, local.SetCurrentChatID(1))
	s := New(local)
	s.LoadLocal()

	var calls []model.Conversation
	s.OnRefresh(func(c model.Conversation, ok bool) {
		if ok {
			calls = append(calls, c)
		}
	})

	// Untouched active conversation.
	s.ApplyRemoteChanges([]remote.Change{{Kind: remote.Modified, Conversation: conv(2, "b2", 2)}})
	assert.Empty(t, calls)

	// Active conversation while a completion is pending.
	s.SetStreaming(1, true)
	assert.True(t, s.Streaming(1))
	s.ApplyRemoteChanges([]remote.Change{{Kind: remote.Modified, Conversation: conv(1, "a2", 1)}})
	assert.Empty(t, calls)

	s.SetStreaming(1, false)
	s.ApplyRemoteChanges([]remote.Change{{Kind: remote.Modified, Conversation: conv(1, "a3", 1)}})
	require.Len(t, calls, 1)
	assert.Equal(t, "a3", calls[0].Title)
}

func TestApplyRemoteChanges_ActiveRemoved(t *testing.T) {
	local := newLocal(t)
	require.NoError(t, local.SaveConversations([]model.Conversation{conv(1, "a", 1), conv(2, "b", 2)}))
	require.NoError(t, local.SetCurrentChatID(2))
	s := New(local)
	s.LoadLocal()

	s.ApplyRemoteChanges([]remote.Change{{Kind: remote.Removed, Conversation: model.Conversation{ID: 2}}})
	assert.Equal(t, 1, s.ActiveID())
}

func TestApplyRemoteChanges_SkipsEchoOlderThanQueuedWrite(t *testing.T) {
	r := newFakeRemote()
	r.gate = make(chan struct{})
	s := New(newLocal(t))
	s.AttachRemote(r)
	defer s.Close()

	c, err := s.Create(func(int) model.Conversation {
		return model.Conversation{Title: "local", Messages: []model.Message{model.NewMessage(model.RoleUser, "hi")}}
	})
	require.NoError(t, err)

	stale := model.Conversation{ID: c.ID, Title: "stale echo", Messages: []model.Message{}, CreatedAt: c.CreatedAt}
	s.ApplyRemoteChanges([]remote.Change{{Kind: remote.Modified, Conversation: stale}})
	got, _ := s.Get(c.ID)
	assert.Equal(t, "local", got.Title, "queued local write wins")

	close(r.gate)
	s.Flush()

	fresh := stale
	fresh.Title = "edited elsewhere"
	s.ApplyRemoteChanges([]remote.Change{{Kind: remote.Modified, Conversation: fresh}})
	got, _ = s.Get(c.ID)
	assert.Equal(t, "edited elsewhere", got.Title)
}

func TestStartWatch_AppliesBatches(t *testing.T) {
	r := newFakeRemote()
	s := New(newLocal(t))
	s.AttachRemote(r)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.StartWatch(ctx))

	r.changes <- []remote.Change{{Kind: remote.Added, Conversation: conv(4, "from another device", 4)}}

	require.Eventually(t, func() bool {
		_, ok := s.Get(4)
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	close(r.changes)
}
