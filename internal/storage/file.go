// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/jeranaias/dischat/internal/util"
)

// FileBackend keeps all keys in one JSON object on disk. Every write
// rewrites the whole file atomically.
type FileBackend struct {
	path   string
	mu     sync.RWMutex
	values map[string]string
	closed bool
}

// OpenFile loads path, creating an empty store if it does not exist.
// A corrupt file is treated as empty and replaced on the next write.
func OpenFile(path string) (*FileBackend, error) {
	b := &FileBackend{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return b, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &b.values); err != nil {
			b.values = make(map[string]string)
		}
	}
	return b, nil
}

// Get implements Backend.
func (b *FileBackend) Get(key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return "", false, ErrClosed
	}
	v, ok := b.values[key]
	return v, ok, nil
}

// Set implements Backend.
func (b *FileBackend) Set(key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	prev, had := b.values[key]
	b.values[key] = value
	if err := b.flush(); err != nil {
		if had {
			b.values[key] = prev
		} else {
			delete(b.values, key)
		}
		return err
	}
	return nil
}

// Delete implements Backend.
func (b *FileBackend) Delete(key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	if _, ok := b.values[key]; !ok {
		return nil
	}
	delete(b.values, key)
	return b.flush()
}

// Close implements Backend.
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// flush writes the map to disk. Caller holds mu.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func (b *FileBackend) flush() error {
	data, err := json.MarshalIndent(b.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	// SECURITY: state holds the API key
	if err := util.AtomicWriteFileWithDir(b.path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
