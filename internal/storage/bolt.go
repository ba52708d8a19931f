// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var stateBucket = []byte("state")

// BoltBackend stores keys in a bbolt bucket.
type BoltBackend struct {
	db *bolt.DB
}

// OpenBolt opens or creates the database at path. The file is locked while
// open, so a second dischat process waits up to one second and then fails.
func OpenBolt(path string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &BoltBackend{db: db}, nil
}

// Get implements Backend.
func (b *BoltBackend) Get(key string) (string, bool, error) {
	var (
		v  string
		ok bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(stateBucket).Get([]byte(key))
		if raw != nil {
			// Bytes are only valid inside the transaction
			v, ok = string(raw), true
		}
		return nil
	})
	return v, ok, err
}

// Set implements Backend.
func (b *BoltBackend) Set(key, value string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Put([]byte(key), []byte(value))
	})
}

// Delete implements Backend.
func (b *BoltBackend) Delete(key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stateBucket).Delete([]byte(key))
	})
}

// Close implements Backend.
func (b *BoltBackend) Close() error {
	return b.db.Close()
}
