// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
)

// =============================================================================
// BACKEND INTERFACE
// =============================================================================

// Backend is a persistent string key/value store.
type Backend interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Close() error
}

// ErrUnknownDriver is returned by Open for unsupported driver names.
var ErrUnknownDriver = errors.New("unknown storage driver")

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("storage backend closed")

// Open opens the backend for driver at path.
func Open(driver, path string) (Backend, error) {
	switch driver {
	case "", "file":
		return OpenFile(path)
	case "sqlite":
		return OpenSQLite(path)
	case "bolt":
		return OpenBolt(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
