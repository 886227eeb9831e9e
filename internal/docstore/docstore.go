// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

// Package docstore persists small JSON documents (ignore list, baseline
// pointer, owner credential, session token) behind a repository interface.
// Every repository serializes access with an in-process mutex and a
// cross-process advisory lock file so read-modify-write sequences are atomic.
package docstore // import "github.com/hostwarden/hostwarden/internal/docstore"

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// Op tells Update what to do with the document after the callback ran.
type Op int

const (
	// Keep leaves the stored document untouched.
	Keep Op = iota
	// Put writes the returned value.
	Put
	// Remove deletes the document.
	Remove
)

// Repository is the load/save contract for one persisted document.
type Repository[T any] interface {
	// Load returns the document and whether it exists.
	Load() (T, bool, error)
	// Save overwrites the document.
	Save(v T) error
	// Delete removes the document; deleting a missing document is not an error.
	Delete() error
	// Update runs fn under the document lock and applies the returned Op.
	Update(fn func(cur T, exists bool) (T, Op, error)) error
}

// FileRepository stores a document as an indented JSON file.
type FileRepository[T any] struct {
	path string
	perm os.FileMode
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFile returns a repository for the JSON document at path. perm applies
// to newly written files.
func NewFile[T any](path string, perm os.FileMode) *FileRepository[T] {
	return &FileRepository[T]{
		path: path,
		perm: perm,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the document location.
func (r *FileRepository[T]) Path() string { return r.path }

func (r *FileRepository[T]) Load() (T, bool, error) {
	var v T
	var exists bool
	err := r.withLock(func() error {
		var err error
		v, exists, err = r.read()
		return err
	})
	return v, exists, err
}

func (r *FileRepository[T]) Save(v T) error {
	return r.withLock(func() error { return r.write(v) })
}

func (r *FileRepository[T]) Delete() error {
	return r.withLock(r.remove)
}

func (r *FileRepository[T]) Update(fn func(cur T, exists bool) (T, Op, error)) error {
	return r.withLock(func() error {
		cur, exists, err := r.read()
		if err != nil {
			return err
		}
		next, op, err := fn(cur, exists)
		if err != nil {
			return err
		}
		switch op {
		case Put:
			return r.write(next)
		case Remove:
			return r.remove()
		default:
			return nil
		}
	})
}

func (r *FileRepository[T]) withLock(fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("could not create directory for %s: %w", r.path, err)
	}
	if err := r.lock.Lock(); err != nil {
		return fmt.Errorf("could not lock %s: %w", r.path, err)
	}
	defer func() { _ = r.lock.Unlock() }()
	return fn()
}

func (r *FileRepository[T]) read() (T, bool, error) {
	var v T
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return v, false, nil
		}
		return v, false, fmt.Errorf("could not read %s: %w", r.path, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("could not decode %s: %w", r.path, err)
	}
	return v, true, nil
}

func (r *FileRepository[T]) write(v T) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode %s: %w", r.path, err)
	}
	return WriteFileAtomic(r.path, data, r.perm)
}

func (r *FileRepository[T]) remove() error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not remove %s: %w", r.path, err)
	}
	return nil
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never observe a partial document.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("could not create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("could not chmod %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("could not sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("could not replace %s: %w", path, err)
	}
	return nil
}
