// Copyright (c) 2026 Hostwarden Team
// Hostwarden - host security posture monitor
// This source code is licensed under the MIT license found in the LICENSE file.

package docstore

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type counter struct {
	N int `json:"n"`
}

func TestFileRepository_LoadMissing(t *testing.T) {
	r := NewFile[counter](filepath.Join(t.TempDir(), "state", "c.json"), 0o600)
	v, exists, err := r.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists || v.N != 0 {
		t.Fatalf("expected zero value for missing document, got %+v exists=%v", v, exists)
	}
}

func TestFileRepository_SaveLoadDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	r := NewFile[counter](path, 0o600)
	if err := r.Save(counter{N: 7}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	v, exists, err := r.Load()
	if err != nil || !exists || v.N != 7 {
		t.Fatalf("Load after Save: %+v %v %v", v, exists, err)
	}
	if err := r.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected document to be removed, stat err=%v", err)
	}
	if err := r.Delete(); err != nil {
		t.Fatalf("second Delete should be a no-op, got %v", err)
	}
}

func TestFileRepository_UpdateOps(t *testing.T) {
	r := NewFile[counter](filepath.Join(t.TempDir(), "c.json"), 0o600)

	if err := r.Update(func(cur counter, exists bool) (counter, Op, error) {
		if exists {
			t.Fatalf("document should not exist yet")
		}
		return counter{N: 1}, Put, nil
	}); err != nil {
		t.Fatalf("Update put: %v", err)
	}

	if err := r.Update(func(cur counter, exists bool) (counter, Op, error) {
		return counter{N: 99}, Keep, nil
	}); err != nil {
		t.Fatalf("Update keep: %v", err)
	}
	if v, _, _ := r.Load(); v.N != 1 {
		t.Fatalf("Keep must not write, got %d", v.N)
	}

	sentinel := errors.New("boom")
	if err := r.Update(func(cur counter, exists bool) (counter, Op, error) {
		return counter{}, Remove, sentinel
	}); !errors.Is(err, sentinel) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if _, exists, _ := r.Load(); !exists {
		t.Fatalf("a failing callback must not apply its op")
	}

	if err := r.Update(func(cur counter, exists bool) (counter, Op, error) {
		return cur, Remove, nil
	}); err != nil {
		t.Fatalf("Update remove: %v", err)
	}
	if _, exists, _ := r.Load(); exists {
		t.Fatalf("document should be gone after Remove")
	}
}

func TestFileRepository_ConcurrentIncrements(t *testing.T) {
	r := NewFile[counter](filepath.Join(t.TempDir(), "c.json"), 0o600)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Update(func(cur counter, _ bool) (counter, Op, error) {
				cur.N++
				return cur, Put, nil
			})
		}()
	}
	wg.Wait()
	v, _, err := r.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v.N != 20 {
		t.Fatalf("expected 20 serialized increments, got %d", v.N)
	}
}

func TestFileRepository_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := NewFile[counter](path, 0o600)
	if _, _, err := r.Load(); err == nil {
		t.Fatalf("expected decode error for corrupt document")
	}
}
