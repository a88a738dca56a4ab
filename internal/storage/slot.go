// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/marcusdavidalo/arda/internal/util"
)

// ErrSlotEmpty is returned by Slot.Read when nothing has been written yet.
var ErrSlotEmpty = errors.New("slot is empty")

// Slot is a single named value in durable storage.
type Slot interface {
	Read() ([]byte, error)
	Write(data []byte) error
	Close() error
}

// Backend names accepted by OpenSlot.
const (
	BackendFile   = "file"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// SlotConfig selects and locates a slot backend.
type SlotConfig struct {
	// Backend is one of file, bolt, sqlite or memory. Empty means file.
	Backend string

	// Dir is the data directory holding the backing file.
	Dir string

	// Name is the slot key. Empty means DefaultSlotName.
	Name string
}

// OpenSlot opens the slot described by cfg, creating cfg.Dir if needed.
func OpenSlot(cfg SlotConfig) (Slot, error) {
	name := cfg.Name
	if name == "" {
		name = DefaultSlotName
	}
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendFile
	}

	if backend == BackendMemory {
		return NewMemorySlot(), nil
	}

	if cfg.Dir == "" {
		return nil, fmt.Errorf("storage: data directory not set for %s backend", backend)
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	switch backend {
	case BackendFile:
		return NewFileSlot(filepath.Join(cfg.Dir, name+".json")), nil
	case BackendBolt:
		return OpenBoltSlot(filepath.Join(cfg.Dir, "arda.bolt"), name)
	case BackendSQLite:
		return OpenSQLiteSlot(filepath.Join(cfg.Dir, "arda.db"), name)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

// =============================================================================
// MEMORY SLOT
// =============================================================================

// MemorySlot keeps the value in process memory.
type MemorySlot struct {
	mu   sync.Mutex
	data []byte
	set  bool
}

// NewMemorySlot creates an empty in-memory slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

// Read returns a copy of the stored value.
func (m *MemorySlot) Read() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, ErrSlotEmpty
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

// Write replaces the stored value.
func (m *MemorySlot) Write(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.set = true
	return nil
}

// Close is a no-op.
func (m *MemorySlot) Close() error { return nil }

// =============================================================================
// FILE SLOT
// =============================================================================

// FileSlot stores the value in a single file, replaced atomically on write.
type FileSlot struct {
	Path string
}

// NewFileSlot creates a slot backed by the file at path.
func NewFileSlot(path string) *FileSlot {
	return &FileSlot{Path: path}
}

// Read returns the file contents.
func (f *FileSlot) Read() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSlotEmpty
		}
		return nil, err
	}
	return data, nil
}

// Write replaces the file contents.
func (f *FileSlot) Write(data []byte) error {
	return util.AtomicWriteFile(f.Path, data, 0o600)
}

// Close is a no-op.
func (f *FileSlot) Close() error { return nil }
