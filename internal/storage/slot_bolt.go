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

var slotBucket = []byte("slots")

// BoltSlot stores the value under one key of a bbolt database.
type BoltSlot struct {
	db  *bolt.DB
	key []byte
}

// OpenBoltSlot opens (or creates) the database at path and binds the slot
// to key name.
func OpenBoltSlot(path, name string) (*BoltSlot, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}
	return &BoltSlot{db: db, key: []byte(name)}, nil
}

// Read returns the stored value.
func (b *BoltSlot) Read() ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(slotBucket)
		if bucket == nil {
			return ErrSlotEmpty
		}
		v := bucket.Get(b.key)
		if v == nil {
			return ErrSlotEmpty
		}
		// v is only valid inside the transaction.
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Write replaces the stored value in a single transaction.
func (b *BoltSlot) Write(data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(slotBucket)
		if err != nil {
			return err
		}
		return bucket.Put(b.key, data)
	})
}

// Close closes the database.
func (b *BoltSlot) Close() error {
	return b.db.Close()
}
