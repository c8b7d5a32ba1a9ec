package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// Object is a stored blob held by MemoryStorage.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStorage keeps objects in process memory. It backs the "memory"
// driver for local development and is used by tests across packages.
type MemoryStorage struct {
	mu         sync.Mutex
	objects    map[string]Object
	publicBase string
}

// NewMemoryStorage returns an empty MemoryStorage.
func NewMemoryStorage(publicBase string) *MemoryStorage {
	return &MemoryStorage{
		objects:    make(map[string]Object),
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

func memKey(bucket, key string) string {
	return bucket + "/" + key
}

// Put stores a copy of reader's bytes, replacing any existing object.
func (m *MemoryStorage) Put(ctx context.Context, bucket, key string, reader io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return &StoreError{Op: "put", Bucket: bucket, Key: key, Err: err}
	}
	if size >= 0 && int64(len(data)) != size {
		return &StoreError{Op: "put", Bucket: bucket, Key: key,
			Err: fmt.Errorf("size mismatch: declared %d, read %d", size, len(data))}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[memKey(bucket, key)] = Object{Data: bytes.Clone(data), ContentType: contentType}
	return nil
}

// Delete removes bucket/key. Deleting a missing object is not an error.
func (m *MemoryStorage) Delete(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return &StoreError{Op: "delete", Bucket: bucket, Key: key, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, memKey(bucket, key))
	return nil
}

// PublicURL returns the URL the object would be served at.
func (m *MemoryStorage) PublicURL(bucket, key string) (string, error) {
	return publicURL(m.publicBase, bucket, key)
}

// Get returns the object stored at bucket/key. Inspection helper for
// tests; it is not part of Storage.
func (m *MemoryStorage) Get(bucket, key string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[memKey(bucket, key)]
	return obj, ok
}

// Keys returns "bucket/key" names of all stored objects, sorted.
// Inspection helper for tests; it is not part of Storage.
func (m *MemoryStorage) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
