package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

const objectScheme = "memory://"

// ObjectStore keeps uploaded objects in memory and hands out memory:// URLs.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *ObjectStore) Upload(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, size+1))
	if err != nil {
		return "", fmt.Errorf("ObjectStore.Upload: %w", err)
	}
	if n != size {
		return "", fmt.Errorf("ObjectStore.Upload: read %d bytes, expected %d", n, size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = buf.Bytes()
	s.types[key] = contentType
	return objectScheme + key, nil
}

// DeleteURL ignores URLs this store did not issue.
func (s *ObjectStore) DeleteURL(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, objectScheme)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	delete(s.types, key)
	return nil
}

// Object returns a stored object and its content type.
func (s *ObjectStore) Object(key string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, s.types[key], ok
}

// Len reports the number of stored objects.
func (s *ObjectStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
