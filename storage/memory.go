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

type memoryObject struct {
	contentType string
	data        []byte
}

// Memory is an in-process ObjectStore for local runs and tests.
type Memory struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]memoryObject

	// FailUpload and FailRemove inject errors for the given keys.
	FailUpload func(key string) error
	FailRemove func(key string) error
}

func NewMemory(baseURL string) *Memory {
	return &Memory{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]memoryObject),
	}
}

func (m *Memory) Upload(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.FailUpload != nil {
		if err := m.FailUpload(key); err != nil {
			return "", err
		}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	m.mu.Lock()
	m.objects[key] = memoryObject{contentType: contentType, data: buf.Bytes()}
	m.mu.Unlock()
	return m.PublicURL(key), nil
}

func (m *Memory) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.FailRemove != nil {
		if err := m.FailRemove(key); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("%s: %w", key, ErrObjectNotFound)
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) PublicURL(key string) string {
	return m.baseURL + "/" + key
}

func (m *Memory) KeyFromURL(u string) string {
	return KeyFromURL(u)
}

// Has reports whether key is stored.
func (m *Memory) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// Keys lists stored keys in order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Put seeds an object without going through Upload.
func (m *Memory) Put(key string, data []byte) string {
	m.mu.Lock()
	m.objects[key] = memoryObject{contentType: ContentTypeForKey(key), data: data}
	m.mu.Unlock()
	return m.PublicURL(key)
}
