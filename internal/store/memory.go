package store

import (
	"context"
	"sync"
)

type memoryDoc struct {
	data    []byte
	version int64
}

// Memory is an in-process DocumentStore with the same versioning
// semantics as the Postgres store. Used by unit tests and as a
// no-database development mode.
type Memory struct {
	*notifier
	mu   sync.Mutex
	docs map[string]memoryDoc
}

func NewMemory() *Memory {
	return &Memory{
		notifier: newNotifier(),
		docs:     make(map[string]memoryDoc),
	}
}

func (m *Memory) Read(ctx context.Context, path string) ([]byte, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[path]
	if !ok {
		return nil, 0, ErrNotFound
	}
	return cloneBytes(doc.data), doc.version, nil
}

func (m *Memory) Write(ctx context.Context, path string, value []byte) error {
	m.mu.Lock()
	doc := m.docs[path]
	doc.data = cloneBytes(value)
	doc.version++
	m.docs[path] = doc
	published := cloneBytes(doc.data)
	m.mu.Unlock()

	m.publish(path, published, true)
	return nil
}

func (m *Memory) Update(ctx context.Context, path string, fn UpdateFunc) error {
	m.mu.Lock()
	doc, ok := m.docs[path]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	readVersion := doc.version
	current := cloneBytes(doc.data)
	m.mu.Unlock()

	// fn runs outside the lock, mirroring the remote store: another
	// writer can commit in between and the version check catches it.
	next, err := fn(current)
	if err != nil {
		return err
	}

	m.mu.Lock()
	doc, ok = m.docs[path]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	if doc.version != readVersion {
		m.mu.Unlock()
		return ErrConflict
	}
	doc.data = cloneBytes(next)
	doc.version++
	m.docs[path] = doc
	published := cloneBytes(doc.data)
	m.mu.Unlock()

	m.publish(path, published, true)
	return nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	_, existed := m.docs[path]
	delete(m.docs, path)
	m.mu.Unlock()

	if existed {
		m.publish(path, nil, false)
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
