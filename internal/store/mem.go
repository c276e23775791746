package store

import (
	"encoding/json"
	"sort"
	"sync"
)

// Mem is an in-memory Store for tests and dry runs. It round-trips values
// through JSON so persistence bugs show up the same way they would on disk.
type Mem struct {
	mu    sync.Mutex
	blobs map[string]map[string][]byte
}

func NewMem() *Mem {
	return &Mem{blobs: map[string]map[string][]byte{}}
}

func (m *Mem) Get(ns, key string, v any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.blobs[ns][key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, v)
}

func (m *Mem) Put(ns, key string, v any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if m.blobs[ns] == nil {
		m.blobs[ns] = map[string][]byte{}
	}
	m.blobs[ns][key] = raw
	return nil
}

func (m *Mem) Delete(ns, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs[ns], key)
	return nil
}

func (m *Mem) Keys(ns string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.blobs[ns]))
	for k := range m.blobs[ns] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Mem) Close() error { return nil }
