package hap

import (
	"fmt"
	"strings"
	"sync"
)

type memStore struct {
	mu sync.Mutex
	kv map[string][]byte
}

// NewMemStore returns a Store which keeps all data in memory.
// Useful for testing and for accessories without persistent state.
func NewMemStore() *memStore {
	return &memStore{
		kv: make(map[string][]byte),
	}
}

func (m *memStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = append([]byte{}, value...)

	return nil
}

func (m *memStore) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.kv[key]; ok {
		return append([]byte{}, v...), nil
	}

	return nil, fmt.Errorf("no value for key %s", key)
}

func (m *memStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.kv, key)

	return nil
}

func (m *memStore) KeysWithSuffix(suffix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.kv {
		if strings.HasSuffix(k, suffix) {
			keys = append(keys, k)
		}
	}

	return keys, nil
}
