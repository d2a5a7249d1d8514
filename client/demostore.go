package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DemoStorageKey is the namespace the demo counter is persisted under.
const DemoStorageKey = "mindgleam_demo_chat"

// DemoUsage is the persisted demo counter state. LastUsed is ISO-8601.
type DemoUsage struct {
	Count    int    `json:"count"`
	LastUsed string `json:"lastUsed"`
}

// DemoStore persists small keyed values across process restarts, the
// way a browser's local storage would.
type DemoStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// FileStore is a DemoStore backed by a single JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read store file")
	}

	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		// A corrupt file degrades to empty rather than wedging the
		// client forever.
		return map[string]string{}, nil
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return errors.Wrap(err, "failed to encode store file")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create store directory")
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write store file")
	}
	return nil
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	value, ok := values[key]
	return value, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	values, err := s.load()
	if err != nil {
		return err
	}
	delete(values, key)
	return s.save(values)
}

// MemoryStore is an in-memory DemoStore for tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// loadDemoUsage reads the persisted counter, treating absence or
// corruption as a fresh counter.
func loadDemoUsage(store DemoStore) DemoUsage {
	raw, ok, err := store.Get(DemoStorageKey)
	if err != nil || !ok {
		return DemoUsage{}
	}
	usage := DemoUsage{}
	if err := json.Unmarshal([]byte(raw), &usage); err != nil {
		return DemoUsage{}
	}
	if usage.Count < 0 {
		usage.Count = 0
	}
	return usage
}

// saveDemoUsage persists the counter with the current timestamp.
func saveDemoUsage(store DemoStore, count int) error {
	data, err := json.Marshal(&DemoUsage{
		Count:    count,
		LastUsed: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode demo usage")
	}
	return store.Set(DemoStorageKey, string(data))
}
