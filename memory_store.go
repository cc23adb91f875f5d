package instructagent

import "sync"

// MemoryStore is the pluggable backend for session state.
//
// Data is organized by namespace and key. Conversation history lives under
// namespace "{agent_id}:{session_id}"; the widget's session index lives
// under namespace "{agent_id}". The default backend is in-memory; the
// store package provides a Redis backend for sessions that should survive
// a restart.
type MemoryStore interface {
	// KV operations
	Get(namespace, key string) (string, error)
	Set(namespace, key, value string) error
	Delete(namespace, key string) error
	ListKeys(namespace string) ([]string, error)

	// List operations (ordered sequences, used for chat history)
	Append(namespace, key, value string) error
	GetList(namespace, key string, limit, offset int) ([]string, error)
	TrimList(namespace, key string, maxSize int) error
	ClearList(namespace, key string) error
	ListLength(namespace, key string) (int, error)
}

// memoryBucket holds one namespace worth of data.
type memoryBucket struct {
	kv    map[string]string
	lists map[string][]string
}

func newMemoryBucket() *memoryBucket {
	return &memoryBucket{
		kv:    make(map[string]string),
		lists: make(map[string][]string),
	}
}

// InMemoryMemoryStore is a thread-safe in-memory MemoryStore. Sessions are
// lost on restart, which matches the widget's ephemeral default.
type InMemoryMemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]*memoryBucket
}

// NewInMemoryMemoryStore creates an empty in-memory store.
func NewInMemoryMemoryStore() *InMemoryMemoryStore {
	return &InMemoryMemoryStore{buckets: make(map[string]*memoryBucket)}
}

func (s *InMemoryMemoryStore) bucket(namespace string) *memoryBucket {
	b, ok := s.buckets[namespace]
	if !ok {
		b = newMemoryBucket()
		s.buckets[namespace] = b
	}
	return b
}

func (s *InMemoryMemoryStore) Get(namespace, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.buckets[namespace]; ok {
		return b.kv[key], nil
	}
	return "", nil
}

func (s *InMemoryMemoryStore) Set(namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket(namespace).kv[key] = value
	return nil
}

func (s *InMemoryMemoryStore) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[namespace]; ok {
		delete(b.kv, key)
	}
	return nil
}

func (s *InMemoryMemoryStore) ListKeys(namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[namespace]
	if !ok {
		return []string{}, nil
	}
	keys := make([]string, 0, len(b.kv)+len(b.lists))
	for k := range b.kv {
		keys = append(keys, k)
	}
	for k := range b.lists {
		if _, dup := b.kv[k]; !dup {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *InMemoryMemoryStore) Append(namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(namespace)
	b.lists[key] = append(b.lists[key], value)
	return nil
}

func (s *InMemoryMemoryStore) GetList(namespace, key string, limit, offset int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []string
	if b, ok := s.buckets[namespace]; ok {
		items = b.lists[key]
	}
	if offset >= len(items) {
		return []string{}, nil
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	result := make([]string, len(items))
	copy(result, items)
	return result, nil
}

func (s *InMemoryMemoryStore) TrimList(namespace, key string, maxSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[namespace]; ok {
		if lst := b.lists[key]; len(lst) > maxSize {
			b.lists[key] = lst[len(lst)-maxSize:]
		}
	}
	return nil
}

func (s *InMemoryMemoryStore) ClearList(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[namespace]; ok {
		delete(b.lists, key)
	}
	return nil
}

func (s *InMemoryMemoryStore) ListLength(namespace, key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.buckets[namespace]; ok {
		return len(b.lists[key]), nil
	}
	return 0, nil
}
