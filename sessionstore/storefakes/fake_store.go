package storefakes

import (
	"sync"

	"github.com/postsiva/automator-agent/sessionstore"
)

var _ sessionstore.Store = (*FakeStore)(nil)

// FakeStore is a thread-safe in-memory sessionstore.Store. Writing to it from
// a test simulates another tab or process mutating the shared store: the write
// lands and every subscriber is notified, just as with the durable store.
type FakeStore struct {
	lock    sync.Mutex
	values  map[sessionstore.Key]string
	subs    map[int]func(key sessionstore.Key)
	nextSub int
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		values: make(map[sessionstore.Key]string),
		subs:   make(map[int]func(key sessionstore.Key)),
	}
}

func (s *FakeStore) Get(key sessionstore.Key) (string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.values[key], nil
}

func (s *FakeStore) Set(key sessionstore.Key, value string) error {
	return s.Apply(map[sessionstore.Key]string{key: value}, nil)
}

func (s *FakeStore) Remove(key sessionstore.Key) error {
	return s.Apply(nil, []sessionstore.Key{key})
}

func (s *FakeStore) Apply(set map[sessionstore.Key]string, remove []sessionstore.Key) error {
	s.lock.Lock()
	changed := make([]sessionstore.Key, 0, len(set)+len(remove))
	for key, value := range set {
		s.values[key] = value
		changed = append(changed, key)
	}
	for _, key := range remove {
		delete(s.values, key)
		changed = append(changed, key)
	}
	fns := make([]func(key sessionstore.Key), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.lock.Unlock()

	for _, fn := range fns {
		for _, key := range changed {
			fn(key)
		}
	}
	return nil
}

func (s *FakeStore) Subscribe(fn func(key sessionstore.Key)) func() {
	s.lock.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.lock.Unlock()

	return func() {
		s.lock.Lock()
		delete(s.subs, id)
		s.lock.Unlock()
	}
}

// Snapshot returns a copy of the current contents, for asserting that
// multi-key updates land together.
func (s *FakeStore) Snapshot() map[sessionstore.Key]string {
	s.lock.Lock()
	defer s.lock.Unlock()
	copied := make(map[sessionstore.Key]string, len(s.values))
	for key, value := range s.values {
		copied[key] = value
	}
	return copied
}
