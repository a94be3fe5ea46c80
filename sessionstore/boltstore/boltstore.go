// Package boltstore provides the bbolt-backed implementation of
// sessionstore.Store. One database file lives in each profile directory and
// survives restarts of any agent process using that profile.
package boltstore

import (
	"sync"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/postsiva/automator-agent/sessionstore"
)

const bucketName = "session_record"

// Store is a durable sessionstore.Store backed by a bbolt database.
type Store struct {
	db *bbolt.DB

	mu      sync.Mutex
	subs    map[int]func(key sessionstore.Key)
	nextSub int
	closed  bool
}

var _ sessionstore.Store = (*Store)(nil)

// New opens (or creates) the session database at path.
func New(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[boltstore.New] bbolt.Open")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[boltstore.New] create bucket")
	}
	return &Store{db: db, subs: make(map[int]func(key sessionstore.Key))}, nil
}

// Close closes the underlying database. A closed store reads empty values and
// silently drops writes, per the sessionstore.Store contract.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) Get(key sessionstore.Key) (string, error) {
	if s.isClosed() {
		return "", nil
	}
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if data := tx.Bucket([]byte(bucketName)).Get([]byte(key)); data != nil {
			value = string(data)
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "[boltstore.Get] db.View")
	}
	return value, nil
}

func (s *Store) Set(key sessionstore.Key, value string) error {
	return s.Apply(map[sessionstore.Key]string{key: value}, nil)
}

func (s *Store) Remove(key sessionstore.Key) error {
	return s.Apply(nil, []sessionstore.Key{key})
}

func (s *Store) Apply(set map[sessionstore.Key]string, remove []sessionstore.Key) error {
	if s.isClosed() {
		return nil
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		for key, value := range set {
			if err := b.Put([]byte(key), []byte(value)); err != nil {
				return err
			}
		}
		for _, key := range remove {
			if err := b.Delete([]byte(key)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "[boltstore.Apply] db.Update")
	}
	changed := make([]sessionstore.Key, 0, len(set)+len(remove))
	for key := range set {
		changed = append(changed, key)
	}
	changed = append(changed, remove...)
	s.notify(changed)
	return nil
}

func (s *Store) Subscribe(fn func(key sessionstore.Key)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// notify runs subscribers outside the store lock so that a subscriber may read
// the store from its callback.
func (s *Store) notify(keys []sessionstore.Key) {
	s.mu.Lock()
	fns := make([]func(key sessionstore.Key), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		for _, key := range keys {
			fn(key)
		}
	}
}
