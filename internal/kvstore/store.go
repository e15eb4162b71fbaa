// Package kvstore provides namespaced key-value stores with change
// notifications. Writes are serialized per store and every committed change is
// delivered to subscribers in commit order.
package kvstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Namespace names an isolated store.
type Namespace string

const (
	// Sync holds user-owned state: watch-list, schema tag, widget flag.
	Sync Namespace = "sync"
	// Local holds derived, volatile state: the quote cache.
	Local Namespace = "local"
)

// Change is delivered to subscribers for every key whose value changed.
// OldValue is nil when the key did not exist before.
type Change struct {
	Namespace Namespace       `json:"namespace"`
	Key       string          `json:"key"`
	OldValue  json.RawMessage `json:"old_value,omitempty"`
	NewValue  json.RawMessage `json:"new_value"`
}

// Backend persists the raw values of one namespace.
type Backend interface {
	Load(ctx context.Context, keys []string) (map[string][]byte, error)
	Save(ctx context.Context, values map[string][]byte) error
}

// UpdateFunc receives the current raw values of the requested keys (missing
// keys are absent) and returns the values to write. Returning an empty map
// writes nothing.
type UpdateFunc func(current map[string]json.RawMessage) (map[string]any, error)

// Store is one namespace. It is safe for concurrent use.
type Store struct {
	ns      Namespace
	backend Backend

	// wmu serializes read-modify-write cycles.
	wmu sync.Mutex

	// smu protects subs and nextID.
	smu    sync.RWMutex
	subs   map[int]*Subscription
	nextID int
}

// New creates a store for ns on top of backend.
func New(ns Namespace, backend Backend) *Store {
	return &Store{
		ns:      ns,
		backend: backend,
		subs:    make(map[int]*Subscription),
	}
}

// Namespace returns the store's namespace.
func (s *Store) Namespace() Namespace {
	return s.ns
}

// Get returns the raw values of keys. Missing keys are absent from the map.
func (s *Store) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	raw, err := s.backend.Load(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("kvstore %s: load: %w", s.ns, err)
	}
	out := make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		out[k] = json.RawMessage(v)
	}
	return out, nil
}

// Set writes values as one atomic replacement per key.
func (s *Store) Set(ctx context.Context, values map[string]any) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	return s.Update(ctx, keys, func(map[string]json.RawMessage) (map[string]any, error) {
		return values, nil
	})
}

// Update runs fn under the store's write lock so that the read, the decision
// and the write form one atomic step from the callers' perspective.
func (s *Store) Update(ctx context.Context, keys []string, fn UpdateFunc) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	current, err := s.Get(ctx, keys...)
	if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if len(next) == 0 {
		return nil
	}

	old, err := s.Get(ctx, mapKeys(next)...)
	if err != nil {
		return err
	}

	encoded := make(map[string][]byte, len(next))
	changes := make([]Change, 0, len(next))
	for _, k := range mapKeys(next) {
		b, err := json.Marshal(next[k])
		if err != nil {
			return fmt.Errorf("kvstore %s: encode %q: %w", s.ns, k, err)
		}
		prev, existed := old[k]
		if existed && bytes.Equal(prev, b) {
			continue
		}
		encoded[k] = b
		ch := Change{Namespace: s.ns, Key: k, NewValue: json.RawMessage(b)}
		if existed {
			ch.OldValue = prev
		}
		changes = append(changes, ch)
	}
	if len(encoded) == 0 {
		return nil
	}

	if err := s.backend.Save(ctx, encoded); err != nil {
		return fmt.Errorf("kvstore %s: save: %w", s.ns, err)
	}

	s.publish(changes)
	return nil
}

// Subscribe returns a subscription receiving changes for keys, or for every
// key when none are given.
func (s *Store) Subscribe(keys ...string) *Subscription {
	s.smu.Lock()
	defer s.smu.Unlock()

	id := s.nextID
	s.nextID++

	sub := newSubscription(keys, func() { s.unsubscribe(id) })
	s.subs[id] = sub
	return sub
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.smu.RLock()
	defer s.smu.RUnlock()
	return len(s.subs)
}

func (s *Store) unsubscribe(id int) {
	s.smu.Lock()
	defer s.smu.Unlock()
	delete(s.subs, id)
}

// publish runs with wmu held, so enqueue order equals commit order.
func (s *Store) publish(changes []Change) {
	s.smu.RLock()
	defer s.smu.RUnlock()

	for _, ch := range changes {
		for _, sub := range s.subs {
			if sub.wants(ch.Key) {
				sub.enqueue(ch)
			}
		}
	}
}

func mapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
