package cache

import "container/list"

// recencyStore is the ordered index shared by both bounded cache variants:
// a map gives O(1) key lookup, and a doubly-linked list maintains recency
// ordering (Front = most recently used, Back = least recently used).
//
// Invariant: every key in the index appears exactly once in the list, and
// vice versa.
//
// The store is not safe for concurrent use; the owning cache's mutex guards
// every call.
type recencyStore struct {
	items map[string]*list.Element
	order *list.List // Front = MRU, Back = LRU
}

// entry is the value stored in the recency list elements.
// The key is kept here because eviction starts from list nodes.
type entry struct {
	key   string
	value []byte
}

func newRecencyStore() *recencyStore {
	return &recencyStore{
		items: make(map[string]*list.Element),
		order: list.New(),
	}
}

// lookup returns the entry for key without touching the recency order.
func (s *recencyStore) lookup(key string) (*entry, bool) {
	el, ok := s.items[key]
	if !ok {
		return nil, false
	}
	return el.Value.(*entry), true
}

// touch returns the entry for key and marks it most recently used.
func (s *recencyStore) touch(key string) (*entry, bool) {
	el, ok := s.items[key]
	if !ok {
		return nil, false
	}
	s.order.MoveToFront(el)
	return el.Value.(*entry), true
}

// insert adds a new key at the MRU position. The key must not be resident.
func (s *recencyStore) insert(key string, value []byte) {
	el := s.order.PushFront(&entry{key: key, value: value})
	s.items[key] = el
}

// evictOldest removes and returns the LRU entry, or nil when empty.
func (s *recencyStore) evictOldest() *entry {
	el := s.order.Back()
	if el == nil {
		return nil
	}
	e := el.Value.(*entry)
	s.order.Remove(el)
	delete(s.items, e.key)
	return e
}

// remove deletes key if resident and returns the removed entry.
func (s *recencyStore) remove(key string) (*entry, bool) {
	el, ok := s.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*entry)
	s.order.Remove(el)
	delete(s.items, key)
	return e, true
}

func (s *recencyStore) len() int {
	return s.order.Len()
}

func (s *recencyStore) clear() {
	s.items = make(map[string]*list.Element)
	s.order.Init()
}

// keys returns resident keys in MRU -> LRU order.
func (s *recencyStore) keys() []string {
	out := make([]string, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).key)
	}
	return out
}

// forEachLRU visits entries from least- to most-recently used.
// State snapshots depend on this direction.
func (s *recencyStore) forEachLRU(fn func(e *entry)) {
	for el := s.order.Back(); el != nil; el = el.Prev() {
		fn(el.Value.(*entry))
	}
}
