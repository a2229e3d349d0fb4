package facts

import (
	"sort"
	"strings"
)

// Key composes the "key:value" form used for every atomic fact.
func Key(key, value string) string {
	return key + ":" + value
}

// Category returns the part of a fact key before the first ':'.
// Bare sentinel keys are their own category.
func Category(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Store holds boolean facts. A missing key reads as false.
type Store struct {
	m map[string]bool
}

func NewStore() *Store {
	return &Store{m: make(map[string]bool)}
}

// Get reports the fact value; unknown keys fail closed.
func (s *Store) Get(key string) bool {
	if s == nil {
		return false
	}
	return s.m[key]
}

// Set stores v under key. It reports whether the stored value changed.
func (s *Store) Set(key string, v bool) bool {
	old, ok := s.m[key]
	if !v {
		if !ok {
			return false
		}
		delete(s.m, key)
		return old
	}
	s.m[key] = true
	return !old
}

// ClearCategory removes every fact whose category equals cat.
func (s *Store) ClearCategory(cat string) int {
	n := 0
	for k := range s.m {
		if Category(k) == cat {
			delete(s.m, k)
			n++
		}
	}
	return n
}

// Keys returns the true facts in sorted order.
func (s *Store) Keys() []string {
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s *Store) Len() int { return len(s.m) }

// Reset drops every fact.
func (s *Store) Reset() {
	s.m = make(map[string]bool)
}
