// Package ds provides generic data structures shared by the repositories and
// their derived caches.
package ds

import "fmt"

type StringSet = Set[string]

// Set is an ordered set with O(1) membership testing that preserves
// insertion order. Repositories use it to enumerate entries deterministically.
//
// A Set is not safe for concurrent use; owners guard it with their own lock.
type Set[T comparable] struct {
	items map[T]int // value -> position in order
	order []T
}

func (s *Set[T]) String() string {
	return fmt.Sprintf("%v", s.order)
}

// Add adds v to the set and reports whether it was not present before.
func (s *Set[T]) Add(v T) bool {
	if _, ok := s.items[v]; ok {
		return false
	}
	s.items[v] = len(s.order)
	s.order = append(s.order, v)
	return true
}

// Insert places v at position i, shifting later elements. An index outside
// [0, Len] appends. It reports whether v was not present before.
func (s *Set[T]) Insert(i int, v T) bool {
	if _, ok := s.items[v]; ok {
		return false
	}
	if i < 0 || i >= len(s.order) {
		return s.Add(v)
	}
	s.order = append(s.order, v)
	copy(s.order[i+1:], s.order[i:])
	s.order[i] = v
	for j := i; j < len(s.order); j++ {
		s.items[s.order[j]] = j
	}
	return true
}

// Remove removes the given values. Removing absent values is a no-op.
// This operation is O(n) in the set size.
func (s *Set[T]) Remove(vs ...T) {
	removed := false
	for _, v := range vs {
		if _, ok := s.items[v]; ok {
			delete(s.items, v)
			removed = true
		}
	}
	if !removed {
		return
	}

	order := make([]T, 0, len(s.items))
	for _, v := range s.order {
		if _, ok := s.items[v]; ok {
			s.items[v] = len(order)
			order = append(order, v)
		}
	}
	s.order = order
}

// Contains reports whether v is present.
func (s *Set[T]) Contains(v T) bool {
	_, ok := s.items[v]
	return ok
}

// IndexOf returns the insertion position of v, or -1.
func (s *Set[T]) IndexOf(v T) int {
	if i, ok := s.items[v]; ok {
		return i
	}
	return -1
}

// Len returns the number of elements in the set.
func (s *Set[T]) Len() int { return len(s.items) }

// ForEach calls fn for each element in insertion order.
func (s *Set[T]) ForEach(fn func(T)) {
	for _, v := range s.order {
		fn(v)
	}
}

// Values returns a copy of the elements in insertion order.
func (s *Set[T]) Values() []T {
	out := make([]T, len(s.order))
	copy(out, s.order)
	return out
}

// Clear removes all elements.
func (s *Set[T]) Clear() {
	s.items = map[T]int{}
	s.order = nil
}

// NewSet creates a new set with the given items.
func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{items: make(map[T]int, len(items)), order: make([]T, 0, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// NewStringSet creates a new string set with the given items.
func NewStringSet(items ...string) *StringSet {
	return NewSet(items...)
}
