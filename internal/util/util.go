package util

import (
	"sort"
	"strings"
)

// MakeTextList gives a nice list of things based on their display name.
//
// TODO: turn this into a generic function that accepts displayable OR ~string
func MakeTextList(items []string) string {
	if len(items) < 1 {
		return ""
	}

	output := ""

	if len(items) == 1 {
		output += items[0]
	} else if len(items) == 2 {
		output += items[0] + " and " + items[1]
	} else {
		// if its more than two, use an oxford comma
		items[len(items)-1] = "and " + items[len(items)-1]
		output += strings.Join(items, ", ")
	}

	return output
}

// Stack is a simple LIFO of comparable-agnostic values. Of is exported so
// that callers (notably the parser runtime's trace hooks) can range over the
// current contents without a copy.
type Stack[E any] struct {
	Of []E
}

// Push adds v to the top of the stack.
func (s *Stack[E]) Push(v E) {
	s.Of = append(s.Of, v)
}

// Pop removes and returns the top of the stack. Panics if the stack is empty;
// callers in this module never pop further than a table-guaranteed depth.
func (s *Stack[E]) Pop() E {
	v := s.Of[len(s.Of)-1]
	s.Of = s.Of[:len(s.Of)-1]
	return v
}

// Peek returns the top of the stack without removing it.
func (s *Stack[E]) Peek() E {
	return s.Of[len(s.Of)-1]
}

// Len returns the number of elements on the stack.
func (s *Stack[E]) Len() int {
	return len(s.Of)
}

// Empty returns whether the stack has no elements.
func (s *Stack[E]) Empty() bool {
	return len(s.Of) == 0
}

// OrderedKeys returns the keys of m sorted ascending, for reproducible
// iteration over a Go map.
func OrderedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Alphabetized returns a sorted copy of sl.
func Alphabetized[E ~string](sl []E) []E {
	cp := make([]E, len(sl))
	copy(cp, sl)
	sort.Slice(cp, func(i, j int) bool { return cp[i] < cp[j] })
	return cp
}

// ArticleFor returns "a" or "an" depending on whether s begins with a vowel
// sound. If capitalize is true, the article is capitalized.
func ArticleFor(s string, capitalize bool) string {
	article := "a"
	if len(s) > 0 {
		switch strings.ToLower(s)[0] {
		case 'a', 'e', 'i', 'o', 'u':
			article = "an"
		}
	}
	if capitalize {
		return strings.ToUpper(article[:1]) + article[1:]
	}
	return article
}
