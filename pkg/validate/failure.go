// Package validate checks the completed metamodel. Every validator runs over every
// specification and all problems are collected, so a single start-up reports the
// complete list of metadata errors.
package validate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/conduit-lang/metamodel/pkg/facetapi"
)

// Failure is one metadata problem
type Failure struct {
	Identifier facetapi.Identifier
	Message    string
}

// String renders the failure as "identifier: message"
func (f Failure) String() string {
	return f.Identifier.String() + ": " + f.Message
}

// Failures collects failures. Duplicates are dropped and All returns them in a
// stable order regardless of the order they were added in.
type Failures struct {
	mu    sync.Mutex
	items map[Failure]struct{}
}

// NewFailures creates an empty collection
func NewFailures() *Failures {
	return &Failures{items: make(map[Failure]struct{})}
}

// Add records a failure
func (f *Failures) Add(id facetapi.Identifier, format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items == nil {
		f.items = make(map[Failure]struct{})
	}
	f.items[Failure{Identifier: id, Message: fmt.Sprintf(format, args...)}] = struct{}{}
}

// Len returns the number of distinct failures
func (f *Failures) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// HasFailures reports whether any failure was recorded
func (f *Failures) HasFailures() bool {
	return f.Len() > 0
}

// All returns the failures sorted by identifier, then message
func (f *Failures) All() []Failure {
	f.mu.Lock()
	result := make([]Failure, 0, len(f.items))
	for item := range f.items {
		result = append(result, item)
	}
	f.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Identifier != b.Identifier {
			return a.Identifier.Less(b.Identifier)
		}
		return a.Message < b.Message
	})
	return result
}

// Messages returns the failures rendered as strings, in the order of All
func (f *Failures) Messages() []string {
	all := f.All()
	result := make([]string, len(all))
	for i, item := range all {
		result[i] = item.String()
	}
	return result
}

// Err returns an *InvalidError when failures were recorded, otherwise nil
func (f *Failures) Err() error {
	if !f.HasFailures() {
		return nil
	}
	return &InvalidError{Failures: f.All()}
}

// InvalidError is returned when the metamodel fails validation
type InvalidError struct {
	Failures []Failure
}

// Error implements the error interface
func (e *InvalidError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("metamodel validation failed with %d errors:", len(e.Failures)))
	for i, f := range e.Failures {
		b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, f))
	}
	return b.String()
}
