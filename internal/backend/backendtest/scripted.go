// Package backendtest provides a scripted backend for tests.
package backendtest

import (
	"context"
	"iter"
	"sync"

	"lumen/internal/backend"
)

// Scripted replays a fixed list of fragments and then optionally fails.
// Every request it receives is recorded.
type Scripted struct {
	Fragments []backend.Fragment
	Err       error

	// Gate, when set, is received from before each fragment so tests can
	// hold a stream open.
	Gate chan struct{}

	mu       sync.Mutex
	requests []backend.Request
}

func New(fragments ...backend.Fragment) *Scripted {
	return &Scripted{Fragments: fragments}
}

// Text builds a script of plain text deltas.
func Text(deltas ...string) *Scripted {
	s := &Scripted{}
	for _, d := range deltas {
		s.Fragments = append(s.Fragments, backend.TextDelta{Text: d})
	}
	return s
}

func (s *Scripted) Stream(ctx context.Context, req backend.Request) iter.Seq2[backend.Fragment, error] {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	return func(yield func(backend.Fragment, error) bool) {
		for _, f := range s.Fragments {
			if s.Gate != nil {
				select {
				case <-s.Gate:
				case <-ctx.Done():
					yield(nil, ctx.Err())
					return
				}
			}
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
		if s.Err != nil {
			yield(nil, s.Err)
		}
	}
}

// Requests returns every request received so far.
func (s *Scripted) Requests() []backend.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]backend.Request(nil), s.requests...)
}
