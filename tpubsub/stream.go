package tpubsub

import "context"

// Stream is one node in a linked list of published values.
// Ready is closed once Val and Next are set.
type Stream[T any] struct {
	Ready chan struct{}
	Next  *Stream[T]
	Val   T
}

// NewStream returns an unpublished stream node.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{
		Ready: make(chan struct{}),
	}
}

// Publish sets s's value, allocates s.Next, and closes s.Ready.
// It returns s.Next, which is where the writer publishes next.
//
// Publishing the same node twice panics.
func (s *Stream[T]) Publish(t T) *Stream[T] {
	s.Val = t
	s.Next = NewStream[T]()
	close(s.Ready)
	return s.Next
}

// Wait blocks until s is published or ctx is done.
// On success it returns s's value and the following node.
func (s *Stream[T]) Wait(ctx context.Context) (T, *Stream[T], error) {
	select {
	case <-ctx.Done():
		var zero T
		return zero, s, context.Cause(ctx)
	case <-s.Ready:
		return s.Val, s.Next, nil
	}
}

// Latest skips over every already-published node
// and returns the last published value along with the unpublished tail.
// If nothing after s has been published, ok is false and tail is s.
func (s *Stream[T]) Latest() (val T, tail *Stream[T], ok bool) {
	tail = s
	for {
		select {
		case <-tail.Ready:
			val, tail, ok = tail.Val, tail.Next, true
		default:
			return val, tail, ok
		}
	}
}
