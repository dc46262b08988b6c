package crawler

import (
	"context"
	"errors"
	"sync"
)

// ErrExhausted is returned by Multiplexer.Next once every input has closed.
var ErrExhausted = errors.New("multiplexer exhausted")

// envelope carries either a value or the end-of-input marker of one producer.
type envelope[T any] struct {
	value  T
	closed bool
}

// Multiplexer merges any number of producers into one stream. Every producer
// sends into a single shared channel, so the cost of Next does not depend on
// how many inputs are open.
//
// The multiplexer is owned by a single goroutine: Add, Push, Len and Next
// must not be called concurrently. Input methods may be called from any
// goroutine.
type Multiplexer[T any] struct {
	ch      chan envelope[T]
	live    int
	pending []T
}

// NewMultiplexer returns an empty Multiplexer.
func NewMultiplexer[T any]() *Multiplexer[T] {
	return &Multiplexer[T]{ch: make(chan envelope[T])}
}

// Add registers a new producer. Values sent on the returned Input are
// yielded by Next until the Input is closed.
func (m *Multiplexer[T]) Add() *Input[T] {
	m.live++
	return &Input[T]{ch: m.ch}
}

// Push queues v for the owner's next call to Next without registering a
// producer.
func (m *Multiplexer[T]) Push(v T) {
	m.pending = append(m.pending, v)
}

// Len reports how many inputs are still open.
func (m *Multiplexer[T]) Len() int {
	return m.live
}

// Next blocks until a value is available, every input has closed and nothing
// is queued (ErrExhausted) or ctx is done (ctx.Err()).
func (m *Multiplexer[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if len(m.pending) > 0 {
			v := m.pending[0]
			m.pending[0] = zero
			m.pending = m.pending[1:]
			return v, nil
		}
		if m.live == 0 {
			return zero, ErrExhausted
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case e := <-m.ch:
			if e.closed {
				m.live--
				continue
			}
			return e.value, nil
		}
	}
}

// Input is the sending half of one producer.
type Input[T any] struct {
	ch   chan<- envelope[T]
	once sync.Once
}

// Send delivers v to the owner. It returns ctx.Err() if ctx ends first.
func (in *Input[T]) Send(ctx context.Context, v T) error {
	select {
	case in.ch <- envelope[T]{value: v}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the producer as finished. Only the first call has an effect.
// When ctx ends first the marker is dropped; the owner stops on ctx anyway.
func (in *Input[T]) Close(ctx context.Context) {
	in.once.Do(func() {
		select {
		case in.ch <- envelope[T]{closed: true}:
		case <-ctx.Done():
		}
	})
}
