// Package noop discards session reports.
package noop

import "context"

// Publisher drops every message.
type Publisher struct{}

// New returns a Publisher.
func New() Publisher {
	return Publisher{}
}

// Publish does nothing and returns an empty ID.
func (Publisher) Publish(context.Context, string, any) (string, error) {
	return "", nil
}
