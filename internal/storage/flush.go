package storage

import (
	"context"
	"errors"
)

// Flusher is anything with pending writes.
type Flusher interface {
	Flush() error
}

// FlushAll flushes every target, joining the errors. It has the shape of a
// scheduler handler.
func FlushAll(targets ...Flusher) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		var errs []error
		for _, t := range targets {
			if err := t.Flush(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
