package storage

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Observer receives one call per store operation.
type Observer interface {
	ObserveStoreOperation(op string, status int, duration time.Duration)
}

type instrumented struct {
	next     Store
	observer Observer
}

// Instrument wraps store so every operation is reported to observer.
func Instrument(store Store, observer Observer) Store {
	if observer == nil {
		return store
	}
	return &instrumented{next: store, observer: observer}
}

func (s *instrumented) Ready() error { return s.next.Ready() }

func (s *instrumented) Fetch(ctx context.Context, path string) (*Blob, error) {
	start := time.Now()
	blob, err := s.next.Fetch(ctx, path)
	s.observer.ObserveStoreOperation("fetch", statusOf(err, http.StatusOK), time.Since(start))
	return blob, err
}

func (s *instrumented) Put(ctx context.Context, req PutRequest) (*PutResult, error) {
	start := time.Now()
	res, err := s.next.Put(ctx, req)
	status := http.StatusOK
	if res != nil {
		status = res.Status
	}
	s.observer.ObserveStoreOperation("put", statusOf(err, status), time.Since(start))
	return res, err
}

func (s *instrumented) Delete(ctx context.Context, path, sha, message string) error {
	start := time.Now()
	err := s.next.Delete(ctx, path, sha, message)
	s.observer.ObserveStoreOperation("delete", statusOf(err, http.StatusOK), time.Since(start))
	return err
}

func statusOf(err error, ok int) int {
	if err == nil {
		return ok
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if se, isStore := AsStoreError(err); isStore {
		return se.Status
	}
	return 0
}
