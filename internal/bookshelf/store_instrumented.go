package bookshelf

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK       = "ok"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// InstrumentedStore counts store calls by operation and outcome.
type InstrumentedStore struct {
	next Store
	ops  *prometheus.CounterVec
}

func NewInstrumentedStore(next Store, reg prometheus.Registerer) *InstrumentedStore {
	ops := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bookshelf",
			Name:      "store_operations_total",
			Help:      "Book store operations by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)
	reg.MustRegister(ops)
	return &InstrumentedStore{next: next, ops: ops}
}

func (s *InstrumentedStore) observe(op string, err error) {
	s.ops.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrValidation):
		return outcomeInvalid
	case errors.Is(err, ErrNotFound):
		return outcomeNotFound
	default:
		return outcomeError
	}
}

func (s *InstrumentedStore) Create(ctx context.Context, in BookInput) (string, error) {
	id, err := s.next.Create(ctx, in)
	s.observe("create", err)
	return id, err
}

func (s *InstrumentedStore) List(ctx context.Context, f Filter) ([]BookSummary, error) {
	out, err := s.next.List(ctx, f)
	s.observe("list", err)
	return out, err
}

func (s *InstrumentedStore) Get(ctx context.Context, id string) (Book, error) {
	b, err := s.next.Get(ctx, id)
	s.observe("get", err)
	return b, err
}

func (s *InstrumentedStore) Update(ctx context.Context, id string, in BookInput) error {
	err := s.next.Update(ctx, id, in)
	s.observe("update", err)
	return err
}

func (s *InstrumentedStore) Delete(ctx context.Context, id string) error {
	err := s.next.Delete(ctx, id)
	s.observe("delete", err)
	return err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}
