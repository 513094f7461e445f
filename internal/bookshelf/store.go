package bookshelf

import "context"

// Store is the book collection. Implementations validate input before any
// mutation and keep insertion order for List.
type Store interface {
	Create(ctx context.Context, in BookInput) (string, error)
	List(ctx context.Context, f Filter) ([]BookSummary, error)
	Get(ctx context.Context, id string) (Book, error)
	Update(ctx context.Context, id string, in BookInput) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
