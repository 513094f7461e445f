package bookshelf

import (
	"errors"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	idLength      = 16
	maxIDAttempts = 8
)

var errIDExhausted = errors.New("could not allocate a unique book id")

// IDFunc produces candidate book ids.
type IDFunc func() (string, error)

// NewID returns a random 16-character nanoid.
func NewID() (string, error) {
	return gonanoid.New(idLength)
}
