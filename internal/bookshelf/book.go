// Package bookshelf holds the book store and its HTTP surface.
package bookshelf

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// timestampLayout always carries three fractional digits, e.g.
// 2024-01-02T03:04:05.100Z.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

var (
	// ErrValidation is the class of every input rejected before mutation.
	ErrValidation = errors.New("invalid book")

	ErrMissingName              = fmt.Errorf("%w: missing name", ErrValidation)
	ErrReadPageExceedsPageCount = fmt.Errorf("%w: readPage exceeds pageCount", ErrValidation)

	ErrNotFound = errors.New("book not found")
)

// Book is a stored record. Year, Author, Summary and Publisher are kept as the
// raw JSON the client sent; a nil value means the field was absent.
type Book struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Year       json.RawMessage `json:"year,omitempty"`
	Author     json.RawMessage `json:"author,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	Publisher  json.RawMessage `json:"publisher,omitempty"`
	PageCount  int             `json:"pageCount"`
	ReadPage   int             `json:"readPage"`
	Finished   bool            `json:"finished"`
	Reading    bool            `json:"reading"`
	InsertedAt time.Time       `json:"insertedAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type bookJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Year       json.RawMessage `json:"year,omitempty"`
	Author     json.RawMessage `json:"author,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	Publisher  json.RawMessage `json:"publisher,omitempty"`
	PageCount  int             `json:"pageCount"`
	ReadPage   int             `json:"readPage"`
	Finished   bool            `json:"finished"`
	Reading    bool            `json:"reading"`
	InsertedAt string          `json:"insertedAt"`
	UpdatedAt  string          `json:"updatedAt"`
}

func (b Book) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(bookJSON{
		ID:         b.ID,
		Name:       b.Name,
		Year:       b.Year,
		Author:     b.Author,
		Summary:    b.Summary,
		Publisher:  b.Publisher,
		PageCount:  b.PageCount,
		ReadPage:   b.ReadPage,
		Finished:   b.Finished,
		Reading:    b.Reading,
		InsertedAt: b.InsertedAt.UTC().Format(timestampLayout),
		UpdatedAt:  b.UpdatedAt.UTC().Format(timestampLayout),
	})
}

// BookInput is the full set of client-editable fields. Updates replace every
// one of them; there is no partial update.
type BookInput struct {
	Name      string          `json:"name"`
	Year      json.RawMessage `json:"year"`
	Author    json.RawMessage `json:"author"`
	Summary   json.RawMessage `json:"summary"`
	Publisher json.RawMessage `json:"publisher"`
	PageCount int             `json:"pageCount"`
	ReadPage  int             `json:"readPage"`
	Reading   bool            `json:"reading"`
}

// BookSummary is the listing projection.
type BookSummary struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Publisher json.RawMessage `json:"publisher,omitempty"`
}

// Filter narrows List. Zero-valued fields do not filter.
type Filter struct {
	Name     string
	Reading  *bool
	Finished *bool
}

// Validate checks the name before the page counts, so a request that is wrong
// in both ways reports the missing name.
func (in BookInput) Validate() error {
	if in.Name == "" {
		return ErrMissingName
	}
	if in.ReadPage > in.PageCount {
		return ErrReadPageExceedsPageCount
	}
	return nil
}

// Match reports whether b passes every set field of f.
func (f Filter) Match(b Book) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(b.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Reading != nil && b.Reading != *f.Reading {
		return false
	}
	if f.Finished != nil && b.Finished != *f.Finished {
		return false
	}
	return true
}

func newBook(id string, in BookInput, now time.Time) Book {
	b := Book{ID: id, InsertedAt: now}
	b.apply(in, now)
	return b
}

// apply overwrites every editable field and the derived ones. ID and
// InsertedAt are left alone.
func (b *Book) apply(in BookInput, now time.Time) {
	b.Name = in.Name
	b.Year = rawValue(in.Year)
	b.Author = rawValue(in.Author)
	b.Summary = rawValue(in.Summary)
	b.Publisher = rawValue(in.Publisher)
	b.PageCount = in.PageCount
	b.ReadPage = in.ReadPage
	b.Reading = in.Reading
	b.Finished = in.ReadPage == in.PageCount
	b.UpdatedAt = now
}

// rawValue copies m, treating JSON null like an absent field.
func rawValue(m json.RawMessage) json.RawMessage {
	if len(m) == 0 || bytes.Equal(bytes.TrimSpace(m), []byte("null")) {
		return nil
	}
	return slices.Clone(m)
}

func (b Book) clone() Book {
	b.Year = slices.Clone(b.Year)
	b.Author = slices.Clone(b.Author)
	b.Summary = slices.Clone(b.Summary)
	b.Publisher = slices.Clone(b.Publisher)
	return b
}

func (b Book) summary() BookSummary {
	return BookSummary{ID: b.ID, Name: b.Name, Publisher: slices.Clone(b.Publisher)}
}

// clock truncates to milliseconds so that every store reports the same
// precision.
func clock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
