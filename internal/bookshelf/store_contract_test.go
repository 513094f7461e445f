package bookshelf

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func input(name string, pageCount, readPage int) BookInput {
	return BookInput{
		Name:      name,
		Year:      json.RawMessage(`2010`),
		Author:    json.RawMessage(`"John Doe"`),
		Summary:   json.RawMessage(`"Lorem ipsum"`),
		Publisher: json.RawMessage(`"Dicoding Indonesia"`),
		PageCount: pageCount,
		ReadPage:  readPage,
	}
}

func mustCreate(t *testing.T, s Store, in BookInput) string {
	t.Helper()
	id, err := s.Create(context.Background(), in)
	require.NoError(t, err)
	return id
}

func ids(list []BookSummary) []string {
	out := make([]string, 0, len(list))
	for _, b := range list {
		out = append(out, b.ID)
	}
	return out
}

// runStoreContract exercises the behaviour every Store implementation shares.
// newStore must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create derives finished and timestamps", func(t *testing.T) {
		s := newStore(t)

		id := mustCreate(t, s, input("A", 100, 100))
		assert.Len(t, id, idLength)

		b, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, b.ID)
		assert.Equal(t, "A", b.Name)
		assert.True(t, b.Finished)
		assert.False(t, b.Reading)
		assert.Equal(t, 100, b.PageCount)
		assert.Equal(t, 100, b.ReadPage)
		assert.JSONEq(t, `2010`, string(b.Year))
		assert.JSONEq(t, `"John Doe"`, string(b.Author))
		assert.JSONEq(t, `"Lorem ipsum"`, string(b.Summary))
		assert.JSONEq(t, `"Dicoding Indonesia"`, string(b.Publisher))
		assert.False(t, b.InsertedAt.IsZero())
		assert.True(t, b.InsertedAt.Equal(b.UpdatedAt))

		id = mustCreate(t, s, input("B", 100, 20))
		b, err = s.Get(ctx, id)
		require.NoError(t, err)
		assert.False(t, b.Finished)
	})

	t.Run("create keeps absent fields absent", func(t *testing.T) {
		s := newStore(t)

		id := mustCreate(t, s, BookInput{Name: "Bare", Reading: true})
		b, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, b.Year)
		assert.Nil(t, b.Author)
		assert.Nil(t, b.Summary)
		assert.Nil(t, b.Publisher)
		assert.True(t, b.Reading)
		assert.True(t, b.Finished, "0 of 0 pages read")
	})

	t.Run("free-form fields are kept byte for byte", func(t *testing.T) {
		s := newStore(t)

		in := BookInput{
			Name:      "Verbatim",
			Year:      json.RawMessage(`1e3`),
			Author:    json.RawMessage(`{"last": "Dré", "first": "Ann"}`),
			Summary:   json.RawMessage(`[1, 1.50, "x"]`),
			Publisher: json.RawMessage(`"caf\u00e9"`),
		}
		id := mustCreate(t, s, in)

		b, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, string(in.Year), string(b.Year))
		assert.Equal(t, string(in.Author), string(b.Author))
		assert.Equal(t, string(in.Summary), string(b.Summary))
		assert.Equal(t, string(in.Publisher), string(b.Publisher))

		list, err := s.List(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, string(in.Publisher), string(list[0].Publisher))
	})

	t.Run("create rejects invalid input before mutation", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Create(ctx, input("B", 100, 150))
		assert.ErrorIs(t, err, ErrReadPageExceedsPageCount)
		assert.ErrorIs(t, err, ErrValidation)

		_, err = s.Create(ctx, BookInput{PageCount: 10, ReadPage: 0})
		assert.ErrorIs(t, err, ErrMissingName)
		assert.ErrorIs(t, err, ErrValidation)

		_, err = s.Create(ctx, BookInput{PageCount: 10, ReadPage: 20})
		assert.ErrorIs(t, err, ErrMissingName, "name is checked first")

		list, err := s.List(ctx, Filter{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("list projects in insertion order", func(t *testing.T) {
		s := newStore(t)

		first := mustCreate(t, s, input("First", 10, 1))
		second := mustCreate(t, s, input("Second", 10, 2))
		third := mustCreate(t, s, input("Third", 10, 3))
		require.NoError(t, s.Delete(ctx, second))
		fourth := mustCreate(t, s, input("Fourth", 10, 4))

		list, err := s.List(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{first, third, fourth}, ids(list))
		assert.Equal(t, "First", list[0].Name)
		assert.JSONEq(t, `"Dicoding Indonesia"`, string(list[0].Publisher))
	})

	t.Run("list filters combine with AND", func(t *testing.T) {
		s := newStore(t)

		readingDone := input("Dicoding Go", 50, 50)
		readingDone.Reading = true
		a := mustCreate(t, s, readingDone)

		readingOpen := input("Clean Code", 50, 10)
		readingOpen.Reading = true
		b := mustCreate(t, s, readingOpen)

		idleDone := input("dicoding academy", 30, 30)
		c := mustCreate(t, s, idleDone)

		idleOpen := input("Refactoring", 30, 0)
		d := mustCreate(t, s, idleOpen)

		tests := []struct {
			name   string
			filter Filter
			want   []string
		}{
			{name: "none", filter: Filter{}, want: []string{a, b, c, d}},
			{name: "name is case-insensitive substring", filter: Filter{Name: "DICODING"}, want: []string{a, c}},
			{name: "reading", filter: Filter{Reading: ptr(true)}, want: []string{a, b}},
			{name: "not reading", filter: Filter{Reading: ptr(false)}, want: []string{c, d}},
			{name: "finished", filter: Filter{Finished: ptr(true)}, want: []string{a, c}},
			{name: "unfinished", filter: Filter{Finished: ptr(false)}, want: []string{b, d}},
			{name: "name and reading", filter: Filter{Name: "dicoding", Reading: ptr(false)}, want: []string{c}},
			{name: "all three", filter: Filter{Name: "code", Reading: ptr(true), Finished: ptr(false)}, want: []string{b}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				list, err := s.List(ctx, tt.filter)
				require.NoError(t, err)
				assert.Equal(t, tt.want, ids(list))
			})
		}

		list, err := s.List(ctx, Filter{Name: "no such book"})
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("get unknown id", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Get(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update replaces every editable field", func(t *testing.T) {
		s := newStore(t)

		id := mustCreate(t, s, input("Old", 100, 100))
		before, err := s.Get(ctx, id)
		require.NoError(t, err)

		err = s.Update(ctx, id, BookInput{
			Name:      "New",
			Publisher: json.RawMessage(`"Other Press"`),
			PageCount: 200,
			ReadPage:  50,
			Reading:   true,
		})
		require.NoError(t, err)

		after, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, after.ID)
		assert.Equal(t, "New", after.Name)
		assert.Nil(t, after.Year, "omitted fields are cleared, not merged")
		assert.Nil(t, after.Author)
		assert.Nil(t, after.Summary)
		assert.JSONEq(t, `"Other Press"`, string(after.Publisher))
		assert.Equal(t, 200, after.PageCount)
		assert.Equal(t, 50, after.ReadPage)
		assert.True(t, after.Reading)
		assert.False(t, after.Finished)
		assert.True(t, before.InsertedAt.Equal(after.InsertedAt))
		assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))

		require.NoError(t, s.Update(ctx, id, input("New", 200, 200)))
		after, err = s.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, after.Finished)
	})

	t.Run("update checks name then pages then existence", func(t *testing.T) {
		s := newStore(t)

		id := mustCreate(t, s, input("Keep", 10, 5))

		err := s.Update(ctx, "missing", BookInput{PageCount: 1, ReadPage: 2})
		assert.ErrorIs(t, err, ErrMissingName)

		err = s.Update(ctx, "missing", input("X", 1, 2))
		assert.ErrorIs(t, err, ErrReadPageExceedsPageCount)

		err = s.Update(ctx, "missing", input("X", 2, 1))
		assert.ErrorIs(t, err, ErrNotFound)

		err = s.Update(ctx, id, input("Changed", 1, 2))
		assert.ErrorIs(t, err, ErrReadPageExceedsPageCount)

		b, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Keep", b.Name, "rejected update leaves the record untouched")
		assert.Equal(t, 5, b.ReadPage)
	})

	t.Run("delete removes exactly one", func(t *testing.T) {
		s := newStore(t)

		keep := mustCreate(t, s, input("Keep", 10, 1))
		drop := mustCreate(t, s, input("Drop", 10, 1))

		require.NoError(t, s.Delete(ctx, drop))

		_, err := s.Get(ctx, drop)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, drop), ErrNotFound)

		list, err := s.List(ctx, Filter{})
		require.NoError(t, err)
		assert.Equal(t, []string{keep}, ids(list))
	})

	t.Run("ids are unique across deletes", func(t *testing.T) {
		s := newStore(t)

		seen := make(map[string]struct{})
		for i := range 40 {
			id := mustCreate(t, s, input("Book", 10, 1))
			_, dup := seen[id]
			require.False(t, dup, "id %q issued twice", id)
			seen[id] = struct{}{}

			if i%2 == 0 {
				require.NoError(t, s.Delete(ctx, id))
			}
		}
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(ctx))
	})
}
