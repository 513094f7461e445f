package bookshelf

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"

	driverPgx       = "pgx"
	dialectPostgres = "postgres"

	tableBooks     = "books"
	tableBookIDs   = "book_ids"
	colSeq         = "seq"
	colID          = "id"
	colName        = "name"
	colYear        = "year"
	colAuthor      = "author"
	colSummary     = "summary"
	colPublisher   = "publisher"
	colPageCount   = "page_count"
	colReadPage    = "read_page"
	colReading     = "reading"
	colFinished    = "finished"
	colInsertedAt  = "inserted_at"
	colUpdatedAt   = "updated_at"
	nameSubstrExpr = "strpos(lower(?), lower(?)) > 0"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS books (
		seq         BIGSERIAL   NOT NULL UNIQUE,
		id          TEXT        PRIMARY KEY,
		name        TEXT        NOT NULL,
		year        JSON,
		author      JSON,
		summary     JSON,
		publisher   JSON,
		page_count  INTEGER     NOT NULL,
		read_page   INTEGER     NOT NULL,
		reading     BOOLEAN     NOT NULL,
		finished    BOOLEAN     NOT NULL,
		inserted_at TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL,
		CONSTRAINT books_read_page_le_page_count CHECK (read_page <= page_count)
	)`,
	`CREATE TABLE IF NOT EXISTS book_ids (
		id TEXT PRIMARY KEY
	)`,
}

// PostgresStore keeps books in the books table; seq preserves insertion
// order. Issued ids are also recorded in book_ids so that a deleted id is
// never handed out again.
type PostgresStore struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper

	now   func() time.Time
	newID IDFunc
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		dialect: goqu.Dialect(dialectPostgres),
		now:     clock,
		newID:   NewID,
	}
}

// OpenPostgres opens a pgx-backed pool and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverPgx, dsn)
	if err != nil {
		return nil, err
	}
	if err := withTimeout(ctx, pingTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
			_, err := s.db.ExecContext(ctx, stmt)
			return err
		})
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.db.PingContext)
}

func (s *PostgresStore) Create(ctx context.Context, in BookInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	now := s.now()
	for range maxIDAttempts {
		id, err := s.newID()
		if err != nil {
			return "", err
		}

		err = s.insert(ctx, newBook(id, in, now))
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return "", err
		}
		return id, nil
	}
	return "", errIDExhausted
}

func (s *PostgresStore) insert(ctx context.Context, b Book) error {
	reserve, reserveArgs, err := s.dialect.Insert(tableBookIDs).
		Rows(goqu.Record{colID: b.ID}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}

	record := editableRecord(b)
	record[colID] = b.ID
	record[colInsertedAt] = b.InsertedAt
	insert, insertArgs, err := s.dialect.Insert(tableBooks).
		Rows(record).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}

	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, reserve, reserveArgs...); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insert, insertArgs...); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]BookSummary, error) {
	ds := s.dialect.From(tableBooks).
		Select(colID, colName, colPublisher).
		Order(goqu.I(colSeq).Asc()).
		Prepared(true)

	if f.Name != "" {
		ds = ds.Where(goqu.L(nameSubstrExpr, goqu.C(colName), f.Name))
	}
	if f.Reading != nil {
		ds = ds.Where(goqu.C(colReading).Eq(*f.Reading))
	}
	if f.Finished != nil {
		ds = ds.Where(goqu.C(colFinished).Eq(*f.Finished))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []summaryRow
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.SelectContext(ctx, &rows, query, args...)
	})
	if err != nil {
		return nil, err
	}

	out := make([]BookSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, BookSummary{ID: r.ID, Name: r.Name, Publisher: json.RawMessage(r.Publisher)})
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Book, error) {
	query, args, err := s.dialect.From(tableBooks).
		Select(colID, colName, colYear, colAuthor, colSummary, colPublisher,
			colPageCount, colReadPage, colReading, colFinished, colInsertedAt, colUpdatedAt).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return Book{}, err
	}

	var row bookRow
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.GetContext(ctx, &row, query, args...)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	if err != nil {
		return Book{}, err
	}
	return row.book(), nil
}

func (s *PostgresStore) Update(ctx context.Context, id string, in BookInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	var b Book
	b.apply(in, s.now())

	query, args, err := s.dialect.Update(tableBooks).
		Set(editableRecord(b)).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}
	return s.execOne(ctx, query, args)
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	query, args, err := s.dialect.Delete(tableBooks).
		Where(goqu.C(colID).Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return err
	}
	return s.execOne(ctx, query, args)
}

// execOne runs a statement addressed by id and maps "no row touched" to
// ErrNotFound.
func (s *PostgresStore) execOne(ctx context.Context, query string, args []any) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func editableRecord(b Book) goqu.Record {
	return goqu.Record{
		colName:      b.Name,
		colYear:      jsonParam(b.Year),
		colAuthor:    jsonParam(b.Author),
		colSummary:   jsonParam(b.Summary),
		colPublisher: jsonParam(b.Publisher),
		colPageCount: b.PageCount,
		colReadPage:  b.ReadPage,
		colReading:   b.Reading,
		colFinished:  b.Finished,
		colUpdatedAt: b.UpdatedAt,
	}
}

// jsonParam renders an absent field as SQL NULL.
func jsonParam(m json.RawMessage) any {
	if len(m) == 0 {
		return nil
	}
	return string(m)
}

// jsonColumn scans a nullable json column.
type jsonColumn []byte

func (j *jsonColumn) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*j = nil
	case []byte:
		*j = slices.Clone(v)
	case string:
		*j = jsonColumn(v)
	default:
		return fmt.Errorf("jsonColumn: unsupported type %T", src)
	}
	return nil
}

type summaryRow struct {
	ID        string     `db:"id"`
	Name      string     `db:"name"`
	Publisher jsonColumn `db:"publisher"`
}

type bookRow struct {
	ID         string     `db:"id"`
	Name       string     `db:"name"`
	Year       jsonColumn `db:"year"`
	Author     jsonColumn `db:"author"`
	Summary    jsonColumn `db:"summary"`
	Publisher  jsonColumn `db:"publisher"`
	PageCount  int        `db:"page_count"`
	ReadPage   int        `db:"read_page"`
	Reading    bool       `db:"reading"`
	Finished   bool       `db:"finished"`
	InsertedAt time.Time  `db:"inserted_at"`
	UpdatedAt  time.Time  `db:"updated_at"`
}

func (r bookRow) book() Book {
	return Book{
		ID:         r.ID,
		Name:       r.Name,
		Year:       json.RawMessage(r.Year),
		Author:     json.RawMessage(r.Author),
		Summary:    json.RawMessage(r.Summary),
		Publisher:  json.RawMessage(r.Publisher),
		PageCount:  r.PageCount,
		ReadPage:   r.ReadPage,
		Reading:    r.Reading,
		Finished:   r.Finished,
		InsertedAt: r.InsertedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
