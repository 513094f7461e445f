package bookshelf

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"Bookshelf/pkg/kit"
)

const (
	maxBodyBytes = 1 << 20
	readyTimeout = 1 * time.Second

	paramBookID = "bookId"

	msgBookAdded   = "Book added"
	msgBookUpdated = "Book updated"
	msgBookDeleted = "Book deleted"

	msgAddFailed    = "Failed to add book"
	msgUpdateFailed = "Failed to update book"
	msgDeleteFailed = "Failed to delete book"

	msgBookNotFound = "Book not found"
)

type Server struct {
	Store Store
	Log   *zap.Logger
}

func (s *Server) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if err := kit.DecodeJSON(w, r, maxBodyBytes, &in); err != nil {
		kit.WriteFail(w, http.StatusBadRequest, msgAddFailed+". Invalid request payload")
		return
	}

	id, err := s.Store.Create(r.Context(), in)
	if err != nil {
		s.writeStoreError(w, r, msgAddFailed, err)
		return
	}

	kit.WriteSuccess(w, http.StatusCreated, msgBookAdded, map[string]string{"bookId": id})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	books, err := s.Store.List(r.Context(), parseFilter(r.URL.Query()))
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}

	kit.WriteSuccess(w, http.StatusOK, "", map[string]any{"books": books})
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	b, err := s.Store.Get(r.Context(), chi.URLParam(r, paramBookID))
	if errors.Is(err, ErrNotFound) {
		kit.WriteFail(w, http.StatusNotFound, msgBookNotFound)
		return
	}
	if err != nil {
		s.writeStoreError(w, r, "", err)
		return
	}

	kit.WriteSuccess(w, http.StatusOK, "", map[string]any{"book": b})
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var in BookInput
	if err := kit.DecodeJSON(w, r, maxBodyBytes, &in); err != nil {
		kit.WriteFail(w, http.StatusBadRequest, msgUpdateFailed+". Invalid request payload")
		return
	}

	if err := s.Store.Update(r.Context(), chi.URLParam(r, paramBookID), in); err != nil {
		s.writeStoreError(w, r, msgUpdateFailed, err)
		return
	}

	kit.WriteSuccess(w, http.StatusOK, msgBookUpdated, nil)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Delete(r.Context(), chi.URLParam(r, paramBookID)); err != nil {
		s.writeStoreError(w, r, msgDeleteFailed, err)
		return
	}

	kit.WriteSuccess(w, http.StatusOK, msgBookDeleted, nil)
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.log().Warn("readyz failed", zap.Error(err))
		kit.WriteFail(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// writeStoreError maps store errors onto the envelope. prefix names the
// failed action in client-facing messages.
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, prefix string, err error) {
	switch {
	case errors.Is(err, ErrMissingName):
		kit.WriteFail(w, http.StatusBadRequest, prefix+". Please provide the book name")
	case errors.Is(err, ErrReadPageExceedsPageCount):
		kit.WriteFail(w, http.StatusBadRequest, prefix+". readPage cannot be greater than pageCount")
	case errors.Is(err, ErrNotFound):
		kit.WriteFail(w, http.StatusNotFound, prefix+". Id not found")
	default:
		s.log().Error("book store failed",
			zap.Error(err),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("book_id", chi.URLParam(r, paramBookID)),
		)
		kit.WriteServerError(w)
	}
}

// parseFilter reads name, reading and finished. A present flag is true only
// when it equals "1".
func parseFilter(q url.Values) Filter {
	return Filter{
		Name:     q.Get("name"),
		Reading:  flag(q, "reading"),
		Finished: flag(q, "finished"),
	}
}

func flag(q url.Values, key string) *bool {
	if !q.Has(key) {
		return nil
	}
	v := q.Get(key) == "1"
	return &v
}
