// Package bookclient is a typed client for the bookshelf HTTP API.
package bookclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"Bookshelf/internal/bookshelf"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrNotFound    = errors.New("bookshelf: book not found")
	ErrRejected    = errors.New("bookshelf: request rejected")
	ErrBadStatus   = errors.New("bookshelf: unexpected status")
	ErrUnavailable = errors.New("bookshelf: unavailable")
)

const defaultTimeout = 3 * time.Second

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: defaultTimeout},
	}
}

type envelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Data    jsoniter.RawMessage `json:"data"`
}

func (c *Client) Create(ctx context.Context, in bookshelf.BookInput) (string, error) {
	var out struct {
		BookID string `json:"bookId"`
	}
	if err := c.do(ctx, http.MethodPost, "/books", in, http.StatusCreated, &out); err != nil {
		return "", err
	}
	return out.BookID, nil
}

func (c *Client) List(ctx context.Context, f bookshelf.Filter) ([]bookshelf.BookSummary, error) {
	q := url.Values{}
	if f.Name != "" {
		q.Set("name", f.Name)
	}
	if f.Reading != nil {
		q.Set("reading", flag(*f.Reading))
	}
	if f.Finished != nil {
		q.Set("finished", flag(*f.Finished))
	}

	path := "/books"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out struct {
		Books []bookshelf.BookSummary `json:"books"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out.Books, nil
}

func (c *Client) Get(ctx context.Context, id string) (bookshelf.Book, error) {
	var out struct {
		Book bookshelf.Book `json:"book"`
	}
	if err := c.do(ctx, http.MethodGet, "/books/"+url.PathEscape(id), nil, http.StatusOK, &out); err != nil {
		return bookshelf.Book{}, err
	}
	return out.Book, nil
}

func (c *Client) Update(ctx context.Context, id string, in bookshelf.BookInput) error {
	return c.do(ctx, http.MethodPut, "/books/"+url.PathEscape(id), in, http.StatusOK, nil)
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/books/"+url.PathEscape(id), nil, http.StatusOK, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: status=%d: %w", ErrBadStatus, resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode == want:
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, env.Message)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrRejected, env.Message)
	default:
		return fmt.Errorf("%w: status=%d", ErrBadStatus, resp.StatusCode)
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

func flag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
