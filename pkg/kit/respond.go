package kit

import (
	"io"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteSuccess(w http.ResponseWriter, status int, msg string, data any) {
	WriteJSON(w, status, Envelope{Status: StatusSuccess, Message: msg, Data: data})
}

// WriteFail reports a client error (4xx).
func WriteFail(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Envelope{Status: StatusFail, Message: msg})
}

// WriteServerError reports a 500 without leaking the cause.
func WriteServerError(w http.ResponseWriter) {
	WriteJSON(w, http.StatusInternalServerError, Envelope{Status: StatusError, Message: "server error"})
}

// DecodeJSON reads at most maxBytes of the body and decodes exactly one
// JSON value into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}
