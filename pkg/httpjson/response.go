// Package httpjson writes JSON response bodies.
package httpjson

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// ContentType is the media type of every body written by this package.
const ContentType = "application/json; charset=utf-8"

// ErrorBody is the body of every error response: {"error": "..."}.
type ErrorBody struct {
	Error string `json:"error"`
}

// Encode marshals v the way Write sends it. HTML characters are not
// escaped so source files travel verbatim.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteBody writes an already encoded JSON body.
func WriteBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)
	w.Write(body)
}

// Write encodes v and writes it with the given status.
// An encoding failure becomes a 500 error body.
func Write(w http.ResponseWriter, status int, v any) error {
	body, err := Encode(v)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return err
	}
	WriteBody(w, status, body)
	return nil
}

// WriteError writes {"error": message} with the given status.
func WriteError(w http.ResponseWriter, status int, message string) {
	body, _ := Encode(ErrorBody{Error: message})
	WriteBody(w, status, body)
}
