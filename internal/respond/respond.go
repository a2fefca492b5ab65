// Package respond holds the small response helpers shared by middleware
// and handlers.
package respond

import (
	"encoding/json"
	"log"
	"mime"
	"net/http"
	"strings"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("respond: encode: %v", err)
	}
}

// Error writes {"error": msg}.
func Error(w http.ResponseWriter, code int, msg string) {
	JSON(w, code, map[string]any{"error": msg})
}

// WantsJSON reports whether the client asked for, or sent, JSON.
func WantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return IsJSONBody(r)
}

// IsJSONBody reports whether the request body is JSON.
func IsJSONBody(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	return err == nil && mt == "application/json"
}
