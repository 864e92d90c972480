// Package api holds the small request/response helpers shared by the
// resource handlers. All success bodies echo the affected row(s); all error
// bodies are {"message": "..."} with a static English string.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Message writes the standard error body.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"message": msg})
}

// Page reads page/limit query params with the given defaults and returns
// (page, limit, offset). Values below 1 fall back to the defaults.
func Page(r *http.Request, defLimit int) (int, int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = defLimit
	}
	return page, limit, (page - 1) * limit
}
