package utils

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func StrPtr(s string) *string {
	return &s
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func IntPtr(i int) *int {
	return &i
}

// IsUUID reports whether id is a well-formed UUID, so malformed ids can be
// treated as "not found" before they reach Postgres.
func IsUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Paginate turns optional skip/first arguments into a bounded offset and limit.
func Paginate(skip, first *int) (offset, limit int) {
	limit = DefaultPageSize
	if first != nil && *first > 0 {
		limit = *first
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if skip != nil && *skip > 0 {
		offset = *skip
	}
	return offset, limit
}

type gqlErrorBody struct {
	Errors []gqlErrorEntry `json:"errors"`
}

type gqlErrorEntry struct {
	Message    string            `json:"message"`
	Extensions map[string]string `json:"extensions,omitempty"`
}

// WriteGraphQLError writes a transport-level failure in the GraphQL response shape.
func WriteGraphQLError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(gqlErrorBody{
		Errors: []gqlErrorEntry{{Message: message, Extensions: map[string]string{"code": code}}},
	})
}
