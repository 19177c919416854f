package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

type contextKey string

const contextIdentityKey contextKey = "identity"

// identity is the authenticated caller extracted from a session token.
type identity struct {
	UserID int
	Role   string
}

func identityFromContext(ctx context.Context) (identity, bool) {
	id, ok := ctx.Value(contextIdentityKey).(identity)
	return id, ok
}

func withIdentity(ctx context.Context, id identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, id)
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse acknowledges a state-changing request.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Msg     string `json:"msg,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
