package apiutil

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/codr1/Playfield/internal/models"
)

type actorKey struct{}

func ContextWithActor(ctx context.Context, actor models.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFromContext(ctx context.Context) (models.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(models.Actor)
	return actor, ok
}

// RequireActor returns the request's actor or an error for anonymous callers.
func RequireActor(r *http.Request) (models.Actor, error) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		return models.Actor{}, HandlerError{Status: http.StatusUnauthorized, Message: "X-Player-ID header is required"}
	}
	return actor, nil
}

// ParseTimestamp accepts RFC 3339 timestamps and returns them in UTC.
func ParseTimestamp(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, FieldError{Field: field, Reason: "is required"}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, FieldError{Field: field, Reason: "must be an RFC 3339 timestamp"}
	}
	return parsed.UTC(), nil
}

// WindowFromQuery reads a [start, end) window from two query parameters.
func WindowFromQuery(r *http.Request, startKey, endKey string) (models.Window, error) {
	query := r.URL.Query()
	start, err := ParseTimestamp(query.Get(startKey), startKey)
	if err != nil {
		return models.Window{}, err
	}
	end, err := ParseTimestamp(query.Get(endKey), endKey)
	if err != nil {
		return models.Window{}, err
	}
	window := models.NewWindow(start, end)
	if !window.Valid() {
		return models.Window{}, FieldError{Field: endKey, Reason: "must be after " + startKey}
	}
	return window, nil
}

// PathID returns a required path value.
func PathID(r *http.Request, name string) (string, error) {
	id := strings.TrimSpace(r.PathValue(name))
	if id == "" {
		return "", FieldError{Field: name, Reason: "is required"}
	}
	return id, nil
}
