// Package ctxutil carries request-scoped identity and language on a context.
// It has no internal dependencies besides domain so any layer can import it.
package ctxutil

import (
	"context"

	"travel_admin/internal/domain"
)

type actorKey struct{}
type languageKey struct{}

func WithActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFromContext returns the request actor. ok is false for anonymous requests.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(domain.Actor)
	return a, ok
}

func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, languageKey{}, lang)
}

// LanguageFromContext returns the negotiated language or "".
func LanguageFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(languageKey{}).(string); ok {
		return v
	}
	return ""
}
