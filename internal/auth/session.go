package auth

import "context"

// Session is the authenticated caller, carried on the request context.
type Session struct {
	UserID   int64
	Email    string
	Language string
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
