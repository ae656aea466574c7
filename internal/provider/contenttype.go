package provider

import "context"

type contentTypeCtxKey struct{}

// WithContentType attaches the client's inbound Content-Type header to ctx,
// so a subsequent OpenFile call opening a PUT can pass it through to the
// backend (spec §6) instead of falling back to whatever content type, if
// any, was previously cached for the path.
func WithContentType(ctx context.Context, contentType string) context.Context {
	return context.WithValue(ctx, contentTypeCtxKey{}, contentType)
}

func contentTypeFromContext(ctx context.Context) string {
	ct, _ := ctx.Value(contentTypeCtxKey{}).(string)
	return ct
}
