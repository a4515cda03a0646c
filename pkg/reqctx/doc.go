// Package reqctx carries request-scoped values through context.Context.
//
// The HTTP middleware sets RequestMeta on every request and, for
// authenticated requests, the session and resolved profile. Services read
// them through the typed getters; context keys are unexported.
package reqctx
