package middleware

import (
	"net/http"

	"github.com/unrolled/secure"
)

// SecureOptions returns the security headers applied to every response.
// The CSP allows the bundled client's own scripts and styles only.
func SecureOptions(isDevelopment bool) secure.Options {
	return secure.Options{
		IsDevelopment:         isDevelopment,
		ContentTypeNosniff:    true,
		FrameDeny:             true,
		ContentSecurityPolicy: "default-src 'self'; style-src 'self' 'unsafe-inline'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}
}

// Secure returns a middleware that adds security headers.
func Secure(opts secure.Options) func(http.Handler) http.Handler {
	return secure.New(opts).Handler
}
