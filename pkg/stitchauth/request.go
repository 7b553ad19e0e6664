package stitchauth

import "net/http"

// Request describes one call to the server. It is a plain value; copy and
// modify it freely.
type Request struct {
	Method string

	// Path is relative to Config.BaseURL and may carry a query string.
	Path string

	Headers map[string]string

	// Body is sent as is. Document, when set, is JSON encoded instead.
	Body     []byte
	Document any

	// UseRefreshToken authenticates with the refresh token instead of the
	// access token.
	UseRefreshToken bool

	// SkipRefreshOnFailure turns off the single refresh and retry that an
	// InvalidSession error normally triggers.
	SkipRefreshOnFailure bool
}

// ShouldRefreshOnFailure reports whether an InvalidSession error may be
// answered with a refresh and one retry.
func (r Request) ShouldRefreshOnFailure() bool {
	return !r.SkipRefreshOnFailure
}

// Response is a 2xx reply with its body fully read.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}
