package domain

import "net/url"

// FileRequest is the result of mapping a request URL onto the file system.
type FileRequest struct {
	// URL is the canonical module URL without query string.
	URL string
	// Path is the absolute source file path.
	Path string
	// Kind is the output kind being requested, e.g. ".js" or ".css".
	Kind string
	// Proxy is set when the URL asks for a JS wrapper around a non-JS file.
	Proxy bool
	// SourceMap is set when the URL asks for the source map of Kind.
	SourceMap bool
}

// ModuleRequest is a transport-independent request for one module.
type ModuleRequest struct {
	URL         string
	Query       url.Values
	IfNoneMatch string
	Mode        Mode
}

// CacheBusting reports whether the request carries the hot update cache-busting parameter.
func (r ModuleRequest) CacheBusting() bool {
	return r.Query.Has(CacheBustParam)
}

// ModuleResponse is a framed module ready to be written by a transport.
type ModuleResponse struct {
	Status      int
	ContentType string
	ETag        string
	Body        []byte
}
