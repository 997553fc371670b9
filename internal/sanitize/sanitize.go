// Package sanitize processes user-supplied text before it is stored or rendered.
package sanitize

import "html"

// Sanitizer transforms untrusted input.
type Sanitizer interface {
	Sanitize(s string) string
}

// HTMLEscape escapes <, >, &, ' and " so stored text renders as text.
type HTMLEscape struct{}

// Sanitize implements Sanitizer.
func (HTMLEscape) Sanitize(s string) string { return html.EscapeString(s) }

// Passthrough returns input unchanged. It models an outdated component with no filtering.
type Passthrough struct{}

// Sanitize implements Sanitizer.
func (Passthrough) Sanitize(s string) string { return s }

// For returns HTMLEscape when secure, Passthrough otherwise.
func For(secure bool) Sanitizer {
	if secure {
		return HTMLEscape{}
	}
	return Passthrough{}
}
