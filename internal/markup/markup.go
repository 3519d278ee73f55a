// Package markup renders emphasis for the notification body. Pushover
// accepts a small HTML subset when the html flag is set; otherwise the body
// is shown verbatim.
package markup

import "golang.org/x/net/html"

// Markup decorates digest text for one content type.
type Markup interface {
	Bold(s string) string
	Italic(s string) string
	// Text escapes untrusted text (titles, course names) for the content type.
	Text(s string) string
	HTML() bool
}

// For returns the HTML renderer when enabled, the plain one otherwise.
func For(htmlEnabled bool) Markup {
	if htmlEnabled {
		return HTML{}
	}
	return Plain{}
}

type Plain struct{}

func (Plain) Bold(s string) string   { return s }
func (Plain) Italic(s string) string { return s }
func (Plain) Text(s string) string   { return s }
func (Plain) HTML() bool             { return false }

type HTML struct{}

func (HTML) Bold(s string) string   { return "<b>" + s + "</b>" }
func (HTML) Italic(s string) string { return "<i>" + s + "</i>" }
func (HTML) Text(s string) string   { return html.EscapeString(s) }
func (HTML) HTML() bool             { return true }
