// Package richtext turns CMS rich-text blocks into a minimal HTML email body.
package richtext

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/quantonganh/newsroom"
)

const (
	spanSeparator  = " "
	blockSeparator = "<br/><br/>"
	shellOpen      = "<html><body>"
	shellClose     = "</body></html>"
)

// Renderer renders blocks to HTML. The zero value does not escape text.
type Renderer struct {
	policy *bluemonday.Policy
}

// Option configures a Renderer
type Option func(*Renderer)

// WithSanitizer runs the rendered body through the bluemonday UGC policy
func WithSanitizer() Option {
	return func(r *Renderer) {
		r.policy = bluemonday.UGCPolicy()
	}
}

// NewRenderer returns new renderer
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render joins each block's span texts with a space, joins blocks with a
// double line break and wraps the result in the HTML shell.
func (r *Renderer) Render(blocks []newsroom.Block) string {
	body := Body(blocks)
	if r != nil && r.policy != nil {
		body = r.policy.Sanitize(body)
	}

	return shellOpen + body + shellClose
}

// Body returns the rendered blocks without the HTML shell
func Body(blocks []newsroom.Block) string {
	parts := make([]string, len(blocks))
	for i, block := range blocks {
		texts := make([]string, len(block.Children))
		for j, span := range block.Children {
			texts[j] = span.Text
		}
		parts[i] = strings.Join(texts, spanSeparator)
	}

	return strings.Join(parts, blockSeparator)
}
