// Package markdown renders asset descriptions written in Markdown.
package markdown

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var md = goldmark.New()

// Render converts a description to HTML. Raw HTML in the source is not
// passed through.
func Render(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	// #nosec G203 -- goldmark escapes raw HTML unless WithUnsafe is set
	return template.HTML(buf.String()), nil
}

// PlainText returns the text content of a description with Markdown syntax
// removed, collapsed to a single line.
func PlainText(src string) string {
	body := []byte(src)
	root := md.Parser().Parse(text.NewReader(body))

	var b strings.Builder
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Text:
			b.Write(node.Segment.Value(body))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*gmast.Text); ok {
					b.Write(t.Segment.Value(body))
				}
			}
			return gmast.WalkSkipChildren, nil
		case *gmast.Paragraph, *gmast.Heading:
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
		}
		return gmast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}
