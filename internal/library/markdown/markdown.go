// Package markdown renders user written markdown to HTML
package markdown

import (
	"regexp"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var (
	// blankLines collapses runs of empty lines in previews
	blankLines = regexp.MustCompile(`\s+`)
)

// ToHTML renders md to HTML.
// Raw HTML in md is dropped and links open in a new tab with nofollow.
func ToHTML(md string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags |
			html.HrefTargetBlank |
			html.SkipHTML |
			html.Safelink |
			html.NofollowLinks,
	})

	return strings.TrimSpace(string(markdown.ToHTML([]byte(md), p, renderer)))
}

// Truncate truncate string to n runes
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}

	var count int
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}

	return s
}

// Preview returns the first n runes of md on a single line
func Preview(md string, n int) string {
	return Truncate(strings.TrimSpace(blankLines.ReplaceAllString(md, " ")), n)
}
