package knowledge

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// htmlTagPattern detects the block and inline tags rich-text editors emit.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|u|strong|em|a|img|ul|ol|li|h[1-6]|blockquote|pre|code|table|tr|td)[\s>/]`)

// toMarkdown converts HTML note content to Markdown. Plain text is returned
// unchanged, as is content that fails to convert.
func toMarkdown(s string) string {
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}

	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(md)
}
