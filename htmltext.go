package autostudent

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "ul": {}, "ol": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"tr": {}, "table": {}, "section": {}, "article": {}, "blockquote": {},
}

var skipTags = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "head": {}, "title": {},
}

// ExtractText strips markup from an HTML document and returns readable plain
// text, with block-level boundaries rendered as newlines. Script and style
// content is discarded.
func ExtractText(r io.Reader) (string, error) {
	tokenizer := html.NewTokenizer(r)

	var b strings.Builder
	skipDepth := 0
	var last byte

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return collapseBlankLines(b.String()), nil
			}
			return "", tokenizer.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if _, skip := skipTags[tag]; skip && tt == html.StartTagToken {
				skipDepth++
			}
			if _, block := blockTags[tag]; block {
				b.WriteByte('\n')
				last = '\n'
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if _, skip := skipTags[tag]; skip && skipDepth > 0 {
				skipDepth--
			}
			if _, block := blockTags[tag]; block {
				b.WriteByte('\n')
				last = '\n'
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			if text == "" {
				continue
			}
			if b.Len() > 0 && last != '\n' {
				b.WriteByte(' ')
			}
			b.WriteString(text)
			last = text[len(text)-1]
		}
	}
}

// ExtractTextString is ExtractText over an in-memory document. Malformed
// markup degrades to the raw input rather than an error; the tokenizer
// recovers from almost anything, so this path is rarely taken.
func ExtractTextString(doc string) string {
	text, err := ExtractText(strings.NewReader(doc))
	if err != nil {
		return strings.TrimSpace(doc)
	}
	return text
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
