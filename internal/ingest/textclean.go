// Text cleaning for ingest pre-processing, adapted from the teacher's
// pkg/vector text-cleaning pipeline: strip HTML/XML tags, drop emoji and
// control characters, collapse whitespace. The same three-step pipeline,
// now sitting ahead of chunking instead of ahead of a GGUF embedder.
package ingest

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

var stripPolicy = bluemonday.StripTagsPolicy()

// CleanText runs the cleaning pipeline on raw ingest input:
//  1. Strip HTML/XML tags, inserting spaces between adjacent text nodes
//  2. Remove emoji and non-printable/control characters
//  3. Collapse whitespace and trim
func CleanText(text string) string {
	text = stripHTMLWithSpaces(text)
	text = removeNonPrintable(text)
	return collapseWhitespace(text)
}

var skipTags = map[string]bool{"script": true, "style": true, "head": true}

func stripHTMLWithSpaces(text string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(text))
	var b strings.Builder
	b.Grow(len(text))
	depth := 0
	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			break
		}
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			if skipTags[string(name)] {
				depth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if skipTags[string(name)] && depth > 0 {
				depth--
			}
		case html.TextToken:
			if depth > 0 {
				continue
			}
			t := string(tokenizer.Text())
			if strings.TrimSpace(t) != "" {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(t)
			}
		}
	}
	return b.String()
}

func removeNonPrintable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if keepRune(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func keepRune(r rune) bool {
	if r == '\n' || r == '\r' || r == '\t' {
		return true
	}
	if unicode.Is(unicode.Cc, r) {
		return false
	}
	if r >= 0xFE00 && r <= 0xFE1F {
		return false
	}
	if r >= 0xD800 && r <= 0xDFFF {
		return false
	}
	if r >= 0xE000 && r <= 0xF8FF {
		return false
	}
	if r >= 0xF0000 {
		return false
	}
	if (r >= 0x1F600 && r <= 0x1F64F) ||
		(r >= 0x1F300 && r <= 0x1F5FF) ||
		(r >= 0x1F680 && r <= 0x1F6FF) ||
		(r >= 0x1F900 && r <= 0x1F9FF) ||
		(r >= 0x1FA00 && r <= 0x1FAFF) ||
		(r >= 0x2702 && r <= 0x27B0) ||
		(r >= 0x2600 && r <= 0x26FF) ||
		(r >= 0x1F100 && r <= 0x1F1FF) {
		return false
	}
	return true
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
		} else {
			b.WriteRune(r)
			inSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
