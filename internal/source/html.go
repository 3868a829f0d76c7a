package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// blockElements start a new line in the extracted text.
var blockElements = map[string]bool{
	"address": true, "article": true, "blockquote": true, "br": true, "dd": true,
	"div": true, "dl": true, "dt": true, "figcaption": true, "h1": true, "h2": true,
	"h3": true, "h4": true, "h5": true, "h6": true, "hr": true, "li": true,
	"main": true, "ol": true, "p": true, "pre": true, "section": true,
	"table": true, "td": true, "th": true, "tr": true, "ul": true,
}

const (
	hiddenElements      = "script, style, noscript, template, iframe, svg"
	boilerplateElements = "nav, header, footer, aside, form"
)

// HTMLToText extracts the visible text of an HTML page, one line per block
// element. With readability on, navigation, header, footer and sidebar blocks
// are dropped as well.
func HTMLToText(data []byte, readability bool) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find(hiddenElements).Remove()
	if readability {
		doc.Find(boilerplateElements).Remove()
	}

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	return SelectionText(root), nil
}

// SelectionText flattens a selection to text, breaking lines at block
// elements and collapsing runs of whitespace.
func SelectionText(s *goquery.Selection) string {
	var b strings.Builder
	writeText(&b, s)
	return normalizeLines(b.String())
}

func writeText(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		name := goquery.NodeName(child)
		switch {
		case name == "#text":
			b.WriteString(child.Text())
		case name == "#comment":
		case blockElements[name]:
			b.WriteByte('\n')
			writeText(b, child)
			b.WriteByte('\n')
		default:
			writeText(b, child)
		}
	})
}

func normalizeLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
