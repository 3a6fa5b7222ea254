// Package extract turns evidence artifacts into plain text for the
// reasoning strategies. Images are not handled here; they go through the
// provider's vision path.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	htmldom "golang.org/x/net/html"

	"auditeval/internal/model"
)

// IsImage reports whether the artifact must be routed through vision
// inference instead of text extraction.
func IsImage(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}

// Text extracts the textual content of one evidence file.
func Text(f model.EvidenceFile) (string, error) {
	mt := strings.ToLower(strings.TrimSpace(f.MediaType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch {
	case IsImage(mt):
		return "", fmt.Errorf("image artifact %q has no text form", f.Name)
	case mt == "text/html" || mt == "application/xhtml+xml":
		return htmlText(string(f.Content))
	case strings.HasPrefix(mt, "text/") ||
		mt == "application/json" ||
		mt == "application/csv" ||
		mt == "":
		return string(f.Content), nil
	default:
		return "", fmt.Errorf("unsupported media type %q for %q", f.MediaType, f.Name)
	}
}

// htmlText strips markup and returns readable text, one block element per
// line.
func htmlText(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	var sb strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		for _, n := range sel.Nodes {
			writeNodeText(&sb, n)
		}
	})
	if sb.Len() == 0 {
		// No body element (fragment input): walk everything.
		for _, n := range doc.Selection.Nodes {
			writeNodeText(&sb, n)
		}
	}
	return collapseBlankLines(sb.String()), nil
}

var blockTags = map[string]bool{
	"p": true, "div": true, "tr": true, "li": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "section": true, "article": true,
}

func writeNodeText(sb *strings.Builder, n *htmldom.Node) {
	switch n.Type {
	case htmldom.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			sb.WriteString(t)
			sb.WriteString(" ")
		}
	case htmldom.ElementNode:
		if n.Data == "script" || n.Data == "style" || n.Data == "noscript" {
			return
		}
		if blockTags[n.Data] {
			sb.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeNodeText(sb, c)
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Combined renders all textual evidence as one prompt block, each file under
// a name header. Images get a placeholder line; unreadable files an error
// marker, so the model knows the artifact exists even when its content does
// not.
func Combined(evidence []model.EvidenceFile) string {
	if len(evidence) == 0 {
		return "(no evidence files provided)"
	}
	var sb strings.Builder
	for _, f := range evidence {
		fmt.Fprintf(&sb, "--- %s (%s) ---\n", f.Name, f.MediaType)
		if IsImage(f.MediaType) {
			sb.WriteString("[image artifact: content supplied separately]\n")
			continue
		}
		text, err := Text(f)
		if err != nil {
			fmt.Fprintf(&sb, "[unreadable: %v]\n", err)
			continue
		}
		sb.WriteString(strings.TrimSpace(text))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Images collects the image artifacts for the vision path, in evidence order.
func Images(evidence []model.EvidenceFile) []model.EvidenceFile {
	var out []model.EvidenceFile
	for _, f := range evidence {
		if IsImage(f.MediaType) {
			out = append(out, f)
		}
	}
	return out
}
