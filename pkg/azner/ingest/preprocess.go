package ingest

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

var cleanup = strings.NewReplacer(
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
	"«", `"`,
	"»", `"`,
	"“", `"`,
	"”", `"`,
	"•", "",
	"mln.", "milyon",
	"mlrd.", "milyard",
)

// Preprocess cleans article text before extraction: markup is stripped,
// the text is NFC-composed, typographic quotes become '"', bullets are
// dropped, "mln."/"mlrd." are spelled out and whitespace is collapsed.
// Entity offsets refer to the preprocessed text.
func Preprocess(text string) string {
	if text == "" {
		return ""
	}
	if strings.Contains(text, "<") && strings.Contains(text, ">") {
		text = stripHTML(text)
	}
	text = norm.NFC.String(text)
	text = cleanup.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

// stripHTML returns the text content of s. Block elements are separated by
// a space; script and style bodies are dropped.
func stripHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			buf.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			buf.WriteByte(' ')
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Br, atom.Li, atom.Ul, atom.Ol, atom.Tr, atom.Td, atom.Th,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Blockquote, atom.Section, atom.Article:
		return true
	}
	return false
}
