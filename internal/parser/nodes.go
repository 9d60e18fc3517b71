package parser

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipElement reports whether an element never contributes text.
func skipElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Svg:
		return true
	}
	return false
}

// textExcluding returns the text below n with the subtree rooted at
// exclude left out. Elements deeper than depth levels below n are not
// expanded.
func textExcluding(n, exclude *html.Node, depth int) string {
	var b strings.Builder
	var walk func(node *html.Node, level int)
	walk = func(node *html.Node, level int) {
		if node == exclude {
			return
		}
		switch node.Type {
		case html.TextNode:
			b.WriteString(node.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			if skipElement(node) || level >= depth {
				return
			}
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				walk(c, level+1)
			}
		}
	}
	walk(n, 0)
	return collapseSpace(b.String())
}

// categoryNearMarker looks for the category text beside a marker
// element. Only immediate neighbours are read: the first non-blank
// sibling after the marker (or before it, when nothing follows), then
// the first non-blank sibling after each enclosing element, up to depth
// levels and never past the container. A rejected neighbour ends the
// search at its level; later siblings are not consulted. Link text and
// count-like text are rejected.
func categoryNearMarker(marker, container *html.Node, depth int, isQuantity func(string) bool) string {
	accept := func(n *html.Node) string {
		if n == nil || containsLink(n) {
			return ""
		}
		if text := nodeText(n, marker, depth); !isQuantity(text) {
			return text
		}
		return ""
	}

	// A marker that closes its group labels what comes before it.
	first := neighbour(marker, marker, depth, true)
	if first == nil {
		first = neighbour(marker, marker, depth, false)
	}
	if text := accept(first); text != "" {
		return text
	}

	cur := marker.Parent
	for level := 1; level < depth && cur != nil && cur != container; level++ {
		if text := accept(neighbour(cur, marker, depth, true)); text != "" {
			return text
		}
		cur = cur.Parent
	}
	return ""
}

// neighbour returns the closest sibling of n, after it when next is set
// and before it otherwise, that carries any text.
func neighbour(n, marker *html.Node, depth int, next bool) *html.Node {
	step := func(s *html.Node) *html.Node {
		if next {
			return s.NextSibling
		}
		return s.PrevSibling
	}
	for sib := step(n); sib != nil; sib = step(sib) {
		if sib.Type == html.ElementNode && skipElement(sib) {
			continue
		}
		if nodeText(sib, marker, depth) != "" {
			return sib
		}
	}
	return nil
}

func nodeText(n, marker *html.Node, depth int) string {
	switch n.Type {
	case html.TextNode:
		return collapseSpace(n.Data)
	case html.ElementNode:
		return textExcluding(n, marker, depth)
	}
	return ""
}

// containsLink reports whether n is or holds an anchor. Titles and
// count links are anchors; category labels are not.
func containsLink(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if n.DataAtom == atom.A {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if containsLink(c) {
			return true
		}
	}
	return false
}

// scanTextNodes visits text nodes below root in document order, at most
// depth levels down, skipping the given subtrees. Visiting stops when
// visit returns true.
func scanTextNodes(root *html.Node, depth int, skip []*html.Node, visit func(text string) bool) {
	var walk func(node *html.Node, level int) bool
	walk = func(node *html.Node, level int) bool {
		for _, s := range skip {
			if node == s {
				return false
			}
		}
		switch node.Type {
		case html.TextNode:
			return visit(node.Data)
		case html.ElementNode:
			if skipElement(node) || level >= depth {
				return false
			}
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				if walk(c, level+1) {
					return true
				}
			}
		}
		return false
	}
	walk(root, 0)
}

// quantityToken finds the first quantity-like token in text and returns
// text from that token on.
func quantityToken(text string, isSuffix func(string) bool) (string, bool) {
	rest := text
	for {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		if rest == "" {
			return "", false
		}
		end := strings.IndexFunc(rest, unicode.IsSpace)
		tok := rest
		if end >= 0 {
			tok = rest[:end]
		}
		if quantityLike(tok, isSuffix) {
			return rest, true
		}
		if end < 0 {
			return "", false
		}
		rest = rest[end:]
	}
}

// quantityLike reports whether a token reads as a count: it holds a digit
// and either starts with one, carries a grouping separator, or ends in a
// magnitude suffix.
func quantityLike(tok string, isSuffix func(string) bool) bool {
	if strings.IndexFunc(tok, isASCIIDigit) < 0 {
		return false
	}
	if isASCIIDigit(rune(tok[0])) {
		return true
	}
	if strings.ContainsAny(tok, ",_'") {
		return true
	}
	trimmed := strings.TrimRightFunc(tok, unicode.IsPunct)
	letters := strings.TrimLeftFunc(trimmed, func(r rune) bool { return !unicode.IsLetter(r) })
	return letters != "" && isSuffix(letters)
}

func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

// stripMarkup drops HTML tags that JSON APIs embed in text fields (search
// highlights, line breaks) and decodes entities. Only tags naming real
// HTML elements are removed, so "Vec<T>" keeps its type parameter.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			raw := append([]byte(nil), z.Raw()...)
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case 0:
				b.Write(raw)
			case atom.Br, atom.P, atom.Div, atom.Li:
				b.WriteByte(' ')
			}
		}
	}
}
