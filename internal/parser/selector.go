package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"

	"github.com/IshaanNene/TrendGoat/internal/source"
)

// compiledSelector is a source.Selector ready to run against a document.
type compiledSelector struct {
	src   source.Selector
	css   cascadia.Selector
	xpath *xpath.Expr
}

// compileSelector validates and compiles a single selector.
func compileSelector(s source.Selector) (compiledSelector, error) {
	cs := compiledSelector{src: s}
	if strings.TrimSpace(s.Expr) == "" {
		return cs, fmt.Errorf("empty selector expression")
	}

	var err error
	if s.IsXPath() {
		cs.xpath, err = xpath.Compile(s.Expr)
		if err != nil {
			return cs, fmt.Errorf("invalid xpath %q: %w", s.Expr, err)
		}
		return cs, nil
	}

	cs.css, err = cascadia.Compile(s.Expr)
	if err != nil {
		return cs, fmt.Errorf("invalid css selector %q: %w", s.Expr, err)
	}
	return cs, nil
}

// CompileChain compiles every selector of a chain, failing on the first
// invalid one. It is exported so configuration can be checked up front.
func CompileChain(chain []source.Selector) error {
	for _, s := range chain {
		if _, err := compileSelector(s); err != nil {
			return err
		}
	}
	return nil
}

// find returns the descendants of scope matched by the selector, in
// document order.
func (cs compiledSelector) find(scope *goquery.Selection) *goquery.Selection {
	if cs.xpath == nil {
		return scope.FindMatcher(cs.css)
	}

	var found []*html.Node
	for _, top := range scope.Nodes {
		found = append(found, htmlquery.QuerySelectorAll(top, cs.xpath)...)
	}
	return scope.FindNodes(found...)
}

// value reads the selector's value from a matched element: the named
// attribute, or the whitespace-collapsed text.
func (cs compiledSelector) value(sel *goquery.Selection) string {
	switch cs.src.Attribute {
	case "", "text":
		return collapseSpace(sel.Text())
	default:
		v, _ := sel.Attr(cs.src.Attribute)
		return collapseSpace(v)
	}
}

// collapseSpace trims s and folds runs of whitespace into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
