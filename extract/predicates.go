// Package extract derives structured film and showtime data from AlloCiné-style
// listing pages. The source site exposes no stable API, so every extractor is
// a chain of ordered fallback heuristics: a miss yields nil/empty, never an
// error.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Predicate tests one DOM node. Extraction rules are built from named
// predicates so each rule can be unit-tested without a live page.
type Predicate func(*goquery.Selection) bool

// ClassContains reports whether the node's class attribute contains marker as
// a case-insensitive substring.
func ClassContains(marker string) Predicate {
	marker = strings.ToLower(marker)
	return func(s *goquery.Selection) bool {
		class, ok := s.Attr("class")
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(class), marker)
	}
}

// AnyClassContains tries markers in order and matches on the first hit.
func AnyClassContains(markers ...string) Predicate {
	preds := make([]Predicate, len(markers))
	for i, m := range markers {
		preds[i] = ClassContains(m)
	}
	return func(s *goquery.Selection) bool {
		for _, p := range preds {
			if p(s) {
				return true
			}
		}
		return false
	}
}

// HasAttr reports whether the node carries the named attribute.
func HasAttr(name string) Predicate {
	return func(s *goquery.Selection) bool {
		_, ok := s.Attr(name)
		return ok
	}
}

// Or combines predicates with short-circuit disjunction.
func Or(preds ...Predicate) Predicate {
	return func(s *goquery.Selection) bool {
		for _, p := range preds {
			if p(s) {
				return true
			}
		}
		return false
	}
}

// FindAll walks every element under root and collects the ones matching p, in
// document order.
func FindAll(root *goquery.Selection, p Predicate) []*goquery.Selection {
	var out []*goquery.Selection
	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		if p(s) {
			out = append(out, s)
		}
	})
	return out
}

// FindFirst returns the first element under root matching p, or nil.
func FindFirst(root *goquery.Selection, p Predicate) *goquery.Selection {
	matches := FindAll(root, p)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

var spaceRun = regexp.MustCompile(`\s+`)

// nodeText collects the text content below sel, joining fragments with single
// spaces the way BeautifulSoup's get_text(" ", strip=True) does.
func nodeText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		collectText(n, &b)
	}
	return strings.TrimSpace(spaceRun.ReplaceAllString(b.String(), " "))
}

func collectText(n *html.Node, b *strings.Builder) {
	if n == nil {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteString(" ")
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

var wordRun = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Normalize collapses non-word runs to single spaces, trims, and lowercases.
// Both the requested film title and page anchor texts go through this before
// substring matching.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(wordRun.ReplaceAllString(s, " ")))
}
