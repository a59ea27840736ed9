package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var synopsisKeywords = []string{"synopsis", "synop", "resume", "résumé", "description", "summary"}

var showtimeKeywords = []string{"seance", "seances", "horaire", "horaires", "showtime", "sessions"}

// PageFields holds the page-level values pulled from a listing page.
type PageFields struct {
	Title     *string
	Synopsis  *string
	Showtimes []string
}

// Page applies the page-level fallback chains to doc. Absence of every
// candidate yields nil fields, never an error.
func Page(doc *goquery.Document) PageFields {
	return PageFields{
		Title:     pageTitle(doc),
		Synopsis:  pageSynopsis(doc),
		Showtimes: pageShowtimeTexts(doc),
	}
}

// pageTitle resolves og:title, then <title>, then the first <h1>.
func pageTitle(doc *goquery.Document) *string {
	if content, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if t := strings.TrimSpace(content); t != "" {
			return &t
		}
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return &t
	}
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		if t := nodeText(h1); t != "" {
			return &t
		}
	}
	return nil
}

// pageSynopsis resolves meta description, then og:description, then the first
// element whose class contains one of the synopsis keywords, tried in fixed
// order.
func pageSynopsis(doc *goquery.Document) *string {
	if content, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if t := strings.TrimSpace(content); t != "" {
			return &t
		}
	}
	if content, ok := doc.Find(`meta[property="og:description"]`).First().Attr("content"); ok {
		if t := strings.TrimSpace(content); t != "" {
			return &t
		}
	}
	for _, kw := range synopsisKeywords {
		if el := FindFirst(doc.Selection, ClassContains(kw)); el != nil {
			if t := nodeText(el); t != "" {
				return &t
			}
		}
	}
	return nil
}

// pageShowtimeTexts collects raw text from elements whose class names suggest
// showtime content. Duplicate texts are dropped, first-seen order kept.
func pageShowtimeTexts(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, kw := range showtimeKeywords {
		for _, el := range FindAll(doc.Selection, ClassContains(kw)) {
			text := nodeText(el)
			if text == "" {
				continue
			}
			if _, ok := seen[text]; ok {
				continue
			}
			seen[text] = struct{}{}
			out = append(out, text)
		}
	}
	return out
}

// GuessSalleName walks the page for a plausible venue name: the first <h1>
// with more than two characters, then a titlebar-title marked element, then
// any element whose text mentions a cinema. Empty string means no guess.
func GuessSalleName(doc *goquery.Document) string {
	name := ""
	doc.Find("h1").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if t := nodeText(s); len(t) > 2 {
			name = t
			return false
		}
		return true
	})
	if name != "" {
		return name
	}
	if el := FindFirst(doc.Selection, ClassContains("titlebar-title")); el != nil {
		if t := nodeText(el); t != "" {
			return t
		}
	}
	found := ""
	doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		t := strings.ToLower(nodeText(s))
		if t == "" || len(t) > 120 {
			return true
		}
		if strings.Contains(t, "cin") || strings.Contains(t, "salle") {
			found = nodeText(s)
			return false
		}
		return true
	})
	return found
}
