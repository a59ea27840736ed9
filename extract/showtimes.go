package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/briaclm/allocine-scraper/models"
)

// Container class markers tried while ascending from a matched anchor,
// highest priority first.
var containerMarkers = []string{"entity-card", "movie-card", "theater-block", "showtimes", "card"}

var (
	filmHrefRe  = regexp.MustCompile(`(?i)/seance/film-|/film/fichefilm|cfilm=`)
	timeHMRe    = regexp.MustCompile(`(\d{1,2})(?::|h)(\d{2})`)
	timeHOnlyRe = regexp.MustCompile(`(\d{1,2})\s*h`)
	shwtDateRe  = regexp.MustCompile(`shwt_date=(\d{4}-\d{2}-\d{2})`)
)

const maxWidenLevels = 4

// MatchShowtimes locates the DOM region belonging to film on an already
// fetched page and parses its session slots. found=false is a normal outcome;
// any internal panic is recovered and surfaces the same way with the error
// message attached. This routine never fails the pipeline.
func MatchShowtimes(doc *goquery.Document, film, pageURL string) (result *models.MatchResult) {
	result = &models.MatchResult{
		Film:      film,
		Showtimes: []models.ShowtimeSlot{},
		SourceURL: pageURL,
	}
	defer func() {
		if r := recover(); r != nil {
			result.Found = false
			result.Error = fmt.Sprintf("showtime extraction: %v", r)
		}
	}()

	target := Normalize(film)
	anchor := findFilmAnchor(doc, target)
	if anchor == nil {
		result.Reason = "film not found on page"
		return result
	}

	scope := ascendToContainer(anchor)
	elements := timeBearing(scope)
	if len(elements) == 0 {
		elements, scope = widenSearch(anchor)
	}

	fallbackDate := dateFromFragment(pageURL)
	seen := make(map[string]struct{})
	for _, el := range elements {
		slot := parseSlot(el, scope, fallbackDate)
		if slot.Time == "" {
			continue
		}
		key := slot.Time
		if slot.Date != nil {
			key = *slot.Date + "|" + slot.Time
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result.Showtimes = append(result.Showtimes, slot)
	}

	result.Found = true
	result.Count = len(result.Showtimes)
	return result
}

// findFilmAnchor picks the first anchor, in document order, whose normalized
// text or title attribute contains the normalized target. When nothing
// matches it retries on film-detail hrefs whose parent text mentions the
// target.
func findFilmAnchor(doc *goquery.Document, target string) *goquery.Selection {
	if target == "" {
		return nil
	}

	var match *goquery.Selection
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if strings.Contains(Normalize(nodeText(a)), target) {
			match = a
			return false
		}
		if title, ok := a.Attr("title"); ok && strings.Contains(Normalize(title), target) {
			match = a
			return false
		}
		return true
	})
	if match != nil {
		return match
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !filmHrefRe.MatchString(href) {
			return true
		}
		if strings.Contains(Normalize(nodeText(a.Parent())), target) {
			match = a
			return false
		}
		return true
	})
	return match
}

// ascendToContainer walks up from the anchor to the nearest ancestor matching
// one of the container markers, falling back to the immediate parent.
func ascendToContainer(anchor *goquery.Selection) *goquery.Selection {
	for _, marker := range containerMarkers {
		pred := ClassContains(marker)
		for cur := anchor.Parent(); cur.Length() > 0; cur = cur.Parent() {
			if pred(cur) {
				return cur
			}
		}
	}
	return anchor.Parent()
}

var timeMarker = Or(HasAttr("data-showtime-time"), AnyClassContains("show", "hour"))

// timeBearing collects the elements inside container that carry a session
// time: a showtime data attribute or a show/hour class marker.
func timeBearing(container *goquery.Selection) []*goquery.Selection {
	return FindAll(container, timeMarker)
}

// widenSearch climbs up to four ancestor levels from the anchor, scanning
// each ancestor's full subtree for time-bearing elements. The ancestor that
// produced the hits is returned with them; it bounds date resolution.
func widenSearch(anchor *goquery.Selection) ([]*goquery.Selection, *goquery.Selection) {
	cur := anchor.Parent()
	for level := 0; level < maxWidenLevels && cur.Length() > 0; level++ {
		if found := timeBearing(cur); len(found) > 0 {
			return found, cur
		}
		cur = cur.Parent()
	}
	return nil, nil
}

// parseSlot turns one time-bearing element into a slot. Time parsing is
// total: normalized HH:MM when possible, raw text otherwise. scope is the
// subtree root the element was found under.
func parseSlot(el, scope *goquery.Selection, fallbackDate string) models.ShowtimeSlot {
	raw := nodeText(el)
	source := raw
	if attr, ok := el.Attr("data-showtime-time"); ok && strings.TrimSpace(attr) != "" {
		source = attr
	}

	slot := models.ShowtimeSlot{
		Time:    NormalizeTime(source),
		RawText: raw,
	}
	if slot.Time == "" {
		slot.Time = raw
	}

	if date := resolveDate(el, scope, fallbackDate); date != "" {
		slot.Date = &date
	}
	return slot
}

// NormalizeTime parses heterogeneous display times: "20h30" and "20:30"
// become "20:30", "20h" becomes "20:00", anything else is kept verbatim.
func NormalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if m := timeHMRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%02d:%s", h, m[2])
	}
	if m := timeHOnlyRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		return fmt.Sprintf("%02d:00", h)
	}
	return s
}

// resolveDate walks from the element up to scope, inclusive, looking for a
// showtime date attribute, then falls back to the page URL fragment. The walk
// never leaves the searched subtree, so dates declared elsewhere on the page
// cannot leak in.
func resolveDate(el, scope *goquery.Selection, fallback string) string {
	for cur := el; cur.Length() > 0; cur = cur.Parent() {
		if date, ok := cur.Attr("data-showtime-date"); ok && strings.TrimSpace(date) != "" {
			return strings.TrimSpace(date)
		}
		if scope == nil || scope.Length() == 0 || cur.Nodes[0] == scope.Nodes[0] {
			break
		}
	}
	return fallback
}

// dateFromFragment pulls a shwt_date=YYYY-MM-DD marker out of the URL
// fragment, the way the front-end encodes the selected day.
func dateFromFragment(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	if m := shwtDateRe.FindStringSubmatch(parsed.Fragment); m != nil {
		return m[1]
	}
	return ""
}
