package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/briaclm/allocine-scraper/models"
)

var (
	durationRe = regexp.MustCompile(`\d+h\s*\d*min|\d+h|min`)
	sessionsRe = regexp.MustCompile(`\d+[\s\x{202f}]*\d*`)
)

// Cards discovers every entity card on the page and extracts one FilmCard per
// card. Two discovery strategies are tried in order: elements whose class
// contains "entity-card", then divs nested one level inside li.mdl items with
// the same marker. The result may be empty; it is never an error.
func Cards(doc *goquery.Document, baseURL string) []*models.FilmCard {
	cards := FindAll(doc.Selection, ClassContains("entity-card"))
	if len(cards) == 0 {
		doc.Find("li.mdl").Each(func(_ int, li *goquery.Selection) {
			li.ChildrenFiltered("div").Each(func(_ int, div *goquery.Selection) {
				if ClassContains("entity-card")(div) {
					cards = append(cards, div)
				}
			})
		})
	}

	films := make([]*models.FilmCard, 0, len(cards))
	for _, card := range cards {
		films = append(films, Card(card, baseURL))
	}
	return films
}

// Card parses a single entity card. Each field gets one fixed heuristic;
// fields miss independently.
func Card(card *goquery.Selection, baseURL string) *models.FilmCard {
	film := &models.FilmCard{
		Genres:  []string{},
		Actors:  []string{},
		Ratings: map[string]string{},
	}

	titleLink := card.Find("a.meta-title-link").First()
	if titleLink.Length() > 0 {
		if t := strings.TrimSpace(titleLink.Text()); t != "" {
			film.Title = &t
		}
		if href, ok := titleLink.Attr("href"); ok && href != "" {
			if abs := resolveURL(baseURL, href); abs != "" {
				film.Link = &abs
			}
		}
	}

	if img := card.Find("img.thumbnail-img").First(); img.Length() > 0 {
		// Lazy-loaded posters keep the real source in data-src.
		src, ok := img.Attr("data-src")
		if !ok || src == "" {
			src, _ = img.Attr("src")
		}
		if src != "" {
			if abs := resolveURL(baseURL, src); abs != "" {
				film.Poster = &abs
			}
		}
	}

	if date := card.Find("span.date").First(); date.Length() > 0 {
		if t := strings.TrimSpace(date.Text()); t != "" {
			film.ReleaseDate = &t
		}
	}

	info := card.Find("div.meta-body-item.meta-body-info").First()
	if info.Length() > 0 {
		if m := durationRe.FindString(nodeText(info)); m != "" {
			film.Duration = &m
		}
		info.Find("span").Each(func(_ int, s *goquery.Selection) {
			if ClassContains("dark-grey-link")(s) {
				film.Genres = append(film.Genres, strings.TrimSpace(s.Text()))
			}
		})
	}

	if dir := card.Find("div.meta-body-item.meta-body-direction").First(); dir.Length() > 0 {
		var name string
		dir.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if ClassContains("dark-grey-link")(s) {
				name = strings.TrimSpace(s.Text())
				return false
			}
			return true
		})
		if name == "" {
			// "De Jane Campion" → "Jane Campion"; a name starting with "De"
			// ("Derek") must survive.
			name = strings.TrimSpace(strings.TrimPrefix(nodeText(dir), "De "))
		}
		if name != "" {
			film.Director = &name
		}
	}

	if actor := card.Find("div.meta-body-item.meta-body-actor").First(); actor.Length() > 0 {
		actor.Find("span").Each(func(_ int, s *goquery.Selection) {
			if ClassContains("dark-grey-link")(s) {
				film.Actors = append(film.Actors, strings.TrimSpace(s.Text()))
			}
		})
	}

	if syn := card.Find("div.synopsis").First(); syn.Length() > 0 {
		if t := nodeText(syn); t != "" {
			film.Synopsis = &t
		}
	}

	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(href, "/seance/film-") {
			return true
		}
		if m := sessionsRe.FindString(nodeText(a)); m != "" {
			// U+202F narrow no-break space shows up as a thousands separator.
			digits := strings.NewReplacer("\u202f", "", " ", "").Replace(m)
			if n, err := strconv.Atoi(digits); err == nil {
				film.SessionCount = &n
			}
		}
		return false
	})

	card.Find("div.rating-item").Each(func(_ int, ri *goquery.Selection) {
		title := FindFirst(ri, ClassContains("rating-title"))
		note := ri.Find("span").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return ClassContains("stareval-note")(s)
		}).First()
		if title == nil || note.Length() == 0 {
			return
		}
		key := strings.TrimSpace(title.Text())
		val := strings.TrimSpace(note.Text())
		if key != "" && val != "" {
			film.Ratings[key] = val
		}
	})

	return film
}

func resolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return baseURL.ResolveReference(refURL).String()
}
