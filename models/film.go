// Package models defines data structures for the scraper.
package models

// FilmCard represents one film listed on an AlloCiné-style index page.
//
// Every field is independently optional: a missing extractor match leaves the
// field nil/empty and never blocks the other fields. A card is always emitted,
// even if every heuristic missed.
type FilmCard struct {
	Title        *string           `json:"title"`
	Link         *string           `json:"link"`
	Poster       *string           `json:"poster"`
	ReleaseDate  *string           `json:"release_date"`
	Duration     *string           `json:"duration"`
	Genres       []string          `json:"genres"`
	Director     *string           `json:"director"`
	Actors       []string          `json:"actors"`
	Synopsis     *string           `json:"synopsis"`
	SessionCount *int              `json:"sessions"`
	Ratings      map[string]string `json:"ratings"`
	Showtimes    []ShowtimeSlot    `json:"showtimes,omitempty"`
}

// ShowtimeSlot is one parsed (date, time) session instance.
//
// Time is never empty: it holds the normalized HH:MM form when the source text
// was parseable and the raw display text otherwise.
type ShowtimeSlot struct {
	Date    *string `json:"date"`
	Time    string  `json:"time"`
	RawText string  `json:"raw_text"`
}

// PageHeader carries the page-level values pulled from the listing page: the
// raw heading text, the page synopsis, and the raw showtime texts. Each field
// is independently optional.
type PageHeader struct {
	Raw       *string  `json:"raw"`
	Synopsis  *string  `json:"synopsis"`
	Showtimes []string `json:"showtimes"`
}

// PageSeances groups the films listed for one showtime date.
type PageSeances struct {
	Date  string      `json:"date"`
	Films []*FilmCard `json:"films"`
}

// PageMeta records provenance for a page-level extraction.
type PageMeta struct {
	URL       string `json:"url"`
	FetchedAt string `json:"fetched_at"`
	HTMLFile  string `json:"html_file"`
}

// PageResult is the structured page-level output written as the page JSON
// artifact.
type PageResult struct {
	Header  PageHeader  `json:"header"`
	Seances PageSeances `json:"seances"`
	Meta    PageMeta    `json:"meta"`
}

// MatchResult is the outcome of matching a film title against a page.
//
// Found=false is a normal outcome, not a failure; Reason distinguishes a
// plain miss from a recovered extraction error.
type MatchResult struct {
	Found     bool           `json:"found"`
	Film      string         `json:"film"`
	Count     int            `json:"count"`
	Showtimes []ShowtimeSlot `json:"showtimes"`
	SourceURL string         `json:"source_url"`
	Reason    string         `json:"reason,omitempty"`
	Error     string         `json:"error,omitempty"`
}
