package extract

import (
	"reflect"
	"testing"
)

const showtimesPageURL = "https://www.allocine.fr/seance/salle_gen_csalle=P0671.html#shwt_date=2025-03-02"

func buildShowtimesPage() string {
	return `<html><body>
	<div class="card entity-card">
		<a class="meta-title-link" href="/film/fichefilm_gen_cfilm=310000.html" title="Le Grand Voyage">Le Grand Voyage</a>
		<span class="showtimes-hour" data-showtime-date="2025-03-01">20h30</span>
		<span class="showtimes-hour" data-showtime-date="2025-03-01">20h30</span>
		<span class="showtimes-hour">20h</span>
		<span class="showtimes-hour">Séance spéciale</span>
	</div>
	<div class="card entity-card">
		<a class="meta-title-link" href="/film/fichefilm_gen_cfilm=310001.html">Nuit Blanche</a>
		<span class="showtimes-hour">18h15</span>
	</div>
	</body></html>`
}

func TestMatchShowtimesFindsFilmRegion(t *testing.T) {
	doc := mustDoc(t, buildShowtimesPage())
	result := MatchShowtimes(doc, "le grand VOYAGE", showtimesPageURL)

	if !result.Found {
		t.Fatalf("found = false, reason %q error %q", result.Reason, result.Error)
	}
	if result.Count != 3 {
		t.Fatalf("count = %d, want 3 (duplicate slot dropped)", result.Count)
	}

	first := result.Showtimes[0]
	if first.Time != "20:30" || first.Date == nil || *first.Date != "2025-03-01" {
		t.Fatalf("slot[0] = %+v, want 20:30 on 2025-03-01", first)
	}

	second := result.Showtimes[1]
	if second.Time != "20:00" {
		t.Fatalf("slot[1].Time = %q, want 20:00", second.Time)
	}
	if second.Date == nil || *second.Date != "2025-03-02" {
		t.Fatalf("slot[1].Date = %v, want fragment fallback 2025-03-02", second.Date)
	}

	third := result.Showtimes[2]
	if third.Time != "Séance spéciale" {
		t.Fatalf("slot[2].Time = %q, want verbatim text", third.Time)
	}
}

func TestMatchShowtimesScopedToMatchedCard(t *testing.T) {
	doc := mustDoc(t, buildShowtimesPage())
	result := MatchShowtimes(doc, "Nuit Blanche", showtimesPageURL)

	if !result.Found {
		t.Fatalf("found = false, reason %q", result.Reason)
	}
	if result.Count != 1 || result.Showtimes[0].Time != "18:15" {
		t.Fatalf("showtimes = %+v, want only 18:15", result.Showtimes)
	}
}

func TestMatchShowtimesNotFound(t *testing.T) {
	doc := mustDoc(t, buildShowtimesPage())
	result := MatchShowtimes(doc, "Film Inexistant", showtimesPageURL)

	if result.Found {
		t.Fatalf("found = true for absent film")
	}
	if result.Reason != "film not found on page" {
		t.Fatalf("reason = %q", result.Reason)
	}
	if len(result.Showtimes) != 0 {
		t.Fatalf("showtimes = %v, want empty", result.Showtimes)
	}
}

func TestMatchShowtimesTitleAttributeMatch(t *testing.T) {
	markup := `<html><body><div class="entity-card">
		<a href="/film/fichefilm_gen_cfilm=1.html" title="Les Quatre Cents Coups"><img src="/p.jpg"/></a>
		<span class="showtimes-hour">21h00</span>
	</div></body></html>`
	doc := mustDoc(t, markup)

	result := MatchShowtimes(doc, "quatre cents coups", showtimesPageURL)
	if !result.Found || result.Count != 1 {
		t.Fatalf("result = %+v, want title-attribute match with one slot", result)
	}
}

func TestMatchShowtimesHrefFallback(t *testing.T) {
	markup := `<html><body><div class="theater-block">
		<p>Horaires pour Vertigo ce soir</p>
		<a href="/seance/film-2130/pres-de-chez-moi/">Réserver</a>
		<span class="hour-item" data-showtime-time="19:45">19h45</span>
	</div></body></html>`
	doc := mustDoc(t, markup)

	result := MatchShowtimes(doc, "Vertigo", showtimesPageURL)
	if !result.Found {
		t.Fatalf("found = false, want href fallback match, reason %q", result.Reason)
	}
	if result.Count != 1 || result.Showtimes[0].Time != "19:45" {
		t.Fatalf("showtimes = %+v", result.Showtimes)
	}
}

func TestMatchShowtimesWidensWhenContainerEmpty(t *testing.T) {
	// The anchor's card holds no hours; they live on a sibling subtree
	// reachable by walking ancestors.
	markup := `<html><body><div class="theater-section">
		<div class="entity-card"><a class="meta-title-link" href="/film/fichefilm_gen_cfilm=3.html">Alphaville</a></div>
		<div class="session-strip"><span data-showtime-time="22h10">22h10</span></div>
	</div></body></html>`
	doc := mustDoc(t, markup)

	result := MatchShowtimes(doc, "Alphaville", showtimesPageURL)
	if !result.Found {
		t.Fatalf("found = false, reason %q", result.Reason)
	}
	if result.Count != 1 || result.Showtimes[0].Time != "22:10" {
		t.Fatalf("showtimes = %+v, want widened search to find 22:10", result.Showtimes)
	}
}

func TestMatchShowtimesDateBoundToSearchedRegion(t *testing.T) {
	// A date attribute above the widened subtree belongs to another region
	// and must not be picked up; the fragment date wins instead.
	markup := `<html><body><div data-showtime-date="2099-12-31">
		<div class="theater-section">
			<div class="entity-card"><a class="meta-title-link" href="/film/fichefilm_gen_cfilm=3.html">Alphaville</a></div>
			<div class="session-strip"><span data-showtime-time="22h10">22h10</span></div>
		</div>
	</div></body></html>`
	doc := mustDoc(t, markup)

	result := MatchShowtimes(doc, "Alphaville", showtimesPageURL)
	if !result.Found || result.Count != 1 {
		t.Fatalf("result = %+v", result)
	}
	slot := result.Showtimes[0]
	if slot.Date == nil || *slot.Date != "2025-03-02" {
		t.Fatalf("slot date = %v, want fragment date, not the outside attribute", slot.Date)
	}
}

func TestMatchShowtimesDeterministic(t *testing.T) {
	doc := mustDoc(t, buildShowtimesPage())
	first := MatchShowtimes(doc, "Le Grand Voyage", showtimesPageURL)
	second := MatchShowtimes(doc, "Le Grand Voyage", showtimesPageURL)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("matcher not deterministic:\n%+v\n%+v", first, second)
	}
}

func TestNormalizeTime(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "20h30", expected: "20:30"},
		{input: "20:30", expected: "20:30"},
		{input: "9h05", expected: "09:05"},
		{input: "20h", expected: "20:00"},
		{input: "9 h", expected: "09:00"},
		{input: "Séance spéciale", expected: "Séance spéciale"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeTime(tt.input); got != tt.expected {
				t.Fatalf("NormalizeTime(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
