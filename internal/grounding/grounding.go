// Package grounding turns the citation metadata attached to a response into
// de-duplicated source cards.
package grounding

import (
	"net/url"
	"strings"

	"lumen/internal/models"
)

// Extract partitions chunks into web and place sources, drops repeats and
// returns web cards first, each group in first-seen order. It keeps no state,
// so calling it again on the cumulative metadata yields the same result.
func Extract(chunks []models.GroundingChunk) []models.SourceCard {
	var web, places []models.SourceCard
	seenWeb := map[string]bool{}
	seenPlace := map[string]bool{}

	for _, c := range chunks {
		switch {
		case c.Web != nil:
			key := dedupeKey(c.Web.URI, c.Web.Title)
			if key == "" || seenWeb[key] {
				continue
			}
			seenWeb[key] = true
			web = append(web, models.SourceCard{
				Kind:   models.SourceWeb,
				Title:  displayTitle(c.Web.Title, c.Web.URI),
				URI:    c.Web.URI,
				Domain: Domain(c.Web.URI),
			})
		case c.Place != nil:
			key := dedupeKey(c.Place.URI, c.Place.Title)
			if key == "" || seenPlace[key] {
				continue
			}
			seenPlace[key] = true
			places = append(places, models.SourceCard{
				Kind:   models.SourcePlace,
				Title:  displayTitle(c.Place.Title, c.Place.URI),
				URI:    c.Place.URI,
				Domain: Domain(c.Place.URI),
			})
		}
	}

	return append(web, places...)
}

// Domain returns the host of uri without a leading "www.".
func Domain(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func dedupeKey(uri, title string) string {
	if uri = strings.TrimSpace(uri); uri != "" {
		return uri
	}
	return strings.TrimSpace(title)
}

func displayTitle(title, uri string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	if d := Domain(uri); d != "" {
		return d
	}
	return uri
}
