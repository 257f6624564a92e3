package extractor

import (
	"strings"

	"github.com/antzucaro/matchr"

	"gigsync/internal/models"
)

// cityMatchThreshold is the minimum Jaro-Winkler similarity for a fuzzy city match.
const cityMatchThreshold = 0.92

// Canonicalizer rewrites city names to a fixed set of spellings.
type Canonicalizer struct {
	aliases map[string]string
	cities  []string
}

// NewCanonicalizer creates a canonicalizer. Alias keys match case-insensitively.
func NewCanonicalizer(cities []string, aliases map[string]string) *Canonicalizer {
	lowered := make(map[string]string, len(aliases))
	for alias, city := range aliases {
		lowered[strings.ToLower(strings.TrimSpace(alias))] = city
	}

	return &Canonicalizer{aliases: lowered, cities: cities}
}

// City returns the canonical spelling of name, or name unchanged when nothing matches.
func (c *Canonicalizer) City(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return name
	}

	for _, city := range c.cities {
		if strings.ToLower(city) == key {
			return city
		}
	}

	if city, ok := c.aliases[key]; ok {
		return city
	}

	var (
		best      string
		bestScore float64
	)

	for _, city := range c.cities {
		score := matchr.JaroWinkler(key, strings.ToLower(city), false)
		if score > bestScore {
			best, bestScore = city, score
		}
	}

	if bestScore >= cityMatchThreshold {
		return best
	}

	return name
}

// Location canonicalizes the city after the last comma of a "Venue, City" location.
func (c *Canonicalizer) Location(location string) string {
	idx := strings.LastIndex(location, ",")
	if idx < 0 {
		return location
	}

	venue := strings.TrimSpace(location[:idx])
	city := strings.TrimSpace(location[idx+1:])

	return venue + ", " + c.City(city)
}

// Apply canonicalizes every event location in place.
func (c *Canonicalizer) Apply(ext *models.Extraction) {
	if ext == nil {
		return
	}

	for i := range ext.Events {
		if ext.Events[i].IsPlaceholder() {
			continue
		}

		ext.Events[i].Location = c.Location(ext.Events[i].Location)
	}
}
