package classify

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// Place is one gazetteer entry. Coordinates feed the weather provider's
// geocoding so a resolved location is immediately usable upstream.
type Place struct {
	Name  string
	State string
	Lat   float64
	Lon   float64
}

// gazetteer lists the recognized market/district locations. Matching is
// longest-name-first so "New Delhi" wins over "Delhi" when both occur.
var gazetteer = []Place{
	{Name: "New Delhi", State: "Delhi", Lat: 28.61, Lon: 77.21},
	{Name: "Delhi", State: "Delhi", Lat: 28.70, Lon: 77.10},
	{Name: "Mumbai", State: "Maharashtra", Lat: 19.08, Lon: 72.88},
	{Name: "Pune", State: "Maharashtra", Lat: 18.52, Lon: 73.86},
	{Name: "Nagpur", State: "Maharashtra", Lat: 21.15, Lon: 79.09},
	{Name: "Nashik", State: "Maharashtra", Lat: 20.00, Lon: 73.79},
	{Name: "Lucknow", State: "Uttar Pradesh", Lat: 26.85, Lon: 80.95},
	{Name: "Kanpur", State: "Uttar Pradesh", Lat: 26.45, Lon: 80.33},
	{Name: "Varanasi", State: "Uttar Pradesh", Lat: 25.32, Lon: 82.99},
	{Name: "Patna", State: "Bihar", Lat: 25.59, Lon: 85.14},
	{Name: "Jaipur", State: "Rajasthan", Lat: 26.91, Lon: 75.79},
	{Name: "Jodhpur", State: "Rajasthan", Lat: 26.24, Lon: 73.02},
	{Name: "Ludhiana", State: "Punjab", Lat: 30.90, Lon: 75.85},
	{Name: "Amritsar", State: "Punjab", Lat: 31.63, Lon: 74.87},
	{Name: "Karnal", State: "Haryana", Lat: 29.69, Lon: 76.99},
	{Name: "Hisar", State: "Haryana", Lat: 29.15, Lon: 75.72},
	{Name: "Bhopal", State: "Madhya Pradesh", Lat: 23.26, Lon: 77.41},
	{Name: "Indore", State: "Madhya Pradesh", Lat: 22.72, Lon: 75.86},
	{Name: "Ahmedabad", State: "Gujarat", Lat: 23.02, Lon: 72.57},
	{Name: "Rajkot", State: "Gujarat", Lat: 22.30, Lon: 70.80},
	{Name: "Hyderabad", State: "Telangana", Lat: 17.38, Lon: 78.49},
	{Name: "Guntur", State: "Andhra Pradesh", Lat: 16.31, Lon: 80.44},
	{Name: "Bengaluru", State: "Karnataka", Lat: 12.97, Lon: 77.59},
	{Name: "Coimbatore", State: "Tamil Nadu", Lat: 11.02, Lon: 76.96},
	{Name: "Madurai", State: "Tamil Nadu", Lat: 9.93, Lon: 78.12},
	{Name: "Kolkata", State: "West Bengal", Lat: 22.57, Lon: 88.36},
	{Name: "Bhubaneswar", State: "Odisha", Lat: 20.30, Lon: 85.82},
	{Name: "Chandigarh", State: "Chandigarh", Lat: 30.73, Lon: 76.78},
}

var gazetteerByLength []Place

func init() {
	gazetteerByLength = make([]Place, len(gazetteer))
	copy(gazetteerByLength, gazetteer)
	sort.SliceStable(gazetteerByLength, func(i, j int) bool {
		return len(gazetteerByLength[i].Name) > len(gazetteerByLength[j].Name)
	})
}

// LookupPlace returns the gazetteer entry for an already-resolved location
// name, matched case-insensitively.
func LookupPlace(name string) (Place, bool) {
	lowered := strings.ToLower(name)
	for _, p := range gazetteer {
		if strings.ToLower(p.Name) == lowered {
			return p, true
		}
	}
	return Place{}, false
}

// extractLocation finds a place name in the lowercased text. Exact matches
// are tried longest-first; when none hits, each token is fuzzy-matched
// against the gazetteer within maxDistance edits.
func extractLocation(lowered string, tokens []string, maxDistance int) (place Place, exact bool, ok bool) {
	for _, p := range gazetteerByLength {
		if containsWord(lowered, strings.ToLower(p.Name)) {
			return p, true, true
		}
	}

	if maxDistance <= 0 {
		return Place{}, false, false
	}

	best := Place{}
	bestDist := maxDistance + 1
	params := levenshtein.NewParams()
	for _, tok := range tokens {
		if len(tok) < 4 {
			continue
		}
		for _, p := range gazetteer {
			d := levenshtein.Distance(tok, strings.ToLower(p.Name), params)
			if d > 0 && d < bestDist {
				best = p
				bestDist = d
			}
		}
	}
	if bestDist <= maxDistance {
		return best, false, true
	}
	return Place{}, false, false
}

// containsWord reports whether phrase occurs in text on word boundaries.
func containsWord(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		startOK := start == 0 || !isWordByte(text[start-1])
		endOK := end == len(text) || !isWordByte(text[end])
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
