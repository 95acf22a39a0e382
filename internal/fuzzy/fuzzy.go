// Package fuzzy scores and ranks candidate records against a search query:
// phonetic and edit-distance name comparison with cultural-variant
// expansion, date-of-birth tolerance windows, and country aliasing,
// composed into a single weighted confidence.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/icelocator/locator-core/pkg/model"
	"github.com/icelocator/locator-core/pkg/textnorm"
)

const (
	weightName    = 0.6
	weightDOB     = 0.3
	weightCountry = 0.1
)

// countryAliases maps a normalized alias to its canonical country name,
// so e.g. "mexico" and "estados unidos mexicanos" both resolve the same.
var countryAliases = map[string]string{
	"mexico":                     "mexico",
	"estados unidos mexicanos":   "mexico",
	"honduras":                   "honduras",
	"republica de honduras":      "honduras",
	"guatemala":                  "guatemala",
	"el salvador":                "el salvador",
	"republica de el salvador":   "el salvador",
	"usa":                        "united states",
	"us":                         "united states",
	"united states of america":   "united states",
	"united states":              "united states",
}

// Ranked is one scored candidate, returned in descending-confidence order.
type Ranked struct {
	Record     model.Record
	Confidence float64
}

// Options configures one Rank call.
type Options struct {
	Language            model.Language
	ConfidenceThreshold float64
	DateToleranceDays   int
}

// Rank scores each candidate against query and returns them filtered to
// Confidence >= threshold, sorted descending, with a stable tie-break by
// earliest original position.
func Rank(query model.SearchQuery, candidates []model.Record, opts Options) []Ranked {
	if len(candidates) == 0 {
		return nil
	}

	type scoredIdx struct {
		ranked Ranked
		pos    int
	}
	scored := make([]scoredIdx, 0, len(candidates))

	for i, c := range candidates {
		confidence := scoreCandidate(query, c, opts)
		scored = append(scored, scoredIdx{Ranked{Record: withConfidence(c, confidence), Confidence: confidence}, i})
	}

	filtered := scored[:0]
	for _, s := range scored {
		if s.ranked.Confidence >= opts.ConfidenceThreshold {
			filtered = append(filtered, s)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].ranked.Confidence != filtered[j].ranked.Confidence {
			return filtered[i].ranked.Confidence > filtered[j].ranked.Confidence
		}
		return filtered[i].pos < filtered[j].pos
	})

	out := make([]Ranked, len(filtered))
	for i, s := range filtered {
		out[i] = s.ranked
	}
	return out
}

func withConfidence(r model.Record, confidence float64) model.Record {
	c := confidence
	r.Confidence = &c
	return r
}

func scoreCandidate(query model.SearchQuery, candidate model.Record, opts Options) float64 {
	nameScore := nameSimilarity(query, candidate, opts.Language)
	dobScore := dobSimilarity(query.DateOfBirth, candidate.DateOfBirth, opts.DateToleranceDays)
	countryScore := countrySimilarity(query.CountryOfBirth, candidate.CountryOfBirth)

	total := weightName*nameScore + weightDOB*dobScore + weightCountry*countryScore
	if total < 0 {
		total = 0
	}
	if total > 1 {
		total = 1
	}
	return total
}

// nameSimilarity takes the max over every available comparison method,
// across every cultural-variant expansion of the query's given name and
// both surname orderings. Comparisons run on FoldLower'd text, so the
// es-language diacritic stripping happens uniformly here while the caller
// keeps the original glyphs for output.
func nameSimilarity(query model.SearchQuery, candidate model.Record, lang model.Language) float64 {
	candidateFull := candidate.FullName

	best := 0.0
	firstVariants := nameVariants(query.FirstName)
	if len(firstVariants) == 0 {
		firstVariants = []string{textnorm.FoldLower(query.FirstName)}
	}
	surnameVariantsList := surnameOrderings(query.LastName)

	candidateParts := strings.Fields(textnorm.FoldLower(candidateFull))
	candidateSoundex := Soundex(candidateFull)
	candidateMeta := Metaphone(candidateFull)

	for _, fv := range firstVariants {
		for _, lv := range surnameVariantsList {
			combined := strings.TrimSpace(fv + " " + lv)

			if r := levenshteinRatio(combined, textnorm.FoldLower(candidateFull)); r > best {
				best = r
			}
			if r := jaroWinklerSimilarity(fv, firstOf(candidateParts)); r > best {
				best = r
			}
			if r := jaroWinklerSimilarity(lv, lastOf(candidateParts)); r > best {
				best = r
			}
			if Soundex(combined) == candidateSoundex && candidateSoundex != "" {
				if 0.85 > best {
					best = 0.85
				}
			}
			if Metaphone(combined) == candidateMeta && candidateMeta != "" {
				if 0.85 > best {
					best = 0.85
				}
			}
		}
	}

	if best > 1 {
		best = 1
	}
	return best
}

func firstOf(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

func lastOf(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// dobSimilarity: equal -> 1.0; within tolerance window -> linearly decaying
// to 0.5; else 0.0.
func dobSimilarity(queryDOB time.Time, candidateDOBStr string, toleranceDays int) float64 {
	if queryDOB.IsZero() || candidateDOBStr == "" {
		return 0.0
	}
	candidateDOB, err := time.Parse("2006-01-02", candidateDOBStr)
	if err != nil {
		return 0.0
	}

	diffDays := math.Abs(queryDOB.Sub(candidateDOB).Hours() / 24)
	if diffDays == 0 {
		return 1.0
	}
	if toleranceDays <= 0 {
		return 0.0
	}
	if diffDays > float64(toleranceDays) {
		return 0.0
	}
	// Linear decay from 1.0 at diff=0 (already handled) down to 0.5 at
	// diff=toleranceDays.
	return 1.0 - 0.5*(diffDays/float64(toleranceDays))
}

// countrySimilarity: exact normalized -> 1.0; alias match -> 0.9; else 0.0.
func countrySimilarity(query, candidate string) float64 {
	q := textnorm.FoldLower(strings.TrimSpace(query))
	c := textnorm.FoldLower(strings.TrimSpace(candidate))
	if q == "" || c == "" {
		return 0.0
	}
	if q == c {
		return 1.0
	}
	qCanon, qOK := countryAliases[q]
	cCanon, cOK := countryAliases[c]
	if qOK && cOK && qCanon == cCanon {
		return 0.9
	}
	return 0.0
}

// CountryAliases exposes the normalized-alias-to-canonical-name table for
// callers that need to recognize a country mention outside of record
// ranking, e.g. free-text query parsing.
func CountryAliases() map[string]string {
	out := make(map[string]string, len(countryAliases))
	for k, v := range countryAliases {
		out[k] = v
	}
	return out
}
