package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/icelocator/locator-core/pkg/model"
)

// maxHashInput bounds how much of the normalized query text gets hashed,
// as a safeguard against unbounded input growth.
const maxHashInput = 1024 * 1024

// Fingerprint derives a stable, non-reversible cache key from a normalized
// query. It never embeds the raw PII fields, only their SHA-256 digest, so
// a leaked cache directory listing discloses nothing about who was
// searched for.
func Fingerprint(q model.SearchQuery) string {
	n := q.Normalize()
	var b strings.Builder
	fmt.Fprintf(&b, "kind=%s;", n.Kind)

	switch n.Kind {
	case model.QueryByName:
		fmt.Fprintf(&b, "first=%s;last=%s;middle=%s;dob=%s;country=%s;",
			strings.ToLower(n.FirstName), strings.ToLower(n.LastName), strings.ToLower(n.MiddleName),
			n.DateOfBirth.Format("2006-01-02"), strings.ToLower(n.CountryOfBirth))
	case model.QueryByAlienNumber:
		fmt.Fprintf(&b, "alien=%s;", n.AlienNumber)
	case model.QueryByFacility:
		fmt.Fprintf(&b, "facility=%s;city=%s;state=%s;zip=%s;type=%s;active=%t;",
			strings.ToLower(n.FacilityName), strings.ToLower(n.City), strings.ToLower(n.State),
			n.ZipCode, strings.ToLower(n.FacilityType), n.ActiveOnly)
	case model.QueryNatural:
		fmt.Fprintf(&b, "raw=%s;", strings.ToLower(n.RawQuery))
	}
	fmt.Fprintf(&b, "fuzzy=%t;threshold=%.4f;lang=%s", n.Fuzzy, n.ConfidenceThreshold, n.Language)

	return hashString(b.String())
}

func hashString(s string) string {
	data := []byte(s)
	if len(data) > maxHashInput {
		data = data[:maxHashInput]
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
