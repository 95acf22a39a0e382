package pipeline

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/icelocator/locator-core/pkg/model"
)

// resultColumns is the expected column order of the upstream results
// table. Unknown extra columns beyond this are ignored, not errors.
var resultColumns = []string{
	"alien_number", "full_name", "date_of_birth", "country_of_birth",
	"facility_name", "facility_location", "custody_status", "last_updated",
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "Jan 2, 2006", "January 2, 2006"}

// ExtractResults parses the results table into Records, defensively
// per-column: names trimmed, dates normalized to ISO, empty cells become
// "" rather than a null sentinel.
func ExtractResults(body string) ([]model.Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	table := doc.Find(`table[class*="results"]`).First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return nil, nil
	}

	var records []model.Record
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return // header row
		}
		values := make([]string, 0, cells.Length())
		cells.Each(func(_ int, cell *goquery.Selection) {
			values = append(values, strings.TrimSpace(cell.Text()))
		})
		records = append(records, rowToRecord(values))
	})
	return records, nil
}

func rowToRecord(values []string) model.Record {
	get := func(i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}

	rec := model.Record{
		AlienNumber:      get(0),
		FullName:         get(1),
		DateOfBirth:      normalizeDate(get(2)),
		CountryOfBirth:   get(3),
		FacilityName:     get(4),
		FacilityLocation: get(5),
		CustodyStatus:    get(6),
		LastUpdated:      normalizeDate(get(7)),
	}
	return rec
}

func normalizeDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}
