package pipeline

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/icelocator/locator-core/pkg/textnorm"
)

// ParsedForm is the extracted shape of the upstream's search form: every
// hidden field preserved verbatim, the detected CSRF token, the resolved
// submit action URL, and the country <select>'s option list (label ->
// value) when the form carries one.
type ParsedForm struct {
	Action         string
	Method         string
	Hidden         map[string]string
	CSRFField      string
	CSRFToken      string
	FieldNames     FieldNameMap
	CountryOptions []CountryOption
}

// CountryOption is one <option> of the form's country select: the
// user-visible label and the value attribute that must actually be POSTed.
type CountryOption struct {
	Label string
	Value string
}

// FieldNameMap resolves the visible input name the upstream form actually
// uses for each logical search field, so callers never hardcode a name.
type FieldNameMap struct {
	FirstName      string
	LastName       string
	MiddleName     string
	DateOfBirth    string
	CountryOfBirth string
	AlienNumber    string
	FacilityName   string
	City           string
	State          string
	ZipCode        string
	FacilityType   string
	ActiveOnly     string
	Submit         string
}

// csrfNamePatterns are well-known CSRF hidden-field name shapes.
var csrfNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^__requestverificationtoken$`),
	regexp.MustCompile(`(?i)csrf`),
	regexp.MustCompile(`(?i)^__eventvalidation$`),
	regexp.MustCompile(`(?i)^__viewstate$`),
	regexp.MustCompile(`(?i)authenticity_token`),
}

// ErrFormNotFound is returned by ParseSearchForm when no candidate form
// matches either the action-URL heuristic or the field-set fallback.
var ErrFormNotFound = fmt.Errorf("pipeline: search form not found")

// ParseSearchForm locates the search form in an HTML document by a
// resilient selector: prefer a form whose action contains one of
// actionHints, falling back to the form with the most hidden inputs, a
// heuristic for "the form carrying state."
func ParseSearchForm(body io.Reader, actionHints []string) (*ParsedForm, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse html: %w", err)
	}

	forms := doc.Find("form")
	if forms.Length() == 0 {
		return nil, ErrFormNotFound
	}

	var best *goquery.Selection
	bestHiddenCount := -1
	hinted := false
	forms.Each(func(_ int, f *goquery.Selection) {
		action, _ := f.Attr("action")
		for _, hint := range actionHints {
			if hint != "" && strings.Contains(strings.ToLower(action), strings.ToLower(hint)) {
				best = f
				hinted = true
				return
			}
		}
		if hinted {
			return // already matched by action hint
		}
		hiddenCount := f.Find(`input[type="hidden"]`).Length()
		if hiddenCount > bestHiddenCount {
			bestHiddenCount = hiddenCount
			sel := f
			best = sel
		}
	})
	if best == nil {
		return nil, ErrFormNotFound
	}

	action, _ := best.Attr("action")
	method, _ := best.Attr("method")
	if method == "" {
		method = "POST"
	}

	pf := &ParsedForm{
		Action: action,
		Method: strings.ToUpper(method),
		Hidden: make(map[string]string),
	}

	best.Find(`input[type="hidden"]`).Each(func(_ int, in *goquery.Selection) {
		name, _ := in.Attr("name")
		if name == "" {
			return
		}
		value, _ := in.Attr("value")
		pf.Hidden[name] = value
		if pf.CSRFField == "" {
			for _, pattern := range csrfNamePatterns {
				if pattern.MatchString(name) {
					pf.CSRFField = name
					pf.CSRFToken = value
					break
				}
			}
		}
	})

	pf.FieldNames = resolveFieldNames(best)
	if pf.FieldNames.CountryOfBirth != "" {
		best.Find(fmt.Sprintf(`select[name="%s"] option`, pf.FieldNames.CountryOfBirth)).Each(func(_ int, opt *goquery.Selection) {
			value, _ := opt.Attr("value")
			pf.CountryOptions = append(pf.CountryOptions, CountryOption{
				Label: strings.TrimSpace(opt.Text()),
				Value: value,
			})
		})
	}
	return pf, nil
}

// ResolveCountry matches free-text country input against the form's option
// list, case- and accent-insensitively, returning the value to POST. A form
// with a free-text country input (no option list) passes the input through
// unchanged; a select with no matching option is a validation failure
// surfaced before any HTTP submit.
func (pf *ParsedForm) ResolveCountry(freeText string) (string, error) {
	if len(pf.CountryOptions) == 0 {
		return freeText, nil
	}
	target := textnorm.FoldLower(strings.TrimSpace(freeText))
	for _, opt := range pf.CountryOptions {
		if textnorm.FoldLower(opt.Label) == target {
			return opt.Value, nil
		}
	}
	return "", fmt.Errorf("pipeline: no country option matches %q", freeText)
}

// resolveFieldNames maps the form's visible inputs to the logical search
// fields SearchQuery carries, by substring heuristics on each input's name
// attribute (the
// upstream's literal field names are not contractually stable, so this
// never hardcodes a single expected name).
func resolveFieldNames(form *goquery.Selection) FieldNameMap {
	var names FieldNameMap
	form.Find(`input:not([type="hidden"]), select, button[type="submit"], input[type="submit"]`).Each(func(_ int, in *goquery.Selection) {
		name, _ := in.Attr("name")
		if name == "" {
			return
		}
		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "first") && names.FirstName == "":
			names.FirstName = name
		case strings.Contains(lower, "last") && names.LastName == "":
			names.LastName = name
		case strings.Contains(lower, "middle") && names.MiddleName == "":
			names.MiddleName = name
		case (strings.Contains(lower, "dob") || strings.Contains(lower, "birth_date") || strings.Contains(lower, "dateofbirth")) && names.DateOfBirth == "":
			names.DateOfBirth = name
		case strings.Contains(lower, "country") && names.CountryOfBirth == "":
			names.CountryOfBirth = name
		case (strings.Contains(lower, "alien") || strings.Contains(lower, "anumber") || strings.Contains(lower, "a_number")) && names.AlienNumber == "":
			names.AlienNumber = name
		case strings.Contains(lower, "facility") && strings.Contains(lower, "type") && names.FacilityType == "":
			names.FacilityType = name
		case strings.Contains(lower, "facility") && names.FacilityName == "":
			names.FacilityName = name
		case strings.Contains(lower, "city") && names.City == "":
			names.City = name
		case strings.Contains(lower, "state") && names.State == "":
			names.State = name
		case (strings.Contains(lower, "zip") || strings.Contains(lower, "postal")) && names.ZipCode == "":
			names.ZipCode = name
		case strings.Contains(lower, "active") && names.ActiveOnly == "":
			names.ActiveOnly = name
		case isSubmitLike(in) && names.Submit == "":
			names.Submit = name
		}
	})
	return names
}

func isSubmitLike(s *goquery.Selection) bool {
	if goquery.NodeName(s) == "button" {
		t, _ := s.Attr("type")
		return t == "submit" || t == ""
	}
	t, _ := s.Attr("type")
	return t == "submit"
}
