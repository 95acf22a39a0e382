// Package mockupstream provides an in-process HTTP server that mimics the
// detainee-lookup upstream's GET-form / POST-submit flow closely enough to
// drive internal/pipeline end to end in tests, without a network dependency.
// It is scripted rather than stateful: callers queue up the sequence of
// classifications each stage should return, letting a single test express a
// block-then-recover or a captcha-after-N-attempts scenario directly.
package mockupstream

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Class selects which page shape a scripted Step renders.
type Class string

const (
	ClassForm        Class = "form"
	ClassResults     Class = "results"
	ClassNotFound    Class = "notfound"
	ClassCaptcha     Class = "captcha"
	ClassBlocked     Class = "blocked"
	ClassRateLimited Class = "rate_limited"
	ClassServerError Class = "servererror"
)

// Record is one row the results-page Step renders, in the exact column
// order internal/pipeline.ExtractResults expects.
type Record struct {
	AlienNumber      string
	FullName         string
	DateOfBirth      string
	CountryOfBirth   string
	FacilityName     string
	FacilityLocation string
	CustodyStatus    string
	LastUpdated      string
}

// Step is one scripted response. Delay, if set, is applied before writing
// the response, so retry-budget and timeout paths can be exercised.
type Step struct {
	Class      Class
	StatusCode int
	Records    []Record
	Delay      time.Duration
}

// Server is a scripted mock of the upstream's search form and results
// endpoints, built on httptest.Server.
type Server struct {
	httpServer *httptest.Server

	mu             sync.Mutex
	formScript     []Step
	formIdx        int
	formRequests   int
	submitScript   []Step
	submitIdx      int
	submitRequests int
}

// FormPath and SubmitPath are the fixed routes the server answers, matching
// the defaults internal/pipeline.Config expects.
const (
	FormPath   = "/search"
	SubmitPath = "/search/results"
)

// New starts a mock upstream that serves a plain form on every GET until a
// script is installed with SetFormScript, and answers every submit with the
// no-results page (status 200) until SetSubmitScript is called.
func New() *Server {
	s := &Server{
		formScript:   []Step{{Class: ClassForm, StatusCode: http.StatusOK}},
		submitScript: []Step{{Class: ClassNotFound, StatusCode: http.StatusOK}},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(FormPath, s.handleForm)
	mux.HandleFunc(SubmitPath, s.handleSubmit)
	s.httpServer = httptest.NewServer(mux)
	return s
}

// URL returns the mock server's base URL, suitable for pipeline.Config.BaseURL.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Close shuts the underlying httptest.Server down.
func (s *Server) Close() {
	s.httpServer.Close()
}

// SetFormScript replaces the sequence of responses GET /search will hand
// out, one per request; once exhausted, the last step repeats.
func (s *Server) SetFormScript(steps []Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.formScript = steps
	s.formIdx = 0
}

// SetSubmitScript replaces the sequence of responses POST /search/results
// will hand out, one per request; once exhausted, the last step repeats.
func (s *Server) SetSubmitScript(steps []Step) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitScript = steps
	s.submitIdx = 0
}

// FormRequestCount reports how many GET /search requests have landed.
func (s *Server) FormRequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formRequests
}

// SubmitRequestCount reports how many POST /search/results requests have landed.
func (s *Server) SubmitRequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitRequests
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.formRequests++
	step := nextStep(s.formScript, &s.formIdx)
	token := strconv.Itoa(s.formRequests)
	s.mu.Unlock()

	if step.Delay > 0 {
		time.Sleep(step.Delay)
	}
	writeStep(w, step, formHTML(token))
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.submitRequests++
	step := nextStep(s.submitScript, &s.submitIdx)
	s.mu.Unlock()

	if step.Delay > 0 {
		time.Sleep(step.Delay)
	}
	writeStep(w, step, resultsHTML(step.Records))
}

// nextStep returns script[*idx], clamped to the last entry once the script
// is exhausted, and advances *idx.
func nextStep(script []Step, idx *int) Step {
	if len(script) == 0 {
		return Step{Class: ClassServerError, StatusCode: http.StatusInternalServerError}
	}
	i := *idx
	if i >= len(script) {
		i = len(script) - 1
	} else {
		*idx++
	}
	return script[i]
}

// writeStep renders step onto w. rendered is whichever of formHTML/resultsHTML
// the caller already built for this request (the only two classes that carry
// request-specific content); every other class renders a fixed fixture.
func writeStep(w http.ResponseWriter, step Step, rendered string) {
	status := step.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	switch step.Class {
	case ClassForm, ClassResults:
		w.WriteHeader(status)
		_, _ = w.Write([]byte(rendered))
	case ClassNotFound:
		w.WriteHeader(status)
		_, _ = w.Write([]byte(notFoundHTML()))
	case ClassCaptcha:
		w.WriteHeader(status)
		_, _ = w.Write([]byte(captchaHTML()))
	case ClassBlocked:
		if status == http.StatusOK {
			status = http.StatusForbidden
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(blockedHTML()))
	case ClassRateLimited:
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(blockedHTML()))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error"))
	}
}

// formHTML renders the ASP.NET-shaped form fixture the pipeline tests
// already assume (hidden CSRF/event-validation fields, q_* input names),
// with the CSRF token varied per fetch so replay across attempts is visible
// in assertions.
func formHTML(csrfSuffix string) string {
	return fmt.Sprintf(`<html><body>
<form action="%s" method="post">
  <input type="hidden" name="__RequestVerificationToken" value="tok-%s" />
  <input type="hidden" name="__EVENTVALIDATION" value="ev-%s" />
  <input type="text" name="q_first_name" />
  <input type="text" name="q_last_name" />
  <input type="text" name="q_middle_name" />
  <input type="text" name="q_dob" />
  <select name="q_country">
    <option value="MX">Mexico</option>
    <option value="HN">Honduras</option>
    <option value="GT">Guatemala</option>
    <option value="SV">El Salvador</option>
    <option value="US">United States</option>
  </select>
  <button type="submit" name="q_submit">Search</button>
</form>
</body></html>`, SubmitPath, csrfSuffix, csrfSuffix)
}

func resultsHTML(records []Record) string {
	var rows strings.Builder
	for _, r := range records {
		rows.WriteString("<tr>")
		for _, cell := range []string{
			r.AlienNumber, r.FullName, r.DateOfBirth, r.CountryOfBirth,
			r.FacilityName, r.FacilityLocation, r.CustodyStatus, r.LastUpdated,
		} {
			rows.WriteString("<td>")
			rows.WriteString(cell)
			rows.WriteString("</td>")
		}
		rows.WriteString("</tr>")
	}
	return fmt.Sprintf(`<html><body>
<table class="results">
<tbody>
%s
</tbody>
</table>
</body></html>`, rows.String())
}

func notFoundHTML() string {
	return `<html><body><p>No results found for your search.</p></body></html>`
}

func captchaHTML() string {
	return `<html><body><p>Please verify you are not a robot to continue.</p></body></html>`
}

func blockedHTML() string {
	return `<html><body><p>Access to this resource has been temporarily restricted.</p></body></html>`
}
