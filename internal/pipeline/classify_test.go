package pipeline

import (
	"net/http"
	"testing"

	"github.com/icelocator/locator-core/pkg/model"
)

func TestClassifyResponseResultsTable(t *testing.T) {
	body := `<html><body><table class="results-table"><tr><th>Alien Number</th></tr><tr><td>A123456789</td></tr></table></body></html>`
	if got := ClassifyResponse(http.StatusOK, body); got != model.ClassResults {
		t.Fatalf("got %v, want results", got)
	}
}

func TestClassifyResponseNotFound(t *testing.T) {
	body := `<html><body><div class="banner">No results found for your search.</div></body></html>`
	if got := ClassifyResponse(http.StatusOK, body); got != model.ClassNotFound {
		t.Fatalf("got %v, want not_found", got)
	}
}

func TestClassifyResponseCaptcha(t *testing.T) {
	body := `<html><body><div>Please complete the CAPTCHA to continue</div></body></html>`
	if got := ClassifyResponse(http.StatusOK, body); got != model.ClassCaptcha {
		t.Fatalf("got %v, want captcha", got)
	}
}

func TestClassifyResponseBlocked403(t *testing.T) {
	body := `<html><body>Forbidden</body></html>`
	if got := ClassifyResponse(http.StatusForbidden, body); got != model.ClassBlocked {
		t.Fatalf("got %v, want blocked", got)
	}
}

func TestClassifyResponseRateLimited429(t *testing.T) {
	body := `<html><body><p>Access to this resource has been temporarily restricted.</p></body></html>`
	if got := ClassifyResponse(http.StatusTooManyRequests, body); got != model.ClassRateLimited {
		t.Fatalf("got %v, want rate_limited distinct from blocked", got)
	}
}

func TestExtractResultsDefensiveParsing(t *testing.T) {
	body := `<table class="results-table"><tbody>
		<tr><td>A123456789</td><td>John Doe</td><td>1990-01-15</td><td>Mexico</td><td>Houston Center</td><td>Houston, TX</td><td>In Custody</td><td>2024-03-01</td></tr>
		<tr><td>A987654321</td><td> Jane Smith </td><td></td><td>Honduras</td><td></td><td></td><td></td><td></td></tr>
	</tbody></table>`

	records, err := ExtractResults(body)
	if err != nil {
		t.Fatalf("ExtractResults: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].DateOfBirth != "1990-01-15" {
		t.Fatalf("got dob %q, want 1990-01-15", records[0].DateOfBirth)
	}
	if records[1].FullName != "Jane Smith" {
		t.Fatalf("got name %q, want trimmed Jane Smith", records[1].FullName)
	}
	if records[1].DateOfBirth != "" {
		t.Fatalf("got dob %q, want empty string not null sentinel", records[1].DateOfBirth)
	}
}
