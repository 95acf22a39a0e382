package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/icelocator/locator-core/internal/testutil/mockupstream"
)

func TestStdioServeRoundTrip(t *testing.T) {
	upstream := mockupstream.New()
	t.Cleanup(upstream.Close)
	upstream.SetFormScript([]mockupstream.Step{{Class: mockupstream.ClassForm}})
	upstream.SetSubmitScript([]mockupstream.Step{{Class: mockupstream.ClassNotFound}})

	a := testApp(t, upstream)
	d := NewDispatcher(a)
	srv := NewStdioServer(d, discardLogger())

	params, _ := json.Marshal(SearchByAlienNumberRequest{AlienNumber: "A999999999"})
	line, _ := json.Marshal(stdioRequest{ID: "req-1", Operation: OpSearchByAlienNumber, Params: params})

	in := bytes.NewBufferString(string(line) + "\n")
	var out bytes.Buffer

	if err := srv.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	var resp stdioResponse
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (output: %s)", err, out.String())
	}
	if resp.ID != "req-1" {
		t.Errorf("ID = %q, want req-1", resp.ID)
	}
	if resp.Error != nil {
		t.Errorf("Error = %+v, want nil", resp.Error)
	}
	if resp.Result == nil {
		t.Error("Result is nil, want a response envelope")
	}
}

func TestStdioServeMalformedLineDoesNotStopTheLoop(t *testing.T) {
	upstream := mockupstream.New()
	t.Cleanup(upstream.Close)
	upstream.SetFormScript([]mockupstream.Step{{Class: mockupstream.ClassForm}})
	upstream.SetSubmitScript([]mockupstream.Step{{Class: mockupstream.ClassNotFound}})

	a := testApp(t, upstream)
	d := NewDispatcher(a)
	srv := NewStdioServer(d, discardLogger())

	goodParams, _ := json.Marshal(SearchByAlienNumberRequest{AlienNumber: "A999999999"})
	goodLine, _ := json.Marshal(stdioRequest{ID: "ok", Operation: OpSearchByAlienNumber, Params: goodParams})

	in := strings.NewReader("{not valid json\n" + string(goodLine) + "\n")
	var out bytes.Buffer

	if err := srv.Serve(context.Background(), in, &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d response lines, want 2: %q", len(lines), out.String())
	}

	var first stdioResponse
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if first.Error == nil {
		t.Error("first response should carry a validation error for the malformed line")
	}

	var second stdioResponse
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode second line: %v", err)
	}
	if second.ID != "ok" || second.Error != nil {
		t.Errorf("second response = %+v, want a clean success for id=ok", second)
	}
}
