package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// stdioRequest is a single line of newline-delimited JSON read from stdin:
// {"id": "...", "operation": "search_by_name", "params": {...}}.
type stdioRequest struct {
	ID        string          `json:"id,omitempty"`
	Operation string          `json:"operation"`
	Params    json.RawMessage `json:"params"`
}

// stdioResponse mirrors the request's ID back alongside the dispatched
// result, so a caller pipelining multiple lines can match replies up.
type stdioResponse struct {
	ID     string `json:"id,omitempty"`
	Result any    `json:"result,omitempty"`
	Error  any    `json:"error,omitempty"`
}

// StdioServer reads one JSON object per line from in, dispatches it, and
// writes one JSON object per line to out. It never closes either stream;
// the caller owns their lifetime (typically os.Stdin/os.Stdout).
type StdioServer struct {
	dispatcher *Dispatcher
	log        *slog.Logger
}

// NewStdioServer builds a StdioServer over a Dispatcher.
func NewStdioServer(d *Dispatcher, log *slog.Logger) *StdioServer {
	if log == nil {
		log = slog.Default()
	}
	return &StdioServer{dispatcher: d, log: log}
}

// Serve blocks, processing one request per input line until in reaches EOF
// or ctx is cancelled. Malformed lines produce an error response rather
// than terminating the loop, so one bad line doesn't kill the session.
func (s *StdioServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req stdioRequest
		if err := json.Unmarshal(line, &req); err != nil {
			_ = enc.Encode(stdioResponse{Error: ErrorDTO{Kind: "validation", Message: fmt.Sprintf("malformed request: %v", err)}})
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		result, errEnv := s.dispatcher.Dispatch(ctx, req.Operation, req.Params)
		resp := stdioResponse{ID: req.ID}
		if errEnv != nil {
			resp.Error = errEnv.Error
		} else {
			resp.Result = result
		}
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
