package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/icelocator/locator-core/internal/transport"
	"github.com/icelocator/locator-core/pkg/cli"
)

var (
	bulkInputPath     string
	bulkMaxConcurrent int
	bulkStopOnError   bool
)

var bulkSearchCmd = &cobra.Command{
	Use:   "bulk-search",
	Short: "Run a batch of searches read from a JSON file (or stdin with --input -)",
	RunE:  runBulkSearch,
}

func init() {
	bulkSearchCmd.Flags().StringVar(&bulkInputPath, "input", "-", "path to a JSON file containing {\"searches\": [...]}, or - for stdin")
	bulkSearchCmd.Flags().IntVar(&bulkMaxConcurrent, "max-concurrent", 3, "maximum concurrent searches (clamped to [1,5])")
	bulkSearchCmd.Flags().BoolVar(&bulkStopOnError, "stop-on-error", false, "abort remaining searches after the first error")
	bulkSearchCmd.Flags().StringVar(&searchOutputFormat, "output", "json", "output format: json, text, or csv")
	rootCmd.AddCommand(bulkSearchCmd)
}

func runBulkSearch(cmd *cobra.Command, args []string) error {
	raw, err := readBulkInput()
	if err != nil {
		return cli.NewCommandError("bulk-search", err)
	}

	var req transport.BulkSearchRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return cli.NewCommandError("bulk-search", fmt.Errorf("decode input: %w", err))
	}
	req.MaxConcurrent = bulkMaxConcurrent
	req.StopOnError = bulkStopOnError

	params, err := json.Marshal(req)
	if err != nil {
		return cli.NewCommandError("bulk-search", err)
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(int64(len(req.Searches)))

	d := transport.NewDispatcher(a)
	result, errEnv := d.Dispatch(context.Background(), transport.OpBulkSearch, params)
	if errEnv != nil {
		progress.Error(fmt.Errorf("%s: %s", errEnv.Error.Kind, errEnv.Error.Message))
		return cli.NewCommandError("bulk-search", fmt.Errorf("%s: %s", errEnv.Error.Kind, errEnv.Error.Message))
	}
	progress.Update(int64(len(req.Searches)))
	progress.Finish()

	return writeOutput(cmd, result)
}

func readBulkInput() ([]byte, error) {
	if bulkInputPath == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(bulkInputPath)
}
