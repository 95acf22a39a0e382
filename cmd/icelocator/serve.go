package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/icelocator/locator-core/internal/transport"
	"github.com/icelocator/locator-core/pkg/cli"
	"github.com/icelocator/locator-core/pkg/config"
)

var (
	serveHTTPAddr string
	serveStdio    bool
	serveNoHTTP   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tool-invocation transport (stdio and/or HTTP)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http-addr", ":8080", "address for the HTTP surface (search, health, metrics)")
	serveCmd.Flags().BoolVar(&serveStdio, "stdio", false, "serve the newline-delimited JSON operation framing over stdin/stdout")
	serveCmd.Flags().BoolVar(&serveNoHTTP, "no-http", false, "disable the HTTP surface")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()
	a.Start()

	log := newLogger()
	d := transport.NewDispatcher(a)
	ctx := cli.SetupSignalHandler()

	// Hot-reload the config singleton on file change. Collaborators built
	// above keep their snapshot; a reload takes full effect on restart, but
	// the singleton stays current for anything reading config.Get().
	if cfgFile != "" {
		watcher, err := config.NewWatcher(cfgFile, log)
		if err != nil {
			log.Warn("config watcher unavailable", "error", err)
		} else if err := watcher.Start(); err != nil {
			log.Warn("config watcher failed to start", "error", err)
		} else {
			defer watcher.Stop()
		}
	}

	errCh := make(chan error, 2)
	running := 0

	if !serveNoHTTP {
		running++
		srv := &http.Server{
			Addr:    serveHTTPAddr,
			Handler: transport.NewHTTPHandler(a, d, log),
		}
		go func() {
			log.Info("http transport listening", "addr", serveHTTPAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- fmt.Errorf("http: %w", err)
				return
			}
			errCh <- nil
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if serveStdio {
		running++
		stdioSrv := transport.NewStdioServer(d, log)
		go func() {
			log.Info("stdio transport listening")
			errCh <- stdioSrv.Serve(ctx, os.Stdin, os.Stdout)
		}()
	}

	if running == 0 {
		return cli.NewCommandError("serve", fmt.Errorf("at least one of the HTTP or stdio transports must be enabled"))
	}

	for i := 0; i < running; i++ {
		if err := <-errCh; err != nil {
			log.Error("transport exited with error", "error", err)
		}
	}
	return nil
}
