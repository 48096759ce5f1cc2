package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/rulecover/internal/report"
	"github.com/papapumpkin/rulecover/internal/server"
	"github.com/papapumpkin/rulecover/internal/ui"
	"github.com/papapumpkin/rulecover/internal/watch"
)

// shutdownTimeout bounds how long in-flight requests may take after a signal.
const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve <rules>",
	Short: "Serve coverage over HTTP",
	Long: `Starts a JSON API answering coverage requests against one transfer file.

  POST /api/cover       {"line": "^the/the<det><def><sp>$^cat/cat<n><sg>$"}
  POST /api/cover/text  {"text": "one line per analysed sentence"}
  GET  /api/rules
  GET  /healthz

With --watch the rules are reloaded when the file changes; a file that fails
to load leaves the previous rules in service.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().Bool("all", false, "answer with every coverage only")
	serveCmd.Flags().Bool("lrlm", false, "answer with LRLM coverages only")
	serveCmd.Flags().Int("workers", 0, "lines covered concurrently per text request")
	serveCmd.Flags().Int("max-coverages", 0, "fail a line with more coverages than this (0: no limit)")
	serveCmd.Flags().String("lemma-source", "", "lemma matched by categories: surface or reading")
	serveCmd.Flags().Bool("watch", false, "reload the rules when the file changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	printer := printerFor(cmd)
	rulesPath := args[0]

	doc, err := loadDocument(rulesPath)
	if err != nil {
		return err
	}
	srv := server.New(buildEngine(doc, cfg), server.Options{
		Mode:        report.Mode(cfg.Mode),
		Workers:     cfg.Workers,
		CORSOrigins: cfg.Serve.CORSOrigins,
	})

	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	if watching, _ := cmd.Flags().GetBool("watch"); watching {
		w, err := watch.NewWatcher(rulesPath)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()
		go reloadOnChange(ctx, w, printer, func() error {
			doc, err := loadDocument(rulesPath)
			if err != nil {
				return err
			}
			srv.SetEngine(buildEngine(doc, cfg))
			return nil
		})
		printer.Watching([]string{rulesPath})
	}

	httpSrv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	printer.Info(fmt.Sprintf("listening on %s", cfg.Serve.Addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// reloadOnChange calls reload after every change reported by w until ctx is
// done. Reload failures are reported and otherwise ignored.
func reloadOnChange(ctx context.Context, w *watch.Watcher, printer ui.UI, reload func() error) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-w.Changes:
			if !ok {
				return
			}
			if err := reload(); err != nil {
				printer.Error(err.Error())
				continue
			}
			printer.Reloaded(change.Path)
		}
	}
}
