package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/mtsload/internal/core"
	"github.com/JonMunkholm/mtsload/internal/web"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one ingestion pass over the watched directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.service.Run(core.ContextWithTrigger(ctx, core.TriggerCLI))
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), opts.output, summary)
		},
	}
}

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Mark existing files as already loaded",
		Long: "Records the current line count and modification time of every file in the watched\n" +
			"directories so that only data written afterwards is ingested.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.service.Bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recorded %d files\n", n)
			return nil
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run ingestion passes on a schedule and serve status and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			sched, err := core.NewScheduler(a.service, a.cfg.Schedule.Cron)
			if err != nil {
				return err
			}
			server := web.NewServer(a.service, a.registry, a.cfg.Server)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(server.Start)
			g.Go(func() error { return sched.Start(gctx) })
			g.Go(func() error {
				<-gctx.Done()
				slog.Info("shutting down...")
				return shutdown(server, a.service, a.cfg.Server.ShutdownTimeout)
			})
			return g.Wait()
		},
	}
}

// shutdown stops the status server and waits for an in-flight run.
func shutdown(server *web.Server, svc *core.Service, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if svc.Limiter().Busy() {
		slog.Info("waiting for run to complete")
		if err := svc.Limiter().WaitForDrain(ctx); err != nil {
			slog.Warn("run did not complete in time", "error", err)
		}
	}
	return server.Shutdown(ctx)
}

func newStateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the resume index of every tracked file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closeLog, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer closeLog()

			rs := core.LoadRunState(cfg.State.Dir)
			return printState(cmd.OutOrStdout(), opts.output, rs)
		},
	}
}

func printSummary(w io.Writer, format string, s *core.RunSummary) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATION\tRUN\tOUTCOME\tINSERTED\tREJECTED\tLINES")
	for _, f := range s.Files {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%d\t%d-%d\n",
			f.Path, f.Station, f.RunID, f.Outcome, f.Inserted, f.Rejected, f.From, f.End)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d files, %d rows inserted, %d failed (%s)\n",
		len(s.Files), s.Inserted, s.Count(core.OutcomeLoadFailed)+s.Count(core.OutcomeReadFailed),
		s.Duration.Round(time.Millisecond))
	return err
}

func printState(w io.Writer, format string, rs *core.RunState) error {
	resume := rs.Resume()
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"files":       resume,
			"next_run_id": rs.NextRunID(),
		})
	}

	paths := make([]string, 0, len(resume))
	for p := range resume {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tRESUME")
	for _, p := range paths {
		fmt.Fprintf(tw, "%s\t%d\n", p, resume[p])
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nnext run id: %d\n", rs.NextRunID())
	return err
}
