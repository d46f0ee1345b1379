package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/red1oon/ADUI"
	"github.com/red1oon/ADUI/internal/devserver"
	"github.com/red1oon/ADUI/pkg/collector"
	"github.com/red1oon/ADUI/pkg/config"
	"github.com/red1oon/ADUI/pkg/monitor"
	"github.com/red1oon/ADUI/pkg/providers/jsonimport"
	"github.com/red1oon/ADUI/pkg/schema"
	"github.com/red1oon/ADUI/pkg/validation"
)

func (a *app) windowsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "windows",
		Short: "List the windows the configured provider offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stack, err := a.openStack(cmd.Context())
			if err != nil {
				return err
			}
			defer stack.Close()

			summaries, err := stack.Provider.GetAvailableWindows(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, s.WindowType)
			}
			return tw.Flush()
		},
	}
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <windowId>",
		Short: "Print a window definition as canonical JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := a.openStack(cmd.Context())
			if err != nil {
				return err
			}
			defer stack.Close()

			window, err := stack.Provider.GetWindowDefinition(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), window)
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Run the import pipeline on a window document and print its diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := jsonimport.New(jsonimport.WithLogger(a.logger), jsonimport.WithHTTPSources(true))
			out := cmd.OutOrStdout()

			report := func(window schema.WindowDefinition, err error) {
				for _, d := range p.Diagnostics() {
					status := "ok"
					if !d.Success {
						status = "FAILED"
					}
					fmt.Fprintf(out, "%-22s %-6s %s\n", d.Stage, status, d.Details)
				}
				if err == nil {
					fmt.Fprintf(out, "imported %s (%d tabs)\n", window.ID, len(window.Tabs))
				}
			}

			if watch || a.cfg.WatchImport {
				return p.Watch(cmd.Context(), args[0], func(window schema.WindowDefinition, err error) {
					report(window, err)
				})
			}
			window, err := p.ImportFile(cmd.Context(), args[0])
			report(window, err)
			return err
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-import whenever the file changes")
	return cmd
}

func (a *app) fillCmd() *cobra.Command {
	var useCEL bool
	cmd := &cobra.Command{
		Use:   "fill <windowId>",
		Short: "Fill a window interactively and save the record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if useCEL {
				a.cfg.DisplayLogic = config.DisplayLogicCEL
			}
			evaluator, err := adui.NewEvaluator(a.cfg)
			if err != nil {
				return err
			}
			stack, err := a.openStack(cmd.Context())
			if err != nil {
				return err
			}
			defer stack.Close()

			window, err := stack.Provider.GetWindowDefinition(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			c := collector.New(
				collector.WithPromptDriver(a.driver),
				collector.WithReferences(stack.Provider),
				collector.WithEvaluator(evaluator),
				collector.WithLogger(a.logger),
			)
			record, err := c.Collect(cmd.Context(), window)
			if err != nil {
				return err
			}
			if result := validation.Record(window, record, evaluator); !result.Valid {
				printIssues(cmd.OutOrStdout(), result)
				return result.Err()
			}
			saved, err := stack.Provider.SaveFormData(cmd.Context(), window.ID, record)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved record %s for %s (%d values)\n", saved.RecordID, saved.WindowID, len(saved.Values))
			return nil
		},
	}
	cmd.Flags().BoolVar(&useCEL, "cel", false, "evaluate display logic as CEL expressions (same as --display-logic cel)")
	return cmd
}

func (a *app) validateCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a window document without importing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			result := validation.Document(cmd.Context(), raw, nil)
			out := cmd.OutOrStdout()
			if asJSON {
				if err := printJSON(out, result); err != nil {
					return err
				}
			} else if result.Valid {
				fmt.Fprintf(out, "%s: valid\n", args[0])
			} else {
				printIssues(out, result)
			}
			return result.Err()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printIssues(w io.Writer, result validation.Result) {
	for _, issue := range result.Issues {
		where := issue.Path
		if issue.Field != "" {
			where = issue.Field
		}
		if where == "" {
			where = "-"
		}
		fmt.Fprintf(w, "%-20s %s\n", where, issue.Message)
	}
}

func (a *app) serveCmd() *cobra.Command {
	var (
		addr string
		dir  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve window documents from a directory over the backend HTTP surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := devserver.New(devserver.WithLogger(a.logger))
			if err := server.LoadDir(dir); err != nil {
				return err
			}
			a.logger.Info("dev backend listening", "addr", addr, "dir", dir)
			return server.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&dir, "dir", ".", "directory of window documents")
	return cmd
}

func (a *app) monitorCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Poll the configured provider and report connection state changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			reg := prometheus.NewRegistry()

			stack, err := a.openStack(ctx,
				adui.WithRegisterer(reg),
				adui.OnStateChange(func(tr monitor.Transition) {
					fmt.Fprintf(out, "%s %s -> %s (%s)\n", tr.At.Format(time.RFC3339), tr.From, tr.To, tr.Provider)
				}),
			)
			if err != nil {
				return err
			}
			defer stack.Close()

			if once {
				fmt.Fprintln(out, stack.Monitor.Check(ctx))
				return nil
			}
			if a.cfg.MetricsAddr != "" {
				go a.serveMetrics(ctx, reg)
			}
			return stack.Monitor.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single health check and print the state")
	return cmd
}

func (a *app) serveMetrics(ctx context.Context, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: a.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	a.logger.Info("metrics listening", "addr", a.cfg.MetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("metrics server stopped", "error", err)
	}
}
