package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"edgarfeed/internal/dispatch"
	"edgarfeed/internal/edgar"
	"edgarfeed/internal/logging"
	"edgarfeed/internal/preflight"
	"edgarfeed/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var fromFlag, toFlag string
	var inProcess bool
	var repad bool
	var workers int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Download and index daily feed archives",
		Long: "Download each business day's feed archive between --from and --to " +
			"(inclusive, YYYYMMDD) and index every submission it contains.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("in-process") {
				cfg.Workers.InProcess = inProcess
			}
			if workers > 0 {
				cfg.Workers.Count = workers
			}

			from, to, err := parseDayRange(fromFlag, toFlag, time.Now())
			if err != nil {
				return err
			}

			if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
				parts := make([]string, 0, len(failed))
				for _, r := range failed {
					parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
				}
				return fmt.Errorf("preflight failed: %s", strings.Join(parts, "; "))
			}

			rt, err := ctx.runtime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			if bind := strings.TrimSpace(cfg.Metrics.Bind); bind != "" {
				go func() {
					if err := rt.Metrics.Serve(cmd.Context(), bind, rt.Logger); err != nil {
						rt.Logger.Warn("metrics listener stopped",
							logging.Error(err),
							logging.String(logging.FieldEventType, "metrics_listener_failed"),
							logging.String(logging.FieldErrorHint, "check metrics.bind"),
						)
					}
				}()
			}

			orch := workflow.NewOrchestrator(rt, workflow.NewHTTPFetcher(cfg, rt.Logger), rt.Dispatcher(dispatch.WithRepad(repad)))
			summary, runErr := orch.Run(cmd.Context(), from, to)

			out := cmd.OutOrStdout()
			if len(summary.Days) > 0 {
				fmt.Fprintln(out, renderSummary(summary, shouldColorize(out)))
			}
			fmt.Fprintf(out, "Indexed %d, missing %d, abandoned %d\n",
				summary.Count(workflow.DayIndexed),
				summary.Count(workflow.DayMissing),
				summary.Count(workflow.DayAbandoned),
			)
			if runErr != nil {
				return runErr
			}
			if abandoned := summary.Abandoned(); len(abandoned) > 0 {
				return fmt.Errorf("abandoned days: %s", strings.Join(abandoned, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "First day to ingest (YYYYMMDD, default today)")
	cmd.Flags().StringVar(&toFlag, "to", "", "Last day to ingest (YYYYMMDD, default --from)")
	cmd.Flags().BoolVar(&inProcess, "in-process", false, "Run parse workers as goroutines")
	cmd.Flags().BoolVar(&repad, "repad", false, "Write full-width UUENCODE text beside extracted binary documents")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Override workers.count")
	return cmd
}

func parseDayRange(fromValue, toValue string, now time.Time) (time.Time, time.Time, error) {
	from := edgar.Truncate(now)
	if v := strings.TrimSpace(fromValue); v != "" {
		day, err := time.Parse(edgar.DayLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from %q: expected YYYYMMDD", v)
		}
		from = day
	}
	to := from
	if v := strings.TrimSpace(toValue); v != "" {
		day, err := time.Parse(edgar.DayLayout, v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to %q: expected YYYYMMDD", v)
		}
		to = day
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s is before --from %s", to.Format(edgar.DayLayout), from.Format(edgar.DayLayout))
	}
	return from, to, nil
}

func renderSummary(summary workflow.Summary, colorize bool) string {
	headers := []string{"Day", "Status", "Attempts", "Archive", "Files", "OK", "Failed", "Timed out", "Documents", "Slowest"}
	rows := make([][]string, 0, len(summary.Days))
	for _, day := range summary.Sorted() {
		archive := "-"
		if day.Archive.Bytes > 0 {
			archive = humanize.Bytes(uint64(day.Archive.Bytes))
		}
		slowest := "-"
		if day.Stats.Slowest.File != "" {
			slowest = fmt.Sprintf("%s (%s)", day.Stats.Slowest.File, day.Stats.Slowest.Elapsed.Round(time.Millisecond))
		}
		rows = append(rows, []string{
			day.Day,
			statusLabel(day.Status, day.Status != workflow.DayAbandoned, colorize),
			strconv.Itoa(day.Attempts),
			archive,
			strconv.Itoa(day.Stats.Files),
			strconv.Itoa(day.Stats.OK),
			strconv.Itoa(day.Stats.Failed),
			strconv.Itoa(day.Stats.TimedOut),
			humanize.Comma(int64(day.Stats.Documents)),
			slowest,
		})
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft}
	return renderTable(headers, rows, aligns)
}
