package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"phonehunt/internal/address"
	"phonehunt/internal/batch"
	"phonehunt/internal/config"
	"phonehunt/internal/history"
	"phonehunt/internal/logging"
	"phonehunt/internal/metrics"
	"phonehunt/internal/notify"
	"phonehunt/internal/pipeline"
	"phonehunt/internal/proxy"
	"phonehunt/internal/search"
	"phonehunt/internal/session"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <input.csv>",
		Short: "Resolve phone numbers for a range of records",
		Long: `Run walks the input CSV in batches and fills the per-role phone and
address-match columns. Records that already carry a phone number are
skipped, so re-running the same file only retries what is still open.

Examples:
  # Process the whole file
  phonehunt run records.csv

  # Process rows 51 through 100 only
  phonehunt run records.csv --start 51 --end 100

  # Larger batches, explicit output
  phonehunt run records.csv -o done.csv --batch-size 25`,
		Args: cobra.ExactArgs(1),
		RunE: runRunCmd,
	}

	cmd.Flags().StringP("output", "o", "", "Output CSV path (default: <input>_with_phones.csv)")
	cmd.Flags().Int("start", 0, "First row to process, 1-based (0 means the first row)")
	cmd.Flags().Int("end", 0, "Last row to process, inclusive (0 means the last row)")
	cmd.Flags().Int("batch-size", 0, "Rows per batch (0 uses the configured size)")
	cmd.Flags().Bool("show-browser", false, "Run the browser with a visible window")

	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	input := args[0]
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = defaultOutputPath(input)
	}
	start, _ := cmd.Flags().GetInt("start")
	end, _ := cmd.Flags().GetInt("end")
	// Fanout workers carry their slice in START_ROW/END_ROW.
	if start == 0 {
		start = cfg.StartRow
	}
	if end == 0 {
		end = cfg.EndRow
	}
	if size, _ := cmd.Flags().GetInt("batch-size"); size > 0 {
		cfg.BatchSize = size
	}
	if show, _ := cmd.Flags().GetBool("show-browser"); show {
		cfg.Headless = false
	}

	log := logging.WithComponent("run")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsPort > 0 {
		metrics.StartMetricsServer(cfg.MetricsPort)
	}

	if cfg.WorkDir != "" {
		if err := os.MkdirAll(cfg.WorkDir, 0750); err != nil {
			return fmt.Errorf("create work dir: %w", err)
		}
	}

	sessions := session.NewManager(cfg.Headless, logging.WithComponent("session"))
	if err := sessions.Start(); err != nil {
		return fmt.Errorf("start browser driver: %w", err)
	}
	defer sessions.Stop()

	searcher := &search.Client{
		BaseURL:           cfg.SearchURL,
		DefaultState:      cfg.DefaultState,
		NavigationTimeout: cfg.NavigationTimeout,
		SelectorTimeout:   cfg.SelectorTimeout,
		ConsentTimeout:    cfg.ConsentTimeout,
		Log:               logging.WithComponent("search"),
	}

	orchestrator := batch.New(batch.Config{
		SearchHost:   cfg.SearchHost(),
		DefaultCity:  cfg.DefaultCity,
		DefaultState: cfg.DefaultState,
		RecordDelay:  cfg.RecordDelay,
	}, buildGatekeeper(cfg), sessions, searcher,
		address.NewNormalizer(cfg.StateAbbrev), logging.WithComponent("batch"))

	var store *history.Store
	if cfg.HistoryDir != "" {
		store, err = history.Open(filepath.Join(cfg.HistoryDir, "runs.db"))
		if err != nil {
			log.Warn().Err(err).Msg("runs ledger unavailable, continuing without history")
			store = nil
		} else {
			defer store.Close()
		}
	}

	xlsxPath := ""
	if cfg.ExportXLSX {
		xlsxPath = strings.TrimSuffix(output, filepath.Ext(output)) + ".xlsx"
	}
	reportPath := ""
	if cfg.ReportDir != "" {
		if err := os.MkdirAll(cfg.ReportDir, 0750); err != nil {
			log.Warn().Err(err).Msg("report directory unavailable, skipping report")
		} else {
			reportPath = filepath.Join(cfg.ReportDir, time.Now().Format("run_20060102_150405")+".md")
		}
	}

	p := pipeline.New(pipeline.WithLogger(logging.WithComponent("pipeline")))
	p.AddSteps(
		pipeline.LoadInput{},
		pipeline.EnsureResultColumns{},
		&pipeline.RunBatches{
			Orchestrator: orchestrator,
			Start:        start,
			End:          end,
			BatchSize:    cfg.BatchSize,
			BatchDelay:   cfg.BatchDelay,
			WorkDir:      cfg.WorkDir,
			Log:          logging.WithComponent("batches"),
		},
		pipeline.WriteCombined{},
		&pipeline.ExportSpreadsheet{Path: xlsxPath, Log: logging.WithComponent("export")},
		&pipeline.WriteRunReport{Path: reportPath, Log: logging.WithComponent("report")},
		&pipeline.RecordHistory{Store: store, Log: logging.WithComponent("history")},
		&pipeline.SendNotification{Notifier: buildNotifier(cfg), Log: logging.WithComponent("notify")},
	)

	state := &pipeline.State{InputPath: input, OutputPath: output, StartedAt: time.Now()}
	if err := p.Execute(ctx, state); err != nil {
		return err
	}

	resolved, skipped, unresolved := state.Totals()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nDone: %d resolved, %d skipped, %d unresolved\n", resolved, skipped, unresolved)
	if state.Aborted() {
		fmt.Fprintln(out, "Run aborted early (no proxy available); partial results were saved.")
	}
	fmt.Fprintf(out, "Output: %s\n", output)
	if reportPath != "" {
		fmt.Fprintf(out, "Report: %s\n", reportPath)
	}
	return nil
}

func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	if ext == "" {
		ext = ".csv"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "_with_phones" + ext
}

// buildGatekeeper picks the proxy provider: a rotating gateway when one
// is configured, otherwise the local pool file.
func buildGatekeeper(cfg *config.Config) proxy.Gatekeeper {
	plog := logging.WithComponent("proxy")
	if cfg.ProxyServer != "" {
		return proxy.NewGateway(cfg.ProxyServer, cfg.ProxyUsername, cfg.ProxyPassword, cfg.ProxyProbeURL, 15*time.Second, plog)
	}
	return proxy.NewPool(cfg.PoolFile, cfg.UsageFile, cfg.ProxyProbeURL, 15*time.Second, plog)
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	var channels notify.Multi
	if cfg.WebhookURL != "" {
		channels = append(channels, notify.NewWebhookNotifier(cfg.WebhookURL, logging.WithComponent("notify")))
	}
	if cfg.EmailEnabled && cfg.SMTPHost != "" && cfg.EmailSender != "" && len(cfg.EmailRecipients) > 0 {
		channels = append(channels, notify.NewEmailNotifier(
			cfg.SMTPHost, cfg.SMTPPort, cfg.EmailSender, cfg.EmailPassword,
			cfg.EmailSender, cfg.EmailRecipients,
		))
	}
	if len(channels) == 0 {
		return notify.Nop{}
	}
	return channels
}
