package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-catalog-sync/apiclient"
	"github.com/aluiziolira/go-catalog-sync/config"
	"github.com/aluiziolira/go-catalog-sync/extract"
	"github.com/aluiziolira/go-catalog-sync/health"
	"github.com/aluiziolira/go-catalog-sync/models"
	"github.com/aluiziolira/go-catalog-sync/quota"
	"github.com/aluiziolira/go-catalog-sync/scraper"
	"github.com/aluiziolira/go-catalog-sync/selectors"
	"github.com/aluiziolira/go-catalog-sync/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

// healthSampleCount is how many stored records the health check samples.
const healthSampleCount = 5

func main() {
	defaultCfg := config.DefaultConfig()
	pagesDefault := defaultCfg.PageBudget
	if value, ok, err := config.EnvInt("SYNC_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SYNC_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		pagesDefault = value
	}
	dbDefault := defaultCfg.DBPath
	if value, ok := config.EnvString("SYNC_DB"); ok {
		dbDefault = value
	}
	baseURLDefault := defaultCfg.BaseURL
	if value, ok := config.EnvString("SYNC_BASE_URL"); ok {
		baseURLDefault = value
	}
	delayDefault := defaultCfg.PageDelay
	if value, ok, err := config.EnvDuration("SYNC_PAGE_DELAY"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SYNC_PAGE_DELAY: %v\n", err)
		os.Exit(1)
	} else if ok {
		delayDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SYNC_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	apiBaseDefault := defaultCfg.APIBaseURL
	if value, ok := config.EnvString("SYNC_API_BASE_URL"); ok {
		apiBaseDefault = value
	}

	pages := flag.Int("pages", pagesDefault, "Listing pages to process before pausing")
	dbPath := flag.String("db", dbDefault, "Path to the sqlite database")
	baseURL := flag.String("base-url", baseURLDefault, "Catalog base URL")
	delay := flag.Duration("delay", delayDefault, "Delay between page fetches")
	selectorsFile := flag.String("selectors", "", "YAML file overriding built-in selectors")
	schedule := flag.String("schedule", "", "Cron expression to run continuously (e.g. '0 */4 * * *')")
	healthCheck := flag.Bool("health", false, "Run a selector health check instead of a sync")
	enrich := flag.Int("enrich", 0, "Enrich up to N stored records from their detail pages")
	apiQuery := flag.String("api-query", "", "Ingest via the quota-gated product API for this search query instead of scraping")
	apiBaseURL := flag.String("api-base-url", apiBaseDefault, "Product API base URL")
	exportFile := flag.String("export", "", "Export all stored records to a JSONL file and exit")
	triggerFile := flag.String("trigger-file", "", "JSON trigger payload file (serverless invocation shim)")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.PageBudget = *pages
	cfg.DBPath = *dbPath
	cfg.BaseURL = *baseURL
	cfg.PageDelay = *delay
	cfg.SelectorsFile = *selectorsFile
	cfg.MetricsAddr = *metricsAddr
	cfg.ExportFile = *exportFile
	cfg.APIBaseURL = *apiBaseURL
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if *triggerFile != "" {
		raw, err := os.ReadFile(*triggerFile)
		if err != nil {
			slog.Error("reading trigger payload", slog.Any("error", err))
			os.Exit(1)
		}
		trig, body, err := scraper.ParseTrigger(raw)
		if err != nil {
			slog.Error("trigger payload invalid", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("trigger accepted",
			slog.Int("attributes", len(trig.Attributes)),
			slog.Int("body_bytes", len(body)),
		)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		slog.Error("opening store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("close store", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current page")
	}()

	if cfg.ExportFile != "" {
		count, err := store.Export(ctx, db, cfg.ExportFile)
		if err != nil {
			slog.Error("export failed", slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("export complete", slog.Int("records", count), slog.String("file", cfg.ExportFile))
		return
	}

	registry := selectors.DefaultRegistry()
	if cfg.SelectorsFile != "" {
		if err := selectors.LoadFile(registry, cfg.SelectorsFile); err != nil {
			slog.Error("loading selector overrides", slog.Any("error", err))
			os.Exit(1)
		}
	}

	metrics := scraper.NewMetrics()
	fetcher, err := scraper.NewFetcher(cfg, metrics)
	if err != nil {
		slog.Error("initialising fetcher", slog.Any("error", err))
		os.Exit(1)
	}
	extractor, err := extract.New(registry, extract.Options{
		BaseURL:    cfg.BaseURL,
		DetailPath: cfg.DetailPagePath,
	})
	if err != nil {
		slog.Error("initialising extractor", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	writer := store.NewUpsertWriter(db, cfg.StalenessWindow)
	orch := scraper.NewOrchestrator(cfg, fetcher, extractor, db, writer, metrics)

	exitCode := 0
	switch {
	case *healthCheck:
		exitCode = runHealthCheck(ctx, db, cfg, registry, fetcher, metrics)
	case *apiQuery != "":
		exitCode = runAPIIngest(ctx, cfg, writer, metrics, *apiQuery, *pages)
	case *enrich > 0:
		result, err := orch.EnrichDetails(ctx, db, *enrich)
		if err != nil {
			slog.Error("enrichment failed", slog.Any("error", err))
			exitCode = 1
		} else {
			slog.Info("enrichment complete",
				slog.Int("updated", result.Updated),
				slog.Int("unchanged", result.Unchanged),
			)
		}
	case *schedule != "":
		exitCode = runScheduled(ctx, orch, *schedule)
	default:
		start := time.Now()
		result, err := orch.Run(ctx)
		if err != nil {
			slog.Error("sync run failed", slog.Any("error", err))
			exitCode = 1
		} else {
			printSummary(result, time.Since(start))
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}
	os.Exit(exitCode)
}

// runAPIIngest pulls search pages from the product API under the quota
// governor and syncs them through the same writer as the scrape path.
func runAPIIngest(ctx context.Context, cfg *config.Config, writer *store.UpsertWriter, metrics *scraper.Metrics, query string, maxPages int) int {
	gov := quota.New(cfg.DailyQuota, cfg.HourlyQuota, cfg.QuotaTimezone)
	api := apiclient.New(cfg.APIBaseURL, gov, cfg.APIPageSize, cfg.Timeout)
	api.Metrics = metrics

	result, err := api.Ingest(ctx, writer, query, maxPages)
	snap := gov.Snapshot()
	slog.Info("api ingestion finished",
		slog.Int("pages", result.Pages),
		slog.Int("items", result.ItemsSeen),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("unchanged", result.Unchanged),
		slog.Int("skipped", result.Skipped),
		slog.Int("quota_daily_used", snap.DailyUsed),
		slog.Int("quota_daily_limit", snap.DailyLimit),
	)
	if err != nil {
		slog.Error("api ingestion failed", slog.String("query", query), slog.Any("error", err))
		return 1
	}
	return 0
}

// runScheduled runs the orchestrator on a cron schedule until a signal
// arrives. Overlapping runs are prevented by the cursor claim, so a slow run
// simply makes the next tick a skip.
func runScheduled(ctx context.Context, orch *scraper.Orchestrator, schedule string) int {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		result, err := orch.Run(ctx)
		if err != nil {
			slog.Error("scheduled run failed", slog.Any("error", err))
			return
		}
		slog.Info("scheduled run finished",
			slog.String("outcome", string(result.Outcome)),
			slog.Int("pages", result.Pages),
			slog.Int("items", result.ItemsSeen),
		)
	})
	if err != nil {
		slog.Error("invalid cron expression", slog.String("schedule", schedule), slog.Any("error", err))
		return 1
	}

	slog.Info("scheduler started", slog.String("schedule", schedule))
	c.Start()
	<-ctx.Done()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return 0
}

// runHealthCheck samples recently stored records' detail pages and reports
// selector drift. At critical risk it attempts an automatic narrow to the
// still-working selector set.
func runHealthCheck(ctx context.Context, db *store.Store, cfg *config.Config, registry *selectors.Registry, fetcher *scraper.Fetcher, metrics *scraper.Metrics) int {
	records, err := db.AllRecords(ctx)
	if err != nil {
		slog.Error("loading records for sampling", slog.Any("error", err))
		return 1
	}
	if len(records) == 0 {
		slog.Error("no stored records to sample, run a sync first")
		return 1
	}
	var urls []string
	for _, rec := range records {
		urls = append(urls, cfg.DetailPageURL(rec.ID))
		if len(urls) == healthSampleCount {
			break
		}
	}

	monitor := health.NewMonitor(registry, fetcher, urls, metrics)
	report, err := monitor.Check(ctx)
	if err != nil {
		slog.Error("health check failed", slog.Any("error", err))
		return 1
	}
	printHealthReport(report)

	if report.RiskLevel == models.RiskCritical {
		repaired, err := monitor.AutoRepair(report)
		if err != nil {
			slog.Warn("auto-repair declined", slog.Any("error", err))
		} else {
			slog.Info("auto-repair narrowed fields", slog.Any("fields", repaired))
		}
	}
	if report.RiskLevel == models.RiskHigh || report.RiskLevel == models.RiskCritical {
		return 1
	}
	return 0
}

func printSummary(result *models.RunResult, duration time.Duration) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Sync run: " + string(result.Outcome))
	fmt.Printf("  Pages:       %d\n", result.Pages)
	fmt.Printf("  Items seen:  %d\n", result.ItemsSeen)
	fmt.Printf("  Created:     %d\n", result.Created)
	fmt.Printf("  Updated:     %d\n", result.Updated)
	fmt.Printf("  Unchanged:   %d\n", result.Unchanged)
	fmt.Printf("  Skipped:     %d\n", result.SkippedRecords)
	if result.Error != "" {
		fmt.Printf("  Error:       %s\n", result.Error)
	}
	fmt.Printf("  Duration:    %v\n", duration)
	fmt.Println(separator)
}

func printHealthReport(report *models.HealthReport) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Printf("Selector health: %.0f%% (%s risk, %d pages sampled)\n",
		report.OverallHealth*100, report.RiskLevel, report.SampledURLs)
	for _, field := range report.PerField {
		marker := " "
		if field.Degraded {
			marker = "!"
		}
		fmt.Printf("  %s %-18s %3.0f%% (%d/%d)\n",
			marker, field.Field, field.SuccessRate*100, field.Success, field.Total)
	}
	for _, rec := range report.Recommendations {
		fmt.Printf("  > %s\n", rec)
	}
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
