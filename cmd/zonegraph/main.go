package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"zonegraph/internal/adapter"
	"zonegraph/internal/codec"
	"zonegraph/internal/config"
	"zonegraph/internal/loader"
	"zonegraph/internal/logging"
	"zonegraph/internal/report"
	"zonegraph/internal/repository/sqlite"
	"zonegraph/internal/service"
)

type options struct {
	input       string
	configPath  string
	dbPath      string
	concurrency int
	zonesDir    string
	noDump      bool
	results     string
	backend     string
	preflight   bool
	registrar   bool
	writeConfig string
	exportFmt   string
	exportFile  string
	importFile  string
	verbose     bool
}

func newFlagSet(opts *options) *flag.FlagSet {
	flags := flag.NewFlagSet("zonegraph", flag.ContinueOnError)
	flags.StringVarP(&opts.input, "input", "i", config.DefaultInput, "domain list (one per line, or .yaml with a domains list)")
	flags.StringVar(&opts.configPath, "config", "", "config file (default: search path)")
	flags.StringVar(&opts.writeConfig, "write-config", "", "save the effective config here and exit")
	flags.Lookup("write-config").NoOptDefVal = config.DefaultConfigPath()
	flags.StringVar(&opts.dbPath, "db", "", "SQLite graph database path")
	flags.IntVarP(&opts.concurrency, "concurrency", "c", 0, "number of domains scanned in parallel")
	flags.StringVar(&opts.zonesDir, "zones-dir", "", "directory for transferred zone files")
	flags.BoolVar(&opts.noDump, "no-dump", false, "do not write transferred zones to disk")
	flags.StringVar(&opts.results, "results", "", "append one JSON result per domain to this file")
	flags.StringVar(&opts.backend, "backend", "", "registration backend (whois, rdap)")
	flags.BoolVar(&opts.preflight, "preflight", false, "check the DNS port with nmap before each transfer")
	flags.BoolVar(&opts.registrar, "registrar", false, "record the registrar of each domain")
	flags.StringVar(&opts.exportFmt, "export", "", "export the graph (yaml, json) and exit")
	flags.StringVar(&opts.exportFile, "export-file", "", "write the export here instead of stdout")
	flags.StringVar(&opts.importFile, "import", "", "merge a graph export into the database and exit")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	return flags
}

func main() {
	var opts options
	flags := newFlagSet(&opts)
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, cfgPath, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg, flags, &opts)

	logger := logging.New(cfg.Log.Level, os.Stderr)
	if cfgPath != "" {
		logger.Debug().Str("path", cfgPath).Msg("config loaded")
	}
	for _, line := range strings.Split(cfg.Summary(), "\n") {
		logger.Debug().Msg(line)
	}

	if flags.Changed("write-config") {
		if err := cfg.Save(opts.writeConfig); err != nil {
			logger.Error().Err(err).Msg("write config failed")
			os.Exit(1)
		}
		logger.Info().Str("path", opts.writeConfig).Msg("config written")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, &opts, logger); err != nil {
		logger.Error().Err(err).Msg("zonegraph failed")
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

// applyFlags overrides config values with explicitly set flags
func applyFlags(cfg *config.Config, flags *flag.FlagSet, opts *options) {
	if flags.Changed("input") {
		cfg.Input = opts.input
	}
	if flags.Changed("db") {
		cfg.Database.Path = opts.dbPath
	}
	if flags.Changed("concurrency") && opts.concurrency > 0 {
		cfg.Scan.Concurrency = opts.concurrency
	}
	if flags.Changed("zones-dir") {
		cfg.Dump.Dir = opts.zonesDir
	}
	if opts.noDump {
		cfg.Dump.Enabled = false
	}
	if flags.Changed("results") {
		cfg.Results.Path = opts.results
	}
	if flags.Changed("backend") {
		cfg.Enrichment.Backend = opts.backend
	}
	if opts.preflight {
		cfg.Scan.Preflight = true
	}
	if opts.registrar {
		cfg.Enrichment.Registrar = true
	}
	if opts.verbose && cfg.Log.Level == config.DefaultLogLevel {
		cfg.Log.Level = "debug"
	}
}

func run(ctx context.Context, cfg *config.Config, opts *options, logger zerolog.Logger) error {
	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()
	logger.Debug().Str("path", cfg.Database.Path).Msg("database opened")

	switch {
	case opts.exportFmt != "":
		return exportGraph(ctx, repo, opts.exportFmt, opts.exportFile)
	case opts.importFile != "":
		return importGraph(ctx, repo, opts.importFile, logger)
	}

	domains, err := loader.LoadDomains(cfg.Input)
	if err != nil {
		return err
	}
	logger.Info().Int("domains", len(domains)).Str("input", cfg.Input).Msg("domain list loaded")

	resolver, err := adapter.NewNSResolver(cfg.Scan.Resolvers, cfg.Scan.NSTimeout.Duration())
	if err != nil {
		return fmt.Errorf("ns resolver: %w", err)
	}
	logger.Debug().Strs("resolvers", resolver.Servers()).Msg("ns resolver ready")

	axfr := adapter.NewAXFRProbe(cfg.Scan.TransferTimeout.Duration()).WithPort(cfg.Scan.Port)
	var probe service.TransferProbe = axfr
	if cfg.Scan.Preflight {
		preflightLogger := logger.With().Str("component", "preflight").Logger()
		preflight := adapter.NewNmapPreflight(
			adapter.WithTimeout(cfg.Scan.TransferTimeout.Duration()),
			adapter.WithPort(cfg.Scan.Port),
			adapter.WithSkipHostDiscovery(cfg.Scan.PreflightSkipDiscovery),
			adapter.WithNmapLogger(preflightLogger),
		)
		if preflight.Available(ctx) {
			probe = adapter.NewPreflightProbe(axfr, preflight).WithLogger(preflightLogger)
		} else {
			logger.Warn().Msg("nmap not available, preflight disabled")
		}
	}

	source, err := adapter.DefaultRegistry().New(cfg.Enrichment.Backend, adapter.SourceOptions{
		Timeout:       cfg.Enrichment.Timeout.Duration(),
		RDAPEndpoints: cfg.Enrichment.RDAPEndpoints,
	})
	if err != nil {
		return err
	}
	enricher := adapter.NewEnricher(source,
		adapter.WithRateLimit(cfg.Enrichment.RateLimit, cfg.Enrichment.Burst),
		adapter.WithCache(cfg.Enrichment.Cache),
		adapter.WithLookupTimeout(cfg.Enrichment.Timeout.Duration()),
		adapter.WithEnricherLogger(logger.With().Str("component", "enrich").Logger()),
	)

	bus := service.NewEventBus()
	console := report.NewConsole(os.Stdout, opts.verbose)
	waits := []<-chan struct{}{bus.Attach(console.Handle)}

	var resultLog *report.ResultLog
	if cfg.Results.Path != "" {
		resultLog, err = report.OpenResultLog(cfg.Results.Path)
		if err != nil {
			return err
		}
		waits = append(waits, bus.Attach(resultLog.Handle))
	}

	scanOpts := []service.ScannerOption{
		service.WithEventBus(bus),
		service.WithLogger(logger.With().Str("component", "scanner").Logger()),
	}
	if cfg.Dump.Enabled {
		scanOpts = append(scanOpts, service.WithZoneDumper(adapter.NewZoneWriter(cfg.Dump.Dir)))
	}
	if cfg.Enrichment.Registrar {
		scanOpts = append(scanOpts, service.WithRegistrar(adapter.NewRegistrarLookup(cfg.Enrichment.Timeout.Duration())))
	}

	builder := service.NewGraphBuilder(repo)
	scanner := service.NewScanner(builder, resolver, probe, enricher, scanOpts...)

	summary := scanner.Run(ctx, domains, cfg.Scan.Concurrency)

	bus.Close()
	for _, done := range waits {
		<-done
	}
	if resultLog != nil {
		if err := resultLog.Close(); err != nil {
			logger.Warn().Err(err).Msg("result log incomplete")
		}
	}

	if cfg.Enrichment.Cache {
		logger.Debug().Int("registrations", enricher.CacheSize()).Msg("enrichment cache")
	}
	console.PrintSummary(summary)
	if opts.verbose {
		if fragment, err := repo.ExportFragment(ctx); err == nil {
			console.PrintGraphCounts(fragment)
		}
	}
	return nil
}

func exportGraph(ctx context.Context, repo *sqlite.Repository, format, path string) error {
	exporter, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	fragment, err := repo.ExportFragment(ctx)
	if err != nil {
		return err
	}

	if path == "" {
		return exporter.Export(fragment, os.Stdout)
	}
	return writeFile(path, func(w io.Writer) error {
		return exporter.Export(fragment, w)
	})
}

// writeFile creates path and fills it with write. A failed close is an
// error: the export may not have reached the disk.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	return nil
}

func importGraph(ctx context.Context, repo *sqlite.Repository, path string, logger zerolog.Logger) error {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "json"
	}
	importer, err := codec.ForFormat(format)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	fragment, err := importer.Parse(f)
	if err != nil {
		return err
	}
	nodes, edges, err := codec.Restore(ctx, repo, fragment)
	if err != nil {
		return err
	}
	logger.Info().Int("nodes", nodes).Int("edges", edges).Str("path", path).Msg("graph imported")
	return nil
}
