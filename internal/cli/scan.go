package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sentra-scan/sentra/internal/ai"
	"github.com/sentra-scan/sentra/internal/cache"
	"github.com/sentra-scan/sentra/internal/checks"
	"github.com/sentra-scan/sentra/internal/intel"
	"github.com/sentra-scan/sentra/internal/model"
	"github.com/sentra-scan/sentra/internal/pipeline"
	"github.com/sentra-scan/sentra/internal/probe"
	"github.com/sentra-scan/sentra/internal/util"
	"github.com/sentra-scan/sentra/internal/whois"
)

var (
	configID      string
	scanCfgPath   string
	scanTimeout   time.Duration
	outputJSON    bool
	noCache       bool
	cacheDir      string
	blocklistPath string
	noAI          bool
	dnsServer     string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Scan a single URL and report its risk score",
	Long: `Scan probes a URL, runs every enabled risk category, aggregates threat
intelligence, and (when API keys are present) reconciles an AI consensus
verdict into the final score.

Example:
  sentra scan https://example.com
  sentra scan https://suspect.example --config-id strict --json
  sentra scan https://suspect.example --no-ai --timeout 10s`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&configID, "config-id", "", "scan configuration id (default: active configuration)")
	scanCmd.Flags().StringVar(&scanCfgPath, "scan-config", "", "YAML file with a custom scan configuration")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "override the configured scan timeout")
	scanCmd.Flags().BoolVar(&outputJSON, "json", false, "emit the full scan result as JSON")
	scanCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable all caching (force fresh probes and lookups)")
	scanCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "disk cache directory (default: $HOME/.sentra/cache)")
	scanCmd.Flags().StringVar(&blocklistPath, "blocklist", "", "internal blocklist file (default: $HOME/.sentra/blocklist.txt)")
	scanCmd.Flags().BoolVar(&noAI, "no-ai", false, "skip the AI consensus stage")
	scanCmd.Flags().StringVar(&dnsServer, "dns", "", "DNS server host:port (default: resolv.conf)")
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	source, err := newConfigSource()
	if err != nil {
		return err
	}

	cfg, err := resolveConfig(source, configID)
	if err != nil {
		return err
	}
	if scanTimeout > 0 {
		cfg.ScanTimeout = scanTimeout
	}

	orch, err := buildOrchestrator(source, cfg, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	result, err := orch.Scan(ctx, args[0], configID)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printSummary(result)
	return nil
}

// buildOrchestrator wires the cache, probers, runners, threat intel
// aggregator, and AI panel into one scan orchestrator.
func buildOrchestrator(source *pipeline.StaticSource, cfg *model.ScanConfiguration, logger *slog.Logger) (*pipeline.Orchestrator, error) {
	store, err := buildStore(cfg)
	if err != nil {
		return nil, err
	}

	bl, err := intel.NewBlocklist(defaultPath(blocklistPath, "blocklist.txt"))
	if err != nil {
		return nil, fmt.Errorf("loading blocklist: %w", err)
	}

	aggregator, err := intel.New(cfg, bl, store, logger)
	if err != nil {
		return nil, fmt.Errorf("building threat intel aggregator: %w", err)
	}

	runners := checks.DefaultRunners(checks.Deps{
		Whois:      whois.NewClient(10*time.Second, store, cfg.CacheTTL.Whois),
		Resolver:   checks.NewDNSResolver(dnsServer, cfg.Probe.DNSTimeout*4),
		TLSTimeout: cfg.Probe.TCPTimeout,
	})

	var consensus pipeline.Consensus
	if !noAI {
		consensus = buildConsensus(cfg, logger)
	}

	prober := probe.New(cfg.Probe, store, cfg.CacheTTL.Reachability, logger)
	if cfg.HTTP.RespectRobots {
		prober.UseRobots(util.NewRobotsChecker(cfg.Probe.UserAgent, cfg.Probe.HTTPTimeout))
	}

	return pipeline.New(
		source,
		prober,
		runners,
		aggregator,
		consensus,
		store,
		logger,
	), nil
}

// newConfigSource seeds the built-in presets and layers in a custom
// configuration file when --scan-config is set.
func newConfigSource() (*pipeline.StaticSource, error) {
	source := pipeline.NewStaticSource()
	if scanCfgPath != "" {
		custom, err := loadScanConfig(scanCfgPath)
		if err != nil {
			return nil, err
		}
		source.Put(custom)
		if configID == "" {
			configID = custom.ID
		}
	}
	return source, nil
}

func resolveConfig(source *pipeline.StaticSource, id string) (*model.ScanConfiguration, error) {
	ctx := context.Background()
	if id == "" {
		return source.GetActiveConfiguration(ctx)
	}
	return source.GetConfiguration(ctx, id)
}

// buildStore assembles the cache: memory over disk, or nothing at all.
func buildStore(cfg *model.ScanConfiguration) (cache.Store, error) {
	if noCache {
		return cache.Nop{}, nil
	}
	dir := defaultPath(cacheDir, "cache")
	if dir == "" {
		return cache.NewMemoryStore(cfg.CacheTTL.Result, 10*time.Minute), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return cache.NewLayeredStore(cfg.CacheTTL.Result, dir, cfg.CacheTTL.Intel), nil
}

// buildConsensus registers every enabled model whose credentials are
// present. Missing keys skip the model rather than failing the scan.
func buildConsensus(cfg *model.ScanConfiguration, logger *slog.Logger) pipeline.Consensus {
	engine := ai.NewEngine(cfg.AI, logger)

	for _, mc := range cfg.EnabledModels() {
		pc := ai.Config{
			Provider: mc.Provider,
			Model:    mc.Model,
			Timeout:  int(cfg.AI.Timeout / time.Second),
		}
		switch mc.Provider {
		case "openai":
			pc.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic", "claude":
			pc.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "ollama":
			pc.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}

		provider, err := ai.NewProvider(pc)
		if err != nil {
			logger.Warn("AI model skipped", "model", mc.Name, "error", err)
			continue
		}
		engine.Register(mc, provider)
	}

	if engine.ModelCount() == 0 {
		return nil
	}
	return engine
}

func loadScanConfig(path string) (*model.ScanConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scan configuration: %w", err)
	}
	var cfg model.ScanConfiguration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing scan configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan configuration: %w", err)
	}
	return &cfg, nil
}

// defaultPath resolves a flag-provided path, falling back to
// ~/.sentra/<name>. Empty when no home directory exists.
func defaultPath(flag, name string) string {
	if flag != "" {
		return flag
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sentra", name)
}

func printSummary(result *model.ScanResult) {
	fmt.Printf("URL:        %s\n", result.Target.CanonicalURL)
	fmt.Printf("Risk:       %s (%d/%d)\n", result.RiskLevel, result.FinalScore, basePossible(result))
	fmt.Printf("Base score: %d", result.BaseScore)
	if result.Consensus != nil {
		fmt.Printf("  x%.2f (%s, %d/%d models)",
			result.Consensus.Multiplier, result.Consensus.Verdict,
			result.Consensus.RespondedModels, result.Consensus.TotalModels)
	}
	fmt.Println()
	fmt.Printf("Status:     %s (%s pipeline)\n", result.Reachability.Status, result.Reachability.Pipeline)
	if result.Cached {
		fmt.Println("Served from cache.")
	}

	fmt.Println("\nCategories:")
	for _, cat := range result.Categories {
		note := ""
		if cat.Skipped {
			note = " (skipped)"
		}
		fmt.Printf("  %-28s %3d/%d%s\n", cat.Label, cat.Score, cat.MaxScore, note)
	}

	top := result.TopFindings(5)
	if len(top) > 0 {
		fmt.Println("\nTop findings:")
		for _, f := range top {
			fmt.Printf("  [%s] %s (+%d): %s\n", f.Severity, f.CheckID, f.Points, f.Description)
		}
	}
}

func basePossible(result *model.ScanResult) int {
	total := 0
	for _, cat := range result.Categories {
		total += cat.MaxScore
	}
	return total
}
