package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentra-scan/sentra/internal/model"
	"github.com/sentra-scan/sentra/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Scan multiple URLs from a file in parallel",
	Long: `Batch reads URLs from a file (one per line, # comments allowed) and scans
them concurrently against a shared configuration and cache. Each URL gets
its own result; one failing scan never aborts the batch.

Example:
  sentra batch urls.txt
  sentra batch urls.txt --concurrency 10 --output-dir ./results
  sentra batch urls.txt --config-id strict --no-ai --timeout 5m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent scans")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "write one JSON result per URL into this directory")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the whole batch")

	// Shared with the scan command.
	batchCmd.Flags().StringVar(&configID, "config-id", "", "scan configuration id (default: active configuration)")
	batchCmd.Flags().StringVar(&scanCfgPath, "scan-config", "", "YAML file with a custom scan configuration")
	batchCmd.Flags().DurationVar(&scanTimeout, "scan-timeout", 0, "override the configured per-scan timeout")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable all caching (force fresh probes and lookups)")
	batchCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "disk cache directory (default: $HOME/.sentra/cache)")
	batchCmd.Flags().StringVar(&blocklistPath, "blocklist", "", "internal blocklist file (default: $HOME/.sentra/blocklist.txt)")
	batchCmd.Flags().BoolVar(&noAI, "no-ai", false, "skip the AI consensus stage")
	batchCmd.Flags().StringVar(&dnsServer, "dns", "", "DNS server host:port (default: resolv.conf)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	urls, err := readURLFile(args[0])
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("no URLs found in %s", args[0])
	}

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

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Scanning %d URLs with %d workers (config %q)\n\n", len(urls), concurrency, cfg.ID)

	tasks := make([]worker.Task[*model.ScanResult], len(urls))
	for i, raw := range urls {
		tasks[i] = worker.Task[*model.ScanResult]{
			Name: raw,
			Run: func(ctx context.Context) (*model.ScanResult, error) {
				return orch.Scan(ctx, raw, configID)
			},
		}
	}

	settled := worker.JoinAll(ctx, tasks, concurrency)

	success, failed := 0, 0
	for _, s := range settled {
		if s.Aborted() {
			failed++
			fmt.Printf("FAIL  %-50s %v\n", s.Name, s.Err)
			continue
		}
		success++

		result := s.Value
		cached := ""
		if result.Cached {
			cached = " (cached)"
		}
		fmt.Printf("%-9s %-50s %d/%d%s\n",
			result.RiskLevel, result.Target.CanonicalURL, result.FinalScore, basePossible(result), cached)

		if outputDir != "" {
			path := filepath.Join(outputDir, resultFilename(result))
			if err := writeResultJSON(result, path); err != nil {
				fmt.Fprintf(os.Stderr, "writing %s: %v\n", path, err)
			}
		}
	}

	fmt.Fprintf(os.Stderr, "\nDone: %d scanned, %d failed\n", success, failed)
	if outputDir != "" {
		fmt.Fprintf(os.Stderr, "Results written to %s\n", outputDir)
	}
	return nil
}

// readURLFile loads one URL per line, skipping blanks and # comments.
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading URL list: %w", err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading URL list: %w", err)
	}
	return urls, nil
}

// resultFilename derives a filesystem-safe name from the scanned host
// and the short scan id, so repeated hosts never collide.
func resultFilename(result *model.ScanResult) string {
	host := strings.ReplaceAll(result.Target.Hostname, ":", "_")
	id := result.ScanID
	if len(id) > 8 {
		id = id[:8]
	}
	return host + "-" + id + ".json"
}

func writeResultJSON(result *model.ScanResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
