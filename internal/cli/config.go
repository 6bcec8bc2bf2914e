package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sentra-scan/sentra/internal/model"
)

var showPreset string

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage scan configurations",
	Long: `Inspect the built-in scan configuration presets or write one out as a
starting point for a custom configuration.

Configuration hierarchy (highest to lowest priority):
  1. CLI flags
  2. Environment variables (SENTRA_*)
  3. Config file (~/.sentra/config.yaml)
  4. Built-in presets`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a scan configuration preset as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := presetByID(showPreset)
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshaling configuration: %w", err)
		}
		fmt.Print(string(data))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default preset to ~/.sentra/scan-config.yaml",
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dir := filepath.Join(home, ".sentra")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}

		path := filepath.Join(dir, "scan-config.yaml")
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists; remove it first", path)
		}

		data, err := yaml.Marshal(model.DefaultConfiguration())
		if err != nil {
			return fmt.Errorf("marshaling configuration: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		fmt.Printf("Wrote %s\n", path)
		fmt.Println("Edit it and pass --scan-config to use it.")
		return nil
	},
}

var configPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in configuration presets",
	Run: func(cmd *cobra.Command, args []string) {
		for _, cfg := range []*model.ScanConfiguration{
			model.DefaultConfiguration(),
			model.StrictConfiguration(),
			model.PermissiveConfiguration(),
		} {
			fmt.Printf("%-12s %s (critical >= %d, high >= %d, medium >= %d, low >= %d)\n",
				cfg.ID, cfg.Name,
				cfg.Thresholds.Critical, cfg.Thresholds.High,
				cfg.Thresholds.Medium, cfg.Thresholds.Low)
		}
	},
}

func init() {
	configShowCmd.Flags().StringVar(&showPreset, "preset", "default", "preset id (default, strict, permissive)")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPresetsCmd)
	rootCmd.AddCommand(configCmd)
}

func presetByID(id string) (*model.ScanConfiguration, error) {
	switch id {
	case "default", "":
		return model.DefaultConfiguration(), nil
	case "strict":
		return model.StrictConfiguration(), nil
	case "permissive":
		return model.PermissiveConfiguration(), nil
	default:
		return nil, fmt.Errorf("unknown preset %q (available: default, strict, permissive)", id)
	}
}
