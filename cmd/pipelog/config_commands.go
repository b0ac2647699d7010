package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/philipp01105/pipelog/config"
	"github.com/philipp01105/pipelog/sink"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigCheckCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

// sampleSettings is the configuration written by "config init"
func sampleSettings() *config.Settings {
	s := config.Default()
	s.Sources.Slog = true

	console := sink.ConsoleDefaults()
	console.CategoryLevels = map[string]string{"Worker-0": "debug"}
	console.DebugMode = config.DebugModeConfig{MinimumLevel: "debug"}

	file := sink.FileDefaults()
	file.Batching.MaxDelay = config.Duration(500 * time.Millisecond)

	s.Sinks[sink.ConfigKey(sink.ConsoleKind)] = console
	s.Sinks[sink.ConfigKey(sink.FileKind)] = file
	s.Sinks[sink.ConfigKey(sink.ZapKind)] = sink.ZapDefaults()
	return &s
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = defaultConfigPath
			}

			if dir := filepath.Dir(target); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create config directory %q: %w", dir, err)
				}
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			f, err := os.Create(target)
			if err != nil {
				return fmt.Errorf("create config file: %w", err)
			}
			encode := config.Encode
			if config.IsYAML(target) {
				encode = config.EncodeYAML
			}
			if err := encode(f, sampleSettings()); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, path, err := ctx.settings()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration valid: %s (%d sink records)\n", path, len(s.Sinks))
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := ctx.settings()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Tick floor:       %s\n", s.TickFloor)
			fmt.Fprintf(out, "Default category: %s\n", s.DefaultCategory)
			fmt.Fprintf(out, "Sources:          slog=%t stdlog=%t\n", s.Sources.Slog, s.Sources.StdLog)
			if len(s.Sinks) == 0 {
				fmt.Fprintln(out, "No sink records; sinks use their built-in defaults.")
				return nil
			}
			fmt.Fprintln(out, sinkTable(s.Sinks))
			return nil
		},
	}
}

func sinkTable(sinks map[string]config.SinkConfig) string {
	headers := []string{"Key", "Level", "Thread-safe", "Owner dispatch", "Batching", "Debug devices", "Stack trace"}
	var rows [][]string
	for _, key := range slices.Sorted(maps.Keys(sinks)) {
		cfg := sinks[key]
		batching := "off"
		if cfg.Batching.Enabled {
			batching = fmt.Sprintf("%d / %s", cfg.Batching.MaxCount, cfg.Batching.MaxDelay)
		}
		debug := "off"
		if cfg.DebugMode.Enabled {
			debug = strconv.Itoa(len(cfg.DebugMode.AllowedDeviceIDs))
		}
		stack := "off"
		if cfg.StackTrace.MinimumLevel != "" {
			stack = ">= " + cfg.StackTrace.MinimumLevel
			if len(cfg.StackTrace.Categories) > 0 {
				stack += " (" + strings.Join(cfg.StackTrace.Categories, ",") + ")"
			}
		}
		rows = append(rows, []string{
			key,
			levelSummary(cfg),
			strconv.FormatBool(cfg.IsThreadSafe),
			strconv.FormatBool(cfg.DispatchToOwnerThread.Enabled),
			batching,
			debug,
			stack,
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft})
}

func levelSummary(cfg config.SinkConfig) string {
	level := cfg.MinimumLevel
	if level == "" {
		level = "info"
	}
	if len(cfg.CategoryLevels) == 0 {
		return level
	}
	parts := []string{level}
	for _, category := range slices.Sorted(maps.Keys(cfg.CategoryLevels)) {
		parts = append(parts, category+"="+cfg.CategoryLevels[category])
	}
	return strings.Join(parts, " ")
}
