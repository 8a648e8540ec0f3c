// Command fieldcheck runs the directional field pipeline on a procedural mesh
// and prints a YAML report.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	configPath string
	outPath    string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "fieldcheck",
		Short: "Design, match and comb directional fields on procedural meshes",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline described by a YAML config",
		RunE:  runRun,
	}

	shapesCmd = &cobra.Command{
		Use:   "shapes",
		Short: "List the built-in meshes",
		Run: func(cmd *cobra.Command, args []string) {
			for _, s := range shapeDescriptions {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", s.Name, s.Description)
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	runCmd.Flags().StringVarP(&configPath, "config", "c", "fieldcheck.yaml", "pipeline config file")
	runCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the report here instead of stdout")
	rootCmd.AddCommand(runCmd, shapesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	report, err := runPipeline(cfg, slog.Default())
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if outPath == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	slog.Info("report written", "path", outPath)
	return nil
}
