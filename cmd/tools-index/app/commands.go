// Package app provides the cobra commands of the tools-index CLI.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/projectenv/tools-index/internal/config"
	"github.com/projectenv/tools-index/internal/versions"
)

// DebugLevel is the zap level slog debug records are emitted at through zapr.
const DebugLevel = zapcore.Level(-4)

// NewRootCmd creates the root command. The level is raised to debug when --debug is set.
func NewRootCmd(level zap.AtomicLevel) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "tools-index",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Generate and serve the tools download index",
		Long: `tools-index aggregates the download URLs of JDKs, build tools and runtimes
from their upstream release feeds into a single validated JSON index.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if viper.GetBool("debug") {
				level.SetLevel(DebugLevel)
			}
		},
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.Bool("debug", false, "Enable debug mode")
	flags.String("config", "", "Path to configuration file (YAML format)")
	flags.String("index-file", "", "Path of the v2 index file")
	flags.String("legacy-index-file", "", "Path of the legacy v1 index file")
	flags.String("github-token", "", "GitHub token used by the GitHub datasources")
	flags.StringSlice("tools", nil, "Datasources to run (default all enabled)")
	bindFlags(flags, "debug", "config", "index-file", "legacy-index-file", "github-token", "tools")

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// bindFlags binds the named flags to viper keys of the same name.
func bindFlags(flags *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetBuildInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to read format flag: %w", err)
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "tools-index %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
