package app

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/projectenv/tools-index/internal/storage"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and, if given, the index file",
		Long: `Check that the configuration loads, that --tools selects known datasources
and, when --index-file is set, that the index file parses and only holds absolute
download URLs. Nothing is fetched.`,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	selected, err := cfg.Select(viper.GetStringSlice("tools"))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	table := tablewriter.NewWriter(out)
	table.Header("Name", "Type", "Constraint")
	for _, ds := range selected {
		if err := table.Append(ds.Name, ds.Type, ds.Constraint); err != nil {
			return fmt.Errorf("failed to render datasources: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render datasources: %w", err)
	}

	indexFile := viper.GetString("index-file")
	if indexFile == "" {
		return nil
	}

	index, err := storage.NewFileStore(indexFile).Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}
	if err := index.Validate(); err != nil {
		return fmt.Errorf("index %s is invalid: %w", indexFile, err)
	}
	_, err = fmt.Fprintf(out, "index %s: %d urls\n", indexFile, index.Len())
	return err
}
