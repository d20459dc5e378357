package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ckanloader/internal/loader"
)

var flagResolveSchema string

var resolveCmd = &cobra.Command{
	Use:   "resolve <resource-id>",
	Short: "Resolve a resource's loading schema without uploading",
	Long: `resolve runs the same detection a load would run, prints the
resolved schema JSON to stdout, and touches nothing in the Datastore. When
the data itself is the problem, the partially resolved schema is printed
anyway: it is the thing to correct before retrying.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		driver := newDriver(cfg)

		sch, err := readSchemaFile(flagResolveSchema)
		if err != nil {
			return err
		}

		resolveErr := driver.ResolveResource(cmd.Context(), args[0], sch)
		if resolveErr != nil && !loader.IsUserError(resolveErr) {
			return resolveErr
		}

		data, err := json.MarshalIndent(sch, "", "  ")
		if err != nil {
			return fmt.Errorf("encode schema: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return resolveErr
	},
}

func init() {
	resolveCmd.Flags().StringVar(&flagResolveSchema, "schema", "",
		"path of a schema JSON file with overrides")
	rootCmd.AddCommand(resolveCmd)
}
