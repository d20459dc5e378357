package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ckanloader/internal/loader"
	"github.com/JonMunkholm/ckanloader/internal/schema"
)

var (
	flagLoadSchema    string
	flagLoadSchemaOut string
)

var loadCmd = &cobra.Command{
	Use:   "load [resource-id]",
	Short: "Upload one resource, or the whole catalog, into the Datastore",
	Long: `load replaces the Datastore table of a resource with the parsed
contents of its file. With a resource ID it loads that one resource; with
no arguments it walks the catalog and loads the first resource of every
package, logging and skipping resources whose data needs correction.

A schema file passed with --schema seeds the resolution with overrides;
any field left out is detected from the data. With --schema-out the fully
resolved schema is written back, also after a data error, so it can be
corrected and used for the retry.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup()
		if err != nil {
			return err
		}
		driver := newDriver(cfg)
		ctx := cmd.Context()

		if len(args) == 0 {
			if flagLoadSchema != "" || flagLoadSchemaOut != "" {
				return errors.New("--schema and --schema-out require a resource id")
			}
			return driver.LoadAll(ctx)
		}

		sch, err := readSchemaFile(flagLoadSchema)
		if err != nil {
			return err
		}

		loadErr := driver.LoadResource(ctx, args[0], sch)

		// The resolved schema is still written after a user-correctable
		// failure: correcting it and retrying is the expected workflow.
		if flagLoadSchemaOut != "" && (loadErr == nil || loader.IsUserError(loadErr)) {
			if err := writeSchemaFile(flagLoadSchemaOut, sch); err != nil {
				if loadErr != nil {
					slog.Error("could not write resolved schema", "error", err)
					return loadErr
				}
				return err
			}
		}
		return loadErr
	},
}

func init() {
	loadCmd.Flags().StringVar(&flagLoadSchema, "schema", "",
		"path of a schema JSON file with overrides")
	loadCmd.Flags().StringVar(&flagLoadSchemaOut, "schema-out", "",
		"write the resolved schema JSON to this path")
	rootCmd.AddCommand(loadCmd)
}

func readSchemaFile(path string) (*schema.Schema, error) {
	sch := &schema.Schema{}
	if path == "" {
		return sch, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	if err := json.Unmarshal(data, sch); err != nil {
		return nil, fmt.Errorf("parse schema file %s: %w", path, err)
	}
	return sch, nil
}

func writeSchemaFile(path string, sch *schema.Schema) error {
	data, err := json.MarshalIndent(sch, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}
	return nil
}
