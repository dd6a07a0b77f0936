/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eslsoft/wordladder/internal/infrastructure/catalogfile"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the word catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Upsert words from an xlsx or csv file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sheet, _ := cmd.Flags().GetString("sheet")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		cfg := catalogfile.ImportConfig{FilePath: args[0], SheetName: sheet}

		if dryRun {
			words, result, err := catalogfile.ReadWords(cfg)
			if err != nil {
				return fmt.Errorf("read catalog: %w", err)
			}
			printImportResult(cmd, result)
			cmd.Printf("%d words would be imported\n", len(words))
			return nil
		}

		storage, cleanup, err := openStorage(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := catalogfile.Import(cmd.Context(), storage.Catalog, cfg)
		if err != nil {
			return fmt.Errorf("import catalog: %w", err)
		}
		printImportResult(cmd, result)
		return nil
	},
}

var catalogTiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "List catalog tiers in unlock order with word counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		storage, cleanup, err := openStorage(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		tiers, err := storage.Catalog.ListTiers(cmd.Context())
		if err != nil {
			return err
		}
		for _, tier := range tiers {
			words, err := storage.Catalog.ListByTier(cmd.Context(), tier)
			if err != nil {
				return err
			}
			cmd.Printf("%s\t%d\n", tier, len(words))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd, catalogTiersCmd)

	catalogImportCmd.Flags().String("sheet", "", "xlsx sheet name (default: first sheet)")
	catalogImportCmd.Flags().Bool("dry-run", false, "parse the file without writing")
}
