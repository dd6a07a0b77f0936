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
	"strings"

	"github.com/spf13/cobra"

	"github.com/eslsoft/wordladder/internal/infrastructure/catalogfile"
)

// dbInitCmd creates the schema and optionally loads a word catalog file.
var dbInitCmd = &cobra.Command{
	Use:   "db-init",
	Short: "Create the database schema and load the word catalog",
	Long:  "Creates the tables and indexes. With --catalog, the given xlsx or csv file is imported into the words table. go-sqlite3 needs CGO_ENABLED=1.",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalogPath, _ := cmd.Flags().GetString("catalog")
		sheet, _ := cmd.Flags().GetString("sheet")

		storage, cleanup, err := openStorage(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		storage.Logger.Info("database schema ready")

		if strings.TrimSpace(catalogPath) == "" {
			return nil
		}
		result, err := catalogfile.Import(cmd.Context(), storage.Catalog, catalogfile.ImportConfig{
			FilePath:  catalogPath,
			SheetName: sheet,
		})
		if err != nil {
			return fmt.Errorf("import catalog: %w", err)
		}
		printImportResult(cmd, result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbInitCmd)
	dbInitCmd.Flags().String("catalog", "", "catalog file to import (xlsx or csv)")
	dbInitCmd.Flags().String("sheet", "", "xlsx sheet name (default: first sheet)")
}

func printImportResult(cmd *cobra.Command, result *catalogfile.ImportResult) {
	cmd.Printf("catalog rows: %d processed, %d imported, %d skipped\n", result.TotalProcessed, result.Imported, result.Skipped)
	for _, msg := range result.Errors {
		cmd.PrintErrln(msg)
	}
}
