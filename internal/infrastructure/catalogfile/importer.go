// Package catalogfile reads word catalog spreadsheets (xlsx or csv) and loads
// them into the catalog store.
package catalogfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/eslsoft/wordladder/internal/entity"
	"github.com/eslsoft/wordladder/internal/repository"
)

// Recognized header names. The header row is required; unknown columns are
// ignored.
const (
	colID              = "id"
	colText            = "text"
	colDefinition      = "definition"
	colPartOfSpeech    = "part_of_speech"
	colTier            = "tier"
	colDifficulty      = "difficulty"
	colPosition        = "position"
	colExampleSentence = "example_sentence"
)

var headerAliases = map[string]string{
	"word":    colText,
	"pos":     colPartOfSpeech,
	"example": colExampleSentence,
	"level":   colTier,
}

var ErrMissingColumn = errors.New("catalog file is missing a required column")

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath  string // xlsx or csv file
	SheetName string // xlsx sheet, defaults to the first sheet
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Imported       int
	Skipped        int
	Errors         []string
}

// ReadWords parses the file into catalog words. Rows without text or tier are
// skipped and reported in the result.
func ReadWords(cfg ImportConfig) ([]*entity.CatalogWord, *ImportResult, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(cfg.FilePath)) {
	case ".csv":
		rows, err = readCSV(cfg.FilePath)
	default:
		rows, err = readExcel(cfg.FilePath, cfg.SheetName)
	}
	if err != nil {
		return nil, nil, err
	}
	return parseRows(rows)
}

// Import reads the file and upserts every parsed word.
func Import(ctx context.Context, catalog repository.CatalogRepository, cfg ImportConfig) (*ImportResult, error) {
	words, result, err := ReadWords(cfg)
	if err != nil {
		return nil, err
	}
	n, err := catalog.Upsert(ctx, words)
	if err != nil {
		return result, entity.NewCatalogError("import words", err)
	}
	result.Imported = n
	return result, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRows(rows [][]string) ([]*entity.CatalogWord, *ImportResult, error) {
	result := &ImportResult{Errors: make([]string, 0)}
	if len(rows) == 0 {
		return nil, result, fmt.Errorf("%w: empty file", ErrMissingColumn)
	}

	columns := headerIndex(rows[0])
	for _, required := range []string{colText, colTier} {
		if _, ok := columns[required]; !ok {
			return nil, result, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	words := make([]*entity.CatalogWord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2
		if blank(row) {
			continue
		}
		result.TotalProcessed++

		cell := func(name string) string {
			idx, ok := columns[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		text, tier := cell(colText), cell(colTier)
		if text == "" || tier == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: text and tier are required", rowNum))
			continue
		}

		id := cell(colID)
		if id == "" {
			id = text
		}
		position := len(words) + 1
		if raw := cell(colPosition); raw != "" {
			p, err := strconv.Atoi(raw)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: invalid position %q", rowNum, raw))
				continue
			}
			position = p
		}

		words = append(words, &entity.CatalogWord{
			ID:              entity.NormalizeID(id),
			Text:            text,
			Definition:      cell(colDefinition),
			PartOfSpeech:    cell(colPartOfSpeech),
			Tier:            entity.Tier(tier),
			Difficulty:      entity.ParseDifficulty(cell(colDifficulty)),
			Position:        position,
			ExampleSentence: cell(colExampleSentence),
		})
	}
	return words, result, nil
}

func headerIndex(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		name = strings.ReplaceAll(name, " ", "_")
		if alias, ok := headerAliases[name]; ok {
			name = alias
		}
		if _, seen := out[name]; !seen && name != "" {
			out[name] = i
		}
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
