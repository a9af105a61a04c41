package product

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ImportResult summarizes a spreadsheet import run.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportFromExcel reads products from the first sheet of an .xlsx file.
// Expected columns: SKU, Name, Category ID, Unit, Min Stock, Max Stock.
// Rows with a duplicate SKU are skipped, malformed rows are reported.
func (r *Repository) ImportFromExcel(ctx context.Context, content io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(content)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{}, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ImportResult{}, fmt.Errorf("read sheet: %w", err)
	}

	var result ImportResult
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		rowNum := i + 1

		sku := strings.TrimSpace(cell(row, 0))
		name := strings.TrimSpace(cell(row, 1))
		if sku == "" || name == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: sku and name are required", rowNum))
			continue
		}
		categoryID, err := strconv.ParseInt(strings.TrimSpace(cell(row, 2)), 10, 64)
		if err != nil || categoryID <= 0 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: invalid category id", rowNum))
			continue
		}

		exists, err := r.ExistsSKU(ctx, sku)
		if err != nil {
			return result, err
		}
		if exists {
			result.Skipped++
			continue
		}

		input := Input{
			SKU:        sku,
			Name:       name,
			CategoryID: categoryID,
			MinStock:   intCell(row, 4),
			MaxStock:   intCell(row, 5),
			IsActive:   true,
		}
		if unit := strings.TrimSpace(cell(row, 3)); unit != "" {
			input.Unit = &unit
		}

		if _, err := r.Create(ctx, input); err != nil {
			if err == ErrSKUTaken || err == ErrUnknownCategory {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
				continue
			}
			return result, err
		}
		result.Imported++
	}
	return result, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}

func intCell(row []string, idx int) int {
	n, err := strconv.Atoi(strings.TrimSpace(cell(row, idx)))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
