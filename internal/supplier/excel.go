package supplier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var exportHeader = []string{"Name", "Tax Code", "Address", "Phone", "Email", "Contact Person", "Status", "Rank", "Blacklisted"}

// ImportFromExcel reads suppliers from the first sheet of an .xlsx file.
// The first row is a header; a row needs at least a non-empty name. Rows
// are created with default status/rank.
func (r *Repository) ImportFromExcel(ctx context.Context, file io.Reader) ([]Supplier, error) {
	workbook, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	imported := make([]Supplier, 0)
	for i, row := range rows {
		if i == 0 {
			continue
		}

		name := cell(row, 0)
		if name == "" {
			continue
		}

		input := Input{
			Name:          name,
			TaxCode:       optionalCell(row, 1),
			Address:       optionalCell(row, 2),
			Phone:         optionalCell(row, 3),
			Email:         optionalCell(row, 4),
			ContactPerson: optionalCell(row, 5),
			Status:        StatusPending,
			Rank:          RankUnranked,
		}

		created, err := r.Create(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("import row %d: %w", i+1, err)
		}
		imported = append(imported, created)
	}

	return imported, nil
}

// ExportToExcel writes the filtered supplier list into an .xlsx workbook.
func (r *Repository) ExportToExcel(ctx context.Context, search string, status *Status) ([]byte, error) {
	filter := ListFilter{Search: search, Status: status, Page: 1, PageSize: 10000}
	page, err := r.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	workbook := excelize.NewFile()
	defer workbook.Close()

	const sheet = "Suppliers"
	if err := workbook.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for col, title := range exportHeader {
		cellName, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell name: %w", err)
		}
		if err := workbook.SetCellValue(sheet, cellName, title); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, s := range page.Items {
		values := []any{
			s.Name,
			stringOrEmpty(s.TaxCode),
			stringOrEmpty(s.Address),
			stringOrEmpty(s.Phone),
			stringOrEmpty(s.Email),
			stringOrEmpty(s.ContactPerson),
			string(s.Status),
			string(s.Rank),
			s.IsBlacklisted,
		}
		for col, value := range values {
			cellName, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, fmt.Errorf("cell name: %w", err)
			}
			if err := workbook.SetCellValue(sheet, cellName, value); err != nil {
				return nil, fmt.Errorf("write row %d: %w", i+2, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := workbook.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func cell(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func optionalCell(row []string, index int) *string {
	value := cell(row, index)
	if value == "" {
		return nil
	}
	return &value
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
