// Package export builds spreadsheet exports of billing documents.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// DocumentRow is one exported document. Rows are pre-assembled by the
// handler so the exporter stays free of database access.
type DocumentRow struct {
	Number       string
	CustomerName string
	Status       string
	IssuedAt     *time.Time
	DueAt        *time.Time
	Subtotal     decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
	Currency     string
}

type Exporter struct {
	log *zap.Logger
}

type ExporterParam struct {
	fx.In

	Log *zap.Logger
}

func NewExporter(p ExporterParam) *Exporter {
	return &Exporter{log: p.Log.Named("export")}
}

// Filename names the download: "invoices_2025-06-01.xlsx".
func Filename(kind string, at time.Time) string {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = "documents"
	}
	return fmt.Sprintf("%s_%s.xlsx", kind, at.UTC().Format("2006-01-02"))
}

var exportHeaders = []string{
	"Number", "Customer", "Status", "Issued", "Due",
	"Subtotal", "Tax", "Total", "Currency",
}

// Documents writes the rows to a single-sheet workbook and returns its bytes.
func (e *Exporter) Documents(sheet string, rows []DocumentRow) ([]byte, error) {
	if strings.TrimSpace(sheet) == "" {
		sheet = "Documents"
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			e.log.Warn("close workbook", zap.Error(err))
		}
	}()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	for i, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		values := []any{
			row.Number,
			row.CustomerName,
			row.Status,
			formatDate(row.IssuedAt),
			formatDate(row.DueAt),
			row.Subtotal.InexactFloat64(),
			row.Tax.InexactFloat64(),
			row.Total.InexactFloat64(),
			row.Currency,
		}
		for j, value := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDate(value *time.Time) string {
	if value == nil || value.IsZero() {
		return ""
	}
	return value.UTC().Format("2006-01-02")
}
