package writer

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

const (
	summarySheet      = "Summary"
	transactionsSheet = "Transactions"

	// built-in "#,##0.00"
	numFmtAmount = 4
)

// XLSXWriter writes a ventilation result as a workbook with a summary sheet
// and one row per ventilated transaction.
type XLSXWriter struct{}

// WriteToFile writes the workbook to path.
func (w *XLSXWriter) WriteToFile(path string, res *models.VentilationResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes the workbook to out.
func (w *XLSXWriter) Write(out io.Writer, res *models.VentilationResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if _, err := f.NewSheet(transactionsSheet); err != nil {
		return fmt.Errorf("failed to create transactions sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtAmount})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	muted, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Color: "808080"},
		NumFmt: numFmtAmount,
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeSummary(f, res, header, money, muted); err != nil {
		return err
	}
	if err := writeTransactions(f, res, header, money); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, res *models.VentilationResult, header, money, muted int) error {
	if err := setRow(f, summarySheet, 1, []interface{}{"Category", "Total", "Ignored"}); err != nil {
		return err
	}
	f.SetCellStyle(summarySheet, "A1", "C1", header)

	row := 2
	for _, ct := range res.Ranked() {
		if err := setRow(f, summarySheet, row, []interface{}{ct.Name, ct.Amount.Float64(), ct.Ignore}); err != nil {
			return err
		}
		style := money
		if ct.Ignore {
			style = muted
		}
		f.SetCellStyle(summarySheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), style)
		row++
	}
	if err := setRow(f, summarySheet, row, []interface{}{UnassignedLabel, res.Unassigned.Float64(), false}); err != nil {
		return err
	}
	f.SetCellStyle(summarySheet, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), money)

	f.SetColWidth(summarySheet, "A", "A", 30)
	f.SetColWidth(summarySheet, "B", "C", 14)
	return nil
}

func writeTransactions(f *excelize.File, res *models.VentilationResult, header, money int) error {
	headers := []interface{}{"Category", "Date", "Value Date", "Description", "Amount"}
	if err := setRow(f, transactionsSheet, 1, headers); err != nil {
		return err
	}
	f.SetCellStyle(transactionsSheet, "A1", "E1", header)

	row := 2
	write := func(category string, txns []models.Transaction) error {
		for _, txn := range txns {
			values := []interface{}{
				category,
				txn.Date.String(),
				txn.ValueDate.String(),
				txn.Description,
				txn.Amount.Float64(),
			}
			if err := setRow(f, transactionsSheet, row, values); err != nil {
				return err
			}
			f.SetCellStyle(transactionsSheet, fmt.Sprintf("E%d", row), fmt.Sprintf("E%d", row), money)
			row++
		}
		return nil
	}

	for _, c := range res.Spec.Categories {
		if err := write(c.Name, res.Transactions[c.Name]); err != nil {
			return err
		}
	}
	if err := write(UnassignedLabel, res.UnassignedTransactions); err != nil {
		return err
	}

	f.SetColWidth(transactionsSheet, "A", "A", 24)
	f.SetColWidth(transactionsSheet, "B", "C", 12)
	f.SetColWidth(transactionsSheet, "D", "D", 48)
	f.SetColWidth(transactionsSheet, "E", "E", 14)
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}
