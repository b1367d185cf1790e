package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/insightdelivered/statement-ventilation/internal/models"
)

// CSVWriter writes statement transactions to CSV.
type CSVWriter struct {
	// IncludeHeader prefixes each statement with "#" metadata rows.
	IncludeHeader bool
}

// WriteToFile writes the statements to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, statements []models.Statement) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	if err := w.Write(f, statements); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes the statements in CSV format to out, one row per transaction.
func (w *CSVWriter) Write(out io.Writer, statements []models.Statement) error {
	writer := csv.NewWriter(out)

	if w.IncludeHeader {
		for _, st := range statements {
			rows := [][]string{
				{"# Statement", st.Name()},
				{"# Period", st.Window.Start.String(), st.Window.End.String()},
				{"# Opening Balance", st.Opening.Signed().String()},
				{"# Closing Balance", st.Closing.Signed().String()},
				{"# Declared Debit", st.Totals.Debit.String()},
				{"# Declared Credit", st.Totals.Credit.String()},
			}
			if err := writer.WriteAll(rows); err != nil {
				return fmt.Errorf("failed to write CSV metadata: %w", err)
			}
		}
	}

	header := []string{"Statement", "Date", "Value Date", "Description", "Type", "Debit", "Credit"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, st := range statements {
		for _, txn := range st.Transactions {
			var debit, credit string
			if txn.Polarity == models.Debit {
				debit = txn.Amount.String()
			} else {
				credit = txn.Amount.String()
			}
			row := []string{
				st.Name(),
				txn.Date.String(),
				txn.ValueDate.String(),
				txn.Description,
				string(txn.Polarity),
				debit,
				credit,
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
	}

	writer.Flush()
	return writer.Error()
}
