package loader

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractCSV renders each data row as "header: value" lines, rows separated by a blank line.
func extractCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		rows = append(rows, rec)
	}
	return renderRows(header, rows), nil
}

// extractXLSX renders every sheet like a CSV, prefixed with the sheet name.
func extractXLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", err
		}
		if len(rows) == 0 {
			continue
		}
		b.WriteString("Sheet: " + sheet + "\n\n")
		b.WriteString(renderRows(rows[0], rows[1:]))
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

func renderRows(header []string, rows [][]string) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n\n")
		}
		for j, value := range row {
			name := ""
			if j < len(header) {
				name = strings.TrimSpace(header[j])
			}
			if j > 0 {
				b.WriteByte('\n')
			}
			if name != "" {
				b.WriteString(name + ": ")
			}
			b.WriteString(strings.TrimSpace(value))
		}
	}
	return b.String()
}
