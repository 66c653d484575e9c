package tabular

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/andresuchdata/shelfstock/internal/domain"
)

// WriteCSV writes the table with its header order preserved.
func WriteCSV(w io.Writer, t *Table) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(t.header); err != nil {
		return domain.IOError("write csv header", err)
	}
	for i := 0; i < t.rows; i++ {
		if err := writer.Write(t.Row(i)); err != nil {
			return domain.IOError("write csv record", err)
		}
	}

	writer.Flush()
	return domain.IOError("flush csv", writer.Error())
}

// WriteFile writes the table to path, creating parent directories.
func WriteFile(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return domain.IOError("create output directory", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return domain.IOError("create output file", err)
	}

	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return domain.IOError("close output file", f.Close())
}

// Bytes renders the table as CSV.
func Bytes(t *Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
