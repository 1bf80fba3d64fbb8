package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/labreport/internal/core"
)

// ContentTypeCSV is the MIME type of the ion-balance export.
const ContentTypeCSV = "text/csv; charset=utf-8"

// csvSeparator matches the list separator of German spreadsheet locales.
const csvSeparator = ';'

// WriteDiagnosticCSV writes the ion-balance table as a semicolon-separated
// UTF-8 file with a byte order mark, so spreadsheet programs detect the
// encoding.
func WriteDiagnosticCSV(w io.Writer, lines []core.DiagnosticLine) error {
	if _, err := io.WriteString(w, "\uFEFF"); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.Comma = csvSeparator
	cw.UseCRLF = true

	if err := cw.Write(core.DiagnosticColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, line := range lines {
		if err := cw.Write(line.Fields()); err != nil {
			return fmt.Errorf("write line %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadDiagnosticCSV reads a file written by WriteDiagnosticCSV.
func ReadDiagnosticCSV(r io.Reader) ([]core.DiagnosticLine, error) {
	cr := csv.NewReader(core.NewBOMSkippingReader(r))
	cr.Comma = csvSeparator
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", core.ErrTooFewRows)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) == 0 || header[0] != core.DiagnosticColumns[0] {
		return nil, fmt.Errorf("read header: %w", core.ErrMissingHeader)
	}

	var lines []core.DiagnosticLine
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", len(lines)+2, err)
		}
		lines = append(lines, core.ParseDiagnosticLine(fields))
	}
	return lines, nil
}
