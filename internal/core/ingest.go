package core

// ingest.go turns a raw lab export into a ParsedDataset.
//
// The export layout is fixed by the instrument software:
//
//	row 0      free-text title line
//	row 1      header row
//	row 2..n   one sample per row
//	col 0      series id
//	col 1      sample id
//	col 3      repeat flag ("2" marks a repeat measurement)
//	col 7..    result columns
//
// Files are Windows-1252/Latin-1 encoded. A leading UTF-8 BOM, which some
// spreadsheet tools add on re-save, is dropped before decoding.

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
)

const (
	headerRowIndex    = 1
	firstDataRowIndex = 2
	firstResultColumn = 7

	seriesColumn = 0
	sampleColumn = 1
	repeatColumn = 3

	repeatFlagValue = "2"
)

// resultColumn pairs a trimmed header name with its source column index.
type resultColumn struct {
	name  string
	index int
}

// rawRow is one CSV record of the export. index is the 0-based line the
// record starts on.
type rawRow struct {
	index     int
	cells     []string
	malformed bool
}

// rawFile is the export split into CSV records.
type rawFile struct {
	rows []rawRow
	// lines is the number of physical lines consumed.
	lines int
	// blankDataLines counts empty lines below the header row.
	blankDataLines int
}

// Ingest parses a raw lab export. fileName and now are recorded on the
// dataset. Malformed data rows are skipped and counted; a missing header row
// or a file with fewer than three rows is an error and no dataset is returned.
func Ingest(r io.Reader, fileName string, now time.Time) (*ParsedDataset, IngestStats, error) {
	file, err := readLatin1Rows(r)
	if err != nil {
		return nil, IngestStats{}, fmt.Errorf("%w: %v", ErrUnreadableFile, err)
	}

	stats := IngestStats{RawRows: file.lines}
	if file.lines <= firstDataRowIndex {
		return nil, stats, fmt.Errorf("%w: got %d, need at least %d",
			ErrTooFewRows, file.lines, firstDataRowIndex+1)
	}

	var header []string
	found := false
	for _, row := range file.rows {
		if row.index == headerRowIndex && !row.malformed {
			header, found = row.cells, true
			break
		}
	}
	if !found || isBlankRow(header) {
		return nil, stats, ErrMissingHeader
	}

	columns := resultColumns(header)
	if len(columns) == 0 {
		return nil, stats, fmt.Errorf("%w: header has %d cells, results start at column %d",
			ErrNoResultColumns, len(header), firstResultColumn+1)
	}
	stats.Headers = len(columns)

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.name
	}

	ds := &ParsedDataset{
		FileName:        fileName,
		ImportTimestamp: now,
		ResultHeaders:   headers,
		Data:            make([]LabRecord, 0, len(file.rows)),
	}

	stats.SkippedRows = file.blankDataLines
	for _, row := range file.rows {
		if row.index < firstDataRowIndex {
			continue
		}
		if row.malformed || len(row.cells) < 2 || isBlankRow(row.cells) {
			stats.SkippedRows++
			continue
		}
		ds.Data = append(ds.Data, buildRecord(row.index, row.cells, columns))
	}
	stats.DataRows = len(ds.Data)

	return ds, stats, nil
}

// readLatin1Rows decodes r as Windows-1252 and reads it as one
// comma-delimited stream, so quoted cells may span lines. A record the
// reader cannot parse is kept as malformed and reading continues after it.
func readLatin1Rows(r io.Reader) (rawFile, error) {
	decoded := charmap.Windows1252.NewDecoder().Reader(NewBOMSkippingReader(r))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var file rawFile
	// skipTo accounts for the empty lines the reader passes over silently
	// before a record starting at 1-based line start.
	skipTo := func(start int) {
		if gap := (start - 1) - max(file.lines, firstDataRowIndex); gap > 0 {
			file.blankDataLines += gap
		}
	}

	for {
		cells, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if !errors.As(err, &perr) {
				return rawFile{}, err
			}
			skipTo(perr.StartLine)
			file.rows = append(file.rows, rawRow{index: perr.StartLine - 1, malformed: true})
			file.lines = max(file.lines, perr.Line)
			continue
		}

		start, _ := cr.FieldPos(0)
		last := len(cells) - 1
		end, _ := cr.FieldPos(last)
		end += strings.Count(cells[last], "\n")

		skipTo(start)
		file.rows = append(file.rows, rawRow{index: start - 1, cells: cells})
		file.lines = end
	}
	return file, nil
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// resultColumns collects the non-blank headers from firstResultColumn on and
// sorts them with German collation. The source index is kept so values are
// always read from their original position. Repeated header text keeps its
// first column.
func resultColumns(header []string) []resultColumn {
	seen := make(map[string]bool)
	var columns []resultColumn
	for i := firstResultColumn; i < len(header); i++ {
		name := strings.TrimSpace(header[i])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		columns = append(columns, resultColumn{name: name, index: i})
	}

	coll := newGermanCollator()
	sort.SliceStable(columns, func(i, j int) bool {
		return coll.CompareString(columns[i].name, columns[j].name) < 0
	})
	return columns
}

func buildRecord(rowIndex int, cells []string, columns []resultColumn) LabRecord {
	results := make(map[string]string, len(columns))
	for _, col := range columns {
		results[col.name] = cellAt(cells, col.index)
	}

	return LabRecord{
		ID:       rowIndex,
		SeriesID: cellAt(cells, seriesColumn),
		SampleID: cellAt(cells, sampleColumn),
		IsRepeat: cellAt(cells, repeatColumn) == repeatFlagValue,
		Results:  results,
	}
}

// cellAt returns the trimmed cell or "" when the row is too short.
func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}
