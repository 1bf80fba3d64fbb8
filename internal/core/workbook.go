package core

// workbook.go describes the two-sheet export as plain data. Renderers (the
// xlsx writer, tests) decide how a cell kind is styled; nothing here knows
// about a spreadsheet library.
//
// Sheet "Auswertung" has, per selected row, a triplet of lines followed by a
// spacer:
//
//	originals    measured values, filled with the row colour
//	input        blank for active cells, "x" for inactive ones
//	deviation    percent deviation of input against original
//
// and ends with the colour legend and a sign-off table per device group.
// Sheet "Ionenbilanz" lists the diagnostics of every dataset row.

import "strings"

// Sheet names.
const (
	SheetReport     = "Auswertung"
	SheetIonBalance = "Ionenbilanz"
)

// InactiveMarker fills input cells the analyst must not fill in.
const InactiveMarker = "x"

// CellKind tells a renderer how to write a layout cell.
type CellKind int

const (
	CellBlank CellKind = iota
	CellText
	CellNumber
	CellInput
	CellInactive
	// CellDeviation is (input - original) / original as a percentage, where
	// original and input are the cells OriginalOffset and InputOffset lines
	// above in the same column.
	CellDeviation
)

// LayoutCell is one cell of a sheet layout.
type LayoutCell struct {
	Kind     CellKind
	Text     string
	Number   float64
	Decimals int
	Fill     string
	Bold     bool

	OriginalOffset int
	InputOffset    int
}

// Merge spans Width cells of one line, starting at Col.
type Merge struct {
	Line  int
	Col   int
	Width int
}

// SheetLayout is an ordered list of lines.
type SheetLayout struct {
	Name   string
	Lines  [][]LayoutCell
	Merges []Merge
	// ColumnWidths holds optional widths in characters, by column index.
	ColumnWidths map[int]float64
}

func (s *SheetLayout) add(cells ...LayoutCell) int {
	s.Lines = append(s.Lines, cells)
	return len(s.Lines) - 1
}

// WorkbookLayout is the complete export.
type WorkbookLayout struct {
	Sheets []SheetLayout
}

// Sheet returns the named sheet layout.
func (w WorkbookLayout) Sheet(name string) (SheetLayout, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return SheetLayout{}, false
}

// Labels of the fixed report columns.
const (
	labelSeries    = "Serie"
	labelSample    = "Probe"
	labelRepeat    = "Wdh."
	labelInput     = "Eingabe"
	labelDeviation = "Abw. %"
	labelComment   = "Kommentar"
	labelLegend    = "Legende"
	labelGroup     = "Gerätegruppe"
	labelDate      = "Datum"
	labelInitials  = "Kürzel"
	repeatMarker   = "W"
)

const leadingColumns = 3

func text(s string) LayoutCell { return LayoutCell{Kind: CellText, Text: s} }
func bold(s string) LayoutCell { return LayoutCell{Kind: CellText, Text: s, Bold: true} }
func blank() LayoutCell        { return LayoutCell{Kind: CellBlank} }

func filled(c LayoutCell, fill string) LayoutCell {
	c.Fill = fill
	return c
}

// valueCell writes a raw comma-decimal value as a number keeping its
// precision, or as text when it does not parse.
func valueCell(raw string) LayoutCell {
	if raw == "" {
		return blank()
	}
	v := ParseDecimal(raw)
	if IsMissing(v) {
		return text(raw)
	}
	return LayoutCell{Kind: CellNumber, Number: v, Decimals: decimalsOf(raw)}
}

func numberCell(v float64, places int) LayoutCell {
	if IsMissing(v) {
		return blank()
	}
	return LayoutCell{Kind: CellNumber, Number: roundHalfUp(v, places), Decimals: places}
}

func decimalsOf(raw string) int {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexAny(raw, ",."); i >= 0 {
		return len(raw) - i - 1
	}
	return 0
}

// BuildWorkbook lays out both export sheets.
func BuildWorkbook(report Report, table DiagnosticTable, comments CommentMap) WorkbookLayout {
	return WorkbookLayout{Sheets: []SheetLayout{
		buildReportSheet(report),
		buildIonBalanceSheet(table, comments),
	}}
}

func buildReportSheet(report Report) SheetLayout {
	sheet := SheetLayout{Name: SheetReport, ColumnWidths: map[int]float64{0: 12, 1: 14, 2: 8}}
	width := leadingColumns + len(report.Columns) + 1

	groupLine := make([]LayoutCell, width)
	for _, span := range report.Groups {
		groupLine[leadingColumns+span.Start] = bold(string(span.Group))
	}
	line := sheet.add(groupLine...)
	for _, span := range report.Groups {
		if span.Width > 1 {
			sheet.Merges = append(sheet.Merges, Merge{Line: line, Col: leadingColumns + span.Start, Width: span.Width})
		}
	}

	header := []LayoutCell{bold(labelSeries), bold(labelSample), bold(labelRepeat)}
	for _, col := range report.Columns {
		header = append(header, bold(col.Label))
	}
	header = append(header, bold(labelComment))
	sheet.add(header...)
	sheet.ColumnWidths[width-1] = 30

	for _, row := range report.Rows {
		fill := row.Colour.Fill()
		repeat := ""
		if row.IsRepeat {
			repeat = repeatMarker
		}

		originals := []LayoutCell{
			filled(text(row.SeriesID), fill),
			filled(text(row.SampleID), fill),
			filled(text(repeat), fill),
		}
		inputs := []LayoutCell{blank(), blank(), text(labelInput)}
		deviations := []LayoutCell{blank(), blank(), text(labelDeviation)}

		for _, cell := range row.Cells {
			originals = append(originals, filled(valueCell(cell.Value), fill))
			if cell.Active {
				inputs = append(inputs, LayoutCell{Kind: CellInput})
				deviations = append(deviations, LayoutCell{Kind: CellDeviation, OriginalOffset: 2, InputOffset: 1})
			} else {
				inputs = append(inputs, LayoutCell{Kind: CellInactive, Text: InactiveMarker})
				deviations = append(deviations, blank())
			}
		}
		originals = append(originals, filled(text(row.Comment), fill))
		inputs = append(inputs, blank())
		deviations = append(deviations, blank())

		sheet.add(originals...)
		sheet.add(inputs...)
		sheet.add(deviations...)
		sheet.add()
	}

	sheet.add()
	sheet.add(bold(labelLegend))
	for _, e := range Legend {
		sheet.add(filled(blank(), e.Fill), text(e.Label))
	}

	sheet.add()
	sheet.add(bold(labelGroup), bold(labelDate), bold(labelInitials))
	for _, g := range report.DeviceGroups() {
		sheet.add(text(string(g)), LayoutCell{Kind: CellInput}, LayoutCell{Kind: CellInput})
	}
	return sheet
}

// DiagnosticColumns are the column titles of the ion-balance table, shared
// by Sheet 2 and the CSV export.
var DiagnosticColumns = []string{
	"Serie", "Probe", "Wiederholung", "Alkalinität", "Corg", "LF", "LF Ersatzwert",
	"Ionenbilanz Quotient", "ELF Quotient", "LF theoretisch", "Bemerkung", "Kommentar",
}

func buildIonBalanceSheet(table DiagnosticTable, comments CommentMap) SheetLayout {
	sheet := SheetLayout{Name: SheetIonBalance, ColumnWidths: map[int]float64{10: 26, 11: 40}}

	header := make([]LayoutCell, len(DiagnosticColumns))
	for i, title := range DiagnosticColumns {
		header[i] = bold(title)
	}
	sheet.add(header...)

	for _, d := range table.Rows {
		sheet.add(
			text(d.SeriesID),
			text(d.SampleID),
			text(yesNo(d.IsRepeat)),
			valueCell(d.Alkalinity),
			numberCell(d.Corg, 1),
			numberCell(d.Conductivity, 1),
			text(yesNo(d.ConductivityFallback)),
			numberCell(d.IonQuotient, 2),
			numberCell(d.ELFQuotient, 2),
			numberCell(d.TheoreticalLF, 1),
			text(d.Remark),
			text(exportComment(comments, d)),
		)
	}
	return sheet
}

func yesNo(b bool) string {
	if b {
		return "ja"
	}
	return ""
}

// DiagnosticLine is one ion-balance row in text form, as written to and
// read back from the CSV export.
type DiagnosticLine struct {
	SeriesID             string
	SampleID             string
	IsRepeat             bool
	Alkalinity           string
	Corg                 string
	Conductivity         string
	ConductivityFallback bool
	IonQuotient          string
	ELFQuotient          string
	TheoreticalLF        string
	Remark               string
	Comment              string
}

// Fields returns the line in DiagnosticColumns order.
func (l DiagnosticLine) Fields() []string {
	return []string{
		l.SeriesID, l.SampleID, yesNo(l.IsRepeat), l.Alkalinity, l.Corg,
		l.Conductivity, yesNo(l.ConductivityFallback), l.IonQuotient,
		l.ELFQuotient, l.TheoreticalLF, l.Remark, l.Comment,
	}
}

// ParseDiagnosticLine is the inverse of Fields. Short records are padded.
func ParseDiagnosticLine(fields []string) DiagnosticLine {
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	return DiagnosticLine{
		SeriesID:             get(0),
		SampleID:             get(1),
		IsRepeat:             get(2) == "ja",
		Alkalinity:           get(3),
		Corg:                 get(4),
		Conductivity:         get(5),
		ConductivityFallback: get(6) == "ja",
		IonQuotient:          get(7),
		ELFQuotient:          get(8),
		TheoreticalLF:        get(9),
		Remark:               get(10),
		Comment:              get(11),
	}
}

// DiagnosticLines formats every table row with its report precision and
// export comment.
func DiagnosticLines(table DiagnosticTable, comments CommentMap) []DiagnosticLine {
	lines := make([]DiagnosticLine, 0, len(table.Rows))
	for _, d := range table.Rows {
		lines = append(lines, DiagnosticLine{
			SeriesID:             d.SeriesID,
			SampleID:             d.SampleID,
			IsRepeat:             d.IsRepeat,
			Alkalinity:           d.Alkalinity,
			Corg:                 d.CorgText(),
			Conductivity:         d.ConductivityText(),
			ConductivityFallback: d.ConductivityFallback,
			IonQuotient:          FormatDecimal(d.IonQuotient, 2),
			ELFQuotient:          FormatDecimal(d.ELFQuotient, 2),
			TheoreticalLF:        FormatDecimal(d.TheoreticalLF, 1),
			Remark:               d.Remark,
			Comment:              exportComment(comments, d),
		})
	}
	return lines
}
