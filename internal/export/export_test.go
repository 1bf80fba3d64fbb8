package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/xuri/excelize/v2"
)

func sampleLines() []core.DiagnosticLine {
	return []core.DiagnosticLine{
		{
			SeriesID: "S1", SampleID: "P1", Alkalinity: "2,5", Corg: "25,0",
			Conductivity: "400,0", ConductivityFallback: true, IonQuotient: "1,30",
			ELFQuotient: "1,05", TheoreticalLF: "380,1",
			Remark: core.RemarkIBOnlyFailed, Comment: "Kommentar; mit Semikolon",
		},
		{SeriesID: "S1", SampleID: "P1", IsRepeat: true},
	}
}

func TestDiagnosticCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteDiagnosticCSV(&buf, sampleLines()); err != nil {
		t.Fatalf("WriteDiagnosticCSV: %v", err)
	}

	raw := buf.String()
	if !strings.HasPrefix(raw, "\uFEFFSerie;Probe;") {
		t.Errorf("missing BOM or header: %q", raw[:20])
	}
	if !strings.Contains(raw, "\r\n") {
		t.Error("lines should end with CRLF")
	}

	got, err := ReadDiagnosticCSV(&buf)
	if err != nil {
		t.Fatalf("ReadDiagnosticCSV: %v", err)
	}
	want := sampleLines()
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDiagnosticCSV_MultiLineComment(t *testing.T) {
	comment := core.CommentMap{}.With(2, "Zeile1\r\nZeile2").Get(2)
	lines := []core.DiagnosticLine{{SeriesID: "S1", SampleID: "P1", Comment: comment}}

	var buf bytes.Buffer
	if err := WriteDiagnosticCSV(&buf, lines); err != nil {
		t.Fatalf("WriteDiagnosticCSV: %v", err)
	}
	got, err := ReadDiagnosticCSV(&buf)
	if err != nil {
		t.Fatalf("ReadDiagnosticCSV: %v", err)
	}
	if len(got) != 1 || got[0].Comment != comment {
		t.Errorf("got %+v, want comment %q", got, comment)
	}
}

func TestReadDiagnosticCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"empty", "", core.ErrTooFewRows},
		{"wrong header", "Name;Wert\r\n", core.ErrMissingHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadDiagnosticCSV(strings.NewReader(tt.input))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// sampleWorkbook selects one record with every seeded parameter. ICCa2.2 is
// blank, so its cell stays inactive although ICCa is selected.
func sampleWorkbook() core.WorkbookLayout {
	rec := core.LabRecord{
		ID: 2, SeriesID: "S1", SampleID: "P1",
		Results: map[string]string{"ICCa2.1": "10,5", "ICCa2.2": "", "M3.TIT": "7,2"},
	}
	ds := &core.ParsedDataset{
		FileName:      "export.csv",
		ResultHeaders: []string{"ICCa2.1", "ICCa2.2", "M3.TIT"},
		Data:          []core.LabRecord{rec},
	}
	sel := core.NewSelection(ds).ToggleRow(2)
	report := core.BuildReport(ds, sel, nil)
	table := core.DiagnoseDataset(ds, core.DefaultColumnNames())
	return core.BuildWorkbook(report, table, nil)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, sampleWorkbook()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != core.SheetReport || sheets[1] != core.SheetIonBalance {
		t.Fatalf("sheets = %v", sheets)
	}

	cellTests := []struct {
		ref  string
		want string
	}{
		{"D1", "pH-LF-TIT"},
		{"E1", "IC"},
		{"A2", "Serie"},
		{"D2", "M3.TIT"},
		{"E2", "Ca2.1"},
		{"F2", "Ca2.2"},
		{"G2", "Kommentar"},
		{"A3", "S1"},
		{"C4", "Eingabe"},
		{"D4", ""},
		{"F4", core.InactiveMarker},
	}
	for _, tt := range cellTests {
		got, err := f.GetCellValue(core.SheetReport, tt.ref)
		if err != nil {
			t.Fatalf("GetCellValue %s: %v", tt.ref, err)
		}
		if got != tt.want {
			t.Errorf("%s = %q, want %q", tt.ref, got, tt.want)
		}
	}

	raw, err := f.GetCellValue(core.SheetReport, "E3", excelize.Options{RawCellValue: true})
	if err != nil || raw != "10.5" {
		t.Errorf("E3 raw = %q, %v", raw, err)
	}

	formula, err := f.GetCellFormula(core.SheetReport, "E5")
	if err != nil {
		t.Fatalf("GetCellFormula: %v", err)
	}
	if !strings.Contains(formula, "E3") || !strings.Contains(formula, "E4") {
		t.Errorf("deviation formula = %q", formula)
	}

	merged, err := f.GetMergeCells(core.SheetReport)
	if err != nil {
		t.Fatalf("GetMergeCells: %v", err)
	}
	if len(merged) != 1 || merged[0].GetStartAxis() != "E1" || merged[0].GetEndAxis() != "F1" {
		t.Errorf("merged cells = %v", merged)
	}

	header, err := f.GetCellValue(core.SheetIonBalance, "H1")
	if err != nil || header != "Ionenbilanz Quotient" {
		t.Errorf("Sheet 2 H1 = %q, %v", header, err)
	}
}
