package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/JonMunkholm/labreport/internal/export"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

const sampleExport = "Export Laborsystem,,,\r\n" +
	"Serie,Probe,Datum,Wdh,Ort,Prüfer,Status,ICCa2.1,M3.TIT,Ionenbilanz Quotient,LFLFLFM3.1,LF theoretisch\r\n" +
	"S1,P1,01.03.2024,1,Brunnen,AB,ok,12,7,\"1,02\",25,25\r\n" +
	"S1,P2,01.03.2024,1,Brunnen,AB,ok,14,7,\"1,30\",25,20\r\n"

func writeSample(t *testing.T) string {
	t.Helper()
	enc, err := charmap.Windows1252.NewEncoder().String(sampleExport)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "export.csv")
	if err := os.WriteFile(path, []byte(enc), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

// run executes the root command with args and resets flag state afterwards.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		cfgFile, logLevel = "", ""
		ionOutput = ""
		exportOutput, exportAll, exportRows = "", false, nil
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestClassifyCommand(t *testing.T) {
	out, err := run(t, "classify", "ICPFe1.1", "M3.TIT", "XYZ")
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	for _, want := range []string{"ICPFe", "ICP", "pH-LF-TIT", "Sonstige"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
}

func TestInspectCommand(t *testing.T) {
	out, err := run(t, "inspect", writeSample(t))
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, "Records:  2") {
		t.Errorf("record count missing:\n%s", out)
	}
	if !strings.Contains(out, "IC (1)") {
		t.Errorf("IC group missing:\n%s", out)
	}
	if !strings.Contains(out, "Corg berechnet") {
		t.Errorf("missing columns not reported:\n%s", out)
	}
}

func TestIonbalanceCommand(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "ib.csv")
	if _, err := run(t, "ionbalance", writeSample(t), "-o", dst); err != nil {
		t.Fatalf("ionbalance: %v", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	lines, err := export.ReadDiagnosticCSV(f)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	byID := map[string]core.DiagnosticLine{}
	for _, l := range lines {
		byID[l.SampleID] = l
	}
	if byID["P1"].Remark != core.RemarkOK {
		t.Errorf("P1 remark = %q, want %q", byID["P1"].Remark, core.RemarkOK)
	}
	if byID["P2"].Remark != core.RemarkBothFailed {
		t.Errorf("P2 remark = %q, want %q", byID["P2"].Remark, core.RemarkBothFailed)
	}
}

func TestExportCommand(t *testing.T) {
	src := writeSample(t)

	t.Run("requires output", func(t *testing.T) {
		if _, err := run(t, "export", src, "--all"); err == nil {
			t.Error("expected an error without -o")
		}
	})

	t.Run("unknown row", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "r.xlsx")
		_, err := run(t, "export", src, "-o", dst, "--row", "99")
		if !errors.Is(err, core.ErrUnknownRow) {
			t.Errorf("got %v, want ErrUnknownRow", err)
		}
	})

	t.Run("all rows", func(t *testing.T) {
		dst := filepath.Join(t.TempDir(), "r.xlsx")
		if _, err := run(t, "export", src, "-o", dst, "--all"); err != nil {
			t.Fatalf("export: %v", err)
		}
		f, err := excelize.OpenFile(dst)
		if err != nil {
			t.Fatalf("open workbook: %v", err)
		}
		defer f.Close()
		if got := f.GetSheetList(); len(got) != 2 {
			t.Errorf("sheets = %v, want 2", got)
		}
	})
}

func TestViperLookupReadsPrefixedEnv(t *testing.T) {
	t.Setenv("LABREPORT_COLUMN_CORG", "TOC berechnet")
	t.Setenv("LABREPORT_LOG_LEVEL", "debug")

	c, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if c.Columns.Corg != "TOC berechnet" {
		t.Errorf("corg column = %q", c.Columns.Corg)
	}
	if c.Logging.Level != "debug" {
		t.Errorf("log level = %q", c.Logging.Level)
	}
	if c.Columns.IonQuotient != "Ionenbilanz Quotient" {
		t.Errorf("default not applied: %q", c.Columns.IonQuotient)
	}
}
