package core

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/charmap"
)

var fixedNow = time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)

// latin1 encodes a UTF-8 test literal the way the lab system writes files.
func latin1(t *testing.T, s string) string {
	t.Helper()
	enc, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil {
		t.Fatalf("encode latin1: %v", err)
	}
	return enc
}

// exportFile joins lines into a lab export with a title row in front.
func exportFile(t *testing.T, header string, rows ...string) string {
	t.Helper()
	lines := append([]string{"Export Laborsystem,,,", header}, rows...)
	return latin1(t, strings.Join(lines, "\r\n")+"\r\n")
}

const leadCols = "Serie,Probe,Datum,Wdh,Ort,Prüfer,Status"

// testHeaders are the result headers of the records built by testRecord.
var testHeaders = []string{
	"alkalinität-gran 4.3",
	"Corg berechnet",
	"ELF Quotient",
	"ICCa2.1",
	"ICCa2.2",
	"ICPFe1.1",
	"Ionenbilanz Quotient",
	"LF theoretisch",
	"LFLFLFM1.3",
	"LFLFLFM3.1",
	"M3.TIT",
	"NNH4IC1.1",
	"PPO4IC1.1",
	"SSO4IC1.1",
	"TOCTOC1.1",
}

// testRecord builds a record with every test header present; kv sets
// header/value pairs.
func testRecord(id int, series, sample string, repeat bool, kv ...string) LabRecord {
	results := make(map[string]string, len(testHeaders))
	for _, h := range testHeaders {
		results[h] = ""
	}
	for i := 0; i+1 < len(kv); i += 2 {
		results[kv[i]] = kv[i+1]
	}
	return LabRecord{ID: id, SeriesID: series, SampleID: sample, IsRepeat: repeat, Results: results}
}

func testDataset(records ...LabRecord) *ParsedDataset {
	return &ParsedDataset{
		FileName:        "export.csv",
		ImportTimestamp: fixedNow,
		ResultHeaders:   testHeaders,
		Data:            records,
	}
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
