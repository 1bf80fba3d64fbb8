package core

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Collators keep internal buffers and are not safe for concurrent use, so
// every sort builds its own.

// newGermanCollator orders text the way German users expect: case differences
// are minor, umlauts sort next to their base letter.
func newGermanCollator() *collate.Collator {
	return collate.New(language.German)
}

// newNaturalCollator additionally compares digit runs by numeric value, so
// "P2" sorts before "P10".
func newNaturalCollator() *collate.Collator {
	return collate.New(language.German, collate.Numeric)
}

// sortForReport orders records by series id, then sample id (both natural),
// with non-repeat rows before repeats.
func sortForReport(records []LabRecord) {
	coll := newNaturalCollator()
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if c := coll.CompareString(a.SeriesID, b.SeriesID); c != 0 {
			return c < 0
		}
		if c := coll.CompareString(a.SampleID, b.SampleID); c != 0 {
			return c < 0
		}
		return !a.IsRepeat && b.IsRepeat
	})
}

// sortForDiagnostics orders records by sample id (natural) with non-repeat
// rows before repeats.
func sortForDiagnostics(records []LabRecord) {
	coll := newNaturalCollator()
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if c := coll.CompareString(a.SampleID, b.SampleID); c != 0 {
			return c < 0
		}
		return !a.IsRepeat && b.IsRepeat
	})
}
