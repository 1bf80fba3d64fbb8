package core

// ionbalance.go derives the per-sample plausibility diagnostics:
//
//   - Ion balance (IB): the cation/anion quotient, rounded to two places,
//     must lie in [0.9, 1.1].
//   - Conductivity (LF): measured / theoretical conductivity must lie in a
//     band that widens as the measured value gets smaller.
//
// From the two verdicts a remark and an automatic comment are derived.
// Repeat measurements get neither.

import (
	"encoding/json"
	"math"
	"strings"
)

// Verdict is the outcome of one plausibility check.
type Verdict int

const (
	VerdictMissing Verdict = iota // inputs missing, check not possible
	VerdictValid
	VerdictInvalid
)

// Available reports whether the check could be evaluated.
func (v Verdict) Available() bool { return v != VerdictMissing }

// OK reports whether the check passed.
func (v Verdict) OK() bool { return v == VerdictValid }

func verdictOf(ok bool) Verdict {
	if ok {
		return VerdictValid
	}
	return VerdictInvalid
}

// MarshalJSON encodes a verdict as true, false or null.
func (v Verdict) MarshalJSON() ([]byte, error) {
	switch v {
	case VerdictValid:
		return []byte("true"), nil
	case VerdictInvalid:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes true, false or null.
func (v *Verdict) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	switch {
	case b == nil:
		*v = VerdictMissing
	case *b:
		*v = VerdictValid
	default:
		*v = VerdictInvalid
	}
	return nil
}

// Remarks and automatic comments as they appear in reports.
const (
	RemarkOK               = "ok"
	RemarkIBOKLFFailed     = "IB ok, LF nicht"
	RemarkIBFailedLFOK     = "IB nicht ok ; LF ok"
	RemarkBothFailed       = "IB nicht ok + LF nicht ok"
	RemarkIBOnlyOK         = "IB ok"
	RemarkIBOnlyFailed     = "IB nicht ok"
	CommentCorgAbove20     = "Corg>20"
	CommentCorgAbove10     = "Corg>10 LTF<50"
	CommentIdealDilute     = "gilt nur für Ideal verdünnte Lösungen"
	CommentLowConductivity = "Leitfähigkeit < 30"
)

// Diagnostic is the ion-balance record of one sample.
// Numeric fields are NaN when the input was missing.
type Diagnostic struct {
	RowID    int    `json:"rowId"`
	SeriesID string `json:"seriesId"`
	SampleID string `json:"sampleId"`
	IsRepeat bool   `json:"isRepeat"`

	Alkalinity string  `json:"alkalinity"`
	Corg       float64 `json:"-"`

	// Conductivity is the measured value; ConductivityFallback marks values
	// taken from the secondary conductivity column.
	Conductivity         float64 `json:"-"`
	ConductivityFallback bool    `json:"conductivityFallback"`

	IonQuotient   float64 `json:"-"`
	ELFQuotient   float64 `json:"-"`
	TheoreticalLF float64 `json:"-"`

	IonBalanceCheck   Verdict `json:"ionBalanceOk"`
	ConductivityCheck Verdict `json:"conductivityOk"`
	Remark            string  `json:"remark"`
	AutoComment       string  `json:"autoComment"`
}

// MarshalJSON renders numeric fields with their report precision.
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	type plain Diagnostic
	return json.Marshal(struct {
		plain
		Corg          string `json:"corg"`
		Conductivity  string `json:"conductivity"`
		IonQuotient   string `json:"ionQuotient"`
		ELFQuotient   string `json:"elfQuotient"`
		TheoreticalLF string `json:"theoreticalLf"`
	}{
		plain:         plain(d),
		Corg:          d.CorgText(),
		Conductivity:  d.ConductivityText(),
		IonQuotient:   FormatDecimal(d.IonQuotient, 2),
		ELFQuotient:   FormatDecimal(d.ELFQuotient, 2),
		TheoreticalLF: FormatDecimal(d.TheoreticalLF, 1),
	})
}

// CorgText formats organic carbon with one decimal place.
func (d Diagnostic) CorgText() string { return FormatDecimal(d.Corg, 1) }

// ConductivityText formats the measured conductivity with one decimal place.
func (d Diagnostic) ConductivityText() string { return FormatDecimal(d.Conductivity, 1) }

// Deviation reports whether any available check failed.
func (d Diagnostic) Deviation() bool {
	return d.IonBalanceCheck == VerdictInvalid || d.ConductivityCheck == VerdictInvalid
}

// DiagnosticTable is the ion-balance table of a whole dataset.
type DiagnosticTable struct {
	Rows []Diagnostic `json:"rows"`

	// MissingColumns names semantic columns absent from the dataset.
	MissingColumns []string `json:"missingColumns,omitempty"`
}

// Diagnose computes the diagnostic record of one sample. Absent columns
// make the affected values missing; they are reported by the resolver.
func Diagnose(rec LabRecord, cols *ColumnResolver) Diagnostic {
	d := Diagnostic{
		RowID:    rec.ID,
		SeriesID: rec.SeriesID,
		SampleID: rec.SampleID,
		IsRepeat: rec.IsRepeat,
	}

	d.Alkalinity, _ = cols.Value(rec, ColumnAlkalinity)
	d.Corg, _ = cols.Number(rec, ColumnCorg)
	d.TheoreticalLF, _ = cols.Number(rec, ColumnTheoreticalLF)
	d.Conductivity, d.ConductivityFallback = measuredConductivity(rec, cols)

	ionQuotient, _ := cols.Number(rec, ColumnIonQuotient)
	if !IsMissing(ionQuotient) {
		d.IonQuotient = roundHalfUp(ionQuotient, 2)
		d.IonBalanceCheck = verdictOf(d.IonQuotient >= 0.9 && d.IonQuotient <= 1.1)
	} else {
		d.IonQuotient = ionQuotient
	}

	quotient := conductivityQuotient(d.Conductivity, d.TheoreticalLF)
	if !IsMissing(quotient) {
		d.ConductivityCheck = verdictOf(conductivityInBand(d.Conductivity, quotient))
	}

	d.ELFQuotient, _ = cols.Number(rec, ColumnELFQuotient)
	if IsMissing(d.ELFQuotient) {
		d.ELFQuotient = quotient
	}

	if !rec.IsRepeat {
		d.Remark = remarkFor(d.IonBalanceCheck, d.ConductivityCheck)
		d.AutoComment = autoCommentFor(d)
	}
	return d
}

// measuredConductivity prefers the primary column and falls back to the
// secondary one when the primary is blank.
func measuredConductivity(rec LabRecord, cols *ColumnResolver) (float64, bool) {
	primary, _ := cols.Value(rec, ColumnLFPrimary)
	if strings.TrimSpace(primary) != "" {
		return ParseDecimal(primary), false
	}

	fallback, err := cols.Value(rec, ColumnLFFallback)
	if err != nil || strings.TrimSpace(fallback) == "" {
		return math.NaN(), false
	}
	return ParseDecimal(fallback), true
}

// conductivityQuotient is measured/theoretical, NaN when undefined.
func conductivityQuotient(measured, theoretical float64) float64 {
	if IsMissing(measured) || IsMissing(theoretical) || theoretical == 0 {
		return math.NaN()
	}
	return measured / theoretical
}

// conductivityInBand applies the magnitude-dependent tolerance band.
func conductivityInBand(measured, quotient float64) bool {
	switch {
	case measured > 20:
		return quotient >= 0.9 && quotient <= 1.1
	case measured >= 10:
		return quotient >= 0.8 && quotient <= 1.2
	default:
		return quotient >= 0.7 && quotient <= 1.3
	}
}

func remarkFor(ib, lf Verdict) string {
	switch {
	case ib.Available() && lf.Available():
		switch {
		case ib.OK() && lf.OK():
			return RemarkOK
		case ib.OK():
			return RemarkIBOKLFFailed
		case lf.OK():
			return RemarkIBFailedLFOK
		default:
			return RemarkBothFailed
		}
	case ib.Available():
		if ib.OK() {
			return RemarkIBOnlyOK
		}
		return RemarkIBOnlyFailed
	default:
		return ""
	}
}

// autoCommentFor explains a deviation. The rules are checked in order and
// the first match wins. NaN inputs never match a comparison.
func autoCommentFor(d Diagnostic) string {
	if d.IsRepeat || !d.Deviation() {
		return ""
	}
	switch {
	case d.Corg > 20:
		return CommentCorgAbove20
	case d.Corg > 10 && d.Conductivity < 50:
		return CommentCorgAbove10
	case d.Conductivity > 300 && d.ConductivityCheck == VerdictInvalid:
		return CommentIdealDilute
	case d.Conductivity < 30:
		return CommentLowConductivity
	default:
		return ""
	}
}

// DiagnoseDataset builds the diagnostic table for every record of ds,
// ordered by sample id and repeat flag.
func DiagnoseDataset(ds *ParsedDataset, names ColumnNames) DiagnosticTable {
	cols := NewColumnResolver(ds.ResultHeaders, names)

	records := make([]LabRecord, len(ds.Data))
	copy(records, ds.Data)
	sortForDiagnostics(records)

	table := DiagnosticTable{
		Rows:           make([]Diagnostic, 0, len(records)),
		MissingColumns: cols.MissingColumns(),
	}
	for _, rec := range records {
		table.Rows = append(table.Rows, Diagnose(rec, cols))
	}
	return table
}
