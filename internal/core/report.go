package core

// report.go merges a dataset with the current selection into the ordered
// rows shown on screen and exported to Sheet 1.

import "sort"

// ReportColumn is one result column of the report.
type ReportColumn struct {
	Header string      `json:"header"`
	Param  string      `json:"param"`
	Group  DeviceGroup `json:"group"`
	Label  string      `json:"label"`
}

// GroupSpan is a run of adjacent report columns sharing a device group.
type GroupSpan struct {
	Group DeviceGroup `json:"group"`
	Start int         `json:"start"`
	Width int         `json:"width"`
}

// ReportCell is the value of one record in one report column. Active cells
// are filled in by the analyst; inactive ones are marked "x".
type ReportCell struct {
	Header string `json:"header"`
	Value  string `json:"value"`
	Active bool   `json:"active"`
}

// ReportRow is one selected record.
type ReportRow struct {
	RowID    int          `json:"rowId"`
	SeriesID string       `json:"seriesId"`
	SampleID string       `json:"sampleId"`
	IsRepeat bool         `json:"isRepeat"`
	Colour   RowColour    `json:"colour"`
	Params   []string     `json:"params"`
	Cells    []ReportCell `json:"cells"`
	Comment  string       `json:"comment"`
}

// Report is the assembled report view.
type Report struct {
	Columns []ReportColumn `json:"columns"`
	Groups  []GroupSpan    `json:"groups"`
	Rows    []ReportRow    `json:"rows"`
}

// BuildReport assembles the report for the selected rows of ds.
//
// Rows are ordered by series id, sample id and repeat flag. Columns are the
// headers whose parameter is active in at least one selected row, ordered by
// device group and then alphabetically.
func BuildReport(ds *ParsedDataset, sel SelectionState, comments CommentMap) Report {
	var records []LabRecord
	for _, rec := range ds.Data {
		if sel.IsSelected(rec.ID) {
			records = append(records, rec)
		}
	}
	sortForReport(records)

	used := make(map[string]bool)
	for _, rec := range records {
		for p := range sel.Params(rec.ID) {
			used[p] = true
		}
	}

	var headers []string
	for _, h := range ds.ResultHeaders {
		if used[BaseName(h)] {
			headers = append(headers, h)
		}
	}
	sortByDeviceGroup(headers)

	report := Report{
		Columns: make([]ReportColumn, len(headers)),
		Rows:    make([]ReportRow, 0, len(records)),
	}
	for i, h := range headers {
		base := BaseName(h)
		report.Columns[i] = ReportColumn{
			Header: h,
			Param:  base,
			Group:  Classify(base),
			Label:  DisplayLabel(h),
		}
	}
	report.Groups = groupSpans(report.Columns)

	for _, rec := range records {
		active := sel.Params(rec.ID)
		row := ReportRow{
			RowID:    rec.ID,
			SeriesID: rec.SeriesID,
			SampleID: rec.SampleID,
			IsRepeat: rec.IsRepeat,
			Colour:   ResolveColour(active),
			Params:   active.Sorted(),
			Cells:    make([]ReportCell, len(headers)),
			Comment:  comments.Get(rec.ID),
		}
		for i, col := range report.Columns {
			value := rec.Value(col.Header)
			row.Cells[i] = ReportCell{
				Header: col.Header,
				Value:  value,
				Active: active.Has(col.Param) && value != "",
			}
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}

func groupSpans(columns []ReportColumn) []GroupSpan {
	var spans []GroupSpan
	for i, col := range columns {
		if n := len(spans); n > 0 && spans[n-1].Group == col.Group {
			spans[n-1].Width++
			continue
		}
		spans = append(spans, GroupSpan{Group: col.Group, Start: i, Width: 1})
	}
	return spans
}

// DeviceGroups lists the device groups present in the report, in group order.
func (r Report) DeviceGroups() []DeviceGroup {
	seen := make(map[DeviceGroup]bool)
	var groups []DeviceGroup
	for _, col := range r.Columns {
		if !seen[col.Group] {
			seen[col.Group] = true
			groups = append(groups, col.Group)
		}
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Rank() < groups[j].Rank() })
	return groups
}
