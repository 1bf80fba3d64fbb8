package core

import "testing"

func TestCommentMap_With(t *testing.T) {
	m := CommentMap{1: "alt"}

	next := m.With(2, "neu")
	if m.Get(2) != "" {
		t.Error("original map was modified")
	}
	if next.Get(1) != "alt" || next.Get(2) != "neu" {
		t.Errorf("got %v", next)
	}

	cleared := next.With(1, "  ")
	if _, ok := cleared[1]; ok {
		t.Error("blank text should delete the comment")
	}
}

func TestCommentMap_WithNormalizesLineEndings(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Zeile1\r\nZeile2", "Zeile1\nZeile2"},
		{"Zeile1\rZeile2", "Zeile1\nZeile2"},
		{"Zeile1\nZeile2", "Zeile1\nZeile2"},
		{"a\r\n\r\nb", "a\n\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := (CommentMap{}).With(1, tt.in).Get(1); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSeedComments_KeepsManualComments(t *testing.T) {
	table := DiagnosticTable{Rows: []Diagnostic{
		{RowID: 1, AutoComment: CommentCorgAbove20},
		{RowID: 2, AutoComment: CommentLowConductivity},
		{RowID: 3},
	}}

	seeded := SeedComments(CommentMap{1: "manuell"}, table)

	if seeded.Get(1) != "manuell" {
		t.Errorf("manual comment replaced: %q", seeded.Get(1))
	}
	if seeded.Get(2) != CommentLowConductivity {
		t.Errorf("auto comment not seeded: %q", seeded.Get(2))
	}
	if _, ok := seeded[3]; ok {
		t.Error("rows without auto comment get no entry")
	}
}

func TestExportComment(t *testing.T) {
	d := Diagnostic{RowID: 4, AutoComment: CommentCorgAbove20}

	if got := exportComment(CommentMap{}, d); got != CommentCorgAbove20 {
		t.Errorf("fallback = %q", got)
	}
	if got := exportComment(CommentMap{4: "geprüft"}, d); got != "geprüft" {
		t.Errorf("manual = %q", got)
	}
}
