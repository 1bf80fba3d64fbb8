package core

import "strings"

// CommentMap holds the analyst's free-text annotation per record ID.
// Like SelectionState it is updated by value: With and SeedComments return
// new maps.
type CommentMap map[int]string

// Get returns the comment of a row, or "".
func (m CommentMap) Get(id int) string {
	return m[id]
}

// lineEndings folds CRLF and lone CR to LF. The CSV export can only carry
// LF inside a cell.
var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// With returns a copy in which row id carries text with LF line endings.
// Blank text removes the comment.
func (m CommentMap) With(id int, text string) CommentMap {
	text = lineEndings.Replace(text)
	out := make(CommentMap, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	if strings.TrimSpace(text) == "" {
		delete(out, id)
	} else {
		out[id] = text
	}
	return out
}

// SeedComments fills in the automatic comment of every diagnosed row that
// has no comment yet. Existing comments are never replaced.
func SeedComments(existing CommentMap, table DiagnosticTable) CommentMap {
	out := make(CommentMap, len(existing))
	for k, v := range existing {
		out[k] = v
	}
	for _, d := range table.Rows {
		if d.AutoComment == "" {
			continue
		}
		if _, ok := out[d.RowID]; !ok {
			out[d.RowID] = d.AutoComment
		}
	}
	return out
}

// exportComment is the manual comment if there is one, otherwise the
// freshly derived automatic comment.
func exportComment(comments CommentMap, d Diagnostic) string {
	if c := comments.Get(d.RowID); c != "" {
		return c
	}
	return d.AutoComment
}
