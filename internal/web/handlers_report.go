package web

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/JonMunkholm/labreport/internal/export"
)

// reportResponse is the screen view: the report plus the colour legend.
type reportResponse struct {
	core.Report
	Legend []core.LegendEntry `json:"legend"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.Report()
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	if report.Rows == nil {
		report.Rows = []core.ReportRow{}
	}
	writeJSON(w, http.StatusOK, reportResponse{Report: report, Legend: core.Legend})
}

func (s *Server) handleIonBalance(w http.ResponseWriter, r *http.Request) {
	table, err := s.service.Diagnostics()
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// handleExportCSV downloads the ion-balance table.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ds, err := s.service.Dataset()
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	lines, err := s.service.DiagnosticLines()
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteDiagnosticCSV(&buf, lines); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.service.RecordExport("csv")
	sendFile(w, export.ContentTypeCSV, exportName(ds.FileName, "ionenbilanz", ".csv"), buf.Bytes())
}

// handleExportXLSX downloads the two-sheet workbook.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	ds, err := s.service.Dataset()
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	layout, err := s.service.Workbook()
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, layout); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.service.RecordExport("xlsx")
	sendFile(w, export.ContentTypeXLSX, exportName(ds.FileName, "auswertung", ".xlsx"), buf.Bytes())
}

// exportName derives a download name from the uploaded file name.
func exportName(source, suffix, ext string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "labor"
	}
	return base + "_" + suffix + ext
}

func sendFile(w http.ResponseWriter, contentType, name string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
