package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/labreport/internal/config"
	"github.com/JonMunkholm/labreport/internal/metrics"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Save triggers, used for logs and metrics.
const (
	TriggerManual   = "manual"
	TriggerAutosave = "autosave"
)

// PersistedState is the blob exchanged with the state store and the
// /api/state endpoints. Sets are encoded as arrays.
type PersistedState struct {
	ParsedData *ParsedDataset `json:"parsedData"`
	Comments   CommentMap     `json:"comments"`
	Selection  SelectionState `json:"selection"`
}

// Snapshot is a consistent copy of the session. The dataset is shared and
// must not be modified.
type Snapshot struct {
	Dataset    *ParsedDataset
	Selection  SelectionState
	Comments   CommentMap
	Generation uuid.UUID
}

// Service owns the single analyst session: the loaded dataset, the
// selection, the comments and the generation id identifying this dataset
// load. Every derived view is recomputed from that state on read.
type Service struct {
	store   StateStore
	cfg     *config.Config
	columns ColumnNames
	metrics *metrics.Metrics
	limiter *IngestLimiter
	now     func() time.Time

	// diagnostics caches DiagnosticTable per generation.
	diagnostics *cache.Cache

	mu      sync.RWMutex
	session Snapshot

	// persistMu serializes save and restore round-trips.
	persistMu sync.Mutex

	// generations announces new generations to the autosave scheduler.
	generations chan uuid.UUID
}

// NewService creates a Service. m may be nil.
func NewService(store StateStore, cfg *config.Config, m *metrics.Metrics) *Service {
	ttl := cfg.Session.DiagnosticsCacheTTL
	return &Service{
		store:       store,
		cfg:         cfg,
		columns:     ColumnNamesFromConfig(cfg.Columns),
		metrics:     m,
		limiter:     NewIngestLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		now:         time.Now,
		diagnostics: cache.New(ttl, 2*ttl),
		generations: make(chan uuid.UUID, 1),
	}
}

// ColumnNamesFromConfig converts the column settings.
func ColumnNamesFromConfig(c config.ColumnConfig) ColumnNames {
	return ColumnNames{
		IonQuotient:      c.IonQuotient,
		ELFQuotient:      c.ELFQuotient,
		TheoreticalLF:    c.TheoreticalLF,
		Corg:             c.Corg,
		LFPrimary:        c.LFPrimary,
		LFFallback:       c.LFFallback,
		AlkalinityPrefix: c.AlkalinityPrefix,
	}
}

// Columns returns the semantic column names in use.
func (s *Service) Columns() ColumnNames {
	return s.columns
}

// LoadResult describes the session a successful LoadDataset installed.
type LoadResult struct {
	Stats       IngestStats
	Generation  uuid.UUID
	Diagnostics DiagnosticTable
}

// LoadDataset ingests an uploaded export and starts a new session from it.
// On failure the current session is left unchanged and only Stats is set.
func (s *Service) LoadDataset(ctx context.Context, fileName string, r io.Reader) (LoadResult, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return LoadResult{}, err
	}
	defer s.limiter.Release()

	start := time.Now()
	counter := NewCountingReader(r)
	ds, stats, err := Ingest(counter, fileName, s.now())
	s.metrics.ObserveIngest(err, time.Since(start), counter.BytesRead, stats.DataRows, stats.SkippedRows)
	if err != nil {
		return LoadResult{Stats: stats}, fmt.Errorf("ingest %s: %w", fileName, err)
	}

	table := DiagnoseDataset(ds, s.columns)
	gen := s.replace(Snapshot{
		Dataset:   ds,
		Selection: NewSelection(ds),
		Comments:  SeedComments(nil, table),
	})
	s.diagnostics.SetDefault(gen.String(), table)

	slog.Info("dataset loaded",
		"file", fileName,
		"rows", stats.DataRows,
		"headers", stats.Headers,
		"skipped_rows", stats.SkippedRows,
		"bytes", counter.BytesRead,
		"generation", gen,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err := NewColumnResolver(ds.ResultHeaders, s.columns).Missing(); err != nil {
		slog.Warn("ion-balance columns missing", "file", fileName, "error", err)
	}
	return LoadResult{Stats: stats, Generation: gen, Diagnostics: table}, nil
}

// replace installs a new session under a fresh generation and tells the
// autosave scheduler about it.
func (s *Service) replace(next Snapshot) uuid.UUID {
	next.Generation = uuid.New()
	if next.Comments == nil {
		next.Comments = CommentMap{}
	}

	s.mu.Lock()
	old := s.session.Generation
	s.session = next
	s.mu.Unlock()

	if old != uuid.Nil {
		s.diagnostics.Delete(old.String())
	}
	s.announce(next.Generation)
	return next.Generation
}

// announce hands gen to the scheduler, replacing an unconsumed older one.
func (s *Service) announce(gen uuid.UUID) {
	for {
		select {
		case s.generations <- gen:
			return
		default:
		}
		select {
		case <-s.generations:
		default:
		}
	}
}

// Snapshot returns the current session or ErrNoDataset.
func (s *Service) Snapshot() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session.Dataset == nil {
		return Snapshot{}, ErrNoDataset
	}
	return s.session, nil
}

// Generation returns the current generation, uuid.Nil before the first load.
func (s *Service) Generation() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Generation
}

// Dataset returns the loaded dataset.
func (s *Service) Dataset() (*ParsedDataset, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Dataset, nil
}

// UpdateSelection applies a selection transition atomically.
func (s *Service) UpdateSelection(fn func(ds *ParsedDataset, sel SelectionState) (SelectionState, error)) (SelectionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Dataset == nil {
		return SelectionState{}, ErrNoDataset
	}

	next, err := fn(s.session.Dataset, s.session.Selection)
	if err != nil {
		return SelectionState{}, err
	}
	s.session.Selection = next
	return next, nil
}

// updateRow is UpdateSelection for transitions scoped to one existing row.
func (s *Service) updateRow(id int, fn func(rec LabRecord, sel SelectionState) (SelectionState, error)) (SelectionState, error) {
	return s.UpdateSelection(func(ds *ParsedDataset, sel SelectionState) (SelectionState, error) {
		rec, ok := ds.Record(id)
		if !ok {
			return SelectionState{}, fmt.Errorf("%w: %d", ErrUnknownRow, id)
		}
		return fn(rec, sel)
	})
}

// ToggleRow switches one row on or off.
func (s *Service) ToggleRow(id int) (SelectionState, error) {
	return s.updateRow(id, func(rec LabRecord, sel SelectionState) (SelectionState, error) {
		return sel.ToggleRow(rec.ID), nil
	})
}

// ToggleAllRows selects every row, or clears the selection when all are
// selected.
func (s *Service) ToggleAllRows() (SelectionState, error) {
	return s.UpdateSelection(func(ds *ParsedDataset, sel SelectionState) (SelectionState, error) {
		return sel.ToggleAllRows(ds), nil
	})
}

// ToggleParam switches one parameter of one row.
func (s *Service) ToggleParam(id int, param string) (SelectionState, error) {
	return s.updateRow(id, func(rec LabRecord, sel SelectionState) (SelectionState, error) {
		return sel.ToggleParam(rec.ID, param), nil
	})
}

// ToggleAllParams switches all available parameters of a row.
func (s *Service) ToggleAllParams(id int) (SelectionState, error) {
	return s.updateRow(id, func(rec LabRecord, sel SelectionState) (SelectionState, error) {
		return sel.ToggleAllParams(rec), nil
	})
}

// ToggleGroup switches the parameters of one device group of a row.
func (s *Service) ToggleGroup(id int, group string) (SelectionState, error) {
	g, err := ParseDeviceGroup(group)
	if err != nil {
		return SelectionState{}, err
	}
	return s.updateRow(id, func(rec LabRecord, sel SelectionState) (SelectionState, error) {
		return sel.ToggleGroup(rec, g), nil
	})
}

// ApplyChemicalSet replaces the active parameters of a row with a set.
func (s *Service) ApplyChemicalSet(id int, set string) (SelectionState, error) {
	cs, err := ParseChemicalSet(set)
	if err != nil {
		return SelectionState{}, err
	}
	return s.updateRow(id, func(rec LabRecord, sel SelectionState) (SelectionState, error) {
		return sel.ApplyChemicalSet(rec, cs), nil
	})
}

// AvailableParams returns the grouped available parameters of a row.
func (s *Service) AvailableParams(id int) ([]ParamGroup, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	rec, ok := snap.Dataset.Record(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRow, id)
	}
	return GroupParams(AvailableParams(rec)), nil
}

// SetComment stores the analyst's comment of a row. Blank text removes it.
func (s *Service) SetComment(id int, text string) (CommentMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.Dataset == nil {
		return nil, ErrNoDataset
	}
	if _, ok := s.session.Dataset.Record(id); !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRow, id)
	}
	s.session.Comments = s.session.Comments.With(id, text)
	return s.session.Comments, nil
}

// Diagnostics returns the ion-balance table of the current dataset.
func (s *Service) Diagnostics() (DiagnosticTable, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return DiagnosticTable{}, err
	}
	return s.diagnosticsFor(snap), nil
}

func (s *Service) diagnosticsFor(snap Snapshot) DiagnosticTable {
	key := snap.Generation.String()
	if cached, ok := s.diagnostics.Get(key); ok {
		return cached.(DiagnosticTable)
	}
	table := DiagnoseDataset(snap.Dataset, s.columns)
	s.diagnostics.SetDefault(key, table)
	return table
}

// Report assembles the report of the selected rows.
func (s *Service) Report() (Report, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return Report{}, err
	}
	return BuildReport(snap.Dataset, snap.Selection, snap.Comments), nil
}

// Workbook lays out the spreadsheet export.
func (s *Service) Workbook() (WorkbookLayout, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return WorkbookLayout{}, err
	}
	report := BuildReport(snap.Dataset, snap.Selection, snap.Comments)
	return BuildWorkbook(report, s.diagnosticsFor(snap), snap.Comments), nil
}

// DiagnosticLines returns the ion-balance rows as exported to CSV.
func (s *Service) DiagnosticLines() ([]DiagnosticLine, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return DiagnosticLines(s.diagnosticsFor(snap), snap.Comments), nil
}

// RecordExport counts a generated export.
func (s *Service) RecordExport(kind string) {
	s.metrics.ObserveExport(kind)
}

// State returns the persistable form of the session.
func (s *Service) State() (PersistedState, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return PersistedState{}, err
	}
	return PersistedState{
		ParsedData: snap.Dataset,
		Comments:   snap.Comments,
		Selection:  snap.Selection,
	}, nil
}

// ImportState replaces the session with a state received from a client.
// A dataset that breaks the ingestion invariants is rejected.
func (s *Service) ImportState(state PersistedState) error {
	if state.ParsedData == nil {
		return ErrNoDataset
	}
	if err := state.ParsedData.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	s.install(state)
	return nil
}

// install makes state the current session under a new generation. Rows the
// selection does not know about are seeded like a fresh load; selection and
// comment entries for IDs outside the dataset are dropped.
func (s *Service) install(state PersistedState) uuid.UUID {
	seeded := NewSelection(state.ParsedData)

	sel := SelectionState{SelectedRowIDs: RowSet{}, RowParams: seeded.RowParams}
	comments := make(CommentMap, len(state.Comments))
	for id := range seeded.RowParams {
		if state.Selection.SelectedRowIDs.Has(id) {
			sel.SelectedRowIDs[id] = struct{}{}
		}
		if params, ok := state.Selection.RowParams[id]; ok {
			if params == nil {
				params = ParamSet{}
			}
			sel.RowParams[id] = params
		}
		if c, ok := state.Comments[id]; ok {
			comments = comments.With(id, c)
		}
	}

	return s.replace(Snapshot{
		Dataset:   state.ParsedData,
		Selection: sel,
		Comments:  comments,
	})
}

// SaveState persists the current session.
func (s *Service) SaveState(ctx context.Context) error {
	return s.save(ctx, uuid.Nil, TriggerManual)
}

// saveGeneration persists the session only while it still belongs to gen.
func (s *Service) saveGeneration(ctx context.Context, gen uuid.UUID) error {
	return s.save(ctx, gen, TriggerAutosave)
}

func (s *Service) save(ctx context.Context, gen uuid.UUID, trigger string) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	start := time.Now()
	outcome := "success"
	defer func() {
		s.metrics.ObserveSave(trigger, outcome, time.Since(start))
	}()

	snap, err := s.Snapshot()
	if err != nil {
		outcome = "error"
		return err
	}
	if gen != uuid.Nil && snap.Generation != gen {
		outcome = "stale"
		return ErrStaleGeneration
	}

	payload, err := json.Marshal(PersistedState{
		ParsedData: snap.Dataset,
		Comments:   snap.Comments,
		Selection:  snap.Selection,
	})
	if err != nil {
		outcome = "error"
		return fmt.Errorf("encode state: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Session.SaveTimeout)
	defer cancel()
	if err := s.store.Save(ctx, s.cfg.Session.StateKey, payload); err != nil {
		outcome = "error"
		return err
	}

	slog.Debug("state saved",
		"trigger", trigger,
		"generation", snap.Generation,
		"bytes", len(payload),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// RestoreState replaces the session with the last saved state. On failure
// the in-memory session is untouched.
func (s *Service) RestoreState(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Session.SaveTimeout)
	defer cancel()

	payload, err := s.store.Load(ctx, s.cfg.Session.StateKey)
	if err != nil {
		return err
	}

	var state PersistedState
	if err := json.Unmarshal(payload, &state); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	if state.ParsedData == nil {
		return fmt.Errorf("decode state: %w", ErrNoDataset)
	}
	if err := state.ParsedData.Validate(); err != nil {
		return fmt.Errorf("decode state: %w: %v", ErrInvalidState, err)
	}

	gen := s.install(state)
	slog.Info("state restored",
		"file", state.ParsedData.FileName,
		"rows", len(state.ParsedData.Data),
		"generation", gen,
	)
	return nil
}

// ClearSavedState deletes the saved state.
func (s *Service) ClearSavedState(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Session.SaveTimeout)
	defer cancel()
	return s.store.Delete(ctx, s.cfg.Session.StateKey)
}

// WaitForIngests blocks until running ingestions finish, for shutdown.
func (s *Service) WaitForIngests(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// ActiveIngests returns the number of running ingestions.
func (s *Service) ActiveIngests() int {
	return s.limiter.Active()
}
