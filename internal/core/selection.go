package core

// selection.go models which samples and which parameters the analyst has
// switched on. SelectionState is treated as an immutable value: every
// operation returns a new state and leaves the receiver untouched.

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ParamSet is a set of base parameter names. It encodes as a sorted array.
type ParamSet map[string]struct{}

// NewParamSet builds a set from names.
func NewParamSet(names ...string) ParamSet {
	s := make(ParamSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s ParamSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members in device-group order.
func (s ParamSet) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sortByDeviceGroup(names)
	return names
}

func (s ParamSet) clone() ParamSet {
	c := make(ParamSet, len(s))
	for n := range s {
		c[n] = struct{}{}
	}
	return c
}

// MarshalJSON encodes the set as an array.
func (s ParamSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array into the set.
func (s *ParamSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	*s = NewParamSet(names...)
	return nil
}

// RowSet is a set of record IDs. It encodes as a sorted array.
type RowSet map[int]struct{}

// NewRowSet builds a set from ids.
func NewRowSet(ids ...int) RowSet {
	s := make(RowSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s RowSet) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s RowSet) Sorted() []int {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s RowSet) clone() RowSet {
	c := make(RowSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// MarshalJSON encodes the set as an array.
func (s RowSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array into the set.
func (s *RowSet) UnmarshalJSON(data []byte) error {
	var ids []int
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewRowSet(ids...)
	return nil
}

// SelectionState tracks the active rows and, per row, the active parameters.
// A row outside SelectedRowIDs is excluded from every report whatever its
// RowParams say.
type SelectionState struct {
	SelectedRowIDs RowSet           `json:"selectedRowIds"`
	RowParams      map[int]ParamSet `json:"rowParams"`
}

// NewSelection seeds a selection for a freshly loaded dataset: no row is
// selected, but every row already has all its available parameters active.
func NewSelection(ds *ParsedDataset) SelectionState {
	s := SelectionState{
		SelectedRowIDs: RowSet{},
		RowParams:      make(map[int]ParamSet, len(ds.Data)),
	}
	for _, rec := range ds.Data {
		s.RowParams[rec.ID] = NewParamSet(AvailableParams(rec)...)
	}
	return s
}

// IsSelected reports whether the row is active.
func (s SelectionState) IsSelected(id int) bool {
	return s.SelectedRowIDs.Has(id)
}

// Params returns the active parameters of a row. The result must not be
// modified.
func (s SelectionState) Params(id int) ParamSet {
	if p, ok := s.RowParams[id]; ok {
		return p
	}
	return ParamSet{}
}

// withRows returns a copy sharing RowParams with a new row set.
func (s SelectionState) withRows(rows RowSet) SelectionState {
	return SelectionState{SelectedRowIDs: rows, RowParams: s.RowParams}
}

// withParams returns a copy in which row id has the given parameter set.
func (s SelectionState) withParams(id int, params ParamSet) SelectionState {
	rp := make(map[int]ParamSet, len(s.RowParams)+1)
	for k, v := range s.RowParams {
		rp[k] = v
	}
	rp[id] = params
	return SelectionState{SelectedRowIDs: s.SelectedRowIDs, RowParams: rp}
}

// ToggleRow switches a row on or off.
func (s SelectionState) ToggleRow(id int) SelectionState {
	rows := s.SelectedRowIDs.clone()
	if rows.Has(id) {
		delete(rows, id)
	} else {
		rows[id] = struct{}{}
	}
	return s.withRows(rows)
}

// ToggleAllRows selects every row of ds unless all are already selected,
// in which case the selection is cleared.
func (s SelectionState) ToggleAllRows(ds *ParsedDataset) SelectionState {
	all := true
	for _, rec := range ds.Data {
		if !s.SelectedRowIDs.Has(rec.ID) {
			all = false
			break
		}
	}
	if all {
		return s.withRows(RowSet{})
	}

	rows := make(RowSet, len(ds.Data))
	for _, rec := range ds.Data {
		rows[rec.ID] = struct{}{}
	}
	return s.withRows(rows)
}

// ToggleParam switches one parameter of one row.
func (s SelectionState) ToggleParam(id int, param string) SelectionState {
	params := s.Params(id).clone()
	if params.Has(param) {
		delete(params, param)
	} else {
		params[param] = struct{}{}
	}
	return s.withParams(id, params)
}

// ToggleAllParams deactivates every available parameter of the row when all
// of them are active, and activates all of them otherwise.
func (s SelectionState) ToggleAllParams(rec LabRecord) SelectionState {
	return s.toggleScoped(rec.ID, AvailableParams(rec))
}

// ToggleGroup applies the all-or-nothing toggle to the row's available
// parameters of one device group.
func (s SelectionState) ToggleGroup(rec LabRecord, group DeviceGroup) SelectionState {
	var scoped []string
	for _, p := range AvailableParams(rec) {
		if Classify(p) == group {
			scoped = append(scoped, p)
		}
	}
	return s.toggleScoped(rec.ID, scoped)
}

func (s SelectionState) toggleScoped(id int, scoped []string) SelectionState {
	if len(scoped) == 0 {
		return s
	}

	current := s.Params(id)
	allActive := true
	for _, p := range scoped {
		if !current.Has(p) {
			allActive = false
			break
		}
	}

	params := current.clone()
	for _, p := range scoped {
		if allActive {
			delete(params, p)
		} else {
			params[p] = struct{}{}
		}
	}
	return s.withParams(id, params)
}

// ApplyChemicalSet replaces the row's active parameters with exactly those
// available parameters that belong to set. Everything else is switched off.
// When the row has no matching parameter the state is returned unchanged.
func (s SelectionState) ApplyChemicalSet(rec LabRecord, set ChemicalSet) SelectionState {
	var matching []string
	for _, p := range AvailableParams(rec) {
		if set.Matches(p) {
			matching = append(matching, p)
		}
	}
	if len(matching) == 0 {
		return s
	}
	return s.withParams(rec.ID, NewParamSet(matching...))
}

// AvailableParams lists the base parameters with at least one non-empty
// result in rec, ordered by device group and then alphabetically.
func AvailableParams(rec LabRecord) []string {
	seen := make(map[string]bool)
	var params []string
	for header, value := range rec.Results {
		if value == "" {
			continue
		}
		base := BaseName(header)
		if !seen[base] {
			seen[base] = true
			params = append(params, base)
		}
	}
	sortByDeviceGroup(params)
	return params
}

// ParamGroup is one device group's share of a row's available parameters.
type ParamGroup struct {
	Group  DeviceGroup `json:"group"`
	Params []string    `json:"params"`
}

// GroupParams splits a sorted parameter list by device group, keeping the
// group order. Empty groups are omitted.
func GroupParams(params []string) []ParamGroup {
	var groups []ParamGroup
	for _, p := range params {
		g := Classify(p)
		if n := len(groups); n > 0 && groups[n-1].Group == g {
			groups[n-1].Params = append(groups[n-1].Params, p)
			continue
		}
		groups = append(groups, ParamGroup{Group: g, Params: []string{p}})
	}
	return groups
}

// ChemicalSet names a fixed analyte panel used for one-click selection and
// priority colouring.
type ChemicalSet string

const (
	SetPhosphorus ChemicalSet = "P"
	SetSulfur     ChemicalSet = "S"
	SetNitrogen   ChemicalSet = "N"
)

// ChemicalSets lists the sets in priority order.
var ChemicalSets = []ChemicalSet{SetPhosphorus, SetSulfur, SetNitrogen}

var chemicalSetNames = map[ChemicalSet][]string{
	SetPhosphorus: {"PPO4IC", "PPgesICP"},
	SetSulfur:     {"SSO4IC", "SSgesICP"},
	SetNitrogen:   {"NNgesTOC", "NNH4IC", "NNO2IC", "NNO3IC", "CGES"},
}

// ParseChemicalSet accepts "P", "S" or "N" case-insensitively.
func ParseChemicalSet(s string) (ChemicalSet, error) {
	set := ChemicalSet(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := chemicalSetNames[set]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownChemicalSet, s)
	}
	return set, nil
}

// Names returns the parameter name fragments of the set.
func (c ChemicalSet) Names() []string {
	return chemicalSetNames[c]
}

// Matches reports whether param contains one of the set's names,
// ignoring case.
func (c ChemicalSet) Matches(param string) bool {
	upper := strings.ToUpper(param)
	for _, name := range chemicalSetNames[c] {
		if strings.Contains(upper, strings.ToUpper(name)) {
			return true
		}
	}
	return false
}
