// Package core provides the domain logic of the lab report service.
//
// This package turns a laboratory water-quality export into a colour-coded
// report with ion-balance diagnostics. It is independent of any transport
// layer and is used by the HTTP server, the CLI and tests alike.
//
// # Pipeline
//
//	raw file -> Ingest -> ParsedDataset -> {DiagnoseDataset, NewSelection}
//	         -> BuildReport -> {screen rows, BuildWorkbook}
//
//   - Ingestion: [Ingest] decodes a Windows-1252 export and sorts the result
//     headers with German collation. That order is kept by every consumer.
//   - Device classification: [Classify] maps a header or base parameter to one
//     of the [DeviceGroups]. [BaseName] strips the replicate suffix.
//   - Ion balance: [Diagnose] checks the ion quotient and the measured against
//     theoretical conductivity, and derives a remark and an automatic comment.
//     Semantic columns are located by a [ColumnResolver].
//   - Selection: [SelectionState] is an immutable value; every toggle returns
//     a new state.
//   - Report: [BuildReport] filters and orders the selected rows, resolves the
//     row colour with [ResolveColour] and decides which cells are active.
//
// All of the above are pure functions of their inputs.
//
// # Session
//
// [Service] holds the one analyst session (dataset, selection, comments) and
// a generation id that changes with every load or restore. It persists the
// session through a [StateStore] and runs the autosave task of the current
// generation (see [Service.StartAutosaveScheduler]).
//
// # Error Handling
//
// Failures are reported through sentinel errors such as [ErrTooFewRows] or
// [ErrUnknownRow], wrapped with context. [MapError] turns them into
// user-facing messages with support codes:
//
//   - ING001-ING004: ingestion errors
//   - COL001: missing ion-balance column
//   - SEL001-SEL003: selection errors
//   - STO001-STO003: persistence errors
//   - FILE001-FILE004, REQ001-REQ002, RATE001, ERR000
package core
