package core

// error_messages.go maps technical errors to messages shown to the analyst,
// each with a code for support reference.
//
// # Error Codes Reference
//
// # Ingestion Errors (ING001-ING099)
//
//	ING001 - Unreadable file: the file could not be decoded
//	ING002 - Too few rows: header and at least one data row are required
//	ING003 - Missing header: row 2 of the file is empty or broken
//	ING004 - No result columns: the header has no columns from column 8 on
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Column not found: a diagnostic column is missing from the export
//
// # Selection Errors (SEL001-SEL099)
//
//	SEL001 - No dataset: nothing has been loaded yet
//	SEL002 - Unknown row: the row id is not part of the current dataset
//	SEL003 - Unknown set or group: chemical set or device group name invalid
//
// # Persistence Errors (STO001-STO099)
//
//	STO001 - State not found: nothing has been saved yet
//	STO002 - Store unavailable: the database could not be reached
//	STO003 - Stale save: the dataset changed while a save was pending
//	STO004 - Invalid state: an imported or restored state is inconsistent
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large
//	FILE002 - No file provided
//	FILE003 - Busy: too many uploads in progress
//	FILE004 - Empty file
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Request cancelled
//	REQ002 - Request timed out
//
// # Rate Limiting (RATE001)
//
// # Default Error (ERR000)
//
// Sentinel errors are matched with errors.Is first. Errors from outside the
// package (database driver, HTTP layer) are matched by case-insensitive
// substring; the first matching pattern wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type sentinelMessage struct {
	target error
	msg    UserMessage
}

var sentinelMessages = []sentinelMessage{
	{ErrUnreadableFile, UserMessage{
		Message: "The file could not be read",
		Action:  "Export the measurement file again from the lab system",
		Code:    "ING001",
	}},
	{ErrTooFewRows, UserMessage{
		Message: "The file contains no measurement rows",
		Action:  "Check that the export has a header row and at least one sample",
		Code:    "ING002",
	}},
	{ErrMissingHeader, UserMessage{
		Message: "The header row is missing",
		Action:  "The column names must be in row 2 of the file",
		Code:    "ING003",
	}},
	{ErrNoResultColumns, UserMessage{
		Message: "The file has no result columns",
		Action:  "Results are expected from column 8 onward",
		Code:    "ING004",
	}},
	{ErrColumnNotFound, UserMessage{
		Message: "An ion-balance column is missing",
		Action:  "Include the ion-balance columns in the lab export",
		Code:    "COL001",
	}},
	{ErrNoDataset, UserMessage{
		Message: "No measurement file loaded",
		Action:  "Upload a measurement file first",
		Code:    "SEL001",
	}},
	{ErrUnknownRow, UserMessage{
		Message: "The sample row does not exist",
		Action:  "Reload the page to get the current dataset",
		Code:    "SEL002",
	}},
	{ErrUnknownChemicalSet, UserMessage{
		Message: "Unknown chemical set",
		Action:  "Use P, S or N",
		Code:    "SEL003",
	}},
	{ErrUnknownDeviceGroup, UserMessage{
		Message: "Unknown device group",
		Action:  "Use pH-LF-TIT, TOC, IC, ICP-OES or Sonstige",
		Code:    "SEL003",
	}},
	{ErrStateNotFound, UserMessage{
		Message: "No saved state found",
		Action:  "Save the current state first",
		Code:    "STO001",
	}},
	{ErrStaleGeneration, UserMessage{
		Message: "The dataset changed while saving",
		Action:  "The current dataset will be saved on the next run",
		Code:    "STO003",
	}},
	{ErrInvalidState, UserMessage{
		Message: "The state document is inconsistent",
		Action:  "Export the state again from a running session",
		Code:    "STO004",
	}},
	{ErrTooManyUploads, UserMessage{
		Message: "The system is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "FILE003",
	}},
	{context.Canceled, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "REQ001",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Request timed out",
		Action:  "Try again or upload a smaller file",
		Code:    "REQ002",
	}},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var storeUnavailable = UserMessage{
	Message: "The state store is not reachable",
	Action:  "Your work is kept in memory; please try again in a few moments",
	Code:    "STO002",
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
var errorPatterns = []errorPattern{
	{pattern: "connection refused", msg: storeUnavailable},
	{pattern: "connection reset", msg: storeUnavailable},
	{pattern: "failed to connect", msg: storeUnavailable},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum upload size",
			Action:  "Export fewer samples per file",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with data rows",
			Code:    "FILE004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.target) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
