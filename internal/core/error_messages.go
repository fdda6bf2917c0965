package core

// error_messages.go maps technical errors to user-facing messages with
// codes for support reference.
//
// # Pipeline Errors
//
//	SCH001 - Reference file missing, empty or without columns
//	GRM001 - Field rules do not cover every reference column
//	SRC001 - A source file could not be read and was skipped
//	SRC002 - No usable source files
//	RUN001 - Another pipeline run is in progress
//	RUN002 - Duplicate resolution failed on a malformed record
//	RUN003 - No run has been reported yet
//	SNK001 - Publishing to the search store failed
//
// # Database Errors
//
//	DB004 - Connection refused
//	DB006 - Timeout
//
// # File and Upload Errors
//
//	FILE001 - File too large
//	FILE002 - Invalid CSV
//	FILE004 - No file provided
//	FILE006 - Not a CSV file
//	FILE007 - Upload name reserved for a pipeline output
//	UPL004  - Request cancelled
//	UPL005  - Request timed out
//
// # Default
//
//	ERR000 - Unknown error; check the logs for the technical error
//
// Typed errors are matched first with errors.Is/As. Anything else falls back
// to case-insensitive substring patterns, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

var (
	msgSchemaLoad = UserMessage{
		Message: "The reference field list could not be loaded",
		Action:  "Upload a reference CSV whose first row lists the inventory fields",
		Code:    "SCH001",
	}
	msgGrammarIncomplete = UserMessage{
		Message: "Some reference fields have no validation rule",
		Action:  "Check that the reference file matches the inventory field set",
		Code:    "GRM001",
	}
	msgSourceRead = UserMessage{
		Message: "A source file could not be read",
		Action:  "Check the run report for the failing file and re-export it as UTF-8 CSV",
		Code:    "SRC001",
	}
	msgNoSources = UserMessage{
		Message: "There are no source files to process",
		Action:  "Upload at least one inventory CSV export",
		Code:    "SRC002",
	}
	msgBusy = UserMessage{
		Message: "Another pipeline run is in progress",
		Action:  "Please wait for it to finish and try again",
		Code:    "RUN001",
	}
	msgIdentityKey = UserMessage{
		Message: "Duplicate resolution failed",
		Action:  "Contact support with the run ID from the report",
		Code:    "RUN002",
	}
	msgNoReport = UserMessage{
		Message: "No pipeline run has completed yet",
		Action:  "Start a run first",
		Code:    "RUN003",
	}
	msgSink = UserMessage{
		Message: "Results were written but could not be published",
		Action:  "Check the search store connection and run again",
		Code:    "SNK001",
	}
	msgCancelled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try again later or reduce the number of source files",
		Code:    "UPL005",
	}
)

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// Order matters: more specific patterns come first.
var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with a header row",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "not a csv file",
		msg: UserMessage{
			Message: "Only .csv files are accepted",
			Action:  "Export the inventory as CSV and upload again",
			Code:    "FILE006",
		},
	},
	{
		pattern: "is a pipeline output",
		msg: UserMessage{
			Message: "That file name is reserved for a pipeline output",
			Action:  "Rename the export and upload again",
			Code:    "FILE007",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
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

	if msg, ok := mapTyped(err); ok {
		return msg
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

func mapTyped(err error) (UserMessage, bool) {
	var (
		schemaErr   *SchemaLoadError
		grammarErr  *GrammarIncompleteError
		identityErr *IdentityKeyError
		sinkErr     *SinkError
		sourceErr   *SourceReadError
	)

	switch {
	case errors.Is(err, ErrPipelineBusy):
		return msgBusy, true
	case errors.Is(err, ErrNoSources):
		return msgNoSources, true
	case errors.Is(err, ErrNoReport):
		return msgNoReport, true
	case errors.As(err, &schemaErr):
		return msgSchemaLoad, true
	case errors.As(err, &grammarErr):
		return msgGrammarIncomplete, true
	case errors.As(err, &identityErr):
		return msgIdentityKey, true
	case errors.As(err, &sinkErr):
		return msgSink, true
	case errors.As(err, &sourceErr):
		return msgSourceRead, true
	case errors.Is(err, context.Canceled):
		return msgCancelled, true
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout, true
	}
	return UserMessage{}, false
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
