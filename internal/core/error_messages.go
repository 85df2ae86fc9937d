package core

// error_messages.go maps technical errors to user-facing messages.
//
// # Error Codes Reference
//
// Every message carries a code users can quote to support staff.
//
// # Source Errors (SRC001-SRC099)
//
// The dataset file could not be read. The message names the file.
//
//	SRC001 - Not found: the file does not exist
//	         Action: Check that the file is in place and DATASET_PATH points to it
//	SRC002 - Permission denied: the file exists but cannot be opened
//	         Action: Grant the server read access to the file
//	SRC003 - Too large: the file exceeds the configured size limit
//	         Action: Raise DATASET_MAX_FILE_SIZE or trim the file
//	SRC004 - Empty or invalid: the file has no header row or is not delimited text
//	         Action: Export the data again as CSV with a header row
//	SRC005 - Unreadable: any other I/O failure
//	         Action: Check the server logs and try again
//
// # File Errors (FILE001-FILE099)
//
// Errors with a file posted for cleaning:
//
//	FILE001 - File too large
//	          Patterns: "request body too large"
//	FILE004 - No file: no file was attached
//	          Patterns: "no file provided"
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Missing parameter
//	         Patterns: "missing parameter"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: too many files are being cleaned
//	         Patterns: "too many concurrent"
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check the logs for the
// original error.
//
// # Pattern Matching
//
// Source errors are classified by type with errors.Is. Everything else is
// matched case-insensitively with strings.Contains; the first matching
// pattern wins.

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Order matters: more specific patterns come first.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The uploaded file exceeds the maximum size",
			Action:  "Split the file into smaller parts",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was attached",
			Action:  "Please select a CSV file to clean",
			Code:    "FILE004",
		},
	},

	// =========================================================================
	// Request Errors
	// =========================================================================
	{
		pattern: "missing parameter",
		msg: UserMessage{
			Message: "A required parameter is missing",
			Action:  "Check the request and try again",
			Code:    "REQ001",
		},
	},

	// =========================================================================
	// Upload Errors
	// =========================================================================
	{
		pattern: "too many concurrent",
		msg: UserMessage{
			Message: "Too many files are being cleaned right now",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Rate Limiting
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// A nil error maps to the zero UserMessage.
//
// Example:
//
//	_, err := svc.Load(ctx, "gdp.csv") // file missing
//	msg := MapError(err)
//	// msg.Code == "SRC001"
//	// msg.Message == `Data file "gdp.csv" was not found`
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var se *SourceError
	if errors.As(err, &se) {
		return sourceMessage(se)
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// sourceMessage classifies a SourceError by its cause.
func sourceMessage(se *SourceError) UserMessage {
	name := se.Source
	switch {
	case errors.Is(se.Err, fs.ErrNotExist):
		return UserMessage{
			Message: fmt.Sprintf("Data file %q was not found", name),
			Action:  "Check that the file is in place and DATASET_PATH points to it",
			Code:    "SRC001",
		}
	case errors.Is(se.Err, fs.ErrPermission):
		return UserMessage{
			Message: fmt.Sprintf("Data file %q cannot be opened", name),
			Action:  "Grant the server read access to the file",
			Code:    "SRC002",
		}
	case errors.Is(se.Err, ErrSourceTooLarge):
		return UserMessage{
			Message: fmt.Sprintf("Data file %q is too large", name),
			Action:  "Raise DATASET_MAX_FILE_SIZE or trim the file",
			Code:    "SRC003",
		}
	case errors.Is(se.Err, ErrEmptySource), errors.Is(se.Err, ErrNoHeader), se.Op == "parse":
		return UserMessage{
			Message: fmt.Sprintf("Data file %q is empty or not valid CSV", name),
			Action:  "Export the data again as CSV with a header row",
			Code:    "SRC004",
		}
	default:
		return UserMessage{
			Message: fmt.Sprintf("Data file %q could not be read", name),
			Action:  "Check the server logs and try again",
			Code:    "SRC005",
		}
	}
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
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
