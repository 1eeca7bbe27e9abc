package core

// error_messages.go defines user-friendly error messages with codes for
// support reference. When users encounter errors, they can quote the error
// code to support staff for faster diagnosis.
//
// Error codes are grouped by category:
//
// # Input Errors (PARSE, SCHEMA, EMPTY)
//
//	PARSE001  - Malformed CSV: the file has broken quoting or structure
//	            Action: Fix the reported lines and upload again
//
//	SCHEMA001 - Missing column: the group column is not in the header
//	            Action: Check the header matches the expected column exactly
//
//	SCHEMA002 - No group column: neither the report nor the request named one
//	            Action: Pick a report or supply a group column
//
//	EMPTY001  - Nothing to split: no data rows carried a usable group value
//	            Action: Upload a file with at least one data row
//
// # File Errors (FILE001-FILE004)
//
//	FILE001 - File too large: the upload exceeds the size limit
//	          Action: Split the file into smaller chunks
//
//	FILE002 - No file: no file was selected
//	          Action: Choose a CSV file to upload
//
//	FILE003 - Empty file: the uploaded file has no content
//	          Action: Upload a CSV file with data rows
//
//	FILE004 - Wrong file type: the upload is not a .csv or .txt file
//	          Action: Export the data as CSV and upload that
//
// # Run Errors (RUN001-RUN004)
//
//	RUN001 - Run not found: the run expired or never existed
//	         Action: Start a new run
//
//	RUN002 - System busy: too many runs in progress
//	         Action: Wait a moment and try again
//
//	RUN003 - Archive gone: the download was revoked or expired
//	         Action: Start a new run to rebuild the archive
//
//	RUN004 - Interrupted: the run was cut short by a timeout or shutdown
//	         Action: Try again; split the file if it keeps happening
//
// # Other (RPT001, RATE001, ERR000)
//
//	RPT001  - Unknown report: the report key is not registered
//	RATE001 - Rate limited: too many requests from this client
//	ERR000  - Fallback when nothing more specific matches
//
// Typed errors from the pipeline are matched first with errors.As/Is; the
// string patterns below only catch errors from outside this module. When
// users report ERR000, check the application logs for the original error.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reportkit/splitcsv/internal/pipeline"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`          // What happened (user-friendly)
	Action  string `json:"action"`           // What to do about it
	Code    string `json:"code"`             // Error code for support reference
	Detail  string `json:"detail,omitempty"` // Optional specifics, safe to show
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user
// messages for errors that originate outside this module. Matched with
// strings.Contains; the first match wins, so specific patterns come before
// general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "The file exceeds the upload size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "missing form body",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a CSV file to upload",
			Code:    "FILE002",
		},
	},
	{
		pattern: "multipart/form-data",
		msg: UserMessage{
			Message: "The upload form was invalid",
			Action:  "Retry the upload with a CSV file attached",
			Code:    "FILE002",
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
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The request was cancelled",
			Action:  "Please try again",
			Code:    "RUN004",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "The operation timed out",
			Action:  "Try a smaller file or try again later",
			Code:    "RUN004",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Typed errors from the pipeline and the run lifecycle are matched first;
// remaining errors fall back to case-insensitive pattern matching, then to
// the generic ERR000 message.
//
// Example:
//
//	_, err := svc.StartRun(ctx, req)
//	msg := MapError(err)
//	// msg.Code == "RPT001"
//	// msg.Message == "That report type is not configured"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var parseErr *pipeline.ParseError
	var schemaErr *pipeline.SchemaError
	var emptyErr *pipeline.EmptyResultError
	var resErr *pipeline.ResourceError

	switch {
	case errors.As(err, &parseErr):
		detail := ""
		if len(parseErr.Diags) > 0 {
			detail = parseErr.Diags[0].String()
		}
		return UserMessage{
			Message: "The file is not valid CSV",
			Action:  "Fix the quoting on the reported lines and upload again",
			Code:    "PARSE001",
			Detail:  detail,
		}

	case errors.As(err, &schemaErr):
		return UserMessage{
			Message: fmt.Sprintf("Column %q was not found in the header", schemaErr.Column),
			Action:  "Check that the column header matches exactly, including case",
			Code:    "SCHEMA001",
		}

	case errors.Is(err, pipeline.ErrNoGroupColumn):
		return UserMessage{
			Message: "No group column is configured",
			Action:  "Pick a report or supply a group column",
			Code:    "SCHEMA002",
		}

	case errors.As(err, &emptyErr):
		return UserMessage{
			Message: "No rows could be grouped",
			Action:  "Upload a file with at least one data row with a group value",
			Code:    "EMPTY001",
		}

	case errors.Is(err, ErrFileTooLarge):
		return UserMessage{
			Message: "The file exceeds the upload size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		}

	case errors.Is(err, ErrNoFile):
		return UserMessage{
			Message: "No file was selected",
			Action:  "Choose a CSV file to upload",
			Code:    "FILE002",
		}

	case errors.Is(err, ErrEmptyFile):
		return UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a CSV file with data rows",
			Code:    "FILE003",
		}

	case errors.Is(err, ErrBadFileType):
		return UserMessage{
			Message: "Only .csv and .txt files can be split",
			Action:  "Export the data as CSV and upload that",
			Code:    "FILE004",
		}

	case errors.Is(err, ErrRunNotFound), errors.Is(err, ErrRunNotFinished):
		return UserMessage{
			Message: "That run is no longer available",
			Action:  "Start a new run",
			Code:    "RUN001",
		}

	case errors.Is(err, ErrTooManyRuns):
		return UserMessage{
			Message: "Too many runs are in progress",
			Action:  "Please wait a moment and try again",
			Code:    "RUN002",
		}

	case errors.Is(err, ErrArchiveUnavailable):
		return UserMessage{
			Message: "The download was revoked or has expired",
			Action:  "Start a new run to rebuild the archive",
			Code:    "RUN003",
		}

	case errors.As(err, &resErr):
		return UserMessage{
			Message: "The run was interrupted before it finished",
			Action:  "Try again; split the file if it keeps happening",
			Code:    "RUN004",
		}

	case errors.Is(err, ErrUnknownReport):
		return UserMessage{
			Message: "That report type is not configured",
			Action:  "Pick one of the listed reports",
			Code:    "RPT001",
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

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// Example output: "The uploaded file is empty (Code: FILE003). Upload a CSV file with data rows"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error maps to a specific known message rather
// than the generic ERR000 fallback. Use this to decide whether to show the
// mapped message or to log the raw error and apologize.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// StatusClass groups codes for transport layers that need an HTTP status.
// Input and file problems are the client's to fix; run lookups are
// not-found; busy and rate codes are throttling; the rest are server-side.
func (m UserMessage) StatusClass() string {
	switch m.Code {
	case "PARSE001", "SCHEMA001", "SCHEMA002", "EMPTY001", "FILE001", "FILE002", "FILE003", "FILE004", "RPT001":
		return "client"
	case "RUN001", "RUN003":
		return "missing"
	case "RUN002", "RATE001":
		return "busy"
	default:
		return "server"
	}
}
