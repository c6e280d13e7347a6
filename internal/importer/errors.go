package importer

import (
	"fmt"
	"strings"
)

// UnreadableFileError means no parse strategy could read the upload.
type UnreadableFileError struct {
	Name string
	Err  error
}

func (e *UnreadableFileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable file %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("unreadable file %q", e.Name)
}

func (e *UnreadableFileError) Unwrap() error { return e.Err }

// MissingColumnsError lists required columns absent after synonym mapping.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// RowError is a non-fatal validation failure attached to one row.
type RowError struct {
	Field   string
	Message string
}

func (e RowError) Error() string {
	return e.Field + ": " + e.Message
}

// CommitRowError records why a confirmed row was skipped at commit time.
type CommitRowError struct {
	Line   int
	Reason string
}

func (e CommitRowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// TransactionError means the commit was rolled back and nothing was persisted.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return "import transaction rolled back: " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error { return e.Err }
