// Package sqlerr specifically handles database driver errors.
//
// It parses SQLSTATE codes reported by Postgres (through pgx) and converts
// them into errors the HTTP layer understands: a foreign key violation
// becomes a 400, a missing row becomes a 404. Unique violations are left
// for the error classifier, which answers them with 409.
package sqlerr

import "fmt"

// Code is a coarse category for a Postgres error.
type Code string

const (
	Other               Code = "other"
	NotNullViolation    Code = "not_null_violation"
	ForeignKeyViolation Code = "foreign_key_violation"
	UniqueViolation     Code = "unique_violation"
	CheckViolation      Code = "check_violation"
	InvalidTextRep      Code = "invalid_text_representation"
)

// SQLSTATE values this package cares about.
// See https://www.postgresql.org/docs/current/errcodes-appendix.html
var sqlStates = map[string]Code{
	"23502": NotNullViolation,
	"23503": ForeignKeyViolation,
	"23505": UniqueViolation,
	"23514": CheckViolation,
	"22P02": InvalidTextRep,
}

// MapCode maps a SQLSTATE to a Code.
func MapCode(sqlState string) Code {
	if code, ok := sqlStates[sqlState]; ok {
		return code
	}
	return Other
}

// Severity mirrors the Postgres severity levels.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityFatal   Severity = "FATAL"
	SeverityPanic   Severity = "PANIC"
	SeverityWarning Severity = "WARNING"
	SeverityNotice  Severity = "NOTICE"
	SeverityUnknown Severity = "UNKNOWN"
)

// MapSeverity maps the severity string reported by Postgres.
func MapSeverity(severity string) Severity {
	switch Severity(severity) {
	case SeverityError, SeverityFatal, SeverityPanic, SeverityWarning, SeverityNotice:
		return Severity(severity)
	default:
		return SeverityUnknown
	}
}

// Error is a normalized Postgres error.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string
	driverErr      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Severity, e.DatabaseCode, e.Message)
}

// SQLState returns the raw SQLSTATE, which is what the classifier inspects.
func (e *Error) SQLState() string {
	return e.DatabaseCode
}

func (e *Error) Unwrap() error {
	return e.driverErr
}
