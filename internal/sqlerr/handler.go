package sqlerr

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/deppfellow/servicekit/internal/errs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrCode reports the mapped Code for err, or Other when err is not a
// Postgres error.
func ErrCode(err error) Code {
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return MapCode(pgerr.Code)
	}
	return Other
}

// IsUniqueViolation reports whether err is a unique-constraint violation.
func IsUniqueViolation(err error) bool {
	return ErrCode(err) == UniqueViolation
}

// ConvertPgError converts a raw pgconn.PgError into an *Error.
func ConvertPgError(src *pgconn.PgError) *Error {
	return &Error{
		Code:           MapCode(src.Code),
		Severity:       MapSeverity(src.Severity),
		DatabaseCode:   src.Code,
		Message:        src.Message,
		SchemaName:     src.SchemaName,
		TableName:      src.TableName,
		ColumnName:     src.ColumnName,
		DataTypeName:   src.DataTypeName,
		ConstraintName: src.ConstraintName,
		driverErr:      src,
	}
}

// formatUserFriendlyMessage produces an end-user-facing message for a
// constraint failure. It is meant for clients, not for logs.
func formatUserFriendlyMessage(sqlErr *Error) string {
	entityName := getEntityName(sqlErr.TableName, sqlErr.ColumnName)

	switch sqlErr.Code {
	case ForeignKeyViolation:
		return fmt.Sprintf("The referenced %s does not exist", entityName)

	case NotNullViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName == "" {
			fieldName = "field"
		}
		return fmt.Sprintf("The %s is required", fieldName)

	case CheckViolation:
		fieldName := humanizeText(sqlErr.ColumnName)
		if fieldName != "" {
			return fmt.Sprintf("The %s value does not meet required conditions", fieldName)
		}
		return "One or more values do not meet required conditions"

	case InvalidTextRep:
		return "One or more values have an invalid format"

	default:
		return "An error occurred while processing your request"
	}
}

// getEntityName infers an entity name for messages.
//
// Priority: a column ending in "_id" ("user_id" -> "User"), then the table name
// with a trailing "s" removed, then "record".
func getEntityName(tableName, columnName string) string {
	if columnName != "" && strings.HasSuffix(strings.ToLower(columnName), "_id") {
		entity := strings.TrimSuffix(strings.ToLower(columnName), "_id")
		return humanizeText(entity)
	}

	if tableName != "" {
		entity := tableName
		if strings.HasSuffix(entity, "s") && len(entity) > 1 {
			entity = entity[:len(entity)-1]
		}
		return humanizeText(entity)
	}

	return "record"
}

// humanizeText converts snake_case into Title Case ("first_name" -> "First Name").
func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

var uniqueKeyPattern = regexp.MustCompile(`_([^_]+)_(?:key|ukey)$`)

// ExtractColumnForUniqueViolation infers the column from a unique constraint
// name. Supported conventions: "unique_<table>_<column>" and
// "<table>_<column>_key" / "<table>_<column>_ukey".
func ExtractColumnForUniqueViolation(constraintName string) string {
	if constraintName == "" {
		return ""
	}

	if strings.HasPrefix(constraintName, "unique_") {
		parts := strings.Split(constraintName, "_")
		if len(parts) >= 3 {
			return parts[len(parts)-1]
		}
	}

	if matches := uniqueKeyPattern.FindStringSubmatch(constraintName); len(matches) > 1 {
		return matches[1]
	}

	return ""
}

// ConflictColumn names the column behind a unique violation, for logs.
// It returns "" when err is not a unique violation or the constraint name
// follows no known convention.
func ConflictColumn(err error) string {
	if !IsUniqueViolation(err) {
		return ""
	}

	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return ExtractColumnForUniqueViolation(sqlErr.ConstraintName)
	}
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		return ExtractColumnForUniqueViolation(pgerr.ConstraintName)
	}
	return ""
}

// HandleError converts a database error into an application-level error.
//
//   - *errs.HTTPError: returned unchanged
//   - unique violation: returned as *Error (the classifier answers 409)
//   - foreign key / not null / check / bad text representation: 400 HTTPError
//   - no rows: 404 HTTPError, named after the table when the message carries "table:<name>:"
//   - anything else: returned unchanged (the classifier answers 500)
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		sqlErr := ConvertPgError(pgerr)
		userMessage := formatUserFriendlyMessage(sqlErr)

		switch sqlErr.Code {
		case UniqueViolation:
			return sqlErr

		case NotNullViolation:
			return errs.NewBadRequestError(userMessage).WithDetails([]errs.FieldFailure{{
				InstancePath: "/" + strings.ToLower(sqlErr.ColumnName),
				Message:      "is required",
				Keyword:      "required",
			}})

		case ForeignKeyViolation, CheckViolation, InvalidTextRep:
			return errs.NewBadRequestError(userMessage)

		default:
			return sqlErr
		}
	}

	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		errMsg := err.Error()
		tablePrefix := "table:"
		if strings.Contains(errMsg, tablePrefix) {
			table := strings.Split(strings.Split(errMsg, tablePrefix)[1], ":")[0]
			return errs.NewNotFoundError(fmt.Sprintf("%s not found", getEntityName(table, "")))
		}
		return errs.NewNotFoundError("Resource not found")
	}

	return err
}
