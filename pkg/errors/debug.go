package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is a log-friendly view of an error chain.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Retryable  bool   `json:"retryable"`

	Chain []string `json:"chain,omitempty"`

	SQLState   string `json:"sql_state,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Dump walks err and extracts the typed code plus any Postgres diagnostics.
func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(d.Code).Retryable
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	d.SQLState, d.Constraint, d.Table, d.Detail = postgresDiagnostics(err)
	return d
}

// SQLState returns the Postgres SQLSTATE carried by err, if any.
func SQLState(err error) string {
	state, _, _, _ := postgresDiagnostics(err)
	return state
}

func postgresDiagnostics(err error) (state, constraint, table, detail string) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName, pgxErr.TableName, pgxErr.Detail
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Detail
	}
	return "", "", "", ""
}
