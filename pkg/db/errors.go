package db

import (
	"strings"

	pkgerrors "github.com/angelmondragon/tokenomics/pkg/errors"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation constraint. When constraintName is provided, the helper looks
// for the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsSerializationFailure reports whether err is a transaction isolation conflict
// that is safe to retry as a whole.
func IsSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	switch pkgerrors.SQLState(err) {
	case sqlStateSerializationFailure, sqlStateDeadlockDetected:
		return true
	}
	return strings.Contains(err.Error(), "database is locked")
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsSerializationFailure(err) && pkgerrors.As(err) == nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageConflict, err, "transaction conflict")
	}
	return err
}
