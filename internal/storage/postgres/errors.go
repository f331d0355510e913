package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"campaignScope/internal/storage"
)

const (
	codeUniqueViolation = "23505"
	addressConstraint   = "campaigns_address_key"
)

// isDuplicate reports the one benign conflict: a unique violation on the address key.
func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeUniqueViolation && pgErr.ConstraintName == addressConstraint
}

// classifyError maps a driver error onto the storage error taxonomy:
//
//	class 23 (integrity constraint)                   -> storage.ErrIntegrity
//	class 08, 53, 57; connect errors; timeouts        -> storage.ErrUnavailable
//	anything else                                     -> storage.ErrWriteFault
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch sqlStateClass(pgErr.Code) {
		case "23":
			return fmt.Errorf("%w: %s (%s)", storage.ErrIntegrity, pgErr.Message, pgErr.Code)
		case "08", "53", "57":
			return fmt.Errorf("%w: %s (%s)", storage.ErrUnavailable, pgErr.Message, pgErr.Code)
		default:
			return fmt.Errorf("%w: %s (%s)", storage.ErrWriteFault, pgErr.Message, pgErr.Code)
		}
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) ||
		pgconn.Timeout(err) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	return fmt.Errorf("%w: %v", storage.ErrWriteFault, err)
}

func sqlStateClass(code string) string {
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}
