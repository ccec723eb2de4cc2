package sqlerr

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/nacionmx/unified-bot/internal/errs"
)

// ToBotError maps a database error onto the bot's error codes.
//
// Balance CHECK constraints (accounts_cash_check, treasuries_balance_check...)
// mean the row would go negative, so they surface as insufficient funds.
func ToBotError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := errs.AsBotError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, sql.ErrNoRows):
		return errs.Wrap(errs.CodeRecordNotFound, err, "")
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.CodeTimeout, err, "")
	}

	pgerr, ok := asPgError(err)
	if !ok {
		return errs.Wrap(errs.CodeDatabaseError, err, "")
	}

	sqlErr := ConvertPgError(pgerr)
	constraint := strings.ToLower(sqlErr.ConstraintName)

	switch sqlErr.Code {
	case CheckViolation:
		switch {
		case strings.HasSuffix(constraint, "cash_check"),
			strings.HasSuffix(constraint, "bank_check"),
			strings.HasSuffix(constraint, "balance_check"):
			return errs.Wrap(errs.CodeInsufficientFunds, err, "")
		case strings.HasSuffix(constraint, "stock_check"):
			return errs.Wrap(errs.CodeOutOfStock, err, "")
		}
		return errs.Wrap(errs.CodeInvalidInput, err, "")

	case UniqueViolation:
		if sqlErr.TableName == "election_votes" || strings.HasPrefix(constraint, "election_votes_") {
			return errs.Wrap(errs.CodeAlreadyVoted, err, "")
		}
		return errs.Wrap(errs.CodeDuplicateEntry, err, "")

	case ForeignKeyViolation:
		return errs.Wrap(errs.CodeRecordNotFound, err, "No se puede completar la operación debido a dependencias")

	case NotNullViolation:
		return errs.Wrap(errs.CodeInvalidInput, err, "")

	case QueryCanceled:
		return errs.Wrap(errs.CodeTimeout, err, "")

	default:
		return errs.Wrap(errs.CodeDatabaseError, err, "")
	}
}
