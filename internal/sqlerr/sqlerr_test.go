package sqlerr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nacionmx/unified-bot/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pgError(code, table, constraint string) error {
	return fmt.Errorf("query failed: %w", &pgconn.PgError{
		Severity:       "ERROR",
		Code:           code,
		Message:        "violation",
		TableName:      table,
		ConstraintName: constraint,
	})
}

func TestToBotError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errs.Code
	}{
		{"no rows", pgx.ErrNoRows, errs.CodeRecordNotFound},
		{"deadline", context.DeadlineExceeded, errs.CodeTimeout},
		{"cash check", pgError("23514", "accounts", "accounts_cash_check"), errs.CodeInsufficientFunds},
		{"treasury check", pgError("23514", "treasuries", "treasuries_balance_check"), errs.CodeInsufficientFunds},
		{"stock check", pgError("23514", "dealership_catalog", "dealership_catalog_stock_check"), errs.CodeOutOfStock},
		{"other check", pgError("23514", "sanctions", "sanctions_type_check"), errs.CodeInvalidInput},
		{"vote unique", pgError("23505", "election_votes", "election_votes_election_id_user_id_key"), errs.CodeAlreadyVoted},
		{"plate unique", pgError("23505", "user_vehicles", "user_vehicles_plate_key"), errs.CodeDuplicateEntry},
		{"foreign key", pgError("23503", "election_votes", "election_votes_candidate_id_fkey"), errs.CodeRecordNotFound},
		{"syntax", pgError("42601", "", ""), errs.CodeDatabaseError},
		{"connection", errors.New("dial tcp: connection refused"), errs.CodeDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToBotError(tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.want, errs.CodeOf(got))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestToBotErrorPassesThrough(t *testing.T) {
	assert.NoError(t, ToBotError(nil))

	botErr := errs.New(errs.CodeSelfTarget, "")
	assert.Same(t, botErr, ToBotError(botErr))
}

func TestHandleError(t *testing.T) {
	err := HandleError(pgError("23505", "user_vehicles", "user_vehicles_plate_key"))
	var httpErr *errs.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "USER_VEHICLE_ALREADY_EXISTS", httpErr.Code)
	assert.Equal(t, "A User Vehicle with this Plate already exists", httpErr.Message)

	err = HandleError(fmt.Errorf("table:elections:%w", pgx.ErrNoRows))
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)
	assert.Equal(t, "Election not found", httpErr.Message)

	err = HandleError(errs.New(errs.CodeRecordNotFound, ""))
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusNotFound, httpErr.Status)

	err = HandleError(errors.New("boom"))
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Status)
}

func TestMapCode(t *testing.T) {
	assert.Equal(t, UniqueViolation, MapCode("23505"))
	assert.Equal(t, ConnectionFailure, MapCode("08006"))
	assert.Equal(t, Other, MapCode("XX000"))
	assert.Equal(t, UniqueViolation, ErrCode(pgError("23505", "", "")))
}
