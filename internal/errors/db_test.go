package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func asAppError(t *testing.T, err error) *AppError {
	t.Helper()
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	return appErr
}

func TestMapDBErrorNil(t *testing.T) {
	require.NoError(t, MapDBError(nil))
}

func TestMapDBErrorNoRows(t *testing.T) {
	appErr := asAppError(t, MapDBError(fmt.Errorf("get category: %w", pgx.ErrNoRows)))
	require.Equal(t, ErrCodeNotFound, appErr.Code)
}

func TestMapDBErrorContext(t *testing.T) {
	appErr := asAppError(t, MapDBError(context.DeadlineExceeded))
	require.Equal(t, ErrCodeTimeout, appErr.Code)

	appErr = asAppError(t, MapDBError(context.Canceled))
	require.Equal(t, ErrCodeCanceled, appErr.Code)
}

func TestMapDBErrorUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   pgerrcode.UniqueViolation,
		Detail: `Key (slug)=(grains) already exists.`,
	}

	appErr := asAppError(t, MapDBError(pgErr))
	require.Equal(t, ErrCodeConflict, appErr.Code)
	require.Equal(t, "slug", appErr.Field)
}

func TestMapDBErrorForeignKeyStillReferenced(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:   pgerrcode.ForeignKeyViolation,
		Detail: `Key (id)=(c1) is still referenced from table "products".`,
	}

	appErr := asAppError(t, MapDBError(pgErr))
	require.Equal(t, ErrCodeForeignKey, appErr.Code)
	require.Contains(t, appErr.Message, "Product")
}

func TestMapDBErrorNotNullViolation(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:       pgerrcode.NotNullViolation,
		ColumnName: "name",
	}

	appErr := asAppError(t, MapDBError(pgErr))
	require.Equal(t, ErrCodeValidation, appErr.Code)
	require.Equal(t, "name", appErr.Field)
}

func TestMapDBErrorPassesThroughUnknown(t *testing.T) {
	want := errors.New("not a database problem")
	require.Equal(t, want, MapDBError(want))
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	require.True(t, IsUniqueViolation(fmt.Errorf("insert profile: %w", pgErr)))
	require.False(t, IsUniqueViolation(errors.New("plain")))
	require.False(t, IsUniqueViolation(nil))
}
