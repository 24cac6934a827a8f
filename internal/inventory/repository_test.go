// AngelaMos | 2026
// repository_test.go

package inventory

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

// The exclusion id must never share a placeholder with a text
// comparison: postgres types the parameter from its first use and then
// rejects uuid <> text at parse time. Each branch binds the parameter
// against exactly one column.
func TestNamesForUserQueryShapes(t *testing.T) {
	ctx := context.Background()
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT name FROM products\s+WHERE user_id = \$1\s*$`).
		WithArgs("owner-1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("Gaming Laptop").
			AddRow("Mouse Pad"))

	names, err := repo.NamesForUser(ctx, "owner-1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Gaming Laptop", "Mouse Pad"}, names)

	mock.ExpectQuery(`WHERE user_id = \$1 AND id <> \$2\s*$`).
		WithArgs("owner-1", "prod-1").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).
			AddRow("Mouse Pad"))

	names, err = repo.NamesForUser(ctx, "owner-1", "prod-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mouse Pad"}, names)

	assert.NoError(t, mock.ExpectationsWereMet())
}
