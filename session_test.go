package gate

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLiteSessionManager_CreatesTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS sessions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	sm, err := NewSQLiteSessionManager(db, 0)
	require.NoError(t, err)
	assert.NotNil(t, sm.Store)
	assert.True(t, sm.Cookie.Persist)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLiteSessionManager_SchemaError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("disk full"))

	_, err = NewSQLiteSessionManager(db, 0)
	assert.ErrorContains(t, err, "disk full")
}

func TestSessionNoopWithoutRequest(t *testing.T) {
	s := &Session{}
	s.Set("token", "x")
	assert.Equal(t, "", s.GetString("token"))
	assert.NoError(t, s.RenewToken())

	s = &Session{ctx: context.Background()}
	assert.Equal(t, "", s.GetString("token"))
}
