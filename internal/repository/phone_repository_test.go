package repository

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"org-directory-go/internal/model"
)

func TestPhoneCreateDuplicateKeepsOuterTransaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	txm := NewTxManager(db)

	require.NoError(t, NewPhoneRepository(db).Create(ctx, &model.Phone{Number: "555"}))

	err := txm.Transaction(ctx, func(tx *gorm.DB) error {
		repo := NewPhoneRepository(tx)
		err := repo.Create(ctx, &model.Phone{Number: "555"})
		require.Error(t, err)
		assert.True(t, IsDuplicateKey(err), "unexpected error: %v", err)

		// 冲突只回滚了保存点，事务内的后续写入仍然有效
		return repo.Create(ctx, &model.Phone{Number: "777"})
	})
	require.NoError(t, err)

	phones, err := NewPhoneRepository(db).FindByNumbers(ctx, []string{"555", "777"})
	require.NoError(t, err)
	assert.Len(t, phones, 2)
}

func TestPhoneOwnershipQueries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewPhoneRepository(db)

	for _, n := range []string{"1", "2", "3"} {
		require.NoError(t, repo.Create(ctx, &model.Phone{Number: n, OrganizationID: uintPtr(7)}))
	}

	require.NoError(t, repo.DetachExcept(ctx, 7, []string{"2"}))
	phones, err := repo.FindByNumbers(ctx, []string{"1", "2", "3"})
	require.NoError(t, err)
	owned := 0
	for _, p := range phones {
		if p.OrganizationID != nil {
			owned++
			assert.Equal(t, "2", p.Number)
		}
	}
	assert.Equal(t, 1, owned)

	p, err := repo.FindByNumber(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, repo.UpdateOwner(ctx, p, uintPtr(8)))
	assert.Equal(t, uint(8), *p.OrganizationID)

	require.NoError(t, repo.DeleteByOrganizationIDs(ctx, []uint{7, 8}))
	phones, err = repo.FindByNumbers(ctx, []string{"1", "2", "3"})
	require.NoError(t, err)
	require.Len(t, phones, 1)
	assert.Equal(t, "3", phones[0].Number)

	ok, err := repo.Delete(ctx, phones[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Delete(ctx, phones[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPhoneCreateDetectsMySQLDuplicateEntry(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{TranslateError: true, Logger: logger.Discard})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `phones`")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '555' for key 'phones.idx_phones_number'"})
	mock.ExpectRollback()

	err = NewPhoneRepository(db).Create(context.Background(), &model.Phone{Number: "555"})
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhoneFindByNumberForUpdateLocksRowOnMySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(gormmysql.New(gormmysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{TranslateError: true, Logger: logger.Discard})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT \\* FROM `phones` WHERE number = \\?.* FOR UPDATE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "organization_id"}).AddRow(3, "555", 9))

	phone, err := NewPhoneRepository(db).FindByNumberForUpdate(context.Background(), "555")
	require.NoError(t, err)
	assert.Equal(t, uint(3), phone.ID)
	assert.Equal(t, uint(9), *phone.OrganizationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhoneFindByNumberForUpdateOnSQLite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewPhoneRepository(db)
	require.NoError(t, repo.Create(ctx, &model.Phone{Number: "555", OrganizationID: uintPtr(4)}))

	err := NewTxManager(db).Transaction(ctx, func(tx *gorm.DB) error {
		phone, err := NewPhoneRepository(tx).FindByNumberForUpdate(ctx, "555")
		require.NoError(t, err)
		assert.Equal(t, uint(4), *phone.OrganizationID)

		_, err = NewPhoneRepository(tx).FindByNumberForUpdate(ctx, "404")
		assert.True(t, IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}
