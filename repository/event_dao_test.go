package repository

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	sqldb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqldb, SkipInitializeWithVersion: true}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		_ = sqldb.Close()
		t.Fatalf("gorm.Open: %v", err)
	}

	return db, mock, sqldb
}

func TestEventDAO_OwnedEventIDs_DedupesAcrossVariants(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	dao := NewEventDAO(gormDB)

	// 同一个行程可能在多个归属变体下都命中，结果要去重
	mock.ExpectQuery("SELECT `id` FROM `tc_event` WHERE uid = \\?").
		WithArgs("u_1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("evt_1").AddRow("evt_2"))
	mock.ExpectQuery("SELECT `id` FROM `tc_event` WHERE owner_id = \\?").
		WithArgs("u_1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("evt_2"))
	mock.ExpectQuery("SELECT `id` FROM `tc_event` WHERE user_id = \\?").
		WithArgs("u_1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("evt_3"))
	mock.ExpectQuery("SELECT `id` FROM `tc_event` WHERE JSON_EXTRACT").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("evt_1"))

	ids, errs := dao.OwnedEventIDs("u_1")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 unique ids, got %v", ids)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestEventDAO_OwnedEventIDs_PartialFailureIsolated(t *testing.T) {
	gormDB, mock, sqlDB := newMockDB(t)
	defer sqlDB.Close()

	dao := NewEventDAO(gormDB)

	// owner_id 列坏了（老库没这一列），其余变体照常返回
	mock.ExpectQuery("SELECT `id` FROM `tc_event` WHERE uid = \\?").
		WithArgs("u_1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("evt_1"))
	mock.ExpectQuery("SELECT `id` FROM `tc_event` WHERE owner_id = \\?").
		WithArgs("u_1").
		WillReturnError(errors.New("unknown column 'owner_id'"))
	mock.ExpectQuery("SELECT `id` FROM `tc_event` WHERE user_id = \\?").
		WithArgs("u_1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("evt_3"))
	mock.ExpectQuery("SELECT `id` FROM `tc_event` WHERE JSON_EXTRACT").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	ids, errs := dao.OwnedEventIDs("u_1")
	if len(errs) != 1 {
		t.Fatalf("expected exactly one variant error, got %v", errs)
	}
	if len(ids) != 2 {
		t.Fatalf("expected surviving variants to contribute, got %v", ids)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
