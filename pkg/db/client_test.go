package db

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type auditRow struct {
	ID     int
	Entry  string
	Unique string `gorm:"uniqueIndex:ux_audit_rows_unique"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&auditRow{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTxCommitsOnNilError(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	var before int64
	if err := db.Model(&auditRow{}).Count(&before).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}

	if err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&auditRow{Entry: "committed", Unique: "a"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	var after int64
	if err := db.Model(&auditRow{}).Count(&after).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if after != before+1 {
		t.Fatalf("expected one new record, had %d now %d", before, after)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}

	var before int64
	if err := db.Model(&auditRow{}).Count(&before).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := tx.Create(&auditRow{Entry: "rolled", Unique: "b"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to surface the callback error")
	}

	var after int64
	if err := db.Model(&auditRow{}).Count(&after).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if after != before {
		t.Fatalf("expected rollback to leave %d rows, got %d", before, after)
	}
}

func TestIsUniqueViolationFallsBackToMessage(t *testing.T) {
	db := newTestDB(t)

	if err := db.Create(&auditRow{Entry: "first", Unique: "same"}).Error; err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	err := db.Create(&auditRow{Entry: "second", Unique: "same"}).Error
	if err == nil {
		t.Fatal("expected a unique violation")
	}
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected IsUniqueViolation to match sqlite error: %v", err)
	}
	if IsUniqueViolation(nil, "anything") {
		t.Fatal("nil error must never match")
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	client := &Client{conn: db}
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}
