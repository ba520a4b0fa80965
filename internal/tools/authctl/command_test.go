package authctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sandeepkv93/elearning-auth-service/internal/database"
	"github.com/sandeepkv93/elearning-auth-service/internal/domain"
	"github.com/sandeepkv93/elearning-auth-service/internal/tools/common"
)

func TestMigrateCreatesTables(t *testing.T) {
	db := newAuthctlDBForTest(t)
	res := runCI(t, db, "migrate")
	if !res.OK {
		t.Fatalf("expected ok result, got %+v", res)
	}
	if !db.Migrator().HasTable(&domain.User{}) || !db.Migrator().HasTable(&domain.Session{}) {
		t.Fatal("expected users and sessions tables after migrate")
	}
}

func TestSessionsListShowsOwnerSessions(t *testing.T) {
	db := newAuthctlDBForTest(t)
	migrate(t, db)
	user := seedUser(t, db, "owner@example.com")
	other := seedUser(t, db, "other@example.com")
	seedSession(t, db, user.ID, "t1", true, time.Now().Add(time.Hour))
	seedSession(t, db, user.ID, "t2", false, time.Now().Add(time.Hour))
	seedSession(t, db, other.ID, "t3", true, time.Now().Add(time.Hour))

	res := runCI(t, db, "sessions", "list", "--email", "  OWNER@example.com")
	if !res.OK {
		t.Fatalf("expected ok result, got %+v", res)
	}
	if len(res.Details) != 2 || res.Details[0] != fmt.Sprintf("user_id=%d sessions=2", user.ID) {
		t.Fatalf("unexpected details %q", res.Details)
	}
	if !strings.Contains(res.Details[1], "ACTIVE") {
		t.Fatalf("expected rendered table, got %q", res.Details[1])
	}
}

func TestSessionsListUnknownEmailFails(t *testing.T) {
	db := newAuthctlDBForTest(t)
	migrate(t, db)

	var out bytes.Buffer
	cmd := newRootCommand(staticDB(db))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--ci", "sessions", "list", "--email", "ghost@example.com"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for unknown account")
	}
	var res common.CIResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode ci result: %v", err)
	}
	if res.OK || !strings.Contains(res.Error, "ghost@example.com") {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSessionsPurgeRemovesStaleRows(t *testing.T) {
	db := newAuthctlDBForTest(t)
	migrate(t, db)
	user := seedUser(t, db, "owner@example.com")
	seedSession(t, db, user.ID, "stale", true, time.Now().Add(-48*time.Hour))
	seedSession(t, db, user.ID, "live", true, time.Now().Add(time.Hour))

	res := runCI(t, db, "sessions", "purge", "--older-than", "1h")
	if !res.OK || len(res.Details) != 1 || res.Details[0] != "purged=1" {
		t.Fatalf("unexpected result %+v", res)
	}
	var left int64
	db.Model(&domain.Session{}).Count(&left)
	if left != 1 {
		t.Fatalf("expected 1 remaining session, got %d", left)
	}
}

func TestSessionsPurgeRejectsNegativeRetention(t *testing.T) {
	cmd := newRootCommand(func() (*gorm.DB, func(), error) {
		t.Fatal("database must not be opened")
		return nil, nil, nil
	})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--ci", "sessions", "purge", "--older-than", "-1h"})
	if err := cmd.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected negative retention to be rejected")
	}
}

func runCI(t *testing.T, db *gorm.DB, args ...string) common.CIResult {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(staticDB(db))
	cmd.SetOut(&out)
	cmd.SetArgs(append([]string{"--ci"}, args...))
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	var res common.CIResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("decode ci result %q: %v", out.String(), err)
	}
	return res
}

func staticDB(db *gorm.DB) OpenDB {
	return func() (*gorm.DB, func(), error) { return db, func() {}, nil }
}

func migrate(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func seedUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, FullName: "Seed", PasswordHash: "x", Status: domain.UserStatusActive}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedSession(t *testing.T, db *gorm.DB, userID uint, token string, active bool, expiresAt time.Time) {
	t.Helper()
	s := &domain.Session{UserID: userID, Token: token, Active: active, ExpiresAt: expiresAt}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("seed session: %v", err)
	}
}

func newAuthctlDBForTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
