package migrate_test

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-checkout/pkg/migrate"
)

func TestCheckoutMigrationsContainSchemas(t *testing.T) {
	expectations := map[string][]string{
		"*_create_verified_orders.sql": {
			"CREATE TABLE IF NOT EXISTS verified_orders",
			"CREATE UNIQUE INDEX IF NOT EXISTS verified_orders_gateway_order_id_key",
			"CREATE TABLE IF NOT EXISTS verified_order_items",
		},
		"*_create_wishlist_items.sql": {
			"CREATE TABLE IF NOT EXISTS wishlist_items",
			"CREATE UNIQUE INDEX IF NOT EXISTS wishlist_items_session_product_key",
		},
		"*_create_outbox_events.sql": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"outbox_events_unpublished_idx",
		},
	}

	for pattern, checks := range expectations {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil {
			t.Fatalf("glob migrations: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected one migration for %s, got %d", pattern, len(matches))
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		for _, sub := range checks {
			if !strings.Contains(string(data), sub) {
				t.Errorf("%s missing expected statement %q", matches[0], sub)
			}
		}
	}
}

func TestValidateDirAcceptsRepositoryMigrations(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_init.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, migrate.ValidateDir(dir))
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Refund Columns!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_refund_columns.sql"), path)
	require.NoError(t, migrate.ValidateDir(dir))
}

func TestCreateSQLMigrationSortsAfterExistingVersions(t *testing.T) {
	dir := t.TempDir()
	future := "29990101000000_later.sql"
	require.NoError(t, os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := migrate.CreateSQLMigration(dir, "next")
	require.NoError(t, err)
	require.Equal(t, "29990101000001_next.sql", filepath.Base(path))
}

func TestEmbeddedSourceMatchesDisk(t *testing.T) {
	fsys, err := migrate.Source("")
	require.NoError(t, err)
	require.NoError(t, migrate.Validate(fsys))

	embedded, err := fs.Glob(fsys, "*.sql")
	require.NoError(t, err)
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
}

func TestRunnerAppliesEmbeddedMigrationsOnSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	fsys, err := migrate.Source("")
	require.NoError(t, err)
	runner, err := migrate.NewRunner(sqlDB, "sqlite", fsys, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, runner.Up(ctx))
	for _, table := range []string{"verified_orders", "verified_order_items", "wishlist_items", "outbox_events"} {
		require.True(t, conn.Migrator().HasTable(table), "missing table %s", table)
	}

	status, err := runner.Status(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, status)
	for _, row := range status {
		require.True(t, row.Applied, "migration %d not applied", row.Version)
	}

	require.NoError(t, runner.To(ctx, "20260301120000"))
	require.False(t, conn.Migrator().HasTable("outbox_events"))
	require.True(t, conn.Migrator().HasTable("verified_orders"))

	require.Error(t, runner.To(ctx, "not-a-version"))
}
