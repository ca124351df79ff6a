package db

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AppliesMigrations(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "scan.db"))
	require.NoError(t, err)
	defer db.Close()

	latest, err := LatestVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)

	for _, table := range []string{"scan_studies", "scan_trials", "scan_sector_assignments"} {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "table %s", table)
	}

	// a second migration run is a no-op
	require.NoError(t, db.MigrateUp())
}

func TestOpenDB_Pragmas(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "scan.db"))
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
}

func TestMigrateDown(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "scan.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name='scan_sector_assignments'`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO scan_studies (study_id, direction, status, started_at) VALUES ('s', 'maximize', 'completed', 0)`)
	require.NoError(t, err)
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM scan_studies`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestMigrationsFS_Pairs(t *testing.T) {
	entries, err := fs.ReadDir(MigrationsFS(), ".")
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch filepath.Ext(filepath.Base(e.Name()[:len(e.Name())-len(".sql")])) {
		case ".up":
			ups++
		case ".down":
			downs++
		}
	}
	assert.Equal(t, ups, downs, "every migration needs an up and a down file")
	assert.Equal(t, 2, ups)
}
