package backup

import (
	"context"
	"ecgd/internal/analysis"
	"ecgd/internal/models"
	"ecgd/internal/structures"
	"ecgd/internal/testutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dir string, keep int) *structures.Config {
	return &structures.Config{
		Backup: structures.BackupConfig{
			Enabled:  true,
			Dir:      dir,
			Interval: time.Second,
			Keep:     keep,
		},
	}
}

func newTestMaintenance(t *testing.T, store models.MeasurementStoreInterface, keep int) (*Maintenance, *structures.Config) {
	t.Helper()
	conf := testConfig(filepath.Join(t.TempDir(), "backups"), keep)
	fm, _ := newZstdFileManager(t, store)
	m := NewMaintenance(conf, store, fm, &testutil.MockLogger{})

	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return m, conf
}

func TestMaintenance_BackupCreatesDirAndFile(t *testing.T) {
	store := testutil.NewTestStore(t)
	seedStore(t, store, "u1", analysis.ClassNormal, analysis.ClassVentricular)
	m, conf := newTestMaintenance(t, store, 0)
	dir := conf.Backup.Dir

	file, n, err := m.Backup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "backup-20240101-000100.000000000.json.zst", file.Name)
	assert.Equal(t, filepath.Join(dir, file.Name), file.Path)
	assert.Positive(t, file.Size)
}

func TestMaintenance_PrunesToKeep(t *testing.T) {
	store := testutil.NewTestStore(t)
	m, _ := newTestMaintenance(t, store, 2)

	for range 4 {
		_, _, err := m.Backup(context.Background())
		require.NoError(t, err)
	}

	files, err := m.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "backup-20240101-000300.000000000.json.zst", files[0].Name)
	assert.Equal(t, "backup-20240101-000400.000000000.json.zst", files[1].Name)
}

func TestMaintenance_ListIgnoresForeignFiles(t *testing.T) {
	m, conf := newTestMaintenance(t, testutil.NewTestStore(t), 0)
	dir := conf.Backup.Dir
	_, _, err := m.Backup(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "backup-dir.json.zst"), 0o755))

	files, err := m.List()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestMaintenance_ListMissingDir(t *testing.T) {
	m, _ := newTestMaintenance(t, testutil.NewTestStore(t), 0)
	files, err := m.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestMaintenance_RestoreLatest(t *testing.T) {
	ctx := context.Background()
	src := testutil.NewTestStore(t)
	seedStore(t, src, "u1", analysis.ClassNormal)
	m, conf := newTestMaintenance(t, src, 0)
	_, _, err := m.Backup(ctx)
	require.NoError(t, err)
	seedStore(t, src, "u2", analysis.ClassFusion)
	_, _, err = m.Backup(ctx)
	require.NoError(t, err)

	dst := testutil.NewTestStore(t)
	fm, _ := newZstdFileManager(t, dst)
	restorer := NewMaintenance(conf, dst, fm, &testutil.MockLogger{})

	inserted, err := restorer.Restore(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)
}

func TestMaintenance_RestoreExplicitPath(t *testing.T) {
	ctx := context.Background()
	src := testutil.NewTestStore(t)
	seedStore(t, src, "u1", analysis.ClassNormal)
	m, _ := newTestMaintenance(t, src, 0)
	file, _, err := m.Backup(ctx)
	require.NoError(t, err)

	dst := testutil.NewTestStore(t)
	fm, _ := newZstdFileManager(t, dst)
	restorer := NewMaintenance(testConfig(t.TempDir(), 0), dst, fm, &testutil.MockLogger{})

	inserted, err := restorer.Restore(ctx, file.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)
}

func TestMaintenance_RestoreWithoutBackups(t *testing.T) {
	m, _ := newTestMaintenance(t, testutil.NewTestStore(t), 0)
	_, err := m.Restore(context.Background(), "")
	assert.ErrorContains(t, err, "no backups found")
}

func TestMaintenance_Status(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewTestStore(t)
	seedStore(t, store, "u1", analysis.ClassNormal, analysis.ClassVentricular)
	seedStore(t, store, "u2", analysis.ClassSupraventricular)
	m, conf := newTestMaintenance(t, store, 0)

	st, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Store.Total)
	assert.Equal(t, int64(2), st.Store.Anomalies)
	assert.Equal(t, int64(2), st.Store.Users)
	assert.Empty(t, st.Backups)
	assert.Nil(t, st.Latest)
	assert.Equal(t, conf.Backup.Dir, st.Dir)

	file, _, err := m.Backup(ctx)
	require.NoError(t, err)
	st, err = m.Status(ctx)
	require.NoError(t, err)
	require.NotNil(t, st.Latest)
	assert.Equal(t, file.Name, st.Latest.Name)
}

func TestMaintenance_StatusStoreFailure(t *testing.T) {
	fm := NewFileManager(&testutil.MockCompressor{}, nil, &testutil.MockLogger{})
	m := NewMaintenance(testConfig(t.TempDir(), 0), &testutil.FailingStore{Err: assert.AnError}, fm, &testutil.MockLogger{})
	_, err := m.Status(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
