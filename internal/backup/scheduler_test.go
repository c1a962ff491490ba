package backup

import (
	"ecgd/internal/testutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_Persist_Success(t *testing.T) {
	store := testutil.NewTestStore(t)
	m, conf := newTestMaintenance(t, store, 0)
	logger := &testutil.MockLogger{}
	s := NewScheduler(conf, logger, m)

	require.NoError(t, s.Persist())

	files, err := m.List()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestScheduler_Persist_WriteError(t *testing.T) {
	fm := NewFileManager(&testutil.MockCompressor{}, &testutil.FailingStore{Err: assert.AnError}, &testutil.MockLogger{})
	logger := &testutil.MockLogger{}
	conf := testConfig(filepath.Join(t.TempDir(), "b"), 0)
	s := NewScheduler(conf, logger, NewMaintenance(conf, nil, fm, logger))

	assert.ErrorIs(t, s.Persist(), assert.AnError)
	assert.Equal(t, 1, logger.Count("error"))
}

func TestScheduler_StopNilCron(t *testing.T) {
	conf := testConfig(t.TempDir(), 0)
	s := NewScheduler(conf, &testutil.MockLogger{}, nil)
	assert.NotPanics(t, s.Stop)
}

func TestScheduler_InitDisabled(t *testing.T) {
	conf := testConfig(t.TempDir(), 0)
	conf.Backup.Enabled = false
	s := NewScheduler(conf, &testutil.MockLogger{}, nil).(*Scheduler)

	s.Init()
	assert.Nil(t, s.cron)
	s.Stop()
}

func TestScheduler_InitRunsPeriodically(t *testing.T) {
	store := testutil.NewTestStore(t)
	m, conf := newTestMaintenance(t, store, 0)
	s := NewScheduler(conf, &testutil.MockLogger{}, m)

	s.Init()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		files, err := m.List()
		return err == nil && len(files) > 0
	}, 5*time.Second, 100*time.Millisecond)
}
