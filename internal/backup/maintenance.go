package backup

import (
	"context"
	"ecgd/internal/models"
	"ecgd/internal/providers"
	"ecgd/internal/structures"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	filePrefix    = "backup-"
	fileSuffix    = ".json.zst"
	fileStamp     = "20060102-150405.000000000"
	backupDirPerm = 0o755
)

type BackupFile struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

type Status struct {
	Store   models.StoreStats `json:"store"`
	Dir     string            `json:"dir"`
	Backups []BackupFile      `json:"backups"`
	Latest  *BackupFile       `json:"latest,omitempty"`
}

// Maintenance runs backup, restore and status against the measurement store.
type Maintenance struct {
	conf        structures.BackupConfig
	store       models.MeasurementStoreInterface
	fileManager *FileManager
	logger      providers.Logger
	now         func() time.Time
}

func NewMaintenance(conf *structures.Config, store models.MeasurementStoreInterface, fileManager *FileManager, logger providers.Logger) *Maintenance {
	return &Maintenance{
		conf:        conf.Backup,
		store:       store,
		fileManager: fileManager,
		logger:      logger,
		now:         time.Now,
	}
}

func (m *Maintenance) fileName(at time.Time) string {
	return filepath.Join(m.conf.Dir, filePrefix+at.UTC().Format(fileStamp)+fileSuffix)
}

// Backup writes a new snapshot into the backup directory and prunes old
// ones beyond the configured retention.
func (m *Maintenance) Backup(ctx context.Context) (*BackupFile, int, error) {
	if err := os.MkdirAll(m.conf.Dir, backupDirPerm); err != nil {
		return nil, 0, fmt.Errorf("create backup dir: %w", err)
	}

	path := m.fileName(m.now())
	n, err := m.fileManager.SaveToFile(ctx, path)
	if err != nil {
		m.logger.Errorf(providers.TypeApp, "Error while writing backup %s: %v", path, err)
		return nil, 0, err
	}
	m.logger.Infof(providers.TypeApp, "Backed up %d measurements to %s", n, path)

	if err := m.prune(); err != nil {
		m.logger.Warnf(providers.TypeApp, "Pruning old backups: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, n, err
	}
	return &BackupFile{Name: info.Name(), Path: path, Size: info.Size(), ModTime: info.ModTime()}, n, nil
}

// Restore loads path, or the newest backup when path is empty.
func (m *Maintenance) Restore(ctx context.Context, path string) (int64, error) {
	if path == "" {
		files, err := m.List()
		if err != nil {
			return 0, err
		}
		if len(files) == 0 {
			return 0, fmt.Errorf("no backups found in %s", m.conf.Dir)
		}
		path = files[len(files)-1].Path
	}

	inserted, total, err := m.fileManager.LoadFromFile(ctx, path)
	if err != nil {
		m.logger.Errorf(providers.TypeApp, "Restore from %s failed: %v", path, err)
		return 0, err
	}
	m.logger.Infof(providers.TypeApp, "Restored %d of %d measurements from %s", inserted, total, path)
	return inserted, nil
}

// List returns the backups in the directory, oldest first.
func (m *Maintenance) List() ([]BackupFile, error) {
	entries, err := os.ReadDir(m.conf.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	files := make([]BackupFile, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, BackupFile{
			Name:    name,
			Path:    filepath.Join(m.conf.Dir, name),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	slices.SortFunc(files, func(a, b BackupFile) int { return strings.Compare(a.Name, b.Name) })
	return files, nil
}

func (m *Maintenance) prune() error {
	if m.conf.Keep <= 0 {
		return nil
	}
	files, err := m.List()
	if err != nil {
		return err
	}
	for len(files) > m.conf.Keep {
		if err := os.Remove(files[0].Path); err != nil {
			return err
		}
		m.logger.Debugf(providers.TypeApp, "Removed old backup %s", files[0].Name)
		files = files[1:]
	}
	return nil
}

func (m *Maintenance) Status(ctx context.Context) (*Status, error) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	files, err := m.List()
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []BackupFile{}
	}

	st := &Status{Store: *stats, Dir: m.conf.Dir, Backups: files}
	if len(files) > 0 {
		st.Latest = &files[len(files)-1]
	}
	return st, nil
}
