package backup

import (
	"context"
	"ecgd/internal/backup/interfaces"
	"ecgd/internal/models"
	"ecgd/internal/providers"
	"errors"
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

const SnapshotVersion = 1

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

type SnapshotCounts struct {
	Measurements int `json:"measurements"`
}

// Snapshot is the on-disk envelope of a full export.
type Snapshot struct {
	Version      int                  `json:"version"`
	CreatedAt    time.Time            `json:"createdAt"`
	Counts       SnapshotCounts       `json:"counts"`
	Measurements []models.Measurement `json:"measurements"`
}

type FileManager struct {
	store      models.MeasurementStoreInterface
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	now        func() time.Time
}

func NewFileManager(compressor interfaces.CompressorInterface, store models.MeasurementStoreInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// SaveToFile exports every measurement into fileName. The file is replaced
// atomically so a crash never leaves a truncated snapshot behind.
func (f *FileManager) SaveToFile(ctx context.Context, fileName string) (int, error) {
	items, err := f.store.Export(ctx)
	if err != nil {
		return 0, err
	}
	if items == nil {
		items = []models.Measurement{}
	}

	snapshot := Snapshot{
		Version:      SnapshotVersion,
		CreatedAt:    f.now().UTC(),
		Counts:       SnapshotCounts{Measurements: len(items)},
		Measurements: items,
	}

	jsonData, err := json.Marshal(snapshot)
	if err != nil {
		return 0, err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return 0, err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return 0, err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return 0, err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return 0, err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return 0, err
	}

	if err = os.Rename(tmpFile, fileName); err != nil {
		return 0, err
	}
	return len(items), nil
}

// ReadSnapshot decodes fileName. Compressed snapshots are recognized by the
// zstd frame magic; anything else is read as plain JSON, which also covers
// the legacy document dump.
func (f *FileManager) ReadSnapshot(fileName string) (*Snapshot, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	if isZstd(data) {
		if data, err = f.compressor.Decompress(data); err != nil {
			return nil, fmt.Errorf("decompress %s: %w", fileName, err)
		}
	}

	var probe struct {
		Version     int             `json:"version"`
		Collections json.RawMessage `json:"collections"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fileName, err)
	}

	if probe.Collections != nil && probe.Version == 0 {
		f.logger.Warnf(providers.TypeApp, "Legacy backup format found in %s, migrating", fileName)
		return f.migrateLegacy(data)
	}

	if probe.Version > SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, probe.Version)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decode %s: %w", fileName, err)
	}
	return &snapshot, nil
}

func (f *FileManager) migrateLegacy(data []byte) (*Snapshot, error) {
	var legacy legacyBackup
	if err := json.Unmarshal(data, &legacy); err != nil {
		f.logger.Warnf(providers.TypeApp, "Migration failed")
		return nil, err
	}

	items := make([]models.Measurement, 0, len(legacy.Collections.Measurements))
	skipped := 0
	for _, lm := range legacy.Collections.Measurements {
		m, err := lm.toMeasurement()
		if err == nil {
			err = m.Validate()
		}
		if err != nil {
			skipped++
			f.logger.Warnf(providers.TypeApp, "Skipping legacy measurement %s: %v", lm.ID, err)
			continue
		}
		items = append(items, m)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, legacy.Timestamp)
	f.logger.Warnf(providers.TypeApp, "Migration of %d legacy measurements successful, %d skipped", len(items), skipped)
	return &Snapshot{
		Version:      SnapshotVersion,
		CreatedAt:    createdAt.UTC(),
		Counts:       SnapshotCounts{Measurements: len(items)},
		Measurements: items,
	}, nil
}

// LoadFromFile imports fileName into the store and returns how many records
// were inserted and how many the snapshot held. Records already present are
// skipped, so loading the same file twice is harmless.
func (f *FileManager) LoadFromFile(ctx context.Context, fileName string) (inserted int64, total int, err error) {
	snapshot, err := f.ReadSnapshot(fileName)
	if err != nil {
		return 0, 0, err
	}
	inserted, err = f.store.Import(ctx, snapshot.Measurements)
	if err != nil {
		return 0, len(snapshot.Measurements), err
	}
	return inserted, len(snapshot.Measurements), nil
}
