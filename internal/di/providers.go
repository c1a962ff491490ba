package di

import (
	"ecgd/internal/backup"
	"ecgd/internal/backup/interfaces"
	"ecgd/internal/providers"
	"ecgd/internal/structures"
)

// newLogger closes the log files when the injector is torn down.
func newLogger(conf *structures.Config) (providers.Logger, func(), error) {
	logger, err := providers.NewLogProvider(conf)
	if err != nil {
		return nil, nil, err
	}
	return logger, logger.Close, nil
}

func newCompressor() (interfaces.CompressorInterface, func(), error) {
	compressor, err := backup.NewZstdCompressor()
	if err != nil {
		return nil, nil, err
	}
	return compressor, compressor.Close, nil
}
