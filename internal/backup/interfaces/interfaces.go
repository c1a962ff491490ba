package interfaces

type SchedulerInterface interface {
	Init()
	Stop()
	Persist() error
}

type CompressorInterface interface {
	Compress(val []byte) ([]byte, error)
	Decompress(val []byte) ([]byte, error)
	Close()
}
