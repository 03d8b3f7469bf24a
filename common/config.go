package common

import "time"

const (
	// DefaultBlockSize is used when a Block Store Adapter does not
	// override it.
	DefaultBlockSize = 4096
	// LogBufferSize is the initial capacity, in bytes, of the Log
	// Adapter's in-memory append buffer. Append grows the buffer past
	// it as needed; reaching it does not trigger a flush.
	LogBufferSize = 32 * DefaultBlockSize
	// DefaultMaxWait is the wall-clock bound a pin() waits for a frame
	// before raising BufferAbort.
	DefaultMaxWait = 10 * time.Second
)
