package buffer

import (
	"time"

	"github.com/ryogrid/blockbufferpool/common"
)

// Config is the fixed-at-construction configuration for a Coordinator.
// This is a plain struct, not a boot/CLI config loader: assembling one
// from flags, env vars, or files is the caller's concern.
type Config struct {
	// Capacity is the maximum number of resident frames.
	Capacity int
	// MaxWait bounds how long pin() waits for a frame before raising
	// ErrBufferAbort. Zero defaults to common.DefaultMaxWait.
	MaxWait time.Duration
}

func (c Config) maxWait() time.Duration {
	if c.MaxWait <= 0 {
		return common.DefaultMaxWait
	}
	return c.MaxWait
}
