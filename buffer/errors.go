package buffer

import (
	"errors"
	"fmt"
	"time"

	"github.com/ryogrid/blockbufferpool/types"
)

// ErrBufferAbort is the sentinel a caller checks with errors.Is to
// detect a pin that could not secure a frame within MaxWait. It is
// terminal for the pin call. Pin's wait cannot be interrupted: it ends
// only when a frame is secured or MaxWait elapses.
var ErrBufferAbort = errors.New("buffer: could not pin block within max wait")

// abortError wraps ErrBufferAbort with the context of the failed pin.
type abortError struct {
	block  types.BlockID
	waited time.Duration
}

func (e *abortError) Error() string {
	return fmt.Sprintf("buffer: pin(%s) aborted after waiting %s", e.block, e.waited)
}

func (e *abortError) Unwrap() error { return ErrBufferAbort }

func newAbortError(block types.BlockID, waited time.Duration) error {
	return &abortError{block: block, waited: waited}
}
