package common

// Assert panics if condition does not hold. Used for precondition
// violations (e.g. unpinning a frame that isn't pinned), which are
// programming errors that abort the process rather than recoverable
// failures.
func Assert(condition bool, msg string) {
	if !condition {
		panic(msg)
	}
}
