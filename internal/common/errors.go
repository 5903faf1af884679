package common

import "errors"

// Sentinel errors forming the taxonomy stages, the orchestrator, and the
// REST boundary switch on. Wrap with fmt.Errorf("...: %w", ErrX) so callers
// can still use errors.Is/errors.As across boundary crossings.
var (
	// ErrInvalidInput means a request failed a validation invariant. The
	// REST boundary surfaces this as 400 and never logs it as an incident.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound means an id did not resolve to an entity.
	ErrNotFound = errors.New("not found")

	// ErrStageTransient means a stage's I/O failed in a way that does not
	// abort the run: the stage's slot is marked unavailable and the
	// pipeline continues.
	ErrStageTransient = errors.New("stage transient failure")

	// ErrStageFatal means Crawl, Capture, or Report failed hard; the run
	// ends failed and no further stages execute.
	ErrStageFatal = errors.New("stage fatal failure")

	// ErrStorageCorruption means the snapshot could not be parsed or
	// migrated; the process must refuse to start rather than risk a
	// partial write.
	ErrStorageCorruption = errors.New("storage corruption")

	// ErrCancelled means the run was explicitly cancelled or hit a
	// timeout; it follows the same terminal path as ErrStageFatal.
	ErrCancelled = errors.New("run cancelled")
)
