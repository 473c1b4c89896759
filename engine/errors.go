package engine

import (
	"fmt"

	"github.com/agentscope-go/reactcore/reacterr"
)

var (
	errConfigMaxIters     = fmt.Errorf("%w: maxIters must be > 0", reacterr.ErrBadInput)
	errConfigStreamBuffer = fmt.Errorf("%w: streamBufferSize must be > 0", reacterr.ErrBadInput)

	// errDuplicateCallID marks the one engine-level invariant violation the
	// loop itself detects: two ToolUse blocks sharing a call_id in the same
	// step (§4.6 tie-break).
	errDuplicateCallID = fmt.Errorf("%w: duplicate tool call_id within one step", reacterr.ErrInvariant)
)

// InterruptionMarker is the text carried by the sole content block of a
// terminal message produced when a call is cancelled (§4.6).
const InterruptionMarker = "[cancelled]"
