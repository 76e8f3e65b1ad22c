package sync

import "time"

// Resolve decides whether a mutation may overwrite the current record:
// last write wins at whole-record granularity, no field merge. A tie is
// a conflict; the server keeps its copy and the client refetches. That
// bias is policy, chosen so the outcome never depends on apply order.
//
// clientUpdatedAt is trusted as reported. A client with a fast clock can
// make its writes win; nothing in the protocol carries enough to detect
// that, so it is not second-guessed here.
func Resolve(serverUpdatedAt, clientUpdatedAt time.Time) string {
	if clientUpdatedAt.After(serverUpdatedAt) {
		return StatusApplied
	}
	return StatusConflict
}
