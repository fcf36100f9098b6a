package scheduler

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

type dedupKey struct {
	minerAuth string
	roundId   uint64
}

// RoundTracker remembers which (miner, round) pairs have already been
// handed to the submitter. Marking happens when a batch is accepted for
// submission, not on confirmation, so a miner is never deployed twice in a
// round by this process even when confirmation lags.
type RoundTracker struct {
	lastRoundId *uint64
	scheduled   map[dedupKey]bool
}

func NewRoundTracker() *RoundTracker {
	return &RoundTracker{
		scheduled: make(map[dedupKey]bool),
	}
}

// Observe records the current round and reports whether it changed since
// the previous observation. All markers are cleared exactly once per
// rollover.
func (t *RoundTracker) Observe(roundId uint64) bool {
	if t.lastRoundId != nil && *t.lastRoundId == roundId {
		return false
	}

	rolledOver := t.lastRoundId != nil

	t.lastRoundId = &roundId
	t.scheduled = make(map[dedupKey]bool)

	return rolledOver
}

func (t *RoundTracker) IsScheduled(minerAuth ed25519.PublicKey, roundId uint64) bool {
	return t.scheduled[dedupKey{
		minerAuth: base58.Encode(minerAuth),
		roundId:   roundId,
	}]
}

func (t *RoundTracker) MarkScheduled(minerAuth ed25519.PublicKey, roundId uint64) {
	t.scheduled[dedupKey{
		minerAuth: base58.Encode(minerAuth),
		roundId:   roundId,
	}] = true
}

func (t *RoundTracker) Reset() {
	t.lastRoundId = nil
	t.scheduled = make(map[dedupKey]bool)
}
