package ore

import (
	"bytes"
	"fmt"
)

const (
	BoardAccountSize = (8 + //discriminator
		8 + // round_id
		8 + // start_slot
		8 + // end_slot
		8) // epoch_id
)

var BoardAccountDiscriminator = []byte{byte(AccountTypeBoard), 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// BoardAccount is the global round clock. A new round becomes deployable
// when RoundId advances, and closes for deploys at EndSlot.
type BoardAccount struct {
	RoundId   uint64
	StartSlot uint64
	EndSlot   uint64
	EpochId   uint64
}

func (obj *BoardAccount) Unmarshal(data []byte) error {
	if len(data) < BoardAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, BoardAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getUint64(data, &obj.RoundId, &offset)
	getUint64(data, &obj.StartSlot, &offset)
	getUint64(data, &obj.EndSlot, &offset)
	getUint64(data, &obj.EpochId, &offset)

	return nil
}

// HasActiveRound reports whether the current round accepts deploys at all.
// The program parks EndSlot at the max sentinel between rounds.
func (obj *BoardAccount) HasActiveRound() bool {
	return obj.EndSlot != NoActiveRoundEndSlot
}

func (obj *BoardAccount) String() string {
	return fmt.Sprintf(
		"BoardAccount{round_id=%d,start_slot=%d,end_slot=%d,epoch_id=%d}",
		obj.RoundId,
		obj.StartSlot,
		obj.EndSlot,
		obj.EpochId,
	)
}
