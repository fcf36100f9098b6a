package ore

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	// Opaque fixed-point value carried by the rewards accounting fields.
	NumericSize = 64

	// Number of squares on the deploy board.
	SquareCount = 25

	MinerAccountSize = (8 + //discriminator
		32 + // authority
		8*SquareCount + // deployed
		8*SquareCount + // cumulative
		8 + // checkpoint_fee
		8 + // checkpoint_id
		8 + // last_claim_ore_at
		8 + // last_claim_sol_at
		NumericSize + // rewards_factor
		8 + // rewards_sol
		8 + // rewards_ore
		8 + // refined_ore
		8 + // round_id
		8 + // lifetime_rewards_sol
		8 + // lifetime_rewards_ore
		8) // lifetime_deployed
)

var MinerAccountDiscriminator = []byte{byte(AccountTypeMiner), 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

type Numeric [NumericSize]byte

// MinerAccount tracks a single miner's deploys and reward balances. RoundId
// and Deployed reset each round, CheckpointId lags RoundId until the miner's
// last played round has been checkpointed.
type MinerAccount struct {
	Authority          ed25519.PublicKey
	Deployed           [SquareCount]uint64
	Cumulative         [SquareCount]uint64
	CheckpointFee      uint64
	CheckpointId       uint64
	LastClaimOreAt     int64
	LastClaimSolAt     int64
	RewardsFactor      Numeric
	RewardsSol         uint64
	RewardsOre         uint64
	RefinedOre         uint64
	RoundId            uint64
	LifetimeRewardsSol uint64
	LifetimeRewardsOre uint64
	LifetimeDeployed   uint64
}

func (obj *MinerAccount) Unmarshal(data []byte) error {
	if len(data) < MinerAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, MinerAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Authority, &offset)
	for i := 0; i < SquareCount; i++ {
		getUint64(data, &obj.Deployed[i], &offset)
	}
	for i := 0; i < SquareCount; i++ {
		getUint64(data, &obj.Cumulative[i], &offset)
	}
	getUint64(data, &obj.CheckpointFee, &offset)
	getUint64(data, &obj.CheckpointId, &offset)
	getInt64(data, &obj.LastClaimOreAt, &offset)
	getInt64(data, &obj.LastClaimSolAt, &offset)
	getNumeric(data, &obj.RewardsFactor, &offset)
	getUint64(data, &obj.RewardsSol, &offset)
	getUint64(data, &obj.RewardsOre, &offset)
	getUint64(data, &obj.RefinedOre, &offset)
	getUint64(data, &obj.RoundId, &offset)
	getUint64(data, &obj.LifetimeRewardsSol, &offset)
	getUint64(data, &obj.LifetimeRewardsOre, &offset)
	getUint64(data, &obj.LifetimeDeployed, &offset)

	return nil
}

// TotalDeployed sums the per-square deploys for the miner's current round.
func (obj *MinerAccount) TotalDeployed() uint64 {
	var total uint64
	for _, amount := range obj.Deployed {
		total += amount
	}
	return total
}

// NeedsCheckpoint reports whether the miner's last played round still needs
// to be checkpointed before new deploys can land.
func (obj *MinerAccount) NeedsCheckpoint() bool {
	return obj.CheckpointId < obj.RoundId
}

func (obj *MinerAccount) String() string {
	return fmt.Sprintf(
		"MinerAccount{authority=%s,round_id=%d,checkpoint_id=%d,deployed=%d,rewards_sol=%d,rewards_ore=%d}",
		base58.Encode(obj.Authority),
		obj.RoundId,
		obj.CheckpointId,
		obj.TotalDeployed(),
		obj.RewardsSol,
		obj.RewardsOre,
	)
}
