package evore

import (
	"crypto/ed25519"

	"github.com/evore-labs/evore-crank/pkg/solana"
	"github.com/evore-labs/evore-crank/pkg/solana/entropy"
	"github.com/evore-labs/evore-crank/pkg/solana/ore"
)

const (
	AutodeployInstructionArgsSize = (8 + // auth_id
		8 + // amount
		4 + // squares_mask
		4) // padding
)

type AutodeployInstructionArgs struct {
	AuthId      uint64
	Amount      uint64
	SquaresMask uint32
}

type AutodeployInstructionAccounts struct {
	Signer           ed25519.PublicKey
	Manager          ed25519.PublicKey
	Deployer         ed25519.PublicKey
	ManagedMinerAuth ed25519.PublicKey
	OreMiner         ed25519.PublicKey
	Automation       ed25519.PublicKey
	Config           ed25519.PublicKey
	Board            ed25519.PublicKey
	Round            ed25519.PublicKey
	EntropyVar       ed25519.PublicKey
}

// NewAutodeployInstruction deploys from the deployer balance across the
// squares selected by the mask, splitting Amount evenly. The miner must
// already be checkpointed for its last played round.
func NewAutodeployInstruction(
	accounts *AutodeployInstructionAccounts,
	args *AutodeployInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+AutodeployInstructionArgsSize)

	putInstruction(data, InstructionMMAutodeploy, &offset)
	putUint64(data, args.AuthId, &offset)
	putUint64(data, args.Amount, &offset)
	putUint32(data, args.SquaresMask, &offset)
	putUint32(data, 0, &offset) // padding

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Signer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Manager,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Deployer,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.ManagedMinerAuth,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.OreMiner,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  FEE_COLLECTOR_ADDRESS,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Automation,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Config,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Board,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Round,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.EntropyVar,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  ore.PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  entropy.PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
