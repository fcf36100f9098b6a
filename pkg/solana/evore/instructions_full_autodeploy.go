package evore

import (
	"crypto/ed25519"

	"github.com/evore-labs/evore-crank/pkg/solana"
	"github.com/evore-labs/evore-crank/pkg/solana/entropy"
	"github.com/evore-labs/evore-crank/pkg/solana/ore"
)

const (
	FullAutodeployInstructionArgsSize = (8 + // auth_id
		8 + // amount
		4 + // squares_mask
		4) // padding
)

type FullAutodeployInstructionArgs struct {
	AuthId      uint64
	Amount      uint64
	SquaresMask uint32
}

type FullAutodeployInstructionAccounts struct {
	Signer           ed25519.PublicKey
	Manager          ed25519.PublicKey
	Deployer         ed25519.PublicKey
	ManagedMinerAuth ed25519.PublicKey
	OreMiner         ed25519.PublicKey
	Automation       ed25519.PublicKey
	Config           ed25519.PublicKey
	Board            ed25519.PublicKey
	Round            ed25519.PublicKey
	CheckpointRound  ed25519.PublicKey
	EntropyVar       ed25519.PublicKey
}

// NewFullAutodeployInstruction checkpoints the miner's last played round if
// needed, recycles any SOL winnings, and deploys into the current round, all
// in one instruction. CheckpointRound is the PDA for the miner's recorded
// round id when a checkpoint is pending, otherwise the current round PDA.
func NewFullAutodeployInstruction(
	accounts *FullAutodeployInstructionAccounts,
	args *FullAutodeployInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+FullAutodeployInstructionArgsSize)

	putInstruction(data, InstructionMMFullAutodeploy, &offset)
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
				PublicKey:  accounts.CheckpointRound,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  ore.TREASURY_ADDRESS,
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
