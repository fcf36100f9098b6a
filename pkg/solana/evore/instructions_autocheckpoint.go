package evore

import (
	"crypto/ed25519"

	"github.com/evore-labs/evore-crank/pkg/solana"
	"github.com/evore-labs/evore-crank/pkg/solana/ore"
)

const (
	AutocheckpointInstructionArgsSize = (8 + // auth_id
		1) // managed_miner_auth bump
)

type AutocheckpointInstructionArgs struct {
	AuthId uint64
	Bump   uint8
}

type AutocheckpointInstructionAccounts struct {
	Signer           ed25519.PublicKey
	Manager          ed25519.PublicKey
	Deployer         ed25519.PublicKey
	ManagedMinerAuth ed25519.PublicKey
	OreMiner         ed25519.PublicKey
	Board            ed25519.PublicKey
	Round            ed25519.PublicKey
}

// NewAutocheckpointInstruction settles the round the managed miner last
// played in. Round must be the PDA for the miner's recorded round id, not
// the board's current round.
func NewAutocheckpointInstruction(
	accounts *AutocheckpointInstructionAccounts,
	args *AutocheckpointInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+AutocheckpointInstructionArgsSize)

	putInstruction(data, InstructionMMAutocheckpoint, &offset)
	putUint64(data, args.AuthId, &offset)
	putUint8(data, args.Bump, &offset)

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
				PublicKey:  ore.TREASURY_ADDRESS,
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
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  ore.PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
