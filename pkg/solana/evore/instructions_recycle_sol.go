package evore

import (
	"crypto/ed25519"

	"github.com/evore-labs/evore-crank/pkg/solana"
	"github.com/evore-labs/evore-crank/pkg/solana/ore"
)

const (
	RecycleSolInstructionArgsSize = 8 // auth_id
)

type RecycleSolInstructionArgs struct {
	AuthId uint64
}

type RecycleSolInstructionAccounts struct {
	Signer           ed25519.PublicKey
	Manager          ed25519.PublicKey
	Deployer         ed25519.PublicKey
	ManagedMinerAuth ed25519.PublicKey
	OreMiner         ed25519.PublicKey
}

// NewRecycleSolInstruction claims a managed miner's SOL winnings back into
// its deployer balance so they fund future deploys.
func NewRecycleSolInstruction(
	accounts *RecycleSolInstructionAccounts,
	args *RecycleSolInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+RecycleSolInstructionArgsSize)

	putInstruction(data, InstructionRecycleSol, &offset)
	putUint64(data, args.AuthId, &offset)

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
				PublicKey:  ore.PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
