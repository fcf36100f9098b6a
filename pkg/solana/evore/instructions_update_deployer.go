package evore

import (
	"crypto/ed25519"

	"github.com/evore-labs/evore-crank/pkg/solana"
)

const (
	UpdateDeployerInstructionArgsSize = (8 + // bps_fee
		8 + // flat_fee
		8 + // expected_bps_fee
		8 + // expected_flat_fee
		8) // max_per_round
)

type UpdateDeployerInstructionArgs struct {
	BpsFee          uint64
	FlatFee         uint64
	ExpectedBpsFee  uint64
	ExpectedFlatFee uint64
	MaxPerRound     uint64
}

type UpdateDeployerInstructionAccounts struct {
	Signer             ed25519.PublicKey
	Manager            ed25519.PublicKey
	Deployer           ed25519.PublicKey
	NewDeployAuthority ed25519.PublicKey
}

// NewUpdateDeployerInstruction updates the fee schedule on a deployer. The
// manager authority sets the agreed fees, while the deploy authority may
// only adjust the expected fee fields it is willing to operate under.
func NewUpdateDeployerInstruction(
	accounts *UpdateDeployerInstructionAccounts,
	args *UpdateDeployerInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+UpdateDeployerInstructionArgsSize)

	putInstruction(data, InstructionUpdateDeployer, &offset)
	putUint64(data, args.BpsFee, &offset)
	putUint64(data, args.FlatFee, &offset)
	putUint64(data, args.ExpectedBpsFee, &offset)
	putUint64(data, args.ExpectedFlatFee, &offset)
	putUint64(data, args.MaxPerRound, &offset)

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
				PublicKey:  accounts.NewDeployAuthority,
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
