package evore

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/evore-labs/evore-crank/pkg/solana"
)

var (
	ManagedMinerAuthPrefix = []byte("managed-miner-auth")
	DeployerPrefix         = []byte("deployer")
)

type GetDeployerAddressArgs struct {
	Manager ed25519.PublicKey
}

func GetDeployerAddress(args *GetDeployerAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		DeployerPrefix,
		args.Manager,
	)
}

type GetManagedMinerAuthAddressArgs struct {
	Manager ed25519.PublicKey
	AuthId  uint64
}

// GetManagedMinerAuthAddress derives the PDA that acts as the miner
// authority for all program-automated deploys under a manager.
func GetManagedMinerAuthAddress(args *GetManagedMinerAuthAddressArgs) (ed25519.PublicKey, uint8, error) {
	var authId [8]byte
	binary.LittleEndian.PutUint64(authId[:], args.AuthId)
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		ManagedMinerAuthPrefix,
		args.Manager,
		authId[:],
	)
}
