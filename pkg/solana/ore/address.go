package ore

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/evore-labs/evore-crank/pkg/solana"
)

var (
	BoardPrefix      = []byte("board")
	ConfigPrefix     = []byte("config")
	RoundPrefix      = []byte("round")
	MinerPrefix      = []byte("miner")
	AutomationPrefix = []byte("automation")
	TreasuryPrefix   = []byte("treasury")
)

func GetBoardAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		BoardPrefix,
	)
}

func GetConfigAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		ConfigPrefix,
	)
}

type GetRoundAddressArgs struct {
	Id uint64
}

func GetRoundAddress(args *GetRoundAddressArgs) (ed25519.PublicKey, uint8, error) {
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], args.Id)
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		RoundPrefix,
		id[:],
	)
}

type GetMinerAddressArgs struct {
	Authority ed25519.PublicKey
}

func GetMinerAddress(args *GetMinerAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		MinerPrefix,
		args.Authority,
	)
}

type GetAutomationAddressArgs struct {
	Authority ed25519.PublicKey
}

func GetAutomationAddress(args *GetAutomationAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		AutomationPrefix,
		args.Authority,
	)
}
