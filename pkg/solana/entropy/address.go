package entropy

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/evore-labs/evore-crank/pkg/solana"
)

var VarPrefix = []byte("var")

type GetVarAddressArgs struct {
	Authority ed25519.PublicKey
	Id        uint64
}

// GetVarAddress derives the randomness variable owned by an authority. The
// deploy board uses variable 0 of the board account.
func GetVarAddress(args *GetVarAddressArgs) (ed25519.PublicKey, uint8, error) {
	var id [8]byte
	binary.LittleEndian.PutUint64(id[:], args.Id)
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		VarPrefix,
		args.Authority,
		id[:],
	)
}
