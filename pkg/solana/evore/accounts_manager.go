package evore

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	ManagerAccountSize = (8 + //discriminator
		32) // authority
)

var ManagerAccountDiscriminator = []byte{byte(AccountTypeManager), 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// ManagerAccount is the root of a managed deploy setup. It owns the deployer
// and every managed miner authority derived from it.
type ManagerAccount struct {
	Authority ed25519.PublicKey
}

func (obj *ManagerAccount) Unmarshal(data []byte) error {
	if len(data) < ManagerAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, ManagerAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Authority, &offset)

	return nil
}

func (obj *ManagerAccount) String() string {
	return fmt.Sprintf(
		"ManagerAccount{authority=%s}",
		base58.Encode(obj.Authority),
	)
}
