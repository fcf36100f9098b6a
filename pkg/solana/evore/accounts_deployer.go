package evore

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	DeployerAccountSize = (8 + //discriminator
		32 + // manager_key
		32 + // deploy_authority
		8 + // bps_fee
		8 + // flat_fee
		8 + // expected_bps_fee
		8 + // expected_flat_fee
		8) // max_per_round

	// Byte offset of the deploy_authority field, used to filter program
	// account scans down to the deployers delegated to one operator.
	DeployerAccountDeployAuthorityOffset = 8 + 32

	// Fee denominator for bps_fee.
	BpsDenominator = 10_000
)

var DeployerAccountDiscriminator = []byte{byte(AccountTypeDeployer), 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

// DeployerAccount holds the SOL balance spent on automated deploys along
// with the fee schedule agreed between the manager and the deploy authority.
type DeployerAccount struct {
	ManagerKey      ed25519.PublicKey
	DeployAuthority ed25519.PublicKey
	BpsFee          uint64
	FlatFee         uint64
	ExpectedBpsFee  uint64
	ExpectedFlatFee uint64
	MaxPerRound     uint64
}

func (obj *DeployerAccount) Unmarshal(data []byte) error {
	if len(data) < DeployerAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, DeployerAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.ManagerKey, &offset)
	getKey(data, &obj.DeployAuthority, &offset)
	getUint64(data, &obj.BpsFee, &offset)
	getUint64(data, &obj.FlatFee, &offset)
	getUint64(data, &obj.ExpectedBpsFee, &offset)
	getUint64(data, &obj.ExpectedFlatFee, &offset)
	getUint64(data, &obj.MaxPerRound, &offset)

	return nil
}

// FeeOn computes the deployer fee charged on a deploy of the given size.
func (obj *DeployerAccount) FeeOn(amount uint64) uint64 {
	return amount*obj.BpsFee/BpsDenominator + obj.FlatFee
}

func (obj *DeployerAccount) String() string {
	return fmt.Sprintf(
		"DeployerAccount{manager=%s,deploy_authority=%s,bps_fee=%d,flat_fee=%d,expected_bps_fee=%d,expected_flat_fee=%d,max_per_round=%d}",
		base58.Encode(obj.ManagerKey),
		base58.Encode(obj.DeployAuthority),
		obj.BpsFee,
		obj.FlatFee,
		obj.ExpectedBpsFee,
		obj.ExpectedFlatFee,
		obj.MaxPerRound,
	)
}
