package registry

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	addresslookuptable "github.com/evore-labs/evore-crank/pkg/solana/addresslookuptable"
	"github.com/evore-labs/evore-crank/pkg/solana/entropy"
	"github.com/evore-labs/evore-crank/pkg/solana/evore"
	"github.com/evore-labs/evore-crank/pkg/solana/ore"
)

type TableKind uint8

const (
	// An unrelated or malformed table. Left alone.
	TableKindUnknown TableKind = iota

	// Holds every round-independent account referenced by deploy
	// transactions.
	TableKindShared

	// Holds the five accounts specific to one managed miner.
	TableKindMiner

	// A table from an older layout. Deactivated and closed so its rent
	// comes back to the authority.
	TableKindLegacy
)

const minerTableSize = 5

type Classification struct {
	Kind      TableKind
	MinerAuth ed25519.PublicKey
}

// SharedTableAddresses returns the accounts every deploy transaction
// references regardless of miner, in their canonical table order.
func SharedTableAddresses(deployAuthority ed25519.PublicKey) ([]ed25519.PublicKey, error) {
	board, _, err := ore.GetBoardAddress()
	if err != nil {
		return nil, errors.Wrap(err, "error deriving board address")
	}

	config, _, err := ore.GetConfigAddress()
	if err != nil {
		return nil, errors.Wrap(err, "error deriving config address")
	}

	entropyVar, _, err := entropy.GetVarAddress(&entropy.GetVarAddressArgs{
		Authority: board,
		Id:        0,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving entropy var address")
	}

	return []ed25519.PublicKey{
		deployAuthority,
		evore.PROGRAM_ID,
		evore.SYSTEM_PROGRAM_ID,
		ore.PROGRAM_ID,
		entropy.PROGRAM_ID,
		evore.FEE_COLLECTOR_ADDRESS,
		board,
		config,
		ore.TREASURY_ADDRESS,
		entropyVar,
	}, nil
}

// MinerTableAddresses returns the accounts specific to one managed miner,
// in their canonical table order.
func MinerTableAddresses(manager ed25519.PublicKey, authId uint64) ([]ed25519.PublicKey, error) {
	deployer, _, err := evore.GetDeployerAddress(&evore.GetDeployerAddressArgs{
		Manager: manager,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving deployer address")
	}

	minerAuth, _, err := evore.GetManagedMinerAuthAddress(&evore.GetManagedMinerAuthAddressArgs{
		Manager: manager,
		AuthId:  authId,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving managed miner auth address")
	}

	oreMiner, _, err := ore.GetMinerAddress(&ore.GetMinerAddressArgs{
		Authority: minerAuth,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving miner address")
	}

	automation, _, err := ore.GetAutomationAddress(&ore.GetAutomationAddressArgs{
		Authority: minerAuth,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving automation address")
	}

	return []ed25519.PublicKey{
		manager,
		deployer,
		minerAuth,
		oreMiner,
		automation,
	}, nil
}

// Classify decides what role a lookup table owned by the deploy authority
// plays. A table holding every shared address is the shared table even when
// it carries extras. A five address table is a miner table keyed by the
// miner auth in slot two, and only counts as current when slot four holds
// that auth's automation account. Six and seven address tables are a
// retired layout.
func Classify(deployAuthority ed25519.PublicKey, account *addresslookuptable.AddressLookupTableAccount) (Classification, error) {
	shared, err := SharedTableAddresses(deployAuthority)
	if err != nil {
		return Classification{}, err
	}

	if containsAll(account.Addresses, shared) {
		return Classification{Kind: TableKindShared}, nil
	}

	switch len(account.Addresses) {
	case minerTableSize:
		minerAuth := account.Addresses[2]

		automation, _, err := ore.GetAutomationAddress(&ore.GetAutomationAddressArgs{
			Authority: minerAuth,
		})
		if err != nil {
			return Classification{}, errors.Wrap(err, "error deriving automation address")
		}

		if !bytes.Equal(account.Addresses[4], automation) {
			return Classification{Kind: TableKindLegacy, MinerAuth: minerAuth}, nil
		}

		return Classification{Kind: TableKindMiner, MinerAuth: minerAuth}, nil
	case 6:
		return Classification{Kind: TableKindLegacy, MinerAuth: account.Addresses[3]}, nil
	case 7:
		return Classification{Kind: TableKindLegacy, MinerAuth: account.Addresses[4]}, nil
	}

	return Classification{Kind: TableKindUnknown}, nil
}

func containsAll(addresses, required []ed25519.PublicKey) bool {
	for _, want := range required {
		var found bool
		for _, address := range addresses {
			if bytes.Equal(address, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
