package registry

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	addresslookuptable "github.com/evore-labs/evore-crank/pkg/solana/addresslookuptable"
	"github.com/evore-labs/evore-crank/pkg/solana/ore"
)

func TestClassify_SharedTable(t *testing.T) {
	authority := generateKey(t)

	shared, err := SharedTableAddresses(authority)
	require.NoError(t, err)
	require.Len(t, shared, 10)

	classification, err := Classify(authority, &addresslookuptable.AddressLookupTableAccount{
		Addresses: shared,
	})
	require.NoError(t, err)
	assert.Equal(t, TableKindShared, classification.Kind)

	// Extra addresses don't disqualify a superset
	withExtras := append([]ed25519.PublicKey{generateKey(t)}, shared...)
	withExtras = append(withExtras, generateKey(t))

	classification, err = Classify(authority, &addresslookuptable.AddressLookupTableAccount{
		Addresses: withExtras,
	})
	require.NoError(t, err)
	assert.Equal(t, TableKindShared, classification.Kind)

	// Dropping any one required address disqualifies it
	classification, err = Classify(authority, &addresslookuptable.AddressLookupTableAccount{
		Addresses: shared[1:],
	})
	require.NoError(t, err)
	assert.NotEqual(t, TableKindShared, classification.Kind)
}

func TestClassify_MinerTable(t *testing.T) {
	authority := generateKey(t)
	manager := generateKey(t)

	addresses, err := MinerTableAddresses(manager, 0)
	require.NoError(t, err)
	require.Len(t, addresses, 5)

	classification, err := Classify(authority, &addresslookuptable.AddressLookupTableAccount{
		Addresses: addresses,
	})
	require.NoError(t, err)
	assert.Equal(t, TableKindMiner, classification.Kind)
	assert.EqualValues(t, addresses[2], classification.MinerAuth)

	expectedAutomation, _, err := ore.GetAutomationAddress(&ore.GetAutomationAddressArgs{
		Authority: addresses[2],
	})
	require.NoError(t, err)
	assert.EqualValues(t, expectedAutomation, addresses[4])
}

func TestClassify_LegacyTables(t *testing.T) {
	authority := generateKey(t)
	manager := generateKey(t)

	// Five addresses without the automation account in the last slot
	addresses, err := MinerTableAddresses(manager, 0)
	require.NoError(t, err)
	addresses[4] = generateKey(t)

	classification, err := Classify(authority, &addresslookuptable.AddressLookupTableAccount{
		Addresses: addresses,
	})
	require.NoError(t, err)
	assert.Equal(t, TableKindLegacy, classification.Kind)
	assert.EqualValues(t, addresses[2], classification.MinerAuth)

	// Older six and seven address layouts
	for _, size := range []int{6, 7} {
		legacy := make([]ed25519.PublicKey, size)
		for i := range legacy {
			legacy[i] = generateKey(t)
		}

		classification, err := Classify(authority, &addresslookuptable.AddressLookupTableAccount{
			Addresses: legacy,
		})
		require.NoError(t, err)
		assert.Equal(t, TableKindLegacy, classification.Kind)
		assert.EqualValues(t, legacy[size-3], classification.MinerAuth)
	}
}

func TestClassify_Unknown(t *testing.T) {
	authority := generateKey(t)

	addresses := make([]ed25519.PublicKey, 4)
	for i := range addresses {
		addresses[i] = generateKey(t)
	}

	classification, err := Classify(authority, &addresslookuptable.AddressLookupTableAccount{
		Addresses: addresses,
	})
	require.NoError(t, err)
	assert.Equal(t, TableKindUnknown, classification.Kind)
}

func TestClassify_Idempotent(t *testing.T) {
	authority := generateKey(t)
	manager := generateKey(t)

	addresses, err := MinerTableAddresses(manager, 3)
	require.NoError(t, err)

	account := &addresslookuptable.AddressLookupTableAccount{
		Addresses: addresses,
	}

	first, err := Classify(authority, account)
	require.NoError(t, err)
	second, err := Classify(authority, account)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}
