package evore

import (
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evore-labs/evore-crank/pkg/solana/entropy"
	"github.com/evore-labs/evore-crank/pkg/solana/ore"
)

func TestFullAutodeployInstruction(t *testing.T) {
	accounts := &FullAutodeployInstructionAccounts{
		Signer:           generateKey(t),
		Manager:          generateKey(t),
		Deployer:         generateKey(t),
		ManagedMinerAuth: generateKey(t),
		OreMiner:         generateKey(t),
		Automation:       generateKey(t),
		Config:           generateKey(t),
		Board:            generateKey(t),
		Round:            generateKey(t),
		CheckpointRound:  generateKey(t),
		EntropyVar:       generateKey(t),
	}

	ixn := NewFullAutodeployInstruction(accounts, &FullAutodeployInstructionArgs{
		AuthId:      42,
		Amount:      2_800,
		SquaresMask: 0x1FFFFFF,
	})

	assert.EqualValues(t, PROGRAM_ADDRESS, ixn.Program)

	require.Len(t, ixn.Data, 1+FullAutodeployInstructionArgsSize)
	assert.EqualValues(t, InstructionMMFullAutodeploy, ixn.Data[0])
	assert.EqualValues(t, 42, binary.LittleEndian.Uint64(ixn.Data[1:]))
	assert.EqualValues(t, 2_800, binary.LittleEndian.Uint64(ixn.Data[9:]))
	assert.EqualValues(t, 0x1FFFFFF, binary.LittleEndian.Uint32(ixn.Data[17:]))
	assert.EqualValues(t, 0, binary.LittleEndian.Uint32(ixn.Data[21:]))

	require.Len(t, ixn.Accounts, 16)

	expected := []ed25519.PublicKey{
		accounts.Signer,
		accounts.Manager,
		accounts.Deployer,
		accounts.ManagedMinerAuth,
		accounts.OreMiner,
		FEE_COLLECTOR_ADDRESS,
		accounts.Automation,
		accounts.Config,
		accounts.Board,
		accounts.Round,
		accounts.CheckpointRound,
		ore.TREASURY_ADDRESS,
		accounts.EntropyVar,
		ore.PROGRAM_ID,
		entropy.PROGRAM_ID,
		SYSTEM_PROGRAM_ID,
	}
	for i, meta := range ixn.Accounts {
		assert.EqualValues(t, expected[i], meta.PublicKey, "account %d", i)
	}

	assert.True(t, ixn.Accounts[0].IsSigner)
	for _, meta := range ixn.Accounts[1:] {
		assert.False(t, meta.IsSigner)
	}
	for _, meta := range ixn.Accounts[:13] {
		assert.True(t, meta.IsWritable)
	}
	for _, meta := range ixn.Accounts[13:] {
		assert.False(t, meta.IsWritable)
	}
}

func TestAutocheckpointInstruction(t *testing.T) {
	accounts := &AutocheckpointInstructionAccounts{
		Signer:           generateKey(t),
		Manager:          generateKey(t),
		Deployer:         generateKey(t),
		ManagedMinerAuth: generateKey(t),
		OreMiner:         generateKey(t),
		Board:            generateKey(t),
		Round:            generateKey(t),
	}

	ixn := NewAutocheckpointInstruction(accounts, &AutocheckpointInstructionArgs{
		AuthId: 7,
		Bump:   254,
	})

	require.Len(t, ixn.Data, 1+AutocheckpointInstructionArgsSize)
	assert.EqualValues(t, InstructionMMAutocheckpoint, ixn.Data[0])
	assert.EqualValues(t, 7, binary.LittleEndian.Uint64(ixn.Data[1:]))
	assert.EqualValues(t, 254, ixn.Data[9])

	require.Len(t, ixn.Accounts, 10)
	assert.True(t, ixn.Accounts[0].IsSigner)
	assert.EqualValues(t, ore.TREASURY_ADDRESS, ixn.Accounts[5].PublicKey)
	assert.EqualValues(t, accounts.Board, ixn.Accounts[6].PublicKey)
	assert.EqualValues(t, accounts.Round, ixn.Accounts[7].PublicKey)
	assert.EqualValues(t, SYSTEM_PROGRAM_ID, ixn.Accounts[8].PublicKey)
	assert.EqualValues(t, ore.PROGRAM_ID, ixn.Accounts[9].PublicKey)
}

func TestRecycleSolInstruction(t *testing.T) {
	accounts := &RecycleSolInstructionAccounts{
		Signer:           generateKey(t),
		Manager:          generateKey(t),
		Deployer:         generateKey(t),
		ManagedMinerAuth: generateKey(t),
		OreMiner:         generateKey(t),
	}

	ixn := NewRecycleSolInstruction(accounts, &RecycleSolInstructionArgs{
		AuthId: 3,
	})

	require.Len(t, ixn.Data, 1+RecycleSolInstructionArgsSize)
	assert.EqualValues(t, InstructionRecycleSol, ixn.Data[0])
	assert.EqualValues(t, 3, binary.LittleEndian.Uint64(ixn.Data[1:]))

	require.Len(t, ixn.Accounts, 6)
	assert.True(t, ixn.Accounts[0].IsSigner)
	assert.EqualValues(t, ore.PROGRAM_ID, ixn.Accounts[5].PublicKey)
}

func TestUpdateDeployerInstruction(t *testing.T) {
	accounts := &UpdateDeployerInstructionAccounts{
		Signer:             generateKey(t),
		Manager:            generateKey(t),
		Deployer:           generateKey(t),
		NewDeployAuthority: generateKey(t),
	}

	ixn := NewUpdateDeployerInstruction(accounts, &UpdateDeployerInstructionArgs{
		BpsFee:          500,
		FlatFee:         2_000,
		ExpectedBpsFee:  500,
		ExpectedFlatFee: 5_000,
		MaxPerRound:     100_000,
	})

	require.Len(t, ixn.Data, 1+UpdateDeployerInstructionArgsSize)
	assert.EqualValues(t, InstructionUpdateDeployer, ixn.Data[0])
	assert.EqualValues(t, 500, binary.LittleEndian.Uint64(ixn.Data[1:]))
	assert.EqualValues(t, 2_000, binary.LittleEndian.Uint64(ixn.Data[9:]))
	assert.EqualValues(t, 500, binary.LittleEndian.Uint64(ixn.Data[17:]))
	assert.EqualValues(t, 5_000, binary.LittleEndian.Uint64(ixn.Data[25:]))
	assert.EqualValues(t, 100_000, binary.LittleEndian.Uint64(ixn.Data[33:]))

	require.Len(t, ixn.Accounts, 5)
	assert.True(t, ixn.Accounts[0].IsSigner)
	assert.False(t, ixn.Accounts[3].IsWritable)
	assert.EqualValues(t, SYSTEM_PROGRAM_ID, ixn.Accounts[4].PublicKey)
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}
