package submitter

import (
	"context"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evore-labs/evore-crank/pkg/crank/common"
	"github.com/evore-labs/evore-crank/pkg/solana"
	"github.com/evore-labs/evore-crank/pkg/solana/evore"
)

func TestSubmitDeployBatch_InstructionSelection(t *testing.T) {
	env := setupSubmitterTestEnv(t)

	checkpointRound := uint64(5)
	tasks := []DeployTask{
		newDeployTask(t),
		newDeployTask(t),
		newDeployTask(t),
	}
	tasks[1].CheckpointRound = &checkpointRound
	tasks[2].RecycleSol = true

	_, err := env.submitter.SubmitDeployBatch(context.Background(), env.round, tasks, nil)
	require.NoError(t, err)

	require.Len(t, env.client.submitted, 1)
	txn := env.client.submitted[0]

	// Two compute budget instructions, then one deploy per task. A miner
	// with nothing to settle or recycle takes the plain instruction, the
	// others the full form.
	require.Len(t, txn.Message.Instructions, 5)
	assert.Equal(t, byte(evore.InstructionMMAutodeploy), txn.Message.Instructions[2].Data[0])
	assert.Equal(t, byte(evore.InstructionMMFullAutodeploy), txn.Message.Instructions[3].Data[0])
	assert.Equal(t, byte(evore.InstructionMMFullAutodeploy), txn.Message.Instructions[4].Data[0])

	assert.Empty(t, txn.Message.AddressTableLookups)
}

func TestSubmitDeployBatch_VersionedWithTables(t *testing.T) {
	env := setupSubmitterTestEnv(t)

	task := newDeployTask(t)

	tables := []solana.AddressLookupTable{{
		PublicKey: generateKey(t),
		Addresses: []ed25519.PublicKey{
			task.Manager,
			task.Deployer,
			task.MinerAuth,
			task.OreMiner,
			task.Automation,
			env.round.Board,
			env.round.Config,
			env.round.Round,
			env.round.EntropyVar,
		},
	}}

	_, err := env.submitter.SubmitDeployBatch(context.Background(), env.round, []DeployTask{task}, tables)
	require.NoError(t, err)

	require.Len(t, env.client.submitted, 1)
	assert.NotEmpty(t, env.client.submitted[0].Message.AddressTableLookups)
}

func TestSubmitCheckpointBatch_RecycleRidesAlong(t *testing.T) {
	env := setupSubmitterTestEnv(t)

	tasks := []CheckpointTask{
		{
			Manager:   generateKey(t),
			Deployer:  generateKey(t),
			MinerAuth: generateKey(t),
			OreMiner:  generateKey(t),
			Round:     5,
		},
		{
			Manager:    generateKey(t),
			Deployer:   generateKey(t),
			MinerAuth:  generateKey(t),
			OreMiner:   generateKey(t),
			Round:      5,
			RecycleSol: true,
		},
	}

	_, err := env.submitter.SubmitCheckpointBatch(context.Background(), env.round.Board, tasks)
	require.NoError(t, err)

	require.Len(t, env.client.submitted, 1)
	txn := env.client.submitted[0]

	require.Len(t, txn.Message.Instructions, 5)
	assert.Equal(t, byte(evore.InstructionMMAutocheckpoint), txn.Message.Instructions[2].Data[0])
	assert.Equal(t, byte(evore.InstructionMMAutocheckpoint), txn.Message.Instructions[3].Data[0])
	assert.Equal(t, byte(evore.InstructionRecycleSol), txn.Message.Instructions[4].Data[0])
}

func TestSubmitDeployBatch_EmptyBatch(t *testing.T) {
	env := setupSubmitterTestEnv(t)

	_, err := env.submitter.SubmitDeployBatch(context.Background(), env.round, nil, nil)
	assert.Error(t, err)
	assert.Empty(t, env.client.submitted)
}

type submitterTestEnv struct {
	client    *mockClient
	submitter *Submitter
	round     RoundAccounts
}

func setupSubmitterTestEnv(t *testing.T) *submitterTestEnv {
	signer, err := common.NewRandomAccount()
	require.NoError(t, err)

	client := &mockClient{}

	return &submitterTestEnv{
		client:    client,
		submitter: NewSubmitter(client, signer, 100_000),
		round: RoundAccounts{
			Board:      generateKey(t),
			Config:     generateKey(t),
			EntropyVar: generateKey(t),
			Round:      generateKey(t),
			RoundId:    6,
		},
	}
}

func newDeployTask(t *testing.T) DeployTask {
	return DeployTask{
		Manager:         generateKey(t),
		Deployer:        generateKey(t),
		MinerAuth:       generateKey(t),
		OreMiner:        generateKey(t),
		Automation:      generateKey(t),
		AmountPerSquare: 10_000,
		SquaresMask:     0x1FFFFFF,
	}
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}

type mockClient struct {
	submitted []solana.Transaction
}

func (m *mockClient) GetAccountInfo(ed25519.PublicKey, solana.Commitment) (solana.AccountInfo, error) {
	return solana.AccountInfo{}, solana.ErrNoAccountInfo
}

func (m *mockClient) GetBalance(ed25519.PublicKey) (uint64, error) {
	return 0, nil
}

func (m *mockClient) GetMinimumBalanceForRentExemption(uint64) (uint64, error) {
	return 0, nil
}

func (m *mockClient) GetLatestBlockhash() (solana.Blockhash, error) {
	return solana.Blockhash{}, nil
}

func (m *mockClient) GetProgramAccounts(ed25519.PublicKey, solana.Commitment, ...solana.ProgramAccountFilter) ([]solana.ProgramAccount, uint64, error) {
	return nil, 0, nil
}

func (m *mockClient) GetSignatureStatus(solana.Signature, solana.Commitment) (*solana.SignatureStatus, error) {
	return &solana.SignatureStatus{}, nil
}

func (m *mockClient) GetSignatureStatuses([]solana.Signature) ([]*solana.SignatureStatus, error) {
	return nil, nil
}

func (m *mockClient) GetSlot(solana.Commitment) (uint64, error) {
	return 0, nil
}

func (m *mockClient) RequestAirdrop(ed25519.PublicKey, uint64, solana.Commitment) (solana.Signature, error) {
	return solana.Signature{}, nil
}

func (m *mockClient) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	m.submitted = append(m.submitted, txn)

	var sig solana.Signature
	copy(sig[:], txn.Signature())
	return sig, nil
}
