package evore

import (
	"crypto/ed25519"
	"errors"
)

var (
	ErrInvalidProgram     = errors.New("invalid program id")
	ErrInvalidAccountData = errors.New("unexpected account data")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("8jaLKWLJAj5jVCZbxpe3zRUvLB3LD48MRtaQ2AjfCfxa")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)

	// Collects the flat per-deploy protocol fee.
	FEE_COLLECTOR_ADDRESS = ed25519.PublicKey(mustBase58Decode("56qSi79jWdM1zie17NKFvdsh213wPb15HHUqGUjmJ2Lr"))

	SYSTEM_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
)

const (
	// Flat protocol fee charged on every automated deploy, in lamports.
	DeployFee = 1_000
)

type EvoreInstruction uint8

const (
	InstructionCreateManager EvoreInstruction = iota
	InstructionMMDeploy
	InstructionMMCheckpoint
	InstructionMMClaimSol
	InstructionMMClaimOre
	InstructionCreateDeployer
	InstructionUpdateDeployer
	InstructionMMAutodeploy
	InstructionDepositAutodeployBalance
	InstructionRecycleSol
	InstructionWithdrawAutodeployBalance
	InstructionMMAutocheckpoint
	InstructionMMFullAutodeploy
	InstructionTransferManager
	InstructionMMCreateMiner
	InstructionWithdrawTokens
)

type AccountType uint8

const (
	AccountTypeManager  AccountType = 100
	AccountTypeDeployer AccountType = 101
)

func putInstruction(dst []byte, v EvoreInstruction, offset *int) {
	dst[*offset] = uint8(v)
	*offset += 1
}
