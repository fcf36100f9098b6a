package ore

import (
	"crypto/ed25519"
	"errors"
)

var (
	ErrInvalidProgram     = errors.New("invalid program id")
	ErrInvalidAccountData = errors.New("unexpected account data")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("oreV3EG1i9BEgiAJ8b177Z2S2rMarzak4NMv1kULvWv")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)

	// Singleton account which collects SOL for buy-bury operations and acts
	// as the mint authority for the ORE token.
	TREASURY_ADDRESS = ed25519.PublicKey(mustBase58Decode("45db2FSR4mcXdSVVZbKbwojU6uYDpMyhpEi7cC8nHaWG"))
)

const (
	// Lamports withheld by the program to pay for checkpointing a round.
	CheckpointFee = 10_000

	// Sentinel end slot while the board is between rounds.
	NoActiveRoundEndSlot = ^uint64(0)
)

type AccountType uint8

const (
	AccountTypeAutomation AccountType = 100
	AccountTypeConfig     AccountType = 101
	AccountTypeMiner      AccountType = 103
	AccountTypeTreasury   AccountType = 104
	AccountTypeBoard      AccountType = 105
	AccountTypeStake      AccountType = 108
	AccountTypeRound      AccountType = 109
)
