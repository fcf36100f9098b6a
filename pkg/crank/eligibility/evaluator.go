package eligibility

import (
	"context"
	"crypto/ed25519"
	"math/bits"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/evore-labs/evore-crank/pkg/metrics"
	"github.com/evore-labs/evore-crank/pkg/solana"
	"github.com/evore-labs/evore-crank/pkg/solana/evore"
	"github.com/evore-labs/evore-crank/pkg/solana/ore"
)

const metricsStructName = "crank.eligibility.Evaluator"

// Params are the operator-configured knobs of a prospective deploy.
type Params struct {
	AmountPerSquare uint64
	SquaresMask     uint32
}

// Assessment is the outcome of evaluating one (deployer, auth id) pair for
// the current round.
type Assessment struct {
	// Whether the miner auth balance covers RequiredBalance and the fee
	// terms still hold.
	Eligible bool

	RequiredBalance uint64
	Balance         uint64

	MinerExists bool

	// Whether the miner has already deployed into the current round, used
	// to seed the dedup tracker after a restart.
	DeployedInRound bool

	// When set, the round that must be checkpointed in the same
	// transaction as the deploy. This is the miner's own recorded round,
	// which can lag the board's current round by more than one.
	CheckpointRound *uint64

	// Whether the miner holds SOL winnings worth recycling back into the
	// deployer balance.
	RecycleSol bool
}

// RequiredBalance computes the minimum miner auth balance for one deploy:
// rent reserved for the miner auth account, the protocol checkpoint fee,
// the total deployed across selected squares, rent for the miner account
// when it doesn't exist yet, and the deployer's own fee on the total.
func RequiredBalance(params Params, bpsFee, flatFee, authRent, checkpointFee, minerRent uint64) uint64 {
	totalDeployed := params.AmountPerSquare * uint64(bits.OnesCount32(params.SquaresMask))
	actorFee := totalDeployed*bpsFee/evore.BpsDenominator + flatFee
	return authRent + checkpointFee + totalDeployed + minerRent + actorFee
}

// Evaluator decides, per managed account, whether a deploy should be
// attempted this tick and what has to ride along with it.
type Evaluator struct {
	log    *logrus.Entry
	client solana.Client
}

func NewEvaluator(client solana.Client) *Evaluator {
	return &Evaluator{
		log:    logrus.StandardLogger().WithField("type", "crank/eligibility"),
		client: client,
	}
}

// Evaluate inspects one deployer and its managed miner. Missing or
// undecodable accounts make the pair ineligible, never an error; errors are
// reserved for RPC failures.
func (e *Evaluator) Evaluate(
	ctx context.Context,
	deployerAddress ed25519.PublicKey,
	deployer *evore.DeployerAccount,
	authId uint64,
	currentRoundId uint64,
	params Params,
) (*Assessment, error) {
	defer metrics.TraceMethodCall(ctx, metricsStructName, "Evaluate").End()

	log := e.log.WithFields(logrus.Fields{
		"method":   "Evaluate",
		"deployer": base58.Encode(deployerAddress),
	})

	// The owner caps the fee they'll accept. A charged fee above that cap
	// would make every deploy instruction for this account fail on chain,
	// so it never enters a batch.
	if deployer.BpsFee > deployer.ExpectedBpsFee || deployer.FlatFee > deployer.ExpectedFlatFee {
		log.WithFields(logrus.Fields{
			"bps_fee":           deployer.BpsFee,
			"expected_bps_fee":  deployer.ExpectedBpsFee,
			"flat_fee":          deployer.FlatFee,
			"expected_flat_fee": deployer.ExpectedFlatFee,
		}).Warn("skipping deployer whose expected fee no longer covers the charged fee")
		return &Assessment{}, nil
	}

	managerInfo, err := e.client.GetAccountInfo(deployer.ManagerKey, solana.CommitmentConfirmed)
	if err == solana.ErrNoAccountInfo {
		return &Assessment{}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "error getting manager account")
	}

	var manager evore.ManagerAccount
	if err := manager.Unmarshal(managerInfo.Data); err != nil {
		log.WithError(err).Warn("skipping manager with unexpected account data")
		return &Assessment{}, nil
	}

	minerAuth, _, err := evore.GetManagedMinerAuthAddress(&evore.GetManagedMinerAuthAddressArgs{
		Manager: deployer.ManagerKey,
		AuthId:  authId,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving managed miner auth address")
	}

	minerAddress, _, err := ore.GetMinerAddress(&ore.GetMinerAddressArgs{
		Authority: minerAuth,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error deriving miner address")
	}

	assessment := &Assessment{}

	var miner ore.MinerAccount
	minerInfo, err := e.client.GetAccountInfo(minerAddress, solana.CommitmentConfirmed)
	switch err {
	case nil:
		if err := miner.Unmarshal(minerInfo.Data); err != nil {
			log.WithError(err).Warn("skipping miner with unexpected account data")
			return &Assessment{}, nil
		}

		assessment.MinerExists = true
		assessment.DeployedInRound = miner.RoundId == currentRoundId && miner.TotalDeployed() > 0
		assessment.RecycleSol = miner.RewardsSol > 0

		if miner.NeedsCheckpoint() {
			checkpointRound := miner.RoundId
			assessment.CheckpointRound = &checkpointRound
		}
	case solana.ErrNoAccountInfo:
		// First deploy also creates the miner, so its rent is part of the
		// required balance below.
	default:
		return nil, errors.Wrap(err, "error getting miner account")
	}

	authRent, err := e.client.GetMinimumBalanceForRentExemption(0)
	if err != nil {
		return nil, errors.Wrap(err, "error getting auth rent")
	}

	var minerRent uint64
	if !assessment.MinerExists {
		minerRent, err = e.client.GetMinimumBalanceForRentExemption(ore.MinerAccountSize)
		if err != nil {
			return nil, errors.Wrap(err, "error getting miner rent")
		}
	}

	// Deposits land on the managed miner auth, not on the deployer record,
	// which only ever holds its own rent.
	balance, err := e.client.GetBalance(minerAuth)
	if err != nil {
		return nil, errors.Wrap(err, "error getting miner auth balance")
	}

	assessment.Balance = balance
	assessment.RequiredBalance = RequiredBalance(
		params,
		deployer.BpsFee,
		deployer.FlatFee,
		authRent,
		ore.CheckpointFee,
		minerRent,
	)
	assessment.Eligible = balance >= assessment.RequiredBalance

	return assessment, nil
}
