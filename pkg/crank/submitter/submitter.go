package submitter

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/evore-labs/evore-crank/pkg/crank/common"
	"github.com/evore-labs/evore-crank/pkg/metrics"
	"github.com/evore-labs/evore-crank/pkg/solana"
	compute_budget "github.com/evore-labs/evore-crank/pkg/solana/computebudget"
	"github.com/evore-labs/evore-crank/pkg/solana/evore"
	"github.com/evore-labs/evore-crank/pkg/solana/ore"
)

const (
	metricsStructName = "crank.submitter.Submitter"

	computeUnitsPerTask = 150_000
	maxComputeUnits     = 1_400_000
)

// DeployTask is one intended deploy for a managed miner, assembled by the
// scheduler and consumed within the same tick.
type DeployTask struct {
	Manager    ed25519.PublicKey
	Deployer   ed25519.PublicKey
	MinerAuth  ed25519.PublicKey
	OreMiner   ed25519.PublicKey
	Automation ed25519.PublicKey

	AuthId          uint64
	AmountPerSquare uint64
	SquaresMask     uint32

	// Round that must be checkpointed in the same instruction, when the
	// miner's last played round hasn't been settled yet.
	CheckpointRound *uint64

	// Claim the miner's SOL winnings back into the deploy balance along
	// with the deploy.
	RecycleSol bool
}

// CheckpointTask settles a miner's lagging round without deploying, used
// for miners whose balance no longer covers a deploy.
type CheckpointTask struct {
	Manager       ed25519.PublicKey
	Deployer      ed25519.PublicKey
	MinerAuth     ed25519.PublicKey
	MinerAuthBump uint8
	OreMiner      ed25519.PublicKey

	AuthId uint64
	Round  uint64

	// Also claim the miner's SOL winnings back into the deployer.
	RecycleSol bool
}

// RoundAccounts carries the per-tick addresses shared by every instruction
// in a batch.
type RoundAccounts struct {
	Board      ed25519.PublicKey
	Config     ed25519.PublicKey
	EntropyVar ed25519.PublicKey
	Round      ed25519.PublicKey
	RoundId    uint64
}

// Submitter turns batches of tasks into single signed transactions. It
// reports the accepted signature or the submission error and leaves
// confirmation tracking to the caller.
type Submitter struct {
	log         *logrus.Entry
	client      solana.Client
	signer      *common.Account
	priorityFee uint64
}

func NewSubmitter(client solana.Client, signer *common.Account, priorityFee uint64) *Submitter {
	return &Submitter{
		log:         logrus.StandardLogger().WithField("type", "crank/submitter"),
		client:      client,
		signer:      signer,
		priorityFee: priorityFee,
	}
}

// SubmitDeployBatch builds and sends one transaction holding a deploy
// instruction per task, using the full form when a checkpoint or recycle
// rides along. With lookup tables the transaction is built in versioned
// compact form, otherwise legacy expanded form.
func (s *Submitter) SubmitDeployBatch(
	ctx context.Context,
	round RoundAccounts,
	tasks []DeployTask,
	tables []solana.AddressLookupTable,
) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitDeployBatch")
	defer tracer.End()

	log := s.log.WithField("method", "SubmitDeployBatch")

	if len(tasks) == 0 {
		return solana.Signature{}, errors.New("empty batch")
	}
	tracer.AddAttribute("tasks", len(tasks))

	signerKey := ed25519.PublicKey(s.signer.PublicKey().ToBytes())

	instructions := s.budgetPrefix(len(tasks))
	for _, task := range tasks {
		// A miner with nothing to settle and nothing to recycle takes the
		// plain deploy instruction.
		if task.CheckpointRound == nil && !task.RecycleSol {
			instructions = append(instructions, evore.NewAutodeployInstruction(
				&evore.AutodeployInstructionAccounts{
					Signer:           signerKey,
					Manager:          task.Manager,
					Deployer:         task.Deployer,
					ManagedMinerAuth: task.MinerAuth,
					OreMiner:         task.OreMiner,
					Automation:       task.Automation,
					Config:           round.Config,
					Board:            round.Board,
					Round:            round.Round,
					EntropyVar:       round.EntropyVar,
				},
				&evore.AutodeployInstructionArgs{
					AuthId:      task.AuthId,
					Amount:      task.AmountPerSquare,
					SquaresMask: task.SquaresMask,
				},
			))
			continue
		}

		checkpointRound := round.Round
		if task.CheckpointRound != nil {
			var err error
			checkpointRound, _, err = ore.GetRoundAddress(&ore.GetRoundAddressArgs{
				Id: *task.CheckpointRound,
			})
			if err != nil {
				return solana.Signature{}, errors.Wrap(err, "error deriving checkpoint round address")
			}
		}

		instructions = append(instructions, evore.NewFullAutodeployInstruction(
			&evore.FullAutodeployInstructionAccounts{
				Signer:           signerKey,
				Manager:          task.Manager,
				Deployer:         task.Deployer,
				ManagedMinerAuth: task.MinerAuth,
				OreMiner:         task.OreMiner,
				Automation:       task.Automation,
				Config:           round.Config,
				Board:            round.Board,
				Round:            round.Round,
				CheckpointRound:  checkpointRound,
				EntropyVar:       round.EntropyVar,
			},
			&evore.FullAutodeployInstructionArgs{
				AuthId:      task.AuthId,
				Amount:      task.AmountPerSquare,
				SquaresMask: task.SquaresMask,
			},
		))
	}

	var txn solana.Transaction
	if len(tables) > 0 {
		txn = solana.NewVersionedTransaction(signerKey, tables, instructions)
	} else {
		txn = solana.NewTransaction(signerKey, instructions...)
	}

	sig, err := s.sendTransaction(&txn)
	if err != nil {
		tracer.OnError(err)
		return solana.Signature{}, err
	}

	log.WithFields(logrus.Fields{
		"round":     round.RoundId,
		"tasks":     len(tasks),
		"signature": base58.Encode(sig[:]),
	}).Info("submitted deploy batch")

	return sig, nil
}

// SubmitCheckpointBatch builds and sends one transaction settling lagging
// rounds, with an optional recycle per task. Always legacy form, these
// batches are small and infrequent.
func (s *Submitter) SubmitCheckpointBatch(
	ctx context.Context,
	board ed25519.PublicKey,
	tasks []CheckpointTask,
) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitCheckpointBatch")
	defer tracer.End()

	log := s.log.WithField("method", "SubmitCheckpointBatch")

	if len(tasks) == 0 {
		return solana.Signature{}, errors.New("empty batch")
	}
	tracer.AddAttribute("tasks", len(tasks))

	signerKey := ed25519.PublicKey(s.signer.PublicKey().ToBytes())

	instructions := s.budgetPrefix(len(tasks))
	for _, task := range tasks {
		round, _, err := ore.GetRoundAddress(&ore.GetRoundAddressArgs{
			Id: task.Round,
		})
		if err != nil {
			return solana.Signature{}, errors.Wrap(err, "error deriving round address")
		}

		instructions = append(instructions, evore.NewAutocheckpointInstruction(
			&evore.AutocheckpointInstructionAccounts{
				Signer:           signerKey,
				Manager:          task.Manager,
				Deployer:         task.Deployer,
				ManagedMinerAuth: task.MinerAuth,
				OreMiner:         task.OreMiner,
				Board:            board,
				Round:            round,
			},
			&evore.AutocheckpointInstructionArgs{
				AuthId: task.AuthId,
				Bump:   task.MinerAuthBump,
			},
		))

		if task.RecycleSol {
			instructions = append(instructions, evore.NewRecycleSolInstruction(
				&evore.RecycleSolInstructionAccounts{
					Signer:           signerKey,
					Manager:          task.Manager,
					Deployer:         task.Deployer,
					ManagedMinerAuth: task.MinerAuth,
					OreMiner:         task.OreMiner,
				},
				&evore.RecycleSolInstructionArgs{
					AuthId: task.AuthId,
				},
			))
		}
	}

	txn := solana.NewTransaction(signerKey, instructions...)

	sig, err := s.sendTransaction(&txn)
	if err != nil {
		tracer.OnError(err)
		return solana.Signature{}, err
	}

	log.WithFields(logrus.Fields{
		"tasks":     len(tasks),
		"signature": base58.Encode(sig[:]),
	}).Info("submitted checkpoint batch")

	return sig, nil
}

func (s *Submitter) budgetPrefix(taskCount int) []solana.Instruction {
	computeUnits := uint32(taskCount) * computeUnitsPerTask
	if computeUnits > maxComputeUnits {
		computeUnits = maxComputeUnits
	}

	return []solana.Instruction{
		compute_budget.SetComputeUnitLimit(computeUnits),
		compute_budget.SetComputeUnitPrice(s.priorityFee),
	}
}

func (s *Submitter) sendTransaction(txn *solana.Transaction) (solana.Signature, error) {
	blockhash, err := s.client.GetLatestBlockhash()
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "error getting latest blockhash")
	}
	txn.SetBlockhash(blockhash)

	if err := txn.Sign(ed25519.PrivateKey(s.signer.PrivateKey().ToBytes())); err != nil {
		return solana.Signature{}, errors.Wrap(err, "error signing transaction")
	}

	sig, err := s.client.SubmitTransaction(*txn, solana.CommitmentConfirmed)
	if err != nil {
		return solana.Signature{}, errors.Wrap(err, "error submitting transaction")
	}

	return sig, nil
}
