package scheduler

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/evore-labs/evore-crank/pkg/crank/async"
	"github.com/evore-labs/evore-crank/pkg/crank/common"
	"github.com/evore-labs/evore-crank/pkg/crank/eligibility"
	"github.com/evore-labs/evore-crank/pkg/crank/registry"
	"github.com/evore-labs/evore-crank/pkg/crank/submitter"
	"github.com/evore-labs/evore-crank/pkg/metrics"
	"github.com/evore-labs/evore-crank/pkg/retry"
	"github.com/evore-labs/evore-crank/pkg/solana"
	"github.com/evore-labs/evore-crank/pkg/solana/entropy"
	"github.com/evore-labs/evore-crank/pkg/solana/evore"
	"github.com/evore-labs/evore-crank/pkg/solana/ore"
)

type service struct {
	log       *logrus.Entry
	conf      *conf
	client    solana.Client
	signer    *common.Account
	registry  *registry.Registry
	evaluator *eligibility.Evaluator
	submitter *submitter.Submitter
	tracker   *RoundTracker
}

func New(
	client solana.Client,
	signer *common.Account,
	tableRegistry *registry.Registry,
	evaluator *eligibility.Evaluator,
	txSubmitter *submitter.Submitter,
	configProvider ConfigProvider,
) async.Service {
	return &service{
		log:       logrus.StandardLogger().WithField("service", "crank_scheduler"),
		conf:      configProvider(),
		client:    client,
		signer:    signer,
		registry:  tableRegistry,
		evaluator: evaluator,
		submitter: txSubmitter,
		tracker:   NewRoundTracker(),
	}
}

func (p *service) Start(serviceCtx context.Context, interval time.Duration) error {
	// Best effort, the scheduler degrades to uncompacted batches when no
	// tables are known.
	if err := p.registry.Load(serviceCtx); err != nil {
		p.log.WithError(err).Warn("failure loading lookup table registry")
	}

	err := retry.Loop(
		func() (err error) {
			time.Sleep(interval)

			nr := serviceCtx.Value(metrics.NewRelicContextKey).(*newrelic.Application)
			m := nr.StartTransaction("async__crank_scheduler__tick")
			defer m.End()
			tracedCtx := newrelic.NewContext(serviceCtx, m)

			select {
			case <-serviceCtx.Done():
				return serviceCtx.Err()
			default:
			}

			p.ensureTables(tracedCtx)

			// A failed tick never kills the loop, the next interval gets a
			// fresh read of chain state.
			if err := p.tick(tracedCtx); err != nil {
				p.log.WithError(err).Warn("crank tick failed")
			}
			return nil
		},
		retry.NonRetriableErrors(context.Canceled),
	)

	return err
}

// ensureTables re-resolves the shared lookup table until one is known. A
// transient RPC failure at startup must not pin the scheduler to expanded
// batches for its whole lifetime.
func (p *service) ensureTables(ctx context.Context) {
	if p.registry.HasShared() {
		return
	}

	log := p.log.WithField("method", "ensureTables")

	if err := p.registry.Load(ctx); err != nil {
		log.WithError(err).Warn("failure loading lookup table registry")
		return
	}

	if !p.registry.HasShared() {
		if _, err := p.registry.EnsureShared(ctx); err != nil {
			log.WithError(err).Warn("failure ensuring shared lookup table")
		}
	}
}

func (p *service) tick(ctx context.Context) error {
	defer recordTickDuration(ctx, time.Now())

	log := p.log.WithField("method", "tick")

	boardAddress, _, err := ore.GetBoardAddress()
	if err != nil {
		return errors.Wrap(err, "error deriving board address")
	}

	boardInfo, err := p.client.GetAccountInfo(boardAddress, solana.CommitmentConfirmed)
	if err != nil {
		return errors.Wrap(err, "error getting board account")
	}

	var board ore.BoardAccount
	if err := board.Unmarshal(boardInfo.Data); err != nil {
		return errors.Wrap(err, "error unmarshalling board account")
	}

	if !board.HasActiveRound() {
		return nil
	}

	if p.tracker.Observe(board.RoundId) {
		log.WithField("round", board.RoundId).Info("round rolled over")
	}

	slot, err := p.client.GetSlot(solana.CommitmentConfirmed)
	if err != nil {
		return errors.Wrap(err, "error getting slot")
	}

	if slot >= board.EndSlot {
		return nil
	}
	slotsRemaining := board.EndSlot - slot

	if !inDeployWindow(slotsRemaining, p.conf.minSlotsToDeploy.Get(ctx), p.conf.deploySlotsBeforeEnd.Get(ctx)) {
		return nil
	}

	deployTasks, checkpointTasks, err := p.collectTasks(ctx, &board)
	if err != nil {
		return err
	}

	round, err := p.roundAccounts(boardAddress, &board)
	if err != nil {
		return err
	}

	scheduled := p.submitDeployBatches(ctx, round, deployTasks)
	scheduled += p.submitCheckpointBatches(ctx, boardAddress, board.RoundId, checkpointTasks)

	recordTickEvent(ctx, board.RoundId, slotsRemaining, len(deployTasks)+len(checkpointTasks), scheduled)

	return nil
}

// inDeployWindow reports whether a deploy submitted now would land late
// enough for the round's randomness to be near final yet early enough to
// confirm before the round closes. Both bounds are inclusive.
func inDeployWindow(slotsRemaining, floor, ceiling uint64) bool {
	return slotsRemaining >= floor && slotsRemaining <= ceiling
}

// collectTasks runs every managed deployer through the eligibility
// evaluator and splits the results into deploys and checkpoint-only work.
func (p *service) collectTasks(ctx context.Context, board *ore.BoardAccount) ([]submitter.DeployTask, []submitter.CheckpointTask, error) {
	log := p.log.WithField("method", "collectTasks")

	deployers, err := FindManagedDeployers(p.client, p.signer.PublicKey().ToBytes())
	if err != nil {
		return nil, nil, err
	}

	authId := p.conf.authId.Get(ctx)
	params := eligibility.Params{
		AmountPerSquare: p.conf.amountPerSquare.Get(ctx),
		SquaresMask:     uint32(p.conf.squaresMask.Get(ctx)),
	}

	var deployTasks []submitter.DeployTask
	var checkpointTasks []submitter.CheckpointTask
	for _, deployer := range deployers {
		minerAuth, minerAuthBump, err := evore.GetManagedMinerAuthAddress(&evore.GetManagedMinerAuthAddressArgs{
			Manager: deployer.Account.ManagerKey,
			AuthId:  authId,
		})
		if err != nil {
			log.WithError(err).Warn("failure deriving managed miner auth address")
			continue
		}

		if p.tracker.IsScheduled(minerAuth, board.RoundId) {
			continue
		}

		assessment, err := p.evaluator.Evaluate(ctx, deployer.Address, &deployer.Account, authId, board.RoundId, params)
		if err != nil {
			return nil, nil, err
		}

		if assessment.DeployedInRound {
			p.tracker.MarkScheduled(minerAuth, board.RoundId)
			continue
		}

		oreMiner, _, err := ore.GetMinerAddress(&ore.GetMinerAddressArgs{
			Authority: minerAuth,
		})
		if err != nil {
			log.WithError(err).Warn("failure deriving miner address")
			continue
		}

		switch {
		case assessment.Eligible:
			automation, _, err := ore.GetAutomationAddress(&ore.GetAutomationAddressArgs{
				Authority: minerAuth,
			})
			if err != nil {
				log.WithError(err).Warn("failure deriving automation address")
				continue
			}

			deployTasks = append(deployTasks, submitter.DeployTask{
				Manager:         deployer.Account.ManagerKey,
				Deployer:        deployer.Address,
				MinerAuth:       minerAuth,
				OreMiner:        oreMiner,
				Automation:      automation,
				AuthId:          authId,
				AmountPerSquare: params.AmountPerSquare,
				SquaresMask:     params.SquaresMask,
				CheckpointRound: assessment.CheckpointRound,
				RecycleSol:      assessment.RecycleSol,
			})
		case assessment.CheckpointRound != nil:
			// Underfunded for a deploy, but the lagging round still has to
			// be settled, and any winnings recycled may re-fund it.
			checkpointTasks = append(checkpointTasks, submitter.CheckpointTask{
				Manager:       deployer.Account.ManagerKey,
				Deployer:      deployer.Address,
				MinerAuth:     minerAuth,
				MinerAuthBump: minerAuthBump,
				OreMiner:      oreMiner,
				AuthId:        authId,
				Round:         *assessment.CheckpointRound,
				RecycleSol:    assessment.RecycleSol,
			})
		}
	}

	return deployTasks, checkpointTasks, nil
}

func (p *service) roundAccounts(boardAddress ed25519.PublicKey, board *ore.BoardAccount) (submitter.RoundAccounts, error) {
	configAddress, _, err := ore.GetConfigAddress()
	if err != nil {
		return submitter.RoundAccounts{}, errors.Wrap(err, "error deriving config address")
	}

	roundAddress, _, err := ore.GetRoundAddress(&ore.GetRoundAddressArgs{
		Id: board.RoundId,
	})
	if err != nil {
		return submitter.RoundAccounts{}, errors.Wrap(err, "error deriving round address")
	}

	entropyVar, _, err := entropy.GetVarAddress(&entropy.GetVarAddressArgs{
		Authority: boardAddress,
		Id:        0,
	})
	if err != nil {
		return submitter.RoundAccounts{}, errors.Wrap(err, "error deriving entropy var address")
	}

	return submitter.RoundAccounts{
		Board:      boardAddress,
		Config:     configAddress,
		EntropyVar: entropyVar,
		Round:      roundAddress,
		RoundId:    board.RoundId,
	}, nil
}

// submitDeployBatches partitions deploy tasks into size-bounded chunks and
// submits them sequentially. Tasks in an accepted batch are marked
// scheduled immediately; a failed batch stays unmarked so a later tick in
// the same round can retry while the window is open.
func (p *service) submitDeployBatches(ctx context.Context, round submitter.RoundAccounts, tasks []submitter.DeployTask) int {
	log := p.log.WithField("method", "submitDeployBatches")

	batchSize := int(p.conf.maxBatchSizeNoLookupTable.Get(ctx))
	if p.registry.HasShared() {
		batchSize = int(p.conf.maxBatchSize.Get(ctx))
	}

	var scheduled int
	for len(tasks) > 0 {
		chunk := tasks[:min(batchSize, len(tasks))]

		minerAuths := make([]ed25519.PublicKey, len(chunk))
		for i, task := range chunk {
			minerAuths[i] = task.MinerAuth
		}

		tables, ok := p.registry.TablesFor(minerAuths)
		if !ok {
			// Some miner lacks a table, so this chunk goes out expanded
			// and must respect the smaller limit.
			tables = nil
			chunk = chunk[:min(int(p.conf.maxBatchSizeNoLookupTable.Get(ctx)), len(chunk))]
		}
		tasks = tasks[len(chunk):]

		_, err := p.submitter.SubmitDeployBatch(ctx, round, chunk, tables)
		recordBatchEvent(ctx, deployBatchEventName, round.RoundId, len(chunk), err)
		if err != nil {
			log.WithError(err).Warn("failure submitting deploy batch")
			continue
		}

		for _, task := range chunk {
			p.tracker.MarkScheduled(task.MinerAuth, round.RoundId)
		}
		scheduled += len(chunk)
	}

	return scheduled
}

func (p *service) submitCheckpointBatches(ctx context.Context, boardAddress ed25519.PublicKey, roundId uint64, tasks []submitter.CheckpointTask) int {
	log := p.log.WithField("method", "submitCheckpointBatches")

	batchSize := int(p.conf.maxBatchSizeNoLookupTable.Get(ctx))

	var scheduled int
	for len(tasks) > 0 {
		chunk := tasks[:min(batchSize, len(tasks))]
		tasks = tasks[len(chunk):]

		_, err := p.submitter.SubmitCheckpointBatch(ctx, boardAddress, chunk)
		recordBatchEvent(ctx, checkpointBatchEventName, roundId, len(chunk), err)
		if err != nil {
			log.WithError(err).Warn("failure submitting checkpoint batch")
			continue
		}

		for _, task := range chunk {
			p.tracker.MarkScheduled(task.MinerAuth, roundId)
		}
		scheduled += len(chunk)
	}

	return scheduled
}
