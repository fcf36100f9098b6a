package main

import (
	"context"
	"crypto/ed25519"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/evore-labs/evore-crank/pkg/crank/common"
	"github.com/evore-labs/evore-crank/pkg/crank/eligibility"
	"github.com/evore-labs/evore-crank/pkg/crank/registry"
	"github.com/evore-labs/evore-crank/pkg/crank/scheduler"
	"github.com/evore-labs/evore-crank/pkg/crank/submitter"
	"github.com/evore-labs/evore-crank/pkg/metrics"
	"github.com/evore-labs/evore-crank/pkg/solana"
	compute_budget "github.com/evore-labs/evore-crank/pkg/solana/computebudget"
	"github.com/evore-labs/evore-crank/pkg/solana/evore"
	"github.com/evore-labs/evore-crank/pkg/solana/system"
)

var (
	rpcEndpoint  = flag.String("rpc-endpoint", envOrDefault("CRANK_RPC_ENDPOINT", string(solana.EnvironmentProd)), "solana json rpc endpoint")
	keypairPath  = flag.String("keypair", os.Getenv("CRANK_KEYPAIR_PATH"), "path to the deploy authority keypair file")
	pollInterval = flag.Duration("poll-interval", 400*time.Millisecond, "scheduler polling interval")
	priorityFee  = flag.Uint64("priority-fee", 100_000, "priority fee in micro lamports per compute unit")
	authId       = flag.Uint64("auth-id", 0, "managed miner auth id")

	expectedBpsFee  = flag.Uint64("expected-bps-fee", 0, "expected bps fee to record on deployers")
	expectedFlatFee = flag.Uint64("expected-flat-fee", 5_000, "expected flat fee to record on deployers")
)

const (
	updateDeployerComputeUnitLimit = 100_000
	transferComputeUnitLimit       = 10_000
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	nr, err := newrelic.NewApplication(
		newrelic.ConfigAppName("evore-crank"),
		newrelic.ConfigFromEnvironment(),
		newrelic.ConfigEnabled(os.Getenv("NEW_RELIC_LICENSE_KEY") != ""),
	)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize metrics")
	}
	ctx = context.WithValue(ctx, metrics.NewRelicContextKey, nr)

	if os.Getenv("NEW_RELIC_LICENSE_KEY") != "" {
		logrus.SetFormatter(metrics.NewCustomNewRelicLogFormatter(nr, &logrus.TextFormatter{FullTimestamp: true}))
	}

	if err := run(ctx, flag.Arg(0)); err != nil && err != context.Canceled {
		logrus.WithError(err).Fatal("command failed")
	}
}

func run(ctx context.Context, command string) error {
	if *keypairPath == "" {
		return errors.New("a keypair is required, set -keypair or CRANK_KEYPAIR_PATH")
	}

	signer, err := common.NewAccountFromKeypairFile(*keypairPath)
	if err != nil {
		return err
	}

	client := solana.New(*rpcEndpoint)

	switch command {
	case "run":
		return runScheduler(ctx, client, signer)
	case "list":
		return listDeployers(ctx, client, signer)
	case "setup-tables":
		return setupTables(ctx, client, signer)
	case "set-expected-fees":
		return setExpectedFees(ctx, client, signer)
	case "deposit":
		return depositBalance(ctx, client, signer, flag.Args()[1:])
	default:
		usage()
		return errors.Errorf("unknown command %q", command)
	}
}

func runScheduler(ctx context.Context, client solana.Client, signer *common.Account) error {
	logrus.WithFields(logrus.Fields{
		"authority":     signer.PublicKey().ToBase58(),
		"poll_interval": *pollInterval,
	}).Info("starting crank")

	tableRegistry := registry.NewRegistry(client, signer, *priorityFee)

	// Best effort, a failed setup only costs batch compaction. The registry
	// retries missing tables on later setup runs.
	if err := ensureTables(ctx, tableRegistry, client, signer); err != nil {
		logrus.WithError(err).Warn("failure setting up lookup tables")
	}

	svc := scheduler.New(
		client,
		signer,
		tableRegistry,
		eligibility.NewEvaluator(client),
		submitter.NewSubmitter(client, signer, *priorityFee),
		scheduler.WithEnvConfigs(),
	)

	return svc.Start(ctx, *pollInterval)
}

func listDeployers(ctx context.Context, client solana.Client, signer *common.Account) error {
	tableRegistry := registry.NewRegistry(client, signer, *priorityFee)
	if err := tableRegistry.Load(ctx); err != nil {
		return err
	}

	deployers, err := scheduler.FindManagedDeployers(client, signer.PublicKey().ToBytes())
	if err != nil {
		return err
	}

	for _, deployer := range deployers {
		minerAuth, _, err := evore.GetManagedMinerAuthAddress(&evore.GetManagedMinerAuthAddressArgs{
			Manager: deployer.Account.ManagerKey,
			AuthId:  *authId,
		})
		if err != nil {
			return err
		}

		// The spendable balance sits on the miner auth, not the record
		balance, err := client.GetBalance(minerAuth)
		if err != nil {
			return err
		}
		_, hasTables := tableRegistry.TablesFor([]ed25519.PublicKey{minerAuth})

		fmt.Printf("%s balance=%d tables=%t %s\n", base58.Encode(deployer.Address), balance, hasTables, deployer.Account.String())
	}
	fmt.Printf("%d deployers (shared table: %t)\n", len(deployers), tableRegistry.HasShared())

	return nil
}

func setupTables(ctx context.Context, client solana.Client, signer *common.Account) error {
	tableRegistry := registry.NewRegistry(client, signer, *priorityFee)
	if err := ensureTables(ctx, tableRegistry, client, signer); err != nil {
		return err
	}

	return tableRegistry.Cleanup(ctx)
}

func ensureTables(ctx context.Context, tableRegistry *registry.Registry, client solana.Client, signer *common.Account) error {
	if err := tableRegistry.Load(ctx); err != nil {
		return err
	}

	if _, err := tableRegistry.EnsureShared(ctx); err != nil {
		return err
	}

	deployers, err := scheduler.FindManagedDeployers(client, signer.PublicKey().ToBytes())
	if err != nil {
		return err
	}

	for _, deployer := range deployers {
		if _, err := tableRegistry.EnsureMiner(ctx, deployer.Account.ManagerKey, *authId); err != nil {
			return err
		}
	}

	return nil
}

func depositBalance(ctx context.Context, client solana.Client, signer *common.Account, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: crank deposit <manager> <lamports>")
	}

	manager, err := base58.Decode(args[0])
	if err != nil || len(manager) != ed25519.PublicKeySize {
		return errors.Errorf("invalid manager address %q", args[0])
	}

	lamports, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return errors.Errorf("invalid lamport amount %q", args[1])
	}

	minerAuth, _, err := evore.GetManagedMinerAuthAddress(&evore.GetManagedMinerAuthAddressArgs{
		Manager: manager,
		AuthId:  *authId,
	})
	if err != nil {
		return err
	}

	signerKey := ed25519.PublicKey(signer.PublicKey().ToBytes())

	txn := solana.NewTransaction(
		signerKey,
		compute_budget.SetComputeUnitLimit(transferComputeUnitLimit),
		compute_budget.SetComputeUnitPrice(*priorityFee),
		system.Transfer(signerKey, minerAuth, lamports),
	)

	blockhash, err := client.GetLatestBlockhash()
	if err != nil {
		return err
	}
	txn.SetBlockhash(blockhash)

	if err := txn.Sign(ed25519.PrivateKey(signer.PrivateKey().ToBytes())); err != nil {
		return err
	}

	sig, err := client.SubmitTransaction(txn, solana.CommitmentConfirmed)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"manager":    args[0],
		"miner_auth": base58.Encode(minerAuth),
		"lamports":   lamports,
		"signature":  base58.Encode(sig[:]),
	}).Info("deposited autodeploy balance")

	return nil
}

func setExpectedFees(ctx context.Context, client solana.Client, signer *common.Account) error {
	deployers, err := scheduler.FindManagedDeployers(client, signer.PublicKey().ToBytes())
	if err != nil {
		return err
	}

	signerKey := ed25519.PublicKey(signer.PublicKey().ToBytes())

	for _, deployer := range deployers {
		if deployer.Account.ExpectedBpsFee == *expectedBpsFee && deployer.Account.ExpectedFlatFee == *expectedFlatFee {
			continue
		}

		txn := solana.NewTransaction(
			signerKey,
			compute_budget.SetComputeUnitLimit(updateDeployerComputeUnitLimit),
			compute_budget.SetComputeUnitPrice(*priorityFee),
			evore.NewUpdateDeployerInstruction(
				&evore.UpdateDeployerInstructionAccounts{
					Signer:             signerKey,
					Manager:            deployer.Account.ManagerKey,
					Deployer:           deployer.Address,
					NewDeployAuthority: signerKey,
				},
				&evore.UpdateDeployerInstructionArgs{
					BpsFee:          deployer.Account.BpsFee,
					FlatFee:         deployer.Account.FlatFee,
					ExpectedBpsFee:  *expectedBpsFee,
					ExpectedFlatFee: *expectedFlatFee,
					MaxPerRound:     deployer.Account.MaxPerRound,
				},
			),
		)

		blockhash, err := client.GetLatestBlockhash()
		if err != nil {
			return err
		}
		txn.SetBlockhash(blockhash)

		if err := txn.Sign(ed25519.PrivateKey(signer.PrivateKey().ToBytes())); err != nil {
			return err
		}

		sig, err := client.SubmitTransaction(txn, solana.CommitmentConfirmed)
		if err != nil {
			return err
		}

		if _, err := client.GetSignatureStatus(sig, solana.CommitmentConfirmed); err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"deployer":  base58.Encode(deployer.Address),
			"signature": base58.Encode(sig[:]),
		}).Info("updated expected fees")
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: crank [flags] <command>

commands:
  run                start the deploy scheduling loop
  list               list managed deployers and their balances
  setup-tables       create and extend address lookup tables, clean up stale ones
  set-expected-fees  record the fee terms this authority operates under
  deposit            fund a manager's miner auth: deposit <manager> <lamports>

flags:
`)
	flag.PrintDefaults()
}
