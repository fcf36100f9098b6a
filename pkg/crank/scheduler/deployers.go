package scheduler

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/evore-labs/evore-crank/pkg/solana"
	"github.com/evore-labs/evore-crank/pkg/solana/evore"
)

// ManagedDeployer pairs a deployer account with its on-chain address.
type ManagedDeployer struct {
	Address ed25519.PublicKey
	Account evore.DeployerAccount
}

// FindManagedDeployers scans for every deployer that delegates its deploys
// to the given authority. Undecodable accounts are logged and dropped from
// the result rather than failing the scan.
func FindManagedDeployers(client solana.Client, deployAuthority ed25519.PublicKey) ([]ManagedDeployer, error) {
	log := logrus.StandardLogger().WithField("method", "FindManagedDeployers")

	accounts, _, err := client.GetProgramAccounts(
		evore.PROGRAM_ID,
		solana.CommitmentConfirmed,
		solana.DataSizeFilter(evore.DeployerAccountSize),
		solana.MemcmpFilter(0, evore.DeployerAccountDiscriminator),
		solana.MemcmpFilter(evore.DeployerAccountDeployAuthorityOffset, deployAuthority),
	)
	if err != nil {
		return nil, errors.Wrap(err, "error scanning deployer accounts")
	}

	deployers := make([]ManagedDeployer, 0, len(accounts))
	for _, programAccount := range accounts {
		var deployer evore.DeployerAccount
		if err := deployer.Unmarshal(programAccount.Account.Data); err != nil {
			log.WithError(err).WithField("account", base58.Encode(programAccount.PubKey)).Warn("skipping deployer with unexpected account data")
			continue
		}

		deployers = append(deployers, ManagedDeployer{
			Address: programAccount.PubKey,
			Account: deployer,
		})
	}

	return deployers, nil
}
