package scheduler

import (
	"github.com/evore-labs/evore-crank/pkg/config"
	"github.com/evore-labs/evore-crank/pkg/config/env"
)

const (
	envConfigPrefix = "CRANK_SERVICE_"

	authIdConfigEnvName = envConfigPrefix + "AUTH_ID"
	defaultAuthId       = 0

	amountPerSquareConfigEnvName = envConfigPrefix + "AMOUNT_PER_SQUARE"
	defaultAmountPerSquare       = 2_800

	squaresMaskConfigEnvName = envConfigPrefix + "SQUARES_MASK"
	defaultSquaresMask       = 0x1FFFFFF // all 25 squares

	deploySlotsBeforeEndConfigEnvName = envConfigPrefix + "DEPLOY_SLOTS_BEFORE_END"
	defaultDeploySlotsBeforeEnd       = 150

	minSlotsToDeployConfigEnvName = envConfigPrefix + "MIN_SLOTS_TO_DEPLOY"
	defaultMinSlotsToDeploy       = 10

	maxBatchSizeConfigEnvName = envConfigPrefix + "MAX_BATCH_SIZE"
	defaultMaxBatchSize       = 7

	maxBatchSizeNoLookupTableConfigEnvName = envConfigPrefix + "MAX_BATCH_SIZE_NO_LOOKUP_TABLE"
	defaultMaxBatchSizeNoLookupTable       = 2
)

type conf struct {
	authId                    config.Uint64
	amountPerSquare           config.Uint64
	squaresMask               config.Uint64
	deploySlotsBeforeEnd      config.Uint64
	minSlotsToDeploy          config.Uint64
	maxBatchSize              config.Uint64
	maxBatchSizeNoLookupTable config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			authId:                    env.NewUint64Config(authIdConfigEnvName, defaultAuthId),
			amountPerSquare:           env.NewUint64Config(amountPerSquareConfigEnvName, defaultAmountPerSquare),
			squaresMask:               env.NewUint64Config(squaresMaskConfigEnvName, defaultSquaresMask),
			deploySlotsBeforeEnd:      env.NewUint64Config(deploySlotsBeforeEndConfigEnvName, defaultDeploySlotsBeforeEnd),
			minSlotsToDeploy:          env.NewUint64Config(minSlotsToDeployConfigEnvName, defaultMinSlotsToDeploy),
			maxBatchSize:              env.NewUint64Config(maxBatchSizeConfigEnvName, defaultMaxBatchSize),
			maxBatchSizeNoLookupTable: env.NewUint64Config(maxBatchSizeNoLookupTableConfigEnvName, defaultMaxBatchSizeNoLookupTable),
		}
	}
}
