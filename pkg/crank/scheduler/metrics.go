package scheduler

import (
	"context"
	"time"

	"github.com/evore-labs/evore-crank/pkg/metrics"
)

const (
	tickEventName            = "CrankTick"
	deployBatchEventName     = "DeployBatchSubmitted"
	checkpointBatchEventName = "CheckpointBatchSubmitted"

	tickDurationMetricName = "Custom/crank_scheduler/tick_duration"
)

func recordTickDuration(ctx context.Context, start time.Time) {
	metrics.RecordDuration(ctx, tickDurationMetricName, time.Since(start))
}

func recordTickEvent(ctx context.Context, roundId, slotsRemaining uint64, eligible, scheduled int) {
	metrics.RecordEvent(ctx, tickEventName, map[string]interface{}{
		"round":           roundId,
		"slots_remaining": slotsRemaining,
		"eligible":        eligible,
		"scheduled":       scheduled,
	})
}

func recordBatchEvent(ctx context.Context, eventName string, roundId uint64, taskCount int, err error) {
	kvPairs := map[string]interface{}{
		"round":   roundId,
		"tasks":   taskCount,
		"success": err == nil,
	}
	if err != nil {
		kvPairs["error"] = err.Error()
	}
	metrics.RecordEvent(ctx, eventName, kvPairs)
}
