package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain/event"
	"github.com/SPD-BES-2025-3/grupo1/internal/worker"
)

func newWorkerCmd() *cobra.Command {
	var instances int

	cmd := &cobra.Command{
		Use:       "worker [created|updated|deleted|all]",
		Short:     "Consume lifecycle queues and reconcile the vector index",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"created", "updated", "deleted", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}
			return runWorkers(cmd.Context(), kinds, instances)
		},
	}
	cmd.Flags().IntVar(&instances, "instances", 0, "workers per queue (default workers.instances_per_queue)")
	return cmd
}

// parseKinds maps CLI arguments to event kinds; none or "all" means every kind.
func parseKinds(args []string) ([]event.Kind, error) {
	if len(args) == 0 || (len(args) == 1 && args[0] == "all") {
		return event.Kinds(), nil
	}
	kinds := make([]event.Kind, 0, len(args))
	for _, a := range args {
		k, err := event.ParseKind(a)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func runWorkers(ctx context.Context, kinds []event.Kind, instances int) error {
	a := bootstrap(ctx, envName)
	defer a.Close()

	if instances <= 0 {
		instances = a.cfg.Workers.InstancesPerQueue
	}

	workers := make([]*worker.Worker, 0, len(kinds)*instances)
	for _, k := range kinds {
		for i := range instances {
			// Every instance owns its provider and adapters.
			p, err := a.newPipeline(ctx)
			if err != nil {
				return fmt.Errorf("build pipeline for %s #%d: %w", k.Queue(), i, err)
			}
			workers = append(workers, worker.New(worker.Config{
				Kind:        k,
				Instance:    i,
				PollTimeout: a.cfg.Broker.PollTimeout(),
				Backoff:     a.cfg.Broker.Backoff(),
			}, a.newBroker(), p.indexing, p.records, a.logger.Named("worker")))
		}
	}

	a.logger.Info("Starting workers",
		zap.Int("queues", len(kinds)),
		zap.Int("instances_per_queue", instances),
	)
	if err := worker.RunPool(ctx, workers...); err != nil {
		return fmt.Errorf("worker pool: %w", err)
	}
	a.logger.Info("Workers stopped")
	return nil
}
