package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SPD-BES-2025-3/grupo1/internal/domain/event"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and maintain the lifecycle queues",
	}
	cmd.AddCommand(newQueueDepthCmd(), newQueueClearCmd(), newQueuePublishCmd())
	return cmd
}

func newQueueDepthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "depth [kind...]",
		Short: "Print pending messages per queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a := bootstrap(ctx, envName)
			defer a.Close()

			b := a.newBroker()
			for _, k := range kinds {
				n, err := b.QueueDepth(ctx, k.Queue())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", k.Queue(), n)
			}
			return nil
		},
	}
}

func newQueueClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [kind...]",
		Short: "Drop every pending message of the given queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseKinds(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a := bootstrap(ctx, envName)
			defer a.Close()

			b := a.newBroker()
			for _, k := range kinds {
				if err := b.Clear(ctx, k.Queue()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s cleared\n", k.Queue())
			}
			return nil
		},
	}
}

func newQueuePublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish KIND ID",
		Short: "Publish a lifecycle event by hand, e.g. after editing the canonical store directly",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := event.ParseKind(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a := bootstrap(ctx, envName)
			defer a.Close()

			if !a.newBroker().Publish(ctx, kind, args[1], map[string]any{"source": "cli"}) {
				return fmt.Errorf("publish %s %s failed", kind, args[1])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s for %s\n", kind, args[1])
			return nil
		},
	}
}
