package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/SPD-BES-2025-3/grupo1/internal/logger"
)

func newReindexCmd() *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Re-derive index entries from the canonical store (all listings, or one with --id)",
		Long: "Queue consumption is at-most-once: a message popped by a worker that then crashes is lost.\n" +
			"reindex walks the canonical store and upserts every listing, repairing any drift.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReindex(cmd.Context(), cmd.OutOrStdout(), id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "re-sync only this listing")
	return cmd
}

func runReindex(ctx context.Context, out io.Writer, id string) error {
	a := bootstrap(ctx, envName)
	defer a.Close()

	p, err := a.newPipeline(ctx)
	if err != nil {
		return err
	}
	ctx = logpkg.ContextWithLogger(ctx, a.logger.Named("reindex"))

	if id != "" {
		if err := p.indexing.SyncOne(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "Imóvel %s sincronizado com sucesso\n", id)
		return nil
	}

	n, err := p.indexing.SyncAll(ctx)
	if err != nil {
		a.logger.Error("Re-sync stopped", zap.Int("indexed", n), zap.Error(err))
		return err
	}
	fmt.Fprintf(out, "Sincronização concluída: %d imóveis indexados\n", n)
	return nil
}
