package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/crosslock-io/htlc-monitor/internal/config"
	"github.com/crosslock-io/htlc-monitor/internal/observability/tracing"
	"github.com/crosslock-io/htlc-monitor/internal/services"
	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// ReprocessCmd replays a single unit through the normal decode and dispatch
// path, for manually recovering from a gap or a bad deploy.
// Usage: ./htlc-monitor reprocess --chain evm --unit 12345 --config config.yml
func ReprocessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Re-fetch and re-dispatch the events of a single block",
		Args:  cobra.ExactArgs(0),
		RunE:  reprocess,
	}

	cmd.Flags().String("chain", "", "Chain to reprocess on: evm or cosmos")
	cmd.Flags().Uint64("unit", 0, "Block height to reprocess")

	return cmd
}

func reprocess(cmd *cobra.Command, _ []string) error {
	ctx := tracing.InjectTraceID(cmd.Context())

	chainName, err := cmd.Flags().GetString("chain")
	if err != nil {
		return err
	}
	unit, err := cmd.Flags().GetUint64("unit")
	if err != nil {
		return err
	}

	chain := types.Chain(chainName)
	if chain != types.ChainEVM && chain != types.ChainCosmos {
		return fmt.Errorf("unknown chain %q, expected evm or cosmos", chainName)
	}

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}

	service, err := services.NewService(cfg)
	if err != nil {
		return err
	}

	if err := service.StartEgress(ctx); err != nil {
		return err
	}
	defer service.StopEgress()

	if err := service.ReprocessUnit(ctx, chain, unit); err != nil {
		return err
	}

	log.Ctx(ctx).Info().
		Stringer("chain", chain).
		Uint64("unit", unit).
		Msg("reprocessed unit")
	return nil
}
