package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/candlepulse/candle-pusher/candle"
	"github.com/candlepulse/candle-pusher/candle/exchange"
)

func getSymbolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symbols [exchange]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Produces the list of tradable symbols on an exchange",
		Long: `Fetches the exchange's instrument listing and prints the BASE-QUOTE
symbols that pass its tradability filter. With no argument, every
registered exchange is queried in preference order.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := getCmdLogger(cmd)
			if err != nil {
				return err
			}

			var descs []exchange.Descriptor
			if len(args) > 0 {
				desc, ok := exchange.Lookup(args[0])
				if !ok {
					return fmt.Errorf("unknown exchange: %s", args[0])
				}
				descs = []exchange.Descriptor{desc}
			} else {
				descs = exchange.ByOrder()
			}

			catalog := candle.NewSymbolCatalog(logger, 15*time.Second, nil, nil)
			for _, desc := range descs {
				symbols, err := catalog.Symbols(cmd.Context(), desc.ID)
				if err != nil {
					logger.Err(err).Str("exchange", desc.ID).Msg("symbol fetch failed")
					continue
				}
				fmt.Printf("%s (%d symbols):\n", desc.ID, len(symbols))
				for _, symbol := range symbols {
					fmt.Printf("  %s\n", symbol)
				}
			}
			return nil
		},
	}
}
