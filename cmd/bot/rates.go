package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"funding_bot/internal/helper"
	"funding_bot/internal/models"
	"funding_bot/internal/modules/binance_client/service"
	"funding_bot/internal/modules/config"
	"funding_bot/internal/strategy"
)

func newRatesCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Самые отрицательные ставки финансирования прямо сейчас",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return errors.Wrap(err, "load config")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			cl := service.NewClient(cfg, nil, zap.NewNop())
			snap, err := cl.GetFundingSnapshot(ctx)
			if err != nil {
				return errors.Wrap(err, "funding snapshot")
			}
			renderRates(cmd.OutOrStdout(), snap, top, cfg.Strategy, time.Now())
			return nil
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", 10, "сколько строк показать")
	return cmd
}

// renderRates печатает n самых отрицательных ставок.
func renderRates(w io.Writer, snap []models.FundingEntry, n int, s config.Strategy, now time.Time) {
	rows := make([]models.FundingEntry, len(snap))
	copy(rows, snap)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].FundingRate < rows[j].FundingRate })
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tRATE %\tMARK\tFUNDING IN\tWINDOW")
	for _, e := range rows {
		ms := e.NextFundingTime.Sub(now).Milliseconds()
		win := ""
		if strategy.InEntryWindow(s.EntryPolicy, ms, s.EntryWindow) {
			win = "*"
		}
		fmt.Fprintf(tw, "%s\t%.4f\t%g\t%s\t%s\n",
			e.Symbol, e.FundingRate*100, e.MarkPrice, helper.FormatCountdown(ms), win)
	}
	_ = tw.Flush()
}
