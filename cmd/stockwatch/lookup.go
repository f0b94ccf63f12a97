package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newQuoteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL [SYMBOL...]",
		Short: "Resolve one or more tickers and print the records as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := c.build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer application.Shutdown(cmd.Context())

			if len(args) == 1 {
				record, err := application.Quote(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), record)
			}

			result := application.Resolver().ResolveBatch(cmd.Context(), args)
			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.Succeeded == 0 {
				return fmt.Errorf("no symbol resolved")
			}
			return nil
		},
	}
}

func newHistoryCmd(c *cli) *cobra.Command {
	var rangeParam string

	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Print the close series for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := c.build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer application.Shutdown(cmd.Context())

			points, rng, err := application.History(cmd.Context(), args[0], rangeParam)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"symbol":         strings.ToUpper(args[0]),
				"range":          rng,
				"interval":       rng.Interval(),
				"historicalData": points,
			})
		},
	}

	cmd.Flags().StringVarP(&rangeParam, "range", "r", "1y", "lookback window (1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y or 1W, 1M, 3M, 6M)")
	return cmd
}

func newSearchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "search COMPANY NAME",
		Short: "Find the ticker for a company name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := c.build(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer application.Shutdown(cmd.Context())

			result, err := application.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", result.Symbol, result.Name)
			return nil
		},
	}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
