package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petsitter-tools/visitdesk/internal/config"
	"github.com/petsitter-tools/visitdesk/internal/customer"
	"github.com/petsitter-tools/visitdesk/internal/gateway"
)

var customersHint string

func newCustomersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Look up customer records",
	}
	cmd.AddCommand(newCustomersSearchCommand())
	return cmd
}

func newCustomersSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "Search customers by name, ranked by an optional hint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(".")
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			gw := gateway.New(gateway.Options{Endpoint: cfg.Endpoints.Gateway, Token: cfg.Token})
			searcher := customer.NewSearcher(gw)

			cands, err := searcher.Search(cmd.Context(), args[0], customersHint)
			if err != nil {
				return err
			}
			if customersHint != "" {
				customer.Rank(cands, customersHint)
			}

			if len(cands) == 0 {
				fmt.Printf("No customer matches %q.\n", args[0])
				return nil
			}
			renderCandidates(os.Stdout, cands)
			return nil
		},
	}
	cmd.Flags().StringVar(&customersHint, "hint", "", "Rank matches by address, phone, or memo fragment")
	return cmd
}
