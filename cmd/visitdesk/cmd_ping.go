package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petsitter-tools/visitdesk/internal/config"
	"github.com/petsitter-tools/visitdesk/internal/gateway"
)

func newPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check connectivity and credentials against the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(".")
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			gw := gateway.New(gateway.Options{Endpoint: cfg.Endpoints.Gateway, Token: cfg.Token})
			if _, err := gw.Call(cmd.Context(), "ping", nil); err != nil {
				return err
			}
			fmt.Println("gateway reachable, credentials accepted")
			return nil
		},
	}
}
