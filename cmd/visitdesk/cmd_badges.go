package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petsitter-tools/visitdesk/internal/config"
	"github.com/petsitter-tools/visitdesk/internal/gateway"
	"github.com/petsitter-tools/visitdesk/internal/staffbadge"
)

var badgesStaffID string

func newBadgesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badges",
		Short: "Inspect and toggle staff qualification badges",
	}
	cmd.PersistentFlags().StringVar(&badgesStaffID, "staff-id", "", "Staff member to operate on (default: your own)")
	cmd.AddCommand(newBadgesListCommand())
	cmd.AddCommand(newBadgesToggleCommand())
	return cmd
}

// badgesTarget resolves the staff id for badge commands from the flag or the
// caller's configured identity.
func badgesTarget(cfg *config.Config) (string, error) {
	if badgesStaffID != "" {
		return badgesStaffID, nil
	}
	if cfg.Staff.ID == "" {
		return "", fmt.Errorf("no staff id: pass --staff-id or set staff.id in the config file")
	}
	return cfg.Staff.ID, nil
}

func newBadgesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the badges of a staff member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(".")
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			staffID, err := badgesTarget(cfg)
			if err != nil {
				return err
			}

			gw := gateway.New(gateway.Options{Endpoint: cfg.Endpoints.Gateway, Token: cfg.Token})
			badges, err := staffbadge.NewToggler(gw).Load(cmd.Context(), staffID)
			if err != nil {
				return err
			}

			for _, b := range badges {
				mark := " "
				if b.Enabled {
					mark = "x"
				}
				fmt.Printf("[%s] %-16s %s\n", mark, b.Key, b.Label)
			}
			return nil
		},
	}
}

func newBadgesToggleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <badge>",
		Short: "Flip one badge on or off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(".")
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			staffID, err := badgesTarget(cfg)
			if err != nil {
				return err
			}

			gw := gateway.New(gateway.Options{Endpoint: cfg.Endpoints.Gateway, Token: cfg.Token})
			toggler := staffbadge.NewToggler(gw)

			// Seed the local state so the toggle flips the real current value,
			// not the zero value.
			if _, err := toggler.Load(cmd.Context(), staffID); err != nil {
				return err
			}

			enabled, err := toggler.Toggle(cmd.Context(), staffID, args[0])
			if err != nil {
				return fmt.Errorf("toggle rejected, state restored: %w", err)
			}
			if enabled {
				fmt.Printf("%s is now enabled\n", args[0])
			} else {
				fmt.Printf("%s is now disabled\n", args[0])
			}
			return nil
		},
	}
}
