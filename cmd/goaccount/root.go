package main

import (
	"github.com/spf13/cobra"
)

var configFile string

// NewRootCmd creates the goaccount command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goaccount",
		Short: "goaccount - account registration, login and password reset service",
		Long: `goaccount serves registration, email verification, login with
remember-me, autologin, logout and password reset over HTTP, backed by
PostgreSQL and Redis.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")
	registerFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewPurgeCmd())

	return cmd
}
