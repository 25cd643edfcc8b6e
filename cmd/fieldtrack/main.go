package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/towerops/fieldtrack/cmd/fieldtrack/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Login         commands.LoginCmd       `cmd:"" help:"Log in to the backend"`
		Logout        commands.LogoutCmd      `cmd:"" help:"Log out and clear the session"`
		Sites         commands.SitesCmd       `cmd:"" help:"Manage sites"`
		Fuel          commands.FuelCmd        `cmd:"" help:"Manage fuel logs"`
		Maintenance   commands.MaintenanceCmd `cmd:"" help:"Manage maintenance logs"`
		Sync          commands.SyncCmd        `cmd:"" help:"Replay queued offline operations"`
		Status        commands.StatusCmd      `cmd:"" help:"Show session and sync status"`
		ResetPassword commands.ResetCmd       `cmd:"" help:"Request a password reset email"`
		Server        string                  `help:"Server URL override."`
		Debug         bool                    `help:"Enable debug mode."`
		Version       kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Server: cli.Server, Version: version})
	cmd.FatalIfErrorf(err)
}
