package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/common-nighthawk/go-figure"
)

type StatusCmd struct {
	Activities int `help:"Number of recent activity entries to show." default:"5"`
}

func (c *StatusCmd) Run(ctx context.Context, globals *Globals) error {
	figure.NewFigure("fieldtrack", "", true).Print()
	fmt.Printf("version %s\n\n", globals.Version)

	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if user, ok := app.Session.CurrentUser(); ok && app.Session.IsAuthenticated() {
		fmt.Printf("Signed in as %s (%s).\n", user.Email, user.Role)
		fmt.Printf("Session expires %s.\n", app.Session.ExpiresAt().Format(time.RFC1123))
	} else {
		fmt.Println("Not signed in.")
	}

	fmt.Printf("Server: %s\n", app.Config.ServerURL)
	fmt.Printf("Pending sync operations: %d\n", app.Resources.Pending())

	entries := app.Audit.RecentActivities(c.Activities)
	if len(entries) > 0 {
		fmt.Println("\nRecent activity:")
		for _, e := range entries {
			fmt.Printf("  %s  %s %s", e.At.Format(time.DateTime), e.Event, e.Details["entity"])
			if id := e.Details["id"]; id != "" {
				fmt.Printf(" (%s)", id)
			}
			fmt.Println()
		}
	}

	return nil
}
