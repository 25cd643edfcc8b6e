package commands

import (
	"context"
	"fmt"

	"github.com/towerops/fieldtrack/internal/api"
)

type SyncCmd struct{}

func (c *SyncCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	pending := app.Resources.Pending()
	if pending == 0 {
		fmt.Println("Nothing to sync.")
		return nil
	}

	fmt.Printf("Syncing %d queued operation(s)...\n", pending)

	// Retries transient failures with the configured backoff before
	// giving up and leaving the queue intact.
	result, err := app.Drainer.DrainOnce(ctx)
	if err != nil {
		if api.KindOf(err) != "" {
			return fmt.Errorf("%s", api.UserMessage(err))
		}
		return err
	}

	fmt.Printf("Synced %d operation(s).\n", result.Success)
	return nil
}
