package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/towerops/fieldtrack/internal/models"
	"github.com/towerops/fieldtrack/internal/resource"
)

type MaintenanceCmd struct {
	List MaintenanceListCmd `cmd:"" default:"1" help:"List maintenance logs for a site"`
	Add  MaintenanceAddCmd  `cmd:"" help:"Record maintenance work"`
}

type MaintenanceListCmd struct {
	SiteID  string `arg:"" help:"Site ID"`
	Refresh bool   `help:"Bypass the cache and read from the backend."`
}

func (c *MaintenanceListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	logs, err := app.Resources.MaintenanceLogs(ctx, c.SiteID, resource.ReadOptions{Refresh: c.Refresh})
	if err != nil {
		return err
	}

	if len(logs) == 0 {
		fmt.Println("No maintenance logs found.")
		return nil
	}
	for _, m := range logs {
		marker := ""
		if m.Sync == models.SyncStatusPending {
			marker = " [pending sync]"
		}
		fmt.Printf("%s  %s  %-12s %s%s\n", m.ID, m.PerformedAt.Format(time.DateOnly), m.Category, m.Description, marker)
	}
	return nil
}

type MaintenanceAddCmd struct {
	SiteID      string `arg:"" help:"Site ID"`
	Category    string `help:"Work category." enum:"preventive,corrective,inspection,upgrade" required:""`
	Description string `help:"What was done." required:""`
	Technician  string `help:"Technician name."`
}

func (c *MaintenanceAddCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	res, err := app.Resources.AddMaintenanceLog(ctx, models.MaintenanceLog{
		SiteID:      c.SiteID,
		Category:    c.Category,
		Description: c.Description,
		PerformedAt: time.Now(),
		Technician:  c.Technician,
	})
	if err != nil {
		return reportRejected(res.Fields, err)
	}

	reportResult(res.State, "maintenance log", res.Entity.ID)
	return nil
}
