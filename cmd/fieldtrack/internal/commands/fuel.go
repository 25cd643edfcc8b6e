package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/towerops/fieldtrack/internal/models"
	"github.com/towerops/fieldtrack/internal/resource"
)

type FuelCmd struct {
	List FuelListCmd `cmd:"" default:"1" help:"List fuel logs for a site"`
	Add  FuelAddCmd  `cmd:"" help:"Record a refuelling"`
}

type FuelListCmd struct {
	SiteID  string `arg:"" help:"Site ID"`
	Refresh bool   `help:"Bypass the cache and read from the backend."`
}

func (c *FuelListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	logs, err := app.Resources.FuelLogs(ctx, c.SiteID, resource.ReadOptions{Refresh: c.Refresh})
	if err != nil {
		return err
	}

	if len(logs) == 0 {
		fmt.Println("No fuel logs found.")
		return nil
	}
	for _, f := range logs {
		marker := ""
		if f.Sync == models.SyncStatusPending {
			marker = " [pending sync]"
		}
		fmt.Printf("%s  %s  %8.1f L  %10.2f%s\n", f.ID, f.FilledAt.Format(time.DateOnly), f.Liters, f.Cost, marker)
	}
	return nil
}

type FuelAddCmd struct {
	SiteID     string  `arg:"" help:"Site ID"`
	Liters     float64 `help:"Liters of fuel added." required:""`
	Cost       float64 `help:"Total cost."`
	Technician string  `help:"Technician name."`
	Notes      string  `help:"Free-form notes."`
}

func (c *FuelAddCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	res, err := app.Resources.AddFuelLog(ctx, models.FuelLog{
		SiteID:     c.SiteID,
		Liters:     c.Liters,
		Cost:       c.Cost,
		FilledAt:   time.Now(),
		Technician: c.Technician,
		Notes:      c.Notes,
	})
	if err != nil {
		return reportRejected(res.Fields, err)
	}

	reportResult(res.State, "fuel log", res.Entity.ID)
	return nil
}
