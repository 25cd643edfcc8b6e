package commands

import (
	"context"
	"fmt"

	"github.com/towerops/fieldtrack/internal/api"
	"github.com/towerops/fieldtrack/internal/models"
	"github.com/towerops/fieldtrack/internal/resource"
)

type SitesCmd struct {
	List   SitesListCmd   `cmd:"" default:"1" help:"List sites"`
	Get    SitesGetCmd    `cmd:"" help:"Show one site"`
	Create SitesCreateCmd `cmd:"" help:"Create a site"`
	Update SitesUpdateCmd `cmd:"" help:"Update a site"`
}

type SitesListCmd struct {
	Page    int    `help:"Result page." default:"1"`
	Region  string `help:"Filter by region."`
	Status  string `help:"Filter by status."`
	Refresh bool   `help:"Bypass the cache and read from the backend."`
}

func (c *SitesListCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	sites, err := app.Resources.Sites(ctx, resource.ReadOptions{
		Refresh: c.Refresh,
		Params:  api.ListParams{Page: c.Page, Region: c.Region, Status: c.Status},
	})
	if err != nil {
		return err
	}

	if len(sites) == 0 {
		fmt.Println("No sites found.")
		return nil
	}
	for _, s := range sites {
		printSite(s)
	}
	return nil
}

type SitesGetCmd struct {
	ID      string `arg:"" help:"Site ID"`
	Refresh bool   `help:"Bypass the cache and read from the backend."`
}

func (c *SitesGetCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	site, err := app.Resources.Site(ctx, c.ID, resource.ReadOptions{Refresh: c.Refresh})
	if err != nil {
		return err
	}

	printSite(*site)
	if site.Notes != "" {
		fmt.Printf("  notes: %s\n", site.Notes)
	}
	return nil
}

type SitesCreateCmd struct {
	Name      string  `help:"Site name." required:""`
	Region    string  `help:"Site region." required:""`
	Status    string  `help:"Site status." default:"active"`
	Latitude  float64 `help:"Latitude in decimal degrees."`
	Longitude float64 `help:"Longitude in decimal degrees."`
	Notes     string  `help:"Free-form notes."`
}

func (c *SitesCreateCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	res, err := app.Resources.CreateSite(ctx, models.Site{
		Name:      c.Name,
		Region:    c.Region,
		Status:    c.Status,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Notes:     c.Notes,
	})
	if err != nil {
		return reportRejected(res.Fields, err)
	}

	reportResult(res.State, "site", res.Entity.ID)
	return nil
}

type SitesUpdateCmd struct {
	ID        string  `arg:"" help:"Site ID"`
	Name      string  `help:"Site name." required:""`
	Region    string  `help:"Site region." required:""`
	Status    string  `help:"Site status." default:"active"`
	Latitude  float64 `help:"Latitude in decimal degrees."`
	Longitude float64 `help:"Longitude in decimal degrees."`
	Notes     string  `help:"Free-form notes."`
}

func (c *SitesUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	res, err := app.Resources.UpdateSite(ctx, models.Site{
		ID:        c.ID,
		Name:      c.Name,
		Region:    c.Region,
		Status:    c.Status,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Notes:     c.Notes,
	})
	if err != nil {
		return reportRejected(res.Fields, err)
	}

	reportResult(res.State, "site", res.Entity.ID)
	return nil
}

func printSite(s models.Site) {
	marker := ""
	if s.Sync == models.SyncStatusPending {
		marker = " [pending sync]"
	}
	fmt.Printf("%s  %-24s %-12s %s%s\n", s.ID, s.Name, s.Region, s.Status, marker)
}
