package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/towerops/fieldtrack/internal/api"
)

type LoginCmd struct {
	Email    string `arg:"" help:"Account email"`
	Password string `help:"Password (prompted when omitted)"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	password := l.Password
	if password == "" {
		fmt.Print("Password: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	user, err := app.Session.Login(ctx, l.Email, password)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
			for _, f := range apiErr.Fields {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", f.Field, f.Message)
			}
		}
		return fmt.Errorf("%s", api.UserMessage(err))
	}

	fmt.Printf("Logged in as %s (%s).\n", user.Email, user.Role)
	return nil
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	app.Session.Logout(ctx, false, "")
	return nil
}

type ResetCmd struct {
	Email string `arg:"" help:"Account email"`
}

func (r *ResetCmd) Run(ctx context.Context, globals *Globals) error {
	app, err := newApp(globals)
	if err != nil {
		return err
	}

	if err := app.Client.ResetPassword(ctx, r.Email); err != nil {
		return fmt.Errorf("%s", api.UserMessage(err))
	}

	fmt.Println("If the address is registered, a reset email is on its way.")
	return nil
}
