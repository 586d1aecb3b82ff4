// Command docqa answers questions from uploaded documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/app"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetSettingsLoader(func(home string) (driving.SettingsService, error) {
		return app.SettingsService(home)
	})
	cli.SetServicesLoader(loadServices)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func loadServices(ctx context.Context, home string) (*cli.Services, error) {
	a, err := app.Open(ctx, app.Options{Home: home})
	if err != nil {
		return nil, err
	}
	return &cli.Services{
		Identity:       a.Identity,
		KnowledgeBases: a.KnowledgeBases,
		Collections:    a.Collections,
		NewSession: func(id domain.Identity) driving.SessionManager {
			return a.NewSession(id)
		},
		Session:  a.Session,
		InboxDir: a.Paths.Inbox,
		Warnings: a.Warnings,
		Close:    a.Close,
	}, nil
}
