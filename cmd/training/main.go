// Command training runs the Employee Training backend.
//
// @title Employee Training API
// @version 1.0
// @description Training events for Microsoft Teams: organizers publish events, employees register, and the bot delivers cards and reminders.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "training",
		Usage: "Employee Training backend: HTTP API, bot endpoint and reminder scheduler.",
		Commands: []*cli.Command{
			serveCommand(),
			remindCommand(),
			tokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}
