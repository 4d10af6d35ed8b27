package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "employeetraining/docs"

	"employeetraining/config"
	"employeetraining/internal/adapters/auth"
	delivery "employeetraining/internal/delivery/http"
	"employeetraining/internal/delivery/http/controllers"
	"employeetraining/internal/domain"

	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the HTTP API and run the reminder scheduler until interrupted.",
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			verifier := auth.NewJWTVerifier(a.cfg.JWTSecret, a.cfg.JWTIssuer, a.cfg.JWTAudience)
			botVerifier := auth.NewBotFrameworkVerifier(auth.BotFrameworkConfig{
				AppID:             a.cfg.Bot.AppID,
				OpenIDMetadataURL: a.cfg.Bot.OpenIDMetadataURL,
			})
			mux := delivery.NewRouter(delivery.Controllers{
				Events:     controllers.NewEventController(a.logger, a.events),
				Attendees:  controllers.NewAttendeeController(a.logger, a.attendees),
				Categories: controllers.NewCategoryController(a.logger, a.categories),
				Bot:        controllers.NewBotController(a.logger, a.bot),
				Health:     controllers.NewHealthController(a.db),
			}, verifier, botVerifier, a.logger)

			srv := &http.Server{
				Addr:              ":" + a.cfg.Port,
				Handler:           delivery.NewHandler(mux, a.cfg.AllowedOrigins, a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			var wg sync.WaitGroup
			if a.cfg.ReminderEnabled {
				wg.Add(1)
				go func() {
					defer wg.Done()
					a.reminders.Start(ctx)
				}()
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server listening", "addr", srv.Addr, "env", a.cfg.Environment)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					stop()
					wg.Wait()
					return fmt.Errorf("listen: %w", err)
				}
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("shutdown failed", "err", err)
			}
			wg.Wait()
			return nil
		},
	}
}

func remindCommand() *cli.Command {
	return &cli.Command{
		Name:  "remind",
		Usage: "Run one reminder cycle now and print the dispatch report.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "weekly", Usage: "Send week-before reminders regardless of the weekday."},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			now := time.Now()
			if c.Bool("weekly") {
				report, err := a.reminders.SendReminders(ctx, now, domain.ReminderWeekly)
				printReport(c, domain.ReminderWeekly, report)
				return err
			}
			result, err := a.reminders.RunCycle(ctx, now)
			for _, kind := range []domain.ReminderKind{domain.ReminderDaily, domain.ReminderWeekly} {
				if report, ok := result.Reports[kind]; ok {
					printReport(c, kind, report)
				}
			}
			return err
		},
	}
}

func printReport(c *cli.Context, kind domain.ReminderKind, report domain.DispatchReport) {
	w := c.App.Writer
	fmt.Fprintf(w, "%s reminders: %d sent, %d failed\n", kind, len(report.Sent), len(report.Failed))
	for _, f := range report.Failed {
		fmt.Fprintf(w, "  %s: %v\n", f.UserObjectID, f.Err)
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Issue a signed API token for a user object id (development only).",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Required: true, Usage: "Directory object id of the caller."},
			&cli.StringFlag{Name: "email", Usage: "Email claim."},
			&cli.DurationFlag{Name: "ttl", Value: time.Hour, Usage: "Token lifetime."},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Environment == "production" {
				return errors.New("token issuing is disabled in production")
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not set")
			}
			issuer := auth.NewJWTIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
			token, err := issuer.Issue(c.String("user"), c.String("email"), nil, c.Duration("ttl"))
			if err != nil {
				return fmt.Errorf("issue token: %w", err)
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}
}
