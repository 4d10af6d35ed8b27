package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"employeetraining/config"
	"employeetraining/internal/adapters/botframework"
	"employeetraining/internal/adapters/email"
	"employeetraining/internal/cards"
	"employeetraining/internal/domain"
	"employeetraining/internal/repository/postgres"
	"employeetraining/internal/services"

	_ "github.com/lib/pq"
)

// app holds the wired services shared by the commands.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sql.DB

	events     domain.EventService
	attendees  domain.AttendeeService
	categories domain.CategoryService
	bot        domain.BotService
	reminders  domain.ReminderService
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if cfg.Bot.AppID == "" {
		logger.Warn("BOT_APP_ID is empty, bot activities are rejected and Bot Connector calls are unauthenticated")
	}
	botClient := botframework.NewClient(ctx, botframework.Config{
		AppID:               cfg.Bot.AppID,
		AppPassword:         cfg.Bot.AppPassword,
		TokenURL:            cfg.Bot.TokenURL,
		Scope:               cfg.Bot.Scope,
		AllowedServiceHosts: cfg.Bot.AllowedServiceHosts,
	}, &http.Client{Timeout: 30 * time.Second})

	messenger, err := newMessenger(cfg, botClient, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	eventRepo := postgres.NewEventRepository(db)
	searcher := postgres.NewEventSearch(db)
	userRepo := postgres.NewUserConfigurationRepository(db)
	teamRepo := postgres.NewTeamConfigurationRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)

	renderer := cards.NewRenderer(cards.Options{
		ManifestID:    cfg.ManifestID,
		AppBaseURL:    cfg.AppBaseURL,
		DefaultLocale: cfg.DefaultLocale,
	})
	notifier := services.NewNotificationService(messenger, teamRepo, logger)
	categories := services.NewCategoryService(categoryRepo, cfg.CategoryCacheTTL, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		events:     services.NewEventService(eventRepo, searcher, categories, userRepo, renderer, notifier, logger, cfg.DefaultLocale, cfg.RequestTimeout),
		attendees:  services.NewAttendeeService(eventRepo, searcher, categories, userRepo, renderer, notifier, logger, cfg.DefaultLocale),
		categories: categories,
		bot:        services.NewBotService(userRepo, teamRepo, botClient, logger),
		reminders: services.NewReminderService(searcher, categories, userRepo, renderer, notifier, services.ReminderConfig{
			Interval:  cfg.ReminderInterval,
			WeeklyDay: cfg.ReminderWeeklyDay,
			Locale:    cfg.DefaultLocale,
		}, logger),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// newMessenger picks the card transport. Teams cards go through the Bot Connector,
// email renders them into mail and noop only logs them.
func newMessenger(cfg *config.Config, botClient *botframework.Client, logger *slog.Logger) (domain.Messenger, error) {
	switch cfg.NotifierProvider {
	case "teams":
		return botClient, nil
	case "noop":
		return email.NewNoopMessenger(logger), nil
	}

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.InsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create mailer: %w", err)
	}
	return email.NewMessenger(mailer), nil
}
