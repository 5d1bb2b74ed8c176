package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"tanda_circles/internal/app"
	"tanda_circles/internal/domain/circle"
	"tanda_circles/internal/domain/member"
	"tanda_circles/internal/infra/config"
	idb "tanda_circles/internal/infra/database"
	"tanda_circles/internal/infra/logger"
	"tanda_circles/internal/infra/memory"
	"tanda_circles/internal/infra/scheduler"
	"tanda_circles/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Could not load application configuration")
	}

	log := logger.New(cfg)
	mainLogger := log.WithField("component", "main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
		"admin_id":    cfg.AdminTelegramID,
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		registry circle.Registry
		members  member.Repository
	)
	if cfg.DatabaseURL != "" {
		db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to database")
		}
		defer db.Close()
		if err := idb.ApplySchema(ctx, db); err != nil {
			mainLogger.WithError(err).Fatal("Could not apply database schema")
		}
		registry = idb.NewPostgresCircleRegistry(db)
		members = idb.NewPostgresMemberRepository(db)
		mainLogger.Info("Using PostgreSQL circle registry")
	} else {
		registry = memory.NewRegistry()
		members = memory.NewMemberDirectory()
		mainLogger.Warn("DATABASE_URL is not set, circles are kept in memory")
	}

	clock := app.SystemClock()
	allocator := app.NewPositionAllocator(registry, clock, log.WithField("component", "allocator"))

	if cfg.TelegramToken == "" {
		circleService := app.NewCircleService(registry, allocator, members, clock, nil, log.WithField("service", "circles"))
		open, err := circleService.ListCircles(ctx, circle.ListFilter{OnlyOpen: true})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not list circles")
		}
		mainLogger.WithField("open_circles", len(open)).Warn("TELEGRAM_TOKEN is not set, running without a front-end")
		<-ctx.Done()
		mainLogger.Info("Application shut down gracefully")
		return
	}

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := log.WithField("component", "telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"text": c.Text(), "sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Telegram handler failed")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	telegramClient := telegram.NewTelebotAdapter(bot)
	notifier := telegram.NewAdminNotifier(telegramClient, cfg.AdminTelegramID, log.WithField("service", "telegram"))
	circleService := app.NewCircleService(registry, allocator, members, clock, notifier, log.WithField("service", "circles"))

	reminderService := app.NewReminderService(
		registry,
		members,
		telegramClient,
		clock,
		time.Duration(cfg.ReminderLookaheadDays)*24*time.Hour,
		log.WithField("service", "reminders"),
	)
	reminderScheduler := scheduler.NewReminderScheduler(reminderService, log.WithField("service", "scheduler"), cfg.CronSpecReminders)
	if err := reminderScheduler.Start(); err != nil {
		mainLogger.WithError(err).Fatal("Could not start reminder scheduler")
	}

	handlerLogger := log.WithField("component", "telegram_handlers")
	telegram.RegisterBotCommands(ctx, bot, cfg.AdminTelegramID, members, handlerLogger)
	telegram.RegisterCircleHandlers(ctx, bot, circleService, members, handlerLogger)
	telegram.RegisterAdminHandlers(ctx, bot, circleService, members, cfg.AdminTelegramID, handlerLogger)
	mainLogger.Info("Telegram handlers registered")

	go bot.Start()
	mainLogger.Info("Application setup complete, bot and scheduler are running")

	<-ctx.Done()
	mainLogger.Info("Shutting down application...")
	bot.Stop()
	reminderScheduler.Stop()
	mainLogger.Info("Application shut down gracefully")
}
