package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tontin/internal/config"
	"tontin/internal/database"
	"tontin/internal/logger"
	"tontin/internal/notify"
	"tontin/internal/scheduler"
	"tontin/internal/services"
)

// The scheduler binary runs the periodic background jobs: budget alert
// checks and due-reminder notifications. It shares the database and the
// notification exchange with the API server but runs as its own process
// so it can be deployed and scaled independently.
func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	var publisher notify.Publisher
	if appConfig.AMQPURL == "" {
		log.Info("AMQP_URL not set, notifications will be logged only")
		publisher = notify.LogPublisher{}
	} else {
		publisher, err = notify.NewAMQPPublisher(appConfig.AMQPURL, appConfig.AMQPExchange)
		if err != nil {
			return fmt.Errorf("failed to connect notification publisher: %w", err)
		}
	}
	defer publisher.Close()

	db := dbManager.DB()
	categoryService := services.NewCategoryService(db)
	groupService := services.NewGroupService(db)
	reminderService := services.NewReminderService(db, groupService)
	alertService := services.NewAlertService(db, categoryService, publisher)

	sched := scheduler.New(
		alertService,
		reminderService,
		publisher,
		appConfig.BudgetCheckInterval,
		appConfig.ReminderCheckInterval,
		appConfig.ReminderLookahead,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("Starting scheduler (budget checks every %s, reminder checks every %s)",
		appConfig.BudgetCheckInterval, appConfig.ReminderCheckInterval)

	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	log.Info("Scheduler stopped")
	return nil
}
