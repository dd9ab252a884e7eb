package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/laptop_shop/internal/checkout"
	"github.com/Skotchmaster/laptop_shop/internal/consultant"
	"github.com/Skotchmaster/laptop_shop/internal/conversation"
	"github.com/Skotchmaster/laptop_shop/internal/httpserver"
	"github.com/Skotchmaster/laptop_shop/internal/messenger"
	"github.com/Skotchmaster/laptop_shop/internal/notify"
	"github.com/Skotchmaster/laptop_shop/internal/repo"
	"github.com/Skotchmaster/laptop_shop/internal/search"
	"github.com/Skotchmaster/laptop_shop/internal/service"
	"github.com/Skotchmaster/laptop_shop/internal/telegram"
	"github.com/Skotchmaster/laptop_shop/pkg/config"
	pkgdb "github.com/Skotchmaster/laptop_shop/pkg/db"
	"github.com/Skotchmaster/laptop_shop/pkg/logging"
	loggingmw "github.com/Skotchmaster/laptop_shop/pkg/middleware/logging"
	"github.com/Skotchmaster/laptop_shop/pkg/mykafka"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("notice: .env not loaded: %v", err)
	}

	cfg := config.Load()
	config.MustNonEmptyBytes(cfg.AdminSecret, "ADMIN_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := pkgdb.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	store := &repo.GormRepo{DB: db}
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	if cfg.SeedProducts {
		if n, err := store.SeedProducts(ctx); err != nil {
			logger.Error("seed_failed", "error", err)
		} else if n > 0 {
			logger.Info("seed_done", "products", n)
		}
	}

	admins := &service.AdminService{Repo: store, Secret: cfg.AdminSecret, TokenTTL: cfg.AdminTokenTTL}
	if created, err := admins.Bootstrap(ctx); err != nil {
		logger.Error("admin_bootstrap_failed", "error", err)
	} else if created {
		logger.Info("admin_bootstrap_done", "username", service.BootstrapAdminName)
	}

	events := mykafka.New(cfg.KafkaBrokers)

	var bot *telegram.Bot
	var msg messenger.Messenger
	if cfg.BotToken == "" {
		logger.Warn("telegram_disabled", "reason", "TELEGRAM_BOT_TOKEN is empty")
	} else if bot, err = telegram.NewBot(cfg.BotToken, cfg.StorageChatID); err != nil {
		logger.Error("telegram_init_failed", "error", err)
		bot = nil
	} else {
		msg = bot
		logger.Info("telegram_ready", "bot", bot.API.Self.UserName)
	}

	dispatcher := &notify.Dispatcher{Msg: msg, Repo: store, AdminIDs: cfg.AdminIDs}
	orders := &service.OrderService{Repo: store, Notify: dispatcher, Events: events}
	catalog := &service.CatalogService{Repo: store, Notify: dispatcher, Events: events}

	if cfg.ESURL != "" {
		if idx, err := search.NewClient(ctx, cfg.ESURL, cfg.ESUser, cfg.ESPassword, cfg.ESIndex); err != nil {
			logger.Error("search_init_failed", "error", err)
		} else if err := idx.EnsureIndex(ctx); err != nil {
			logger.Error("search_index_failed", "error", err)
		} else {
			catalog.Index = idx
			if err := catalog.Reindex(ctx); err != nil {
				logger.Warn("search_reindex_failed", "error", err)
			}
		}
	}

	var wg sync.WaitGroup
	if bot != nil {
		states := conversation.NewMemoryStore()
		router := &telegram.Router{
			Msg:    bot,
			Repo:   store,
			States: states,
			Checkout: &checkout.Orchestrator{
				States:            states,
				Repo:              store,
				Msg:               bot,
				Notify:            dispatcher,
				Events:            events,
				PaymentRequisites: cfg.PaymentRequisites,
				MaxReceiptBytes:   int64(cfg.MaxReceiptPhotoBytes),
			},
			Orders:     orders,
			Catalog:    catalog,
			Consultant: &consultant.Consultant{Client: consultant.NewClient(consultant.DefaultBaseURL, cfg.OpenRouterKey, cfg.OpenRouterModel), Repo: store},
			AdminIDs:   cfg.AdminIDs,
			Support: telegram.Support{
				Telegram:  cfg.Support.Telegram,
				Phone:     cfg.Support.Phone,
				WhatsApp:  cfg.Support.WhatsApp,
				Instagram: cfg.Support.Instagram,
			},
			Welcome:           cfg.WelcomeMessage,
			PaymentRequisites: cfg.PaymentRequisites,
		}
		reminder := &notify.Reminder{D: dispatcher, Age: cfg.ReceiptReminderAge, Interval: cfg.ReminderInterval}

		wg.Add(2)
		go func() {
			defer wg.Done()
			router.Run(ctx, bot.Updates())
		}()
		go func() {
			defer wg.Done()
			reminder.Run(ctx)
		}()
	}

	media := &httpserver.MediaProxy{Msg: msg, Client: &http.Client{Timeout: time.Minute}}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		Repo:    store,
		Auth:    &httpserver.AdminAuth{Secret: cfg.AdminSecret, AllowedIPs: cfg.AdminAllowedIPs},
		Admins:  &httpserver.AdminHTTP{Svc: admins},
		Orders:  &httpserver.OrderHTTP{Svc: orders, Media: media},
		Catalog: &httpserver.CatalogHTTP{Svc: catalog, Media: media},
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           e,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		logger.Info("admin_http_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("admin_http_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting_down")

	if bot != nil {
		bot.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin_http_shutdown_failed", "error", err)
	}
	wg.Wait()

	if err := events.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db_close_failed", "error", err)
		}
	}

	logger.Info("shutdown_complete")
}
