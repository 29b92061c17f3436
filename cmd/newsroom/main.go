package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/quantonganh/newsroom"
	"github.com/quantonganh/newsroom/bolt"
	"github.com/quantonganh/newsroom/http"
	"github.com/quantonganh/newsroom/logmail"
	"github.com/quantonganh/newsroom/newsletter"
	"github.com/quantonganh/newsroom/postgres"
	"github.com/quantonganh/newsroom/rabbitmq"
	"github.com/quantonganh/newsroom/resend"
	"github.com/quantonganh/newsroom/richtext"
	"github.com/quantonganh/newsroom/sanity"
	"github.com/quantonganh/newsroom/smtp"
	"github.com/quantonganh/newsroom/sqlite"
)

func main() {
	_ = godotenv.Load()

	config, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn: config.Sentry.DSN,
	}); err != nil {
		log.Fatalf("sentry.Init: %v", err)
	}
	defer sentry.Flush(2 * time.Second)

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Logger()

	a, err := newApp(config, logger)
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
	}()

	if err := a.Run(ctx); err != nil {
		_ = a.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	<-ctx.Done()

	if err := a.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*newsroom.Config, error) {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("db.type", "sqlite")
	viper.SetDefault("db.path", "newsroom.db")
	viper.SetDefault("mailer.provider", newsroom.ProviderResend)
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("newsletter.webhook.header", sanity.SignatureHeader)
	viper.SetDefault("amqp.queue", "newsletter")

	for key, env := range map[string]string{
		"http.addr":                 "HTTP_ADDR",
		"db.url":                    "DATABASE_URL",
		"resend.apikey":             "RESEND_API_KEY",
		"newsletter.webhook.secret": "SANITY_WEBHOOK_SECRET",
		"newsletter.from":           "NEWSLETTER_FROM",
		"sentry.dsn":                "SENTRY_DSN",
		"amqp.url":                  "AMQP_URL",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config *newsroom.Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

type app struct {
	config      *newsroom.Config
	logger      zerolog.Logger
	db          newsroom.Database
	subscribers newsroom.SubscriberService
	queue       newsroom.QueueService
	httpServer  *http.Server
	done        chan struct{}
}

func newApp(config *newsroom.Config, logger zerolog.Logger) (*app, error) {
	a := &app{
		config:     config,
		logger:     logger,
		httpServer: http.NewServer(logger),
	}

	switch config.DB.Type {
	case "sqlite":
		db := sqlite.NewDB(config.DB.Path)
		a.db, a.subscribers = db, sqlite.NewSubscriberService(db)
	case "bolt":
		db := bolt.NewDB(config.DB.Path)
		a.db, a.subscribers = db, bolt.NewSubscriberService(db)
	case "postgres":
		db := postgres.NewDB(config.DB.URL, logger)
		a.db, a.subscribers = db, postgres.NewSubscriberService(db)
	default:
		return nil, fmt.Errorf("unknown db.type: %s", config.DB.Type)
	}

	return a, nil
}

func (a *app) mailer() newsroom.Mailer {
	switch a.config.Mailer.Provider {
	case newsroom.ProviderSMTP:
		return smtp.NewMailer(a.config.SMTP.Host, a.config.SMTP.Port, a.config.SMTP.Username, a.config.SMTP.Password)
	case newsroom.ProviderLog:
		return logmail.NewMailer(a.logger)
	default:
		return resend.NewMailer(a.config.Resend.APIKey)
	}
}

func (a *app) Run(ctx context.Context) error {
	if err := a.db.Open(); err != nil {
		return err
	}

	var opts []richtext.Option
	if a.config.Newsletter.Sanitize {
		opts = append(opts, richtext.WithSanitizer())
	}

	newsletterService := newsletter.NewNewsletterService(a.config, a.mailer())
	processor := newsletter.NewProcessor(
		sanity.NewVerifier(a.config.Newsletter.Webhook.Secret),
		a.subscribers,
		newsletterService,
		richtext.NewRenderer(opts...),
	)

	a.httpServer.Addr = a.config.HTTP.Addr
	a.httpServer.SignatureHeader = a.config.Newsletter.Webhook.Header
	a.httpServer.SubscriberService = a.subscribers
	a.httpServer.NewsletterService = newsletterService
	a.httpServer.Processor = processor

	if err := a.httpServer.Open(); err != nil {
		return err
	}
	a.logger.Info().Str("url", a.httpServer.URL()).Msg("listening")

	if a.config.AMQP.URL != "" {
		queue, err := rabbitmq.NewQueueService(a.config.AMQP.URL, a.config.Newsletter.Webhook.Header)
		if err != nil {
			return err
		}
		a.queue = queue
		a.done = make(chan struct{})

		go func() {
			defer close(a.done)
			consumerLogger := a.logger.With().Str("component", "consumer").Logger()
			consumerCtx := consumerLogger.WithContext(ctx)
			if err := processor.Consume(consumerCtx, queue, a.config.AMQP.Queue); err != nil {
				a.logger.Error().Err(err).Msg("queue consumer stopped")
			}
		}()
	}

	return nil
}

func (a *app) Close() error {
	if a.httpServer != nil {
		if err := a.httpServer.Close(); err != nil {
			return err
		}
	}

	if a.queue != nil {
		if err := a.queue.Close(); err != nil {
			return err
		}
		<-a.done
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return err
		}
	}

	return nil
}
