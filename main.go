package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/horizons-db/archive-backend/api"
	"github.com/horizons-db/archive-backend/config"
	"github.com/horizons-db/archive-backend/database"
	"github.com/horizons-db/archive-backend/memstore"
	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/services"
	"github.com/horizons-db/archive-backend/storage"
)

// localGenres seeds the in-memory store so the archive is usable without Postgres.
var localGenres = []string{"Action", "Adventure", "Narrative", "Platformer", "Puzzle", "RPG", "Simulation", "Strategy"}

func main() {
	fmt.Println("Initializing app...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: Error loading .env file: %v\n", err)
	}

	ctx := context.Background()
	settings, err := config.Load(ctx)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogger(settings)
	log.Info().Str("env", string(settings.Env)).Str("dbType", settings.DBType).Str("storage", settings.StorageDriver).Msg("configuration loaded")

	var store api.Store
	switch settings.DBType {
	case "supa":
		db, err := database.Open(settings)
		if err != nil {
			log.Fatal().Err(err).Msg("Error connecting to database")
		}

		// If generating models, run generation and exit
		if settings.GenerateModels {
			if err := models.GenerateModels(db); err != nil {
				log.Fatal().Err(err).Msg("Error generating models")
			}
			return
		}

		// If generating column mismatch report, run report and exit
		if settings.ColumnReport {
			if _, err := models.WriteColumnReport(os.Stdout, db); err != nil {
				log.Fatal().Err(err).Msg("Error writing column report")
			}
			return
		}

		if err := models.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("Error migrating schema")
		}
		store = database.New(db).Store()
	case "memory":
		mem := memstore.New()
		mem.AddGenres(localGenres...)
		store = mem
		log.Warn().Msg("Using in-memory store; data is lost on restart")
	default:
		log.Fatal().Str("dbType", settings.DBType).Msg("Unsupported DB_TYPE")
	}

	objects, closeObjects, err := openObjectStore(ctx, settings)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening object storage")
	}
	defer closeObjects()

	opts := []api.Option{
		api.WithMailer(newMailer(settings)),
		api.WithImagePreparer(func(data []byte) ([]byte, string, error) {
			return storage.CompressImage(data, storage.DefaultCompressOptions())
		}),
	}

	errChannel := make(chan error)
	defer close(errChannel)

	server, err := api.NewServer(settings, store, objects, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing server")
	}

	go server.Start(errChannel)

	// Listen for interrupt signals to gracefully shutdown the server
	go listenToInterrupt(errChannel)

	fatalErr := <-errChannel
	log.Info().Msgf("Closing server: %v", fatalErr)

	server.ShutdownGracefully(30 * time.Second)
}

// setupLogger writes human-readable logs in dev and JSON in prod.
func setupLogger(s config.Settings) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(strings.ToLower(s.LogLevel))
	if err != nil || s.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if s.Env == config.Dev {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		return
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "archive-backend").Logger()
}

func openObjectStore(ctx context.Context, s config.Settings) (storage.ObjectStore, func(), error) {
	noop := func() {}
	switch s.StorageDriver {
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:      s.S3Endpoint,
			Region:        s.S3Region,
			Bucket:        s.Bucket,
			AccessKeyID:   s.S3AccessKey,
			SecretKey:     s.S3SecretKey,
			PublicBaseURL: s.PublicStorageURL(),
			CacheControl:  "public, max-age=31536000",
		})
		return store, noop, err
	case "gcs":
		store, err := storage.NewGCSStore(ctx, s.Bucket, s.CDNDomain, storage.GCSClientOptions()...)
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing storage client")
			}
		}, nil
	case "memory":
		return storage.NewMemory("http://localhost:" + s.Port + "/files/" + s.Bucket), noop, nil
	}
	return nil, noop, fmt.Errorf("unsupported storage driver %q", s.StorageDriver)
}

func newMailer(s config.Settings) services.Mailer {
	if s.ResendAPIKey == "" {
		log.Warn().Msg("RESEND_API_KEY not set; invite emails are only logged")
		return services.LogMailer{Logger: log.With().Str("component", "mailer").Logger()}
	}
	return services.NewResendMailer(s.ResendAPIKey, s.MailFrom)
}

// listenToInterrupt waits for SIGINT or SIGTERM and then sends an error to the error channel.
func listenToInterrupt(errChannel chan<- error) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	errChannel <- fmt.Errorf("%s", <-c)
}
