package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meishi-bot/internal/config"
	"meishi-bot/internal/handlers"
	"meishi-bot/internal/logger"
	"meishi-bot/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	// Carregar variáveis de ambiente
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(newVisionModel).ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}

// modelFactory cria o modelo de visão configurado e a função que o fecha.
type modelFactory func(ctx context.Context, cfg *config.Config) (services.VisionModel, func(), error)

func newRootCommand(newModel modelFactory) *cobra.Command {
	serve := func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd, newModel)
	}
	root := &cobra.Command{
		Use:           "meishi-bot",
		Short:         "Slack bot that reads business cards and saves them to a ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server for Slack events and actions",
			RunE:  serve,
		},
		newScanCommand(newModel),
	)
	return root
}

func newScanCommand(newModel modelFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <image>",
		Short: "Extract a business card from a local image and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, args[0], newModel)
		},
	}
}

func runServe(cmd *cobra.Command, newModel modelFactory) error {
	ctx := cmd.Context()

	// Inicializar configuração
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Inicializar logger
	logger.Init(cfg.LogLevel)

	// Inicializar serviços
	model, closeModel, err := newModel(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeModel()

	ledger, closers, err := newLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c()
		}
	}()

	var archiver services.Archiver
	if cfg.Archive.Enabled() {
		archiver = services.NewS3Archiver(cfg.Archive)
	}

	store := services.NewScanStore()
	messenger := services.NewSlackMessenger(cfg.Slack.APIURL, cfg.Slack.BotToken)
	extractor := services.NewCardExtractor(model, services.NewTextSanitizer(), cfg.Extractor.MaxSide)
	queue := services.NewUploadQueue(services.NewImageFetcher(), extractor, store, messenger, archiver)
	controller := services.NewInteractionController(store, ledger, messenger, queue)

	// Configurar Gin
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.Writer()

	router := handlers.NewRouter(
		handlers.NewSlackHandler(queue, controller, messenger, cfg.Slack.BotToken, cfg.Slack.DedupTTL),
		handlers.NewStatusHandler(queue, store),
		cfg.Token,
		gin.Logger(),
		gin.Recovery(),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🚀 Service listening on port " + cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runScan(cmd *cobra.Command, imagePath string, newModel modelFactory) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel)
	logger.SetOutput(cmd.ErrOrStderr())

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	model, closeModel, err := newModel(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeModel()

	extractor := services.NewCardExtractor(model, services.NewTextSanitizer(), cfg.Extractor.MaxSide)
	record, err := extractor.Extract(cmd.Context(), data)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

func newVisionModel(ctx context.Context, cfg *config.Config) (services.VisionModel, func(), error) {
	switch cfg.Extractor.Provider {
	case config.ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, nil, errors.New("OPENAI_API_KEY must be set for the openai extractor")
		}
		return services.NewOpenAIService(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.ModelImage), func() {}, nil
	case config.ProviderGemini:
		gemini, err := services.NewGeminiService(ctx, cfg.Gemini.ProjectID, cfg.Gemini.Region, cfg.Gemini.Model)
		if err != nil {
			return nil, nil, err
		}
		return gemini, func() { _ = gemini.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown EXTRACTOR_PROVIDER %q", cfg.Extractor.Provider)
	}
}

func newLedger(ctx context.Context, cfg *config.Config) (*services.MultiLedger, []func(), error) {
	ledger := services.NewMultiLedger()
	var closers []func()

	if cfg.Ledger.SpreadsheetID != "" {
		sheets, err := services.NewSheetsLedger(ctx, cfg.Ledger.GoogleCredentials, cfg.Ledger.SpreadsheetID, cfg.Ledger.SheetRange)
		if err != nil {
			return nil, nil, err
		}
		ledger.Add("sheets", sheets)
	}
	if cfg.Ledger.CSVPath != "" {
		ledger.Add("csv", services.NewCSVLedger(cfg.Ledger.CSVPath))
	}
	if cfg.Ledger.RabbitURL != "" {
		rabbit, err := services.NewRabbitLedger(cfg.Ledger.RabbitURL, cfg.Ledger.RabbitQueue)
		if err != nil {
			return nil, nil, err
		}
		ledger.Add("rabbitmq", rabbit)
		closers = append(closers, func() { _ = rabbit.Close() })
	}

	logger.WithFields(logrus.Fields{
		"destinations": ledger.Len(),
	}).Info("Ledger configured")

	return ledger, closers, nil
}
