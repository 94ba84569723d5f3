package config

import (
	"fmt"

	"github.com/MattB543/textpress-matt-test/internal/client"
	"github.com/MattB543/textpress-matt-test/internal/domain"
	infrasupabase "github.com/MattB543/textpress-matt-test/internal/infra/supabase"
	"github.com/MattB543/textpress-matt-test/internal/repository"
	"github.com/MattB543/textpress-matt-test/internal/service"
	"github.com/MattB543/textpress-matt-test/pkg/logger"
)

// Container holds all application dependencies
type Container struct {
	Config             domain.Config
	Logger             domain.Logger
	DocumentRepository domain.DocumentRepository
	DocumentService    *service.DocumentService
	SessionTransport   domain.Transport
	Sessions           *service.SessionRegistry
	// DatabaseConfigured is true when documents live in Supabase rather than memory.
	DatabaseConfigured bool
}

// NewContainer creates a new dependency injection container
func NewContainer() (*Container, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	appLogger := logger.New(cfg.GetLogLevel(), cfg.GetLogFormat(), nil)
	return NewContainerWith(cfg, appLogger)
}

// NewContainerWith wires the application around an existing config and logger.
func NewContainerWith(cfg domain.Config, appLogger domain.Logger) (*Container, error) {
	var documentRepo domain.DocumentRepository
	dbConfigured := false
	if cfg.GetSupabaseURL() != "" {
		supabaseClient, err := infrasupabase.NewClient(cfg.GetSupabaseURL(), cfg.GetSupabaseKey(), appLogger)
		if err != nil {
			return nil, err
		}
		documentRepo = repository.NewSupabaseDocumentRepository(supabaseClient, appLogger)
		dbConfigured = true
	} else {
		appLogger.Warn("SUPABASE_URL not set, documents are kept in memory")
		documentRepo = repository.NewMemoryDocumentRepository()
	}

	converter := service.NewContentConverter(cfg.GetFetchTimeout(), cfg.GetMaxFileSize(), appLogger)
	documentService := service.NewDocumentService(documentRepo, converter, appLogger, cfg.GetPublicBaseURL())

	// Sessions call the document service directly unless a remote backend is configured.
	var transport domain.Transport = documentService
	if base := cfg.GetAPIBaseURL(); base != "" {
		remote, err := client.New(client.Options{
			BaseURL:     base,
			MaxFileSize: cfg.GetMaxFileSize(),
			MaxTextSize: cfg.GetMaxTextSize(),
			Logger:      appLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create API client: %w", err)
		}
		transport = remote
		appLogger.Info("Sessions use remote backend", "api_base_url", base)
	}

	sessions := service.NewSessionRegistry(transport, service.SessionOptions{
		DefaultSlots:          cfg.GetSlotCount(),
		ConvertTimeout:        cfg.GetConvertTimeout(),
		CombineTimeout:        cfg.GetCombineTimeout(),
		MaxConcurrentConverts: cfg.GetMaxConcurrentConverts(),
		IdleTTL:               cfg.GetSessionIdleTTL(),
		MaxSessions:           cfg.GetMaxSessions(),
	}, appLogger)

	return &Container{
		Config:             cfg,
		Logger:             appLogger,
		DocumentRepository: documentRepo,
		DocumentService:    documentService,
		SessionTransport:   transport,
		Sessions:           sessions,
		DatabaseConfigured: dbConfigured,
	}, nil
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}

// GetDocumentService returns the document service instance
func (c *Container) GetDocumentService() *service.DocumentService {
	return c.DocumentService
}

// GetSessions returns the session registry
func (c *Container) GetSessions() *service.SessionRegistry {
	return c.Sessions
}

// Close releases long-lived resources.
func (c *Container) Close() {
	c.Sessions.CloseAll()
}
