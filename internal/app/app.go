// Package app assembles the docqa pipeline from settings.
//
// It is the composition root shared by every driving adapter: the CLI,
// the chat TUI, the MCP server, the HTTP API and the inbox watcher all
// work against an *App.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/dictionary"
	"github.com/custodia-labs/docqa/internal/adapters/driven/pdf"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/jsonfile"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driven/upload"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// Layout under the home directory.
const (
	ConfigFile        = "config.toml"
	OrganizationsFile = "organizations.yaml"
	KnowledgeBaseDir  = "kb"
	ChatsDir          = "chats"
	UploadsDir        = "uploads"
	PromptsDir        = "prompts"
	InboxDir          = "inbox"
)

// Options configures Open.
type Options struct {
	// Home is the data directory. Defaults to file.Home().
	Home string

	// Settings replaces the settings read from the config file.
	Settings *domain.AppSettings
}

// Paths are the directories an App reads and writes.
type Paths struct {
	Home           string
	KnowledgeBases string
	Chats          string
	Uploads        string
	Prompts        string
	Inbox          string
	Organizations  string
}

// PathsFor returns the layout under home.
func PathsFor(home string) Paths {
	return Paths{
		Home:           home,
		KnowledgeBases: filepath.Join(home, KnowledgeBaseDir),
		Chats:          filepath.Join(home, ChatsDir),
		Uploads:        filepath.Join(home, UploadsDir),
		Prompts:        filepath.Join(home, PromptsDir),
		Inbox:          filepath.Join(home, InboxDir),
		Organizations:  filepath.Join(home, OrganizationsFile),
	}
}

// App holds the wired services.
type App struct {
	Paths    Paths
	Settings domain.AppSettings
	Warnings []string

	Identity       *services.IdentityService
	KnowledgeBases *services.KnowledgeBaseService
	Ingest         *services.IngestService
	Retrieval      *services.RetrievalService
	Answers        *services.AnswerComposer
	Collections    *services.CollectionService
	Models         *services.ModelRegistry
	Organizations  *file.Organizations

	sessionStore driven.SessionStore
	uploader     driven.Uploader
	ai           *ai.Services

	mu       sync.Mutex
	managers map[string]*services.SessionManager
}

// SettingsService opens the settings service for home without starting
// any model.
func SettingsService(home string) (*services.SettingsService, error) {
	if home == "" {
		var err error
		if home, err = file.Home(); err != nil {
			return nil, fmt.Errorf("resolving home: %w", err)
		}
	}
	store, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	return services.NewSettingsService(store, ai.NewProbe()), nil
}

// Open reads settings, connects to the configured models and wires the
// pipeline. The embedding provider must be reachable; an unreachable LLM
// is recorded in Warnings.
func Open(ctx context.Context, opts Options) (*App, error) {
	home := opts.Home
	if home == "" {
		var err error
		if home, err = file.Home(); err != nil {
			return nil, fmt.Errorf("resolving home: %w", err)
		}
	}
	paths := PathsFor(home)

	settings := opts.Settings
	if settings == nil {
		svc, err := SettingsService(home)
		if err != nil {
			return nil, err
		}
		if settings, err = svc.Get(); err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}
	}

	logger.Section("Startup")
	models, err := ai.Init(ctx, settings)
	if err != nil {
		return nil, err
	}

	a, err := build(paths, *settings, models)
	if err != nil {
		models.Close()
		return nil, err
	}
	return a, nil
}

func build(paths Paths, settings domain.AppSettings, models *ai.Services) (*App, error) {
	orgs, err := file.LoadOrganizations(paths.Organizations)
	if err != nil {
		return nil, err
	}
	prompts, err := file.NewPromptStore(paths.Prompts, services.DefaultPrompts())
	if err != nil {
		return nil, err
	}
	dict, err := dictionary.Load(settings.DictionaryPath)
	if err != nil {
		return nil, err
	}
	sessions, err := jsonfile.NewSessionStore(paths.Chats)
	if err != nil {
		return nil, err
	}

	chunker, err := postprocessors.NewRegistry().Build(
		postprocessors.DefaultSteps(settings.Thresholds),
		postprocessors.Deps{Embedder: models.Embedding},
	)
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	textLayer := pdf.New(pdf.WithPdftotext(pdf.DefaultPdftotext))
	registryOfModels := services.NewModelRegistry(ai.OCRLoader(settings.OCR), ai.RerankerLoader(settings.Rerank))
	extractor := services.NewExtractor(textLayer, ai.Rasterizer(settings.OCR), dict, registryOfModels,
		services.ExtractorConfig{Thresholds: settings.Thresholds, DPI: settings.OCR.DPI})

	vectors := sqlite.NewStore()
	kb := services.NewKnowledgeBaseService(paths.KnowledgeBases, vectors, models.Embedding)
	ingest := services.NewIngestService(extractor, chunker, kb)
	answers := services.NewAnswerComposer(models.LLM, settings.Thresholds.HistoryTurns, settings.LLM.Temperature)
	answers.SetPromptStore(prompts)
	uploader := upload.New(settings.Limits, textLayer)

	return &App{
		Paths:          paths,
		Settings:       settings,
		Warnings:       models.Warnings,
		Identity:       services.NewIdentityService(orgs),
		KnowledgeBases: kb,
		Ingest:         ingest,
		Retrieval:      services.NewRetrievalService(vectors, models.Embedding, registryOfModels, settings.Thresholds),
		Answers:        answers,
		Collections:    services.NewCollectionService(uploader, kb, ingest, paths.Uploads),
		Models:         registryOfModels,
		Organizations:  orgs,
		sessionStore:   sessions,
		uploader:       uploader,
		ai:             models,
		managers:       make(map[string]*services.SessionManager),
	}, nil
}

// NewSession creates a session manager for identity. Each call returns a
// fresh manager in the no-session state.
func (a *App) NewSession(identity domain.Identity) *services.SessionManager {
	return services.NewSessionManager(identity, services.SessionDeps{
		Sessions:  a.sessionStore,
		Uploader:  a.uploader,
		KB:        a.KnowledgeBases,
		Ingest:    a.Ingest,
		Retrieval: a.Retrieval,
		Answers:   a.Answers,
	}, services.SessionConfig{
		UploadRoot:   a.Paths.Uploads,
		MaxHistory:   a.Settings.MaxHistory,
		HistoryTurns: a.Settings.Thresholds.HistoryTurns,
	})
}

// Session returns the long-lived manager for identity, creating it on
// first use. Servers use it so one user's requests share state.
func (a *App) Session(identity domain.Identity) driving.SessionManager {
	key := identity.User + "|" + string(identity.Role)
	a.mu.Lock()
	defer a.mu.Unlock()
	if m, ok := a.managers[key]; ok {
		return m
	}
	m := a.NewSession(identity)
	a.managers[key] = m
	return m
}

// Close closes every long-lived session, then releases models.
func (a *App) Close(ctx context.Context) error {
	a.mu.Lock()
	managers := a.managers
	a.managers = make(map[string]*services.SessionManager)
	a.mu.Unlock()

	var errs []error
	for _, m := range managers {
		errs = append(errs, m.Close(ctx))
	}
	errs = append(errs, a.Models.Close())
	if a.ai != nil {
		a.ai.Close()
	}
	return errors.Join(errs...)
}
