package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/rootlab/rootlab/internal/ailink"
	"github.com/rootlab/rootlab/internal/ailink/driver"
	"github.com/rootlab/rootlab/internal/ailink/prompt"
	"github.com/rootlab/rootlab/internal/config"
	"github.com/rootlab/rootlab/internal/core/ratelimit"
	"github.com/rootlab/rootlab/internal/core/store"
	"github.com/rootlab/rootlab/internal/document"
	"github.com/rootlab/rootlab/internal/lesson"
)

// errHistoryDisabled is returned by history commands when store.enabled is false.
var errHistoryDisabled = errors.New("lesson history is disabled (store.enabled=false)")

// openStore opens and migrates the lesson store.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if !cfg.Store.Enabled {
		return nil, errHistoryDisabled
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}
	return db, nil
}

// newParser builds the structurer from the structurer config section.
func newParser(cfg *config.Config) *document.Parser {
	return document.NewParser(cfg.Structurer)
}

// newGenerator wires prompts, providers and the optional store into a
// lesson generator. A nil st disables persistence.
func newGenerator(cfg *config.Config, st *store.Store, logger *logging.Logger) (*lesson.Generator, error) {
	prompts, err := prompt.DefaultRegistry(cfg.AILink.PromptsDir)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	gen := &lesson.Generator{
		Prompts:   prompts,
		Providers: ailink.NewRegistry(cfg.AILink),
		Parser:    newParser(cfg),
		Logger:    logger,
		Role:      cfg.Lesson.Role,
	}
	if st != nil && cfg.Lesson.Persist {
		gen.Store = st
	}

	// Budgets persist in the store so separate CLI runs share them.
	var limits ratelimit.StateStore
	if st != nil {
		limits = st
	}
	gen.Limiter = ratelimit.NewLimiter(limits, cfg.Lesson.RateLimits, cfg.Lesson.RateLimitMargin)
	return gen, nil
}

// openGenerator opens the store when it is enabled and builds the
// generator. Store failures only disable persistence.
func openGenerator(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*lesson.Generator, func(), error) {
	var st *store.Store
	if cfg.Store.Enabled {
		db, err := openStore(ctx, cfg)
		if err != nil {
			logger.Warn("Lesson history unavailable, continuing without persistence", zap.Error(err))
		} else {
			st = db
		}
	}

	gen, err := newGenerator(cfg, st, logger)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, func() {}, err
	}

	cleanup := func() {
		if st != nil {
			_ = st.Close()
		}
	}
	return gen, cleanup, nil
}

func isValidation(err error) bool { return lesson.IsValidationError(err) }

func isConfig(err error) bool { return ailink.IsConfigError(err) }

func isUpstream(err error) bool {
	_, ok := driver.AsProviderError(err)
	return ok
}
