package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gfitzpatrick-eightfold/Macros/internal/config"
	"github.com/gfitzpatrick-eightfold/Macros/internal/generate"
	"github.com/gfitzpatrick-eightfold/Macros/internal/logger"
	"github.com/gfitzpatrick-eightfold/Macros/internal/macro"
	macromcp "github.com/gfitzpatrick-eightfold/Macros/internal/mcp"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Secrets come from the environment; a local .env is optional.
	_ = godotenv.Load()

	cfgPath := os.Getenv("MACROS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	registry := macro.NewRegistry()
	if err := registry.LoadDefinitions(cfg.DefinitionsPath); err != nil {
		logger.Warn("Could not load macro definitions, using built-in descriptions", zap.Error(err))
	}
	loaded, err := registry.LoadCustomMacros(cfg.CustomMacroDir)
	if err != nil {
		logger.Fatal("Failed to load custom macros", zap.Error(err))
	}
	if loaded > 0 {
		logger.Info("Custom macros loaded", zap.Int("count", loaded), zap.String("dir", cfg.CustomMacroDir))
	}

	generator := generate.NewService(registry, generate.Config{
		Provider:   cfg.Generation.Provider,
		Endpoint:   cfg.Generation.Endpoint,
		Model:      cfg.Generation.Model,
		MaxRetries: cfg.Generation.MaxRetries,
		RetryDelay: cfg.Generation.RetryDelay(),
	})

	server := macromcp.NewServer(registry, generator, cfg.DefinitionsPath)
	if err := server.Run(context.Background()); err != nil {
		logger.Fatal("MCP server exited", zap.Error(err))
	}
}
