package main

import (
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/0muji4/chemsymbol/internal/config"
	"github.com/0muji4/chemsymbol/internal/logging"
	"github.com/0muji4/chemsymbol/internal/persona"
	"github.com/0muji4/chemsymbol/internal/server"
)

func main() {
	// --- 環境変数の読み込み ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// --- DI: Adapter 層の組み立て ---
	var newAgent server.AgentFactory
	if cfg.AgentEnabled() {
		newAgent = server.GeminiAgentFactory(cfg.APIKey, cfg.Model, logger.Named("agent"))
	} else {
		logger.Info("GEMINI_API_KEY is not set; ask tool disabled")
	}
	handler := server.NewSymbolHandler(logger.Named("handler"), persona.NewLoader(cfg.PersonaDir), cfg.Persona, newAgent)
	s := server.New(handler)

	// --- Framework: MCP stdio サーバーの起動 ---
	logger.Info("chemsymbol MCP server starting",
		zap.String("version", server.Version),
		zap.String("persona_dir", cfg.PersonaDir),
	)
	if err := mcpserver.ServeStdio(s); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
