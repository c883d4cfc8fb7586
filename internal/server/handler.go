package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/0muji4/chemsymbol/internal/agent"
	"github.com/0muji4/chemsymbol/internal/logging"
	"github.com/0muji4/chemsymbol/internal/persona"
	"github.com/0muji4/chemsymbol/internal/symbol"
)

// AgentFactory は ask ツール呼び出しごとにエージェントを生成します。
type AgentFactory func(ctx context.Context, systemPrompt string) (Runner, error)

// Runner は自然言語の質問に答えるエージェントです。
type Runner interface {
	Run(ctx context.Context, query string) (string, error)
}

// GeminiAgentFactory は Gemini を使うエージェントの AgentFactory を返します。
func GeminiAgentFactory(apiKey, model string, logger *zap.Logger) AgentFactory {
	return func(ctx context.Context, systemPrompt string) (Runner, error) {
		return agent.NewGeminiAgent(ctx, apiKey, model, systemPrompt, logger)
	}
}

// SymbolHandler は MCP リクエストを symbol パッケージの操作に変換する Adapter です。
type SymbolHandler struct {
	logger         *zap.Logger
	personas       *persona.Loader
	defaultPersona string
	newAgent       AgentFactory
}

// NewSymbolHandler は SymbolHandler を生成します。newAgent が nil の場合 ask は使えません。
func NewSymbolHandler(logger *zap.Logger, personas *persona.Loader, defaultPersona string, newAgent AgentFactory) *SymbolHandler {
	return &SymbolHandler{
		logger:         logger,
		personas:       personas,
		defaultPersona: defaultPersona,
		newAgent:       newAgent,
	}
}

// AgentEnabled は ask ツールを登録すべきかを返します。
func (h *SymbolHandler) AgentEnabled() bool {
	return h.newAgent != nil
}

// IsValidSymbol は is_valid_symbol ツールを処理します。
func (h *SymbolHandler) IsValidSymbol(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	element, sym, err := requireArgs(req, "element", "symbol")
	if err != nil {
		return h.fail("is_valid_symbol", element, err), nil
	}

	start := time.Now()
	ok, err := symbol.IsValidSymbolOf(element, sym)
	if err != nil {
		return h.fail("is_valid_symbol", element, err), nil
	}
	h.logger.Info("tool call",
		zap.String(logging.FieldTool, "is_valid_symbol"),
		zap.String(logging.FieldElement, element),
		zap.String(logging.FieldSymbol, sym),
		zap.Bool(logging.FieldValid, ok),
		zap.Int64(logging.FieldDurationMS, time.Since(start).Milliseconds()),
	)
	return mcp.NewToolResultText(strconv.FormatBool(ok)), nil
}

// FirstSymbol は first_symbol ツールを処理します。
func (h *SymbolHandler) FirstSymbol(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.elementQuery("first_symbol", req, symbol.FirstSymbol)
}

// CountSymbols は count_symbols ツールを処理します。
func (h *SymbolHandler) CountSymbols(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.elementQuery("count_symbols", req, func(element string) (string, error) {
		n, err := symbol.NumberOfValidSymbols(element)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil
	})
}

// ListSymbols は list_symbols ツールを処理します。
func (h *SymbolHandler) ListSymbols(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.elementQuery("list_symbols", req, func(element string) (string, error) {
		set, err := symbol.Candidates(element)
		if err != nil {
			return "", err
		}
		return strings.Join(set.Sorted(), "\n"), nil
	})
}

// Ask は ask ツール呼び出しを受け取り、エージェントの ReAct ループを実行します。
func (h *SymbolHandler) Ask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.newAgent == nil {
		return mcp.NewToolResultError("ask is disabled: GEMINI_API_KEY is not set"), nil
	}
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question is required"), nil
	}
	personaName := req.GetString("persona", h.defaultPersona)

	// 1. Persona の読み込み
	p, err := h.personas.Load(personaName)
	if err != nil {
		return mcp.NewToolResultError("failed to load persona " + strconv.Quote(personaName) + ": " + err.Error()), nil
	}

	// 2. エージェントの生成と実行
	bot, err := h.newAgent(ctx, p.SystemPrompt)
	if err != nil {
		return mcp.NewToolResultError("failed to create agent: " + err.Error()), nil
	}

	start := time.Now()
	answer, err := bot.Run(ctx, question)
	if err != nil {
		h.logger.Error("agent failed", zap.String(logging.FieldPersona, personaName), zap.Error(err))
		return mcp.NewToolResultError("agent error: " + err.Error()), nil
	}
	h.logger.Info("tool call",
		zap.String(logging.FieldTool, "ask"),
		zap.String(logging.FieldPersona, personaName),
		zap.Int64(logging.FieldDurationMS, time.Since(start).Milliseconds()),
	)
	return mcp.NewToolResultText(answer), nil
}

func (h *SymbolHandler) elementQuery(tool string, req mcp.CallToolRequest, query func(string) (string, error)) (*mcp.CallToolResult, error) {
	element, err := req.RequireString("element")
	if err != nil {
		return h.fail(tool, "", errors.Mark(errors.New("element is required"), symbol.ErrNullInput)), nil
	}

	start := time.Now()
	out, err := query(element)
	if err != nil {
		return h.fail(tool, element, err), nil
	}
	h.logger.Info("tool call",
		zap.String(logging.FieldTool, tool),
		zap.String(logging.FieldElement, element),
		zap.String(logging.FieldResult, out),
		zap.Int64(logging.FieldDurationMS, time.Since(start).Milliseconds()),
	)
	return mcp.NewToolResultText(out), nil
}

// fail は呼び出し側の契約違反をツールエラーとして返します。
func (h *SymbolHandler) fail(tool, element string, err error) *mcp.CallToolResult {
	h.logger.Warn("tool call rejected",
		zap.String(logging.FieldTool, tool),
		zap.String(logging.FieldElement, element),
		zap.Error(err),
	)
	return mcp.NewToolResultError(err.Error())
}

func requireArgs(req mcp.CallToolRequest, first, second string) (string, string, error) {
	a, err := req.RequireString(first)
	if err != nil {
		return "", "", errors.Mark(errors.Newf("%s is required", first), symbol.ErrNullInput)
	}
	b, err := req.RequireString(second)
	if err != nil {
		return a, "", errors.Mark(errors.Newf("%s is required", second), symbol.ErrNullInput)
	}
	return a, b, nil
}
