package server

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	Name    = "chemsymbol"
	Version = "0.1.0"
)

func elementArg() mcp.ToolOption {
	return mcp.WithString("element",
		mcp.Required(),
		mcp.Description("元素名（2文字以上のアルファベット、例: Zirconium）"),
	)
}

// New は MCP サーバーを生成し、ツールを登録して返します。
// ビジネスロジックは handler に委譲し、ここではプロトコル変換のみ行います。
func New(handler *SymbolHandler) *server.MCPServer {
	s := server.NewMCPServer(
		Name,
		Version,
		server.WithToolCapabilities(false),
	)

	s.AddTool(mcp.NewTool("is_valid_symbol",
		mcp.WithDescription("2文字のシンボルが元素名の有効な元素記号かを判定します。両方の文字が元素名に同じ順序で含まれている必要があります。"),
		elementArg(),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("判定するシンボル（ちょうど2文字、大文字小文字は区別しない）"),
		),
	), handler.IsValidSymbol)

	s.AddTool(mcp.NewTool("first_symbol",
		mcp.WithDescription("元素名の有効な元素記号のうち、アルファベット順で最初のものを返します。"),
		elementArg(),
	), handler.FirstSymbol)

	s.AddTool(mcp.NewTool("count_symbols",
		mcp.WithDescription("元素名から作れる有効な元素記号の種類数を返します。"),
		elementArg(),
	), handler.CountSymbols)

	s.AddTool(mcp.NewTool("list_symbols",
		mcp.WithDescription("元素名から作れる有効な元素記号をアルファベット順に1行ずつ返します。"),
		elementArg(),
	), handler.ListSymbols)

	if handler.AgentEnabled() {
		s.AddTool(mcp.NewTool("ask",
			mcp.WithDescription("元素記号に関する自然言語の質問に、Gemini エージェントがツールで検証しながら回答します。"),
			mcp.WithString("question",
				mcp.Required(),
				mcp.Description("質問（例: 「Zirconium の記号で一番最初のものは？」）"),
			),
			mcp.WithString("persona",
				mcp.Description("使用するペルソナ名（chemist, tutor）。デフォルト: chemist"),
			),
		), handler.Ask)
	}

	return s
}
