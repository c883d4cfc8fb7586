package server

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/0muji4/chemsymbol/internal/logging"
	"github.com/0muji4/chemsymbol/internal/persona"
)

type fakeRunner struct {
	prompt string
	answer string
	err    error
}

func (r *fakeRunner) Run(_ context.Context, query string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return r.answer + ": " + query, nil
}

func newHandler(t *testing.T, runner *fakeRunner) *SymbolHandler {
	t.Helper()
	var factory AgentFactory
	if runner != nil {
		factory = func(_ context.Context, systemPrompt string) (Runner, error) {
			runner.prompt = systemPrompt
			return runner, nil
		}
	}
	return NewSymbolHandler(zap.NewNop(), persona.NewLoader(t.TempDir()), persona.DefaultName, factory)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestIsValidSymbol(t *testing.T) {
	h := newHandler(t, nil)
	ctx := context.Background()

	tests := []struct {
		element string
		symbol  string
		want    string
	}{
		{"Boron", "Xy", "false"},
		{"Magnesium", "Ma", "true"},
		{"Magnesium", "Am", "true"},
		{"Xenon", "Nn", "true"},
		{"Xenon", "Xx", "false"},
	}
	for _, tt := range tests {
		res, err := h.IsValidSymbol(ctx, callRequest("is_valid_symbol", map[string]any{
			"element": tt.element,
			"symbol":  tt.symbol,
		}))
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, tt.want, resultText(t, res), "%s/%s", tt.element, tt.symbol)
	}
}

func TestIsValidSymbolContractViolations(t *testing.T) {
	h := newHandler(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"symbol too short", map[string]any{"element": "Boron", "symbol": "B"}, "Symbol B is not 2 characters long"},
		{"element too short", map[string]any{"element": "B", "symbol": "Be"}, "Element B must be at least 2 characters long"},
		{"missing element", map[string]any{"symbol": "Be"}, "element is required"},
		{"missing symbol", map[string]any{"element": "Boron"}, "symbol is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.IsValidSymbol(ctx, callRequest("is_valid_symbol", tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
			assert.Equal(t, tt.want, resultText(t, res))
		})
	}
}

func TestElementQueries(t *testing.T) {
	h := newHandler(t, nil)
	ctx := context.Background()

	res, err := h.FirstSymbol(ctx, callRequest("first_symbol", map[string]any{"element": "Wutrubanibaum"}))
	require.NoError(t, err)
	assert.Equal(t, "Aa", resultText(t, res))

	res, err = h.CountSymbols(ctx, callRequest("count_symbols", map[string]any{"element": "Zirconium"}))
	require.NoError(t, err)
	assert.Equal(t, "33", resultText(t, res))

	res, err = h.ListSymbols(ctx, callRequest("list_symbols", map[string]any{"element": "Aaaabaaa"}))
	require.NoError(t, err)
	assert.Equal(t, "Aa\nAb\nBa", resultText(t, res))

	res, err = h.CountSymbols(ctx, callRequest("count_symbols", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "element is required", resultText(t, res))

	res, err = h.FirstSymbol(ctx, callRequest("first_symbol", map[string]any{"element": "B"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "Element B must be at least 2 characters long", resultText(t, res))
}

func TestAsk(t *testing.T) {
	runner := &fakeRunner{answer: "answer"}
	h := newHandler(t, runner)

	res, err := h.Ask(context.Background(), callRequest("ask", map[string]any{"question": "first symbol of Boron?"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "answer: first symbol of Boron?", resultText(t, res))
	assert.Equal(t, persona.Default().SystemPrompt, runner.prompt)
}

func TestAskErrors(t *testing.T) {
	ctx := context.Background()

	res, err := newHandler(t, nil).Ask(ctx, callRequest("ask", map[string]any{"question": "q"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "ask is disabled")

	h := newHandler(t, &fakeRunner{err: errors.New("boom")})
	res, err = h.Ask(ctx, callRequest("ask", map[string]any{}))
	require.NoError(t, err)
	assert.Equal(t, "question is required", resultText(t, res))

	res, err = h.Ask(ctx, callRequest("ask", map[string]any{"question": "q", "persona": "pirate"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), `failed to load persona "pirate"`)

	res, err = h.Ask(ctx, callRequest("ask", map[string]any{"question": "q"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Equal(t, "agent error: boom", resultText(t, res))
}

func listTools(t *testing.T, h *SymbolHandler) string {
	t.Helper()
	s := New(h)
	msg := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	out, err := json.Marshal(msg)
	require.NoError(t, err)
	return string(out)
}

func TestNewRegistersTools(t *testing.T) {
	out := listTools(t, newHandler(t, nil))
	for _, name := range []string{"is_valid_symbol", "first_symbol", "count_symbols", "list_symbols"} {
		assert.Contains(t, out, `"name":"`+name+`"`)
	}
	assert.NotContains(t, out, `"name":"ask"`)

	out = listTools(t, newHandler(t, &fakeRunner{}))
	assert.Contains(t, out, `"name":"ask"`)
}

func TestCallToolOverProtocol(t *testing.T) {
	s := New(newHandler(t, nil))
	msg := s.HandleMessage(context.Background(), json.RawMessage(
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"first_symbol","arguments":{"element":"Wutrubanibaum"}}}`,
	))
	out, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"text":"Aa"`)
}

func TestToolCallsLogResultFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewSymbolHandler(zap.New(core), persona.NewLoader(t.TempDir()), persona.DefaultName, nil)
	ctx := context.Background()

	_, err := h.IsValidSymbol(ctx, callRequest("is_valid_symbol", map[string]any{"element": "Xenon", "symbol": "Nn"}))
	require.NoError(t, err)
	_, err = h.CountSymbols(ctx, callRequest("count_symbols", map[string]any{"element": "Zuulon"}))
	require.NoError(t, err)

	entries := logs.FilterMessage("tool call").All()
	require.Len(t, entries, 2)

	valid := entries[0].ContextMap()
	assert.Equal(t, "is_valid_symbol", valid[logging.FieldTool])
	assert.Equal(t, true, valid[logging.FieldValid])

	count := entries[1].ContextMap()
	assert.Equal(t, "count_symbols", count[logging.FieldTool])
	assert.Equal(t, "11", count[logging.FieldResult])
}
