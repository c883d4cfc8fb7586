package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/0muji4/chemsymbol/internal/logging"
	"github.com/0muji4/chemsymbol/internal/symbol"
)

const maxIterations = 10

// Generator は LLM 呼び出しの抽象です。*genai.Client の Models が満たします。
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// SymbolAgent はLLMと元素記号ツールを統括する構造体です
type SymbolAgent struct {
	generator    Generator
	model        string
	systemPrompt string
	logger       *zap.Logger
	history      []*genai.Content
	retryBase    time.Duration
}

// NewGeminiAgent は Gemini API を使う SymbolAgent を生成します
func NewGeminiAgent(ctx context.Context, apiKey, model, systemPrompt string, logger *zap.Logger) (*SymbolAgent, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}
	return New(client.Models, model, systemPrompt, logger), nil
}

func New(generator Generator, model, systemPrompt string, logger *zap.Logger) *SymbolAgent {
	return &SymbolAgent{
		generator:    generator,
		model:        model,
		systemPrompt: systemPrompt,
		logger:       logger,
		retryBase:    30 * time.Second,
	}
}

func elementParam() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeString,
		Description: "元素名（2文字以上のアルファベット、例: Zirconium）",
	}
}

func toolDeclarations() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "is-valid-symbol",
					Description: "2文字のシンボルが指定した元素名の有効な元素記号かを判定します。大文字小文字は区別しません。",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"element": elementParam(),
							"symbol": {
								Type:        genai.TypeString,
								Description: "判定するシンボル（ちょうど2文字、例: Zi）",
							},
						},
						Required: []string{"element", "symbol"},
					},
				},
				{
					Name:        "first-symbol",
					Description: "元素名の有効な元素記号のうち、アルファベット順で最初のものを返します。",
					Parameters: &genai.Schema{
						Type:       genai.TypeObject,
						Properties: map[string]*genai.Schema{"element": elementParam()},
						Required:   []string{"element"},
					},
				},
				{
					Name:        "count-symbols",
					Description: "元素名から作れる有効な元素記号の種類数（重複を除く）を返します。",
					Parameters: &genai.Schema{
						Type:       genai.TypeObject,
						Properties: map[string]*genai.Schema{"element": elementParam()},
						Required:   []string{"element"},
					},
				},
				{
					Name:        "list-symbols",
					Description: "元素名から作れる有効な元素記号をすべてアルファベット順で返します。",
					Parameters: &genai.Schema{
						Type:       genai.TypeObject,
						Properties: map[string]*genai.Schema{"element": elementParam()},
						Required:   []string{"element"},
					},
				},
			},
		},
	}
}

// Run はユーザーの問いかけに対してReActループを実行します
func (a *SymbolAgent) Run(ctx context.Context, userQuery string) (string, error) {
	a.history = append(a.history, genai.NewContentFromText(userQuery, "user"))

	config := &genai.GenerateContentConfig{
		Tools: toolDeclarations(),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(a.systemPrompt)},
		},
	}

	// ReAct Loop
	for i := 0; i < maxIterations; i++ {
		a.logger.Debug("thinking", zap.Int(logging.FieldIteration, i+1))

		resp, err := a.generate(ctx, config)
		if err != nil {
			return "", err
		}

		functionCalls := resp.FunctionCalls()
		if len(functionCalls) == 0 {
			return resp.Text(), nil
		}

		a.history = append(a.history, resp.Candidates[0].Content)

		var responseParts []*genai.Part
		for _, call := range functionCalls {
			resultText, execErr := a.execute(call)
			if execErr != nil {
				resultText = fmt.Sprintf("Error: %v", execErr)
			}
			a.logger.Debug("tool call",
				zap.String(logging.FieldTool, call.Name),
				zap.Any("args", call.Args),
				zap.String(logging.FieldResult, resultText),
			)

			responseParts = append(responseParts, genai.NewPartFromFunctionResponse(
				call.Name,
				map[string]any{"result": resultText},
			))
		}

		a.history = append(a.history, &genai.Content{
			Role:  "tool",
			Parts: responseParts,
		})

		// ループ終盤で最終回答を促す
		if i == maxIterations-2 {
			a.history = append(a.history, genai.NewContentFromText(
				"残りのツール呼び出しは1回です。これまでに得たツールの結果に基づいて、最終的な回答をテキストで出力してください。",
				"user",
			))
		}
	}

	return "", errors.New("agent: loop limit exceeded")
}

// generate はレート制限（429）時に最大2回までリトライします
func (a *SymbolAgent) generate(ctx context.Context, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	for retry := 0; ; retry++ {
		resp, err := a.generator.GenerateContent(ctx, a.model, a.history, config)
		if err == nil {
			return resp, nil
		}
		if !strings.Contains(err.Error(), "429") || retry >= 2 {
			return nil, errors.Wrap(err, "agent: generate content")
		}

		wait := time.Duration(retry+1) * a.retryBase
		a.logger.Warn("rate limited", zap.Duration("wait", wait))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// execute は関数呼び出しを symbol パッケージの操作に変換します
func (a *SymbolAgent) execute(call *genai.FunctionCall) (string, error) {
	switch call.Name {
	case "is-valid-symbol", "first-symbol", "count-symbols", "list-symbols":
	default:
		return "", errors.Newf("unknown tool %q", call.Name)
	}

	element, err := stringArg(call.Args, "element")
	if err != nil {
		return "", err
	}

	switch call.Name {
	case "is-valid-symbol":
		sym, err := stringArg(call.Args, "symbol")
		if err != nil {
			return "", err
		}
		ok, err := symbol.IsValidSymbolOf(element, sym)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(ok), nil

	case "first-symbol":
		return symbol.FirstSymbol(element)

	case "count-symbols":
		n, err := symbol.NumberOfValidSymbols(element)
		if err != nil {
			return "", err
		}
		return strconv.Itoa(n), nil

	default:
		set, err := symbol.Candidates(element)
		if err != nil {
			return "", err
		}
		return strings.Join(set.Sorted(), ", "), nil
	}
}

func stringArg(args map[string]any, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok {
		return "", errors.Mark(errors.Newf("argument %q is required", name), symbol.ErrNullInput)
	}
	return v, nil
}
