package logging

import (
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ログのフィールド名
const (
	FieldTool       = "tool"
	FieldElement    = "element"
	FieldSymbol     = "symbol"
	FieldDurationMS = "duration_ms"
	FieldIteration  = "iteration"
	FieldPersona    = "persona"
	FieldValid      = "valid"
	FieldResult     = "result"
)

// New は JSON 形式で stderr に出力する zap.Logger を生成します。
// stdout は MCP の stdio トランスポートが使用するため、ログには使えません。
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return logger, nil
}
