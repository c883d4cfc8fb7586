package config

import (
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/cockroachdb/errors"
)

// Config は MCP サーバーの実行時設定です。すべて環境変数から読み込みます。
type Config struct {
	// APIKey が空の場合、ask ツールは登録されません
	APIKey     string `env:"GEMINI_API_KEY"`
	Model      string `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	PersonaDir string `env:"PERSONA_DIR"`
	Persona    string `env:"PERSONA" envDefault:"chemist"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は環境変数から Config を生成します。
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}

	if cfg.PersonaDir == "" {
		// デフォルト: 実行ファイルからの相対パス
		exe, err := os.Executable()
		if err != nil {
			return nil, errors.Wrap(err, "resolve executable path")
		}
		cfg.PersonaDir = filepath.Join(filepath.Dir(exe), "configs", "personas")
	}

	return &cfg, nil
}

// AgentEnabled は Gemini エージェントを利用できるかを返します。
func (c *Config) AgentEnabled() bool {
	return c.APIKey != ""
}
