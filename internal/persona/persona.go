package persona

import (
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// DefaultName は組み込みペルソナの名前です。
const DefaultName = "chemist"

//go:embed chemist.yaml
var defaultPersona []byte

// Persona defines the agent's identity and answering style.
type Persona struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	SystemPrompt string `yaml:"system_prompt"`
}

// Load reads a persona definition from a YAML file.
func Load(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read persona file %s", path)
	}

	p, err := parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse persona file %s", path)
	}
	return p, nil
}

// Default は組み込みの chemist ペルソナを返します。
func Default() *Persona {
	p, err := parse(defaultPersona)
	if err != nil {
		// 埋め込みファイルが壊れているのはビルドの問題
		panic(err)
	}
	return p
}

func parse(data []byte) (*Persona, error) {
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		return nil, errors.New("system_prompt is empty")
	}
	return &p, nil
}

// Loader はディレクトリ内のペルソナを名前で読み込みます。
type Loader struct {
	rootPath string
}

func NewLoader(rootPath string) *Loader {
	return &Loader{rootPath: filepath.Clean(rootPath)}
}

// Load は <root>/<name>.yaml を読み込みます。
// 組み込みペルソナがディレクトリに存在しない場合は Default を返します。
func (l *Loader) Load(name string) (*Persona, error) {
	absPath := filepath.Clean(filepath.Join(l.rootPath, name+".yaml"))

	// パストラバーサル防止
	rel, err := filepath.Rel(l.rootPath, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, errors.Newf("persona %q is outside persona directory", name)
	}

	if name == DefaultName {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return Default(), nil
		}
	}
	return Load(absPath)
}
