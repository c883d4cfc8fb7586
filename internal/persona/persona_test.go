package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePersona(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(body), 0o644))
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, "tutor", "name: tutor\ndescription: teaches\nsystem_prompt: explain step by step\n")

	p, err := NewLoader(dir).Load("tutor")
	require.NoError(t, err)
	assert.Equal(t, "tutor", p.Name)
	assert.Equal(t, "teaches", p.Description)
	assert.Equal(t, "explain step by step", p.SystemPrompt)
}

func TestLoaderFallsBackToDefault(t *testing.T) {
	p, err := NewLoader(t.TempDir()).Load(DefaultName)
	require.NoError(t, err)
	assert.Equal(t, DefaultName, p.Name)
	assert.Contains(t, p.SystemPrompt, "exactly two letters")
}

func TestLoaderDefaultCanBeOverridden(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, DefaultName, "name: chemist\nsystem_prompt: custom prompt\n")

	p, err := NewLoader(dir).Load(DefaultName)
	require.NoError(t, err)
	assert.Equal(t, "custom prompt", p.SystemPrompt)
}

func TestLoaderMissingPersona(t *testing.T) {
	_, err := NewLoader(t.TempDir()).Load("pirate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read persona file")
}

func TestLoaderRejectsTraversal(t *testing.T) {
	_, err := NewLoader(t.TempDir()).Load("../../etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside persona directory")
}

func TestLoaderRelativeRoot(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, "tutor", "name: tutor\nsystem_prompt: explain step by step\n")
	t.Chdir(dir)

	p, err := NewLoader(".").Load("tutor")
	require.NoError(t, err)
	assert.Equal(t, "tutor", p.Name)

	_, err = NewLoader(".").Load("../tutor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside persona directory")
}

func TestLoaderFilesystemRoot(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, "tutor", "name: tutor\nsystem_prompt: explain step by step\n")

	// ルートディレクトリ配下のパスとして名前を解決できる
	name := strings.TrimPrefix(filepath.Join(dir, "tutor"), string(filepath.Separator))
	p, err := NewLoader(string(filepath.Separator)).Load(name)
	require.NoError(t, err)
	assert.Equal(t, "tutor", p.Name)
}

func TestLoadRejectsEmptyPrompt(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, "blank", "name: blank\n")

	_, err := NewLoader(dir).Load("blank")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "system_prompt is empty")
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writePersona(t, dir, "broken", "name: [unterminated\n")

	_, err := NewLoader(dir).Load("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse persona file")
}

func TestShippedPersonas(t *testing.T) {
	loader := NewLoader(filepath.Join("..", "..", "configs", "personas"))
	for _, name := range []string{"chemist", "tutor"} {
		p, err := loader.Load(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name)
	}
}
