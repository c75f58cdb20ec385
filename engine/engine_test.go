package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bonehead-labs/fmf/prompt"
	"github.com/bonehead-labs/fmf/provider"
)

func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fmf.yaml")
	body := "provider: template\nartefacts_dir: " + filepath.Join(dir, "artefacts") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewBuildsTemplateProviderFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	e, err := New(WithConfigPath(cfgPath))
	require.NoError(t, err)
	require.Equal(t, "template", e.provider.Name())
}

func TestNewHonoursProviderOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	p := provider.NewTemplateProvider("fixed response")
	e, err := New(WithConfigPath(cfgPath), WithProvider(p))
	require.NoError(t, err)
	require.Same(t, provider.Provider(p), e.provider)
}

func TestNewHonoursPromptRegistryOverride(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	reg := prompt.NewRegistry(dir, "index.yaml")
	e, err := New(WithConfigPath(cfgPath), WithPromptRegistry(reg))
	require.NoError(t, err)
	require.Same(t, reg, e.registry)
}

func TestWithConnectorRegistersByName(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTestConfig(t, dir)

	local := &stubConnector{name: "docs"}
	e, err := New(WithConfigPath(cfgPath), WithConnector("docs", local))
	require.NoError(t, err)
	require.Same(t, local, e.connectors["docs"])
}
