package errs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{ConfigError("bad config"), 2},
		{AuthError("missing secret"), 3},
		{ConnectorError("listing failed"), 4},
		{ProcessingError("decode failed"), 5},
		{InferenceError("transport failed"), 6},
		{ProviderError("unsupported"), 6},
		{ExportError("write failed"), 7},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ExitCode(c.err))
	}
}

func TestKindOfWrapped(t *testing.T) {
	base := ConnectorErrorf(assertErr("boom"), "while listing %s", "bucket")
	kind, ok := KindOf(base)
	assert.True(t, ok)
	assert.Equal(t, KindConnector, kind)
	assert.Contains(t, base.Error(), "boom")
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestWrapfWithNilCauseProducesUsableError(t *testing.T) {
	err := ConfigErrorf(nil, "chain config missing %q", "name")
	assert.Contains(t, err.Error(), "chain config missing")
	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindConfig, kind)
}
