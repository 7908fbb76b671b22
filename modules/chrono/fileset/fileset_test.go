package fileset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootGlobMatchesNested(t *testing.T) {
	m, err := Parse(`root-glob:"src"`)
	require.NoError(t, err)
	require.True(t, m.Matches("src/main.go"))
	require.False(t, m.Matches("docs/readme.md"))
}

func TestNegation(t *testing.T) {
	m, err := Parse(`all() ~ glob:"*.md"`)
	require.NoError(t, err)
	require.True(t, m.Matches("main.go"))
	require.False(t, m.Matches("readme.md"))
}

func TestUnionIntersection(t *testing.T) {
	m, err := Parse(`(root-glob:"a" | root-glob:"b") & ~root-glob:"a/skip"`)
	require.NoError(t, err)
	require.True(t, m.Matches("a/file.go"))
	require.True(t, m.Matches("b/file.go"))
	require.False(t, m.Matches("a/skip/file.go"))
	require.False(t, m.Matches("c/file.go"))
}

func TestParseErrorHasOffset(t *testing.T) {
	_, err := Parse(`glob:"*.go" &`)
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}
