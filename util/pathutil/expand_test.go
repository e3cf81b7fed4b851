package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("NUDGE_TEST_DIR", "/var/tmp/nudge")

	tests := []struct {
		in   string
		want string
	}{
		{"~/logs/nudged.log", filepath.Join(home, "logs", "nudged.log")},
		{"~", home},
		{"$NUDGE_TEST_DIR/x.log", "/var/tmp/nudge/x.log"},
		{"/abs/path.log", "/abs/path.log"},
	}
	for _, tt := range tests {
		got, err := Expand(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "Expand(%q)", tt.in)
	}

	cwd, err := os.Getwd()
	require.NoError(t, err)
	got, err := Expand("rel.log")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "rel.log"), got)
}
