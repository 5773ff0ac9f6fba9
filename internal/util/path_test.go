package util

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetResolvedPathEmpty(t *testing.T) {
	out, err := GetResolvedPath("")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestGetResolvedPathAbsolute(t *testing.T) {
	out, err := GetResolvedPath("/var/image.img")
	require.NoError(t, err)
	assert.Equal(t, "/var/image.img", out)
}

func TestGetResolvedPathRelativeUsesParentProcessDirEnv(t *testing.T) {
	t.Setenv(parentProcessDirEnv, "/srv/images")
	out, err := GetResolvedPath("disk.img")
	require.NoError(t, err)
	assert.Equal(t, "/srv/images/disk.img", out)
}

func TestGetResolvedPathRelativeFallsBackToWorkingDirectory(t *testing.T) {
	t.Setenv(parentProcessDirEnv, "")
	wd, err := filepath.Abs(".")
	require.NoError(t, err)

	out, err := GetResolvedPath("disk.img")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "disk.img"), out)
}

func TestGetResolvedPathExpandsHome(t *testing.T) {
	out, err := GetResolvedPath("~/disk.img")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(out))
	assert.Contains(t, out, "disk.img")
}
