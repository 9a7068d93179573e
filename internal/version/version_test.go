package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFromBuildInfo(t *testing.T) {
	t.Parallel()
	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	info := resolve(Info{}, bi)
	assert.Equal(t, "v0.3.1", info.Version)
	assert.Equal(t, "2026-01-02T03:04:05Z", info.BuildTime)
	assert.Equal(t, "go1.26.0", info.GoVersion)
	assert.Equal(t, "v0.3.1 (0123456789ab-dirty)", info.String())
}

func TestLinkerFlagsWin(t *testing.T) {
	t.Parallel()
	bi := &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "fromvcs"}},
	}
	info := resolve(Info{Version: "1.0.0", Commit: "abc"}, bi)
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, "1.0.0 (abc)", info.String())
}

func TestResolveWithoutBuildInfo(t *testing.T) {
	t.Parallel()
	info := resolve(Info{}, nil)
	assert.Equal(t, devel, info.Version)
	assert.Equal(t, devel, info.String())
}
