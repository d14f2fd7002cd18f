package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppBuildInfo_BannerFillsBlanks(t *testing.T) {
	info := NewAppBuildInfo("", "2026-08-31", "")

	assert.Equal(t, "Build version: N/A\nBuild date: 2026-08-31\nBuild commit: N/A\n", info.String())
}
