package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "analysis-1.zip", SanitizeFilename("analysis-1.zip"))
	assert.Equal(t, "cool_filename.txt.wow", SanitizeFilename("cool filename.txt.wow"))
	assert.Equal(t, "newlines_aretotallylegal", SanitizeFilename("newlines\naretotallylegal"))
	assert.Equal(t, "unnamed", SanitizeFilename(""))
}

func TestAssetKey(t *testing.T) {
	assert.Equal(t, "abc/material.epub", AssetKey("abc", "material.epub"))
}
