package material

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/models"
	"github.com/TUD-INF-IAI-MCI/matshare/src/msgit"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCourse() *models.Course {
	return &models.Course{
		ID:                     7,
		Slug:                   "analysis-1",
		Name:                   "Analysis 1",
		Language:               "de",
		MagsbsGenerateToc:      true,
		MagsbsTocDepth:         3,
		MagsbsPageNumberingGap: 5,
		MagsbsSourceAuthor:     "Prof. Example",
	}
}

func TestMatucConfigDeterministic(t *testing.T) {
	course := testCourse()

	first, err := GenerateMatucConfig(course)
	require.Nil(t, err)
	second, err := GenerateMatucConfig(course)
	require.Nil(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, msgit.ComputeBlobID(first), msgit.ComputeBlobID(second))

	course.MagsbsTocDepth = 4
	changed, err := GenerateMatucConfig(course)
	require.Nil(t, err)
	assert.NotEqual(t, first, changed)

	assert.Contains(t, string(first), "Analysis 1")
	assert.Contains(t, string(first), "MAGSBS:tocDepth")
}

// The course's own publisher wins over the configured default.
func TestMatucConfigPublisher(t *testing.T) {
	course := testCourse()
	content, err := GenerateMatucConfig(course)
	require.Nil(t, err)
	assert.Contains(t, string(content), config.Config.Matuc.DefaultPublisher)

	course.Publisher = "Springer"
	content, err = GenerateMatucConfig(course)
	require.Nil(t, err)
	assert.Contains(t, string(content), "Springer")
}

// The short-circuit in the config update job: regenerating without any
// settings change must compare equal against the committed blob and stage
// nothing.
func TestMatucConfigShortCircuit(t *testing.T) {
	course := testCourse()
	content, err := GenerateMatucConfig(course)
	require.Nil(t, err)

	repo := msgit.InMemoryRepository()
	browser, err := msgit.Open(repo, "")
	require.Nil(t, err)
	require.Nil(t, browser.PutBytes(MatucConfigPath(), content, filemode.Regular))
	_, err = browser.Commit(msgit.AdminSignature(), "initial config", "refs/heads/master")
	require.Nil(t, err)

	reopened, err := msgit.Open(repo, "refs/heads/master")
	require.Nil(t, err)
	entry, err := reopened.Get(MatucConfigPath())
	require.Nil(t, err)

	regenerated, err := GenerateMatucConfig(course)
	require.Nil(t, err)
	assert.Equal(t, entry.Hash.String(), msgit.ComputeBlobID(regenerated))
}

func TestBuildHTML(t *testing.T) {
	patchMediaRoot(t)
	build := &models.MaterialBuild{
		ID:       1,
		CourseID: 7,
		Format:   models.BuildFormatHTML,
		Revision: "abc",
	}
	resultDir := build.AbsolutePath()

	scratchDir := t.TempDir()
	require.Nil(t, os.MkdirAll(filepath.Join(scratchDir, "images"), 0o755))
	require.Nil(t, os.WriteFile(filepath.Join(scratchDir, "ch01.md"), []byte("# Chapter 1\n\nSome *material*.\n"), 0o644))
	require.Nil(t, os.WriteFile(filepath.Join(scratchDir, "images", "fig1.svg"), []byte("<svg/>"), 0o644))

	err := BuildHTML(context.Background(), scratchDir, testCourse(), build)
	require.Nil(t, err)

	page, err := os.ReadFile(filepath.Join(resultDir, "ch01.html"))
	require.Nil(t, err)
	assert.Contains(t, string(page), "<h1")
	assert.Contains(t, string(page), "Chapter 1")
	assert.Contains(t, string(page), `lang="de"`)

	copied, err := os.ReadFile(filepath.Join(resultDir, "images", "fig1.svg"))
	require.Nil(t, err)
	assert.Equal(t, "<svg/>", string(copied))
}

func TestBuildEPUBCapturesToolFailure(t *testing.T) {
	patchMediaRoot(t)
	build := &models.MaterialBuild{ID: 2, CourseID: 7, Format: models.BuildFormatEPUB, Revision: "abc"}

	// matuc is not installed in the test environment; the builder must
	// surface that as an error, not panic.
	err := BuildEPUB(context.Background(), t.TempDir(), testCourse(), build)
	assert.NotNil(t, err)
}

func TestBuildClaimable(t *testing.T) {
	assert.True(t, buildClaimable(models.BuildWaiting))
	assert.False(t, buildClaimable(models.BuildBuilding))
	assert.False(t, buildClaimable(models.BuildCompleted))
	assert.False(t, buildClaimable(models.BuildFailed))
}

func TestArtifactPatterns(t *testing.T) {
	assert.True(t, isArtifact("gladtex.cache"))
	assert.True(t, isArtifact("ch01.md"))
	assert.False(t, isArtifact("analysis-1-7.epub"))
	assert.False(t, isArtifact("fig1.svg"))
}

// Builds compute their result directory from global config; point the
// media root somewhere disposable for the duration of a test.
func patchMediaRoot(t *testing.T) {
	t.Helper()
	previous := config.Config.Media.Root
	config.Config.Media.Root = t.TempDir()
	t.Cleanup(func() { config.Config.Media.Root = previous })
}
