package msgit

import (
	"strings"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRef = "refs/heads/master"

func testSignature() object.Signature {
	return CreateSignature("Test", "test@example.com")
}

func TestNormalizePath(t *testing.T) {
	for input, expected := range map[string]string{
		"":             ".",
		".":            ".",
		"/":            ".",
		"edit":         "edit",
		"/edit/":       "edit",
		"edit//ch01":   "edit/ch01",
		"./edit/./a":   "edit/a",
		"edit\\ch01":   "edit/ch01",
		"a/foo..bar.c": "a/foo..bar.c",
	} {
		actual, err := NormalizePath(input)
		require.Nil(t, err, "input %q", input)
		assert.Equal(t, expected, actual, "input %q", input)
	}

	for _, input := range []string{"..", "../x", "edit/../../x"} {
		_, err := NormalizePath(input)
		assert.ErrorIs(t, err, ErrInvalidArgument, "input %q", input)
	}
}

func TestNormalizeRevision(t *testing.T) {
	assert.Equal(t, "", NormalizeRevision(strings.Repeat("0", 40)))
	assert.Equal(t, "", NormalizeRevision(strings.Repeat("0", 64)))
	assert.Equal(t, "abc123", NormalizeRevision("abc123"))
	assert.Equal(t, "", NormalizeRevision(""))
}

func TestRoundTrip(t *testing.T) {
	repo := InMemoryRepository()

	browser, err := Open(repo, "")
	require.Nil(t, err)

	require.Nil(t, browser.PutBytes("edit/ch01.md", []byte("# Chapter 1\n"), filemode.Regular))
	require.Nil(t, browser.PutBytes("src/scan.sh", []byte("#!/bin/sh\n"), filemode.Executable))
	require.Nil(t, browser.PutBytes("edit/ch02.md", []byte("# Chapter 2\n"), filemode.Regular))
	require.Nil(t, browser.Remove("edit/ch02.md"))

	rev, err := browser.Commit(testSignature(), "initial import", testRef)
	require.Nil(t, err)
	require.NotEmpty(t, rev)

	reopened, err := Open(repo, testRef)
	require.Nil(t, err)

	assert.Equal(t, []string{"edit/ch01.md", "src/scan.sh"}, reopened.List())

	content, err := reopened.GetContent("edit/ch01.md")
	require.Nil(t, err)
	assert.Equal(t, "# Chapter 1\n", string(content))

	entry, err := reopened.Get("src/scan.sh")
	require.Nil(t, err)
	assert.Equal(t, filemode.Executable, entry.Mode)

	_, err = reopened.Get("edit/ch02.md")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = reopened.Get("edit")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCommitChaining(t *testing.T) {
	repo := InMemoryRepository()

	browser, err := Open(repo, "")
	require.Nil(t, err)

	require.Nil(t, browser.PutBytes("a.md", []byte("one"), filemode.Regular))
	rev1, err := browser.Commit(testSignature(), "first", testRef)
	require.Nil(t, err)

	require.Nil(t, browser.PutBytes("b.md", []byte("two"), filemode.Regular))
	rev2, err := browser.Commit(testSignature(), "second", testRef)
	require.Nil(t, err)
	require.NotEqual(t, rev1, rev2)

	head, err := repo.ResolveCommittish(testRef)
	require.Nil(t, err)
	assert.Equal(t, rev2, head.Hash.String())
	require.Equal(t, 1, head.NumParents())
	parent, err := head.Parent(0)
	require.Nil(t, err)
	assert.Equal(t, rev1, parent.Hash.String())

	first, err := repo.ResolveCommittish(rev1)
	require.Nil(t, err)
	assert.Equal(t, 0, first.NumParents())
}

func TestRemoveRoot(t *testing.T) {
	repo := InMemoryRepository()

	browser, err := Open(repo, "")
	require.Nil(t, err)
	require.Nil(t, browser.PutBytes("edit/a.md", []byte("a"), filemode.Regular))
	require.Nil(t, browser.PutBytes("src/b.md", []byte("b"), filemode.Regular))
	_, err = browser.Commit(testSignature(), "populate", testRef)
	require.Nil(t, err)

	require.Nil(t, browser.Remove("."))
	_, err = browser.Commit(testSignature(), "clear", testRef)
	require.Nil(t, err)

	reopened, err := Open(repo, testRef)
	require.Nil(t, err)
	assert.Empty(t, reopened.List())

	assert.ErrorIs(t, browser.Remove("."), ErrNotFound)
	assert.ErrorIs(t, browser.Remove("edit"), ErrNotFound)
}

func TestRemoveSubtree(t *testing.T) {
	repo := InMemoryRepository()

	browser, err := Open(repo, "")
	require.Nil(t, err)
	require.Nil(t, browser.PutBytes("edit/ch01/a.md", []byte("a"), filemode.Regular))
	require.Nil(t, browser.PutBytes("edit/ch01/b.md", []byte("b"), filemode.Regular))
	require.Nil(t, browser.PutBytes("edit/ch02.md", []byte("c"), filemode.Regular))

	require.Nil(t, browser.Remove("edit/ch01"))
	assert.Equal(t, []string{"edit/ch02.md"}, browser.List())
}

func TestCopyFromOtherRepository(t *testing.T) {
	source := InMemoryRepository()
	dest := InMemoryRepository()

	sourceBrowser, err := Open(source, "")
	require.Nil(t, err)
	require.Nil(t, sourceBrowser.PutBytes("edit/ch01.md", []byte("# Chapter 1\n"), filemode.Regular))
	require.Nil(t, sourceBrowser.PutBytes("edit/images/fig1.svg", []byte("<svg/>"), filemode.Regular))
	require.Nil(t, sourceBrowser.PutBytes("edit/.lecture_meta_data.dcxml", []byte("<config/>"), filemode.Regular))
	_, err = sourceBrowser.Commit(testSignature(), "source content", testRef)
	require.Nil(t, err)

	destBrowser, err := Open(dest, "")
	require.Nil(t, err)
	err = destBrowser.CopyFrom(source, testRef, "edit", "edit", map[string]bool{
		".lecture_meta_data.dcxml": true,
	})
	require.Nil(t, err)

	assert.Equal(t, []string{"edit/ch01.md", "edit/images/fig1.svg"}, destBrowser.List())

	// Content addressing: corresponding blobs have identical ids in both stores.
	sourceEntry, err := sourceBrowser.Get("edit/ch01.md")
	require.Nil(t, err)
	destEntry, err := destBrowser.Get("edit/ch01.md")
	require.Nil(t, err)
	assert.Equal(t, sourceEntry.Hash, destEntry.Hash)

	_, err = destBrowser.Commit(testSignature(), "import", testRef)
	require.Nil(t, err)
}

func TestCopyFromSingleFile(t *testing.T) {
	source := InMemoryRepository()
	dest := InMemoryRepository()

	sourceBrowser, err := Open(source, "")
	require.Nil(t, err)
	require.Nil(t, sourceBrowser.PutBytes("edit/ch01.md", []byte("hello"), filemode.Regular))
	_, err = sourceBrowser.Commit(testSignature(), "source", testRef)
	require.Nil(t, err)

	destBrowser, err := Open(dest, "")
	require.Nil(t, err)
	require.Nil(t, destBrowser.CopyFrom(source, testRef, "edit/ch01.md", "copied.md", nil))

	content, err := destBrowser.GetContent("copied.md")
	require.Nil(t, err)
	assert.Equal(t, "hello", string(content))

	err = destBrowser.CopyFrom(source, testRef, "edit/nope.md", "x", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComputeBlobID(t *testing.T) {
	repo := InMemoryRepository()
	browser, err := Open(repo, "")
	require.Nil(t, err)

	content := []byte("deterministic content\n")
	require.Nil(t, browser.PutBytes("file.md", content, filemode.Regular))
	entry, err := browser.Get("file.md")
	require.Nil(t, err)

	assert.Equal(t, entry.Hash.String(), ComputeBlobID(content))
}

func TestPathsChanged(t *testing.T) {
	repo := InMemoryRepository()
	browser, err := Open(repo, "")
	require.Nil(t, err)

	require.Nil(t, browser.PutBytes("edit/ch01.md", []byte("v1"), filemode.Regular))
	require.Nil(t, browser.PutBytes("src/scan.pdf", []byte("pdf"), filemode.Regular))
	rev1, err := browser.Commit(testSignature(), "first", testRef)
	require.Nil(t, err)

	require.Nil(t, browser.PutBytes("edit/ch01.md", []byte("v2"), filemode.Regular))
	rev2, err := browser.Commit(testSignature(), "edit only", testRef)
	require.Nil(t, err)

	oldCommit, err := repo.ResolveCommittish(rev1)
	require.Nil(t, err)
	newCommit, err := repo.ResolveCommittish(rev2)
	require.Nil(t, err)

	changed, err := repo.PathsChanged(oldCommit, newCommit, "edit", "src", ".")
	require.Nil(t, err)
	assert.Equal(t, []bool{true, false, true}, changed)

	// nil old commit means everything in the new tree changed
	changed, err = repo.PathsChanged(nil, oldCommit, "edit", "src")
	require.Nil(t, err)
	assert.Equal(t, []bool{true, true}, changed)

	changed, err = repo.PathsChanged(newCommit, newCommit, ".")
	require.Nil(t, err)
	assert.Equal(t, []bool{false}, changed)
}

func TestWalkPairwise(t *testing.T) {
	repo := InMemoryRepository()
	browser, err := Open(repo, "")
	require.Nil(t, err)

	var revs []string
	for _, name := range []string{"a", "b", "c", "d"} {
		require.Nil(t, browser.PutBytes(name+".md", []byte(name), filemode.Regular))
		rev, err := browser.Commit(testSignature(), "add "+name, testRef)
		require.Nil(t, err)
		revs = append(revs, rev)
	}

	head, err := repo.ResolveCommittish(testRef)
	require.Nil(t, err)

	// from rev b (exclusive) to head: d, c, newest first
	infos, err := repo.WalkPairwise(revs[1], head, 10)
	require.Nil(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "add d", infos[0].Summary)
	assert.Equal(t, "add c", infos[1].Summary)

	// bounded by limit
	infos, err = repo.WalkPairwise("", head, 3)
	require.Nil(t, err)
	assert.Len(t, infos, 3)

	// empty fromRevision walks to the root
	infos, err = repo.WalkPairwise("", head, 10)
	require.Nil(t, err)
	assert.Len(t, infos, 4)
}

func TestWalkChanged(t *testing.T) {
	repo := InMemoryRepository()
	browser, err := Open(repo, "")
	require.Nil(t, err)

	require.Nil(t, browser.PutBytes("src/ch01.tex", []byte("v1"), filemode.Regular))
	_, err = browser.Commit(testSignature(), "src 1", testRef)
	require.Nil(t, err)

	require.Nil(t, browser.PutBytes("edit/ch01.md", []byte("v1"), filemode.Regular))
	editRev, err := browser.Commit(testSignature(), "edit 1", testRef)
	require.Nil(t, err)

	require.Nil(t, browser.PutBytes("src/ch01.tex", []byte("v2"), filemode.Regular))
	srcRev, err := browser.Commit(testSignature(), "src 2", testRef)
	require.Nil(t, err)

	head, err := repo.ResolveCommittish(srcRev)
	require.Nil(t, err)

	// only commits that touched the subtree show up
	infos, err := repo.WalkChanged("", head, "edit", 10)
	require.Nil(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "edit 1", infos[0].Summary)

	// the root commit counts when the subtree exists in it
	infos, err = repo.WalkChanged("", head, "src", 10)
	require.Nil(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "src 2", infos[0].Summary)
	assert.Equal(t, "src 1", infos[1].Summary)

	// the limit bounds kept commits, not visited ones
	infos, err = repo.WalkChanged("", head, "src", 1)
	require.Nil(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "src 2", infos[0].Summary)

	// fromRevision is exclusive
	infos, err = repo.WalkChanged(editRev, head, "src", 10)
	require.Nil(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "src 2", infos[0].Summary)
}

func TestOpenMissingRef(t *testing.T) {
	repo := InMemoryRepository()
	_, err := Open(repo, testRef)
	assert.ErrorIs(t, err, ErrNotFound)
}
