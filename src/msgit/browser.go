package msgit

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

/*
NormalizePath brings a tree path into canonical form: forward slashes, no
leading or trailing slash, no "." or ".." segments. The repository root is
spelled ".".
*/
func NormalizePath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return "", ErrInvalidArgument
		}
	}
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return ".", nil
	}
	return p, nil
}

// A single staged file. Directories are implicit; they come into existence
// when a file is staged under them and vanish when their last file goes.
type StagedEntry struct {
	Hash plumbing.Hash
	Mode filemode.FileMode
}

/*
ContentBrowser is an in-memory staging index over a repository's object
store. Mutations affect only the stage; nothing is visible externally until
Commit writes the staged tree as a new commit and moves a reference to it.

A browser is not safe for concurrent use. Callers needing read-modify-commit
consistency across workers must hold an external lock (the course row lock)
for the whole sequence.
*/
type ContentBrowser struct {
	repo       *Repository
	baseCommit *object.Commit
	stage      map[string]StagedEntry
}

/*
Open loads the tree pointed to by committish into a fresh staging index. An
empty committish starts with an empty stage, and the first Commit will have
no parent. This is how initial commits are made.
*/
func Open(repo *Repository, committish string) (*ContentBrowser, error) {
	browser := &ContentBrowser{
		repo:  repo,
		stage: make(map[string]StagedEntry),
	}

	if committish == "" {
		return browser, nil
	}

	commit, err := repo.ResolveCommittish(committish)
	if err != nil {
		return nil, err
	}
	browser.baseCommit = commit

	tree, err := commit.Tree()
	if err != nil {
		return nil, oops.New(err, "failed to load tree of %s", commit.Hash)
	}
	err = tree.Files().ForEach(func(f *object.File) error {
		browser.stage[f.Name] = StagedEntry{Hash: f.Hash, Mode: f.Mode}
		return nil
	})
	if err != nil {
		return nil, oops.New(err, "failed to walk tree of %s", commit.Hash)
	}

	return browser, nil
}

// Get returns the staged entry at exactly p. Directories have no entries;
// asking for one returns ErrNotFound just like a missing file.
func (cb *ContentBrowser) Get(p string) (StagedEntry, error) {
	p, err := NormalizePath(p)
	if err != nil {
		return StagedEntry{}, err
	}
	entry, ok := cb.stage[p]
	if !ok {
		return StagedEntry{}, ErrNotFound
	}
	return entry, nil
}

// GetContent reads the staged blob at p out of the object store.
func (cb *ContentBrowser) GetContent(p string) ([]byte, error) {
	entry, err := cb.Get(p)
	if err != nil {
		return nil, err
	}
	return cb.readBlob(entry.Hash)
}

func (cb *ContentBrowser) readBlob(hash plumbing.Hash) ([]byte, error) {
	blob, err := object.GetBlob(cb.repo.storer(), hash)
	if err != nil {
		return nil, oops.New(err, "failed to load blob %s", hash)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, oops.New(err, "failed to open blob %s", hash)
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// PutBytes stages content at p, overwriting any existing entry. The blob is
// written to the object store immediately; content-addressing makes that
// safe even if the commit never happens.
func (cb *ContentBrowser) PutBytes(p string, content []byte, mode filemode.FileMode) error {
	p, err := NormalizePath(p)
	if err != nil {
		return err
	}
	if p == "." {
		return ErrInvalidArgument
	}

	hash, err := cb.writeBlob(content)
	if err != nil {
		return err
	}
	cb.stage[p] = StagedEntry{Hash: hash, Mode: mode}
	return nil
}

func (cb *ContentBrowser) writeBlob(content []byte) (plumbing.Hash, error) {
	obj := cb.repo.storer().NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(content)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, oops.New(err, "failed to open blob writer")
	}
	_, err = w.Write(content)
	if err != nil {
		w.Close()
		return plumbing.ZeroHash, oops.New(err, "failed to write blob content")
	}
	err = w.Close()
	if err != nil {
		return plumbing.ZeroHash, oops.New(err, "failed to finish blob")
	}

	return cb.repo.storer().SetEncodedObject(obj)
}

/*
PutFromDir stages every regular file under sourceDir, preserving relative
paths and the executable bit, rooted at destPrefix ("." for the repository
root). Symlinks and other special files are skipped.
*/
func (cb *ContentBrowser) PutFromDir(sourceDir string, destPrefix string) error {
	destPrefix, err := NormalizePath(destPrefix)
	if err != nil {
		return err
	}

	return filepath.Walk(sourceDir, func(fsPath string, info os.FileInfo, err error) error {
		if err != nil {
			return oops.New(err, "failed to walk %s", sourceDir)
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(sourceDir, fsPath)
		if err != nil {
			return oops.New(err, "failed to relativize %s", fsPath)
		}
		treePath := filepath.ToSlash(rel)
		if destPrefix != "." {
			treePath = destPrefix + "/" + treePath
		}

		content, err := os.ReadFile(fsPath)
		if err != nil {
			return oops.New(err, "failed to read %s", fsPath)
		}

		mode := filemode.Regular
		if info.Mode()&0o111 != 0 {
			mode = filemode.Executable
		}
		return cb.PutBytes(treePath, content, mode)
	})
}

/*
CopyFrom resolves committish in another repository, locates sourcePath there
(file or directory), copies the referenced blobs into the local object store
and stages them at destPath. Copying is content-addressed: a blob that
already exists locally is not rewritten, and the copied object's id is
asserted unchanged. Paths equal to or nested under an entry in exclude are
skipped; exclude paths are relative to sourcePath.
*/
func (cb *ContentBrowser) CopyFrom(other *Repository, committish string, sourcePath, destPath string, exclude map[string]bool) error {
	sourcePath, err := NormalizePath(sourcePath)
	if err != nil {
		return err
	}
	destPath, err = NormalizePath(destPath)
	if err != nil {
		return err
	}

	normalizedExclude := make(map[string]bool, len(exclude))
	for p := range exclude {
		p, err := NormalizePath(p)
		if err != nil {
			return err
		}
		normalizedExclude[p] = true
	}

	commit, err := other.ResolveCommittish(committish)
	if err != nil {
		return err
	}
	tree, err := commit.Tree()
	if err != nil {
		return oops.New(err, "failed to load tree of %s", commit.Hash)
	}

	copyFile := func(relPath string, hash plumbing.Hash, mode filemode.FileMode) error {
		if isExcluded(relPath, normalizedExclude) {
			return nil
		}

		blob, err := object.GetBlob(other.storer(), hash)
		if err != nil {
			return oops.New(err, "failed to load blob %s from source repository", hash)
		}
		reader, err := blob.Reader()
		if err != nil {
			return oops.New(err, "failed to open blob %s", hash)
		}
		content, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			return oops.New(err, "failed to read blob %s", hash)
		}

		copiedHash, err := cb.writeBlob(content)
		if err != nil {
			return err
		}
		if copiedHash != hash {
			return oops.New(nil, "copied blob changed identity: %s became %s", hash, copiedHash)
		}

		treePath := relPath
		if destPath != "." {
			if treePath == "." {
				treePath = destPath
			} else {
				treePath = destPath + "/" + treePath
			}
		} else if treePath == "." {
			return ErrInvalidArgument
		}
		cb.stage[treePath] = StagedEntry{Hash: hash, Mode: mode}
		return nil
	}

	if sourcePath == "." {
		return tree.Files().ForEach(func(f *object.File) error {
			return copyFile(f.Name, f.Hash, f.Mode)
		})
	}

	entry, err := tree.FindEntry(sourcePath)
	if err != nil {
		return ErrNotFound
	}

	if entry.Mode == filemode.Dir {
		subtree, err := tree.Tree(sourcePath)
		if err != nil {
			return oops.New(err, "failed to load subtree %s", sourcePath)
		}
		return subtree.Files().ForEach(func(f *object.File) error {
			return copyFile(f.Name, f.Hash, f.Mode)
		})
	}
	return copyFile(".", entry.Hash, entry.Mode)
}

func isExcluded(p string, exclude map[string]bool) bool {
	if exclude[p] {
		return true
	}
	for excluded := range exclude {
		if strings.HasPrefix(p, excluded+"/") {
			return true
		}
	}
	return false
}

/*
Remove unstages the exact path, or everything nested under it if it denotes
a directory. Remove(".") clears the entire index. Returns ErrNotFound if
nothing matched.
*/
func (cb *ContentBrowser) Remove(p string) error {
	p, err := NormalizePath(p)
	if err != nil {
		return err
	}

	if p == "." {
		if len(cb.stage) == 0 {
			return ErrNotFound
		}
		cb.stage = make(map[string]StagedEntry)
		return nil
	}

	removed := false
	for staged := range cb.stage {
		if staged == p || strings.HasPrefix(staged, p+"/") {
			delete(cb.stage, staged)
			removed = true
		}
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

// List returns all staged paths in sorted order.
func (cb *ContentBrowser) List() []string {
	paths := make([]string, 0, len(cb.stage))
	for p := range cb.stage {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

/*
Commit writes the staged state as a new commit, with the commit loaded at
Open time as its parent (or no parents for an initial commit), atomically
moves targetRef to it, and advances the browser's base so subsequent commits
chain correctly. Returns the new commit's id.
*/
func (cb *ContentBrowser) Commit(author object.Signature, message string, targetRef string) (string, error) {
	treeHash, err := writeStagedTree(cb.repo.storer(), cb.stage)
	if err != nil {
		return "", err
	}

	commit := object.Commit{
		Author:    author,
		Committer: author,
		Message:   message,
		TreeHash:  treeHash,
	}
	if cb.baseCommit != nil {
		commit.ParentHashes = []plumbing.Hash{cb.baseCommit.Hash}
	}

	obj := cb.repo.storer().NewEncodedObject()
	err = commit.Encode(obj)
	if err != nil {
		return "", oops.New(err, "failed to encode commit")
	}
	commitHash, err := cb.repo.storer().SetEncodedObject(obj)
	if err != nil {
		return "", oops.New(err, "failed to store commit")
	}

	ref := plumbing.NewHashReference(plumbing.ReferenceName(targetRef), commitHash)
	err = cb.repo.storer().SetReference(ref)
	if err != nil {
		return "", oops.New(err, "failed to update reference %s", targetRef)
	}

	newCommit, err := object.GetCommit(cb.repo.storer(), commitHash)
	if err != nil {
		return "", oops.New(err, "failed to re-read commit %s", commitHash)
	}
	cb.baseCommit = newCommit

	return commitHash.String(), nil
}

/*
WriteSubtreeToDir materializes the staged entries under prefix into
destDir, with the prefix stripped. A prefix of "." materializes everything.
Returns ErrNotFound if nothing is staged under the prefix.
*/
func (cb *ContentBrowser) WriteSubtreeToDir(prefix, destDir string) error {
	prefix, err := NormalizePath(prefix)
	if err != nil {
		return err
	}

	found := false
	for p, entry := range cb.stage {
		rel := p
		if prefix != "." {
			if p != prefix && !strings.HasPrefix(p, prefix+"/") {
				continue
			}
			rel = strings.TrimPrefix(strings.TrimPrefix(p, prefix), "/")
			if rel == "" {
				rel = path.Base(p)
			}
		}
		found = true

		err := cb.writeFileToDir(rel, entry, destDir)
		if err != nil {
			return err
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

/*
WriteToDir materializes the staged index into destDir, creating directories
as needed and honoring the executable bit. Used to populate build scratch
directories.
*/
func (cb *ContentBrowser) WriteToDir(destDir string) error {
	for p, entry := range cb.stage {
		err := cb.writeFileToDir(p, entry, destDir)
		if err != nil {
			return err
		}
	}
	return nil
}

func (cb *ContentBrowser) writeFileToDir(rel string, entry StagedEntry, destDir string) error {
	content, err := cb.readBlob(entry.Hash)
	if err != nil {
		return err
	}

	fsPath := filepath.Join(destDir, filepath.FromSlash(rel))
	err = os.MkdirAll(filepath.Dir(fsPath), 0o755)
	if err != nil {
		return oops.New(err, "failed to create directory for %s", fsPath)
	}

	perm := os.FileMode(0o644)
	if entry.Mode == filemode.Executable {
		perm = 0o755
	}
	err = os.WriteFile(fsPath, content, perm)
	if err != nil {
		return oops.New(err, "failed to write %s", fsPath)
	}
	return nil
}
