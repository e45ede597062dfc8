package msgit

import (
	"errors"
	"strings"
	"time"

	"github.com/TUD-INF-IAI-MCI/matshare/src/config"
	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Returned when a path, reference or object does not exist. Callers often
// translate this into "create new" semantics.
var ErrNotFound = errors.New("not found")

// Returned for malformed committishes, bad paths and type confusion (e.g. a
// blob where a tree was expected). These are programmer errors.
var ErrInvalidArgument = errors.New("invalid argument")

// The all-zero object ids git reports when a reference is deleted, in both
// SHA-1 and SHA-256 widths.
var nullRevisions = []string{
	strings.Repeat("0", 40),
	strings.Repeat("0", 64),
}

// NormalizeRevision maps the null-revision sentinels to the empty string,
// which is how "no revision" is stored on course rows.
func NormalizeRevision(rev string) string {
	for _, null := range nullRevisions {
		if rev == null {
			return ""
		}
	}
	return rev
}

// A thin handle around a bare git repository. All content access goes
// through ContentBrowser; Repository itself only resolves committishes and
// reads immutable history.
type Repository struct {
	repo *git.Repository
}

func OpenRepository(path string) (*Repository, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, ErrNotFound
		}
		return nil, oops.New(err, "failed to open repository at %s", path)
	}
	return &Repository{repo: repo}, nil
}

func InitBareRepository(path string) (*Repository, error) {
	repo, err := git.PlainInit(path, true)
	if err != nil {
		return nil, oops.New(err, "failed to init bare repository at %s", path)
	}
	return &Repository{repo: repo}, nil
}

// InMemoryRepository creates a repository backed by in-memory storage.
// Used by tests; nothing touches the filesystem.
func InMemoryRepository() *Repository {
	repo, err := git.Init(memory.NewStorage(), nil)
	if err != nil {
		panic(oops.New(err, "failed to init in-memory repository"))
	}
	return &Repository{repo: repo}
}

func (r *Repository) storer() storage.Storer {
	return r.repo.Storer
}

/*
ResolveCommittish resolves a reference name, hash or other revision
expression to the commit it points at. Returns ErrNotFound for references
that do not exist yet (e.g. the main ref of a freshly initialized
repository) and ErrInvalidArgument for expressions git cannot parse.
*/
func (r *Repository) ResolveCommittish(committish string) (*object.Commit, error) {
	if committish == "" {
		return nil, ErrInvalidArgument
	}

	hash, err := r.repo.ResolveRevision(plumbing.Revision(committish))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, ErrNotFound
		}
		return nil, oops.New(err, "failed to resolve committish %q", committish)
	}

	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, oops.New(err, "committish %q did not resolve to a commit", committish)
	}
	return commit, nil
}

// ComputeBlobID returns the content-addressed id the given bytes would get
// as a blob, without storing anything.
func ComputeBlobID(content []byte) string {
	return plumbing.ComputeHash(plumbing.BlobObject, content).String()
}

func CreateSignature(name, email string) object.Signature {
	return object.Signature{
		Name:  name,
		Email: email,
		When:  time.Now(),
	}
}

// AdminSignature is used for commits the system makes on its own behalf
// (config regeneration, course imports).
func AdminSignature() object.Signature {
	return CreateSignature("MatShare", config.Config.Email.GitAdminEmail)
}

type CommitInfo struct {
	Hash    string
	Author  string
	Date    time.Time
	Summary string
}

func ExtractCommitInfo(commit *object.Commit) CommitInfo {
	summary := commit.Message
	if idx := strings.IndexByte(summary, '\n'); idx >= 0 {
		summary = summary[:idx]
	}
	return CommitInfo{
		Hash:    commit.Hash.String(),
		Author:  commit.Author.Name,
		Date:    commit.Author.When,
		Summary: strings.TrimSpace(summary),
	}
}

/*
WalkPairwise walks first-parent history from `to` backwards, collecting
commits newest-first, and stops when it reaches the commit named by
fromRevision (exclusive) or when limit commits have been collected. An empty
fromRevision walks to the root of history (still bounded by limit).
*/
func (r *Repository) WalkPairwise(fromRevision string, to *object.Commit, limit int) ([]CommitInfo, error) {
	var result []CommitInfo

	current := to
	for current != nil && len(result) < limit {
		if current.Hash.String() == fromRevision {
			break
		}
		result = append(result, ExtractCommitInfo(current))

		if current.NumParents() == 0 {
			break
		}
		parent, err := current.Parent(0)
		if err != nil {
			return nil, oops.New(err, "failed to load parent of %s", current.Hash)
		}
		current = parent
	}

	return result, nil
}

/*
WalkChanged walks like WalkPairwise but keeps only commits whose diff
against their first parent touched the given path prefix. The limit bounds
the kept commits, not the commits visited. A root commit is diffed against
the empty tree, so it counts whenever the prefix exists at all.
*/
func (r *Repository) WalkChanged(fromRevision string, to *object.Commit, prefix string, limit int) ([]CommitInfo, error) {
	var result []CommitInfo

	current := to
	for current != nil && len(result) < limit {
		if current.Hash.String() == fromRevision {
			break
		}

		var parent *object.Commit
		if current.NumParents() > 0 {
			var err error
			parent, err = current.Parent(0)
			if err != nil {
				return nil, oops.New(err, "failed to load parent of %s", current.Hash)
			}
		}

		changed, err := r.PathsChanged(parent, current, prefix)
		if err != nil {
			return nil, err
		}
		if changed[0] {
			result = append(result, ExtractCommitInfo(current))
		}

		current = parent
	}

	return result, nil
}

/*
PathsChanged diffs the trees of two commits and reports, for each prefix,
whether any changed path equals the prefix or lies under it. A prefix of "."
matches any change at all. oldCommit may be nil, in which case every path in
newCommit's tree counts as changed.
*/
func (r *Repository) PathsChanged(oldCommit, newCommit *object.Commit, prefixes ...string) ([]bool, error) {
	changedPaths, err := r.changedPaths(oldCommit, newCommit)
	if err != nil {
		return nil, err
	}

	result := make([]bool, len(prefixes))
	for i, prefix := range prefixes {
		prefix, err := NormalizePath(prefix)
		if err != nil {
			return nil, err
		}
		for _, changed := range changedPaths {
			if prefix == "." || changed == prefix || strings.HasPrefix(changed, prefix+"/") {
				result[i] = true
				break
			}
		}
	}
	return result, nil
}

func (r *Repository) changedPaths(oldCommit, newCommit *object.Commit) ([]string, error) {
	newTree, err := newCommit.Tree()
	if err != nil {
		return nil, oops.New(err, "failed to load tree of %s", newCommit.Hash)
	}

	var oldTree *object.Tree
	if oldCommit != nil {
		oldTree, err = oldCommit.Tree()
		if err != nil {
			return nil, oops.New(err, "failed to load tree of %s", oldCommit.Hash)
		}
	}

	changes, err := object.DiffTree(oldTree, newTree)
	if err != nil {
		return nil, oops.New(err, "failed to diff trees")
	}

	var paths []string
	for _, change := range changes {
		if change.From.Name != "" {
			paths = append(paths, change.From.Name)
		}
		if change.To.Name != "" && change.To.Name != change.From.Name {
			paths = append(paths, change.To.Name)
		}
	}
	return paths, nil
}
