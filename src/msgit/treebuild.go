package msgit

import (
	"sort"
	"strings"

	"github.com/TUD-INF-IAI-MCI/matshare/src/oops"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage"
)

type treeNode struct {
	files map[string]StagedEntry
	dirs  map[string]*treeNode
}

func newTreeNode() *treeNode {
	return &treeNode{
		files: make(map[string]StagedEntry),
		dirs:  make(map[string]*treeNode),
	}
}

func (n *treeNode) insert(p string, entry StagedEntry) {
	slash := strings.IndexByte(p, '/')
	if slash < 0 {
		n.files[p] = entry
		return
	}

	dirName := p[:slash]
	child, ok := n.dirs[dirName]
	if !ok {
		child = newTreeNode()
		n.dirs[dirName] = child
	}
	child.insert(p[slash+1:], entry)
}

/*
writeStagedTree writes the staged index as a hierarchy of git tree objects,
bottom-up, and returns the root tree's id. An empty stage yields the empty
tree. Tree objects are content-addressed, so rewriting unchanged subtrees is
a no-op at the storage level.
*/
func writeStagedTree(storer storage.Storer, stage map[string]StagedEntry) (plumbing.Hash, error) {
	root := newTreeNode()
	for p, entry := range stage {
		root.insert(p, entry)
	}
	return writeTreeNode(storer, root)
}

func writeTreeNode(storer storage.Storer, node *treeNode) (plumbing.Hash, error) {
	entries := make([]object.TreeEntry, 0, len(node.files)+len(node.dirs))

	for name, entry := range node.files {
		entries = append(entries, object.TreeEntry{
			Name: name,
			Mode: entry.Mode,
			Hash: entry.Hash,
		})
	}
	for name, child := range node.dirs {
		childHash, err := writeTreeNode(storer, child)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		entries = append(entries, object.TreeEntry{
			Name: name,
			Mode: filemode.Dir,
			Hash: childHash,
		})
	}

	// Git's canonical tree order: directories sort as if their name had a
	// trailing slash.
	sort.Slice(entries, func(i, j int) bool {
		return treeSortKey(entries[i]) < treeSortKey(entries[j])
	})

	tree := object.Tree{Entries: entries}
	obj := storer.NewEncodedObject()
	err := tree.Encode(obj)
	if err != nil {
		return plumbing.ZeroHash, oops.New(err, "failed to encode tree")
	}
	hash, err := storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, oops.New(err, "failed to store tree")
	}
	return hash, nil
}

func treeSortKey(entry object.TreeEntry) string {
	if entry.Mode == filemode.Dir {
		return entry.Name + "/"
	}
	return entry.Name
}
