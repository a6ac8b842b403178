package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disiqueira/gotree/v3"
)

// placementTree renders the destinations of a run as a directory tree.
type placementTree struct {
	base   string
	tree   gotree.Tree
	dirs   map[string]gotree.Tree
	failed gotree.Tree
}

func newPlacementTree(libraryBase string) *placementTree {
	return &placementTree{
		base: libraryBase,
		tree: gotree.New(libraryBase),
		dirs: make(map[string]gotree.Tree),
	}
}

func (t *placementTree) getDir(dirPath string) gotree.Tree {
	if dirPath == "." || dirPath == string(filepath.Separator) {
		return t.tree
	}
	dir := t.dirs[dirPath]
	if dir == nil {
		parent := t.getDir(filepath.Dir(dirPath))
		dir = parent.Add(filepath.Base(dirPath))
		t.dirs[dirPath] = dir
	}
	return dir
}

// Insert adds one journal row. Destinations outside the library show up with
// their full path.
func (t *placementTree) Insert(p Placement) {
	switch p.Status {
	case statusFailed:
		if t.failed == nil {
			t.failed = gotree.New("left in place")
		}
		t.failed.Add(fmt.Sprintf("%s (%s)", p.Source, p.Err))
		return
	case statusSkipped:
		return
	}

	rel, err := filepath.Rel(t.base, p.Destination)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = p.Destination
	}
	prefix := ""
	switch p.Route {
	case RouteDuplicate:
		prefix = "≡ "
	case RouteSymlink:
		prefix = "⚠ "
	}
	t.getDir(filepath.Dir(rel)).Add(prefix + filepath.Base(rel))
}

func (t *placementTree) Render() string {
	out := t.tree.Print()
	if t.failed != nil {
		out += t.failed.Print()
	}
	return out
}

// renderPlacements builds the tree for a whole journal.
func renderPlacements(libraryBase string, placements []Placement) string {
	t := newPlacementTree(libraryBase)
	for _, p := range placements {
		t.Insert(p)
	}
	return t.Render()
}
