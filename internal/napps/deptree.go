package napps

import (
	"context"
	"fmt"
	"io"

	"github.com/kytos/kytos-utils/internal/napp"
)

// DependencyNode is one NApp of a dependency tree as the NApps server
// describes it.
type DependencyNode struct {
	ID        napp.Identity
	Version   string
	Children  []*DependencyNode
	Deduped   bool  // already shown earlier in the tree
	Installed bool  // present in the installed set
	Err       error // the NApps server could not describe it
}

// DependencyTree resolves id and its declared dependencies from the NApps
// server, marking what is installed already. Repeated NApps, cycles
// included, appear once in full and then as deduped leaves.
func (m *Manager) DependencyTree(ctx context.Context, id napp.Identity) (*DependencyNode, error) {
	if m.reg == nil {
		return nil, fmt.Errorf("no napps server configured")
	}
	installed, err := m.Installed(ctx)
	if err != nil {
		return nil, err
	}
	return m.buildNode(ctx, id, installed, napp.NewSet()), nil
}

func (m *Manager) buildNode(ctx context.Context, id napp.Identity, installed, seen napp.Set) *DependencyNode {
	node := &DependencyNode{ID: id, Installed: installed.Contains(id.Key)}
	if seen.Contains(id.Key) {
		node.Deduped = true
		return node
	}
	seen.Add(id.Key)

	desc, err := m.reg.Get(ctx, id.Key)
	if err != nil {
		node.Err = err
		return node
	}
	node.Version = desc.Version

	deps, err := desc.Dependencies()
	if err != nil {
		node.Err = err
		return node
	}
	for _, dep := range deps {
		node.Children = append(node.Children, m.buildNode(ctx, dep, installed, seen))
	}
	return node
}

// PrintTree draws the tree rooted at node.
func PrintTree(w io.Writer, node *DependencyNode) {
	fmt.Fprintf(w, "  %s\n", nodeLabel(node))
	printChildren(w, node, "  ")
}

func printChildren(w io.Writer, node *DependencyNode, prefix string) {
	for i, child := range node.Children {
		connector, extension := "├── ", "│   "
		if i == len(node.Children)-1 {
			connector, extension = "└── ", "    "
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, connector, nodeLabel(child))
		printChildren(w, child, prefix+extension)
	}
}

func nodeLabel(node *DependencyNode) string {
	label := node.ID.Key.String()
	if node.Version != "" {
		label += " " + node.Version
	}
	switch {
	case node.Err != nil:
		label += " (" + node.Err.Error() + ")"
	case node.Deduped:
		label += " (deduped)"
	case node.Installed:
		label += " (already installed)"
	}
	return label
}
