package navigator

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyID     = errors.New("node id is empty")
	ErrDuplicateID = errors.New("duplicate node id")
	ErrNoRoot      = errors.New("vocabulary has no root")
)

// Node is a category when it has children and an item otherwise.
type Node struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Phrase   string  `yaml:"phrase,omitempty"`
	Children []*Node `yaml:"children,omitempty"`
}

func (n *Node) IsItem() bool {
	return len(n.Children) == 0
}

// Child returns the direct child with id.
func (n *Node) Child(id string) *Node {
	for _, c := range n.Children {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Spoken is the text said when an item is selected.
func (n *Node) Spoken() string {
	if n.Phrase != "" {
		return n.Phrase
	}
	return n.Name
}

// Validate checks the tree below n: ids present and unique.
func (n *Node) Validate() error {
	if n == nil {
		return ErrNoRoot
	}
	seen := map[string]struct{}{}
	var walk func(*Node) error
	walk = func(node *Node) error {
		if node.ID == "" {
			return fmt.Errorf("%w (name %q)", ErrEmptyID, node.Name)
		}
		if _, ok := seen[node.ID]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateID, node.ID)
		}
		seen[node.ID] = struct{}{}
		for _, c := range node.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(n)
}
