// Package navigator keeps the breadcrumb over a pictogram vocabulary tree.
package navigator

import (
	"strings"
	"sync"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/playmixer/fala/speech"
)

// minLabelRatio is the TokenSetRatio a spoken label needs to pick a child.
const minLabelRatio = 90

// BackResult tells the host whether back popped a level or asked to leave
// the board.
type BackResult struct {
	Popped bool
	Exit   bool
}

type Option func(*Navigator)

func WithLogger(log *zap.Logger) Option {
	return func(n *Navigator) {
		if log != nil {
			n.log = log
		}
	}
}

// Navigator is created when a board mounts, seeded with the root, and
// dropped when it unmounts. The stack always holds at least the root.
type Navigator struct {
	voice speech.Speaker
	log   *zap.Logger

	mu    sync.Mutex
	stack []*Node
}

func New(root *Node, voice speech.Speaker, opts ...Option) *Navigator {
	n := &Navigator{
		voice: voice,
		log:   zap.NewNop(),
		stack: []*Node{root},
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NavigateTo pushes the child category id of the current node and speaks
// its name. Ids that are not child categories of the current node are
// ignored; callers only offer children of Current.
func (n *Navigator) NavigateTo(id string) bool {
	n.mu.Lock()
	next := n.top().Child(id)
	if next == nil || next.IsItem() {
		n.mu.Unlock()
		n.log.Debug("navigate ignored", zap.String("id", id))
		return false
	}
	n.stack = append(n.stack, next)
	depth := len(n.stack)
	n.mu.Unlock()

	n.log.Debug("navigate", zap.String("id", id), zap.Int("depth", depth))
	n.voice.Speak(next.Name)
	return true
}

// NavigateBack pops one level and speaks the new current node. At the root
// nothing is popped and Exit is reported instead.
func (n *Navigator) NavigateBack() BackResult {
	n.mu.Lock()
	if len(n.stack) <= 1 {
		n.mu.Unlock()
		n.log.Debug("navigate back at root, exit")
		return BackResult{Exit: true}
	}
	n.stack = n.stack[:len(n.stack)-1]
	current := n.top()
	n.mu.Unlock()

	n.voice.Speak(current.Name)
	return BackResult{Popped: true}
}

// SelectItem speaks the phrase of a leaf. The stack is not touched.
func (n *Navigator) SelectItem(item *Node) bool {
	if item == nil || !item.IsItem() {
		return false
	}
	n.log.Debug("select item", zap.String("id", item.ID))
	n.voice.Speak(item.Spoken())
	return true
}

// SelectItemByID selects a leaf among the current node's children.
func (n *Navigator) SelectItemByID(id string) bool {
	n.mu.Lock()
	item := n.top().Child(id)
	n.mu.Unlock()
	return n.SelectItem(item)
}

// FindChild matches a spoken label against the current children, first
// best score wins.
func (n *Navigator) FindChild(label string) (*Node, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return nil, false
	}
	var best *Node
	score := 0
	for _, c := range n.Children() {
		s := fuzzy.TokenSetRatio(strings.ToLower(c.Name), label)
		if s >= minLabelRatio && s > score {
			best, score = c, s
		}
	}
	return best, best != nil
}

func (n *Navigator) Current() *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.top()
}

func (n *Navigator) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.top().Children)
}

func (n *Navigator) Depth() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.stack)
}

// Breadcrumb lists display names from root to current.
func (n *Navigator) Breadcrumb() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, len(n.stack))
	for i, node := range n.stack {
		names[i] = node.Name
	}
	return names
}

// IDs lists node ids from root to current.
func (n *Navigator) IDs() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.stack))
	for _, node := range n.stack {
		ids = append(ids, node.ID)
	}
	return ids
}

func (n *Navigator) top() *Node {
	return n.stack[len(n.stack)-1]
}
