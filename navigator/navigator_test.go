package navigator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playmixer/fala/speech"
)

type said struct {
	mu    sync.Mutex
	texts []string
}

func (s *said) Speak(text string, opts ...speech.SpeakOption) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	return uint64(len(s.texts))
}

func tree() *Node {
	return &Node{ID: "root", Name: "Início", Children: []*Node{
		{ID: "food", Name: "Comida", Children: []*Node{
			{ID: "fruit", Name: "Frutas", Children: []*Node{
				{ID: "apple", Name: "Maçã", Phrase: "Eu quero uma maçã"},
				{ID: "banana", Name: "Banana"},
			}},
			{ID: "water", Name: "Água", Phrase: "Eu quero água"},
		}},
		{ID: "feelings", Name: "Sentimentos", Children: []*Node{
			{ID: "happy", Name: "Feliz", Phrase: "Estou feliz"},
		}},
	}}
}

func TestNavigateRoundTrip(t *testing.T) {
	voice := &said{}
	n := New(tree(), voice)

	require.True(t, n.NavigateTo("food"))
	require.True(t, n.NavigateTo("fruit"))
	assert.Equal(t, []string{"Início", "Comida", "Frutas"}, n.Breadcrumb())
	assert.Equal(t, []string{"root", "food", "fruit"}, n.IDs())

	assert.Equal(t, BackResult{Popped: true}, n.NavigateBack())
	assert.Equal(t, BackResult{Popped: true}, n.NavigateBack())
	assert.Equal(t, []string{"root"}, n.IDs())

	assert.Equal(t, BackResult{Exit: true}, n.NavigateBack())
	assert.Equal(t, 1, n.Depth())
	assert.Equal(t, "root", n.Current().ID)

	assert.Equal(t, []string{"Comida", "Frutas", "Comida", "Início"}, voice.texts)
}

func TestNavigateToRejectsNonChildren(t *testing.T) {
	voice := &said{}
	n := New(tree(), voice)

	assert.False(t, n.NavigateTo("fruit"), "grandchild")
	assert.False(t, n.NavigateTo("missing"))
	require.True(t, n.NavigateTo("food"))
	assert.False(t, n.NavigateTo("water"), "items are selected, not entered")
	assert.Equal(t, 2, n.Depth())
	assert.Equal(t, []string{"Comida"}, voice.texts)
}

func TestSelectItem(t *testing.T) {
	voice := &said{}
	n := New(tree(), voice)
	require.True(t, n.NavigateTo("food"))

	assert.True(t, n.SelectItemByID("water"))
	assert.False(t, n.SelectItemByID("fruit"), "categories are not items")
	require.True(t, n.NavigateTo("fruit"))
	assert.True(t, n.SelectItem(n.Current().Child("banana")))
	assert.False(t, n.SelectItem(nil))

	assert.Equal(t, 3, n.Depth())
	assert.Equal(t, []string{"Comida", "Eu quero água", "Frutas", "Banana"}, voice.texts)
}

func TestFindChild(t *testing.T) {
	n := New(tree(), &said{})

	node, ok := n.FindChild("Sentimentos")
	require.True(t, ok)
	assert.Equal(t, "feelings", node.ID)

	_, ok = n.FindChild("carro")
	assert.False(t, ok)
	_, ok = n.FindChild("  ")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	require.NoError(t, tree().Validate())

	dup := tree()
	dup.Children[1].Children[0].ID = "apple"
	assert.ErrorIs(t, dup.Validate(), ErrDuplicateID)

	empty := &Node{ID: "root", Children: []*Node{{Name: "x"}}}
	assert.ErrorIs(t, empty.Validate(), ErrEmptyID)

	var none *Node
	assert.ErrorIs(t, none.Validate(), ErrNoRoot)
}
