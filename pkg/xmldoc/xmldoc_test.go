package xmldoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	root := New("Spar")
	root.SetAttr("Version", "1")
	pc := root.AddChild("ParmContainer")
	pc.AddText("ID", "ABCDEFGHIJ")
	p := pc.AddChild("Span")
	p.SetFloatAttr("Value", 0.1+0.2)
	p.SetFloatAttr("Min", -1e12)

	data, err := Marshal(root)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, "Spar", got.Name)
	assert.Equal(t, 1, AttrValue(got, "Version", 0))
	gpc := got.Child("ParmContainer")
	require.NotNil(t, gpc)
	assert.Equal(t, "ABCDEFGHIJ", Value(gpc, "ID", ""))
	assert.Equal(t, 0.1+0.2, AttrValue(gpc.Child("Span"), "Value", 0.0))
	assert.Equal(t, -1e12, AttrValue(gpc.Child("Span"), "Min", 0.0))
}

func TestDefaults(t *testing.T) {
	n := New("Geom")
	n.AddText("Count", "seven")
	n.AddText("Flag", "1")
	n.AddText("Legacy", "3.0")

	assert.Equal(t, 4, Value(n, "Count", 4), "unparseable falls back")
	assert.Equal(t, 2.5, Value(n, "Missing", 2.5))
	assert.True(t, Value(n, "Flag", false))
	assert.Equal(t, 3, Value(n, "Legacy", 0), "float text read as int")

	var nilNode *Node
	assert.Nil(t, nilNode.Child("x").Child("y"))
	assert.Equal(t, "dflt", Value(nilNode, "x", "dflt"))
	assert.Equal(t, 9.0, AttrValue(nilNode, "x", 9.0))
}

func TestChildrenNamedAndClone(t *testing.T) {
	n := New("Child_List")
	n.AddText("ID", "A")
	n.AddText("Other", "B")
	n.AddText("ID", "C")

	ids := n.ChildrenNamed("ID")
	require.Len(t, ids, 2)
	assert.Equal(t, "A", ids[0].Text)
	assert.Equal(t, "C", ids[1].Text)

	c := n.Clone()
	c.Children[0].Text = "Z"
	assert.Equal(t, "A", n.Children[0].Text)

	var names []string
	n.Walk(func(x *Node) { names = append(names, x.Name) })
	assert.Equal(t, []string{"Child_List", "ID", "Other", "ID"}, names)
}
