package link

import (
	"testing"

	"github.com/chazu/spar/pkg/geom"
	"github.com/chazu/spar/pkg/kinds"
	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/xmldoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userParm(t *testing.T, m *Manager, name string, val float64) *parm.Parm {
	t.Helper()
	p, err := m.UserParms().Add(name, "", val, -1000, 1000)
	require.NoError(t, err)
	return p
}

func TestAddPropagates(t *testing.T) {
	m := NewManager(parm.NewRegistry())
	a := userParm(t, m, "A", 2)
	b := userParm(t, m, "B", 0)

	l, err := m.Add(a.ID(), b.ID(), false)
	require.NoError(t, err)
	assert.Equal(t, 2.0, b.Get())
	assert.True(t, b.IsLinked())
	assert.Equal(t, l.ID(), b.LinkContainerID())

	a.Set(5)
	assert.Equal(t, 5.0, b.Get())
}

func TestAddInitKeepsTarget(t *testing.T) {
	m := NewManager(parm.NewRegistry())
	a := userParm(t, m, "A", 2)
	b := userParm(t, m, "B", 7)

	l, err := m.Add(a.ID(), b.ID(), true)
	require.NoError(t, err)
	assert.Equal(t, 7.0, b.Get())
	assert.Equal(t, 5.0, l.Offset.Get())

	a.Set(3)
	assert.Equal(t, 8.0, b.Get())
}

func TestScaleAndLimits(t *testing.T) {
	m := NewManager(parm.NewRegistry())
	a := userParm(t, m, "A", 1)
	b := userParm(t, m, "B", 0)
	l, err := m.Add(a.ID(), b.ID(), false)
	require.NoError(t, err)

	l.ScaleFlag.SetBool(true)
	l.Scale.Set(2)
	l.UpperLimitFlag.SetBool(true)
	l.UpperLimit.Set(10)
	l.LowerLimitFlag.SetBool(true)
	l.LowerLimit.Set(-4)
	assert.Equal(t, 2.0, b.Get(), "settings edits re-apply the link")

	a.Set(7)
	assert.Equal(t, 10.0, b.Get())
	a.Set(-7)
	assert.Equal(t, -4.0, b.Get())
	a.Set(3)
	assert.Equal(t, 6.0, b.Get())
}

func TestAddErrors(t *testing.T) {
	m := NewManager(parm.NewRegistry())
	a := userParm(t, m, "A", 1)
	b := userParm(t, m, "B", 1)

	_, err := m.Add(a.ID(), a.ID(), false)
	assert.ErrorIs(t, err, ErrSelfLink)

	_, err = m.Add(a.ID(), "missing", false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.Add(a.ID(), b.ID(), false)
	require.NoError(t, err)
	_, err = m.Add(a.ID(), b.ID(), false)
	assert.ErrorIs(t, err, ErrDuplicate)

	b.SetLinkable(false)
	c := userParm(t, m, "C", 1)
	_, err = m.Add(c.ID(), b.ID(), false)
	assert.ErrorIs(t, err, ErrNotLinkable)
	assert.Equal(t, 1, m.Len())
}

func TestDuplicateUserParm(t *testing.T) {
	m := NewManager(parm.NewRegistry())
	userParm(t, m, "A", 1)
	_, err := m.UserParms().Add("A", DefaultUserGroup, 0, 0, 1)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestCircularLinksStop(t *testing.T) {
	m := NewManager(parm.NewRegistry())
	a := userParm(t, m, "A", 0)
	b := userParm(t, m, "B", 0)

	ab, err := m.Add(a.ID(), b.ID(), false)
	require.NoError(t, err)
	ab.Offset.Set(1)
	ba, err := m.Add(b.ID(), a.ID(), false)
	require.NoError(t, err)
	ba.Offset.Set(1)

	a.Set(4)
	assert.Equal(t, 4.0, a.Get())
	assert.Equal(t, 5.0, b.Get())
}

func TestChainAndHook(t *testing.T) {
	var pushed int
	m := NewManager(parm.NewRegistry(), WithPropagateHook(func(*Link) { pushed++ }))
	a := userParm(t, m, "A", 0)
	b := userParm(t, m, "B", 0)
	c := userParm(t, m, "C", 0)
	_, err := m.Add(a.ID(), b.ID(), false)
	require.NoError(t, err)
	_, err = m.Add(b.ID(), c.ID(), false)
	require.NoError(t, err)

	pushed = 0
	a.Set(9)
	assert.Equal(t, 9.0, c.Get())
	assert.Equal(t, 2, pushed)
	assert.Len(t, m.From(a.ID()), 1)
	assert.True(t, m.UsedInLink(b.ID()))
}

func TestFreeze(t *testing.T) {
	m := NewManager(parm.NewRegistry())
	a := userParm(t, m, "A", 0)
	b := userParm(t, m, "B", 0)
	_, err := m.Add(a.ID(), b.ID(), false)
	require.NoError(t, err)

	m.Freeze()
	a.Set(3)
	assert.Equal(t, 0.0, b.Get())
	m.Thaw()
	a.Set(4)
	assert.Equal(t, 4.0, b.Get())
}

func TestRemoveAndPrune(t *testing.T) {
	m := NewManager(parm.NewRegistry())
	a := userParm(t, m, "A", 0)
	b := userParm(t, m, "B", 0)
	c := userParm(t, m, "C", 0)
	ab, err := m.Add(a.ID(), b.ID(), false)
	require.NoError(t, err)
	_, err = m.Add(a.ID(), c.ID(), false)
	require.NoError(t, err)

	require.NoError(t, m.Remove(ab.ID()))
	assert.False(t, b.IsLinked())
	assert.ErrorIs(t, m.Remove(ab.ID()), ErrNotFound)

	require.True(t, m.UserParms().Remove(c.ID()))
	assert.Equal(t, 1, m.Prune())
	assert.Equal(t, 0, m.Len())

	a.Set(3)
	assert.Equal(t, 0.0, b.Get())
}

func TestCloseStopsPropagation(t *testing.T) {
	m := NewManager(parm.NewRegistry())
	a := userParm(t, m, "A", 0)
	b := userParm(t, m, "B", 0)
	_, err := m.Add(a.ID(), b.ID(), false)
	require.NoError(t, err)

	m.Close()
	a.Set(2)
	assert.Equal(t, 0.0, b.Get())
}

func TestEncodeDecodeInPlace(t *testing.T) {
	m := NewManager(parm.NewRegistry())
	a := userParm(t, m, "A", 2)
	b := userParm(t, m, "B", 0)
	l, err := m.Add(a.ID(), b.ID(), false)
	require.NoError(t, err)
	l.Offset.Set(3)

	root := xmldoc.New("Spar")
	m.Encode(root)
	data, err := xmldoc.Marshal(root)
	require.NoError(t, err)

	doc, err := xmldoc.Unmarshal(data)
	require.NoError(t, err)
	warns := m.Decode(doc.Child(ElemLinkMgr), nil)
	assert.Empty(t, warns)

	require.Equal(t, 1, m.Len())
	got := m.Links()[0]
	assert.Equal(t, a.ID(), got.ParmA())
	assert.Equal(t, b.ID(), got.ParmB())
	assert.Equal(t, 3.0, got.Offset.Get())
	assert.Equal(t, 2, m.UserParms().Len())

	na := m.reg.Parm(a.ID())
	require.NotNil(t, na)
	na.Set(10)
	assert.Equal(t, 13.0, m.reg.Parm(b.ID()).Get())
}

func TestDecodeWithRemap(t *testing.T) {
	src := NewManager(parm.NewRegistry())
	a := userParm(t, src, "A", 1)
	b := userParm(t, src, "B", 0)
	_, err := src.Add(a.ID(), b.ID(), true)
	require.NoError(t, err)
	root := xmldoc.New("Spar")
	src.Encode(root)

	reg := parm.NewRegistry()
	dst := NewManager(reg)
	rm := reg.NewRemapper("paste")
	warns := dst.Decode(root.Child(ElemLinkMgr), rm)
	assert.Empty(t, warns)

	require.Equal(t, 1, dst.Len())
	l := dst.Links()[0]
	assert.Equal(t, rm.Remap(a.ID()), l.ParmA())
	assert.NotNil(t, reg.Parm(l.ParmA()))
	assert.Equal(t, -1.0, l.Offset.Get())
}

func TestDecodeDropsDanglingLinks(t *testing.T) {
	m := NewManager(parm.NewRegistry())
	n := xmldoc.New(ElemLinkMgr)
	e := n.AddChild("Link")
	e.AddText("ParmA", "AAAAAAAAAA")
	e.AddText("ParmB", "BBBBBBBBBB")

	warns := m.Decode(n, nil)
	assert.Len(t, warns, 1)
	assert.Equal(t, 0, m.Len())
}

func TestGeomLink(t *testing.T) {
	reg := parm.NewRegistry()
	model := geom.NewModel(reg, kinds.NewCatalog())
	m := NewManager(reg)

	p1, err := model.Add("Pod", "")
	require.NoError(t, err)
	p2, err := model.Add("Pod", "")
	require.NoError(t, err)
	model.Update(true)

	n, err := m.LinkGroup(p1.ID(), p2.ID(), geom.GroupDesign)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p1.FindParmInGroup(geom.GroupDesign, "Length").Set(25)
	assert.Equal(t, 25.0, p2.FindParmInGroup(geom.GroupDesign, "Length").Get())
	assert.True(t, p2.Flags().Has(geom.DirtySurface))

	model.Update(true)
	assert.InDelta(t, 25, p2.BBox().Max.X, 1e-9)

	_, err = m.LinkGroup(p1.ID(), p1.ID(), geom.GroupDesign)
	assert.ErrorIs(t, err, ErrSelfLink)
	_, err = m.LinkGroup(p1.ID(), "nope", geom.GroupDesign)
	assert.ErrorIs(t, err, ErrNotFound)
}
