package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sub", "spar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDesignRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, s.PutDesign(ctx, "glider", []byte("<Spar/>")))
	got, err := s.GetDesign(ctx, "glider")
	require.NoError(t, err)
	assert.Equal(t, "<Spar/>", string(got))

	require.NoError(t, s.PutDesign(ctx, "glider", []byte("<Spar Version=\"1\"/>")))
	got, err = s.GetDesign(ctx, "glider")
	require.NoError(t, err)
	assert.Equal(t, "<Spar Version=\"1\"/>", string(got))
}

func TestListDesigns(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, s.PutDesign(ctx, "b", []byte("1234")))
	require.NoError(t, s.PutDesign(ctx, "a", []byte("12")))

	list, err := s.ListDesigns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, 2, list[0].Size)
	assert.Equal(t, "b", list[1].Name)
	assert.Equal(t, 4, list[1].Size)
	assert.Equal(t, int64(1700000000), list[1].Updated.Unix())
}

func TestDeleteDesignDropsPresets(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.PutDesign(ctx, "glider", []byte("<Spar/>")))
	require.NoError(t, s.PutPresets(ctx, "glider", []byte("<VarPresets/>")))
	p, err := s.GetPresets(ctx, "glider")
	require.NoError(t, err)
	assert.Equal(t, "<VarPresets/>", string(p))

	require.NoError(t, s.DeleteDesign(ctx, "glider"))
	_, err = s.GetDesign(ctx, "glider")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetPresets(ctx, "glider")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.DeleteDesign(ctx, "glider"), ErrNotFound)
}

func TestEmptyName(t *testing.T) {
	s := openTemp(t)
	assert.Error(t, s.PutDesign(context.Background(), "", nil))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "spar.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.PutDesign(ctx, "x", []byte("doc")))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Equal(t, path, s.Path())
	got, err := s.GetDesign(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "doc", string(got))
}
