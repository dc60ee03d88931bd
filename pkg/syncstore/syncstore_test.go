package syncstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.db")

	s, err := Open(path, "@alice:example.org")
	require.NoError(t, err)

	cursor, err := s.LoadCursor()
	require.NoError(t, err)
	assert.Empty(t, cursor)

	require.NoError(t, s.SaveCursor("s1"))
	require.NoError(t, s.SaveCursor("s2"))
	require.NoError(t, s.Close())

	s, err = Open(path, "@alice:example.org")
	require.NoError(t, err)

	defer s.Close()

	cursor, err = s.LoadCursor()
	require.NoError(t, err)
	assert.Equal(t, "s2", cursor)

	require.NoError(t, s.Reset())

	cursor, err = s.LoadCursor()
	require.NoError(t, err)
	assert.Empty(t, cursor)
}

func TestStoreAccountsAreSeparate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cursor.db")

	alice, err := Open(path, "@alice:example.org")
	require.NoError(t, err)
	require.NoError(t, alice.SaveCursor("alice-1"))
	require.NoError(t, alice.Close())

	bob, err := Open(path, "@bob:example.org")
	require.NoError(t, err)

	defer bob.Close()

	cursor, err := bob.LoadCursor()
	require.NoError(t, err)
	assert.Empty(t, cursor)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "cursor.db"), "")
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "missing", "cursor.db"), "@alice:example.org")
	assert.Error(t, err)
}
