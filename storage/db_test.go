package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testDatabase(t *testing.T, db Database) {
	t.Helper()

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Put([]byte("k1"), []byte("v1")))
	got, err := db.Get([]byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)

	ok, err := db.Has([]byte("k1"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.Delete([]byte("k1")))
	ok, err = db.Has([]byte("k1"))
	require.NoError(t, err)
	require.False(t, ok)
}

func testIterate(t *testing.T, db Database) {
	t.Helper()

	require.NoError(t, db.Put([]byte("loan/b"), []byte("2")))
	require.NoError(t, db.Put([]byte("loan/a"), []byte("1")))
	require.NoError(t, db.Put([]byte("loan/c"), []byte("3")))
	require.NoError(t, db.Put([]byte("other/a"), []byte("x")))

	var keys []string
	require.NoError(t, db.Iterate([]byte("loan/"), func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return true
	}))
	require.Equal(t, []string{"loan/a", "loan/b", "loan/c"}, keys)

	// Early stop.
	keys = keys[:0]
	require.NoError(t, db.Iterate([]byte("loan/"), func(key, _ []byte) bool {
		keys = append(keys, string(key))
		return false
	}))
	require.Equal(t, []string{"loan/a"}, keys)
}

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	defer db.Close()
	testDatabase(t, db)
	testIterate(t, db)
}

func TestMemDBCopiesValues(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	value := []byte("original")
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 'X'

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), again)
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	require.NoError(t, err)
	defer db.Close()
	testDatabase(t, db)
	testIterate(t, db)
}
