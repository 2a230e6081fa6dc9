package kvstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGet_RoundTrip(t *testing.T) {
	s, err := Open(t.TempDir(), DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("k1", []byte("v1")))
	v, ok := s.Get("k1")
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)
}

func TestGet_MissingKey(t *testing.T) {
	s, err := Open(t.TempDir(), DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.Get("missing")
	require.False(t, ok)
}

func TestDelete_RemovesKey(t *testing.T) {
	s, err := Open(t.TempDir(), DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("k1", []byte("v1")))
	require.NoError(t, s.Delete("k1"))
	_, ok := s.Get("k1")
	require.False(t, ok)
}

func TestReopen_RecoversFromWAL(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.Put("k1", []byte("v1")))
	require.NoError(t, s.Put("k2", []byte("v2")))
	require.NoError(t, s.Close())

	reopened, err := Open(dir, DefaultConfig())
	require.NoError(t, err)
	defer reopened.Close()

	v, ok := reopened.Get("k1")
	require.True(t, ok)
	require.Equal(t, []byte("v1"), v)
	require.Equal(t, 2, reopened.Len())
}

func TestReopen_AfterCheckpointStillRecovers(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.Put("k1", []byte("v1")))
	require.NoError(t, s.Checkpoint())
	require.NoError(t, s.Put("k2", []byte("v2")))
	require.NoError(t, s.Close())

	reopened, err := Open(dir, DefaultConfig())
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, 2, reopened.Len())
}

func TestPutBatch_AppliesAllEntries(t *testing.T) {
	s, err := Open(t.TempDir(), DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.PutBatch(map[string][]byte{"a": []byte("1"), "b": []byte("2")}))
	require.Equal(t, 2, s.Len())
}

func TestIterate_VisitsOnlyMatchingPrefix(t *testing.T) {
	s, err := Open(t.TempDir(), DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("user:1", []byte("a")))
	require.NoError(t, s.Put("user:2", []byte("b")))
	require.NoError(t, s.Put("other:1", []byte("c")))

	var seen []string
	s.Iterate("user:", func(key string, _ []byte) bool {
		seen = append(seen, key)
		return true
	})
	require.Len(t, seen, 2)
}

func TestIterate_StopsWhenCallbackReturnsFalse(t *testing.T) {
	s, err := Open(t.TempDir(), DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("a", []byte("1")))
	require.NoError(t, s.Put("b", []byte("2")))
	require.NoError(t, s.Put("c", []byte("3")))

	count := 0
	s.Iterate("", func(_ string, _ []byte) bool {
		count++
		return false
	})
	require.Equal(t, 1, count)
}
