package kvstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetRoundTrip(t *testing.T) {
	ns := New(NewMapBackend())
	require.NoError(t, ns.Set("id-a", "theme", "dark"))
	v, ok, err := ns.Get("id-a", "theme")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "dark", v)
}

func TestKeysAreIsolatedPerIdentity(t *testing.T) {
	backend := NewMapBackend()
	ns := New(backend)
	ns.Set("id-a", "k", "a-value")
	ns.Set("id-b", "k", "b-value")

	va, _, _ := ns.Get("id-a", "k")
	vb, _, _ := ns.Get("id-b", "k")
	require.Equal(t, "a-value", va)
	require.Equal(t, "b-value", vb)

	keysA, err := ns.Enumerate("id-a")
	require.NoError(t, err)
	require.Equal(t, []string{"k"}, keysA)
}

func TestClearOnlyRemovesOwnKeys(t *testing.T) {
	backend := NewMapBackend()
	ns := New(backend)
	ns.Set("id-a", "k1", "1")
	ns.Set("id-a", "k2", "2")
	ns.Set("id-b", "k1", "1")

	require.NoError(t, ns.Clear("id-a"))

	lenA, _ := ns.Length("id-a")
	lenB, _ := ns.Length("id-b")
	require.Equal(t, 0, lenA)
	require.Equal(t, 1, lenB)
}

func TestOperationsFailLoudlyWithoutIdentity(t *testing.T) {
	ns := New(NewMapBackend())
	_, _, err := ns.Get("", "k")
	require.ErrorIs(t, err, ErrIdentityUnavailable)

	err = ns.Set("", "k", "v")
	require.ErrorIs(t, err, ErrIdentityUnavailable)

	_, err = ns.Length("")
	require.ErrorIs(t, err, ErrIdentityUnavailable)
}

func TestKeyAtStripsPrefix(t *testing.T) {
	backend := NewMapBackend()
	ns := New(backend)
	ns.Set("id-a", "only-key", "v")

	key, ok, err := ns.KeyAt("id-a", 0)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "only-key", key)
}
