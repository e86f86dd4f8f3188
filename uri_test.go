package pagestore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseURI(t *testing.T) {
	u, err := ParseURI("kv://pool1/container1")
	require.NoError(t, err)
	require.Equal(t, "pool1", u.Pool)
	require.Equal(t, "container1", u.Container)
	require.Equal(t, "kv://pool1/container1", u.String())
}

func TestParseURIContainerWithSlash(t *testing.T) {
	u, err := ParseURI("kv://pool1/a/b/c")
	require.NoError(t, err)
	require.Equal(t, "pool1", u.Pool)
	require.Equal(t, "a/b/c", u.Container)
}

func TestParseURIInvalid(t *testing.T) {
	for _, s := range []string{"", "http://pool/container", "kv://onlypool", "kv:///nolabel"} {
		_, err := ParseURI(s)
		require.Error(t, err, s)
	}
}
