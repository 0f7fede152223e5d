package randx

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageID_IsSortable(t *testing.T) {
	prev := MessageID()
	for range 100 {
		next := MessageID()
		require.Less(t, prev, next)
		prev = next
	}
}

func TestConnectionID_Unique(t *testing.T) {
	a, b := ConnectionID(), ConnectionID()
	require.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "conn_"))
}

func TestIsValidRoomKey(t *testing.T) {
	require.True(t, IsValidRoomKey("group-A"))
	require.True(t, IsValidRoomKey("lab_chat_global"))
	require.False(t, IsValidRoomKey(""))
	require.False(t, IsValidRoomKey(" group-A"))
	require.False(t, IsValidRoomKey("group\nA"))
	require.False(t, IsValidRoomKey(strings.Repeat("x", MaxRoomKeyLength+1)))
}

func TestNormalizeDisplayName(t *testing.T) {
	name, ok := NormalizeDisplayName("  Asha  ")
	require.True(t, ok)
	require.Equal(t, "Asha", name)

	_, ok = NormalizeDisplayName("   ")
	require.False(t, ok)

	_, ok = NormalizeDisplayName(strings.Repeat("é", MaxDisplayNameLength+1))
	require.False(t, ok)
}
