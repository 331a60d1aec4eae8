package watch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWatchThenNotifyMarksDirty(t *testing.T) {
	m := NewManager()
	m.Watch("A", []string{"k"})
	require.False(t, m.IsDirty("A"))

	m.NotifyKeyChange("k")
	require.True(t, m.IsDirty("A"))
}

func TestUnwatchedSessionNeverDirty(t *testing.T) {
	m := NewManager()
	m.Watch("A", []string{"k"})
	m.NotifyKeyChange("other-key")
	require.False(t, m.IsDirty("A"))
}

func TestUnwatchClearsState(t *testing.T) {
	m := NewManager()
	m.Watch("A", []string{"k1", "k2"})
	m.Unwatch("A")
	require.False(t, m.IsDirty("A"))

	// k1/k2 should have no lingering watchers: a notify on them is a no-op.
	m.NotifyKeyChange("k1")
	require.False(t, m.IsDirty("A"))
}

func TestClearSessionOnDisconnect(t *testing.T) {
	m := NewManager()
	m.Watch("A", []string{"k"})
	m.ClearSession("A")
	m.NotifyKeyChange("k")
	require.False(t, m.IsDirty("A"))
}

func TestMultipleSessionsWatchingSameKey(t *testing.T) {
	m := NewManager()
	m.Watch("A", []string{"k"})
	m.Watch("B", []string{"k"})

	m.NotifyKeyChange("k")
	require.True(t, m.IsDirty("A"))
	require.True(t, m.IsDirty("B"))
}

func TestWatchIsIdempotentAcrossCalls(t *testing.T) {
	m := NewManager()
	m.Watch("A", []string{"k"})
	m.Watch("A", []string{"k"}) // re-watch, e.g. a second WATCH before EXEC
	require.False(t, m.IsDirty("A"))
	m.NotifyKeyChange("k")
	require.True(t, m.IsDirty("A"))
}
