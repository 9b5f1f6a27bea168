package update

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPendingUpdateClone verifies Clone returns a copy and handles nil safely.
func TestPendingUpdateClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*PendingUpdate)(nil).Clone())

	p := &PendingUpdate{
		Version:  "2.3.0",
		Path:     "/tmp/beacon-2.3.0.tar.gz",
		Verified: true,
	}

	c := p.Clone()
	require.Equal(t, p, c)
	require.NotSame(t, p, c)
}

// TestStateClone verifies State.Clone copies fields and deep-copies PendingUpdate.
func TestStateClone(t *testing.T) {
	t.Parallel()

	s := &State{
		CurrentVersion:   "2.2.9",
		LastCheckTime:    1700000000000,
		LastCheckResult:  CheckUpdateAvailable,
		AvailableVersion: "2.3.0",
		PendingUpdate: &PendingUpdate{
			Version:  "2.3.0",
			Path:     "/tmp/artifact",
			Verified: true,
		},
		CheckIntervalMs: 60_000,
	}

	c := s.Clone()
	require.Equal(t, s, c)
	require.NotSame(t, s, c)
	require.NotSame(t, s.PendingUpdate, c.PendingUpdate)
}

// TestDefault checks the shape of a fresh state.
func TestDefault(t *testing.T) {
	t.Parallel()

	s := Default("1.0.0", 30_000, true)
	require.Equal(t, "1.0.0", s.CurrentVersion)
	require.Equal(t, CheckUpToDate, s.LastCheckResult)
	require.Zero(t, s.LastCheckTime)
	require.Equal(t, int64(30_000), s.CheckIntervalMs)
	require.True(t, s.Disabled)
	require.Nil(t, s.PendingUpdate)
	require.Empty(t, s.AvailableVersion)
}
