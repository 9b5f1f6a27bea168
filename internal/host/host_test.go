package host

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOSEnv_Pid verifies the real environment reports this process's pid.
func TestOSEnv_Pid(t *testing.T) {
	t.Parallel()

	env := NewOSEnv()
	require.Equal(t, os.Getpid(), env.Pid())
}

// TestOSEnv_PidAlive checks the probe against this process and an
// out-of-range pid that cannot exist.
func TestOSEnv_PidAlive(t *testing.T) {
	t.Parallel()

	env := NewOSEnv()
	require.True(t, env.PidAlive(os.Getpid()))
	require.False(t, env.PidAlive(-1))
}

// TestOSEnv_LookupEnv round-trips a variable through the real environment.
func TestOSEnv_LookupEnv(t *testing.T) {
	t.Setenv("BEACON_HOST_TEST_VAR", "present")

	env := NewOSEnv()
	v, ok := env.LookupEnv("BEACON_HOST_TEST_VAR")
	require.True(t, ok)
	require.Equal(t, "present", v)

	_, ok = env.LookupEnv("BEACON_HOST_TEST_MISSING")
	require.False(t, ok)
}

// TestFakeEnv covers the deterministic test double.
func TestFakeEnv(t *testing.T) {
	t.Parallel()

	fake := &FakeEnv{
		PidValue: 4242,
		Vars:     map[string]string{"KEY": "value"},
		Alive:    map[int]bool{100: true},
	}

	require.Equal(t, 4242, fake.Pid())
	require.True(t, fake.PidAlive(4242))
	require.True(t, fake.PidAlive(100))
	require.False(t, fake.PidAlive(200))

	v, ok := fake.LookupEnv("KEY")
	require.True(t, ok)
	require.Equal(t, "value", v)

	require.NoError(t, fake.StartDetached("beacon-updater", "check"))
	require.Equal(t, [][]string{{"beacon-updater", "check"}}, fake.Spawned)
}
