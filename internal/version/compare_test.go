package version

import (
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

// TestVersionStrings ensures Short and Full return non-empty consistent information.
func TestVersionStrings(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
}

// TestCompare covers ordering of dot-separated numeric versions.
func TestCompare(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want int
	}{
		{"2.3.0", "2.2.9", 1},
		{"2.2.9", "2.3.0", -1},
		{"1.0.0", "1.0.0", 0},
		{"1.2", "1.2.0", 0},
		{"1.10.0", "1.9.9", 1},
		{"0.0.1", "0.0.10", -1},
		{"1.0.0.1", "1.0.0", 1},
		{"", "0.0.0", 0},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Compare(tc.a, tc.b), "Compare(%q, %q)", tc.a, tc.b)
	}
}

// TestIsNewer checks that a version is never newer than itself.
func TestIsNewer(t *testing.T) {
	t.Parallel()

	require.True(t, IsNewer("2.3.0", "2.2.9"))
	require.False(t, IsNewer("2.3.0", "2.3.0"))
	require.False(t, IsNewer("2.2.9", "2.3.0"))
}

// genVersionComponents produces slices of non-negative integers representing versions.
func genVersionComponents() gopter.Gen {
	return gen.SliceOfN(3, gen.IntRange(0, 999))
}

// joinVersion renders integer components as a dot-separated version string.
func joinVersion(components []int) string {
	parts := make([]string, 0, len(components))
	for _, c := range components {
		parts = append(parts, fmt.Sprintf("%d", c))
	}

	return strings.Join(parts, ".")
}

// TestCompare_Properties verifies the comparison against component-wise
// numeric ordering for arbitrary version pairs.
func TestCompare_Properties(t *testing.T) {
	t.Parallel()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("comparison agrees with component-wise numeric ordering", prop.ForAll(
		func(a, b []int) bool {
			want := 0

			for i := 0; i < len(a); i++ {
				if a[i] != b[i] {
					if a[i] < b[i] {
						want = -1
					} else {
						want = 1
					}

					break
				}
			}

			return Compare(joinVersion(a), joinVersion(b)) == want
		},
		genVersionComponents(),
		genVersionComponents(),
	))

	properties.Property("a version is never newer than itself", prop.ForAll(
		func(a []int) bool {
			v := joinVersion(a)
			return Compare(v, v) == 0 && !IsNewer(v, v)
		},
		genVersionComponents(),
	))

	properties.Property("zero padding does not change the ordering", prop.ForAll(
		func(a []int) bool {
			v := joinVersion(a)
			return Compare(v, v+".0") == 0 && Compare(v+".0.0", v) == 0
		},
		genVersionComponents(),
	))

	properties.TestingRun(t)
}
