package version

import (
	"strconv"
	"strings"
)

// Compare orders two dot-separated numeric versions component-wise.
// Missing components count as zero, so "1.2" and "1.2.0" are equal.
// Non-numeric components compare as zero, keeping the ordering total
// even for malformed input. The result is -1, 0 or 1.
func Compare(a, b string) int {
	aParts := strings.Split(strings.TrimSpace(a), ".")
	bParts := strings.Split(strings.TrimSpace(b), ".")

	length := len(aParts)
	if len(bParts) > length {
		length = len(bParts)
	}

	for i := 0; i < length; i++ {
		aNum := componentValue(aParts, i)
		bNum := componentValue(bParts, i)

		switch {
		case aNum < bNum:
			return -1
		case aNum > bNum:
			return 1
		}
	}

	return 0
}

// IsNewer reports whether candidate is strictly newer than current.
func IsNewer(candidate, current string) bool {
	return Compare(candidate, current) > 0
}

// componentValue returns the numeric value of the i-th version component,
// or zero when the component is absent or not a number.
func componentValue(parts []string, i int) int64 {
	if i >= len(parts) {
		return 0
	}

	n, err := strconv.ParseInt(strings.TrimSpace(parts[i]), 10, 64)
	if err != nil {
		return 0
	}

	return n
}
