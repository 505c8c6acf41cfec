//go:build linux

package rssprobe

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	t.Run("self", func(t *testing.T) {
		rss, err := Read(os.Getpid())
		require.NoError(t, err)
		require.Greater(t, rss, uint64(0))
	})

	t.Run("no such process", func(t *testing.T) {
		_, err := Read(1 << 30)
		require.Error(t, err)
		// internal/tracer's isNoSuchProcess relies on this shape to tell
		// a vanished tracee apart from a genuine malformed-rollup error.
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestParseRollup(t *testing.T) {
	t.Run("well formed", func(t *testing.T) {
		const sample = "Rss:                 128 kB\nPss:                  64 kB\n"
		kb, err := parseRollup(strings.NewReader(sample))
		require.NoError(t, err)
		require.Equal(t, uint64(128*1024), kb)
	})

	t.Run("first matching line wins", func(t *testing.T) {
		const sample = "Rss:                 1 kB\nRss:                 2 kB\n"
		kb, err := parseRollup(strings.NewReader(sample))
		require.NoError(t, err)
		require.Equal(t, uint64(1024), kb)
	})

	t.Run("missing line", func(t *testing.T) {
		_, err := parseRollup(strings.NewReader("Pss: 10 kB\n"))
		require.ErrorIs(t, err, ErrMalformedRollup)
	})

	t.Run("unparseable value", func(t *testing.T) {
		_, err := parseRollup(strings.NewReader("Rss: notanumber kB\n"))
		require.ErrorIs(t, err, ErrMalformedRollup)
	})

	t.Run("empty line after prefix", func(t *testing.T) {
		_, err := parseRollup(strings.NewReader("Rss:\n"))
		require.ErrorIs(t, err, ErrMalformedRollup)
	})
}
