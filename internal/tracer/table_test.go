package tracer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTable_basics(t *testing.T) {
	tbl := NewTable()
	require.False(t, tbl.AllExited(), "empty table precedes root insertion in real use")

	tbl.InsertNew(1)
	require.Equal(t, 1, tbl.Len())
	require.False(t, tbl.AllExited())
	require.True(t, tbl.Exists(1))
	require.False(t, tbl.Exists(2))

	tbl.InsertNew(2)
	tbl.AppendChild(1, 2)

	snap := tbl.Snapshot()
	require.Equal(t, []int{2}, snap[1].Children)
	require.Equal(t, 0, len(snap[2].Children))

	tbl.RecordRSS(2, 4096)
	snap = tbl.Snapshot()
	require.Equal(t, uint64(4096), snap[2].RSSBytes)

	// Single-read invariant: a second RecordRSS call is ignored.
	tbl.RecordRSS(2, 8192)
	snap = tbl.Snapshot()
	require.Equal(t, uint64(4096), snap[2].RSSBytes)

	require.ElementsMatch(t, []int{1, 2}, tbl.AliveIDs())

	tbl.MarkExited(2)
	require.ElementsMatch(t, []int{1}, tbl.AliveIDs())
	require.False(t, tbl.AllExited())

	tbl.MarkExited(1)
	require.True(t, tbl.AllExited())

	// Once exited, never reverts.
	tbl.MarkExited(1)
	require.True(t, tbl.AllExited())
}

func TestTable_insertNewIsIdempotent(t *testing.T) {
	tbl := NewTable()
	tbl.InsertNew(1)
	tbl.AppendChild(1, 2)
	tbl.InsertNew(1) // must not clobber existing record

	snap := tbl.Snapshot()
	require.Equal(t, []int{2}, snap[1].Children)
}

func TestTable_snapshotIsADeepCopy(t *testing.T) {
	tbl := NewTable()
	tbl.InsertNew(1)
	tbl.InsertNew(2)
	tbl.AppendChild(1, 2)

	snap := tbl.Snapshot()
	snap[1].Children[0] = 999

	fresh := tbl.Snapshot()
	require.Equal(t, []int{2}, fresh[1].Children)
}
