package tracer

import "sync"

// Record is one process's entry in the Table: its discovered children, in
// the order the kernel reported their creation, its exit state, and its
// most recent (exactly-once) RSS reading.
type Record struct {
	ID       int
	Exited   bool
	Children []int
	RSSBytes uint64

	rssSet bool
}

// Table is the in-memory process table: a mapping from pid to Record.
// Every id referenced in any record's Children is also a key in the
// table, and the Children relation forms a tree rooted at whichever pid
// was inserted first (the initial tracee). Table is safe for concurrent
// use, though in the current single-threaded event pump exactly one
// goroutine ever touches it; the mutex exists so a future caller (e.g. a
// reporting goroutine reading a snapshot mid-run) cannot race it for
// free.
type Table struct {
	mu      sync.Mutex
	records map[int]*Record
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{records: make(map[int]*Record)}
}

// InsertNew creates a default record for id. It is a no-op if id is
// already present (inserting the root twice, or re-observing a
// new-descendant event for an id already known, must never clobber an
// existing record's children or RSS reading).
func (t *Table) InsertNew(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.records[id]; ok {
		return
	}
	t.records[id] = &Record{ID: id}
}

// MarkExited sets id's Exited flag. Once true it never reverts; calling
// this on an already-exited or unknown id is a no-op.
func (t *Table) MarkExited(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.records[id]; ok {
		r.Exited = true
	}
}

// RecordRSS sets id's RSSBytes. Per the single-read invariant this should
// be called at most once per record; subsequent calls are ignored rather
// than erroring, since the event pump structurally only ever calls this
// once (it reads RSS only on PTRACE_EVENT_EXIT, which the kernel reports
// once per tracee).
func (t *Table) RecordRSS(id int, bytes uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[id]
	if !ok || r.rssSet {
		return
	}
	r.RSSBytes = bytes
	r.rssSet = true
}

// AppendChild extends parentID's children list with childID, in
// discovery order. Both ids must already exist in the table (the caller
// inserts childID via InsertNew before calling this).
func (t *Table) AppendChild(parentID, childID int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r, ok := t.records[parentID]; ok {
		r.Children = append(r.Children, childID)
	}
}

// AllExited reports whether every record in the table is exited. An
// empty table (nothing inserted yet) is vacuously not "all exited" as far
// as the event pump is concerned — callers must insert the root before
// consulting this.
func (t *Table) AllExited() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.records) == 0 {
		return false
	}
	for _, r := range t.records {
		if !r.Exited {
			return false
		}
	}
	return true
}

// AliveIDs returns a snapshot of the ids whose records are not yet
// exited, so the caller can iterate it without holding the table lock
// (and without the table being mutated mid-iteration by a concurrent
// insert).
func (t *Table) AliveIDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]int, 0, len(t.records))
	for id, r := range t.records {
		if !r.Exited {
			ids = append(ids, id)
		}
	}
	return ids
}

// Exists reports whether id is currently tracked (used by the event pump
// to skip a new-descendant event for a child id it already knows).
func (t *Table) Exists(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.records[id]
	return ok
}

// Snapshot returns a deep copy of every record in the table, keyed by
// pid, for the aggregator/reporter to consume once the pump has drained.
func (t *Table) Snapshot() map[int]Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[int]Record, len(t.records))
	for id, r := range t.records {
		children := make([]int, len(r.Children))
		copy(children, r.Children)
		out[id] = Record{
			ID:       r.ID,
			Exited:   r.Exited,
			Children: children,
			RSSBytes: r.RSSBytes,
		}
	}
	return out
}

// Len returns the number of tracked records (== total_pids once drained).
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
