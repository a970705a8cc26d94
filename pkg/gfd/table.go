package gfd

import (
	"sort"
	"time"

	"github.com/dd0wney/cluso-counter/pkg/protocol"
)

// Report is the latest word from one detector about one replica.
type Report struct {
	DetectorID string
	ReplicaID  string
	// Addr is where the detector serves recover; may be empty.
	Addr       string
	Status     protocol.Status
	LastUpdate time.Time
}

// Change is a membership transition produced by a recompute.
type Change struct {
	ReplicaID string
	Joined    bool
}

// Table holds detector reports and the membership derived from them. A
// replica is a member iff at least one report for it is alive and no older
// than the timeout. Members keep arrival order. Table is not safe for
// concurrent use.
type Table struct {
	timeout time.Duration
	reports map[string]*Report
	members []string
}

// NewTable creates an empty table.
func NewTable(timeout time.Duration) *Table {
	return &Table{
		timeout: timeout,
		reports: make(map[string]*Report),
	}
}

// Register records a detector as registered for a replica.
func (t *Table) Register(detectorID, replicaID, addr string, now time.Time) []Change {
	r := t.upsert(detectorID, replicaID, protocol.StatusRegistered, now)
	if addr != "" {
		r.Addr = addr
	}
	return t.recomputeAfter(r, replicaID, now)
}

// Report records a status from a detector. It returns the previous status
// (empty if the detector was unknown) and any membership changes.
func (t *Table) Report(detectorID, replicaID string, status protocol.Status, now time.Time) (protocol.Status, []Change) {
	var prev protocol.Status
	if r, ok := t.reports[detectorID]; ok {
		prev = r.Status
	}
	r := t.upsert(detectorID, replicaID, status, now)
	return prev, t.recomputeAfter(r, replicaID, now)
}

// upsert stores the report and leaves the detector's previous replica id in
// r.ReplicaID until recomputeAfter swaps it.
func (t *Table) upsert(detectorID, replicaID string, status protocol.Status, now time.Time) *Report {
	r, ok := t.reports[detectorID]
	if !ok {
		r = &Report{DetectorID: detectorID, ReplicaID: replicaID}
		t.reports[detectorID] = r
	}
	r.Status = status
	r.LastUpdate = now
	return r
}

func (t *Table) recomputeAfter(r *Report, replicaID string, now time.Time) []Change {
	old := r.ReplicaID
	r.ReplicaID = replicaID

	var changes []Change
	if c, ok := t.recompute(replicaID, now); ok {
		changes = append(changes, c)
	}
	if old != replicaID {
		if c, ok := t.recompute(old, now); ok {
			changes = append(changes, c)
		}
	}
	return changes
}

// Sweep marks every report older than the timeout as failed and recomputes
// membership for every replica in the table. It returns how many reports
// expired and any membership changes.
func (t *Table) Sweep(now time.Time) (int, []Change) {
	expired := 0
	for _, r := range t.reports {
		if r.Status != protocol.StatusFailed && now.Sub(r.LastUpdate) > t.timeout {
			r.Status = protocol.StatusFailed
			expired++
		}
	}

	var changes []Change
	for _, id := range t.ReplicaIDs() {
		if c, ok := t.recompute(id, now); ok {
			changes = append(changes, c)
		}
	}
	return expired, changes
}

func (t *Table) recompute(replicaID string, now time.Time) (Change, bool) {
	alive := t.aliveAnywhere(replicaID, now)
	idx := t.indexOf(replicaID)

	switch {
	case alive && idx < 0:
		t.members = append(t.members, replicaID)
		return Change{ReplicaID: replicaID, Joined: true}, true
	case !alive && idx >= 0:
		t.members = append(t.members[:idx], t.members[idx+1:]...)
		return Change{ReplicaID: replicaID, Joined: false}, true
	default:
		return Change{}, false
	}
}

func (t *Table) aliveAnywhere(replicaID string, now time.Time) bool {
	for _, r := range t.reports {
		if r.ReplicaID == replicaID && r.Status == protocol.StatusAlive && now.Sub(r.LastUpdate) <= t.timeout {
			return true
		}
	}
	return false
}

func (t *Table) indexOf(replicaID string) int {
	for i, m := range t.members {
		if m == replicaID {
			return i
		}
	}
	return -1
}

// Members returns a copy of the ordered membership.
func (t *Table) Members() []string {
	out := make([]string, len(t.members))
	copy(out, t.members)
	return out
}

// ReplicaIDs returns every replica with at least one report, sorted.
func (t *Table) ReplicaIDs() []string {
	seen := make(map[string]bool)
	ids := make([]string, 0, len(t.reports))
	for _, r := range t.reports {
		if !seen[r.ReplicaID] {
			seen[r.ReplicaID] = true
			ids = append(ids, r.ReplicaID)
		}
	}
	sort.Strings(ids)
	return ids
}

// DetectorsFor returns copies of the reports whose detector watches replicaID.
func (t *Table) DetectorsFor(replicaID string) []Report {
	var out []Report
	for _, r := range t.reports {
		if r.ReplicaID == replicaID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectorID < out[j].DetectorID })
	return out
}
