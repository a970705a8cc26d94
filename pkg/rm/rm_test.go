package rm

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/dd0wney/cluso-counter/pkg/metrics"
	"github.com/dd0wney/cluso-counter/pkg/protocol"
)

type assignment struct {
	id   string
	role protocol.Role
}

type fakeAssigner struct {
	mu    sync.Mutex
	calls []assignment
	fail  map[string]bool
}

func (f *fakeAssigner) AssignRole(_ context.Context, r protocol.ReplicaIdentity, role protocol.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, assignment{r.ID, role})
	if f.fail[r.ID] {
		return errors.New("unreachable")
	}
	return nil
}

func (f *fakeAssigner) take() []assignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.calls
	f.calls = nil
	return out
}

func topology(ids ...string) []protocol.ReplicaIdentity {
	out := make([]protocol.ReplicaIdentity, len(ids))
	for i, id := range ids {
		out[i] = protocol.ReplicaIdentity{ID: id, Endpoint: protocol.Endpoint{URL: "inproc://" + id}}
	}
	return out
}

func newTestManager(mode protocol.Mode) (*Manager, *fakeAssigner, *metrics.Registry) {
	assigner := &fakeAssigner{fail: map[string]bool{}}
	reg := metrics.NewRegistry()
	m := New(Config{
		ListenAddr: "inproc://rm-unit",
		Mode:       mode,
		Replicas:   topology("S1", "S2", "S3"),
		Assigner:   assigner,
		Metrics:    reg,
	})
	return m, assigner, reg
}

func TestPassiveElection(t *testing.T) {
	m, assigner, _ := newTestManager(protocol.ModePassive)
	ctx := context.Background()

	steps := []struct {
		name        string
		members     []string
		wantPrimary string
		wantCalls   []assignment
	}{
		{
			name:        "first member elected",
			members:     []string{"S1"},
			wantPrimary: "S1",
			wantCalls:   []assignment{{"S1", protocol.RolePrimary}},
		},
		{
			name:        "joiners become backups",
			members:     []string{"S1", "S2", "S3"},
			wantPrimary: "S1",
			wantCalls:   []assignment{{"S2", protocol.RoleBackup}, {"S3", protocol.RoleBackup}},
		},
		{
			name:        "unchanged membership is quiet",
			members:     []string{"S1", "S2", "S3"},
			wantPrimary: "S1",
			wantCalls:   nil,
		},
		{
			name:        "backup leaving keeps primary",
			members:     []string{"S1", "S3"},
			wantPrimary: "S1",
			wantCalls:   nil,
		},
		{
			name:        "primary leaving elects next in order",
			members:     []string{"S3", "S2"},
			wantPrimary: "S3",
			wantCalls:   []assignment{{"S3", protocol.RolePrimary}, {"S2", protocol.RoleBackup}},
		},
		{
			name:        "empty membership clears primary",
			members:     []string{},
			wantPrimary: "",
			wantCalls:   nil,
		},
		{
			name:        "recovery after empty elects again",
			members:     []string{"S2"},
			wantPrimary: "S2",
			wantCalls:   []assignment{{"S2", protocol.RolePrimary}},
		},
	}

	for _, step := range steps {
		m.UpdateMembership(ctx, step.members)
		if got := m.Primary(); got != step.wantPrimary {
			t.Errorf("%s: primary = %q, want %q", step.name, got, step.wantPrimary)
		}
		if got := assigner.take(); !reflect.DeepEqual(got, step.wantCalls) {
			t.Errorf("%s: calls = %v, want %v", step.name, got, step.wantCalls)
		}
	}
}

func TestActiveModeRecordsOnly(t *testing.T) {
	m, assigner, _ := newTestManager(protocol.ModeActive)

	m.UpdateMembership(context.Background(), []string{"S2", "S1"})

	if got := m.Members(); !reflect.DeepEqual(got, []string{"S2", "S1"}) {
		t.Errorf("members = %v", got)
	}
	if m.Primary() != "" {
		t.Errorf("primary = %q, want none in active mode", m.Primary())
	}
	if calls := assigner.take(); len(calls) != 0 {
		t.Errorf("active mode issued role calls: %v", calls)
	}
}

func TestUnknownMembersSkipped(t *testing.T) {
	m, assigner, _ := newTestManager(protocol.ModePassive)

	m.UpdateMembership(context.Background(), []string{"S9", "S2", "S1"})

	if m.Primary() != "S2" {
		t.Errorf("primary = %q, want S2 (first known member)", m.Primary())
	}
	want := []assignment{{"S2", protocol.RolePrimary}, {"S1", protocol.RoleBackup}}
	if got := assigner.take(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestAssignmentFailureNotRetried(t *testing.T) {
	m, assigner, _ := newTestManager(protocol.ModePassive)
	assigner.fail["S1"] = true
	ctx := context.Background()

	m.UpdateMembership(ctx, []string{"S1"})
	if m.Primary() != "S1" {
		t.Fatalf("primary = %q, want S1 recorded despite RPC failure", m.Primary())
	}
	assigner.take()

	m.UpdateMembership(ctx, []string{"S1"})
	if calls := assigner.take(); len(calls) != 0 {
		t.Errorf("failed assignment retried on unchanged membership: %v", calls)
	}
}

func TestMissedPrimaryRoleResentOnChange(t *testing.T) {
	m, assigner, _ := newTestManager(protocol.ModePassive)
	assigner.fail["S2"] = true
	ctx := context.Background()

	m.UpdateMembership(ctx, []string{"S2", "S3"})
	want := []assignment{{"S2", protocol.RolePrimary}, {"S3", protocol.RoleBackup}}
	if got := assigner.take(); !reflect.DeepEqual(got, want) {
		t.Fatalf("first round calls = %v, want %v", got, want)
	}

	assigner.fail["S2"] = false
	m.UpdateMembership(ctx, []string{"S2", "S3", "S1"})
	want = []assignment{{"S2", protocol.RolePrimary}, {"S1", protocol.RoleBackup}}
	if got := assigner.take(); !reflect.DeepEqual(got, want) {
		t.Errorf("after change calls = %v, want %v", got, want)
	}

	// Acknowledged now; later changes only touch joiners.
	m.UpdateMembership(ctx, []string{"S2", "S1"})
	if got := assigner.take(); len(got) != 0 {
		t.Errorf("acknowledged primary re-sent its role: %v", got)
	}
	if m.Primary() != "S2" {
		t.Errorf("primary = %q, want S2", m.Primary())
	}
}

func TestZeroModeDefaultsToPassive(t *testing.T) {
	assigner := &fakeAssigner{fail: map[string]bool{}}
	m := New(Config{ListenAddr: "inproc://rm-zero-mode", Replicas: topology("S1"), Assigner: assigner})

	if m.Mode() != protocol.ModePassive {
		t.Errorf("mode = %q, want passive", m.Mode())
	}
	m.UpdateMembership(context.Background(), []string{"S1"})
	if got := assigner.take(); !reflect.DeepEqual(got, []assignment{{"S1", protocol.RolePrimary}}) {
		t.Errorf("calls = %v", got)
	}
}

func TestHandleMembership(t *testing.T) {
	m, _, reg := newTestManager(protocol.ModePassive)

	ack, err := m.HandleMembership(context.Background(), &protocol.MembershipRequest{Membership: []string{"S1", "S2"}})
	if err != nil || !ack.OK {
		t.Fatalf("HandleMembership = %+v, %v", ack, err)
	}
	if m.Primary() != "S1" {
		t.Errorf("primary = %q", m.Primary())
	}
	if m.Mode() != protocol.ModePassive {
		t.Errorf("mode = %s", m.Mode())
	}
	var out dto.Metric
	if err := reg.RMElectionsTotal.Write(&out); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := out.GetCounter().GetValue(); got != 1 {
		t.Errorf("elections = %v, want 1", got)
	}
}
