package core

import "testing"

func TestRegistrySingleRoomMembership(t *testing.T) {
	r := NewRegistry()
	s := newStudentSession("s1", 1, "alice")

	r.Join(s, 10)
	if got, ok := r.RoomOf("s1"); !ok || got != 10 {
		t.Fatalf("expected membership in 10, got %d (%v)", got, ok)
	}

	// Joining a different course atomically moves the session.
	r.Join(s, 20)
	if got, _ := r.RoomOf("s1"); got != 20 {
		t.Fatalf("expected membership in 20, got %d", got)
	}
	if members := r.MembersOf(10); len(members) != 0 {
		t.Fatalf("expected old room empty, got %d members", len(members))
	}
	if members := r.MembersOf(20); len(members) != 1 || members[0].ID != "s1" {
		t.Fatalf("unexpected members of 20: %v", members)
	}
}

func TestRegistryJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	s := newStudentSession("s1", 1, "alice")

	r.Join(s, 10)
	r.Join(s, 10)

	if members := r.MembersOf(10); len(members) != 1 {
		t.Fatalf("expected a single membership, got %d", len(members))
	}
}

func TestRegistryLeave(t *testing.T) {
	r := NewRegistry()
	s := newStudentSession("s1", 1, "alice")

	// Leaving without joining is a no-op.
	r.Leave("s1", 10)

	r.Join(s, 10)
	// Leaving a different room than the current one is a no-op.
	r.Leave("s1", 20)
	if got, ok := r.RoomOf("s1"); !ok || got != 10 {
		t.Fatalf("expected membership in 10 intact, got %d (%v)", got, ok)
	}

	r.Leave("s1", 10)
	if _, ok := r.RoomOf("s1"); ok {
		t.Fatal("expected no membership after leave")
	}
	if members := r.MembersOf(10); len(members) != 0 {
		t.Fatalf("expected empty room, got %d members", len(members))
	}
}

func TestRegistryLeaveAll(t *testing.T) {
	r := NewRegistry()
	s1 := newStudentSession("s1", 1, "alice")
	s2 := newStudentSession("s2", 2, "bob")

	r.Join(s1, 10)
	r.Join(s2, 10)
	r.LeaveAll("s1")

	if _, ok := r.RoomOf("s1"); ok {
		t.Fatal("expected s1 removed")
	}
	if members := r.MembersOf(10); len(members) != 1 || members[0].ID != "s2" {
		t.Fatalf("unexpected members: %v", members)
	}

	// Disconnecting an unjoined session is a no-op.
	r.LeaveAll("ghost")
}

func TestRegistryMembersOfIsSnapshot(t *testing.T) {
	r := NewRegistry()
	s1 := newStudentSession("s1", 1, "alice")
	s2 := newStudentSession("s2", 2, "bob")

	r.Join(s1, 10)
	snapshot := r.MembersOf(10)

	r.Join(s2, 10)
	r.LeaveAll("s1")

	if len(snapshot) != 1 || snapshot[0].ID != "s1" {
		t.Fatalf("snapshot mutated by later joins/leaves: %v", snapshot)
	}
}
