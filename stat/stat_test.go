package stat

import "testing"

func TestCountersAccumulate(t *testing.T) {
	s := New()
	s.UpdateIncomingUnique(10)
	s.UpdateIncomingUnique(5)
	s.UpdateIncomingDuplicate(3)
	s.UpdateOutgoing(2)

	snap := s.Snapshot()
	if snap.IncomingUnique != 15 {
		t.Fatalf("IncomingUnique = %d, want 15", snap.IncomingUnique)
	}
	if snap.IncomingDuplicate != 3 {
		t.Fatalf("IncomingDuplicate = %d, want 3", snap.IncomingDuplicate)
	}
	if snap.Outgoing != 2 {
		t.Fatalf("Outgoing = %d, want 2", snap.Outgoing)
	}
}

func TestSnapshotAdd(t *testing.T) {
	a := Snapshot{IncomingUnique: 1, IncomingDuplicate: 2, Outgoing: 3}
	b := Snapshot{IncomingUnique: 10, IncomingDuplicate: 20, Outgoing: 30}

	sum := a.Add(b)
	want := Snapshot{IncomingUnique: 11, IncomingDuplicate: 22, Outgoing: 33}
	if sum != want {
		t.Fatalf("Add = %+v, want %+v", sum, want)
	}
}

func TestZeroValueIsUsable(t *testing.T) {
	var s Stats
	s.UpdateOutgoing(1)
	if s.Snapshot().Outgoing != 1 {
		t.Fatal("zero-value Stats should be ready to use")
	}
}
