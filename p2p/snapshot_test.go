package p2p

import (
	"encoding/json"
	"testing"
)

func TestSessionSnapshotTracksSession(t *testing.T) {
	l := newLink(t, Fleet{{Length: 2, Horizontal: true}})

	snap := NewSessionSnapshot(l.joiner)
	if snap.Role != "JOINER" || snap.Phase != "PREPARING" || snap.Turn != "NONE" {
		t.Fatalf("initial snapshot %s/%s/%s", snap.Role, snap.Phase, snap.Turn)
	}
	if snap.PendingShip == nil || snap.PendingShip.Length != 2 || !snap.PendingShip.Horizontal {
		t.Fatalf("pending ship = %+v", snap.PendingShip)
	}
	if snap.Headline != "Joiner: Preparing Phase" {
		t.Errorf("headline = %q", snap.Headline)
	}

	l.toBattle()
	l.attack(l.host, 5, 5)
	l.attack(l.joiner, 0, 0)
	l.attack(l.joiner, 5, 5)

	snap = NewSessionSnapshot(l.joiner)
	if snap.PendingShip != nil || snap.ShipsRemaining != 0 {
		t.Errorf("pending ship after placement: %+v", snap.PendingShip)
	}
	if snap.ShotsFired != 2 || snap.HitsLanded != 1 {
		t.Fatalf("shots/hits = %d/%d", snap.ShotsFired, snap.HitsLanded)
	}
	if snap.Accuracy != 50 {
		t.Errorf("accuracy = %v, want 50", snap.Accuracy)
	}
	if snap.OpponentGrid[0][0] != 'X' || snap.OpponentGrid[5][5] != 'O' {
		t.Errorf("opponent rows = %v", snap.OpponentGrid[:6])
	}
	if snap.OwnGrid[0][:2] != "SS" || snap.OwnGrid[5][5] != 'O' {
		t.Errorf("own rows = %v", snap.OwnGrid[:6])
	}
	own := l.joiner.OwnGrid()
	if snap.OwnGridDigest != own.Digest() {
		t.Errorf("digest mismatch")
	}

	if host := NewSessionSnapshot(l.host); host.Accuracy != 0 || host.ShotsFired != 1 {
		t.Errorf("host accuracy = %v over %d shots", host.Accuracy, host.ShotsFired)
	}
}

func TestSnapshotSameStateIgnoresVersion(t *testing.T) {
	s := newTestSession(t, RoleHost, nil)
	a := NewSessionSnapshot(s)
	b := NewSessionSnapshot(s)
	b.Version = 9
	if !a.sameState(b) {
		t.Fatalf("identical snapshots compare different")
	}

	s.OnPeerConnected()
	c := NewSessionSnapshot(s)
	if a.sameState(c) {
		t.Fatalf("connection change not detected")
	}
}

func TestSnapshotJSON(t *testing.T) {
	s := newTestSession(t, RoleHost, nil)
	b, err := json.Marshal(NewSessionSnapshot(s))
	if err != nil {
		t.Fatalf("marshal: %s", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %s", err)
	}
	for _, key := range []string{"version", "session_id", "phase", "turn", "own_grid", "opponent_grid", "pending_ship", "fleet_total"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing key %q", key)
		}
	}
	if m["headline"] != "Waiting for opponent to connect..." {
		t.Errorf("headline = %v", m["headline"])
	}
}
