package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/HouseOfHufflepuff/kill/internal/address"
	"github.com/HouseOfHufflepuff/kill/internal/game"
)

func sampleEvents() []game.Event {
	alice := address.Named("alice")
	bob := address.Named("bob")
	return []game.Event{
		{Seq: 1, Kind: game.EventSpawn, Slot: 10, Spawn: &game.SpawnEvent{Agent: alice, CellID: 0, Units: 100}},
		{Seq: 2, Kind: game.EventMove, Slot: 11, Move: &game.MoveEvent{Agent: alice, From: 0, To: 1, Units: 100}},
		{Seq: 3, Kind: game.EventKill, Slot: 12, Kill: &game.KillEvent{
			Attacker: alice, Defender: bob, AttackerCell: 1, DefenderCell: 2,
			Bounty: 13_320, Burned: 887, SurvivingUnits: 90,
		}},
	}
}

func TestExportAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events"+Ext)
	events := sampleEvents()

	if err := Export(path, events); err != nil {
		t.Fatalf("Export() failed: %v", err)
	}

	var got []game.Event
	err := Read(path, func(ev game.Event) error {
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if len(got) != len(events) {
		t.Fatalf("Read() returned %d events, expected %d", len(got), len(events))
	}
	if got[2].Kill == nil || got[2].Kill.Bounty != 13_320 || got[2].Kill.Defender != events[2].Kill.Defender {
		t.Errorf("kill event not preserved: %+v", got[2].Kill)
	}
	if got[1].Move == nil || got[1].Move.To != 1 {
		t.Errorf("move event not preserved: %+v", got[1].Move)
	}
}

func TestExportCompresses(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter() failed: %v", err)
	}
	ev := sampleEvents()[0]
	for i := 0; i < 500; i++ {
		ev.Seq = uint64(i + 1)
		if err := w.Write(ev); err != nil {
			t.Fatalf("Write() failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	// zstd frame magic
	if !bytes.HasPrefix(buf.Bytes(), []byte{0x28, 0xb5, 0x2f, 0xfd}) {
		t.Error("output is not a zstd stream")
	}

	n := 0
	if err := Decode(&buf, func(game.Event) error { n++; return nil }); err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if n != 500 {
		t.Errorf("decoded %d events, expected 500", n)
	}
}

func TestRotatingHourlyFiles(t *testing.T) {
	dir := t.TempDir()
	current := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)

	r := NewRotating(dir, "events")
	r.now = func() time.Time { return current }

	events := sampleEvents()
	if err := r.Write(events[0]); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := r.Write(events[1]); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	current = current.Add(time.Hour)
	if err := r.Write(events[2]); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	counts := map[string]int{
		"events-2026-03-01-10" + Ext: 2,
		"events-2026-03-01-11" + Ext: 1,
	}
	for name, want := range counts {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected journal file %s: %v", name, err)
		}
		n := 0
		if err := Read(path, func(game.Event) error { n++; return nil }); err != nil {
			t.Fatalf("Read(%s) failed: %v", name, err)
		}
		if n != want {
			t.Errorf("%s holds %d events, expected %d", name, n, want)
		}
	}
}
