package bridge

import (
	"fmt"
	"testing"
)

func TestDeduper_FirstSight(t *testing.T) {
	d := NewDeduper(16)

	if !d.ShouldProcess("k1") {
		t.Fatal("first sight of k1 rejected")
	}
	if d.ShouldProcess("k1") {
		t.Fatal("repeat of k1 accepted while resident")
	}
	if !d.ShouldProcess("k2") {
		t.Fatal("unrelated key rejected")
	}
}

func TestDeduper_EvictionRestoresKey(t *testing.T) {
	d := NewDeduper(8)

	if !d.ShouldProcess("victim") {
		t.Fatal("first sight rejected")
	}

	// Push the set past capacity so the oldest quarter (including
	// "victim") is evicted.
	for i := 0; i < 8; i++ {
		d.ShouldProcess(fmt.Sprintf("filler-%d", i))
	}

	if !d.ShouldProcess("victim") {
		t.Error("evicted key still treated as duplicate")
	}
}

func TestDeduper_EvictsOldestQuarter(t *testing.T) {
	d := NewDeduper(8)

	for i := 0; i < 9; i++ {
		d.ShouldProcess(fmt.Sprintf("k%d", i))
	}

	// 9 entries over an 8-cap evicts 9/4 = 2 oldest.
	if got := d.Len(); got != 7 {
		t.Errorf("Len() = %d after overflow, want 7", got)
	}
	if !d.ShouldProcess("k0") {
		t.Error("oldest key not evicted")
	}
	if d.ShouldProcess("k5") {
		t.Error("young key evicted")
	}
}

func TestDeduper_DefaultCapacity(t *testing.T) {
	d := NewDeduper(0)
	if d.capacity != DefaultDedupeCapacity {
		t.Errorf("capacity = %d, want %d", d.capacity, DefaultDedupeCapacity)
	}
}
