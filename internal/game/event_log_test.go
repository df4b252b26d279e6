package game

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
)

func TestEmitBeforeStartIsRejected(t *testing.T) {
	el := NewEventLog()
	ok := el.EmitSimple(EventGameStarted, 0, "", nil)
	if ok {
		t.Error("Emit before Start should be rejected")
	}
}

func TestStartWriteStopFlushesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	el := NewEventLog()
	if err := el.Start(path); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		if !el.EmitSimple(EventStateDelta, uint64(i), "", map[string]int{"i": i}) {
			t.Fatalf("emit %d was unexpectedly rejected", i)
		}
	}
	el.Stop()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file failed: %v", err)
	}
	defer f.Close()

	lines := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines++
	}
	if lines != 5 {
		t.Errorf("expected 5 flushed lines, got %d", lines)
	}
}

func TestGetStatsReportsTotals(t *testing.T) {
	el := NewEventLog()
	el.Start(filepath.Join(t.TempDir(), "events.jsonl"))
	defer el.Stop()

	el.EmitSimple(EventGameStarted, 0, "", nil)
	el.EmitSimple(EventGameEnded, 1, "", nil)

	stats := el.GetStats()
	if stats["total"].(uint64) != 2 {
		t.Errorf("total = %v, want 2", stats["total"])
	}
}

func TestEmitWithEmptyFilePathSkipsDiskWrite(t *testing.T) {
	el := NewEventLog()
	if err := el.Start(""); err != nil {
		t.Fatalf("start with empty path failed: %v", err)
	}
	defer el.Stop()

	if !el.EmitSimple(EventGameStarted, 0, "", nil) {
		t.Error("emit should still succeed with no file configured")
	}
	if el.GetTotalCount() != 1 {
		t.Errorf("GetTotalCount() = %d, want 1", el.GetTotalCount())
	}
}

func TestStartIsIdempotent(t *testing.T) {
	el := NewEventLog()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := el.Start(path); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	defer el.Stop()
	if err := el.Start(path); err != nil {
		t.Fatalf("second start should be a no-op, not an error: %v", err)
	}
}
