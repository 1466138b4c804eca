package system

import (
	"testing"
	"time"
)

type recordSystem struct {
	phase Phase
	name  string
	log   *[]string
}

func (s *recordSystem) Phase() Phase { return s.phase }
func (s *recordSystem) Update(time.Duration) {
	*s.log = append(*s.log, s.name)
}

func TestTickRunsInPhaseOrder(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordSystem{PhaseCleanup, "cleanup", &log})
	r.Register(&recordSystem{PhaseInput, "input", &log})
	r.Register(&recordSystem{PhaseUpdate, "cast", &log})
	r.Register(&recordSystem{PhaseUpdate, "cast2", &log})

	r.Tick(200 * time.Millisecond)

	want := []string{"input", "cast", "cast2", "cleanup"}
	if len(log) != len(want) {
		t.Fatalf("log = %v", log)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
}

func TestTickPhaseFilters(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(&recordSystem{PhaseInput, "input", &log})
	r.Register(&recordSystem{PhaseUpdate, "cast", &log})

	r.TickPhase(PhaseInput, time.Millisecond)
	if len(log) != 1 || log[0] != "input" {
		t.Fatalf("log = %v", log)
	}
}
