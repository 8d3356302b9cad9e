package renderer

import (
	"errors"
	"testing"
)

func TestBootSequenceRunsAllStages(t *testing.T) {
	var created []string
	seq := &bootSequence{}
	err := seq.run(
		initStage{name: "a", create: func() error { created = append(created, "a"); return nil }},
		initStage{name: "b", create: func() error { created = append(created, "b"); return nil }},
		initStage{name: "c", create: func() error { created = append(created, "c"); return nil }},
	)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(created) != 3 || created[0] != "a" || created[2] != "c" {
		t.Errorf("creation order = %v", created)
	}
}

func TestBootSequenceUnwindsInReverseOnFailure(t *testing.T) {
	var destroyed []string
	boom := errors.New("boom")
	mk := func(name string) initStage {
		return initStage{
			name:    name,
			create:  func() error { return nil },
			destroy: func() { destroyed = append(destroyed, name) },
		}
	}
	seq := &bootSequence{}
	err := seq.run(
		mk("device"),
		mk("swapchain"),
		mk("render pass"),
		initStage{name: "pipeline", create: func() error { return boom }},
		initStage{name: "never reached", create: func() error { t.Fatal("stage after failure ran"); return nil }},
	)
	if err == nil {
		t.Fatal("expected error")
	}

	var ie *InitError
	if !errors.As(err, &ie) {
		t.Fatalf("error type = %T, want *InitError", err)
	}
	if ie.Stage != "pipeline" {
		t.Errorf("failing stage = %q, want %q", ie.Stage, "pipeline")
	}
	if !errors.Is(err, boom) {
		t.Errorf("cause not preserved: %v", err)
	}

	want := []string{"render pass", "swapchain", "device"}
	if len(destroyed) != len(want) {
		t.Fatalf("destroyed = %v, want %v", destroyed, want)
	}
	for i := range want {
		if destroyed[i] != want[i] {
			t.Errorf("teardown order[%d] = %q, want %q", i, destroyed[i], want[i])
		}
	}
}

func TestBootSequenceTeardownReverseAndIdempotent(t *testing.T) {
	var destroyed []string
	mk := func(name string) initStage {
		return initStage{
			name:    name,
			create:  func() error { return nil },
			destroy: func() { destroyed = append(destroyed, name) },
		}
	}
	seq := &bootSequence{}
	if err := seq.run(mk("x"), mk("y")); err != nil {
		t.Fatal(err)
	}
	seq.teardown()
	seq.teardown() // second call must be a no-op
	if len(destroyed) != 2 || destroyed[0] != "y" || destroyed[1] != "x" {
		t.Errorf("destroyed = %v, want [y x]", destroyed)
	}
}
