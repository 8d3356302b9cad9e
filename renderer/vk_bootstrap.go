package renderer

import (
	"log"
)

// initStage is one step of the bootstrap sequence: a named create function paired with the
// destroy function that undoes it. Pairing them in one value is what lets teardown order be
// derived mechanically from creation order instead of being maintained by hand.
type initStage struct {
	name    string
	create  func() error
	destroy func()
}

// bootSequence runs initStages in order and remembers, for every stage that succeeded, how to
// undo it. A failure destroys the completed stages in reverse order and surfaces an *InitError
// naming the failed stage. There is no partial-bootstrap recovery.
type bootSequence struct {
	completed []initStage
}

func (b *bootSequence) run(stages ...initStage) error {
	for _, s := range stages {
		if err := s.create(); err != nil {
			log.Printf("Bootstrap stage %q failed: %v", s.name, err)
			b.teardown()
			return &InitError{Stage: s.name, Err: err}
		}
		b.completed = append(b.completed, s)
	}
	return nil
}

// teardown destroys all completed stages in reverse creation order and forgets them.
func (b *bootSequence) teardown() {
	for i := len(b.completed) - 1; i >= 0; i-- {
		if b.completed[i].destroy != nil {
			b.completed[i].destroy()
		}
	}
	b.completed = nil
}
