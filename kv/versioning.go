package kv

import "github.com/qinhy/singleton-key-value-storage/kv/version"

// replayApply is the version-navigation callback. Apply failures follow
// the façade's total failure policy — logged and swallowed — so
// navigation always makes progress.
func (s *Store) replayApply(op []any) error {
	if err := s.applyLocal(op); err != nil {
		s.logger.Error("replay apply failed", "error", err)
	}

	return nil
}

// RevertOne undoes the current operation and moves the version pointer
// back one step.
func (s *Store) RevertOne() error {
	return s.versions.RevertOne(s.replayApply)
}

// ForwardOne redoes the next operation and advances the version pointer.
func (s *Store) ForwardOne() error {
	return s.versions.ForwardOne(s.replayApply)
}

// ToVersion replays forward or backward until the version pointer
// reaches the target operation id.
func (s *Store) ToVersion(versionID string) error {
	return s.versions.ToVersion(versionID, s.replayApply)
}

// CurrentVersion returns the id of the current operation, or "" before
// the first one.
func (s *Store) CurrentVersion() string {
	return s.versions.Current()
}

// Versions returns the operation ids in chronological order.
func (s *Store) Versions() []string {
	return s.versions.Versions()
}

// PopOperations removes up to n operations from the log and returns them.
func (s *Store) PopOperations(n int) []version.Popped {
	popped, err := s.versions.PopOperation(n)
	if err != nil {
		s.logger.Error("pop operations failed", "error", err)

		return nil
	}

	return popped
}
