package common

import "errors"

// ErrModulePaused is returned when a guarded module has been halted.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named module is currently halted.
type PauseView interface {
	IsPaused(module string) bool
}

// StaticPauses is a fixed PauseView over a set of halted module names.
type StaticPauses map[string]struct{}

// NewStaticPauses builds a StaticPauses covering the given modules.
func NewStaticPauses(modules ...string) StaticPauses {
	set := make(StaticPauses, len(modules))
	for _, m := range modules {
		if m == "" {
			continue
		}
		set[m] = struct{}{}
	}
	return set
}

func (s StaticPauses) IsPaused(module string) bool {
	_, halted := s[module]
	return halted
}

// Guard rejects the operation with ErrModulePaused when the view reports
// the module halted. A nil view or empty module name never blocks.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
