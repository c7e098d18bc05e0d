package core

import (
	"fmt"
	"strings"
	"time"
)

// CanGoToStep allows step 1, any step up to the current one, and one step
// past the highest completed step.
func CanGoToStep(s BookingState, n Step) bool {
	if n < FirstStep || n > LastStep {
		return false
	}
	return n == FirstStep || n <= s.CurrentStep || n <= s.MaxCompletedStep+1
}

// Wizard gates navigation over a BookingSession.
type Wizard struct {
	session *BookingSession
	clock   func() time.Time
}

func NewWizard(session *BookingSession, clock func() time.Time) *Wizard {
	if clock == nil {
		clock = time.Now
	}
	return &Wizard{session: session, clock: clock}
}

func (w *Wizard) CanGoToStep(n Step) bool {
	return CanGoToStep(w.session.State(), n)
}

func (w *Wizard) GoToStep(n Step) (BookingState, error) {
	var allowed bool
	st := w.session.Apply(func(s BookingState) []Action {
		if allowed = CanGoToStep(s, n); !allowed {
			return nil
		}
		return []Action{SetStep{Step: n}}
	})
	if !allowed {
		return st, fmt.Errorf("%w: step %d is not reachable", ErrInvalidState, n)
	}
	return st, nil
}

// CompleteStep raises the highest completed step to n once every step up to
// and including n passes validation.
func (w *Wizard) CompleteStep(n Step) (BookingState, error) {
	if n < FirstStep || n > LastStep {
		return w.session.State(), fmt.Errorf("%w: step %d does not exist", ErrValidation, n)
	}
	var verr error
	st := w.session.Apply(func(s BookingState) []Action {
		now := w.clock()
		for step := FirstStep; step <= n; step++ {
			if v := ValidateStep(s, step, now); !v.IsValid {
				verr = fmt.Errorf("%w: step %d: %s", ErrValidation, step, strings.Join(v.Errors, "; "))
				return nil
			}
		}
		return []Action{SetMaxCompletedStep{Step: n}}
	})
	return st, verr
}

// NextStep advances one step once the current step is marked complete.
func (w *Wizard) NextStep() (BookingState, error) {
	var err error
	st := w.session.Apply(func(s BookingState) []Action {
		switch {
		case s.CurrentStep >= LastStep:
			err = fmt.Errorf("%w: already on the last step", ErrInvalidState)
		case s.MaxCompletedStep < s.CurrentStep:
			err = fmt.Errorf("%w: step %d is not complete", ErrInvalidState, s.CurrentStep)
		default:
			return []Action{SetStep{Step: s.CurrentStep + 1}}
		}
		return nil
	})
	return st, err
}

func (w *Wizard) PrevStep() BookingState {
	return w.session.Apply(func(s BookingState) []Action {
		if s.CurrentStep <= FirstStep {
			return nil
		}
		return []Action{SetStep{Step: s.CurrentStep - 1}}
	})
}

func (w *Wizard) StepValidation(n Step) StepValidation {
	return ValidateStep(w.session.State(), n, w.clock())
}
