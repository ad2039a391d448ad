package models

import "time"

// Stamp normalises an instant to the precision the store keeps (UTC milliseconds) so that
// guards comparing a previously read phase start time match exactly.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Transition is a guarded phase or status change. The From* fields describe the state the
// caller observed; a store applies the change only if the room still matches them, which
// keeps overlapping ticks and user actions from advancing a room twice.
type Transition struct {
	FromStatus RoomStatus
	FromPhase  Phase
	// FromStart pins the exact phase window observed. Nil skips the check.
	FromStart *time.Time
	// FromJudgingPhase and FromJudgingDone are checked when set.
	FromJudgingPhase Phase
	FromJudgingDone  *bool
	// FromHealth pins both health values (A, B) when set.
	FromHealth        *[2]int
	RequireBothReady  bool
	RequireSidesUnset bool

	ToStatus RoomStatus
	// ToPhase PhaseNone clears the phase and its timing.
	ToPhase  Phase
	Start    time.Time
	Duration int

	// SideA/SideB, when both set, assign final sides and clear the votes.
	SideA Side
	SideB Side
	// JudgingPhase, when set, opens a fresh judging window for that argument round.
	JudgingPhase Phase
	// JudgingTimedOut records that the judging window closed without a verdict.
	JudgingTimedOut bool
	// Winner is recorded when ToStatus is finished. Nil means a tie.
	Winner *Winner

	At time.Time
}

// JudgingTimeoutReason annotates a judging window that elapsed without completion
const JudgingTimeoutReason = "judging window elapsed without a verdict"

// Matches reports whether r is still in the state the transition expects
func (t *Transition) Matches(r *Room) bool {
	if r.Status != t.FromStatus || r.CurrentPhase != t.FromPhase {
		return false
	}
	if t.FromStart != nil && (r.PhaseStartTime == nil || !r.PhaseStartTime.Equal(*t.FromStart)) {
		return false
	}
	if t.FromJudgingPhase != PhaseNone && r.JudgingPhase != t.FromJudgingPhase {
		return false
	}
	if t.FromJudgingDone != nil && r.JudgingDone != *t.FromJudgingDone {
		return false
	}
	if t.FromHealth != nil && (r.PlayerAHealth != t.FromHealth[0] || r.PlayerBHealth != t.FromHealth[1]) {
		return false
	}
	if t.RequireBothReady && !r.BothReady() {
		return false
	}
	if t.RequireSidesUnset && (r.PlayerASide != SideNone || r.PlayerBSide != SideNone) {
		return false
	}
	return true
}

// Apply writes the post-state into r. Callers must check Matches first.
func (t *Transition) Apply(r *Room) {
	r.Status = t.ToStatus
	r.CurrentPhase = t.ToPhase
	if t.ToPhase == PhaseNone {
		r.PhaseStartTime = nil
		r.PhaseDuration = nil
	} else {
		start := t.Start
		dur := t.Duration
		r.PhaseStartTime = &start
		r.PhaseDuration = &dur
	}
	if t.SideA.Valid() && t.SideB.Valid() {
		r.PlayerASide = t.SideA
		r.PlayerBSide = t.SideB
		r.PlayerAVote = SideNone
		r.PlayerBVote = SideNone
	}
	if t.JudgingPhase != PhaseNone {
		r.JudgingPhase = t.JudgingPhase
		r.JudgingDone = false
		r.JudgingFailed = false
		r.JudgingError = ""
	}
	if t.JudgingTimedOut {
		r.JudgingDone = true
		r.JudgingFailed = true
		r.JudgingError = JudgingTimeoutReason
	}
	if t.ToStatus == StatusFinished {
		r.JudgingDone = true
		if t.Winner != nil {
			id, name := t.Winner.ID, t.Winner.Name
			r.WinnerID = &id
			r.WinnerName = &name
		}
	}
	r.UpdatedAt = t.At
}

// JudgingGuard selects a room that is still waiting on the verdict for phase
type JudgingGuard struct {
	RoomID string
	Phase  Phase
}

// Matches reports whether the judging window for g.Phase is still open on r
func (g JudgingGuard) Matches(r *Room) bool {
	return r.CurrentPhase == PhaseJudging && r.JudgingPhase == g.Phase && !r.JudgingDone
}
