package domain

import "time"

// ElectionState is the lifecycle position of an election derived from its
// timestamps. Cancellation is tracked separately on Election.IsCancelled.
type ElectionState string

const (
	StateDraft                      ElectionState = "DRAFT"
	StatePublishedPendingVote       ElectionState = "PUBLISHED_PENDING_VOTE"
	StateVotingOpen                 ElectionState = "VOTING_OPEN"
	StateVotingClosedAwaitingResult ElectionState = "VOTING_CLOSED_AWAITING_RESULT"
	StateResultAnnounced            ElectionState = "RESULT_ANNOUNCED"
)

func ComputeState(e *Election, now time.Time) ElectionState {
	switch {
	case e.PublishDate == nil:
		return StateDraft
	case e.StartResult != nil:
		return StateResultAnnounced
	case now.Before(e.OpenVoting):
		return StatePublishedPendingVote
	case now.Before(e.CloseVoting):
		return StateVotingOpen
	default:
		return StateVotingClosedAwaitingResult
	}
}

// CheckIsElectionAllowedToModified guards candidate and eligible voter
// mutations: they are only allowed before voting opens on a live election.
func CheckIsElectionAllowedToModified(e *Election, now time.Time) error {
	if e.IsCancelled {
		return ErrElectionCancelled
	}
	if !now.Before(e.OpenVoting) {
		return ErrElectionInVotePeriod
	}
	return nil
}

// CheckIsResultWindowOpen guards result uploads and ballot counting: voting
// must be over and the result announcement must not have started yet.
func CheckIsResultWindowOpen(e *Election, now time.Time) error {
	if e.IsCancelled {
		return ErrElectionCancelled
	}
	if e.PublishDate == nil {
		return ErrElectionNotPublished
	}
	if now.Before(e.CloseVoting) {
		return ErrVotingNotClosed
	}
	if e.StartResult != nil && !now.Before(*e.StartResult) {
		return ErrResultAlreadyAnnounced
	}
	return nil
}
