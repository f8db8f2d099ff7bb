package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeValidation             ErrorCode = "VALIDATION"
	CodeNotFound               ErrorCode = "NOT_FOUND"
	CodePreconditionFailed     ErrorCode = "PRECONDITION_FAILED"
	CodeConflict               ErrorCode = "CONFLICT"
	CodeUpstreamFailure        ErrorCode = "UPSTREAM_FAILURE"
	CodeSignatureInvalid       ErrorCode = "SIGNATURE_INVALID"
	CodeVoteCountExceedsVoters ErrorCode = "VOTE_COUNT_EXCEEDS_VOTERS"
	CodeCompensationFailed     ErrorCode = "COMPENSATION_FAILED"
	CodeInternal               ErrorCode = "INTERNAL"
)

// Error is the structured error returned by every election use case.
// Two errors are equal under errors.Is when code and message match; a target
// with an empty message matches any error with the same code.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) ErrorCode {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

var (
	ErrElectionNotFound         = NewError(CodeNotFound, "election not found")
	ErrCandidateNotFound        = NewError(CodeNotFound, "candidate not found")
	ErrEligibleVoterNotFound    = NewError(CodeNotFound, "eligible voter not found")
	ErrUserNotFound             = NewError(CodeNotFound, "user not found")
	ErrPhoneNumberNotFound      = NewError(CodeNotFound, "phone number not found")
	ErrKeysNotReady             = NewError(CodePreconditionFailed, "election keys are not ready")
	ErrKeysDestroyed            = NewError(CodePreconditionFailed, "election keys are destroyed")
	ErrElectionVersionConflict  = NewError(CodePreconditionFailed, "election was modified concurrently")
	ErrElectionAlreadyPublished = NewError(CodePreconditionFailed, "election is already published")
	ErrElectionNotPublished     = NewError(CodePreconditionFailed, "election is not published")
	ErrElectionCancelled        = NewError(CodePreconditionFailed, "election is cancelled")
	ErrElectionInVotePeriod     = NewError(CodePreconditionFailed, "election voting period has already started")
	ErrElectionNotInVotePeriod  = NewError(CodePreconditionFailed, "election is not in its voting period")
	ErrVotingNotClosed          = NewError(CodePreconditionFailed, "election voting period is not closed")
	ErrResultAlreadyAnnounced   = NewError(CodePreconditionFailed, "election result is already announced")
	ErrOnlineResultNotReady     = NewError(CodePreconditionFailed, "online result is not ready")
	ErrInvalidElectionType      = NewError(CodePreconditionFailed, "operation is not allowed for this election type")
	ErrCandidateNumberTaken     = NewError(CodeConflict, "candidate number already exists")
	ErrCandidateNameTaken       = NewError(CodeConflict, "candidate name already exists")
	ErrEligibleVoterExists      = NewError(CodeConflict, "eligible voter already exists")
	ErrAlreadyVoted             = NewError(CodeConflict, "voter has already voted")
	ErrNotEligibleVoter         = NewError(CodePreconditionFailed, "user is not an online eligible voter")
	ErrSignatureInvalid         = NewError(CodeSignatureInvalid, "online result signature is invalid")
	ErrVoteCountExceedsVoters   = NewError(CodeVoteCountExceedsVoters, "vote count exceeds eligible voters")
	ErrKeyServiceOutcomeUnknown = NewError(CodeUpstreamFailure, "key service outcome unknown")
)
