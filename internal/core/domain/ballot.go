package domain

import (
	"time"

	"github.com/google/uuid"
)

// ElectionBallot is an opaque encrypted ballot. The core never decrypts it.
type ElectionBallot struct {
	ID         uuid.UUID `json:"id"`
	ElectionID uuid.UUID `json:"election_id"`
	Ballot     string    `json:"ballot"`
	CreatedAt  time.Time `json:"created_at"`
}

// VoteRecord links a voter to the ballot they cast. BallotID is cleared once
// a secure election has been tallied.
type VoteRecord struct {
	ElectionID uuid.UUID  `json:"election_id"`
	UserID     uuid.UUID  `json:"user_id"`
	BallotID   *uuid.UUID `json:"ballot_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
