package domain

import (
	"time"

	"github.com/google/uuid"
)

type ElectionCandidate struct {
	ID               uuid.UUID `json:"id"`
	ElectionID       uuid.UUID `json:"election_id"`
	Name             string    `json:"name"`
	Description      string    `json:"description,omitempty"`
	ProfileImagePath string    `json:"profile_image_path,omitempty"`
	Number           int       `json:"number"`
	VoteOnline       *int64    `json:"vote_online,omitempty"`
	VoteOnsite       *int64    `json:"vote_onsite,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TotalVotes sums both channels; a channel without an uploaded result counts
// as zero.
func (c ElectionCandidate) TotalVotes() int64 {
	var total int64
	if c.VoteOnline != nil {
		total += *c.VoteOnline
	}
	if c.VoteOnsite != nil {
		total += *c.VoteOnsite
	}
	return total
}
