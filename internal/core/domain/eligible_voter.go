package domain

import (
	"time"

	"github.com/google/uuid"
)

type EligibleVoterType string

const (
	EligibleVoterTypeOnline EligibleVoterType = "ONLINE"
	EligibleVoterTypeOnsite EligibleVoterType = "ONSITE"
)

func (t EligibleVoterType) Valid() bool {
	return t == EligibleVoterTypeOnline || t == EligibleVoterTypeOnsite
}

// AllowedFor reports whether voters of this type may enrol in an election of
// the given type.
func (t EligibleVoterType) AllowedFor(et ElectionType) bool {
	switch t {
	case EligibleVoterTypeOnline:
		return et.HasOnlineChannel()
	case EligibleVoterTypeOnsite:
		return et.HasOnsiteChannel()
	}
	return false
}

type EligibleVoter struct {
	ElectionID uuid.UUID         `json:"election_id"`
	UserID     uuid.UUID         `json:"user_id"`
	Type       EligibleVoterType `json:"type"`
	CreatedAt  time.Time         `json:"created_at"`
}

type EligibleVoterFilter struct {
	Type EligibleVoterType
}

type VoterIdentifier string

const (
	VoterIdentifierUserID      VoterIdentifier = "USER_ID"
	VoterIdentifierPhoneNumber VoterIdentifier = "PHONE_NUMBER"
)

type User struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PhoneNumber string    `json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}
