package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type ElectionType string

const (
	ElectionTypeOnline ElectionType = "ONLINE"
	ElectionTypeOnsite ElectionType = "ONSITE"
	ElectionTypeHybrid ElectionType = "HYBRID"
)

func (t ElectionType) Valid() bool {
	switch t {
	case ElectionTypeOnline, ElectionTypeOnsite, ElectionTypeHybrid:
		return true
	}
	return false
}

// HasOnlineChannel reports whether ballots are cast through the key service.
func (t ElectionType) HasOnlineChannel() bool {
	return t == ElectionTypeOnline || t == ElectionTypeHybrid
}

// HasOnsiteChannel reports whether votes are counted manually at a venue.
func (t ElectionType) HasOnsiteChannel() bool {
	return t == ElectionTypeOnsite || t == ElectionTypeHybrid
}

type ElectionMode string

const (
	ElectionModeNormal ElectionMode = "NORMAL"
	ElectionModeSecure ElectionMode = "SECURE"
)

type KeysStatus string

const (
	KeysStatusPendingCreated KeysStatus = "PENDING_CREATED"
	KeysStatusCreated        KeysStatus = "CREATED"
	KeysStatusDestroyed      KeysStatus = "DESTROYED"
)

type OnlineResultStatus string

const (
	OnlineResultStatusUnset        OnlineResultStatus = "UNSET"
	OnlineResultStatusCountSuccess OnlineResultStatus = "COUNT_SUCCESS"
	OnlineResultStatusCountFailed  OnlineResultStatus = "COUNT_FAILED"
)

type Election struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	Location       string       `json:"location,omitempty"`
	LocationMapURL string       `json:"location_map_url,omitempty"`
	Province       string       `json:"province,omitempty"`
	District       string       `json:"district,omitempty"`
	Type           ElectionType `json:"type"`
	Mode           ElectionMode `json:"mode"`
	IsCancelled    bool         `json:"is_cancelled"`
	PublishDate    *time.Time   `json:"publish_date,omitempty"`
	OpenRegister   *time.Time   `json:"open_register,omitempty"`
	CloseRegister  *time.Time   `json:"close_register,omitempty"`
	OpenVoting     time.Time    `json:"open_voting"`
	CloseVoting    time.Time    `json:"close_voting"`
	StartResult    *time.Time   `json:"start_result,omitempty"`
	EndResult      *time.Time   `json:"end_result,omitempty"`

	KeysStatus                   KeysStatus         `json:"keys_status"`
	KeysDestroyScheduledAt       *time.Time         `json:"keys_destroy_scheduled_at,omitempty"`
	KeysDestroyScheduledDuration *time.Duration     `json:"keys_destroy_scheduled_duration,omitempty"`
	EncryptionPublicKey          string             `json:"encryption_public_key,omitempty"`
	SigningPublicKey             string             `json:"signing_public_key,omitempty"`
	OnlineResultStatus           OnlineResultStatus `json:"online_result_status"`

	// Version is bumped by the repository on every write and checked on the
	// next one.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (e *Election) IsPublished() bool {
	return e.PublishDate != nil
}

func (e *Election) IsSecure() bool {
	return e.Mode == ElectionModeSecure
}

// ElectionDetails are the admin-editable fields of an election.
type ElectionDetails struct {
	Name           string
	Description    string
	Location       string
	LocationMapURL string
	Province       string
	District       string
	OpenRegister   *time.Time
	CloseRegister  *time.Time
	OpenVoting     time.Time
	CloseVoting    time.Time
}

// ValidateElectionDetails checks the shape of the details for the given type.
// It does not look at the clock; lifecycle checks belong to the services.
func ValidateElectionDetails(t ElectionType, d ElectionDetails) error {
	if !t.Valid() {
		return NewError(CodeValidation, "election type must be ONLINE, ONSITE or HYBRID")
	}
	if strings.TrimSpace(d.Name) == "" {
		return NewError(CodeValidation, "name is required")
	}
	if d.OpenVoting.IsZero() || d.CloseVoting.IsZero() {
		return NewError(CodeValidation, "voting period is required")
	}
	if !d.CloseVoting.After(d.OpenVoting) {
		return NewError(CodeValidation, "close voting must be after open voting")
	}
	if t.HasOnsiteChannel() {
		if strings.TrimSpace(d.Location) == "" ||
			strings.TrimSpace(d.Province) == "" ||
			strings.TrimSpace(d.District) == "" {
			return NewError(CodeValidation, "location, province and district are required for onsite voting")
		}
	}
	if t == ElectionTypeHybrid {
		if d.OpenRegister == nil || d.CloseRegister == nil {
			return NewError(CodeValidation, "register period is required for hybrid elections")
		}
		if !d.CloseRegister.After(*d.OpenRegister) {
			return NewError(CodeValidation, "close register must be after open register")
		}
		if !d.OpenVoting.After(*d.CloseRegister) {
			return NewError(CodeValidation, "open voting must be after close register")
		}
	}
	return nil
}

// ApplyDetails copies details onto the election. Register dates are dropped
// for non-hybrid elections.
func (e *Election) ApplyDetails(d ElectionDetails) {
	e.Name = strings.TrimSpace(d.Name)
	e.Description = d.Description
	e.Location = strings.TrimSpace(d.Location)
	e.LocationMapURL = strings.TrimSpace(d.LocationMapURL)
	e.Province = strings.TrimSpace(d.Province)
	e.District = strings.TrimSpace(d.District)
	e.OpenVoting = d.OpenVoting.UTC()
	e.CloseVoting = d.CloseVoting.UTC()
	e.OpenRegister, e.CloseRegister = nil, nil
	if e.Type == ElectionTypeHybrid {
		e.OpenRegister = utcPtr(d.OpenRegister)
		e.CloseRegister = utcPtr(d.CloseRegister)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

type ElectionFilter struct {
	Type      ElectionType
	Cancelled *bool
	Published *bool
	Query     string
}

type Pagination struct {
	Page  int
	Limit int
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize returns a pagination with page >= 1 and a bounded limit.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Pagination) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}
