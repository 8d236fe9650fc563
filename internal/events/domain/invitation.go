package domain

import "time"

// Salutation selects the greeting form used when addressing a guest.
type Salutation string

const (
	SalutationFormalMale     Salutation = "FORMAL_MALE"
	SalutationFormalFemale   Salutation = "FORMAL_FEMALE"
	SalutationInformalFemale Salutation = "INFORMAL_FEMALE"
	SalutationInformalMale   Salutation = "INFORMAL_MALE"
)

// DefaultSalutation is applied when a caller leaves the salutation unset.
const DefaultSalutation = SalutationInformalMale

// Valid reports whether s is one of the four known salutations.
func (s Salutation) Valid() bool {
	switch s {
	case SalutationFormalMale, SalutationFormalFemale,
		SalutationInformalFemale, SalutationInformalMale:
		return true
	}
	return false
}

// InvitationState tracks where a guest sits in the invitation lifecycle.
//
// INITIAL --(send)--> SENT --(register)--> REGISTERED
//                          --(deregister)--> EXCUSED
//
// Nothing ever moves a record out of REGISTERED or EXCUSED back to SENT
// or INITIAL.
type InvitationState string

const (
	StateInitial    InvitationState = "INITIAL"
	StateSent       InvitationState = "SENT"
	StateRegistered InvitationState = "REGISTERED"
	StateExcused    InvitationState = "EXCUSED"
)

// Valid reports whether s is one of the four known states.
func (s InvitationState) Valid() bool {
	switch s {
	case StateInitial, StateSent, StateRegistered, StateExcused:
		return true
	}
	return false
}

// Invitation is one guest record tracked by the service. IDs are assigned
// by the server on create and are immutable afterwards, as are the
// CreatedAt/CreatedBy audit fields.
type Invitation struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`

	// Contact names the relationship owner for this guest. It selects the
	// sender address and the message template variant; empty means the
	// default organisational identity.
	Contact string `json:"contact,omitempty"`

	Salutation      Salutation      `json:"salutation"`
	InvitationState InvitationState `json:"invitationState"`

	Comment         string `json:"comment,omitempty"`
	InternalComment string `json:"internalComment,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	CreatedBy  string    `json:"createdBy"`
	ModifiedAt time.Time `json:"modifiedAt"`
	ModifiedBy string    `json:"modifiedBy"`
}
