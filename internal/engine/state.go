package engine

import (
	"time"
)

// Checklist field names. The checklist order below is the order in which
// the receptionist asks for them.
const (
	FieldName  = "name"
	FieldDNI   = "dni"
	FieldEmail = "email"
	FieldPhone = "phone"
)

// PrimaryIdentityField is the checklist field used to key directory lookups.
const PrimaryIdentityField = FieldDNI

// DisplayNameField is the checklist field used to personalize utterances and
// gate directory record creation.
const DisplayNameField = FieldName

// DefaultChecklist returns the required data fields in question order.
func DefaultChecklist() []string {
	return []string{FieldName, FieldDNI, FieldEmail, FieldPhone}
}

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
)

// Intent is the coarse classification of a user utterance.
type Intent string

const (
	IntentGreeting    Intent = "greeting"
	IntentFAQ         Intent = "faq"
	IntentCollectData Intent = "collect_data"
	IntentBooking     Intent = "booking"
	IntentEndCall     Intent = "end_call"
	IntentUnknown     Intent = "unknown"
)

// ParseIntent maps a classifier label onto a known intent. Anything
// unrecognized becomes IntentUnknown.
func ParseIntent(label string) Intent {
	switch Intent(label) {
	case IntentGreeting, IntentFAQ, IntentCollectData, IntentBooking, IntentEndCall:
		return Intent(label)
	default:
		return IntentUnknown
	}
}

// BookingStatus tracks the appointment sub-state-machine.
type BookingStatus string

const (
	BookingIdle      BookingStatus = "idle"
	BookingChecking  BookingStatus = "checking"
	BookingOffered   BookingStatus = "offered"
	BookingConfirmed BookingStatus = "confirmed"
	BookingFailed    BookingStatus = "failed"
)

// TurnRecord is one transcript entry. Append-only; never mutated after
// append.
type TurnRecord struct {
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// ClientProfile holds everything known about the caller.
type ClientProfile struct {
	// IdentityKey is the primary identifier once established.
	IdentityKey string `json:"identity_key,omitempty"`
	// Verified is true once a directory lookup confirmed a match.
	Verified bool `json:"verified"`
	// IsNewRecord is true until a directory match or a successful create.
	IsNewRecord bool `json:"is_new_record"`
	// Data maps field name to value. A non-empty field is only ever
	// overwritten by authoritative directory hydration.
	Data map[string]string `json:"data"`
	// History holds past-interaction summaries from the directory.
	History []string `json:"history,omitempty"`
}

// BookingRequest is the in-progress appointment booking.
// ConfirmedSlot is non-empty only when Status is BookingConfirmed.
type BookingRequest struct {
	RequestedSlot string        `json:"requested_slot,omitempty"`
	ConfirmedSlot string        `json:"confirmed_slot,omitempty"`
	Status        BookingStatus `json:"status"`
}

// CallState is the unit of persistence: everything the engine knows about
// one call, restored between stateless turns.
type CallState struct {
	CallID      string       `json:"call_id"`
	TurnCount   int          `json:"turn_count"`
	Initialized bool         `json:"initialized"`
	Transcript  []TurnRecord `json:"transcript"`

	Profile ClientProfile `json:"profile"`

	RequiredChecklist []string `json:"required_checklist"`
	// MissingFields is derived from Profile and RequiredChecklist. Only
	// RecomputeMissing may write it.
	MissingFields []string `json:"missing_fields"`
	ActiveSlot    string   `json:"active_slot,omitempty"`

	PendingFAQInterrupt bool `json:"pending_faq_interrupt"`

	Intent  Intent         `json:"intent"`
	Booking BookingRequest `json:"booking"`
}

// NewCallState returns the default state for a call that has just started.
func NewCallState(callID string) CallState {
	st := CallState{
		CallID:            callID,
		Profile:           ClientProfile{IsNewRecord: true, Data: make(map[string]string)},
		RequiredChecklist: DefaultChecklist(),
		Intent:            IntentUnknown,
		Booking:           BookingRequest{Status: BookingIdle},
	}
	st.RecomputeMissing()
	return st
}

// MissingFor returns the checklist fields not yet satisfied by the profile,
// in checklist order. It is the single source of truth for missing-field
// derivation.
func MissingFor(profile ClientProfile, checklist []string) []string {
	missing := make([]string, 0, len(checklist))
	for _, field := range checklist {
		if profile.Data[field] == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// RecomputeMissing rederives MissingFields from the profile. Every stage
// that touches the profile must call this before handing the state on.
func (s *CallState) RecomputeMissing() {
	s.MissingFields = MissingFor(s.Profile, s.RequiredChecklist)
}

// AppendTurn records a transcript entry.
func (s *CallState) AppendTurn(role Role, text string) {
	s.Transcript = append(s.Transcript, TurnRecord{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	})
}

// Clone returns a deep copy. The pipeline works on a clone so a failed or
// cancelled turn never leaks partial mutations into the stored state.
func (s CallState) Clone() CallState {
	out := s

	out.Transcript = make([]TurnRecord, len(s.Transcript))
	copy(out.Transcript, s.Transcript)

	out.RequiredChecklist = make([]string, len(s.RequiredChecklist))
	copy(out.RequiredChecklist, s.RequiredChecklist)

	out.MissingFields = make([]string, len(s.MissingFields))
	copy(out.MissingFields, s.MissingFields)

	out.Profile.Data = make(map[string]string, len(s.Profile.Data))
	for k, v := range s.Profile.Data {
		out.Profile.Data[k] = v
	}
	out.Profile.History = make([]string, len(s.Profile.History))
	copy(out.Profile.History, s.Profile.History)

	return out
}
