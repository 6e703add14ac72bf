package submission

import (
	"time"

	"github.com/memorywall/memorywall/internal/resolver"
	"github.com/memorywall/memorywall/internal/service/moderation"
)

// Kind is the submitted content variant. URL-bearing kinds carry a URL
// payload; text carries inline content. Immutable after creation.
type Kind string

const (
	KindURL      Kind = "url"
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
)

// ValidKinds enumerates every accepted kind.
var ValidKinds = map[Kind]bool{
	KindURL:      true,
	KindText:     true,
	KindImage:    true,
	KindVideo:    true,
	KindAudio:    true,
	KindDocument: true,
}

// HasURLPayload reports whether this kind stores its payload as a URL.
func (k Kind) HasURLPayload() bool { return k != KindText }

// Status is the moderation lifecycle state. Created as pending (or directly
// approved/rejected when moderation runs at submit time); set exactly once
// in the normal flow, with an admin override path that may re-set it.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Direction is a vote direction.
type Direction string

const (
	VoteUp   Direction = "up"
	VoteDown Direction = "down"
)

// Valid reports whether the direction is one of up/down.
func (d Direction) Valid() bool { return d == VoteUp || d == VoteDown }

// Votes holds the aggregate counters. Invariant: Up equals the number of
// entries in UserVotes valued "up", and symmetrically for Down.
type Votes struct {
	Up   int `json:"up"`
	Down int `json:"down"`
}

// ModerationAudit is the write-once decision record attached to a submission.
// Unavailable marks rows persisted while the classifier was down; the
// background requeue job re-moderates those.
type ModerationAudit struct {
	moderation.Decision

	Unavailable bool      `json:"unavailable,omitempty"`
	Error       string    `json:"error,omitempty"`
	DecidedBy   string    `json:"decidedBy,omitempty"`
	DecidedAt   time.Time `json:"decidedAt"`
}

// Submission is a persisted memory.
type Submission struct {
	ID          string                 `json:"id"`
	Kind        Kind                   `json:"kind"`
	URL         string                 `json:"url,omitempty"`
	Content     string                 `json:"content,omitempty"`
	Tags        []string               `json:"tags"`
	Status      Status                 `json:"status"`
	Metadata    *resolver.Metadata     `json:"metadata,omitempty"`
	Votes       Votes                  `json:"votes"`
	UserVotes   map[string]Direction   `json:"userVotes,omitempty"`
	Moderation  *ModerationAudit       `json:"moderationResult,omitempty"`
	SubmittedBy string                 `json:"submittedBy,omitempty"`
	SubmittedAt time.Time              `json:"submittedAt"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}
