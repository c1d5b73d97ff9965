// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Poll status constants
const (
	PollDraft  = "draft"
	PollActive = "active"
	PollClosed = "closed"
)

// Approval status constants, shared by scrutators and participants
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// ReportState is the single tagged state of a meeting's report authorization.
type ReportState string

const (
	ReportIdle       ReportState = "idle"
	ReportPending    ReportState = "pending_approval"
	ReportApproved   ReportState = "approved"
	ReportRejected   ReportState = "rejected"
	ReportDownloaded ReportState = "downloaded"
)

// Domain types

type Meeting struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	OrganizerName     string          `json:"organizer_name"`
	MeetingCode       string          `json:"meeting_code"`
	ScrutatorCode     *string         `json:"scrutator_code,omitempty"`
	ReportState       ReportState     `json:"report_state"`
	ReportVotes       map[string]bool `json:"report_votes"`
	OrganizerPresent  bool            `json:"organizer_present"`
	OrganizerLastSeen time.Time       `json:"organizer_last_seen"`
	LeadershipHolder  *string         `json:"leadership_holder,omitempty"`
	DeletionDeadline  *time.Time      `json:"deletion_deadline,omitempty"`
	RecoverySecretRef *string         `json:"-"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ReportPending reports whether a quorum cycle is collecting votes.
func (m Meeting) ReportPending() bool { return m.ReportState == ReportPending }

// ReportApproved reports whether the last cycle ended in approval.
func (m Meeting) ReportApproved() bool { return m.ReportState == ReportApproved }

// ReportDownloaded reports whether the final report has been produced.
func (m Meeting) ReportDownloaded() bool { return m.ReportState == ReportDownloaded }

// Leader returns the identity currently holding organizer authority.
func (m Meeting) Leader() string {
	if m.LeadershipHolder != nil && *m.LeadershipHolder != "" {
		return *m.LeadershipHolder
	}
	return m.OrganizerName
}

type Scrutator struct {
	ID             string     `json:"id"`
	MeetingID      string     `json:"meeting_id"`
	Name           string     `json:"name"`
	ApprovalStatus string     `json:"approval_status"`
	AddedAt        time.Time  `json:"added_at"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
}

type Participant struct {
	ID             string    `json:"id"`
	MeetingID      string    `json:"meeting_id"`
	Name           string    `json:"name"`
	ApprovalStatus string    `json:"approval_status"`
	JoinedAt       time.Time `json:"joined_at"`
}

type Poll struct {
	ID        string    `json:"id"`
	MeetingID string    `json:"meeting_id"`
	Question  string    `json:"question"`
	Status    string    `json:"status"`
	Options   []Option  `json:"options"`
	CreatedAt time.Time `json:"created_at"`

	// Informational countdown, in seconds. Started when the poll starts.
	TimerDuration  *int       `json:"timer_duration,omitempty"`
	TimerStartedAt *time.Time `json:"timer_started_at,omitempty"`
}

// HasOption reports whether optionID belongs to the poll.
func (p Poll) HasOption(optionID string) bool {
	for _, o := range p.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// TotalVotes sums the per-option counts.
func (p Poll) TotalVotes() int {
	total := 0
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

type Option struct {
	ID       string `json:"id"`
	PollID   string `json:"poll_id"`
	Text     string `json:"text"`
	Position int    `json:"position"`
	Votes    int    `json:"votes"`
}

// Vote never references a participant.
type Vote struct {
	ID       string    `json:"id"`
	PollID   string    `json:"poll_id"`
	OptionID string    `json:"option_id"`
	VotedAt  time.Time `json:"voted_at"`
}

type RecoverySession struct {
	Code         string     `json:"-"`
	MeetingID    string     `json:"meeting_id"`
	PasswordHash string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	ConsumedAt   *time.Time `json:"consumed_at,omitempty"`
}

// Request types

type CreateMeetingRequest struct {
	Title         string `json:"title"`
	OrganizerName string `json:"organizer_name"`
}

type HeartbeatRequest struct {
	Identity string `json:"organizer_name"`
}

type RedeemRecoveryRequest struct {
	Code     string `json:"code"`
	Password string `json:"password"`
}

type AddScrutatorsRequest struct {
	Names []string `json:"names"`
}

type ScrutatorJoinRequest struct {
	Name          string `json:"name"`
	ScrutatorCode string `json:"scrutator_code"`
}

type ApprovalRequest struct {
	Approved bool `json:"approved"`
}

type ReportCycleRequest struct {
	RequestedBy string `json:"requested_by"`
}

type ScrutatorVoteRequest struct {
	ScrutatorName string `json:"scrutator_name"`
	Approved      bool   `json:"approved"`
}

type ParticipantJoinRequest struct {
	Name        string `json:"name"`
	MeetingCode string `json:"meeting_code"`
}

type CreatePollRequest struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	TimerDuration *int     `json:"timer_duration,omitempty"`
}

type SubmitVoteRequest struct {
	PollID   string `json:"poll_id"`
	OptionID string `json:"option_id"`
}

// Response types

type CreateMeetingResponse struct {
	Meeting  Meeting `json:"meeting"`
	AdminKey string  `json:"admin_key"`
}

type OrganizerViewResponse struct {
	Meeting      Meeting       `json:"meeting"`
	Participants []Participant `json:"participants"`
	Polls        []Poll        `json:"polls"`
}

type ClosureStatusResponse struct {
	CanClose bool   `json:"can_close"`
	Reason   string `json:"reason"`
}

type RecoveryResponse struct {
	Code        string `json:"code"`
	RecoveryURL string `json:"recovery_url"`
	Password    string `json:"password"`
}

type RedeemRecoveryResponse struct {
	Meeting  Meeting `json:"meeting"`
	AdminKey string  `json:"admin_key"`
}

type AddScrutatorsResponse struct {
	ScrutatorCode string   `json:"scrutator_code"`
	Scrutators    []string `json:"scrutators"`
}

type ScrutatorListResponse struct {
	ScrutatorCode *string     `json:"scrutator_code,omitempty"`
	Scrutators    []Scrutator `json:"scrutators"`
}

type ScrutatorJoinResponse struct {
	Status    string   `json:"status"`
	Meeting   *Meeting `json:"meeting,omitempty"`
	Scrutator string   `json:"scrutator_name,omitempty"`
}

type ReportCycleResponse struct {
	DirectGeneration bool `json:"direct_generation"`
	ApprovalRequired bool `json:"scrutator_approval_required"`
	ScrutatorCount   int  `json:"scrutator_count"`
	MajorityNeeded   int  `json:"majority_needed"`
}

type ScrutatorVoteResponse struct {
	Decision        string `json:"decision"`
	VotesCast       int    `json:"votes_cast"`
	TotalScrutators int    `json:"total_scrutators"`
	YesVotes        int    `json:"yes_votes"`
	NoVotes         int    `json:"no_votes"`
	MajorityNeeded  int    `json:"majority_needed"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// ParticipantPoll hides per-option counts until the poll is closed.
type ParticipantPoll struct {
	Poll
	VoteTotal int `json:"total_votes_count"`
}

type OptionResult struct {
	Option     string  `json:"option"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type PollResultsResponse struct {
	Question   string         `json:"question"`
	Results    []OptionResult `json:"results"`
	TotalVotes int            `json:"total_votes"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
