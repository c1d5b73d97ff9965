// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/assembly-vote/models"
)

// Supported database types
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persists meetings and their dependent records.
// Queries are written with ? placeholders and rebound for postgres.
type Store struct {
	db      *sql.DB
	dialect string
}

func NewStore(db *sql.DB, dialect string) *Store {
	return &Store{db: db, dialect: dialect}
}

// Ping verifies the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) forUpdate() string {
	if s.dialect == DialectPostgres {
		return " FOR UPDATE"
	}
	return ""
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", models.ErrNotFound, what)
	}
	return err
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

// Meetings

const selectMeeting = `
	SELECT id, title, organizer_name, meeting_code, scrutator_code, report_state,
	       report_votes, organizer_present, organizer_last_seen, leadership_holder,
	       deletion_deadline, recovery_secret_ref, created_at
	FROM meeting`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row rowScanner) (models.Meeting, error) {
	var m models.Meeting
	var scrutatorCode, leader, secretRef sql.NullString
	var deadline sql.NullTime
	var votes string
	err := row.Scan(
		&m.ID, &m.Title, &m.OrganizerName, &m.MeetingCode, &scrutatorCode, &m.ReportState,
		&votes, &m.OrganizerPresent, &m.OrganizerLastSeen, &leader,
		&deadline, &secretRef, &m.CreatedAt,
	)
	if err != nil {
		return models.Meeting{}, err
	}
	m.ScrutatorCode = nullString(scrutatorCode)
	m.LeadershipHolder = nullString(leader)
	m.RecoverySecretRef = nullString(secretRef)
	m.DeletionDeadline = nullTime(deadline)
	m.OrganizerLastSeen = m.OrganizerLastSeen.UTC()
	m.CreatedAt = m.CreatedAt.UTC()
	m.ReportVotes = map[string]bool{}
	if votes != "" {
		if err := json.Unmarshal([]byte(votes), &m.ReportVotes); err != nil {
			return models.Meeting{}, fmt.Errorf("decode report votes: %w", err)
		}
	}
	return m, nil
}

func encodeVotes(votes map[string]bool) (string, error) {
	if votes == nil {
		votes = map[string]bool{}
	}
	b, err := json.Marshal(votes)
	if err != nil {
		return "", fmt.Errorf("encode report votes: %w", err)
	}
	return string(b), nil
}

// CreateMeeting inserts a new meeting record
func (s *Store) CreateMeeting(ctx context.Context, m models.Meeting) error {
	votes, err := encodeVotes(m.ReportVotes)
	if err != nil {
		return err
	}
	if m.ReportState == "" {
		m.ReportState = models.ReportIdle
	}
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO meeting (id, title, organizer_name, meeting_code, scrutator_code, report_state,
		                     report_votes, organizer_present, organizer_last_seen, leadership_holder,
		                     deletion_deadline, recovery_secret_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), m.ID, m.Title, m.OrganizerName, m.MeetingCode, m.ScrutatorCode, string(m.ReportState),
		votes, m.OrganizerPresent, m.OrganizerLastSeen.UTC(), m.LeadershipHolder,
		m.DeletionDeadline, m.RecoverySecretRef, m.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}
	return nil
}

// GetMeeting loads a meeting by id
func (s *Store) GetMeeting(ctx context.Context, id string) (models.Meeting, error) {
	m, err := scanMeeting(s.db.QueryRowContext(ctx, s.rebind(selectMeeting+" WHERE id = ?"), id))
	if err != nil {
		return models.Meeting{}, notFound(err, "meeting "+id)
	}
	return m, nil
}

// GetMeetingByCode loads a meeting by its participant join code
func (s *Store) GetMeetingByCode(ctx context.Context, code string) (models.Meeting, error) {
	m, err := scanMeeting(s.db.QueryRowContext(ctx, s.rebind(selectMeeting+" WHERE meeting_code = ?"), code))
	if err != nil {
		return models.Meeting{}, notFound(err, "meeting code")
	}
	return m, nil
}

// GetMeetingByScrutatorCode loads a meeting by its scrutator join code
func (s *Store) GetMeetingByScrutatorCode(ctx context.Context, code string) (models.Meeting, error) {
	m, err := scanMeeting(s.db.QueryRowContext(ctx, s.rebind(selectMeeting+" WHERE scrutator_code = ?"), code))
	if err != nil {
		return models.Meeting{}, notFound(err, "scrutator code")
	}
	return m, nil
}

// ListMeetingIDs returns the ids of every stored meeting
func (s *Store) ListMeetingIDs(ctx context.Context) ([]string, error) {
	return s.listIDs(ctx, s.db, `SELECT id FROM meeting ORDER BY created_at, id`)
}

// UpdateMeeting applies fn to the current meeting record and writes the
// result back within one transaction. An error from fn aborts the update.
func (s *Store) UpdateMeeting(ctx context.Context, id string, fn func(*models.Meeting) error) (models.Meeting, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Meeting{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	m, err := scanMeeting(tx.QueryRowContext(ctx, s.rebind(selectMeeting+" WHERE id = ?"+s.forUpdate()), id))
	if err != nil {
		return models.Meeting{}, notFound(err, "meeting "+id)
	}

	if err := fn(&m); err != nil {
		return models.Meeting{}, err
	}

	votes, err := encodeVotes(m.ReportVotes)
	if err != nil {
		return models.Meeting{}, err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`
		UPDATE meeting
		SET title = ?, scrutator_code = ?, report_state = ?, report_votes = ?,
		    organizer_present = ?, organizer_last_seen = ?, leadership_holder = ?,
		    deletion_deadline = ?, recovery_secret_ref = ?
		WHERE id = ?
	`), m.Title, m.ScrutatorCode, string(m.ReportState), votes,
		m.OrganizerPresent, m.OrganizerLastSeen.UTC(), m.LeadershipHolder,
		m.DeletionDeadline, m.RecoverySecretRef, m.ID)
	if err != nil {
		return models.Meeting{}, fmt.Errorf("update meeting: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Meeting{}, fmt.Errorf("commit meeting update: %w", err)
	}
	return m, nil
}

// DeleteMeeting removes the meeting record itself
func (s *Store) DeleteMeeting(ctx context.Context, id string) (int64, error) {
	return s.exec(ctx, `DELETE FROM meeting WHERE id = ?`, id)
}

// Scrutators

const selectScrutator = `SELECT id, meeting_id, name, approval_status, added_at, approved_at FROM scrutator`

func scanScrutator(row rowScanner) (models.Scrutator, error) {
	var sc models.Scrutator
	var approvedAt sql.NullTime
	if err := row.Scan(&sc.ID, &sc.MeetingID, &sc.Name, &sc.ApprovalStatus, &sc.AddedAt, &approvedAt); err != nil {
		return models.Scrutator{}, err
	}
	sc.AddedAt = sc.AddedAt.UTC()
	sc.ApprovedAt = nullTime(approvedAt)
	return sc, nil
}

// InsertScrutators adds roster entries; names already present are skipped
func (s *Store) InsertScrutators(ctx context.Context, scrutators []models.Scrutator) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, sc := range scrutators {
		var exists bool
		err := tx.QueryRowContext(ctx, s.rebind(`
			SELECT EXISTS(SELECT 1 FROM scrutator WHERE meeting_id = ? AND name = ?)
		`), sc.MeetingID, sc.Name).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check scrutator: %w", err)
		}
		if exists {
			continue
		}
		_, err = tx.ExecContext(ctx, s.rebind(`
			INSERT INTO scrutator (id, meeting_id, name, approval_status, added_at, approved_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`), sc.ID, sc.MeetingID, sc.Name, sc.ApprovalStatus, sc.AddedAt.UTC(), sc.ApprovedAt)
		if err != nil {
			return fmt.Errorf("insert scrutator: %w", err)
		}
	}

	return tx.Commit()
}

// GetScrutator loads a scrutator by id
func (s *Store) GetScrutator(ctx context.Context, id string) (models.Scrutator, error) {
	sc, err := scanScrutator(s.db.QueryRowContext(ctx, s.rebind(selectScrutator+" WHERE id = ?"), id))
	if err != nil {
		return models.Scrutator{}, notFound(err, "scrutator "+id)
	}
	return sc, nil
}

// GetScrutatorByName loads a meeting's scrutator by name
func (s *Store) GetScrutatorByName(ctx context.Context, meetingID, name string) (models.Scrutator, error) {
	sc, err := scanScrutator(s.db.QueryRowContext(ctx,
		s.rebind(selectScrutator+" WHERE meeting_id = ? AND name = ?"), meetingID, name))
	if err != nil {
		return models.Scrutator{}, notFound(err, "scrutator "+name)
	}
	return sc, nil
}

// SetScrutatorStatus records an approval decision. approvedAt is nil unless approved.
func (s *Store) SetScrutatorStatus(ctx context.Context, id, status string, approvedAt *time.Time) error {
	n, err := s.exec(ctx, `UPDATE scrutator SET approval_status = ?, approved_at = ? WHERE id = ?`,
		status, approvedAt, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: scrutator %s", models.ErrNotFound, id)
	}
	return nil
}

// ListScrutators returns a meeting's scrutators, optionally filtered by status
func (s *Store) ListScrutators(ctx context.Context, meetingID, status string) ([]models.Scrutator, error) {
	query := selectScrutator + " WHERE meeting_id = ?"
	args := []any{meetingID}
	if status != "" {
		query += " AND approval_status = ?"
		args = append(args, status)
	}
	query += " ORDER BY added_at, name"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query scrutators: %w", err)
	}
	defer rows.Close()

	scrutators := []models.Scrutator{}
	for rows.Next() {
		sc, err := scanScrutator(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scrutator: %w", err)
		}
		scrutators = append(scrutators, sc)
	}
	return scrutators, rows.Err()
}

// DeleteScrutators removes every scrutator of a meeting
func (s *Store) DeleteScrutators(ctx context.Context, meetingID string) (int64, error) {
	return s.exec(ctx, `DELETE FROM scrutator WHERE meeting_id = ?`, meetingID)
}

// Participants

const selectParticipant = `SELECT id, meeting_id, name, approval_status, joined_at FROM participant`

func scanParticipant(row rowScanner) (models.Participant, error) {
	var p models.Participant
	if err := row.Scan(&p.ID, &p.MeetingID, &p.Name, &p.ApprovalStatus, &p.JoinedAt); err != nil {
		return models.Participant{}, err
	}
	p.JoinedAt = p.JoinedAt.UTC()
	return p, nil
}

// InsertParticipant adds a participant; ErrInvalidState if the name is taken
func (s *Store) InsertParticipant(ctx context.Context, p models.Participant) error {
	var exists bool
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT EXISTS(SELECT 1 FROM participant WHERE meeting_id = ? AND name = ?)
	`), p.MeetingID, p.Name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check participant: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: name already taken", models.ErrInvalidState)
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO participant (id, meeting_id, name, approval_status, joined_at)
		VALUES (?, ?, ?, ?, ?)
	`), p.ID, p.MeetingID, p.Name, p.ApprovalStatus, p.JoinedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// GetParticipant loads a participant by id
func (s *Store) GetParticipant(ctx context.Context, id string) (models.Participant, error) {
	p, err := scanParticipant(s.db.QueryRowContext(ctx, s.rebind(selectParticipant+" WHERE id = ?"), id))
	if err != nil {
		return models.Participant{}, notFound(err, "participant "+id)
	}
	return p, nil
}

// SetParticipantStatus records an admission decision
func (s *Store) SetParticipantStatus(ctx context.Context, id, status string) error {
	n, err := s.exec(ctx, `UPDATE participant SET approval_status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: participant %s", models.ErrNotFound, id)
	}
	return nil
}

// ListParticipants returns a meeting's participants in join order
func (s *Store) ListParticipants(ctx context.Context, meetingID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(selectParticipant+" WHERE meeting_id = ? ORDER BY joined_at, name"), meetingID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	participants := []models.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// DeleteParticipants removes every participant of a meeting
func (s *Store) DeleteParticipants(ctx context.Context, meetingID string) (int64, error) {
	return s.exec(ctx, `DELETE FROM participant WHERE meeting_id = ?`, meetingID)
}

// Polls

// InsertPoll stores a poll with its options
func (s *Store) InsertPoll(ctx context.Context, p models.Poll) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO poll (id, meeting_id, question, status, timer_duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), p.ID, p.MeetingID, p.Question, p.Status, p.TimerDuration, p.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert poll: %w", err)
	}

	for _, o := range p.Options {
		_, err = tx.ExecContext(ctx, s.rebind(`
			INSERT INTO poll_option (id, poll_id, text, position, votes)
			VALUES (?, ?, ?, ?, ?)
		`), o.ID, p.ID, o.Text, o.Position, o.Votes)
		if err != nil {
			return fmt.Errorf("insert option: %w", err)
		}
	}

	return tx.Commit()
}

const pollColumns = `id, meeting_id, question, status, timer_duration, timer_started_at, created_at`

func scanPoll(row rowScanner) (models.Poll, error) {
	var p models.Poll
	var duration sql.NullInt64
	var startedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.MeetingID, &p.Question, &p.Status, &duration, &startedAt, &p.CreatedAt); err != nil {
		return models.Poll{}, err
	}
	if duration.Valid {
		d := int(duration.Int64)
		p.TimerDuration = &d
	}
	p.TimerStartedAt = nullTime(startedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

// GetPoll loads a poll with its options in position order
func (s *Store) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	p, err := scanPoll(s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+pollColumns+` FROM poll WHERE id = ?
	`), id))
	if err != nil {
		return models.Poll{}, notFound(err, "poll "+id)
	}

	options, err := s.listOptions(ctx, `WHERE poll_id = ?`, id)
	if err != nil {
		return models.Poll{}, err
	}
	p.Options = options[id]
	if p.Options == nil {
		p.Options = []models.Option{}
	}
	return p, nil
}

// ListPolls returns a meeting's polls in creation order
func (s *Store) ListPolls(ctx context.Context, meetingID string) ([]models.Poll, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+pollColumns+`
		FROM poll
		WHERE meeting_id = ?
		ORDER BY created_at, id
	`), meetingID)
	if err != nil {
		return nil, fmt.Errorf("query polls: %w", err)
	}

	polls := []models.Poll{}
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan poll: %w", err)
		}
		polls = append(polls, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	options, err := s.listOptions(ctx, `WHERE poll_id IN (SELECT id FROM poll WHERE meeting_id = ?)`, meetingID)
	if err != nil {
		return nil, err
	}
	for i := range polls {
		polls[i].Options = options[polls[i].ID]
		if polls[i].Options == nil {
			polls[i].Options = []models.Option{}
		}
	}
	return polls, nil
}

func (s *Store) listOptions(ctx context.Context, where string, arg any) (map[string][]models.Option, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, poll_id, text, position, votes FROM poll_option `+where+`
		ORDER BY poll_id, position
	`), arg)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	byPoll := make(map[string][]models.Option)
	for rows.Next() {
		var o models.Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Text, &o.Position, &o.Votes); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		byPoll[o.PollID] = append(byPoll[o.PollID], o)
	}
	return byPoll, rows.Err()
}

// ListPollIDs returns the ids of a meeting's polls
func (s *Store) ListPollIDs(ctx context.Context, meetingID string) ([]string, error) {
	return s.listIDs(ctx, s.db, `SELECT id FROM poll WHERE meeting_id = ? ORDER BY id`, meetingID)
}

// SetPollStatus moves a poll through draft → active → closed. A non-nil
// timerStartedAt is stored alongside.
func (s *Store) SetPollStatus(ctx context.Context, id, status string, timerStartedAt *time.Time) error {
	var n int64
	var err error
	if timerStartedAt != nil {
		n, err = s.exec(ctx, `UPDATE poll SET status = ?, timer_started_at = ? WHERE id = ?`, status, timerStartedAt.UTC(), id)
	} else {
		n, err = s.exec(ctx, `UPDATE poll SET status = ? WHERE id = ?`, status, id)
	}
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: poll %s", models.ErrNotFound, id)
	}
	return nil
}

// DeletePolls removes a meeting's polls and their options
func (s *Store) DeletePolls(ctx context.Context, meetingID string) (int64, error) {
	if _, err := s.exec(ctx, `
		DELETE FROM poll_option WHERE poll_id IN (SELECT id FROM poll WHERE meeting_id = ?)
	`, meetingID); err != nil {
		return 0, err
	}
	return s.exec(ctx, `DELETE FROM poll WHERE meeting_id = ?`, meetingID)
}

// Votes

// InsertVote appends an anonymous vote
func (s *Store) InsertVote(ctx context.Context, v models.Vote) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO vote (id, poll_id, option_id, voted_at) VALUES (?, ?, ?, ?)
	`), v.ID, v.PollID, v.OptionID, v.VotedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	return nil
}

// ListVoteOptionIDs returns the option id of every vote cast on a poll
func (s *Store) ListVoteOptionIDs(ctx context.Context, pollID string) ([]string, error) {
	return s.listIDs(ctx, s.db, `SELECT option_id FROM vote WHERE poll_id = ?`, pollID)
}

// SetOptionCounts overwrites the stored per-option counts of a poll.
// Options missing from counts are reset to zero.
func (s *Store) SetOptionCounts(ctx context.Context, pollID string, counts map[string]int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE poll_option SET votes = 0 WHERE poll_id = ?`), pollID); err != nil {
		return fmt.Errorf("reset option counts: %w", err)
	}
	for optionID, n := range counts {
		_, err := tx.ExecContext(ctx, s.rebind(`
			UPDATE poll_option SET votes = ? WHERE id = ? AND poll_id = ?
		`), n, optionID, pollID)
		if err != nil {
			return fmt.Errorf("update option count: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteVotes removes every vote cast on the given polls
func (s *Store) DeleteVotes(ctx context.Context, pollIDs []string) (int64, error) {
	if len(pollIDs) == 0 {
		return 0, nil
	}
	args := make([]any, len(pollIDs))
	for i, id := range pollIDs {
		args[i] = id
	}
	return s.exec(ctx, `DELETE FROM vote WHERE poll_id IN (`+placeholders(len(pollIDs))+`)`, args...)
}

// Recovery sessions

// InsertRecoverySession stores a hashed recovery credential
func (s *Store) InsertRecoverySession(ctx context.Context, rs models.RecoverySession) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO recovery_session (code, meeting_id, password_hash, created_at, expires_at, consumed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), rs.Code, rs.MeetingID, rs.PasswordHash, rs.CreatedAt.UTC(), rs.ExpiresAt.UTC(), rs.ConsumedAt)
	if err != nil {
		return fmt.Errorf("insert recovery session: %w", err)
	}
	return nil
}

// GetRecoverySession loads a session by its opaque code
func (s *Store) GetRecoverySession(ctx context.Context, code string) (models.RecoverySession, error) {
	var rs models.RecoverySession
	var consumed sql.NullTime
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT code, meeting_id, password_hash, created_at, expires_at, consumed_at
		FROM recovery_session
		WHERE code = ?
	`), code).Scan(&rs.Code, &rs.MeetingID, &rs.PasswordHash, &rs.CreatedAt, &rs.ExpiresAt, &consumed)
	if err != nil {
		return models.RecoverySession{}, notFound(err, "recovery session")
	}
	rs.CreatedAt = rs.CreatedAt.UTC()
	rs.ExpiresAt = rs.ExpiresAt.UTC()
	rs.ConsumedAt = nullTime(consumed)
	return rs, nil
}

// ConsumeRecoverySession marks a session used. It reports false when the
// session was already consumed, so only one redemption can win.
func (s *Store) ConsumeRecoverySession(ctx context.Context, code string, at time.Time) (bool, error) {
	n, err := s.exec(ctx, `
		UPDATE recovery_session SET consumed_at = ? WHERE code = ? AND consumed_at IS NULL
	`, at.UTC(), code)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteRecoverySessions removes every recovery session of a meeting
func (s *Store) DeleteRecoverySessions(ctx context.Context, meetingID string) (int64, error) {
	return s.exec(ctx, `DELETE FROM recovery_session WHERE meeting_id = ?`, meetingID)
}

// helpers

func (s *Store) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) listIDs(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
