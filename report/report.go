// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package report

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"text/tabwriter"
	"time"
	"unicode"

	"github.com/danielhkuo/assembly-vote/models"
)

const ContentType = "text/plain; charset=utf-8"

// Input is everything a report shows.
type Input struct {
	Meeting      models.Meeting
	Scrutators   []models.Scrutator
	Participants []models.Participant
	Polls        []models.Poll
	GeneratedAt  time.Time
	Partial      bool
}

// Artifact is a rendered report ready to download.
type Artifact struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Render builds the plain-text report.
func Render(in Input) Artifact {
	var b bytes.Buffer

	title := "SECRET BALLOT REPORT"
	if in.Partial {
		title = "PARTIAL SECRET BALLOT REPORT"
	}
	fmt.Fprintf(&b, "%s\n%s\n\n", title, strings.Repeat("=", len(title)))

	if in.Partial {
		b.WriteString("Organizer absent: this report reflects the meeting state at generation time.\n\n")
	}

	m := in.Meeting
	fmt.Fprintf(&b, "Meeting:      %s\n", m.Title)
	fmt.Fprintf(&b, "Organizer:    %s\n", m.OrganizerName)
	fmt.Fprintf(&b, "Meeting code: %s\n", m.MeetingCode)
	fmt.Fprintf(&b, "Created:      %s\n", formatTime(m.CreatedAt))
	fmt.Fprintf(&b, "Generated:    %s\n\n", formatTime(in.GeneratedAt))

	if len(in.Scrutators) > 0 {
		section(&b, "SCRUTATORS")
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tName\tAdded")
		for i, s := range in.Scrutators {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, s.Name, formatTime(s.AddedAt))
		}
		tw.Flush()
		fmt.Fprintf(&b, "Total scrutators: %d\n\n", len(in.Scrutators))
	}

	section(&b, "APPROVED PARTICIPANTS")
	var admitted []models.Participant
	for _, p := range in.Participants {
		if p.ApprovalStatus == models.StatusApproved {
			admitted = append(admitted, p)
		}
	}
	if len(admitted) == 0 {
		b.WriteString("No approved participants\n\n")
	} else {
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tName\tJoined")
		for i, p := range admitted {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, p.Name, p.JoinedAt.UTC().Format("15:04"))
		}
		tw.Flush()
		fmt.Fprintf(&b, "Total approved participants: %d\n\n", len(admitted))
	}

	section(&b, "POLL RESULTS")
	if len(in.Polls) == 0 {
		b.WriteString("No polls\n")
	}
	for i, poll := range in.Polls {
		fmt.Fprintf(&b, "Poll %d: %s (%s)\n", i+1, poll.Question, poll.Status)
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', tabwriter.AlignRight)
		for _, r := range Results(poll) {
			fmt.Fprintf(tw, "  %s\t%d\t%.1f%%\t\n", r.Option, r.Votes, r.Percentage)
		}
		tw.Flush()
		fmt.Fprintf(&b, "  Total votes: %d\n\n", poll.TotalVotes())
	}

	return Artifact{
		Filename:    Filename(m, in.Partial),
		ContentType: ContentType,
		Body:        b.Bytes(),
	}
}

// Results computes per-option shares rounded to one decimal.
func Results(poll models.Poll) []models.OptionResult {
	total := poll.TotalVotes()
	results := make([]models.OptionResult, 0, len(poll.Options))
	for _, o := range poll.Options {
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(o.Votes)/float64(total)*1000) / 10
		}
		results = append(results, models.OptionResult{Option: o.Text, Votes: o.Votes, Percentage: pct})
	}
	return results
}

// Filename is Report_<title>_<code>.txt, keeping only letters, digits, space, - and _.
func Filename(m models.Meeting, partial bool) string {
	safe := strings.TrimRightFunc(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			return r
		}
		return -1
	}, m.Title), unicode.IsSpace)

	prefix := "Report"
	if partial {
		prefix = "Partial_Report"
	}
	return fmt.Sprintf("%s_%s_%s.txt", prefix, safe, m.MeetingCode)
}

func section(b *bytes.Buffer, name string) {
	fmt.Fprintf(b, "%s\n%s\n", name, strings.Repeat("-", len(name)))
}

func formatTime(t time.Time) string {
	return t.UTC().Format("02/01/2006 15:04 UTC")
}
