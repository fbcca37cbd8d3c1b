package preferences

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/carebridgehq/comms/pkg/comms"
)

// Window is one recurring quiet-hours interval. Start and End are wall-clock
// times in "HH:MM" form, evaluated in Location. A window whose End precedes
// its Start crosses midnight.
type Window struct {
	// Days limits the window to the listed weekdays. Empty means every day.
	// For midnight-crossing windows the day is the one the window starts on.
	Days     []time.Weekday `json:"days,omitempty"`
	Start    string         `json:"start"`
	End      string         `json:"end"`
	Location string         `json:"location,omitempty"`
}

// Contains reports whether the instant falls inside the window.
func (w Window) Contains(now time.Time) (bool, error) {
	loc := time.UTC
	if w.Location != "" {
		var err error
		loc, err = time.LoadLocation(w.Location)
		if err != nil {
			return false, fmt.Errorf("%w: location %q: %v", ErrInvalidWindow, w.Location, err)
		}
	}

	start, err := parseClock(w.Start)
	if err != nil {
		return false, err
	}
	end, err := parseClock(w.End)
	if err != nil {
		return false, err
	}
	if start == end {
		return false, nil
	}

	local := now.In(loc)
	minute := local.Hour()*60 + local.Minute()

	if start < end {
		return minute >= start && minute < end && w.appliesOn(local.Weekday()), nil
	}

	// Crosses midnight: the stretch before End belongs to a window that
	// started the previous day.
	if minute >= start {
		return w.appliesOn(local.Weekday()), nil
	}
	if minute < end {
		return w.appliesOn(previousWeekday(local.Weekday())), nil
	}
	return false, nil
}

func (w Window) appliesOn(day time.Weekday) bool {
	if len(w.Days) == 0 {
		return true
	}
	for _, d := range w.Days {
		if d == day {
			return true
		}
	}
	return false
}

func previousWeekday(d time.Weekday) time.Weekday {
	return (d + 6) % 7
}

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("%w: clock %q must be HH:MM", ErrInvalidWindow, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: clock %q must be HH:MM", ErrInvalidWindow, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: clock %q must be HH:MM", ErrInvalidWindow, s)
	}
	return h*60 + m, nil
}

// UserPreference is one user's delivery configuration within an
// organization: preferred routing, consent, quiet hours, and the channel
// identifiers the user has registered.
type UserPreference struct {
	UserID            string              `json:"user_id"`
	OrgID             string              `json:"org_id"`
	PrimaryChannel    comms.ChannelType   `json:"primary_channel"`
	PrimaryIdentifier string              `json:"primary_identifier,omitempty"`
	FallbackChannels  []comms.ChannelType `json:"fallback_channels,omitempty"`
	Language          language.Tag        `json:"language,omitempty"`
	ConsentGiven      bool                `json:"consent_given"`
	ConsentUpdatedAt  time.Time           `json:"consent_updated_at,omitzero"`
	QuietHours        []Window            `json:"quiet_hours,omitempty"`

	// Identifiers maps channel to the user's registered identifiers and
	// whether each has been verified. Unverified identifiers are never
	// routed to.
	Identifiers map[comms.ChannelType]map[string]bool `json:"identifiers,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Validate checks the fields the service requires before persisting.
func (p UserPreference) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidPreference)
	}
	if p.OrgID == "" {
		return fmt.Errorf("%w: org id is required", ErrInvalidPreference)
	}
	if p.PrimaryChannel != "" && !p.PrimaryChannel.Valid() {
		return fmt.Errorf("%w: unknown primary channel %q", ErrInvalidPreference, p.PrimaryChannel)
	}
	for _, ch := range p.FallbackChannels {
		if !ch.Valid() {
			return fmt.Errorf("%w: unknown fallback channel %q", ErrInvalidPreference, ch)
		}
	}
	return nil
}

// VerifiedIdentifier returns a verified identifier for the channel. The
// primary identifier wins on the primary channel when it is verified.
func (p UserPreference) VerifiedIdentifier(ch comms.ChannelType) (string, bool) {
	ids := p.Identifiers[ch]
	if ch == p.PrimaryChannel && p.PrimaryIdentifier != "" && ids[p.PrimaryIdentifier] {
		return p.PrimaryIdentifier, true
	}
	for id, verified := range ids {
		if verified {
			return id, true
		}
	}
	return "", false
}

// InQuietHours reports whether the instant falls inside any quiet window.
func (p UserPreference) InQuietHours(now time.Time) (bool, error) {
	for _, w := range p.QuietHours {
		inside, err := w.Contains(now)
		if err != nil {
			return false, err
		}
		if inside {
			return true, nil
		}
	}
	return false, nil
}

// Clone returns a deep copy so storage implementations can hand out
// independent values.
func (p UserPreference) Clone() UserPreference {
	out := p
	out.FallbackChannels = append([]comms.ChannelType(nil), p.FallbackChannels...)
	out.QuietHours = append([]Window(nil), p.QuietHours...)
	for i, w := range out.QuietHours {
		out.QuietHours[i].Days = append([]time.Weekday(nil), w.Days...)
	}
	if p.Identifiers != nil {
		out.Identifiers = make(map[comms.ChannelType]map[string]bool, len(p.Identifiers))
		for ch, ids := range p.Identifiers {
			m := make(map[string]bool, len(ids))
			for id, verified := range ids {
				m[id] = verified
			}
			out.Identifiers[ch] = m
		}
	}
	return out
}

// ConsentAction is the kind of consent change recorded in the audit trail.
type ConsentAction string

const (
	ConsentGranted ConsentAction = "consent_granted"
	ConsentRevoked ConsentAction = "consent_revoked"
)

// ConsentEvent is one immutable audit entry. Events are only ever appended;
// revoking consent keeps the preference record and its full history.
type ConsentEvent struct {
	ID         string        `json:"id"`
	OrgID      string        `json:"org_id"`
	UserID     string        `json:"user_id"`
	Action     ConsentAction `json:"action"`
	Actor      string        `json:"actor"`
	Reason     string        `json:"reason,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}
