// Package auditlog tells forced voice transitions from voluntary ones by
// diffing successive guild audit-log snapshots.
package auditlog

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// ActionType mirrors the platform's audit-log action codes.
type ActionType int

const (
	ActionMemberMove       ActionType = 26
	ActionMemberDisconnect ActionType = 27
)

func (a ActionType) String() string {
	switch a {
	case ActionMemberMove:
		return "member_move"
	case ActionMemberDisconnect:
		return "member_disconnect"
	default:
		return fmt.Sprintf("action_%d", int(a))
	}
}

// Entry is one audit-log record. Options holds the action specific fields
// (channel_id, count) as strings.
type Entry struct {
	ID         string
	ActionType ActionType
	UserID     string
	TargetID   string
	Options    map[string]string
}

// Fetcher loads the audit log of a guild for one action type, freshest first.
type Fetcher interface {
	FetchEntries(ctx context.Context, guildID string, action ActionType) ([]Entry, error)
}

// Equal compares two snapshots after truncating both to the shorter length,
// keeping the freshest entries. Entries are compared field by field, then
// every option key of either entry against the counterpart's value for it.
func Equal(a, b []Entry) bool {
	n := min(len(a), len(b))
	a, b = a[:n], b[:n]

	for i := range a {
		if !sameFields(a[i], b[i]) {
			return false
		}
	}
	for i := range a {
		if !sameOptions(a[i].Options, b[i].Options) || !sameOptions(b[i].Options, a[i].Options) {
			return false
		}
	}
	return true
}

func sameFields(a, b Entry) bool {
	return a.ID == b.ID &&
		a.ActionType == b.ActionType &&
		a.UserID == b.UserID &&
		a.TargetID == b.TargetID
}

// sameOptions checks every key of a against b.
func sameOptions(a, b map[string]string) bool {
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

type snapshotKey struct {
	guildID string
	action  ActionType
}

// Differ keeps the previous snapshot per (guild, action) for one bot
// identity.
type Differ struct {
	fetcher Fetcher
	log     zerolog.Logger

	mu        sync.Mutex
	snapshots map[snapshotKey][]Entry
}

func NewDiffer(fetcher Fetcher, log zerolog.Logger) *Differ {
	return &Differ{
		fetcher:   fetcher,
		log:       log,
		snapshots: make(map[snapshotKey][]Entry),
	}
}

// Classify fetches the current snapshot for action, reports whether it
// differs from the previous one, and stores it as the new previous. With no
// previous snapshot the transition counts as voluntary. On fetch errors the
// previous snapshot is kept and the transition counts as voluntary.
func (d *Differ) Classify(ctx context.Context, guildID string, action ActionType) (forced bool, err error) {
	current, err := d.fetcher.FetchEntries(ctx, guildID, action)
	if err != nil {
		d.log.Warn().Err(err).Str("guild", guildID).Stringer("action", action).Msg("audit log fetch failed")
		return false, err
	}

	k := snapshotKey{guildID, action}
	d.mu.Lock()
	previous, seen := d.snapshots[k]
	d.snapshots[k] = current
	d.mu.Unlock()

	if !seen {
		return false, nil
	}
	return !Equal(current, previous), nil
}

// Refresh re-fetches the move and disconnect snapshots of a guild.
func (d *Differ) Refresh(ctx context.Context, guildID string) error {
	var firstErr error
	for _, action := range []ActionType{ActionMemberMove, ActionMemberDisconnect} {
		entries, err := d.fetcher.FetchEntries(ctx, guildID, action)
		if err != nil {
			d.log.Warn().Err(err).Str("guild", guildID).Stringer("action", action).Msg("audit log refresh failed")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		d.mu.Lock()
		d.snapshots[snapshotKey{guildID, action}] = entries
		d.mu.Unlock()
	}
	return firstErr
}

// Forget drops every snapshot of a guild.
func (d *Differ) Forget(guildID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k := range d.snapshots {
		if k.guildID == guildID {
			delete(d.snapshots, k)
		}
	}
}
