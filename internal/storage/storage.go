package storage

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/keshon/ttsvoice/datastore"
)

const (
	guildPrefix = "guild:"
	userPrefix  = "user:"
	botPrefix   = "bot:"
	cmdPrefix   = "commands:"
)

// Storage is the aggregate save file: deny lists, nickname overrides, voice
// choices and the channels each bot identity was last asked to join.
type Storage struct {
	ds *datastore.DataStore
	mu sync.Mutex
}

type GuildRecord struct {
	Denied []string `json:"denied"`
}

type UserRecord struct {
	Nickname string `json:"nickname,omitempty"`
	Voice    string `json:"voice,omitempty"`
}

// LastJoin is where a bot identity was bound in a guild, replayed by the
// reconnect pass after a restart.
type LastJoin struct {
	GuildID        string    `json:"guild_id"`
	TextChannelID  string    `json:"text_channel_id"`
	VoiceChannelID string    `json:"voice_channel_id"`
	JoinedAt       time.Time `json:"joined_at"`
}

type BotRecord struct {
	LastJoins map[string]LastJoin `json:"last_joins"` // key = guildID
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// Flush writes the save file if anything changed since the last flush.
func (s *Storage) Flush() error {
	return s.ds.Flush()
}

func (s *Storage) Dirty() bool {
	return s.ds.Dirty()
}

func (s *Storage) getGuildRecord(guildID string) (*GuildRecord, error) {
	var record GuildRecord
	if _, err := s.ds.Get(guildPrefix+guildID, &record); err != nil {
		return nil, fmt.Errorf("error reading guild record: %w", err)
	}
	return &record, nil
}

func (s *Storage) getUserRecord(userID string) (*UserRecord, error) {
	var record UserRecord
	if _, err := s.ds.Get(userPrefix+userID, &record); err != nil {
		return nil, fmt.Errorf("error reading user record: %w", err)
	}
	return &record, nil
}

func (s *Storage) getBotRecord(botUserID string) (*BotRecord, error) {
	var record BotRecord
	if _, err := s.ds.Get(botPrefix+botUserID, &record); err != nil {
		return nil, fmt.Errorf("error reading bot record: %w", err)
	}
	if record.LastJoins == nil {
		record.LastJoins = make(map[string]LastJoin)
	}
	return &record, nil
}

func (s *Storage) putUserRecord(userID string, record *UserRecord) error {
	if record.Nickname == "" && record.Voice == "" {
		s.ds.Delete(userPrefix + userID)
		return nil
	}
	return s.ds.Put(userPrefix+userID, record)
}

// Deny list

func (s *Storage) IsDenied(guildID, userID string) bool {
	record, err := s.getGuildRecord(guildID)
	if err != nil {
		return false
	}
	return slices.Contains(record.Denied, userID)
}

func (s *Storage) DeniedUsers(guildID string) ([]string, error) {
	record, err := s.getGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.Denied, nil
}

// AddDenied reports false when the user was already denied.
func (s *Storage) AddDenied(guildID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getGuildRecord(guildID)
	if err != nil {
		return false, err
	}
	if slices.Contains(record.Denied, userID) {
		return false, nil
	}
	record.Denied = append(record.Denied, userID)
	return true, s.ds.Put(guildPrefix+guildID, record)
}

// RemoveDenied reports false when the user was not denied.
func (s *Storage) RemoveDenied(guildID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getGuildRecord(guildID)
	if err != nil {
		return false, err
	}
	i := slices.Index(record.Denied, userID)
	if i < 0 {
		return false, nil
	}
	record.Denied = slices.Delete(record.Denied, i, i+1)
	if len(record.Denied) == 0 {
		s.ds.Delete(guildPrefix + guildID)
		return true, nil
	}
	return true, s.ds.Put(guildPrefix+guildID, record)
}

// Nicknames

func (s *Storage) Nickname(userID string) (string, bool) {
	record, err := s.getUserRecord(userID)
	if err != nil || record.Nickname == "" {
		return "", false
	}
	return record.Nickname, true
}

// SetNickname sets the name read aloud for a user. An empty name removes the
// override.
func (s *Storage) SetNickname(userID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getUserRecord(userID)
	if err != nil {
		return err
	}
	record.Nickname = name
	return s.putUserRecord(userID, record)
}

// Voices

func (s *Storage) UserVoice(userID string) (string, bool) {
	record, err := s.getUserRecord(userID)
	if err != nil || record.Voice == "" {
		return "", false
	}
	return record.Voice, true
}

func (s *Storage) SetUserVoice(userID, voiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getUserRecord(userID)
	if err != nil {
		return err
	}
	record.Voice = voiceID
	return s.putUserRecord(userID, record)
}

// Last join bindings

func (s *Storage) SetLastJoin(botUserID string, join LastJoin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getBotRecord(botUserID)
	if err != nil {
		return err
	}
	if join.JoinedAt.IsZero() {
		join.JoinedAt = time.Now()
	}
	record.LastJoins[join.GuildID] = join
	return s.ds.Put(botPrefix+botUserID, record)
}

func (s *Storage) ClearLastJoin(botUserID, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.getBotRecord(botUserID)
	if err != nil {
		return err
	}
	if _, ok := record.LastJoins[guildID]; !ok {
		return nil
	}
	delete(record.LastJoins, guildID)
	return s.ds.Put(botPrefix+botUserID, record)
}

// LastJoins returns every persisted binding of a bot identity, ordered by
// guild id.
func (s *Storage) LastJoins(botUserID string) ([]LastJoin, error) {
	record, err := s.getBotRecord(botUserID)
	if err != nil {
		return nil, err
	}
	out := make([]LastJoin, 0, len(record.LastJoins))
	for _, j := range record.LastJoins {
		out = append(out, j)
	}
	slices.SortFunc(out, func(a, b LastJoin) int {
		switch {
		case a.GuildID < b.GuildID:
			return -1
		case a.GuildID > b.GuildID:
			return 1
		}
		return 0
	})
	return out, nil
}

// Registered command set

// CommandHash returns the hash of the slash commands last registered for an
// application.
func (s *Storage) CommandHash(appID string) string {
	var h string
	if ok, err := s.ds.Get(cmdPrefix+appID, &h); !ok || err != nil {
		return ""
	}
	return h
}

func (s *Storage) SetCommandHash(appID, hash string) error {
	return s.ds.Put(cmdPrefix+appID, hash)
}
