package progress

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Kind identifies the media category of a progress record.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// ParseKind normalizes a raw kind value. "tv" and "show" are accepted as
// aliases for series to match upstream catalog APIs.
func ParseKind(value string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie":
		return KindMovie, true
	case "series", "tv", "show":
		return KindSeries, true
	}
	return "", false
}

// UnmarshalJSON keeps unknown kinds instead of failing so that structural
// validation stays the loader's responsibility.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if kind, ok := ParseKind(raw); ok {
		*k = kind
		return nil
	}
	*k = Kind(strings.ToLower(strings.TrimSpace(raw)))
	return nil
}

// Position is a playback position in seconds.
type Position struct {
	WatchedSeconds float64 `json:"watchedSeconds"`
	TotalSeconds   float64 `json:"totalSeconds"`
}

// UnmarshalJSON tolerates non-numeric persisted values, mapping them to NaN
// so the cleanup pass can purge the enclosing record instead of the whole
// blob failing to parse.
func (p *Position) UnmarshalJSON(data []byte) error {
	var raw struct {
		WatchedSeconds json.RawMessage `json:"watchedSeconds"`
		TotalSeconds   json.RawMessage `json:"totalSeconds"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.WatchedSeconds = decodeSeconds(raw.WatchedSeconds)
	p.TotalSeconds = decodeSeconds(raw.TotalSeconds)
	return nil
}

// MarshalJSON writes non-finite values as null so a blob that still carries
// structurally invalid positions can be re-persisted during repair.
func (p Position) MarshalJSON() ([]byte, error) {
	var buf strings.Builder
	buf.WriteString(`{"watchedSeconds":`)
	buf.WriteString(encodeSeconds(p.WatchedSeconds))
	buf.WriteString(`,"totalSeconds":`)
	buf.WriteString(encodeSeconds(p.TotalSeconds))
	buf.WriteByte('}')
	return []byte(buf.String()), nil
}

func encodeSeconds(value float64) string {
	if !isFinite(value) {
		return "null"
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func decodeSeconds(raw json.RawMessage) float64 {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return math.NaN()
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return math.NaN()
	}
	return value
}

// Valid reports whether both position fields hold usable numbers.
func (p *Position) Valid() bool {
	if p == nil {
		return false
	}
	return isFinite(p.WatchedSeconds) && isFinite(p.TotalSeconds)
}

func isFinite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}

// Episode is the persisted per-episode sub-state of a series record.
type Episode struct {
	Season      int       `json:"season"`
	Episode     int       `json:"episode"`
	Position    *Position `json:"progress,omitempty"`
	LastUpdated int64     `json:"lastUpdated,omitempty"`
}

// Record is one persisted watch-progress entry per (title, kind).
//
// Position carries the primary playback position: the movie position, or the
// series' last-touched episode. LastUpdated (epoch millis) is the ordering
// key for all conflict resolution.
type Record struct {
	ID          int64     `json:"id"`
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title,omitempty"`
	PosterRef   string    `json:"posterRef,omitempty"`
	BackdropRef string    `json:"backdropRef,omitempty"`
	Position    *Position `json:"progress,omitempty"`
	LastUpdated int64     `json:"lastUpdated,omitempty"`

	EpisodeCount       int                `json:"episodeCount,omitempty"`
	SeasonCount        int                `json:"seasonCount,omitempty"`
	LastSeasonWatched  string             `json:"lastSeasonWatched,omitempty"`
	LastEpisodeWatched string             `json:"lastEpisodeWatched,omitempty"`
	Episodes           map[string]Episode `json:"episodeStates,omitempty"`
}

// Key returns the cache key for the record.
func (r *Record) Key() string {
	return Key(r.Kind, r.ID)
}

// Key builds the cache key for a (kind, id) pair.
func Key(kind Kind, id int64) string {
	return fmt.Sprintf("%s-%d", kind, id)
}

// EpisodeKey builds the episode sub-state key, e.g. "s2e3".
func EpisodeKey(season, episode int) string {
	return fmt.Sprintf("s%de%d", season, episode)
}

// ParseEpisodeKey splits an episode key back into season and episode numbers.
func ParseEpisodeKey(key string) (season, episode int, ok bool) {
	rest, found := strings.CutPrefix(key, "s")
	if !found {
		return 0, 0, false
	}
	seasonPart, episodePart, found := strings.Cut(rest, "e")
	if !found {
		return 0, 0, false
	}
	season, err := strconv.Atoi(seasonPart)
	if err != nil {
		return 0, 0, false
	}
	episode, err = strconv.Atoi(episodePart)
	if err != nil {
		return 0, 0, false
	}
	return season, episode, true
}

// Newer reports whether a should replace b under recency merge. A missing
// LastUpdated counts as zero. Both backend import and load-time dedup use
// this comparison so the two paths cannot disagree on ordering.
func Newer(a, b Record) bool {
	return a.LastUpdated > b.LastUpdated
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	cp := r
	if r.Position != nil {
		pos := *r.Position
		cp.Position = &pos
	}
	if r.Episodes != nil {
		cp.Episodes = make(map[string]Episode, len(r.Episodes))
		for key, episode := range r.Episodes {
			if episode.Position != nil {
				pos := *episode.Position
				episode.Position = &pos
			}
			cp.Episodes[key] = episode
		}
	}
	return cp
}

// NowMillis converts a wall-clock time to the epoch-millis resolution used by
// LastUpdated.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// EncodeRecords serializes the keyed record set as a JSON array ordered by
// key, the canonical persisted blob shape.
func EncodeRecords(byKey map[string]Record) ([]byte, error) {
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		records = append(records, byKey[key])
	}
	return json.Marshal(records)
}
