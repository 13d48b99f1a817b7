package progress

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// ExtractRecords recovers progress records from a persisted blob that may
// carry one of several known corruption shapes: a proper list, nested lists,
// an object whose numeric-string keys hold the records (a degraded keyed
// collection), or a single bare record. It returns the recovered records and
// the number of top-level items in the raw input; a mismatch between the two
// tells the loader that repair is needed. Unrecoverable input yields an
// empty set, never an error.
func ExtractRecords(raw []byte) ([]Record, int) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, 0
	}

	var candidates []Record
	topLevel := 0
	switch trimmed[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, 0
		}
		topLevel = len(elems)
		for _, elem := range elems {
			collectRecords(elem, &candidates)
		}
	case '{':
		topLevel = 1
		collectRecords(trimmed, &candidates)
	default:
		return nil, 0
	}

	return dedupeByRecency(candidates), topLevel
}

func collectRecords(raw json.RawMessage, out *[]Record) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return
	}
	switch trimmed[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return
		}
		for _, elem := range elems {
			collectRecords(elem, out)
		}
	case '{':
		if rec, ok := decodeCandidate(trimmed); ok {
			*out = append(*out, rec)
			return
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return
		}
		for _, key := range sortedNumericKeys(fields) {
			collectRecords(fields[key], out)
		}
	}
}

// decodeCandidate accepts an object as a record when both id and kind are
// present. Full progress-shape validation happens at cache-build time.
func decodeCandidate(raw []byte) (Record, bool) {
	var probe struct {
		ID   *int64  `json:"id"`
		Kind *string `json:"kind"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Record{}, false
	}
	if probe.ID == nil || probe.Kind == nil || strings.TrimSpace(*probe.Kind) == "" {
		return Record{}, false
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false
	}
	return rec, true
}

func sortedNumericKeys(fields map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		if _, err := strconv.Atoi(key); err == nil {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, _ := strconv.Atoi(keys[i])
		b, _ := strconv.Atoi(keys[j])
		return a < b
	})
	return keys
}

// dedupeByRecency keeps the newest record per (id, kind) key, preserving
// first-seen order.
func dedupeByRecency(candidates []Record) []Record {
	if len(candidates) == 0 {
		return nil
	}
	index := make(map[string]int, len(candidates))
	kept := make([]Record, 0, len(candidates))
	for _, rec := range candidates {
		key := rec.Key()
		if at, seen := index[key]; seen {
			if Newer(rec, kept[at]) {
				kept[at] = rec
			}
			continue
		}
		index[key] = len(kept)
		kept = append(kept, rec)
	}
	return kept
}
