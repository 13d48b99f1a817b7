package progress_test

import (
	"testing"

	"reelhold/internal/progress"
)

func TestExtractRecordsPlainList(t *testing.T) {
	raw := []byte(`[
		{"id":1,"kind":"movie","progress":{"watchedSeconds":10,"totalSeconds":100}},
		{"id":2,"kind":"series","progress":{"watchedSeconds":5,"totalSeconds":50}}
	]`)
	records, topLevel := progress.ExtractRecords(raw)
	if len(records) != 2 || topLevel != 2 {
		t.Fatalf("expected 2 records from 2 items, got %d from %d", len(records), topLevel)
	}
	if records[0].Key() != "movie-1" || records[1].Key() != "series-2" {
		t.Fatalf("unexpected keys: %s, %s", records[0].Key(), records[1].Key())
	}
}

func TestExtractRecordsNestedListsAndKeyedObject(t *testing.T) {
	raw := []byte(`[
		[{"id":1,"kind":"movie","progress":{"watchedSeconds":10,"totalSeconds":100}}],
		{"0":{"id":2,"kind":"tv","progress":{"watchedSeconds":5,"totalSeconds":50}}}
	]`)
	records, topLevel := progress.ExtractRecords(raw)
	if len(records) != 2 {
		t.Fatalf("expected exactly 2 recovered records, got %d", len(records))
	}
	if topLevel != 2 {
		t.Fatalf("expected raw length 2, got %d", topLevel)
	}
	if records[1].Kind != progress.KindSeries {
		t.Fatalf("expected tv normalized to series, got %q", records[1].Kind)
	}
}

func TestExtractRecordsDeeplyNested(t *testing.T) {
	raw := []byte(`[[[{"id":7,"kind":"movie"}]]]`)
	records, _ := progress.ExtractRecords(raw)
	if len(records) != 1 || records[0].ID != 7 {
		t.Fatalf("expected nested record recovered, got %+v", records)
	}
}

func TestExtractRecordsBareObject(t *testing.T) {
	raw := []byte(`{"id":3,"kind":"movie","progress":{"watchedSeconds":1,"totalSeconds":2}}`)
	records, topLevel := progress.ExtractRecords(raw)
	if len(records) != 1 || topLevel != 1 {
		t.Fatalf("expected single bare record, got %d from %d", len(records), topLevel)
	}
}

func TestExtractRecordsNumericKeyedRoot(t *testing.T) {
	raw := []byte(`{"0":{"id":4,"kind":"movie"},"1":{"id":5,"kind":"series"},"junk":{"id":6,"kind":"movie"}}`)
	records, _ := progress.ExtractRecords(raw)
	if len(records) != 2 {
		t.Fatalf("expected only numeric-keyed values recovered, got %d", len(records))
	}
	if records[0].ID != 4 || records[1].ID != 5 {
		t.Fatalf("expected numeric key order, got %+v", records)
	}
}

func TestExtractRecordsDropsInvalidCandidates(t *testing.T) {
	raw := []byte(`[
		{"id":1,"kind":"movie"},
		{"id":2},
		{"kind":"movie"},
		"noise",
		42,
		null
	]`)
	records, topLevel := progress.ExtractRecords(raw)
	if len(records) != 1 {
		t.Fatalf("expected 1 valid record, got %d", len(records))
	}
	if topLevel != 6 {
		t.Fatalf("expected raw length 6, got %d", topLevel)
	}
}

func TestExtractRecordsGarbage(t *testing.T) {
	for _, blob := range [][]byte{nil, []byte(""), []byte("not json"), []byte(`"just a string"`), []byte(`{"id":`)} {
		records, topLevel := progress.ExtractRecords(blob)
		if len(records) != 0 || topLevel != 0 {
			t.Fatalf("expected nothing from %q, got %d records", blob, len(records))
		}
	}
}

func TestExtractRecordsDedupByRecency(t *testing.T) {
	raw := []byte(`[
		{"id":1,"kind":"movie","lastUpdated":10,"title":"old"},
		{"id":1,"kind":"movie","lastUpdated":20,"title":"new"}
	]`)
	records, _ := progress.ExtractRecords(raw)
	if len(records) != 1 {
		t.Fatalf("expected 1 record after dedup, got %d", len(records))
	}
	if records[0].LastUpdated != 20 || records[0].Title != "new" {
		t.Fatalf("expected newest record kept, got %+v", records[0])
	}

	// Reversed input order keeps the same winner.
	reversed := []byte(`[
		{"id":1,"kind":"movie","lastUpdated":20,"title":"new"},
		{"id":1,"kind":"movie","lastUpdated":10,"title":"old"}
	]`)
	records, _ = progress.ExtractRecords(reversed)
	if len(records) != 1 || records[0].LastUpdated != 20 {
		t.Fatalf("expected newest record kept regardless of order, got %+v", records)
	}
}

func TestExtractRecordsMissingLastUpdatedTreatedAsZero(t *testing.T) {
	raw := []byte(`[
		{"id":1,"kind":"movie","title":"unstamped"},
		{"id":1,"kind":"movie","lastUpdated":5,"title":"stamped"}
	]`)
	records, _ := progress.ExtractRecords(raw)
	if len(records) != 1 || records[0].Title != "stamped" {
		t.Fatalf("expected stamped record to win, got %+v", records)
	}
}

func TestPositionToleratesNonNumericValues(t *testing.T) {
	raw := []byte(`[{"id":1,"kind":"movie","progress":{"watchedSeconds":"abc","totalSeconds":null}}]`)
	records, _ := progress.ExtractRecords(raw)
	if len(records) != 1 {
		t.Fatalf("expected candidate kept at extract stage, got %d", len(records))
	}
	if records[0].Position.Valid() {
		t.Fatal("expected non-numeric position to be invalid")
	}
}
