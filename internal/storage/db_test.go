package storage

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cptspacemanspiff/shamu-power/internal/collector"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	})

	return db
}

// testStates returns an XO_shutdown/VMIN pair whose counters derive from seed.
func testStates(seed int64) []collector.SleepState {
	n := uint64(seed)
	return []collector.SleepState{
		{
			Name:                 "XO_shutdown",
			TotalTransitions:     n,
			ResidencyMsSinceBoot: n * 10,
			Voters: []collector.Voter{
				{Name: "APSS", TimeVotedMs: n + 1, TimesVotedCount: 1},
				{Name: "MPSS", TimeVotedMs: n + 2, TimesVotedCount: 2},
				{Name: "LPASS", TimeVotedMs: n + 3, TimesVotedCount: 3},
			},
		},
		{
			Name:                 "VMIN",
			TotalTransitions:     n * 2,
			ResidencyMsSinceBoot: n * 20,
			Voters:               []collector.Voter{},
		},
	}
}

func TestPlatformSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if err := db.InsertPlatformSnapshot(10, testStates(10)); err != nil {
		t.Fatalf("InsertPlatformSnapshot(10) error = %v", err)
	}
	if err := db.InsertPlatformSnapshot(20, testStates(20)); err != nil {
		t.Fatalf("InsertPlatformSnapshot(20) error = %v", err)
	}

	latest, err := db.LatestPlatformSnapshot()
	if err != nil {
		t.Fatalf("LatestPlatformSnapshot() error = %v", err)
	}
	if latest == nil || latest.Timestamp != 20 {
		t.Fatalf("LatestPlatformSnapshot() = %#v, want timestamp=20", latest)
	}
	if !reflect.DeepEqual(latest.States, testStates(20)) {
		t.Fatalf("LatestPlatformSnapshot().States = %#v, want %#v", latest.States, testStates(20))
	}

	ranged, err := db.PlatformSnapshotsInRange(10, 15)
	if err != nil {
		t.Fatalf("PlatformSnapshotsInRange() error = %v", err)
	}
	if len(ranged) != 1 || ranged[0].Timestamp != 10 {
		t.Fatalf("PlatformSnapshotsInRange() = %#v, want one snapshot at ts=10", ranged)
	}
	if !reflect.DeepEqual(ranged[0].States, testStates(10)) {
		t.Fatalf("PlatformSnapshotsInRange()[0].States = %#v, want %#v", ranged[0].States, testStates(10))
	}
}

func TestPlatformSnapshot_VoterOrder(t *testing.T) {
	db := openTestDB(t)

	if err := db.InsertPlatformSnapshot(5, testStates(5)); err != nil {
		t.Fatalf("InsertPlatformSnapshot() error = %v", err)
	}

	snaps, err := db.PlatformSnapshotsInRange(0, 10)
	if err != nil {
		t.Fatalf("PlatformSnapshotsInRange() error = %v", err)
	}
	if len(snaps) != 1 || len(snaps[0].States) != 2 {
		t.Fatalf("PlatformSnapshotsInRange() = %#v, want one snapshot with two states", snaps)
	}
	var names []string
	for _, v := range snaps[0].States[0].Voters {
		names = append(names, v.Name)
	}
	if want := []string{"APSS", "MPSS", "LPASS"}; !reflect.DeepEqual(names, want) {
		t.Fatalf("voters = %v, want %v", names, want)
	}
	if got := snaps[0].States[1].Voters; got == nil || len(got) != 0 {
		t.Fatalf("VMIN voters = %#v, want empty non-nil slice", got)
	}
}

func TestPlatformSnapshot_Empty(t *testing.T) {
	db := openTestDB(t)

	latest, err := db.LatestPlatformSnapshot()
	if err != nil {
		t.Fatalf("LatestPlatformSnapshot() error = %v", err)
	}
	if latest != nil {
		t.Fatalf("LatestPlatformSnapshot() = %#v, want nil", latest)
	}

	if err := db.InsertPlatformSnapshot(1, nil); err != nil {
		t.Fatalf("InsertPlatformSnapshot(nil) error = %v", err)
	}
	snaps, err := db.PlatformSnapshotsInRange(0, 100)
	if err != nil {
		t.Fatalf("PlatformSnapshotsInRange() error = %v", err)
	}
	if len(snaps) != 0 {
		t.Fatalf("PlatformSnapshotsInRange() = %#v, want none", snaps)
	}
}

func TestHintEventRoundTrip(t *testing.T) {
	db := openTestDB(t)

	events := []HintEvent{
		{Timestamp: 30, Hint: "interaction"},
		{Timestamp: 40, Hint: "video_encode", Data: "state=1"},
		{Timestamp: 50, Hint: "low_power", Data: "1"},
	}
	for _, e := range events {
		if err := db.InsertHintEvent(e); err != nil {
			t.Fatalf("InsertHintEvent(%+v) error = %v", e, err)
		}
	}

	got, err := db.HintEventsInRange(35, 50)
	if err != nil {
		t.Fatalf("HintEventsInRange() error = %v", err)
	}
	if !reflect.DeepEqual(got, events[1:]) {
		t.Fatalf("HintEventsInRange() = %#v, want %#v", got, events[1:])
	}
}

func TestPlatformSnapshotSameTimestampReplaces(t *testing.T) {
	db := openTestDB(t)

	if err := db.InsertPlatformSnapshot(10, testStates(10)); err != nil {
		t.Fatalf("InsertPlatformSnapshot(10) error = %v", err)
	}
	if err := db.InsertPlatformSnapshot(10, testStates(11)); err != nil {
		t.Fatalf("InsertPlatformSnapshot(10) again error = %v", err)
	}

	snaps, err := db.PlatformSnapshotsInRange(0, 20)
	if err != nil {
		t.Fatalf("PlatformSnapshotsInRange() error = %v", err)
	}
	if len(snaps) != 1 || snaps[0].Timestamp != 10 {
		t.Fatalf("PlatformSnapshotsInRange() = %#v, want one snapshot at ts=10", snaps)
	}
	if !reflect.DeepEqual(snaps[0].States, testStates(11)) {
		t.Fatalf("States = %#v, want %#v", snaps[0].States, testStates(11))
	}
}
