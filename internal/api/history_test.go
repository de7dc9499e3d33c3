package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/fusepool/sedsvc/internal/history"
	"github.com/fusepool/sedsvc/internal/model"
	"github.com/fusepool/sedsvc/internal/transform/sed"
)

func newArchive(t *testing.T) *history.SQLiteArchive {
	t.Helper()
	a, err := history.NewSQLiteArchive(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteArchive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestHistoryListsArchivedJobs(t *testing.T) {
	archive := newArchive(t)
	ts := newTestServer(t, sed.New(), 0, archive)

	resp := submitJob(t, ts, "s/a/b/", "aaa\n")
	location := resp.Header.Get("Location")
	resp.Body.Close()

	final := pollJob(t, ts, location)
	final.Body.Close()

	histResp, err := http.Get(ts.URL + "/v1/history")
	if err != nil {
		t.Fatalf("GET /v1/history: %v", err)
	}
	defer histResp.Body.Close()

	if histResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", histResp.StatusCode)
	}

	var list listHistoryResponse
	if err := json.NewDecoder(histResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("total = %d, want 1", list.Total)
	}
	entry := list.Transformations[0]
	if entry.Status != model.StatusCompleted {
		t.Errorf("status = %q, want completed", entry.Status)
	}
	if entry.Script != "s/a/b/" {
		t.Errorf("script = %q, want s/a/b/", entry.Script)
	}
}

func TestStatsEndpoint(t *testing.T) {
	archive := newArchive(t)
	ts := newTestServer(t, sed.New(), 0, archive)

	for _, script := range []string{"s/a/b/", "s/broken"} {
		resp := submitJob(t, ts, script, "aaa\n")
		location := resp.Header.Get("Location")
		resp.Body.Close()
		final := pollJob(t, ts, location)
		final.Body.Close()
	}

	statsResp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET /v1/stats: %v", err)
	}
	defer statsResp.Body.Close()

	if statsResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", statsResp.StatusCode)
	}

	var stats history.Stats
	if err := json.NewDecoder(statsResp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("total = %d, want 2", stats.Total)
	}
	if stats.CountByStatus[model.StatusCompleted] != 1 {
		t.Errorf("completed = %d, want 1", stats.CountByStatus[model.StatusCompleted])
	}
	if stats.CountByStatus[model.StatusFailed] != 1 {
		t.Errorf("failed = %d, want 1", stats.CountByStatus[model.StatusFailed])
	}
}
