package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/local/squidbot/pkg/models"
)

func TestCronJobs_roundTrip(t *testing.T) {
	s := newTestStore(t)

	jobs, err := s.LoadCronJobs()
	if err != nil {
		t.Fatalf("LoadCronJobs error: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("len(jobs) = %d, want 0 before first write", len(jobs))
	}

	want := []models.CronJob{
		{ID: "1", Name: "morning digest", Schedule: "0 8 * * *", Message: "summarize overnight news", Channel: "cli:local", Enabled: true},
		{ID: "2", Name: "heartbeat", Schedule: "every 300", Message: "check in", Channel: "cli:local", Enabled: false},
	}
	if err := s.SaveCronJobs(want); err != nil {
		t.Fatalf("SaveCronJobs error: %v", err)
	}

	got, err := s.LoadCronJobs()
	if err != nil {
		t.Fatalf("LoadCronJobs error: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("job %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCronJobs_corruptFileTreatedAsEmpty(t *testing.T) {
	s := newTestStore(t)

	path := filepath.Join(s.BaseDir(), "cron", "jobs.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not valid json"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	jobs, err := s.LoadCronJobs()
	if err != nil {
		t.Fatalf("LoadCronJobs error: %v (corrupt file should degrade to empty, not error)", err)
	}
	if len(jobs) != 0 {
		t.Errorf("len(jobs) = %d, want 0 for corrupt file", len(jobs))
	}
}
