package store

import (
	"encoding/json"
	"fmt"

	"github.com/local/squidbot/pkg/models"
)

// LoadCronJobs returns the scheduled jobs in cron/jobs.json. A missing file
// is an empty list; a corrupt file is logged as a warning and also treated
// as empty rather than surfaced as an error, matching the store's
// tolerant-read policy for the small document files (spec §4.4).
func (s *Store) LoadCronJobs() ([]models.CronJob, error) {
	s.docMu.Lock()
	defer s.docMu.Unlock()

	content, err := readFileOrEmpty(s.cronPath)
	if err != nil {
		return nil, fmt.Errorf("read cron jobs: %w", err)
	}
	if content == "" {
		return nil, nil
	}

	var jobs []models.CronJob
	if err := json.Unmarshal([]byte(content), &jobs); err != nil {
		s.logger.Warn("cron jobs file is corrupt, treating as empty", "path", s.cronPath, "error", err)
		return nil, nil
	}
	return jobs, nil
}

// SaveCronJobs atomically replaces cron/jobs.json with jobs.
func (s *Store) SaveCronJobs(jobs []models.CronJob) error {
	s.docMu.Lock()
	defer s.docMu.Unlock()

	if jobs == nil {
		jobs = []models.CronJob{}
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cron jobs: %w", err)
	}
	if err := atomicWriteFile(s.cronPath, data, 0o644); err != nil {
		return fmt.Errorf("write cron jobs: %w", err)
	}
	return nil
}
