package backup

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"
)

// Run executes the job once per day at the configured wall-clock time until
// ctx is cancelled. A failed run is logged and the next one is scheduled
// normally; the scheduler never crashes the service.
func (j *Job) Run(ctx context.Context) {
	hour, minute, err := parseClock(j.cfg.Time)
	if err != nil {
		log.Printf("backup scheduler disabled: %v", err)
		return
	}

	for {
		wait := time.Until(nextRun(j.now(), hour, minute))

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		name, err := j.Once(ctx)
		if err != nil {
			log.Printf("backup failed: %v", err)
			continue
		}
		log.Printf("daily backup created: %s", name)
	}
}

// nextRun returns the next occurrence of hour:minute strictly after now.
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func parseClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid backup time %q, want HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid backup hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid backup minute in %q", s)
	}
	return hour, minute, nil
}
