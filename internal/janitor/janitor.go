// Package janitor expires generated atlas job directories.
package janitor

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Janitor removes job directories under Root whose modification time is
// older than TTL.
type Janitor struct {
	Root     string
	TTL      time.Duration
	Interval time.Duration
}

// Run sweeps every Interval until ctx is done. A zero TTL or Interval
// disables sweeping.
func (j *Janitor) Run(ctx context.Context) {
	if j.TTL <= 0 || j.Interval <= 0 {
		log.Printf("Artifact expiry disabled")
		return
	}

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed, err := j.Sweep(now); err != nil {
				log.Printf("Error sweeping %s: %v", j.Root, err)
			} else if removed > 0 {
				log.Printf("Expired %d atlas job(s) from %s", removed, j.Root)
			}
		}
	}
}

// Sweep removes expired job directories as of now and reports how many it
// removed. Plain files in Root are left alone.
func (j *Janitor) Sweep(now time.Time) (int, error) {
	entries, err := os.ReadDir(j.Root)
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-j.TTL)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(j.Root, e.Name())); err != nil {
			log.Printf("Error removing expired job %s: %v", e.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}
