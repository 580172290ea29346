package engine

import (
	"context"
	"log"
	"time"
)

// SnapshotJob periodically pushes a snapshot command through the owner
// loop, so each image is taken on the matching timeline and is exactly
// consistent with some prefix of commands.
type SnapshotJob struct {
	svc      *OrderService
	interval time.Duration
}

func NewSnapshotJob(svc *OrderService, interval time.Duration) *SnapshotJob {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SnapshotJob{svc: svc, interval: interval}
}

func (j *SnapshotJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq, err := j.svc.SnapshotNow()
			if err != nil {
				log.Printf("engine: snapshot job: %v", err)
				continue
			}
			log.Printf("engine: snapshot written at seq %d", seq)
		}
	}
}
