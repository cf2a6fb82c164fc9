package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	journalKey       = "nfowatch:quarantined"
	journalEntryTTL  = 7 * 24 * time.Hour
	journalMaxLength = 10000
)

// QuarantineEntry records a release that exhausted its retries.
type QuarantineEntry struct {
	ReleaseID int64     `json:"release_id"`
	RunID     string    `json:"run_id"`
	At        time.Time `json:"at"`
}

// QuarantineJournal keeps a bounded, time-ordered log of quarantined
// releases for operators.
type QuarantineJournal struct {
	rdb *redis.Client
}

// NewQuarantineJournal creates a Redis-backed quarantine journal.
func NewQuarantineJournal(client *Client) *QuarantineJournal {
	return &QuarantineJournal{rdb: client.rdb}
}

func entryKey(releaseID int64) string {
	return fmt.Sprintf("nfowatch:quarantined:%d", releaseID)
}

// Record appends an entry to the journal.
func (j *QuarantineJournal) Record(ctx context.Context, e QuarantineEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal quarantine entry: %w", err)
	}

	member := strconv.FormatInt(e.ReleaseID, 10)
	pipe := j.rdb.TxPipeline()
	pipe.Set(ctx, entryKey(e.ReleaseID), data, journalEntryTTL)
	pipe.ZAdd(ctx, journalKey, redis.Z{Score: float64(e.At.Unix()), Member: member})
	// Keep only the newest entries.
	pipe.ZRemRangeByRank(ctx, journalKey, 0, -journalMaxLength-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record quarantine: %w", err)
	}
	return nil
}

// RecordQuarantine records a release quarantined by the given pass.
func (j *QuarantineJournal) RecordQuarantine(ctx context.Context, releaseID int64, runID string) error {
	return j.Record(ctx, QuarantineEntry{ReleaseID: releaseID, RunID: runID})
}

// Recent returns up to limit entries, newest first.
func (j *QuarantineJournal) Recent(ctx context.Context, limit int) ([]QuarantineEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	members, err := j.rdb.ZRevRange(ctx, journalKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}

	entries := make([]QuarantineEntry, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		data, err := j.rdb.Get(ctx, entryKey(id)).Bytes()
		if err == redis.Nil {
			// Entry expired but id still indexed, drop it
			j.rdb.ZRem(ctx, journalKey, m)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get quarantine entry: %w", err)
		}
		var e QuarantineEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quarantine entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
