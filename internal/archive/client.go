// Package archive exports closed runs to Redis and reads them back for the
// CLI. A run is archived exactly once, after its store is closed; the archive
// is an audit log, never an input to further computation.
package archive

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/corvidlabs/rook/internal/engine"
	"github.com/corvidlabs/rook/pkg/blackboard"
)

// Key layout, all namespaced under the run id:
//
//	rook:runs                 ZSET  run id scored by archive time (ms)
//	rook:run:{id}:meta        HASH  run metadata
//	rook:run:{id}:log         ZSET  fact ids scored by fact id
//	rook:run:{id}:fact:{n}    HASH  one fact, flat-serialized

func runsKey() string                       { return "rook:runs" }
func metaKey(runID string) string           { return fmt.Sprintf("rook:run:%s:meta", runID) }
func logKey(runID string) string            { return fmt.Sprintf("rook:run:%s:log", runID) }
func factKey(runID string, id int64) string { return fmt.Sprintf("rook:run:%s:fact:%d", runID, id) }

// Client provides run-archive operations against Redis. It is safe for
// concurrent use.
type Client struct {
	rdb *redis.Client
}

// NewClient creates an archive client from Redis connection options.
func NewClient(redisOpts *redis.Options) *Client {
	return &Client{rdb: redis.NewClient(redisOpts)}
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful before a long run whose result
// would otherwise be lost at export time.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// RunSummary is the indexed metadata of one archived run.
type RunSummary struct {
	RunID      string
	Mode       blackboard.Mode
	Outcome    engine.Outcome
	Rounds     int
	Facts      int
	ArchivedAt int64 // unix milliseconds
	VerdictID  int64 // 0 when the run did not converge
}

// ArchiveRun writes a finished run to Redis: every fact as its own hash, the
// ordered fact log, and the run metadata. Archiving the same run twice is
// safe; the second write overwrites the first with identical content.
func (c *Client) ArchiveRun(ctx context.Context, result *engine.Result, archivedAtMs int64) error {
	if result == nil {
		return fmt.Errorf("result cannot be nil")
	}
	if result.RunID == "" {
		return fmt.Errorf("result is missing a run id")
	}

	pipe := c.rdb.TxPipeline()

	for i := range result.Facts {
		fact := &result.Facts[i]
		hash, err := blackboard.FactToHash(fact)
		if err != nil {
			return fmt.Errorf("failed to serialize fact %d: %w", fact.ID, err)
		}
		pipe.HSet(ctx, factKey(result.RunID, fact.ID), hash)
		pipe.ZAdd(ctx, logKey(result.RunID), redis.Z{
			Score:  float64(fact.ID),
			Member: strconv.FormatInt(fact.ID, 10),
		})
	}

	meta := map[string]string{
		"run_id":      result.RunID,
		"mode":        string(result.Mode),
		"outcome":     string(result.Outcome),
		"rounds":      strconv.Itoa(result.Rounds),
		"facts":       strconv.Itoa(len(result.Facts)),
		"archived_at": strconv.FormatInt(archivedAtMs, 10),
	}
	if result.Verdict != nil {
		meta["verdict_id"] = strconv.FormatInt(result.Verdict.ID, 10)
	}
	pipe.HSet(ctx, metaKey(result.RunID), meta)
	pipe.ZAdd(ctx, runsKey(), redis.Z{Score: float64(archivedAtMs), Member: result.RunID})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to archive run %s: %w", result.RunID, err)
	}
	return nil
}

// ListRuns returns summaries of every archived run, oldest first.
func (c *Client) ListRuns(ctx context.Context) ([]RunSummary, error) {
	runIDs, err := c.rdb.ZRange(ctx, runsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	summaries := make([]RunSummary, 0, len(runIDs))
	for _, runID := range runIDs {
		summary, err := c.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, *summary)
	}
	return summaries, nil
}

// GetRun returns one archived run's metadata.
func (c *Client) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	meta, err := c.rdb.HGetAll(ctx, metaKey(runID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run metadata: %w", err)
	}
	if len(meta) == 0 {
		return nil, &RunNotFoundError{RunID: runID}
	}

	rounds, _ := strconv.Atoi(meta["rounds"])
	facts, _ := strconv.Atoi(meta["facts"])
	archivedAt, _ := strconv.ParseInt(meta["archived_at"], 10, 64)
	verdictID, _ := strconv.ParseInt(meta["verdict_id"], 10, 64)

	return &RunSummary{
		RunID:      meta["run_id"],
		Mode:       blackboard.Mode(meta["mode"]),
		Outcome:    engine.Outcome(meta["outcome"]),
		Rounds:     rounds,
		Facts:      facts,
		ArchivedAt: archivedAt,
		VerdictID:  verdictID,
	}, nil
}

// ListFacts returns an archived run's facts in log order.
func (c *Client) ListFacts(ctx context.Context, runID string) ([]blackboard.Fact, error) {
	if _, err := c.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	members, err := c.rdb.ZRange(ctx, logKey(runID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read fact log: %w", err)
	}

	facts := make([]blackboard.Fact, 0, len(members))
	for _, member := range members {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt fact log entry %q: %w", member, err)
		}
		fact, err := c.GetFact(ctx, runID, id)
		if err != nil {
			return nil, err
		}
		facts = append(facts, *fact)
	}
	return facts, nil
}

// GetFact returns one archived fact.
func (c *Client) GetFact(ctx context.Context, runID string, factID int64) (*blackboard.Fact, error) {
	hash, err := c.rdb.HGetAll(ctx, factKey(runID, factID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read fact: %w", err)
	}
	if len(hash) == 0 {
		return nil, &FactNotFoundError{RunID: runID, FactID: factID}
	}

	fact, err := blackboard.HashToFact(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize fact %d: %w", factID, err)
	}
	return fact, nil
}

// GetVerdict returns an archived run's verdict fact, or a not-found error
// when the run terminated without one.
func (c *Client) GetVerdict(ctx context.Context, runID string) (*blackboard.Fact, error) {
	summary, err := c.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if summary.VerdictID == 0 {
		return nil, &FactNotFoundError{RunID: runID, FactID: 0}
	}
	return c.GetFact(ctx, runID, summary.VerdictID)
}

// ScanRunIDs returns archived run ids beginning with the given prefix.
func (c *Client) ScanRunIDs(ctx context.Context, prefix string) ([]string, error) {
	runIDs, err := c.rdb.ZRange(ctx, runsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to scan runs: %w", err)
	}

	var matches []string
	for _, runID := range runIDs {
		if len(runID) >= len(prefix) && runID[:len(prefix)] == prefix {
			matches = append(matches, runID)
		}
	}
	return matches, nil
}

// RunNotFoundError indicates no archived run has the given id.
type RunNotFoundError struct {
	RunID string
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("run with ID '%s' not found in archive", e.RunID)
}

// FactNotFoundError indicates a fact is absent from an archived run.
type FactNotFoundError struct {
	RunID  string
	FactID int64
}

func (e *FactNotFoundError) Error() string {
	if e.FactID == 0 {
		return fmt.Sprintf("run '%s' has no verdict fact", e.RunID)
	}
	return fmt.Sprintf("fact %d not found in run '%s'", e.FactID, e.RunID)
}

// IsNotFound returns true for either archive not-found error.
func IsNotFound(err error) bool {
	switch err.(type) {
	case *RunNotFoundError, *FactNotFoundError:
		return true
	default:
		return false
	}
}
