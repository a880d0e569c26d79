package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/sqldb/internal/later"
	"github.com/roach88/sqldb/internal/sqldb"
)

// BenchOptions holds flags for the bench command.
type BenchOptions struct {
	*RootOptions
	Writers int
	Rows    int
	Readers int
}

// BenchResult summarises a bench run.
type BenchResult struct {
	Run       string             `json:"run"`
	Writers   int                `json:"writers"`
	Readers   int                `json:"readers"`
	Inserted  int                `json:"inserted"`
	Counted   int                `json:"counted"`
	Reads     int64              `json:"reads"`
	Elapsed   time.Duration      `json:"elapsed_ns"`
	Completed map[string]float64 `json:"completed"`
}

func (r BenchResult) String() string {
	queues := make([]string, 0, len(r.Completed))
	for q := range r.Completed {
		queues = append(queues, q)
	}
	sort.Strings(queues)

	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d writers inserted %d rows (%d counted) in %s, %d reads by %d readers",
		r.Run, r.Writers, r.Inserted, r.Counted, r.Elapsed.Round(time.Millisecond), r.Reads, r.Readers)
	for _, q := range queues {
		fmt.Fprintf(&b, "\n  %s queue: %.0f units", q, r.Completed[q])
	}
	return b.String()
}

const benchSchema = `CREATE TABLE IF NOT EXISTS bench_rows (
	id INTEGER PRIMARY KEY,
	run TEXT NOT NULL,
	writer INTEGER NOT NULL,
	seq INTEGER NOT NULL
)`

// NewBenchCommand creates the bench command.
func NewBenchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BenchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Insert rows from many goroutines while readers count them",
		Long: `Start --writers goroutines that each insert --rows rows through the writer
queue while --readers goroutines repeatedly count rows through the reader
queue. Every insert is serialised on the single writer goroutine, so the final
count always equals writers * rows.

Example:
  sqldb bench --db /tmp/bench.db --writers 8 --rows 1000 --readers 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Writers, "writers", 4, "number of concurrent writers")
	cmd.Flags().IntVar(&opts.Rows, "rows", 100, "rows inserted by each writer")
	cmd.Flags().IntVar(&opts.Readers, "readers", 1, "number of concurrent readers")

	return cmd
}

func runBench(opts *BenchOptions, cmd *cobra.Command) error {
	if opts.Writers <= 0 || opts.Rows <= 0 || opts.Readers < 0 {
		return NewExitError(ExitCommandError, "--writers and --rows must be positive, --readers must not be negative")
	}

	reg := prometheus.NewRegistry()
	db, err := openDB(opts.RootOptions, sqldb.WithMetrics(reg))
	if err != nil {
		return err
	}
	defer closeDB(db)

	if _, err := db.Exec(benchSchema, nil, nil).Get(); err != nil {
		return WrapExitError(ExitFailure, "failed to create bench table", err)
	}

	run := uuid.NewString()
	countRows := func() *later.Later[int] {
		return sqldb.RawQuery(db, "SELECT COUNT(*) FROM bench_rows WHERE run = ?", []any{run}, sqldb.Handler(scanCount, nil))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	var reads atomic.Int64

	writers, wctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Writers; w++ {
		writers.Go(func() error {
			pending := make([]*later.Later[int64], 0, opts.Rows)
			for i := 0; i < opts.Rows; i++ {
				values := sqldb.NewValues().Put("run", run).Put("writer", w).Put("seq", i)
				pending = append(pending, db.Insert("bench_rows", "", values, nil))
			}
			for _, l := range pending {
				if _, err := l.GetContext(wctx); err != nil {
					return err
				}
			}
			return nil
		})
	}

	readCtx, stopReaders := context.WithCancel(ctx)
	var readers errgroup.Group
	for r := 0; r < opts.Readers; r++ {
		readers.Go(func() error {
			for readCtx.Err() == nil {
				if _, err := countRows().GetContext(readCtx); err != nil {
					if readCtx.Err() != nil {
						return nil
					}
					return err
				}
				reads.Add(1)
			}
			return nil
		})
	}

	writeErr := writers.Wait()
	stopReaders()
	readErr := readers.Wait()
	elapsed := time.Since(start)

	if writeErr != nil {
		return WrapExitError(ExitFailure, "bench writer failed", writeErr)
	}
	if readErr != nil {
		return WrapExitError(ExitFailure, "bench reader failed", readErr)
	}

	counted, err := countRows().Get()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to count rows", err)
	}

	result := BenchResult{
		Run:       run,
		Writers:   opts.Writers,
		Readers:   opts.Readers,
		Inserted:  opts.Writers * opts.Rows,
		Counted:   counted,
		Reads:     reads.Load(),
		Elapsed:   elapsed,
		Completed: completedByQueue(reg),
	}
	slog.Info("bench finished", "run", run, "elapsed", elapsed, "counted", counted)

	if counted != result.Inserted {
		return NewExitError(ExitFailure, fmt.Sprintf("expected %d rows, counted %d", result.Inserted, counted))
	}
	return newFormatter(opts.RootOptions, cmd).Success(result)
}

func scanCount(c sqldb.Cursor) (int, error) {
	var n int
	if c.Next() {
		if err := c.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, c.Err()
}

// completedByQueue reads the per-queue completed counter from reg.
func completedByQueue(reg *prometheus.Registry) map[string]float64 {
	out := map[string]float64{}
	families, err := reg.Gather()
	if err != nil {
		slog.Warn("gathering metrics failed", "error", err)
		return out
	}
	for _, f := range families {
		if f.GetName() != "sqldb_queue_completed_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "queue" {
					out[l.GetValue()] += m.GetCounter().GetValue()
				}
			}
		}
	}
	return out
}
