package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/secureauthx/secureauthx/session"
)

func main() {
	var (
		records     = flag.Int("records", 20000, "number of refresh records to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "lookups in the find phase")
		racers      = flag.Int("racers", 8, "concurrent rotations attempted per record")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "sax-load", "ledger key prefix")
		retention   = flag.Duration("retention", time.Hour, "expiry for synthetic records past ExpiresAt; 0 keeps them")
	)
	flag.Parse()

	if *records <= 0 || *concurrency <= 0 || *ops <= 0 || *racers <= 0 {
		fmt.Fprintln(os.Stderr, "records, concurrency, ops and racers must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := session.NewStore(client, *prefix, *retention)

	ids := make([]string, *records)
	fmt.Printf("seeding %d records...\n", *records)
	startSeed := time.Now()
	for i := range ids {
		ids[i] = tokenID("seed", i, 0)
		if err := store.Insert(ctx, newRecord(ids[i], int64(i%1000)+1)); err != nil {
			fmt.Fprintf(os.Stderr, "insert failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	findStats := runFindPhase(ctx, store, ids, *ops, *concurrency)
	rotateStats, violations := runRotatePhase(ctx, store, ids, *racers, *concurrency)

	fmt.Println("---- results ----")
	printStats("find", findStats)
	printStats("rotate", rotateStats)
	if violations > 0 {
		fmt.Printf("FAIL: %d records did not have exactly one rotation winner\n", violations)
		os.Exit(1)
	}
	fmt.Println("every record had exactly one rotation winner")
}

func runFindPhase(ctx context.Context, store *session.Store, ids []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := store.FindByTokenID(ctx, ids[r.Intn(len(ids))])
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

// runRotatePhase races racers rotations of every record. Losing a race is
// expected and not a failure; a record with zero or several winners is a
// violation.
func runRotatePhase(ctx context.Context, store *session.Store, ids []string, racers, concurrency int) (phaseStats, int) {
	var (
		wg         sync.WaitGroup
		cursor     int64
		failures   int64
		violations int64
		latencies  = make([]time.Duration, 0, len(ids)*racers)
		mu         sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(ids) {
					return
				}

				var (
					race    sync.WaitGroup
					winners int64
					local   = make([]time.Duration, racers)
				)
				for r := 0; r < racers; r++ {
					race.Add(1)
					go func(r int) {
						defer race.Done()
						next := newRecord(tokenID("next", i, r+1), int64(i%1000)+1)
						t0 := time.Now()
						won, err := store.Rotate(ctx, ids[i], next)
						local[r] = time.Since(t0)
						switch {
						case err != nil:
							atomic.AddInt64(&failures, 1)
						case won:
							atomic.AddInt64(&winners, 1)
						}
					}(r)
				}
				race.Wait()

				if winners != 1 {
					atomic.AddInt64(&violations, 1)
				}
				mu.Lock()
				latencies = append(latencies, local...)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures), int(violations)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

func newRecord(id string, identityID int64) session.Record {
	now := time.Now().UTC()
	return session.Record{
		TokenID:    id,
		IdentityID: identityID,
		ExpiresAt:  now.Add(24 * time.Hour),
		CreatedAt:  now,
	}
}

func tokenID(kind string, i, generation int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%d-%d", kind, i, generation)))
	return hex.EncodeToString(sum[:])
}
