package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/serviq/booking-engine/internal/db"
)

// simulate hammers the booking endpoint with concurrent workers that all
// target the same narrow set of professional-day windows, so most requests
// genuinely race for the same slots. It reports how the engine resolved the
// contention: exactly one winner per window, everyone else a clean conflict.

type simConfig struct {
	apiBaseURL string
	duration   time.Duration
	workers    int
	pros       int
	date       string
}

type counters struct {
	total     int64
	booked    int64
	conflicts int64
	errors    int64

	mu        sync.Mutex
	latencies []time.Duration
}

func (c *counters) record(latency time.Duration, status int) {
	atomic.AddInt64(&c.total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&c.booked, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&c.conflicts, 1)
	default:
		atomic.AddInt64(&c.errors, 1)
	}

	c.mu.Lock()
	c.latencies = append(c.latencies, latency)
	c.mu.Unlock()
}

func (c *counters) percentile(p int) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(c.latencies))
	copy(sorted, c.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func main() {
	log.SetFlags(log.LstdFlags)

	cfg := simConfig{}
	flag.StringVar(&cfg.apiBaseURL, "api", "http://localhost:8080", "base URL of the api-server")
	flag.DurationVar(&cfg.duration, "duration", 30*time.Second, "how long to run")
	flag.IntVar(&cfg.workers, "workers", 20, "concurrent workers")
	flag.IntVar(&cfg.pros, "pros", 5, "number of professionals to contend over")
	flag.StringVar(&cfg.date, "date", time.Now().AddDate(0, 0, 7).Format("2006-01-02"), "target booking date (YYYY-MM-DD)")
	flag.Parse()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.ConnectPostgres(ctx, dsn, 4)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}

	proIDs, err := loadIDs(context.Background(), pool, "professionals", cfg.pros)
	if err != nil {
		log.Fatalf("load professionals: %v", err)
	}
	clientIDs, err := loadIDs(context.Background(), pool, "clients", 500)
	if err != nil {
		log.Fatalf("load clients: %v", err)
	}
	pool.Close()

	if len(proIDs) == 0 || len(clientIDs) == 0 {
		log.Fatal("no seed data found, run the seed command first")
	}

	log.Printf("simulating: %d workers, %d professionals, date %s, %s",
		cfg.workers, len(proIDs), cfg.date, cfg.duration)

	// A deliberately small grid of start times so workers collide.
	starts := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "11:30"}
	durations := []int{30, 60}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	stats := &counters{}

	runCtx, stop := context.WithTimeout(context.Background(), cfg.duration)
	defer stop()

	var wg sync.WaitGroup
	for w := 0; w < cfg.workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for runCtx.Err() == nil {
				pro := proIDs[rng.Intn(len(proIDs))]
				client := clientIDs[rng.Intn(len(clientIDs))]
				start := starts[rng.Intn(len(starts))]
				dur := durations[rng.Intn(len(durations))]

				status, latency := bookOnce(runCtx, httpClient, cfg.apiBaseURL, pro, client, cfg.date, start, dur)
				if status > 0 {
					stats.record(latency, status)
				}
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	report(stats)
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, table string, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, fmt.Sprintf("SELECT id FROM %s LIMIT %d", table, limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func bookOnce(ctx context.Context, client *http.Client, baseURL string, proID, clientID uuid.UUID, date, start string, durationMinutes int) (int, time.Duration) {
	body, _ := json.Marshal(map[string]any{
		"professional_id":  proID.String(),
		"client_id":        clientID.String(),
		"date":             date,
		"start":            start,
		"duration_minutes": durationMinutes,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		return 0, 0
	}
	req.Header.Set("Content-Type", "application/json")

	began := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(began)
	if err != nil {
		if ctx.Err() != nil {
			return 0, 0
		}
		return http.StatusInternalServerError, latency
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	return resp.StatusCode, latency
}

func report(stats *counters) {
	fmt.Println()
	fmt.Println("=== booking contention results ===")
	fmt.Printf("total requests: %d\n", atomic.LoadInt64(&stats.total))
	fmt.Printf("booked:         %d\n", atomic.LoadInt64(&stats.booked))
	fmt.Printf("conflicts:      %d\n", atomic.LoadInt64(&stats.conflicts))
	fmt.Printf("errors:         %d\n", atomic.LoadInt64(&stats.errors))
	fmt.Printf("latency p50:    %s\n", stats.percentile(50))
	fmt.Printf("latency p95:    %s\n", stats.percentile(95))
	fmt.Printf("latency p99:    %s\n", stats.percentile(99))
}
