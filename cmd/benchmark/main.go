package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/punchamoorthee/debtops/pkg/logging"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	prefix      string
	debtCount   int
)

// Metrics
var (
	totalRequests uint64
	settled200    uint64 // Payment registered
	rejected422   uint64 // Already paid
	notFound404   uint64
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 10*time.Second, "Test duration")
	flag.StringVar(&prefix, "prefix", "SEED", "Debt id prefix used by the seeder")
	flag.IntVar(&debtCount, "debts", 50, "Number of seeded debts to pay (ids 1..n)")
}

func main() {
	flag.Parse()
	logging.Setup()
	slog.Info("starting benchmark", "workers", concurrency, "duration", duration, "debts", debtCount)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, i)
	}

	wg.Wait()
	printResults(time.Since(start))
}

// worker pays random debts from a small set so that most requests race
// against an earlier settlement of the same debt.
func worker(wg *sync.WaitGroup, start time.Time, id int) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		payload := map[string]interface{}{
			"debtId":     fmt.Sprintf("%s-%06d", prefix, rand.Intn(debtCount)+1),
			"paidAmount": "100.00",
			"paidBy":     fmt.Sprintf("bench-worker-%d", id),
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/api/v1/debts/webhook_payment", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch resp.StatusCode {
		case http.StatusOK:
			atomic.AddUint64(&settled200, 1)
		case http.StatusUnprocessableEntity:
			atomic.AddUint64(&rejected422, 1)
		case http.StatusNotFound:
			atomic.AddUint64(&notFound404, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	s200 := atomic.LoadUint64(&settled200)

	results := map[string]interface{}{
		"duration_sec":    d.Seconds(),
		"total_requests":  total,
		"throughput_rps":  float64(total) / d.Seconds(),
		"settled":         s200,
		"already_paid":    atomic.LoadUint64(&rejected422),
		"not_found":       atomic.LoadUint64(&notFound404),
		"errors":          atomic.LoadUint64(&failOther),
		"exactly_once_ok": s200 <= uint64(debtCount),
		"distinct_debts":  debtCount,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	if s200 > uint64(debtCount) {
		slog.Error("more settlements than debts", "settled", s200, "debts", debtCount)
		os.Exit(1)
	}
}
