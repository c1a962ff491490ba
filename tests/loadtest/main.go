package main

import (
	"bytes"
	"ecgd/internal/providers"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

const (
	defaultBaseURL = "http://127.0.0.1:8080"
	numWorkers     = 50
	testDuration   = 10 * time.Second
	numUsers       = 100
	sampleRate     = 360
	signalSeconds  = 2
)

var httpClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 200,
		IdleConnTimeout:     30 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	},
}

type result struct {
	endpoint string
	status   int
	latency  time.Duration
	err      bool
}

type stats struct {
	count     int64
	errors    int64
	latencies []time.Duration
}

// idPool remembers created measurement ids per user for the read phases.
type idPool struct {
	mu  sync.Mutex
	ids map[int][]string
}

func (p *idPool) add(user int, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids[user] = append(p.ids[user], id)
}

func (p *idPool) pick(rng *rand.Rand, user int) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := p.ids[user]
	if len(ids) == 0 {
		return "", false
	}
	return ids[rng.Intn(len(ids))], true
}

var (
	baseURL = defaultBaseURL
	tokens  []string
	pool    = &idPool{ids: make(map[int][]string)}
)

func main() {
	if v := os.Getenv("ECGD_URL"); v != "" {
		baseURL = v
	}
	secret := os.Getenv("ECGD_AUTH_SECRET")
	if secret == "" {
		fmt.Println("ECGD_AUTH_SECRET must match the server's auth.secret")
		os.Exit(1)
	}

	fmt.Println("=== ecgd Load Test ===")
	fmt.Printf("Workers: %d | Duration: %s | Users: %d | Samples/signal: %d\n\n",
		numWorkers, testDuration, numUsers, sampleRate*signalSeconds)

	auth := providers.NewJWTAuthenticator(secret, os.Getenv("ECGD_AUTH_ISSUER"))
	tokens = make([]string, numUsers)
	for i := range tokens {
		token, err := auth.Issue(providers.Principal{UserID: fmt.Sprintf("load-user-%d", i)}, time.Hour)
		if err != nil {
			fmt.Printf("FAILED to mint token: %v\n", err)
			os.Exit(1)
		}
		tokens[i] = token
	}

	// Wait for server
	fmt.Print("Waiting for server... ")
	for i := 0; i < 30; i++ {
		resp, err := httpClient.Get(baseURL + "/health")
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			break
		}
		if i == 29 {
			fmt.Println("FAILED: server not responding")
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	fmt.Println("OK")

	fmt.Println("\n--- Phase 1: Ingest (POST /api/ml/predict) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		return doPredict(rng)
	})

	fmt.Println("\n--- Phase 2: Mixed load (60% writes, 40% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.50:
			return doPredict(rng)
		case r < 0.60:
			return doCreate(rng)
		case r < 0.75:
			return doHistory(rng)
		case r < 0.90:
			return doSummary(rng)
		default:
			return doGetByID(rng)
		}
	})

	fmt.Println("\n--- Phase 3: Read-heavy load (10% writes, 90% reads) ---")
	runPhase(testDuration, func(rng *rand.Rand) result {
		r := rng.Float64()
		switch {
		case r < 0.10:
			return doPredict(rng)
		case r < 0.40:
			return doHistory(rng)
		case r < 0.75:
			return doSummary(rng)
		default:
			return doGetByID(rng)
		}
	})
}

func runPhase(duration time.Duration, workFn func(rng *rand.Rand) result) {
	results := make(chan result, 10000)
	var wg sync.WaitGroup
	var totalOps atomic.Int64
	stop := make(chan struct{})

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for {
				select {
				case <-stop:
					return
				default:
					r := workFn(rng)
					totalOps.Add(1)
					results <- r
				}
			}
		}(rand.Int63() + int64(i))
	}

	allResults := make(map[string]*stats)
	done := make(chan struct{})
	go func() {
		for r := range results {
			s, ok := allResults[r.endpoint]
			if !ok {
				s = &stats{}
				allResults[r.endpoint] = s
			}
			s.count++
			if r.err {
				s.errors++
			}
			s.latencies = append(s.latencies, r.latency)
		}
		close(done)
	}()

	time.Sleep(duration)
	close(stop)
	wg.Wait()
	close(results)
	<-done

	printResults(allResults, duration)
}

func printResults(allResults map[string]*stats, duration time.Duration) {
	var totalOps int64
	var totalErrors int64

	endpoints := make([]string, 0, len(allResults))
	for ep := range allResults {
		endpoints = append(endpoints, ep)
	}
	sort.Strings(endpoints)

	fmt.Printf("\n  %-32s %8s %6s %10s %10s %10s %10s\n",
		"Endpoint", "Reqs", "Errs", "Avg", "P50", "P95", "P99")
	fmt.Println("  " + strings.Repeat("-", 98))

	for _, ep := range endpoints {
		s := allResults[ep]
		totalOps += s.count
		totalErrors += s.errors

		sort.Slice(s.latencies, func(i, j int) bool {
			return s.latencies[i] < s.latencies[j]
		})

		fmt.Printf("  %-32s %8d %6d %10s %10s %10s %10s\n",
			ep, s.count, s.errors,
			fmtDur(avgDuration(s.latencies)),
			fmtDur(percentile(s.latencies, 0.50)),
			fmtDur(percentile(s.latencies, 0.95)),
			fmtDur(percentile(s.latencies, 0.99)))
	}

	if totalOps == 0 {
		return
	}
	rps := float64(totalOps) / duration.Seconds()
	fmt.Println("  " + strings.Repeat("-", 98))
	fmt.Printf("  Total: %d reqs | Errors: %d (%.1f%%) | RPS: %.0f\n",
		totalOps, totalErrors, float64(totalErrors)/float64(totalOps)*100, rps)
}

// syntheticSignal is a noisy baseline with R-peak-like spikes at bpm.
func syntheticSignal(rng *rand.Rand) []float64 {
	bpm := 50 + rng.Intn(70)
	period := sampleRate * 60 / bpm
	out := make([]float64, sampleRate*signalSeconds)
	for i := range out {
		out[i] = 0.05*math.Sin(2*math.Pi*float64(i)/float64(sampleRate)) + 0.02*rng.NormFloat64()
		if i%period == 0 {
			out[i] += 0.9 + 0.1*rng.Float64()
		}
	}
	return out
}

func send(method, path string, user int, body any, expect int) (result, []byte) {
	var reader io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}
	label := method + " " + path
	if i := strings.Index(path, "?"); i >= 0 {
		label = method + " " + path[:i]
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	if err != nil {
		return result{label, 0, 0, true}, nil
	}
	req.Header.Set("Authorization", "Bearer "+tokens[user])
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{label, 0, lat, true}, nil
	}
	defer resp.Body.Close()
	payload, _ := io.ReadAll(resp.Body)
	return result{label, resp.StatusCode, lat, resp.StatusCode != expect}, payload
}

func remember(user int, payload []byte) {
	var created struct {
		ID string `json:"id"`
	}
	if json.Unmarshal(payload, &created) == nil && created.ID != "" {
		pool.add(user, created.ID)
	}
}

func doPredict(rng *rand.Rand) result {
	user := rng.Intn(numUsers)
	body := map[string]any{"signal": syntheticSignal(rng)}
	if rng.Float64() < 0.3 {
		body["meta"] = map[string]any{"symptoms": []string{"palpitations"}, "notes": "load test"}
	}
	r, payload := send(http.MethodPost, "/api/ml/predict", user, body, http.StatusOK)
	if !r.err {
		remember(user, payload)
	}
	return r
}

func doCreate(rng *rand.Rand) result {
	user := rng.Intn(numUsers)
	labels := []string{"Normal", "Supraventricular", "Ventricular", "Fusion", "Unknown"}
	body := map[string]any{
		"ecgData":    syntheticSignal(rng),
		"heartRate":  55 + rng.Intn(60),
		"prediction": labels[rng.Intn(len(labels))],
		"confidence": 0.5 + 0.5*rng.Float64(),
	}
	r, payload := send(http.MethodPost, "/api/measurements", user, body, http.StatusCreated)
	if !r.err {
		remember(user, payload)
	}
	return r
}

func doHistory(rng *rand.Rand) result {
	path := fmt.Sprintf("/api/history?page=%d&limit=%d", rng.Intn(3)+1, 20)
	if rng.Float64() < 0.3 {
		path += "&isAnomaly=true"
	}
	r, _ := send(http.MethodGet, path, rng.Intn(numUsers), nil, http.StatusOK)
	return r
}

func doSummary(rng *rand.Rand) result {
	r, _ := send(http.MethodGet, "/api/history/stats/summary", rng.Intn(numUsers), nil, http.StatusOK)
	return r
}

func doGetByID(rng *rand.Rand) result {
	user := rng.Intn(numUsers)
	id, ok := pool.pick(rng, user)
	if !ok {
		return doSummary(rng)
	}
	r, _ := send(http.MethodGet, "/api/history/"+id, user, nil, http.StatusOK)
	r.endpoint = "GET /api/history/{id}"
	return r
}

func avgDuration(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range d {
		sum += v
	}
	return sum / time.Duration(len(d))
}

func percentile(d []time.Duration, p float64) time.Duration {
	if len(d) == 0 {
		return 0
	}
	idx := int(float64(len(d)) * p)
	if idx >= len(d) {
		idx = len(d) - 1
	}
	return d[idx]
}

func fmtDur(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000.0)
}
