// simulate drives concurrent booking and resolution traffic against a
// running api-server, to exercise the duplicate-booking guard and the
// exactly-one-donation-record invariant under contention.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hemovida/donation-scheduling/internal/db"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	ConfirmRatio float64
	ResolveRatio float64
	DonorLimit   int
	BranchLimit  int
	PostgresDSN  string
}

type DataPool struct {
	Donors   []uuid.UUID
	Branches []uuid.UUID

	mu           sync.RWMutex
	appointments []appointmentRef
}

type appointmentRef struct {
	ID       uuid.UUID
	BranchID uuid.UUID
}

func (dp *DataPool) AddAppointment(ref appointmentRef) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, ref)
}

func (dp *DataPool) GetRandomAppointment() (appointmentRef, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return appointmentRef{}, false
	}
	return dp.appointments[rand.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total    int64
	Success  int64
	Conflict int64
	Rejected int64
	Error    int64

	mu        sync.Mutex
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case status == http.StatusBadRequest:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	p50 = latencies[len(latencies)*50/100]
	p95 = latencies[min(len(latencies)*95/100, len(latencies)-1)]
	return avg, p50, p95
}

type Simulator struct {
	cfg    SimConfig
	pool   *DataPool
	client *http.Client

	booking  OperationMetrics
	confirm  OperationMetrics
	resolve  OperationMetrics
	listing  OperationMetrics
	doubleOK int64 // double-resolve attempts where exactly one succeeded
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := loadConfig()
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required to load donor/branch ids")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}

	dataPool, err := loadDataPool(context.Background(), pgPool, cfg)
	pgPool.Close()
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}
	log.Printf("loaded %d donors, %d branches", len(dataPool.Donors), len(dataPool.Branches))

	sim := &Simulator{
		cfg:    cfg,
		pool:   dataPool,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	return SimConfig{
		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 20),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		ConfirmRatio: getFloat("SIM_CONFIRM_RATIO", 0.2),
		ResolveRatio: getFloat("SIM_RESOLVE_RATIO", 0.2),
		DonorLimit:   getInt("SIM_DONOR_LIMIT", 2000),
		BranchLimit:  getInt("SIM_BRANCH_LIMIT", 20),
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
	}
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	rows, err := pool.Query(ctx, `SELECT id FROM donors LIMIT $1`, cfg.DonorLimit)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		dp.Donors = append(dp.Donors, id)
	}
	rows.Close()

	rows, err = pool.Query(ctx, `SELECT id FROM branches WHERE active LIMIT $1`, cfg.BranchLimit)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		dp.Branches = append(dp.Branches, id)
	}
	rows.Close()

	if len(dp.Donors) == 0 || len(dp.Branches) == 0 {
		return nil, fmt.Errorf("no donors or branches found, run cmd/seed first")
	}
	return dp, nil
}

func (s *Simulator) Run() {
	log.Printf("running for %s with %d workers against %s", s.cfg.Duration, s.cfg.Workers, s.cfg.APIBaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		roll := rng.Float64()
		switch {
		case roll < s.cfg.BookingRatio:
			s.doBooking(ctx, rng)
		case roll < s.cfg.BookingRatio+s.cfg.ConfirmRatio:
			s.doConfirm(ctx)
		case roll < s.cfg.BookingRatio+s.cfg.ConfirmRatio+s.cfg.ResolveRatio:
			s.doDoubleResolve(ctx, rng)
		default:
			s.doListByDonor(ctx, rng)
		}
	}
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	donorID := s.pool.Donors[rng.Intn(len(s.pool.Donors))]
	branchID := s.pool.Branches[rng.Intn(len(s.pool.Branches))]
	scheduledAt := time.Now().UTC().Add(25*time.Hour + time.Duration(rng.Intn(170*24))*time.Hour)

	body, _ := json.Marshal(map[string]any{
		"branch_id":     branchID.String(),
		"scheduled_at":  scheduledAt.Format(time.RFC3339),
		"donation_type": randomDonationType(rng),
	})

	start := time.Now()
	status, resp := s.post(ctx, "/appointments", donorID, uuid.Nil, "donor", body)
	s.booking.Record(time.Since(start), status)

	if status == http.StatusCreated {
		var appt struct {
			ID       uuid.UUID `json:"id"`
			BranchID uuid.UUID `json:"branch_id"`
		}
		if err := json.Unmarshal(resp, &appt); err == nil {
			s.pool.AddAppointment(appointmentRef{ID: appt.ID, BranchID: appt.BranchID})
		}
	}
}

func (s *Simulator) doConfirm(ctx context.Context) {
	ref, ok := s.pool.GetRandomAppointment()
	if !ok {
		return
	}

	start := time.Now()
	status, _ := s.post(ctx, "/appointments/"+ref.ID.String()+"/confirm", uuid.New(), ref.BranchID, "branch_collaborator", nil)
	s.confirm.Record(time.Since(start), status)
}

// doDoubleResolve fires two resolves at the same appointment and checks
// that exactly one wins.
func (s *Simulator) doDoubleResolve(ctx context.Context, rng *rand.Rand) {
	ref, ok := s.pool.GetRandomAppointment()
	if !ok {
		return
	}

	body, _ := json.Marshal(map[string]any{
		"outcome":   "fulfilled",
		"volume_ml": 300 + rng.Intn(300),
	})

	var statuses [2]int
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := time.Now()
			status, _ := s.post(ctx, "/appointments/"+ref.ID.String()+"/resolve", uuid.New(), ref.BranchID, "branch_collaborator", body)
			s.resolve.Record(time.Since(start), status)
			statuses[i] = status
		}(i)
	}
	wg.Wait()

	okCount := 0
	for _, st := range statuses {
		if st == http.StatusOK {
			okCount++
		}
	}
	if okCount == 1 {
		atomic.AddInt64(&s.doubleOK, 1)
	} else if okCount == 2 {
		log.Printf("INVARIANT VIOLATION: both resolves succeeded for appointment %s", ref.ID)
	}
}

func (s *Simulator) doListByDonor(ctx context.Context, rng *rand.Rand) {
	donorID := s.pool.Donors[rng.Intn(len(s.pool.Donors))]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.APIBaseURL+"/my/appointments", nil)
	if err != nil {
		return
	}
	req.Header.Set("X-Actor-ID", donorID.String())
	req.Header.Set("X-Actor-Role", "donor")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.listing.Record(time.Since(start), 0)
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	s.listing.Record(time.Since(start), resp.StatusCode)
}

func (s *Simulator) post(ctx context.Context, path string, actorID, branchID uuid.UUID, role string, body []byte) (int, []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", actorID.String())
	req.Header.Set("X-Actor-Role", role)
	if branchID != uuid.Nil {
		req.Header.Set("X-Branch-ID", branchID.String())
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func randomDonationType(rng *rand.Rand) string {
	types := []string{"whole_blood", "platelets", "plasma", "apheresis"}
	if rng.Float64() < 0.02 {
		return gofakeit.Word() // exercise the type validation path
	}
	return types[rng.Intn(len(types))]
}

func (s *Simulator) PrintReport() {
	fmt.Println()
	fmt.Println("=== simulation report ===")
	printOperationReport("booking", &s.booking)
	printOperationReport("confirm", &s.confirm)
	printOperationReport("resolve", &s.resolve)
	printOperationReport("listing", &s.listing)
	fmt.Printf("double-resolve races with exactly one winner: %d\n", atomic.LoadInt64(&s.doubleOK))
}

func printOperationReport(name string, om *OperationMetrics) {
	avg, p50, p95 := om.Stats()
	fmt.Printf("%-8s total=%d success=%d conflict=%d rejected=%d error=%d avg=%s p50=%s p95=%s\n",
		name,
		atomic.LoadInt64(&om.Total),
		atomic.LoadInt64(&om.Success),
		atomic.LoadInt64(&om.Conflict),
		atomic.LoadInt64(&om.Rejected),
		atomic.LoadInt64(&om.Error),
		avg, p50, p95,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
