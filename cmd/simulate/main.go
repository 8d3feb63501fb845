package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-turnos/internal/logger"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	ChangeRatio  float64
	ReadRatio    float64
}

type slot struct {
	DoctorID string
	Time     time.Time
}

// DataPool holds what the workers pick from. Slots and patients are fixed after
// loading; appointment ids grow as bookings succeed.
type DataPool struct {
	Patients     []string
	Slots        []slot
	mu           sync.RWMutex
	appointments []string
}

func (dp *DataPool) AddAppointment(id string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (string, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return "", false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Percentiles() (p50, p95, max time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	n := len(latencies)
	return latencies[n*50/100], latencies[min(n*95/100, n-1)], latencies[n-1]
}

type Metrics struct {
	Booking OperationMetrics
	Change  OperationMetrics
	Read    OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
	log     zerolog.Logger
	runID   string
}

func main() {
	log := logger.New(getEnv("APP_ENV", "dev"), getEnv("LOG_LEVEL", "info"))

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
		runID:  uuid.NewString(),
	}

	log.Info().
		Str("run_id", sim.runID).
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Msg("simulator starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := sim.loadDataPool(ctx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("load data pool")
	}
	sim.pool = pool

	log.Info().Int("patients", len(pool.Patients)).Int("slots", len(pool.Slots)).Msg("data loaded")

	sim.Run()
	sim.PrintReport()

	if err := sim.checkNoDoubleBooking(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("invariant violated")
	}
	log.Info().Msg("no slot holds more than one active appointment")
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:   getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:     getDuration("SIM_DURATION", 30*time.Second),
		Workers:      getInt("SIM_WORKERS", 10),
		BookingRatio: getFloat("SIM_BOOKING_RATIO", 0.5),
		ChangeRatio:  getFloat("SIM_CHANGE_RATIO", 0.2),
		ReadRatio:    getFloat("SIM_READ_RATIO", 0.3),
	}

	total := cfg.BookingRatio + cfg.ChangeRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ChangeRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func (s *Simulator) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	dp := &DataPool{}

	var patients []struct {
		ID string `json:"id"`
	}
	if err := s.getJSON(ctx, "/patients", &patients); err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	for _, p := range patients {
		dp.Patients = append(dp.Patients, p.ID)
	}

	var doctors []struct {
		ID string `json:"id"`
	}
	if err := s.getJSON(ctx, "/doctors", &doctors); err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	for _, d := range doctors {
		var slots struct {
			Free []time.Time `json:"free"`
		}
		if err := s.getJSON(ctx, "/doctors/"+d.ID+"/slots", &slots); err != nil {
			return nil, fmt.Errorf("load slots for %s: %w", d.ID, err)
		}
		for _, at := range slots.Free {
			dp.Slots = append(dp.Slots, slot{DoctorID: d.ID, Time: at})
		}
	}

	if len(dp.Patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	if len(dp.Slots) == 0 {
		return nil, fmt.Errorf("no slots loaded")
	}

	return dp, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.ChangeRatio:
			s.doChange(ctx, rng)
		default:
			s.doRead(ctx, rng)
		}
	}
}

func (s *Simulator) do(ctx context.Context, method, path string, body any) (int, []byte, time.Duration) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, &buf)
	if err != nil {
		return 0, nil, 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", s.runID+"-"+uuid.NewString()[:8])

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return 0, nil, latency
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	_, _ = out.ReadFrom(resp.Body)
	return resp.StatusCode, out.Bytes(), latency
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	sl := s.pool.Slots[rng.Intn(len(s.pool.Slots))]
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]

	status, body, latency := s.do(ctx, http.MethodPost, "/appointments", map[string]any{
		"patient_id": patientID,
		"doctor_id":  sl.DoctorID,
		"time":       sl.Time,
		"reason":     "simulated visit",
	})

	if status == http.StatusCreated {
		var appt struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(body, &appt) == nil && appt.ID != "" {
			s.pool.AddAppointment(appt.ID)
		}
	}
	s.metrics.Booking.Record(latency, status == http.StatusCreated, status == http.StatusConflict)
}

var nextStatus = []string{"CONFIRMED", "CANCELLED", "ATTENDED"}

func (s *Simulator) doChange(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}

	status, _, latency := s.do(ctx, http.MethodPost, "/appointments/"+id+"/status", map[string]any{
		"status": nextStatus[rng.Intn(len(nextStatus))],
	})
	s.metrics.Change.Record(latency, status == http.StatusOK, status == http.StatusConflict)
}

func (s *Simulator) doRead(ctx context.Context, rng *rand.Rand) {
	path := "/patients/" + s.pool.Patients[rng.Intn(len(s.pool.Patients))] + "/appointments"
	if id, ok := s.pool.RandomAppointment(rng); ok && rng.Intn(2) == 0 {
		path = "/appointments/" + id
	}

	status, _, latency := s.do(ctx, http.MethodGet, path, nil)
	s.metrics.Read.Record(latency, status == http.StatusOK, false)
}

// checkNoDoubleBooking asks the API for every appointment and fails if any
// doctor/time pair has more than one that is not cancelled.
func (s *Simulator) checkNoDoubleBooking(ctx context.Context) error {
	var appts []struct {
		ID       string    `json:"id"`
		DoctorID string    `json:"doctor_id"`
		Time     time.Time `json:"time"`
		Status   string    `json:"status"`
	}
	if err := s.getJSON(ctx, "/appointments", &appts); err != nil {
		return err
	}

	active := make(map[string]string)
	for _, a := range appts {
		if a.Status == "CANCELLED" {
			continue
		}
		key := a.DoctorID + "@" + a.Time.UTC().Format(time.RFC3339Nano)
		if other, ok := active[key]; ok {
			return fmt.Errorf("slot %s held by %s and %s", key, other, a.ID)
		}
		active[key] = a.ID
	}
	return nil
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Run: %s\n", s.runID)
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n\n", s.config.Workers)

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Status change", &s.metrics.Change)
	printOperationReport("Read", &s.metrics.Read)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)
	p50, p95, max := om.Percentiles()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: p50=%s p95=%s max=%s\n\n",
		p50.Round(time.Millisecond), p95.Round(time.Millisecond), max.Round(time.Millisecond))
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
