package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"
)

type SimConfig struct {
	APIBaseURL   string
	Duration     time.Duration
	Workers      int
	BookingRatio float64
	ConfirmRatio float64
	CancelRatio  float64
	ReadRatio    float64
	Days         int
}

// normalize scales the ratios so they sum to one.
func (c *SimConfig) normalize() {
	total := c.BookingRatio + c.ConfirmRatio + c.CancelRatio + c.ReadRatio
	if total > 0 {
		c.BookingRatio /= total
		c.ConfirmRatio /= total
		c.CancelRatio /= total
		c.ReadRatio /= total
	}
}

func (c SimConfig) validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("--base-url is required")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("--workers must be > 0")
	}
	if c.Duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	if c.Days <= 0 {
		return fmt.Errorf("--days must be > 0")
	}
	return nil
}

type DataPool struct {
	Patients     []string
	Doctors      []string
	mu           sync.RWMutex
	appointments []string
}

func (dp *DataPool) AddAppointment(id string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(f *gofakeit.Faker) (string, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return "", false
	}
	return dp.appointments[f.IntN(len(dp.appointments))], true
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

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := slices.Clone(om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	percentile := func(p int) time.Duration {
		idx := min(len(latencies)*p/100, len(latencies)-1)
		return latencies[idx]
	}

	return sum / time.Duration(len(latencies)), latencies[0], latencies[len(latencies)-1], percentile(50), percentile(95)
}

type Metrics struct {
	Booking   OperationMetrics
	Confirm   OperationMetrics
	Cancel    OperationMetrics
	ReadByID  OperationMetrics
	ListSlots OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var cfg SimConfig

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Drive concurrent booking traffic against a running api-server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			cfg.normalize()
			return run(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.APIBaseURL, "base-url", "http://localhost:8080", "api-server base URL")
	flags.DurationVar(&cfg.Duration, "duration", 30*time.Second, "how long to run")
	flags.IntVar(&cfg.Workers, "workers", 10, "concurrent workers")
	flags.Float64Var(&cfg.BookingRatio, "booking-ratio", 0.5, "share of booking requests")
	flags.Float64Var(&cfg.ConfirmRatio, "confirm-ratio", 0.2, "share of confirm requests")
	flags.Float64Var(&cfg.CancelRatio, "cancel-ratio", 0.05, "share of cancel requests")
	flags.Float64Var(&cfg.ReadRatio, "read-ratio", 0.25, "share of read requests")
	flags.IntVar(&cfg.Days, "days", 7, "booking horizon in days from tomorrow")

	return cmd
}

func run(ctx context.Context, cfg SimConfig) error {
	fmt.Printf("config: duration=%s workers=%d booking=%.2f confirm=%.2f cancel=%.2f read=%.2f\n",
		cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.ConfirmRatio, cfg.CancelRatio, cfg.ReadRatio)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	pool, err := sim.loadDataPool(ctx)
	if err != nil {
		return fmt.Errorf("load data pool: %w", err)
	}
	sim.pool = pool
	fmt.Printf("loaded: %d patients, %d doctors\n", len(pool.Patients), len(pool.Doctors))

	sim.Run(ctx)
	sim.PrintReport()
	return nil
}

type person struct {
	ID string `json:"id"`
}

func (s *Simulator) loadDataPool(ctx context.Context) (*DataPool, error) {
	var patients, doctors []person
	if err := s.getJSON(ctx, "/patients", &patients); err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}
	if err := s.getJSON(ctx, "/doctors", &doctors); err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	if len(patients) == 0 {
		return nil, fmt.Errorf("no patients loaded")
	}
	if len(doctors) == 0 {
		return nil, fmt.Errorf("no doctors loaded")
	}

	dp := &DataPool{}
	for _, p := range patients {
		dp.Patients = append(dp.Patients, p.ID)
	}
	for _, d := range doctors {
		dp.Doctors = append(dp.Doctors, d.ID)
	}
	return dp, nil
}

func (s *Simulator) getJSON(ctx context.Context, path string, v any) error {
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
	return json.NewDecoder(resp.Body).Decode(v)
}

func (s *Simulator) Run(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, s.config.Duration)
	defer cancel()

	fmt.Printf("starting simulation for %s with %d workers\n", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := range s.config.Workers {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	fmt.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	f := gofakeit.New(uint64(time.Now().UnixNano()) + uint64(workerID))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := f.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, f)
		case r < s.config.BookingRatio+s.config.ConfirmRatio:
			s.doTransition(ctx, f, "confirm", &s.metrics.Confirm)
		case r < s.config.BookingRatio+s.config.ConfirmRatio+s.config.CancelRatio:
			s.doTransition(ctx, f, "cancel", &s.metrics.Cancel)
		default:
			if f.Bool() {
				s.doReadByID(ctx, f)
			} else {
				s.doListSlots(ctx, f)
			}
		}
	}
}

type slotResponse struct {
	Date  string `json:"date"`
	Start string `json:"start"`
}

func (s *Simulator) randomDate(f *gofakeit.Faker) string {
	return time.Now().AddDate(0, 0, 1+f.IntN(s.config.Days)).Format("2006-01-02")
}

func (s *Simulator) doBooking(ctx context.Context, f *gofakeit.Faker) {
	doctorID := f.RandomString(s.pool.Doctors)
	patientID := f.RandomString(s.pool.Patients)

	var slots []slotResponse
	path := fmt.Sprintf("/doctors/%s/slots?date=%s", doctorID, s.randomDate(f))
	if err := s.getJSON(ctx, path, &slots); err != nil || len(slots) == 0 {
		return
	}
	// bias towards the earliest slots so workers collide
	slot := slots[f.IntN(min(len(slots), 3))]

	body, _ := json.Marshal(map[string]string{
		"patient_id": patientID,
		"doctor_id":  doctorID,
		"date":       slot.Date,
		"time":       slot.Start,
	})

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			var appt struct {
				ID string `json:"id"`
			}
			if json.NewDecoder(resp.Body).Decode(&appt) == nil && appt.ID != "" {
				s.pool.AddAppointment(appt.ID)
			}
		case http.StatusConflict:
			conflict = true
		}
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doTransition(ctx context.Context, f *gofakeit.Faker, action string, om *OperationMetrics) {
	apptID, ok := s.pool.RandomAppointment(f)
	if !ok {
		return
	}

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/appointments/%s/%s", s.config.APIBaseURL, apptID, action), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}

	om.Record(latency, success, conflict)
}

func (s *Simulator) doReadByID(ctx context.Context, f *gofakeit.Faker) {
	apptID, ok := s.pool.RandomAppointment(f)
	if !ok {
		return
	}
	s.timedGet(ctx, "/appointments/"+apptID, &s.metrics.ReadByID)
}

func (s *Simulator) doListSlots(ctx context.Context, f *gofakeit.Faker) {
	doctorID := f.RandomString(s.pool.Doctors)
	s.timedGet(ctx, fmt.Sprintf("/doctors/%s/slots?date=%s", doctorID, s.randomDate(f)), &s.metrics.ListSlots)
}

func (s *Simulator) timedGet(ctx context.Context, path string, om *OperationMetrics) {
	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}

	om.Record(latency, success, false)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List slots", &s.metrics.ListSlots)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, lo, hi, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
