package engine

import (
	"log/slog"
	"sync"
	"time"
)

// Runner drives a Simulation forward in wall-clock time, with a speed
// multiplier for interactive runs. Speed 0 pauses; higher values run more
// simulated months per second. For batch runs use Simulation.Run directly.
type Runner struct {
	sim      *Simulation
	interval time.Duration // wall time per month at speed 1

	mu      sync.Mutex
	speed   float64
	running bool
}

// NewRunner wraps a simulation with the default one month per interval.
func NewRunner(sim *Simulation, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = time.Second
	}
	return &Runner{sim: sim, interval: interval, speed: 1.0}
}

// Speed returns the current multiplier.
func (r *Runner) Speed() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.speed
}

// SetSpeed updates the multiplier; 0 pauses the run.
func (r *Runner) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	r.mu.Lock()
	r.speed = speed
	r.mu.Unlock()
	slog.Info("simulation speed changed", "speed", speed)
}

// Run blocks, stepping the simulation until the configured month count is
// reached or Stop is called.
func (r *Runner) Run() {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
	slog.Info("simulation started",
		"months", r.sim.cfg.Simulation.Months, "regions", len(r.sim.Regions))

	for {
		r.mu.Lock()
		running := r.running
		speed := r.speed
		r.mu.Unlock()
		if !running || r.sim.Month >= r.sim.cfg.Simulation.Months {
			break
		}
		if speed <= 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		r.sim.Step()
		elapsed := time.Since(start)
		target := time.Duration(float64(r.interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation stopped", "month", r.sim.Month)
}

// Stop halts the loop after the current month completes.
func (r *Runner) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
}

// Simulation exposes the wrapped model for read-only status queries.
func (r *Runner) Simulation() *Simulation { return r.sim }
