package pump

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

var (
	// ErrRunning is returned for commands that need the pump idle.
	ErrRunning = errors.New("pump is running")

	// ErrFaulted is returned for commands refused until Reset.
	ErrFaulted = errors.New("pump is faulted")

	// ErrInvalidVolume is returned by Run for out-of-range volumes.
	ErrInvalidVolume = errors.New("invalid volume")

	// ErrNotRunning is returned by Pause when nothing is dispensing.
	ErrNotRunning = errors.New("pump is not running")

	// ErrNotPaused is returned by Resume when no dispense is on hold.
	ErrNotPaused = errors.New("pump is not paused")
)

// DefaultFaultMessage is used when Fault is given an empty message.
const DefaultFaultMessage = "fault injected"

// Status is the pump state as served on /pump_status. The four flags are
// what the status poller classifies; the rest is detail for humans.
type Status struct {
	Error   bool `json:"error"`
	Paused  bool `json:"paused"`
	Running bool `json:"running"`
	Enabled bool `json:"enabled"`

	Fault           string  `json:"fault,omitempty"`
	TargetML        float64 `json:"target_ml"`
	DispensedML     float64 `json:"dispensed_ml"`
	TotalDispensed  float64 `json:"total_dispensed_ml"`
	SyringeVolumeML float64 `json:"syringe_volume_ml"`
	FlowRateMLPerS  float64 `json:"flow_rate_ml_per_s"`
}

// Option configures a [Pump].
type Option func(*Pump)

// WithClock replaces time.Now, letting tests drive dispense progress.
func WithClock(now func() time.Time) Option {
	return func(p *Pump) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger used for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pump) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// dispense is one in-progress Run.
type dispense struct {
	target float64
	// done is the volume pushed before the current segment started
	done float64
	// since is the start of the current segment; zero while paused
	since time.Time
}

// Pump is a simulated syringe pump. It is safe for concurrent use.
type Pump struct {
	syringeVolume float64
	flowRate      float64
	now           func() time.Time
	logger        *slog.Logger

	mu        sync.Mutex
	enabled   bool
	fault     string
	faulted   bool
	run       *dispense
	lastTotal float64
	total     float64
}

// New creates a pump with the given syringe capacity (mL) and flow rate
// (mL/s). The motor starts disabled.
func New(syringeVolumeML, flowRateMLPerSec float64, opts ...Option) (*Pump, error) {
	if syringeVolumeML <= 0 || math.IsNaN(syringeVolumeML) || math.IsInf(syringeVolumeML, 0) {
		return nil, fmt.Errorf("syringe volume must be positive, got %g", syringeVolumeML)
	}
	if flowRateMLPerSec <= 0 || math.IsNaN(flowRateMLPerSec) || math.IsInf(flowRateMLPerSec, 0) {
		return nil, fmt.Errorf("flow rate must be positive, got %g", flowRateMLPerSec)
	}

	p := &Pump{
		syringeVolume: syringeVolumeML,
		flowRate:      flowRateMLPerSec,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Enable powers the motor.
func (p *Pump) Enable() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enabled = true
	p.logger.Info("pump enabled")
	return nil
}

// Disable powers the motor down. It is refused while a dispense is in
// progress, paused or not.
func (p *Pump) Disable() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	if p.run != nil {
		return ErrRunning
	}
	p.enabled = false
	p.logger.Info("pump disabled")
	return nil
}

// Run starts dispensing volumeML, enabling the motor first if needed.
func (p *Pump) Run(volumeML float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	if p.faulted {
		return ErrFaulted
	}
	if p.run != nil {
		return ErrRunning
	}
	if volumeML <= 0 || math.IsNaN(volumeML) || volumeML > p.syringeVolume {
		return fmt.Errorf("%w: %g mL (syringe holds %g mL)", ErrInvalidVolume, volumeML, p.syringeVolume)
	}

	p.enabled = true
	p.run = &dispense{target: volumeML, since: p.now()}
	p.logger.Info("pump dispensing", "volume_ml", volumeML)
	return nil
}

// Pause holds the current dispense. Pausing a paused pump is a no-op.
func (p *Pump) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	if p.run == nil {
		return ErrNotRunning
	}
	if p.run.since.IsZero() {
		return nil
	}
	p.run.done = p.progress(p.now())
	p.run.since = time.Time{}
	p.logger.Info("pump paused", "dispensed_ml", p.run.done)
	return nil
}

// Resume continues a paused dispense.
func (p *Pump) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.faulted {
		return ErrFaulted
	}
	if p.run == nil || !p.run.since.IsZero() {
		return ErrNotPaused
	}
	p.run.since = p.now()
	p.logger.Info("pump resumed", "remaining_ml", p.run.target-p.run.done)
	return nil
}

// Fault latches an error condition and aborts any dispense. The motor stays
// in whatever enabled state it had.
func (p *Pump) Fault(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if msg == "" {
		msg = DefaultFaultMessage
	}
	p.advance()
	if p.run != nil {
		p.finish(p.progress(p.now()))
	}
	p.faulted = true
	p.fault = msg
	p.logger.Warn("pump faulted", "fault", msg)
}

// Reset clears any fault, aborts any dispense and disables the motor.
func (p *Pump) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	if p.run != nil {
		p.finish(p.progress(p.now()))
	}
	p.faulted = false
	p.fault = ""
	p.enabled = false
	p.logger.Info("pump reset")
}

// Status returns the current state.
func (p *Pump) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.advance()
	st := Status{
		Error:           p.faulted,
		Enabled:         p.enabled,
		Fault:           p.fault,
		TotalDispensed:  p.total,
		SyringeVolumeML: p.syringeVolume,
		FlowRateMLPerS:  p.flowRate,
		DispensedML:     p.lastTotal,
	}
	if p.run != nil {
		st.Running = true
		st.Paused = p.run.since.IsZero()
		st.TargetML = p.run.target
		st.DispensedML = p.progress(p.now())
	}
	return st
}

// progress returns the volume pushed so far by the current dispense.
// Caller holds mu and run is non-nil.
func (p *Pump) progress(now time.Time) float64 {
	done := p.run.done
	if !p.run.since.IsZero() {
		done += now.Sub(p.run.since).Seconds() * p.flowRate
	}
	return math.Min(done, p.run.target)
}

// advance completes the current dispense once its volume has been pushed.
// Caller holds mu.
func (p *Pump) advance() {
	if p.run == nil || p.run.since.IsZero() {
		return
	}
	if done := p.progress(p.now()); done >= p.run.target {
		p.finish(done)
		p.logger.Info("pump dispense complete", "volume_ml", done)
	}
}

// finish ends the current dispense having pushed done mL. Caller holds mu.
func (p *Pump) finish(done float64) {
	p.total += done
	p.lastTotal = done
	p.run = nil
}
