// Package pump simulates a stepper-driven syringe pump and exposes it over
// HTTP the way the bench pump's own web app does.
//
// The simulated pump moves through the states the status poller reports:
// enabled (motor powered, idle), running (dispensing a volume), paused (a
// dispense on hold) and error (faulted). A dispense progresses with the
// wall clock and completes on its own.
//
//	p, _ := pump.New(4, 0.45)
//	_ = p.Run(2) // dispense 2 mL
//	st := p.Status()
package pump
