// Package pumpwatch watches a syringe pump controller and keeps a status
// indicator up to date.
//
// A [Watcher] polls the controller's status endpoint once per second. Each
// response is classified into a [Label]:
//
//   - [LabelError]: the pump reports a fault, or the poll failed (transport
//     error, non-2xx status, undecodable body)
//   - [LabelPaused]: a dispense is paused
//   - [LabelRunning]: the pump is dispensing
//   - [LabelEnabled]: the motor is energised and idle
//
// Flags are checked in that priority order and the first match wins. A
// response with no flag set yields [LabelNone] and leaves the display
// untouched.
//
// # Quick Start
//
//	ep, _ := pumpwatch.NewEndpoint("http://raspberrypi.local:5000/pump_status")
//	w, _ := pumpwatch.New(
//	    pumpwatch.WithEndpoint(ep),
//	    pumpwatch.WithDisplay(func(l pumpwatch.Label) { fmt.Println("pump:", l) }),
//	    pumpwatch.WithDashboard(8080),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//	w.Start(ctx) // blocks until ctx is cancelled
//
// # Polling model
//
// Every tick starts an independent request. Requests are not de-duplicated
// or cancelled, so a slow response can resolve after a newer one; displays
// are plain overwrites applied in resolution order. By default a hung
// request is never abandoned; [WithTimeout] bounds it.
//
// # Architecture
//
//   - internal/poller: HTTP client and fire-and-forget ticker
//   - internal/store: latest label per endpoint with pub/sub
//   - internal/server: indicator page, JSON API and Server-Sent Events
//   - internal/console: terminal display
//   - internal/pump: simulated pump controller serving /pump_status
//   - internal/pumpclient: one-shot REST client for the controller
//   - dashboard: embedded indicator page
package pumpwatch
