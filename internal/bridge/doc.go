// Package bridge owns the lifecycle of the adb server.
//
// Two types split the work. [Manager] holds the process-wide lifecycle
// state the server protocol depends on: whether this process has
// initialized the server before, whether the last attempt crashed, and
// the connected client handle. One Manager is constructed in command
// wiring and passed by reference everywhere; its lock serializes server
// starts, restarts, and teardown across all callers.
//
// [Coordinator] drives one Connect call as an explicit state machine.
// A connection attempt runs on a background worker while the coordinator
// waits with a bounded ceiling; when the ceiling elapses the coordinator
// asks a [Prompter] whether to keep waiting, restart the server, or give
// up. Every transition is published on the event bus, so the CLI and TUI
// observe progress without polling.
//
// Lifecycle:
//
//	m := bridge.NewManager(client, cfg)
//	c := bridge.NewCoordinator(m, prompter)
//	if err := c.Connect(ctx); err != nil { ... } // canceled
//	if h := m.Handle(); h != nil { ... }         // connected
//	_ = m.Shutdown(ctx)
//
// Connection failures are not errors: Connect returns nil and the
// Manager's Handle stays nil, mirroring how callers actually treat an
// absent server (probe, report, retry later). Only cancellation and a
// concurrent Connect surface as errors.
package bridge
