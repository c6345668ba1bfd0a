package event

import "time"

// Event is anything the bus can carry. Concrete events embed baseEvent
// and add their payload fields on top.
type Event interface {
	// EventType names the event as "category.action", for example
	// "bridge.connected" or "sdk.resolved". Subscriptions key on it.
	EventType() string

	// Timestamp is when the event was constructed.
	Timestamp() time.Time
}

// baseEvent holds the type tag and creation time every concrete event
// shares.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent tags eventType with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Bridge Lifecycle Events
// -----------------------------------------------------------------------------

// BridgePhase is the coordinator state as seen on the bus. Kept in
// step with bridge.State without importing it.
type BridgePhase string

const (
	BridgePhaseIdle           BridgePhase = "idle"
	BridgePhaseConnecting     BridgePhase = "connecting"
	BridgePhaseAwaitingChoice BridgePhase = "awaiting_choice"
	BridgePhaseRetrying       BridgePhase = "retrying"
	BridgePhaseConnected      BridgePhase = "connected"
	BridgePhaseFailed         BridgePhase = "failed"
	BridgePhaseCanceled       BridgePhase = "canceled"
)

// BridgePhaseChangedEvent is emitted on every coordinator state transition.
type BridgePhaseChangedEvent struct {
	baseEvent
	PreviousPhase BridgePhase // Phase before the transition
	CurrentPhase  BridgePhase // New current phase
	Attempt       int         // Connection attempt number, starting at 1
}

// NewBridgePhaseChangedEvent creates a BridgePhaseChangedEvent.
func NewBridgePhaseChangedEvent(previous, current BridgePhase, attempt int) BridgePhaseChangedEvent {
	return BridgePhaseChangedEvent{
		baseEvent:     newBaseEvent("bridge.phase_changed"),
		PreviousPhase: previous,
		CurrentPhase:  current,
		Attempt:       attempt,
	}
}

// BridgeConnectedEvent is emitted when the adb server answers.
type BridgeConnectedEvent struct {
	baseEvent
	AdbPath string // Resolved path to the adb binary
	Attempt int    // Connection attempt that succeeded
	Forced  bool   // Whether the server was force-restarted for this attempt
}

// NewBridgeConnectedEvent creates a BridgeConnectedEvent.
func NewBridgeConnectedEvent(adbPath string, attempt int, forced bool) BridgeConnectedEvent {
	return BridgeConnectedEvent{
		baseEvent: newBaseEvent("bridge.connected"),
		AdbPath:   adbPath,
		Attempt:   attempt,
		Forced:    forced,
	}
}

// BridgeFailedEvent is emitted when a connection attempt completes without
// establishing a connection.
type BridgeFailedEvent struct {
	baseEvent
	AdbPath string // Resolved path to the adb binary
	Attempt int    // Connection attempt that failed
	Errors  string // Accumulated adb daemon error text (may be empty)
}

// NewBridgeFailedEvent creates a BridgeFailedEvent.
func NewBridgeFailedEvent(adbPath string, attempt int, errors string) BridgeFailedEvent {
	return BridgeFailedEvent{
		baseEvent: newBaseEvent("bridge.failed"),
		AdbPath:   adbPath,
		Attempt:   attempt,
		Errors:    errors,
	}
}

// BridgeRestartedEvent is emitted when the adb server is force-restarted.
type BridgeRestartedEvent struct {
	baseEvent
	Attempt int    // Attempt number of the restart
	Reason  string // Why the restart happened ("crashed", "disconnected", "user")
}

// NewBridgeRestartedEvent creates a BridgeRestartedEvent.
func NewBridgeRestartedEvent(attempt int, reason string) BridgeRestartedEvent {
	return BridgeRestartedEvent{
		baseEvent: newBaseEvent("bridge.restarted"),
		Attempt:   attempt,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// SDK Events
// -----------------------------------------------------------------------------

// SdkResolvedEvent is emitted when an SDK handle is created.
type SdkResolvedEvent struct {
	baseEvent
	Path      string // Path as requested by the caller
	Canonical string // Canonical SDK root path
	Targets   int    // Number of targets parsed
	Forced    bool   // Whether this was a forced reparse
}

// NewSdkResolvedEvent creates an SdkResolvedEvent.
func NewSdkResolvedEvent(path, canonical string, targets int, forced bool) SdkResolvedEvent {
	return SdkResolvedEvent{
		baseEvent: newBaseEvent("sdk.resolved"),
		Path:      path,
		Canonical: canonical,
		Targets:   targets,
		Forced:    forced,
	}
}

// SdkInvalidatedEvent is emitted when cached SDK data is dropped, either
// explicitly or because the SDK tree changed on disk.
type SdkInvalidatedEvent struct {
	baseEvent
	Canonical string // Canonical SDK root path
	Target    string // Hash of the invalidated target, empty for handle-wide drops
	Reason    string // Why the data was dropped ("watch", "explicit")
}

// NewSdkInvalidatedEvent creates an SdkInvalidatedEvent.
func NewSdkInvalidatedEvent(canonical, target, reason string) SdkInvalidatedEvent {
	return SdkInvalidatedEvent{
		baseEvent: newBaseEvent("sdk.invalidated"),
		Canonical: canonical,
		Target:    target,
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Device Events
// -----------------------------------------------------------------------------

// DeviceListedEvent is emitted after a device enumeration completes.
type DeviceListedEvent struct {
	baseEvent
	Count   int      // Number of devices reported by the server
	Serials []string // Device serials in adb enumeration order
}

// NewDeviceListedEvent creates a DeviceListedEvent.
func NewDeviceListedEvent(serials []string) DeviceListedEvent {
	return DeviceListedEvent{
		baseEvent: newBaseEvent("device.listed"),
		Count:     len(serials),
		Serials:   serials,
	}
}
