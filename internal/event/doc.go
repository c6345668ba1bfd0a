// Package event carries domain events between sdkbridge components
// over a small synchronous pub-sub [Bus].
//
// The coordinator publishes bridge lifecycle transitions, the sdk
// package announces resolution and cache invalidation, and the CLI and
// TUI subscribe to whichever subset they render. Neither side imports
// the other.
//
// Event types are strings of the form "category.action":
//
//	bridge.phase_changed  bridge.connected  bridge.failed  bridge.restarted
//	sdk.resolved          sdk.invalidated
//	device.listed
//
// Every event implements [Event], exposing its type string and the time
// it was created. Concrete payloads are plain structs such as
// [BridgeConnectedEvent] and [SdkResolvedEvent]; handlers type-assert
// to the one they subscribed for:
//
//	bus := event.NewBus()
//	bus.Subscribe("bridge.connected", func(e event.Event) {
//	    up := e.(event.BridgeConnectedEvent)
//	    log.Printf("adb server up at %s", up.AdbPath)
//	})
//	bus.Publish(event.NewBridgeConnectedEvent("/sdk/platform-tools/adb", 1, false))
//
// SubscribeAll sees every event, which suits logging taps; Subscribe
// returns an ID accepted by Unsubscribe. Dispatch is synchronous and
// runs in registration order with type-specific handlers ahead of
// wildcard ones. A panicking handler is isolated from the rest, and the
// Bus is safe for concurrent use.
package event
