package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/droidcore/sdkbridge/internal/adb"
	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/event"
)

var devicesProps bool

// deviceSummaryProps are the system properties shown under --props, in
// display order.
var deviceSummaryProps = []string{
	"ro.product.manufacturer",
	"ro.product.model",
	"ro.build.version.release",
	"ro.build.version.sdk",
	"ro.build.id",
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List devices attached to the adb server",
	Long: `Connect to the adb server, starting it when necessary, and list the
devices it reports.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
	devicesCmd.Flags().BoolVar(&devicesProps, "props", false, "read system properties from each online device")
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	defer func() { _ = log.Close() }()

	client, err := adbClient(cfg, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	manager, coord := newBridge(cfg, client, log, false)
	if err := coord.Connect(ctx); err != nil {
		return err
	}
	conn := manager.Handle()
	if conn == nil {
		return errors.NewBridgeError("adb server did not answer", errors.ErrBridgeFailed).
			WithAdbPath(client.Path())
	}

	devices, err := conn.Devices(ctx)
	if err != nil {
		return err
	}
	bus.Publish(event.NewDeviceListedEvent(adb.Serials(devices)))

	if len(devices) == 0 {
		fmt.Println("No devices attached")
		return nil
	}

	for _, d := range devices {
		printDevice(d)
		if devicesProps && d.IsOnline() {
			printDeviceProps(ctx, conn, d.Serial)
		}
	}
	return nil
}

func printDevice(d adb.Device) {
	fmt.Printf("%-22s %s", d.Serial, d.State)
	if d.Product != "" {
		fmt.Printf("  product:%s", d.Product)
	}
	if d.Model != "" {
		fmt.Printf("  model:%s", d.Model)
	}
	if d.Name != "" {
		fmt.Printf("  device:%s", d.Name)
	}
	fmt.Println()
}

func printDeviceProps(ctx context.Context, conn *adb.Client, serial string) {
	props, err := conn.Props(ctx, serial)
	if err != nil {
		fmt.Printf("    properties unavailable: %v\n", err)
		return
	}
	for _, key := range deviceSummaryProps {
		if v, ok := props[key]; ok {
			fmt.Printf("    %s=%s\n", key, v)
		}
	}
}
