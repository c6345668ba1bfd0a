package adb

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/droidcore/sdkbridge/internal/config"
	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/logging"
	"github.com/droidcore/sdkbridge/internal/util"
)

// defaultServerPort is the adb server's listen port when
// ANDROID_ADB_SERVER_PORT does not override it.
const defaultServerPort = "5037"

// defaultCommandTimeout bounds client commands when the configuration
// does not.
const defaultCommandTimeout = 5 * time.Second

// Client runs adb commands against one specific binary. It is safe for
// concurrent use.
type Client struct {
	path     string
	timeout  time.Duration
	logLevel string
	log      *logging.Logger
	errors   *ErrorLog
}

// NewClient creates a client for the adb binary at path.
func NewClient(path string, cfg config.AdbConfig, log *logging.Logger) *Client {
	if log == nil {
		log = logging.NopLogger()
	}
	timeout := cfg.CommandTimeout()
	if timeout <= 0 {
		timeout = defaultCommandTimeout
	}
	return &Client{
		path:     path,
		timeout:  timeout,
		logLevel: cfg.LogLevel,
		log:      log.WithComponent("adb"),
		errors:   NewErrorLog(),
	}
}

// Path returns the adb binary the client is bound to.
func (c *Client) Path() string { return c.path }

// ErrorLog returns the accumulated daemon error output.
func (c *Client) ErrorLog() *ErrorLog { return c.errors }

// run executes an adb command and returns its combined output.
func (c *Client) run(ctx context.Context, extraEnv []string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := CommandContext(ctx, c.path, args...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	output, err := cmd.CombinedOutput()
	text := string(output)
	if err == nil {
		return text, nil
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		err = errors.NewTimeoutError("adb "+args[0], c.timeout)
	case ctx.Err() == context.Canceled:
		err = errors.ErrCanceled
	default:
		err = errors.NewBridgeError("adb "+args[0]+" failed", err).
			WithAdbPath(c.path).
			WithAdbOutput(util.FirstLine(text))
	}
	c.log.Debug("adb command failed", "args", strings.Join(args, " "), "error", err)
	return text, err
}

// Version returns the client's version banner, e.g.
// "Android Debug Bridge version 1.0.41".
func (c *Client) Version(ctx context.Context) (string, error) {
	output, err := c.run(ctx, nil, "version")
	if err != nil {
		return "", err
	}
	return util.FirstLine(output), nil
}

// StartServer launches the adb server daemon. Failure output is retained
// in the error log for later display.
func (c *Client) StartServer(ctx context.Context) error {
	output, err := c.run(ctx, c.traceEnv(), "start-server")
	if err != nil {
		c.errors.AppendOutput(output)
		return errors.NewBridgeError("adb server failed to start", errors.ErrBridgeFailed).
			WithAdbPath(c.path).
			WithAdbOutput(util.FirstLine(output))
	}
	c.log.Debug("adb server started", "path", c.path)
	return nil
}

// KillServer stops the adb server daemon. Stopping an already stopped
// server is not an error.
func (c *Client) KillServer(ctx context.Context) error {
	output, err := c.run(ctx, nil, "kill-server")
	if err != nil && c.Connected(ctx) {
		c.errors.AppendOutput(output)
		return errors.NewBridgeError("adb server failed to stop", errors.ErrOperationFailed).
			WithAdbPath(c.path).
			WithAdbOutput(util.FirstLine(output))
	}
	return nil
}

// Connected probes whether an adb server is accepting connections. The
// probe speaks just enough of the server protocol to tell a real server
// from something else squatting on the port, and never starts a daemon.
func (c *Client) Connected(ctx context.Context) bool {
	d := net.Dialer{Timeout: time.Second}
	conn, err := d.DialContext(ctx, "tcp", serverAddress())
	if err != nil {
		return false
	}
	defer conn.Close()

	request := "host:version"
	if _, err := fmt.Fprintf(conn, "%04x%s", len(request), request); err != nil {
		return false
	}
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	status := make([]byte, 4)
	if _, err := io.ReadFull(conn, status); err != nil {
		return false
	}
	return string(status) == "OKAY"
}

// Devices lists the devices the server knows about.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	output, err := c.run(ctx, nil, "devices", "-l")
	if err != nil {
		return nil, err
	}
	return ParseDevices(output), nil
}

// Getprop reads one system property from a device.
func (c *Client) Getprop(ctx context.Context, serial, key string) (string, error) {
	if serial == "" {
		return "", errors.NewValidationError("device serial required")
	}
	output, err := c.run(ctx, nil, SerialArgs(serial, "shell", "getprop", key)...)
	if err != nil {
		return "", errors.NewDeviceError("getprop failed", err).WithSerial(serial)
	}
	return strings.TrimSpace(output), nil
}

// traceEnv translates the configured log level into the daemon's
// ADB_TRACE environment variable. Only verbose and debug map to traces;
// the daemon is quiet otherwise.
func (c *Client) traceEnv() []string {
	switch c.logLevel {
	case "verbose":
		return []string{"ADB_TRACE=all"}
	case "debug":
		return []string{"ADB_TRACE=adb"}
	default:
		return nil
	}
}

// serverAddress returns the adb server endpoint, honoring the
// ANDROID_ADB_SERVER_PORT override the tooling uses.
func serverAddress() string {
	port := os.Getenv("ANDROID_ADB_SERVER_PORT")
	if port == "" {
		port = defaultServerPort
	}
	return net.JoinHostPort("127.0.0.1", port)
}
