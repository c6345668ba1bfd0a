package adb

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"

	"github.com/droidcore/sdkbridge/internal/errors"
)

// Shell attaches an interactive device shell to the caller's terminal.
// The adb client runs under a pseudo-terminal so the device side sees a
// real tty: line editing, job control, and full-screen tools work. Blocks
// until the shell exits or ctx is canceled.
func (c *Client) Shell(ctx context.Context, serial string, command ...string) error {
	args := []string{"shell"}
	args = append(args, command...)
	if serial != "" {
		args = SerialArgs(serial, args...)
	}

	cmd := CommandContext(ctx, c.path, args...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return errors.NewDeviceError("failed to open shell", err).WithSerial(serial)
	}
	defer func() { _ = ptmx.Close() }()

	// Track terminal size changes for the lifetime of the shell.
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)
	go func() {
		for range winch {
			_ = pty.InheritSize(os.Stdin, ptmx)
		}
	}()
	winch <- syscall.SIGWINCH // set the initial size

	// Raw mode so control sequences reach the device untouched. Skipped
	// when stdin is not a terminal, e.g. under a pipe.
	if oldState, err := term.MakeRaw(int(os.Stdin.Fd())); err == nil {
		defer func() { _ = term.Restore(int(os.Stdin.Fd()), oldState) }()
	}

	go func() { _, _ = io.Copy(ptmx, os.Stdin) }()
	_, _ = io.Copy(os.Stdout, ptmx)

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.Canceled {
			return errors.ErrCanceled
		}
		return errors.NewDeviceError("shell exited abnormally", err).WithSerial(serial)
	}
	return nil
}
