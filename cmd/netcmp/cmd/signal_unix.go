//go:build unix

package cmd

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// notifyInterrupt arms ch to receive SIGINT, the Unix build using
// golang.org/x/sys/unix directly rather than the portable os.Interrupt
// constant (grounded on the teacher's own dependency on
// golang.org/x/sys, there pulled in transitively for GUI windowing
// syscalls). The returned func disarms and releases the signal.
func notifyInterrupt(ch chan<- struct{}) func() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, unix.SIGINT)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sig:
				select {
				case ch <- struct{}{}:
				default:
				}
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sig)
		close(done)
	}
}
