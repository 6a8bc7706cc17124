//go:build !unix

package cmd

import (
	"os"
	"os/signal"
)

// notifyInterrupt is the portable fallback for platforms without a
// unix build tag (there are none in netgen's own target set, but the
// teacher's own gioui dependency chain supports windows too, so this
// keeps `go build ./...` honest there).
func notifyInterrupt(ch chan<- struct{}) func() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
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
