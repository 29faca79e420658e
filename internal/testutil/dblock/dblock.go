// Package dblock serialises test binaries that share one Postgres database.
package dblock

import (
	"net"
	"time"
)

const lockAddr = "127.0.0.1:45432"

// Acquire blocks until this process owns the lock and returns its release.
func Acquire() func() {
	for {
		ln, err := net.Listen("tcp", lockAddr)
		if err == nil {
			return func() { ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
