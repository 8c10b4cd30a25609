// Package progress reports how many source bytes a build has loaded.
package progress

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/rs/zerolog/log"
)

// Global variables for progress tracking
var (
	totalBytesProcessed atomic.Uint64
	totalSize           uint64
	done                chan struct{}
	stopped             chan struct{}
	progressRunning     bool
	progressMutex       sync.Mutex
	interval            = time.Second
)

// Init starts reporting against an expected total of size bytes. It is a
// no-op while a previous Init has not been stopped.
func Init(size uint64) {
	progressMutex.Lock()
	defer progressMutex.Unlock()

	if progressRunning {
		return
	}

	totalBytesProcessed.Store(0)
	totalSize = size
	if totalSize == 0 {
		totalSize = 1 // Avoid division by zero
	}

	done = make(chan struct{})
	stopped = make(chan struct{})
	progressRunning = true
	go logger(done, stopped)
}

// Stop ends reporting and waits for the final summary to be logged.
func Stop() {
	progressMutex.Lock()
	defer progressMutex.Unlock()

	if progressRunning {
		close(done)
		<-stopped
		progressRunning = false
	}
}

// AddBytes adds processed bytes to the counter
func AddBytes(n uint64) {
	if n > 0 {
		totalBytesProcessed.Add(n)
	}
}

// Processed returns the bytes counted since the last Init.
func Processed() uint64 {
	return totalBytesProcessed.Load()
}

// FormatSize returns a human-readable size string
func FormatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// logger logs loading progress periodically
func logger(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	startTime := time.Now()
	var prevBytes uint64

	for {
		select {
		case <-ticker.C:
			currentBytes := totalBytesProcessed.Load()
			if currentBytes == prevBytes {
				continue
			}
			rate := float64(currentBytes-prevBytes) / interval.Seconds()
			prevBytes = currentBytes
			log.Info().
				Str("loaded", FormatSize(currentBytes)).
				Str("total", FormatSize(totalSize)).
				Float64("percent", float64(currentBytes)/float64(totalSize)*100).
				Str("rate", FormatSize(uint64(rate))+"/s").
				Msg("loading")
		case <-done:
			elapsed := time.Since(startTime)
			log.Debug().
				Str("loaded", FormatSize(totalBytesProcessed.Load())).
				Dur("elapsed", elapsed).
				Msg("loading finished")
			return
		}
	}
}

// Writer is a writer that tracks bytes written for progress reporting
type Writer struct {
	W io.Writer
}

// Write implements io.Writer and tracks bytes written
func (pw *Writer) Write(p []byte) (n int, err error) {
	n, err = pw.W.Write(p)
	if n > 0 {
		AddBytes(uint64(n))
	}
	return
}
