package logger

import (
	"context"
	"sync"
	"time"

	"ecochain/types"
)

// LogSink persists request log entries.
type LogSink interface {
	SaveLog(ctx context.Context, entry types.LogEntry) error
}

// AsyncLogger hands request logs to a single background writer so the
// request path never waits on the sink.
type AsyncLogger struct {
	sink    LogSink
	channel chan types.LogEntry
	done    chan struct{}
	once    sync.Once

	// OnDrop is called when the buffer is full and an entry is discarded.
	OnDrop func()
}

func NewAsyncLogger(sink LogSink, buffer int) *AsyncLogger {
	if buffer <= 0 {
		buffer = 100
	}
	return &AsyncLogger{
		sink:    sink,
		channel: make(chan types.LogEntry, buffer),
		done:    make(chan struct{}),
	}
}

// ProcessLog drains the buffer until Close is called.
func (l *AsyncLogger) ProcessLog() {
	Info("Starting asynchronous request logger...")
	defer close(l.done)

	for entry := range l.channel {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := l.sink.SaveLog(ctx, entry); err != nil {
			Error("Failed to persist request log "+entry.Method+" "+entry.URL, err)
		} else {
			Debug("Persisted request log " + entry.Method + " " + entry.URL)
		}
		cancel()
	}
}

// Log queues an entry. It never blocks; a full buffer drops the entry.
func (l *AsyncLogger) Log(entry types.LogEntry) {
	select {
	case l.channel <- entry:
	default:
		Warning("Request log buffer full, dropping entry for " + entry.URL)
		if l.OnDrop != nil {
			l.OnDrop()
		}
	}
}

// Close stops accepting entries and waits for the queue to flush.
// It must only be called after ProcessLog has been started.
func (l *AsyncLogger) Close() {
	l.once.Do(func() {
		close(l.channel)
		<-l.done
	})
}
