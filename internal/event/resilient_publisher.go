package event

import (
	"context"
	"sync"
	"time"

	"github.com/osse101/FieldSync_Go/internal/logger"
)

type retryEntry struct {
	event     Event
	attempt   int
	nextRetry time.Time
	lastErr   error
}

// ResilientPublisher wraps a Bus and retries failed publishes in the
// background with exponential backoff. Events that exhaust their retries, or
// that arrive while the retry queue is full, go to the dead-letter file.
type ResilientPublisher struct {
	bus        Bus
	retryQueue chan retryEntry
	deadLetter *DeadLetterWriter
	maxRetries int
	retryDelay time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewResilientPublisher creates a publisher and starts its retry worker
func NewResilientPublisher(bus Bus, maxRetries int, retryDelay time.Duration, deadLetterPath string) (*ResilientPublisher, error) {
	dl, err := NewDeadLetterWriter(deadLetterPath)
	if err != nil {
		return nil, err
	}

	rp := &ResilientPublisher{
		bus:        bus,
		retryQueue: make(chan retryEntry, RetryQueueBufferSize),
		deadLetter: dl,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		shutdown:   make(chan struct{}),
	}

	rp.wg.Add(1)
	go rp.retryWorker()

	return rp, nil
}

// PublishWithRetry publishes once synchronously and queues the event for
// retry on failure. It never returns an error to the caller.
func (rp *ResilientPublisher) PublishWithRetry(ctx context.Context, evt Event) {
	err := rp.bus.Publish(ctx, evt)
	if err == nil {
		return
	}

	log := logger.FromContext(ctx)
	log.Warn(LogMsgEventPublishFailed, LogKeyEventType, evt.Type, LogKeyTable, evt.Table(), LogKeyError, err)

	entry := retryEntry{
		event:     evt,
		attempt:   1,
		nextRetry: time.Now().Add(RetryDelay(rp.retryDelay, 1)),
		lastErr:   err,
	}

	select {
	case rp.retryQueue <- entry:
	default:
		log.Error(LogMsgRetryQueueFull, LogKeyEventType, evt.Type, LogKeyTable, evt.Table())
		if dlErr := rp.deadLetter.Write(evt, 1, err); dlErr != nil {
			log.Error(LogMsgDeadLetterWriteFailed, LogKeyError, dlErr)
		}
	}
}

// Publish satisfies Bus so the publisher can stand in for the raw bus
func (rp *ResilientPublisher) Publish(ctx context.Context, evt Event) error {
	rp.PublishWithRetry(ctx, evt)
	return nil
}

// Subscribe delegates to the wrapped bus
func (rp *ResilientPublisher) Subscribe(eventType Type, handler Handler) {
	rp.bus.Subscribe(eventType, handler)
}

func (rp *ResilientPublisher) retryWorker() {
	defer rp.wg.Done()

	for {
		select {
		case entry := <-rp.retryQueue:
			if wait := time.Until(entry.nextRetry); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-rp.shutdown:
					timer.Stop()
					rp.finalAttempt(entry)
					rp.drain()
					return
				}
			}
			rp.attempt(entry)
		case <-rp.shutdown:
			rp.drain()
			return
		}
	}
}

func (rp *ResilientPublisher) attempt(entry retryEntry) {
	log := logger.FromContext(context.Background())

	err := rp.bus.Publish(context.Background(), entry.event)
	if err == nil {
		log.Info(LogMsgEventRetrySucceeded, LogKeyEventType, entry.event.Type, LogKeyTable, entry.event.Table(), LogKeyAttempt, entry.attempt)
		return
	}

	if entry.attempt >= rp.maxRetries {
		log.Error(LogMsgEventRetryExhausted, LogKeyEventType, entry.event.Type, LogKeyTable, entry.event.Table(), LogKeyAttempt, entry.attempt)
		if dlErr := rp.deadLetter.Write(entry.event, entry.attempt, err); dlErr != nil {
			log.Error(LogMsgDeadLetterWriteFailed, LogKeyError, dlErr)
		}
		return
	}

	entry.attempt++
	entry.lastErr = err
	entry.nextRetry = time.Now().Add(RetryDelay(rp.retryDelay, entry.attempt))
	log.Debug(LogMsgEventRetryFailed, LogKeyEventType, entry.event.Type, LogKeyAttempt, entry.attempt, LogKeyError, err)

	select {
	case rp.retryQueue <- entry:
	default:
		if dlErr := rp.deadLetter.Write(entry.event, entry.attempt, err); dlErr != nil {
			log.Error(LogMsgDeadLetterWriteFailed, LogKeyError, dlErr)
		}
	}
}

// finalAttempt tries once more without requeueing
func (rp *ResilientPublisher) finalAttempt(entry retryEntry) {
	err := rp.bus.Publish(context.Background(), entry.event)
	if err == nil {
		return
	}
	if dlErr := rp.deadLetter.Write(entry.event, entry.attempt, err); dlErr != nil {
		logger.Error(LogMsgDeadLetterWriteFailedS, LogKeyError, dlErr)
	}
}

func (rp *ResilientPublisher) drain() {
	drained := 0
	for {
		select {
		case entry := <-rp.retryQueue:
			rp.finalAttempt(entry)
			drained++
		default:
			if drained > 0 {
				logger.Info(LogMsgQueueDrainedShutdown, "count", drained)
			}
			return
		}
	}
}

// Shutdown stops the retry worker after one final attempt for every queued
// event, then closes the dead-letter file.
func (rp *ResilientPublisher) Shutdown(ctx context.Context) error {
	rp.shutdownOnce.Do(func() { close(rp.shutdown) })

	done := make(chan struct{})
	go func() {
		rp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return rp.deadLetter.Close()
	case <-ctx.Done():
		logger.Warn(LogMsgShutdownTimeout)
		return ctx.Err()
	}
}
