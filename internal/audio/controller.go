package audio

import (
	log "log/slog"
	"sync"
	"time"

	"emovox/pkg/audioconv"
)

const DefaultLimit = 5 * time.Second

// Controller drives a Device through Idle and Recording states. Elapsed time is
// advanced by Tick from the caller's scheduler loop; once it reaches the limit
// the session is stopped as if StopRecording had been called.
type Controller struct {
	mu         sync.Mutex
	dev        Device
	limit      time.Duration
	recording  bool
	elapsed    time.Duration
	onCaptured func(audioconv.Buffer)
	log        *log.Logger
}

func NewController(dev Device, limit time.Duration, onCaptured func(audioconv.Buffer), logger *log.Logger) *Controller {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if onCaptured == nil {
		onCaptured = func(audioconv.Buffer) {}
	}
	if logger == nil {
		logger = log.Default()
	}

	return &Controller{
		dev:        dev,
		limit:      limit,
		onCaptured: onCaptured,
		log:        logger.With("component", "recorder"),
	}
}

// StartRecording opens a new capture session. A session already in progress is
// discarded first.
func (c *Controller) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recording {
		c.log.Info("Restarting recording, dropping current session", "elapsed", c.elapsed)
		if err := c.dev.Discard(); err != nil {
			c.log.Warn("Discard failed", "err", err)
		}
		c.recording = false
	}

	c.elapsed = 0
	if err := c.dev.Begin(c.limit); err != nil {
		return &DeviceError{Op: "begin", Err: err}
	}
	c.recording = true

	c.log.Info("Recording started", "limit", c.limit)

	return nil
}

// StopRecording ends the session and hands the captured buffer to the callback.
// It is a no-op when idle.
func (c *Controller) StopRecording() error {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return nil
	}

	c.recording = false
	buf, err := c.dev.End()
	elapsed := c.elapsed
	c.mu.Unlock()

	if err != nil {
		return &DeviceError{Op: "end", Err: err}
	}

	c.log.Info("Recording stopped", "elapsed", elapsed, "captured", buf.Duration(), "rms", frameRMS(buf.Samples))
	c.onCaptured(buf)

	return nil
}

// Tick advances the session clock by dt.
func (c *Controller) Tick(dt time.Duration) error {
	c.mu.Lock()
	if !c.recording {
		c.mu.Unlock()
		return nil
	}
	c.elapsed += dt
	expired := c.elapsed >= c.limit
	c.mu.Unlock()

	if expired {
		return c.StopRecording()
	}
	return nil
}

func (c *Controller) IsRecording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

func (c *Controller) Limit() time.Duration {
	return c.limit
}
