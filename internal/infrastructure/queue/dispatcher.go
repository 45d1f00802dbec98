package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tripeco/identity-service/internal/api/metrics"
	"github.com/tripeco/identity-service/internal/core/domain"
	"github.com/tripeco/identity-service/internal/core/ports"
)

const (
	defaultWorkers     = 4
	defaultQueueSize   = 64
	defaultSendTimeout = 15 * time.Second
)

type Config struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

type job struct {
	key string
	msg ports.NewUserMessage
}

// Dispatcher delivers account notifications on a fixed set of workers. Jobs
// are sharded by user id so notifications for one user stay ordered.
// Enqueueing never blocks: a full worker queue drops the job.
type Dispatcher struct {
	workers     []chan job
	mailer      ports.Mailer
	dedup       ports.DeliveryDedup
	sendTimeout time.Duration
	log         zerolog.Logger
	wg          sync.WaitGroup

	// mu orders enqueues against stop: once stopped is set no job can land
	// in a channel whose worker has already drained it.
	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher builds a Dispatcher. dedup may be nil, in which case every
// job is delivered.
func NewDispatcher(cfg Config, mailer ports.Mailer, dedup ports.DeliveryDedup, log zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}

	d := &Dispatcher{
		workers:     make([]chan job, cfg.Workers),
		mailer:      mailer,
		dedup:       dedup,
		sendTimeout: cfg.SendTimeout,
		log:         log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan job, cfg.QueueSize)
	}
	return d
}

// Start launches the workers. When ctx is cancelled each worker delivers what
// is already queued and returns; use Wait to block until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		i, ch := i, ch
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.runWorker(ctx, i, ch)
		}()
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// NotifyNewUser enqueues delivery of the initial password. The request
// context is ignored: delivery outlives the request that triggered it.
func (d *Dispatcher) NotifyNewUser(_ context.Context, user domain.User, password string) {
	j := job{
		key: user.ID + ":" + strconv.FormatInt(user.UpdatedAt.UnixNano(), 10),
		msg: ports.NewUserMessage{
			UserID:    user.ID,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Password:  password,
		},
	}

	idx := d.shardIndex(user.ID)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		d.log.Error().
			Str("user_id", user.ID).
			Msg("notification dispatcher stopped, dropping job")
		return
	}

	select {
	case d.workers[idx] <- j:
		metrics.NotificationsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		d.log.Error().
			Str("user_id", user.ID).
			Int("worker_id", idx).
			Msg("notification queue full, dropping job")
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan job) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			d.stop()
			d.drain(context.WithoutCancel(ctx), id, ch)
			return
		case j := <-ch:
			metrics.NotificationsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.deliver(ctx, id, j)
		}
	}
}

func (d *Dispatcher) stop() {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}

// drain delivers jobs still buffered when the worker is stopped. Each one is
// still bounded by the send timeout.
func (d *Dispatcher) drain(ctx context.Context, id int, ch <-chan job) {
	for {
		select {
		case j := <-ch:
			d.deliver(ctx, id, j)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, workerID int, j job) {
	log := d.log.With().Str("user_id", j.msg.UserID).Int("worker_id", workerID).Logger()

	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if d.dedup != nil {
		claimed, err := d.dedup.Claim(ctx, j.key)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("dedup unavailable, delivering anyway")
		case !claimed:
			metrics.NotificationsTotal.WithLabelValues("duplicate").Inc()
			log.Debug().Msg("notification already delivered, skipping")
			return
		}
	}

	start := time.Now()
	err := d.mailer.SendNewUser(ctx, j.msg)
	switch {
	case errors.Is(err, ports.ErrDeliverySkipped):
		metrics.NotificationsTotal.WithLabelValues("gated").Inc()
	case err != nil:
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		metrics.NotificationSendDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
		log.Error().Err(err).Msg("notification delivery failed")
	default:
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		metrics.NotificationSendDuration.WithLabelValues("sent").Observe(time.Since(start).Seconds())
		log.Info().Msg("notification delivered")
	}
}
