package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/affiliate-ledger/internal/domain"
	"github.com/tbourn/affiliate-ledger/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_notifications_total",
			Help: "Notification send attempts by channel and final status.",
		},
		[]string{"channel", "status"},
	)
	queueDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_notify_queue_dropped_total",
			Help: "Notification tasks dropped because the queue was full or closed.",
		},
	)
)

func init() {
	prometheus.MustRegister(notificationsTotal, queueDropped)
}

// ErrClosed is returned by Shutdown when called twice.
var ErrClosed = errors.New("notify: dispatcher closed")

// Options tune a Dispatcher. Zero values fall back to defaults.
type Options struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration

	// CompanyURL and BuyerURL are linked from the company notice and the
	// buyer receipt.
	CompanyURL string
	BuyerURL   string
}

// Dispatcher sends purchase notifications on a pool of workers fed by a
// bounded queue. It must use a database handle separate from the ledger's.
type Dispatcher struct {
	db     *gorm.DB
	mailer Mailer
	opts   Options
	log    zerolog.Logger

	tasks chan int64
	wg    sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	started bool

	now func() time.Time
}

// NewDispatcher returns a stopped dispatcher. Call Start to run workers.
func NewDispatcher(db *gorm.DB, mailer Mailer, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	return &Dispatcher{
		db:     db,
		mailer: mailer,
		opts:   opts,
		log:    log.With().Str("component", "notify").Logger(),
		tasks:  make(chan int64, opts.QueueSize),
		now:    time.Now,
	}
}

// Start launches the workers. ctx supplies values (trace, logger) to sends;
// its cancellation does not stop workers, Shutdown does.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	base := context.WithoutCancel(ctx)
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(base, i)
	}
	d.log.Info().Int("workers", d.opts.Workers).Int("queue_size", d.opts.QueueSize).Msg("notification dispatcher started")
}

func (d *Dispatcher) worker(ctx context.Context, n int) {
	defer d.wg.Done()
	for id := range d.tasks {
		if err := d.Notify(ctx, id); err != nil {
			d.log.Warn().Err(err).Int("worker", n).Int64("purchase_id", id).Msg("notification incomplete")
		}
	}
}

// Enqueue schedules notifications for purchaseID. It never blocks: when the
// queue is full or the dispatcher is shut down the task is dropped and false
// is returned.
func (d *Dispatcher) Enqueue(purchaseID int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		queueDropped.Inc()
		d.log.Warn().Int64("purchase_id", purchaseID).Msg("dispatcher closed; notification dropped")
		return false
	}
	select {
	case d.tasks <- purchaseID:
		return true
	default:
		queueDropped.Inc()
		d.log.Warn().Int64("purchase_id", purchaseID).Int("queue_size", d.opts.QueueSize).Msg("notification queue full; dropped")
		return false
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish, or
// for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.closed = true
	close(d.tasks)
	started := d.started
	d.mu.Unlock()

	if !started {
		if n := len(d.tasks); n > 0 {
			d.log.Warn().Int("pending", n).Msg("dispatcher never started; queued notifications discarded")
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.log.Info().Msg("notification dispatcher drained")
		return nil
	case <-ctx.Done():
		d.log.Warn().Int("pending", len(d.tasks)).Msg("notification drain interrupted")
		return ctx.Err()
	}
}

// Notify sends the company order notice and then the buyer receipt for one
// purchase, synchronously. A failed company notice does not prevent the
// receipt. The returned error joins every failure.
func (d *Dispatcher) Notify(ctx context.Context, purchaseID int64) error {
	ctx, span := otel.Tracer("notify/Dispatcher").Start(ctx, "Notify",
		trace.WithAttributes(attribute.Int64("purchase.id", purchaseID)))
	defer span.End()

	v, err := repo.GetOrderView(ctx, d.db, purchaseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load order")
		return fmt.Errorf("load order %d: %w", purchaseID, err)
	}

	var errs []error

	to := v.CompanyEmail
	if v.CompanyNotificationEmail != nil && *v.CompanyNotificationEmail != "" {
		to = *v.CompanyNotificationEmail
	}
	if msg, err := companyNotice(v, to, d.opts.CompanyURL); err != nil {
		errs = append(errs, fmt.Errorf("render company notice: %w", err))
	} else if err := d.deliver(ctx, domain.ChannelCompany, v.PurchaseID, v.CompanyID, msg); err != nil {
		errs = append(errs, err)
	}

	if msg, err := buyerReceipt(v, d.opts.BuyerURL); err != nil {
		errs = append(errs, fmt.Errorf("render buyer receipt: %w", err))
	} else if err := d.deliver(ctx, domain.ChannelBuyer, v.PurchaseID, v.BuyerID, msg); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		return err
	}
	return nil
}

// deliver records a pending log entry, sends msg and settles the entry.
// The send is attempted even if the log entry cannot be written.
func (d *Dispatcher) deliver(ctx context.Context, channel string, purchaseID, userID int64, msg Message) error {
	lg := d.log.With().Str("channel", channel).Int64("purchase_id", purchaseID).Str("to", msg.To).Logger()

	entry, lerr := repo.CreateNotificationLog(ctx, d.db, &purchaseID, &userID, channel, msg.To, msg.Subject)
	if lerr != nil {
		lg.Error().Err(lerr).Msg("notification log not written")
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	err := d.mailer.Send(sendCtx, msg)
	cancel()

	if err != nil {
		notificationsTotal.WithLabelValues(channel, domain.NotificationFailed).Inc()
		lg.Warn().Err(err).Msg("notification failed")
		if entry != nil {
			if uerr := repo.MarkNotificationFailed(ctx, d.db, entry.ID, err.Error()); uerr != nil {
				lg.Error().Err(uerr).Int64("log_id", entry.ID).Msg("notification log not updated")
			}
		}
		return fmt.Errorf("%s notice: %w", channel, err)
	}

	notificationsTotal.WithLabelValues(channel, domain.NotificationDelivered).Inc()
	lg.Info().Msg("notification delivered")
	if entry != nil {
		if uerr := repo.MarkNotificationDelivered(ctx, d.db, entry.ID, d.now()); uerr != nil {
			lg.Error().Err(uerr).Int64("log_id", entry.ID).Msg("notification log not updated")
		}
	}
	return nil
}
