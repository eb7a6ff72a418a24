package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when business metrics are built without a meter
var ErrMeterNil = errors.New("business metrics: meter is nil")

const defaultReceivablesInterval = 5 * time.Minute

var hundred = decimal.NewFromInt(100)

// ReceivablesProvider reports unpaid money on open bills
type ReceivablesProvider interface {
	// Receivables returns outstanding and overdue totals in the bill currency
	Receivables(ctx context.Context) (outstanding, overdue decimal.Decimal, err error)
}

// BusinessMetricsConfig wires BusinessMetrics
type BusinessMetricsConfig struct {
	Meter       metric.Meter
	Logger      *zap.Logger
	Receivables ReceivablesProvider
}

// BusinessMetrics counts bookings and payments and samples receivables.
// Money is recorded in cents.
type BusinessMetrics struct {
	logger      *zap.Logger
	receivables ReceivablesProvider

	bookings    *Counter
	quoted      *Counter
	payments    *Counter
	paidCents   *Counter
	outstanding *Gauge
	overdue     *Gauge

	start sync.Once
	stop  sync.Once
	done  chan struct{}
}

// NewBusinessMetrics creates the instruments on cfg.Meter
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	bm := &BusinessMetrics{
		logger:      cfg.Logger,
		receivables: cfg.Receivables,
		done:        make(chan struct{}),
	}
	if bm.logger == nil {
		bm.logger = zap.NewNop()
	}

	counters := []struct {
		dst        **Counter
		name, help string
		unit       string
	}{
		{&bm.bookings, "fp_order_created_total", "Freight orders booked", "{order}"},
		{&bm.quoted, "fp_order_quoted_amount_total", "Quoted amount of confirmed orders in cents", "{cent}"},
		{&bm.payments, "fp_payment_total", "Payments recorded on bills", "{payment}"},
		{&bm.paidCents, "fp_payment_amount_total", "Amount paid on bills in cents", "{cent}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.help, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	if bm.outstanding, err = NewGauge(cfg.Meter, "fp_receivables_outstanding",
		"Unpaid amount on issued, partially paid and overdue bills in cents", "{cent}"); err != nil {
		return nil, err
	}
	if bm.overdue, err = NewGauge(cfg.Meter, "fp_receivables_overdue",
		"Unpaid amount on overdue bills in cents", "{cent}"); err != nil {
		return nil, err
	}
	return bm, nil
}

func cents(d decimal.Decimal) int64 {
	return d.Mul(hundred).IntPart()
}

// RecordOrderCreated counts a booking
func (bm *BusinessMetrics) RecordOrderCreated(ctx context.Context, serviceType string) {
	bm.bookings.Inc(ctx, AttrServiceType.String(serviceType))
}

// RecordOrderConfirmed adds the quoted amount of a confirmed order
func (bm *BusinessMetrics) RecordOrderConfirmed(ctx context.Context, currency string, quoted decimal.Decimal) {
	bm.quoted.Add(ctx, cents(quoted), AttrCurrency.String(currency))
}

// RecordPayment counts a payment and adds its amount
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, method, currency string, amount decimal.Decimal) {
	bm.payments.Inc(ctx, AttrPaymentMethod.String(method))
	bm.paidCents.Add(ctx, cents(amount), AttrPaymentMethod.String(method), AttrCurrency.String(currency))
}

// RecordReceivables sets the receivables gauges
func (bm *BusinessMetrics) RecordReceivables(ctx context.Context, outstanding, overdue decimal.Decimal) {
	bm.outstanding.Record(ctx, cents(outstanding))
	bm.overdue.Record(ctx, cents(overdue))
}

// StartPeriodicCollection samples receivables now and then every interval
// until Stop or ctx is done. Only the first call starts the loop.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultReceivablesInterval
	}
	bm.start.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				bm.sampleReceivables(ctx)
				select {
				case <-bm.done:
					return
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	})
}

func (bm *BusinessMetrics) sampleReceivables(ctx context.Context) {
	if bm.receivables == nil {
		return
	}
	outstanding, overdue, err := bm.receivables.Receivables(ctx)
	if err != nil {
		bm.logger.Warn("Receivables sample failed", zap.Error(err))
		return
	}
	bm.RecordReceivables(ctx, outstanding, overdue)
}

// Stop ends periodic collection
func (bm *BusinessMetrics) Stop() {
	bm.stop.Do(func() { close(bm.done) })
}
