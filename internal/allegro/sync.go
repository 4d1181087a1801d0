package allegro

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/monmat/order-manager/internal/metrics"
	"github.com/monmat/order-manager/internal/order"
	"github.com/monmat/order-manager/internal/repository"
)

type TokenSource interface {
	GetAccessToken(ctx context.Context) (string, error)
}

type API interface {
	FetchReadyOrders(ctx context.Context, token string, limit, offset int) (*CheckoutFormsResponse, error)
	FetchOfferDetails(ctx context.Context, token, offerID string) (*OfferDetails, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, cmd *order.CreateOrderCommand) (*repository.Order, error)
}

type SyncerConfig struct {
	Interval time.Duration
	PageSize int
	MaxPages int
}

// Syncer pulls ready-to-process marketplace orders into the local store on a
// fixed interval. A tick that fires while the previous run is still going is
// skipped, never queued.
type Syncer struct {
	auth    TokenSource
	api     API
	orders  OrderCreator
	mapper  *Mapper
	config  SyncerConfig
	log     *zap.Logger
	running sync.Mutex
}

func NewSyncer(auth TokenSource, api API, orders OrderCreator, mapper *Mapper, config SyncerConfig, log *zap.Logger) *Syncer {
	return &Syncer{
		auth:   auth,
		api:    api,
		orders: orders,
		mapper: mapper,
		config: config,
		log:    log,
	}
}

// Run blocks until the context is cancelled, synchronizing once immediately
// and then on every tick.
func (s *Syncer) Run(ctx context.Context) {
	s.log.Info("starting order synchronization",
		zap.Duration("interval", s.config.Interval))

	s.SyncOnce(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.SyncOnce(ctx)
		case <-ctx.Done():
			s.log.Info("order synchronization stopped")
			return
		}
	}
}

// SyncOnce performs a single run. It returns immediately when another run
// is still in progress.
func (s *Syncer) SyncOnce(ctx context.Context) {
	if !s.running.TryLock() {
		metrics.SyncRunsSkippedTotal.Inc()
		s.log.Warn("previous synchronization run still in progress, skipping tick")
		return
	}
	defer s.running.Unlock()

	metrics.SyncRunsTotal.Inc()

	token, err := s.auth.GetAccessToken(ctx)
	if err != nil {
		metrics.SyncErrorsTotal.WithLabelValues("auth").Inc()
		s.log.Error("abort synchronization run, no access token", zap.Error(err))
		return
	}

	forms, err := s.fetchPages(ctx, token)
	if err != nil {
		metrics.SyncErrorsTotal.WithLabelValues("fetch").Inc()
		s.log.Error("abort synchronization run, page fetch failed", zap.Error(err))
		return
	}

	if len(forms) == 0 {
		s.log.Debug("no orders to sync")
		return
	}

	// The API returns newest first; reverse so custom ids are assigned in
	// purchase-time order.
	for i, j := 0, len(forms)-1; i < j; i, j = i+1, j-1 {
		forms[i], forms[j] = forms[j], forms[i]
	}

	s.log.Info("synchronizing orders, oldest first", zap.Int("count", len(forms)))

	for i := range forms {
		s.processOrder(ctx, &forms[i], token)
	}
}

func (s *Syncer) fetchPages(ctx context.Context, token string) ([]CheckoutForm, error) {
	var all []CheckoutForm

	for page := 0; page < s.config.MaxPages; page++ {
		offset := page * s.config.PageSize

		response, err := s.api.FetchReadyOrders(ctx, token, s.config.PageSize, offset)
		if err != nil {
			return nil, err
		}
		if response == nil || len(response.CheckoutForms) == 0 {
			s.log.Debug("no more orders", zap.Int("offset", offset))
			break
		}

		all = append(all, response.CheckoutForms...)
		s.log.Debug("fetched orders page",
			zap.Int("offset", offset),
			zap.Int("page_count", len(response.CheckoutForms)),
			zap.Int("total", len(all)))

		if len(response.CheckoutForms) < s.config.PageSize {
			break
		}
	}

	return all, nil
}

// processOrder maps and idempotently creates one order. Any failure is
// logged with the external id and never aborts the rest of the batch.
func (s *Syncer) processOrder(ctx context.Context, form *CheckoutForm, token string) {
	s.log.Debug("processing order", zap.String("external_id", form.ID))

	cmd := s.mapper.MapOrder(ctx, form, func(ctx context.Context, offerID string) (*OfferDetails, error) {
		return s.api.FetchOfferDetails(ctx, token, offerID)
	})

	created, err := s.orders.CreateOrder(ctx, cmd)
	switch {
	case err == nil:
		s.log.Info("synced new order",
			zap.String("external_id", form.ID),
			zap.String("custom_id", created.CustomID),
			zap.Time("bought_at", created.BoughtAt))
	case errors.Is(err, order.ErrDuplicateExternalID):
		metrics.OrdersSkippedDuplicateTotal.Inc()
		s.log.Debug("order already exists, skipping", zap.String("external_id", form.ID))
	default:
		metrics.SyncErrorsTotal.WithLabelValues("process").Inc()
		s.log.Error("failed to process order",
			zap.String("external_id", form.ID), zap.Error(err))
	}
}
