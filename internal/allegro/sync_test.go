package allegro

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/monmat/order-manager/internal/order"
	"github.com/monmat/order-manager/internal/repository"
)

type fakeTokenSource struct {
	token string
	err   error
}

func (f *fakeTokenSource) GetAccessToken(ctx context.Context) (string, error) {
	return f.token, f.err
}

type fakeAPI struct {
	pages     [][]CheckoutForm
	fetchErr  error
	lookupErr map[string]error
	offsets   []int
}

func (f *fakeAPI) FetchReadyOrders(ctx context.Context, token string, limit, offset int) (*CheckoutFormsResponse, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	f.offsets = append(f.offsets, offset)
	page := offset / limit
	if page >= len(f.pages) {
		return &CheckoutFormsResponse{}, nil
	}
	return &CheckoutFormsResponse{CheckoutForms: f.pages[page]}, nil
}

func (f *fakeAPI) FetchOfferDetails(ctx context.Context, token, offerID string) (*OfferDetails, error) {
	if err := f.lookupErr[offerID]; err != nil {
		return nil, err
	}
	return &OfferDetails{Category: &Category{ID: "cat"}}, nil
}

type fakeCreator struct {
	mu       sync.Mutex
	created  []string
	failFor  map[string]error
	existing map[string]bool
}

func (f *fakeCreator) CreateOrder(ctx context.Context, cmd *order.CreateOrderCommand) (*repository.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[cmd.ExternalOrderID]; err != nil {
		return nil, err
	}
	if f.existing[cmd.ExternalOrderID] {
		return nil, order.ErrDuplicateExternalID
	}
	f.created = append(f.created, cmd.ExternalOrderID)
	externalID := cmd.ExternalOrderID
	return &repository.Order{ExternalOrderID: &externalID, CustomID: "2504/00001"}, nil
}

func newTestSyncer(auth TokenSource, api API, creator OrderCreator) *Syncer {
	return NewSyncer(auth, api, creator, newTestMapper(), SyncerConfig{
		Interval: time.Minute,
		PageSize: 2,
		MaxPages: 3,
	}, zap.NewNop())
}

func form(id string) CheckoutForm {
	return CheckoutForm{ID: id, Buyer: &Buyer{Email: id + "@example.com"}}
}

func TestSyncOnce_ProcessesOldestFirst(t *testing.T) {
	// API returns newest first across two full pages plus a short one.
	api := &fakeAPI{pages: [][]CheckoutForm{
		{form("e"), form("d")},
		{form("c"), form("b")},
		{form("a")},
	}}
	creator := &fakeCreator{}
	s := newTestSyncer(&fakeTokenSource{token: "tok"}, api, creator)

	s.SyncOnce(context.Background())

	assert.Equal(t, []int{0, 2, 4}, api.offsets)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, creator.created)
}

func TestSyncOnce_StopsOnShortPage(t *testing.T) {
	api := &fakeAPI{pages: [][]CheckoutForm{{form("b")}}}
	creator := &fakeCreator{}
	s := newTestSyncer(&fakeTokenSource{token: "tok"}, api, creator)

	s.SyncOnce(context.Background())

	assert.Equal(t, []int{0}, api.offsets)
	assert.Equal(t, []string{"b"}, creator.created)
}

func TestSyncOnce_AbortsWithoutToken(t *testing.T) {
	api := &fakeAPI{pages: [][]CheckoutForm{{form("x")}}}
	creator := &fakeCreator{}
	s := newTestSyncer(&fakeTokenSource{err: errors.New("no token")}, api, creator)

	s.SyncOnce(context.Background())

	assert.Empty(t, api.offsets)
	assert.Empty(t, creator.created)
}

func TestSyncOnce_AbortsOnFetchFailure(t *testing.T) {
	api := &fakeAPI{fetchErr: errors.New("marketplace down")}
	creator := &fakeCreator{}
	s := newTestSyncer(&fakeTokenSource{token: "tok"}, api, creator)

	s.SyncOnce(context.Background())

	assert.Empty(t, creator.created)
}

func TestSyncOnce_DuplicatesSkippedRestProcessed(t *testing.T) {
	api := &fakeAPI{pages: [][]CheckoutForm{{form("c"), form("b")}, {form("a")}}}
	creator := &fakeCreator{existing: map[string]bool{"b": true}}
	s := newTestSyncer(&fakeTokenSource{token: "tok"}, api, creator)

	s.SyncOnce(context.Background())

	assert.Equal(t, []string{"a", "c"}, creator.created)
}

func TestSyncOnce_PerOrderFailureDoesNotAbortBatch(t *testing.T) {
	api := &fakeAPI{pages: [][]CheckoutForm{{form("c"), form("b")}, {form("a")}}}
	creator := &fakeCreator{failFor: map[string]error{"b": errors.New("store failure")}}
	s := newTestSyncer(&fakeTokenSource{token: "tok"}, api, creator)

	s.SyncOnce(context.Background())

	assert.Equal(t, []string{"a", "c"}, creator.created)
}

func TestSyncOnce_Rerun_IsIdempotent(t *testing.T) {
	api := &fakeAPI{pages: [][]CheckoutForm{{form("b"), form("a")}}}
	creator := &fakeCreator{existing: map[string]bool{}}
	s := newTestSyncer(&fakeTokenSource{token: "tok"}, api, creator)

	s.SyncOnce(context.Background())
	require.Equal(t, []string{"a", "b"}, creator.created)

	// The same page set again: everything is now a duplicate.
	for _, id := range creator.created {
		creator.existing[id] = true
	}
	s.SyncOnce(context.Background())

	assert.Equal(t, []string{"a", "b"}, creator.created)
}

func TestSyncOnce_OverlappingRunSkipped(t *testing.T) {
	api := &fakeAPI{pages: [][]CheckoutForm{{form("a")}}}
	creator := &fakeCreator{}
	s := newTestSyncer(&fakeTokenSource{token: "tok"}, api, creator)

	s.running.Lock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.SyncOnce(context.Background())
	}()
	<-done
	s.running.Unlock()

	assert.Empty(t, creator.created)
}
