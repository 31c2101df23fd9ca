package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/application"
	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/auction/infra/repository/memory"
	userdomain "github.com/cristianortiz/auctionhouse/internal/user/domain"
	usermemory "github.com/cristianortiz/auctionhouse/internal/user/infra/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// tickingClock moves forward on every read, so each transaction sees its own instant.
type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type fixture struct {
	svc    application.AuctionService
	store  *memory.Store
	clock  *fixedClock
	pub    *MockPublisher
	admin  userdomain.Principal
	other  userdomain.Principal
	alice  userdomain.Principal
	bob    userdomain.Principal
	policy domain.BidPolicy
}

func newFixture(t *testing.T, opts ...func(*application.Deps)) *fixture {
	t.Helper()
	f := &fixture{
		store:  memory.NewStore(),
		clock:  &fixedClock{now: t0},
		pub:    new(MockPublisher),
		admin:  userdomain.Principal{ID: uuid.New(), Role: userdomain.RoleAdmin},
		other:  userdomain.Principal{ID: uuid.New(), Role: userdomain.RoleAdmin},
		alice:  userdomain.Principal{ID: uuid.New(), Role: userdomain.RoleUser},
		bob:    userdomain.Principal{ID: uuid.New(), Role: userdomain.RoleUser},
		policy: domain.DefaultBidPolicy(),
	}
	users := usermemory.NewDirectory(
		userdomain.User{ID: f.admin.ID, Role: userdomain.RoleAdmin, FirstName: "Ada", LastName: "Admin"},
		userdomain.User{ID: f.other.ID, Role: userdomain.RoleAdmin, FirstName: "Otto", LastName: "Other"},
		userdomain.User{ID: f.alice.ID, Role: userdomain.RoleUser, FirstName: "Alice", LastName: "A"},
		userdomain.User{ID: f.bob.ID, Role: userdomain.RoleUser, FirstName: "Bob", LastName: "B"},
	)
	deps := application.Deps{
		Repos:      f.store.Repositories(),
		Transactor: f.store,
		Users:      users,
		Policy:     f.policy,
		Clock:      f.clock,
		Publisher:  f.pub,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	f.svc = application.NewAuctionService(deps)
	// events are asserted where they matter
	f.pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	return f
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func (f *fixture) createProduct(t *testing.T, start string, end time.Time) *application.ProductStateDTO {
	t.Helper()
	state, err := f.svc.CreateProduct(context.Background(), application.CreateProductDTO{
		Owner:          f.admin,
		Name:           "Lamp",
		Description:    "Brass desk lamp",
		StartingPrice:  dec(start),
		BiddingEndTime: &end,
	})
	require.NoError(t, err)
	return state
}

func (f *fixture) bid(who userdomain.Principal, productID uuid.UUID, price string) (*domain.Bid, error) {
	return f.svc.PlaceBid(context.Background(), application.PlaceBidDTO{
		ProductID: productID,
		Bidder:    who,
		Price:     dec(price),
	})
}

func publishedOf[T domain.Event](m *MockPublisher) []T {
	var out []T
	for _, c := range m.Calls {
		if ev, ok := c.Arguments.Get(1).(T); ok {
			out = append(out, ev)
		}
	}
	return out
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	end := t0.Add(time.Hour)
	ghost := userdomain.Principal{ID: uuid.New(), Role: userdomain.RoleAdmin}

	tests := []struct {
		name  string
		owner userdomain.Principal
		price *decimal.Decimal
		end   time.Time
		want  domain.Kind
	}{
		{"admin", f.admin, dec("100"), end, ""},
		{"bidder role", f.alice, dec("100"), end, domain.KindUnauthorized},
		{"unknown admin", ghost, dec("100"), end, domain.KindNotFound},
		{"zero price", f.admin, dec("0"), end, domain.KindInvalidInput},
		{"deadline passed", f.admin, dec("100"), t0.Add(-time.Second), domain.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := tt.end
			state, err := f.svc.CreateProduct(context.Background(), application.CreateProductDTO{
				Owner:          tt.owner,
				Name:           "Lamp",
				Description:    "Brass desk lamp",
				StartingPrice:  tt.price,
				BiddingEndTime: &end,
			})
			if tt.want != "" {
				assert.Equal(t, tt.want, domain.KindOf(err), "%v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.StatusAvailable, state.Status)
			assert.Equal(t, domain.StateOpen, state.State)
			assert.Equal(t, "Ada Admin", state.OwnerName)
			assert.True(t, state.CurrentPrice.Equal(decimal.NewFromInt(100)))
		})
	}
}

func TestScenario_BidsAndManualClosure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "100", t0.Add(time.Hour))

	f.clock.Set(t0.Add(10 * time.Minute))
	_, err := f.bid(f.alice, p.ID, "100")
	assert.ErrorIs(t, err, domain.ErrBidTooLow)

	winning, err := f.bid(f.bob, p.ID, "150")
	require.NoError(t, err)
	state, err := f.svc.GetProductState(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, state.CurrentPrice.Equal(decimal.NewFromInt(150)))
	assert.Equal(t, winning.ID, state.HighestBid.ID)

	f.clock.Set(t0.Add(20 * time.Minute))
	_, err = f.bid(f.alice, p.ID, "120")
	assert.ErrorIs(t, err, domain.ErrBidTooLow)

	closedAt := t0.Add(30 * time.Minute)
	f.clock.Set(closedAt)
	closed, err := f.svc.CloseAuction(ctx, application.CloseAuctionDTO{ProductID: p.ID, Actor: f.admin})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSold, closed.Status)
	assert.Equal(t, domain.StateClosed, closed.State)
	assert.Equal(t, closedAt, closed.EffectiveEndTime)
	assert.Equal(t, t0.Add(time.Hour), closed.BiddingEndTime)
	require.NotNil(t, closed.Closure)
	assert.Equal(t, domain.ReasonManuallyClosed, closed.Closure.Reason)
	assert.True(t, closed.CurrentPrice.Equal(decimal.NewFromInt(150)))

	_, err = f.bid(f.alice, p.ID, "1000")
	assert.ErrorIs(t, err, domain.ErrAuctionClosed)

	sold, err := f.svc.ListSold(ctx)
	require.NoError(t, err)
	require.Len(t, sold, 1)
	assert.True(t, sold[0].FinalPrice.Equal(decimal.NewFromInt(150)))
	require.NotNil(t, sold[0].WinningBid.UserID)
	assert.Equal(t, f.bob.ID, *sold[0].WinningBid.UserID)
	assert.Equal(t, closedAt, sold[0].SoldAt)

	open, err := f.svc.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	placed := publishedOf[domain.BidPlaced](f.pub)
	require.Len(t, placed, 1)
	assert.Equal(t, winning.ID, placed[0].BidID)
	closures := publishedOf[domain.AuctionClosed](f.pub)
	require.Len(t, closures, 1)
	assert.Equal(t, f.bob.ID, *closures[0].WinnerID)
}

func TestDeadlineWithoutBids_ListedAsSold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := t0.Add(time.Hour)
	p := f.createProduct(t, "100", end)

	open, err := f.svc.ListOpen(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "Ada Admin", open[0].OwnerName)

	// still open exactly at the deadline
	f.clock.Set(end)
	open, err = f.svc.ListOpen(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	f.clock.Set(end.Add(time.Second))
	open, err = f.svc.ListOpen(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	sold, err := f.svc.ListSold(ctx)
	require.NoError(t, err)
	require.Len(t, sold, 1)
	assert.Equal(t, p.ID, sold[0].ID)
	assert.True(t, sold[0].FinalPrice.Equal(decimal.NewFromInt(100)))
	assert.Nil(t, sold[0].WinningBid.UserID)
	assert.Equal(t, domain.ReasonDeadlineExpired, sold[0].ClosureReason)
	assert.Equal(t, end, sold[0].SoldAt)

	// reads do not write
	stored, err := f.store.Repositories().Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Closure)
	assert.Equal(t, domain.StatusAvailable, stored.Status)
}

func TestPlaceBid_AfterDeadlineSettles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	end := t0.Add(time.Hour)
	p := f.createProduct(t, "100", end)

	f.clock.Set(end.Add(time.Minute))
	_, err := f.bid(f.alice, p.ID, "1000")
	require.ErrorIs(t, err, domain.ErrAuctionClosed)

	stored, err := f.store.Repositories().Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Closure)
	assert.Equal(t, domain.ReasonDeadlineExpired, stored.Closure.Reason)
	assert.Equal(t, end, stored.Closure.At)
	assert.Equal(t, domain.StatusSold, stored.Status)

	_, err = f.bid(f.bob, p.ID, "2000")
	require.ErrorIs(t, err, domain.ErrAuctionClosed)
	assert.Len(t, publishedOf[domain.AuctionClosed](f.pub), 1, "settled once")

	bids, err := f.svc.ListBids(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, bids)
}

func TestPlaceBid_Rejections(t *testing.T) {
	f := newFixture(t)
	p := f.createProduct(t, "100", t0.Add(time.Hour))
	ghost := userdomain.Principal{ID: uuid.New(), Role: userdomain.RoleUser}

	tests := []struct {
		name    string
		who     userdomain.Principal
		product uuid.UUID
		price   *decimal.Decimal
		want    error
	}{
		{"admin cannot bid", f.admin, p.ID, dec("200"), domain.ErrUnauthorized},
		{"unknown bidder", ghost, p.ID, dec("200"), domain.ErrUserNotFound},
		{"unknown product", f.alice, uuid.New(), dec("200"), domain.ErrProductNotFound},
		{"unknown product before bad price", f.alice, uuid.New(), nil, domain.ErrProductNotFound},
		{"missing price", f.alice, p.ID, nil, domain.ErrInvalidInput},
		{"three decimals", f.alice, p.ID, dec("150.001"), domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.PlaceBid(context.Background(), application.PlaceBidDTO{
				ProductID: tt.product,
				Bidder:    tt.who,
				Price:     tt.price,
			})
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, publishedOf[domain.BidPlaced](f.pub))
}

func TestCloseAuction_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "100", t0.Add(time.Hour))

	_, err := f.svc.CloseAuction(ctx, application.CloseAuctionDTO{ProductID: p.ID, Actor: f.other})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.svc.CloseAuction(ctx, application.CloseAuctionDTO{ProductID: p.ID, Actor: f.alice})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = f.svc.CloseAuction(ctx, application.CloseAuctionDTO{ProductID: uuid.New(), Actor: f.admin})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	f.clock.Set(t0.Add(time.Minute))
	first, err := f.svc.CloseAuction(ctx, application.CloseAuctionDTO{ProductID: p.ID, Actor: f.admin})
	require.NoError(t, err)

	f.clock.Set(t0.Add(2 * time.Minute))
	again, err := f.svc.CloseAuction(ctx, application.CloseAuctionDTO{ProductID: p.ID, Actor: f.admin})
	require.NoError(t, err)
	assert.Equal(t, first.Closure, again.Closure)
	assert.Len(t, publishedOf[domain.AuctionClosed](f.pub), 1)
	assert.Nil(t, again.HighestBid)
	assert.True(t, again.CurrentPrice.Equal(decimal.NewFromInt(100)))
}

func TestPlaceBid_ConcurrentBidsStrictlyIncrease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createProduct(t, "100", t0.Add(time.Hour))

	const workers = 40
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := f.alice
			if i%2 == 1 {
				who = f.bob
			}
			// several workers share a price so that equal offers race
			_, err := f.bid(who, p.ID, fmt.Sprintf("%d", 101+i/2))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	accepted := 0
	for err := range results {
		if err == nil {
			accepted++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrBidTooLow) || errors.Is(err, domain.ErrConflict), "%v", err)
	}

	bids, err := f.svc.ListBids(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, bids, accepted)
	require.NotEmpty(t, bids)
	for i := 1; i < len(bids); i++ {
		assert.True(t, bids[i].Price.GreaterThan(bids[i-1].Price), "bid %d: %s after %s", i, bids[i].Price, bids[i-1].Price)
	}
}

func TestCloseAuction_ConcurrentWithBids(t *testing.T) {
	clock := &tickingClock{now: t0}
	f := newFixture(t, func(d *application.Deps) { d.Clock = clock })
	ctx := context.Background()
	p := f.createProduct(t, "100", t0.Add(time.Hour))

	const workers = 40
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted []*domain.Bid
		closeErr error
	)
	start := make(chan struct{})
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			who := f.alice
			if i%2 == 1 {
				who = f.bob
			}
			bid, err := f.bid(who, p.ID, fmt.Sprintf("%d", 101+i))
			if err == nil {
				mu.Lock()
				accepted = append(accepted, bid)
				mu.Unlock()
			}
			results <- err
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		_, closeErr = f.svc.CloseAuction(ctx, application.CloseAuctionDTO{ProductID: p.ID, Actor: f.admin})
	}()
	close(start)
	wg.Wait()
	close(results)
	require.NoError(t, closeErr)

	for err := range results {
		if err == nil {
			continue
		}
		assert.True(t,
			errors.Is(err, domain.ErrAuctionClosed) || errors.Is(err, domain.ErrBidTooLow) || errors.Is(err, domain.ErrConflict),
			"%v", err)
	}

	state, err := f.svc.GetProductState(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, state.Closure)
	assert.Equal(t, domain.ReasonManuallyClosed, state.Closure.Reason)
	for _, b := range accepted {
		assert.False(t, b.CreatedAt.After(state.Closure.At), "bid %s at %s after closure at %s", b.ID, b.CreatedAt, state.Closure.At)
	}

	bids, err := f.svc.ListBids(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, bids, len(accepted))

	_, err = f.bid(f.alice, p.ID, "10000")
	assert.ErrorIs(t, err, domain.ErrAuctionClosed)
}

func TestSettleExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	early := f.createProduct(t, "100", t0.Add(time.Hour))
	late := f.createProduct(t, "50", t0.Add(3*time.Hour))

	f.clock.Set(t0.Add(10 * time.Minute))
	_, err := f.bid(f.alice, early.ID, "110")
	require.NoError(t, err)

	f.clock.Set(t0.Add(2 * time.Hour))
	n, err := f.svc.SettleExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.svc.SettleExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	closures := publishedOf[domain.AuctionClosed](f.pub)
	require.Len(t, closures, 1)
	assert.Equal(t, early.ID, closures[0].ProductID)
	assert.True(t, closures[0].FinalPrice.Equal(decimal.NewFromInt(110)))

	state, err := f.svc.GetProductState(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateOpen, state.State)
}

func TestPublishFailureDoesNotFailBid(t *testing.T) {
	store := memory.NewStore()
	alice := userdomain.User{ID: uuid.New(), Role: userdomain.RoleUser}
	admin := userdomain.User{ID: uuid.New(), Role: userdomain.RoleAdmin}
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.AnythingOfType("domain.BidPlaced")).Return(errors.New("broker down")).Once()

	svc := application.NewAuctionService(application.Deps{
		Repos:      store.Repositories(),
		Transactor: store,
		Users:      usermemory.NewDirectory(alice, admin),
		Policy:     domain.DefaultBidPolicy(),
		Clock:      &fixedClock{now: t0},
		Publisher:  pub,
	})
	end := t0.Add(time.Hour)
	p, err := svc.CreateProduct(context.Background(), application.CreateProductDTO{
		Owner: userdomain.Principal{ID: admin.ID, Role: admin.Role}, Name: "Vase", Description: "Blue",
		StartingPrice: dec("10"), BiddingEndTime: &end,
	})
	require.NoError(t, err)

	bid, err := svc.PlaceBid(context.Background(), application.PlaceBidDTO{
		ProductID: p.ID, Bidder: userdomain.Principal{ID: alice.ID, Role: alice.Role}, Price: dec("11"),
	})
	require.NoError(t, err)
	assert.NotNil(t, bid)
	pub.AssertExpectations(t)
}

type brokenTransactor struct{}

func (brokenTransactor) WithinTx(context.Context, func(context.Context, domain.Repositories) error) error {
	return errors.New("connection refused")
}

func TestPlaceBid_StorageFailureIsInternal(t *testing.T) {
	store := memory.NewStore()
	alice := userdomain.User{ID: uuid.New(), Role: userdomain.RoleUser}
	svc := application.NewAuctionService(application.Deps{
		Repos:      store.Repositories(),
		Transactor: brokenTransactor{},
		Users:      usermemory.NewDirectory(alice),
		Policy:     domain.DefaultBidPolicy(),
		Clock:      &fixedClock{now: t0},
	})

	_, err := svc.PlaceBid(context.Background(), application.PlaceBidDTO{
		ProductID: uuid.New(), Bidder: userdomain.Principal{ID: alice.ID, Role: alice.Role}, Price: dec("11"),
	})
	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
}

func TestListBids_UnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListBids(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestAllowBidAtStartingPricePolicy(t *testing.T) {
	store := memory.NewStore()
	alice := userdomain.User{ID: uuid.New(), Role: userdomain.RoleUser}
	admin := userdomain.User{ID: uuid.New(), Role: userdomain.RoleAdmin}
	svc := application.NewAuctionService(application.Deps{
		Repos:      store.Repositories(),
		Transactor: store,
		Users:      usermemory.NewDirectory(alice, admin),
		Policy:     domain.BidPolicy{AllowBidAtStartingPrice: true, DeadlineInclusive: true},
		Clock:      &fixedClock{now: t0},
	})
	end := t0.Add(time.Hour)
	p, err := svc.CreateProduct(context.Background(), application.CreateProductDTO{
		Owner: userdomain.Principal{ID: admin.ID, Role: admin.Role}, Name: "Vase", Description: "Blue",
		StartingPrice: dec("10"), BiddingEndTime: &end,
	})
	require.NoError(t, err)

	bidder := userdomain.Principal{ID: alice.ID, Role: alice.Role}
	_, err = svc.PlaceBid(context.Background(), application.PlaceBidDTO{ProductID: p.ID, Bidder: bidder, Price: dec("10")})
	require.NoError(t, err)
	_, err = svc.PlaceBid(context.Background(), application.PlaceBidDTO{ProductID: p.ID, Bidder: bidder, Price: dec("10")})
	assert.ErrorIs(t, err, domain.ErrBidTooLow)
}
