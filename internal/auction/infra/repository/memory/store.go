package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/google/uuid"
)

// Store keeps products and bids in memory with the same transactional contract as the
// postgres store: WithinTx buffers writes and applies them on success only, and
// GetForUpdate holds a per-product lock until the transaction ends.
type Store struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*domain.Product
	bids     map[uuid.UUID][]*domain.Bid
	locks    map[uuid.UUID]chan struct{}
}

func NewStore() *Store {
	return &Store{
		products: make(map[uuid.UUID]*domain.Product),
		bids:     make(map[uuid.UUID][]*domain.Bid),
		locks:    make(map[uuid.UUID]chan struct{}),
	}
}

// Repositories returns repositories that write straight to the store.
func (s *Store) Repositories() domain.Repositories {
	return domain.Repositories{
		Products: &productRepo{s: s},
		Bids:     &bidRepo{s: s},
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	tx := &txState{
		s:        s,
		locked:   make(map[uuid.UUID]chan struct{}),
		products: make(map[uuid.UUID]*domain.Product),
		created:  make(map[uuid.UUID]bool),
	}
	defer tx.release()

	if err := fn(ctx, domain.Repositories{
		Products: &productRepo{s: s, tx: tx},
		Bids:     &bidRepo{s: s, tx: tx},
	}); err != nil {
		return err
	}
	return tx.commit()
}

func (s *Store) productLock(id uuid.UUID) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[id] = l
	}
	return l
}

// txState holds the writes of one transaction until commit.
type txState struct {
	s        *Store
	locked   map[uuid.UUID]chan struct{}
	products map[uuid.UUID]*domain.Product
	created  map[uuid.UUID]bool
	bids     []*domain.Bid
}

func (tx *txState) lock(ctx context.Context, id uuid.UUID) error {
	if _, held := tx.locked[id]; held {
		return nil
	}
	l := tx.s.productLock(id)
	select {
	case l <- struct{}{}:
		tx.locked[id] = l
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lock product %s: %w", id, ctx.Err())
	}
}

func (tx *txState) release() {
	for id, l := range tx.locked {
		<-l
		delete(tx.locked, id)
	}
}

func (tx *txState) commit() error {
	s := tx.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range tx.bids {
		if _, ok := s.products[b.ProductID]; !ok && !tx.created[b.ProductID] {
			return fmt.Errorf("commit bid %s: %w", b.ID, domain.ErrProductNotFound)
		}
		if hasPrice(s.bids[b.ProductID], b) {
			return fmt.Errorf("%w: bid of %s on product %s already exists", domain.ErrConflict, b.Price, b.ProductID)
		}
	}
	for id := range tx.created {
		if _, ok := s.products[id]; ok {
			return fmt.Errorf("%w: product %s already exists", domain.ErrConflict, id)
		}
	}

	for id, p := range tx.products {
		s.products[id] = p.Clone()
	}
	for _, b := range tx.bids {
		cp := *b
		s.bids[b.ProductID] = append(s.bids[b.ProductID], &cp)
	}
	return nil
}

func hasPrice(bids []*domain.Bid, b *domain.Bid) bool {
	for _, existing := range bids {
		if existing.Price.Equal(b.Price) {
			return true
		}
	}
	return false
}

type productRepo struct {
	s  *Store
	tx *txState
}

func (r *productRepo) Create(_ context.Context, p *domain.Product) error {
	if r.tx != nil {
		if _, ok := r.tx.products[p.ID]; ok {
			return fmt.Errorf("%w: product %s already exists", domain.ErrConflict, p.ID)
		}
		r.tx.products[p.ID] = p.Clone()
		r.tx.created[p.ID] = true
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; ok {
		return fmt.Errorf("%w: product %s already exists", domain.ErrConflict, p.ID)
	}
	r.s.products[p.ID] = p.Clone()
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	if r.tx != nil {
		if p, ok := r.tx.products[id]; ok {
			return p.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return p.Clone(), nil
}

// GetForUpdate outside a transaction is a plain read.
func (r *productRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if r.tx != nil {
		if err := r.tx.lock(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

func (r *productRepo) Save(ctx context.Context, p *domain.Product) error {
	if r.tx != nil {
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
		r.tx.products[p.ID] = p.Clone()
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, p.ID)
	}
	r.s.products[p.ID] = p.Clone()
	return nil
}

func (r *productRepo) ListOpen(_ context.Context, asOf time.Time) ([]*domain.Product, error) {
	return r.list(func(p *domain.Product) bool {
		return p.Closure == nil && !p.BiddingEndTime.Before(asOf)
	}), nil
}

func (r *productRepo) ListClosed(_ context.Context, asOf time.Time) ([]*domain.Product, error) {
	return r.list(func(p *domain.Product) bool {
		return p.Closure != nil || !p.BiddingEndTime.After(asOf)
	}), nil
}

func (r *productRepo) ListExpiredUnsettled(_ context.Context, asOf time.Time) ([]*domain.Product, error) {
	return r.list(func(p *domain.Product) bool {
		return p.Closure == nil && !p.BiddingEndTime.After(asOf)
	}), nil
}

// list returns committed products only, ordered like the postgres store.
func (r *productRepo) list(keep func(*domain.Product) bool) []*domain.Product {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Product
	for _, p := range r.s.products {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

type bidRepo struct {
	s  *Store
	tx *txState
}

func (r *bidRepo) Save(_ context.Context, bid *domain.Bid) error {
	if r.tx != nil {
		visible := append(r.committed(bid.ProductID), r.pending(bid.ProductID)...)
		if hasPrice(visible, bid) {
			return fmt.Errorf("%w: bid of %s on product %s already exists", domain.ErrConflict, bid.Price, bid.ProductID)
		}
		cp := *bid
		r.tx.bids = append(r.tx.bids, &cp)
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[bid.ProductID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, bid.ProductID)
	}
	if hasPrice(r.s.bids[bid.ProductID], bid) {
		return fmt.Errorf("%w: bid of %s on product %s already exists", domain.ErrConflict, bid.Price, bid.ProductID)
	}
	cp := *bid
	r.s.bids[bid.ProductID] = append(r.s.bids[bid.ProductID], &cp)
	return nil
}

func (r *bidRepo) GetHighestBid(_ context.Context, productID uuid.UUID) (*domain.Bid, error) {
	best := domain.HighestOf(append(r.committed(productID), r.pending(productID)...))
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (r *bidRepo) GetBidsByProductID(_ context.Context, productID uuid.UUID) ([]*domain.Bid, error) {
	bids := append(r.committed(productID), r.pending(productID)...)
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
	out := make([]*domain.Bid, len(bids))
	for i, b := range bids {
		cp := *b
		out[i] = &cp
	}
	return out, nil
}

func (r *bidRepo) committed(productID uuid.UUID) []*domain.Bid {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]*domain.Bid(nil), r.s.bids[productID]...)
}

func (r *bidRepo) pending(productID uuid.UUID) []*domain.Bid {
	if r.tx == nil {
		return nil
	}
	var out []*domain.Bid
	for _, b := range r.tx.bids {
		if b.ProductID == productID {
			out = append(out, b)
		}
	}
	return out
}
