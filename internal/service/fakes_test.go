package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/entity"
	"github.com/vatsaPatel0097/oddo-ecofinds-project/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres adapters. Every
// repository view shares one mutex.
type memStore struct {
	mu       sync.Mutex
	clock    time.Time
	accounts map[string]*entity.Account
	listings map[string]*entity.Listing
	images   map[string][]entity.ListingImage
	cart     map[string]*entity.CartEntry
	orders   []*entity.Order
	outbox   []entity.OutboxRecord

	// conflicts makes the next RunInTx calls fail as retryable.
	conflicts int
	txCalls   int
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		accounts: map[string]*entity.Account{},
		listings: map[string]*entity.Listing{},
		images:   map[string][]entity.ListingImage{},
		cart:     map[string]*entity.CartEntry{},
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func cloneListing(l *entity.Listing) *entity.Listing {
	c := *l
	if l.Quantity != nil {
		q := *l.Quantity
		c.Quantity = &q
	}
	c.Images = append([]entity.ListingImage(nil), l.Images...)
	return &c
}

func cloneOrder(o *entity.Order) *entity.Order {
	c := *o
	c.Lines = append([]entity.OrderLine(nil), o.Lines...)
	return &c
}

func intp(n int) *int { return &n }

// putListing seeds a listing directly.
func (m *memStore) putListing(l entity.Listing) *entity.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.Slug == "" {
		l.Slug = l.ID
	}
	l.CreatedAt = m.tick()
	m.listings[l.ID] = cloneListing(&l)
	return &l
}

func (m *memStore) listing(id string) *entity.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil
	}
	return cloneListing(l)
}

func (m *memStore) cartSize(accountID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.cart {
		if e.AccountID == accountID {
			n++
		}
	}
	return n
}

// --- accounts ---

type memAccounts struct{ *memStore }

func (m memAccounts) Create(_ context.Context, a *entity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.accounts {
		if other.Email == a.Email || other.Username == a.Username {
			return repository.ErrDuplicate
		}
	}
	a.CreatedAt = m.tick()
	c := *a
	m.accounts[a.ID] = &c
	return nil
}

func (m memAccounts) Update(_ context.Context, a *entity.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; !ok {
		return entity.ErrNotFound
	}
	c := *a
	m.accounts[a.ID] = &c
	return nil
}

func (m memAccounts) FindByID(_ context.Context, id string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, entity.ErrNotFound
	}
	c := *a
	return &c, nil
}

func (m memAccounts) FindByEmail(_ context.Context, email string) (*entity.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email {
			c := *a
			return &c, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (m memAccounts) EmailTaken(_ context.Context, email, exceptID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Email == email && a.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m memAccounts) UsernameTaken(_ context.Context, username, exceptID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.Username == username && a.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

// --- listings ---

type memListings struct{ *memStore }

func (m memListings) Create(_ context.Context, l *entity.Listing, images []entity.ListingImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.listings {
		if other.Slug == l.Slug {
			return repository.ErrDuplicate
		}
	}
	l.CreatedAt = m.tick()
	l.UpdatedAt = l.CreatedAt
	m.listings[l.ID] = cloneListing(l)
	m.addImages(l.ID, images)
	return nil
}

func (m memListings) Update(_ context.Context, l *entity.Listing, images []entity.ListingImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[l.ID]; !ok {
		return entity.ErrNotFound
	}
	l.UpdatedAt = m.tick()
	m.listings[l.ID] = cloneListing(l)
	m.addImages(l.ID, images)
	return nil
}

// addImages expects m.mu to be held.
func (m memListings) addImages(listingID string, images []entity.ListingImage) {
	for i := range images {
		images[i].CreatedAt = m.tick()
		m.images[listingID] = append(m.images[listingID], images[i])
	}
}

// failingListings rejects every row write.
type failingListings struct {
	memListings
	err error
}

func (f failingListings) Create(context.Context, *entity.Listing, []entity.ListingImage) error {
	return f.err
}

func (f failingListings) Update(context.Context, *entity.Listing, []entity.ListingImage) error {
	return f.err
}

// racingListings lets another writer claim a slug right after SlugExists
// reported it free, the first `races` times.
type racingListings struct {
	memListings
	races *int
}

func (r racingListings) SlugExists(ctx context.Context, slug string) (bool, error) {
	taken, err := r.memListings.SlugExists(ctx, slug)
	if err != nil || taken || *r.races == 0 {
		return taken, err
	}
	*r.races--
	rival := &entity.Listing{ID: "rival-" + slug, OwnerID: "rival", Slug: slug, IsAvailable: true}
	return false, r.memListings.Create(ctx, rival, nil)
}

func (m memListings) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.listings[id]; !ok {
		return entity.ErrNotFound
	}
	delete(m.listings, id)
	delete(m.images, id)
	for eid, e := range m.cart {
		if e.ListingID == id {
			delete(m.cart, eid)
		}
	}
	return nil
}

func (m memListings) find(match func(*entity.Listing) bool) (*entity.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.listings {
		if match(l) {
			c := cloneListing(l)
			c.Images = append([]entity.ListingImage(nil), m.images[l.ID]...)
			return c, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (m memListings) FindByID(_ context.Context, id string) (*entity.Listing, error) {
	return m.find(func(l *entity.Listing) bool { return l.ID == id })
}

func (m memListings) FindBySlug(_ context.Context, slug string) (*entity.Listing, error) {
	return m.find(func(l *entity.Listing) bool { return l.Slug == slug })
}

func (m memListings) SlugExists(_ context.Context, slug string) (bool, error) {
	_, err := m.find(func(l *entity.Listing) bool { return l.Slug == slug })
	return err == nil, nil
}

func (m memListings) Search(_ context.Context, f repository.ListingFilter, p repository.Page) (repository.PageResult[entity.Listing], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []entity.Listing
	for _, l := range m.listings {
		switch {
		case f.OnlyAvailable && !l.IsAvailable,
			f.InStockOnly && l.Quantity != nil && *l.Quantity == 0,
			f.Category != "" && l.Category != f.Category,
			f.OwnerID != "" && l.OwnerID != f.OwnerID:
			continue
		}
		if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" &&
			!strings.Contains(strings.ToLower(l.Title), q) && !strings.Contains(strings.ToLower(l.Description), q) {
			continue
		}
		matched = append(matched, *cloneListing(l))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	per := p.PerPage
	if per <= 0 {
		per = 12
	}
	pages := (len(matched) + per - 1) / per
	n := p.Number
	if n < 1 {
		n = 1
	}
	if pages > 0 && n > pages {
		n = pages
	}
	start := (n - 1) * per
	end := start + per
	if end > len(matched) {
		end = len(matched)
	}
	items := []entity.Listing{}
	if start < end {
		items = matched[start:end]
	}
	return repository.PageResult[entity.Listing]{Items: items, TotalCount: len(matched), TotalPages: pages, Page: n, PerPage: per}, nil
}

func (m memListings) Images(_ context.Context, listingID string) ([]entity.ListingImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.ListingImage(nil), m.images[listingID]...), nil
}

func (m memListings) Seed(ctx context.Context, listings []entity.Listing) error {
	m.mu.Lock()
	n := len(m.listings)
	m.mu.Unlock()
	if n > 0 {
		return nil
	}
	for i := range listings {
		if err := m.Create(ctx, &listings[i], nil); err != nil {
			return err
		}
	}
	return nil
}

// --- cart ---

type memCarts struct{ *memStore }

func (m memCarts) Lines(_ context.Context, accountID string) ([]entity.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lines []entity.CartLine
	for _, e := range m.cart {
		if e.AccountID != accountID {
			continue
		}
		line := entity.CartLine{CartEntry: *e}
		if l, ok := m.listings[e.ListingID]; ok {
			line.Title, line.Slug = l.Title, l.Slug
			line.Price.Decimal, line.Price.Valid = l.Price, true
			line.Quantity = cloneListing(l).Quantity
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].CreatedAt.After(lines[j].CreatedAt) })
	return lines, nil
}

func (m memCarts) FindByListing(_ context.Context, accountID, listingID string) (*entity.CartEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.cart {
		if e.AccountID == accountID && e.ListingID == listingID {
			c := *e
			return &c, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (m memCarts) FindByID(_ context.Context, accountID, entryID string) (*entity.CartEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cart[entryID]
	if !ok || e.AccountID != accountID {
		return nil, entity.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (m memCarts) Insert(_ context.Context, e *entity.CartEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.cart {
		if other.AccountID == e.AccountID && other.ListingID == e.ListingID {
			return fmt.Errorf("%w: cart_entries_account_id_listing_id_key", repository.ErrDuplicate)
		}
	}
	e.CreatedAt = m.tick()
	c := *e
	m.cart[e.ID] = &c
	return nil
}

func (m memCarts) UpdateQty(_ context.Context, entryID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cart[entryID]
	if !ok {
		return entity.ErrNotFound
	}
	e.Qty = qty
	return nil
}

func (m memCarts) Delete(_ context.Context, accountID, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cart[entryID]
	if !ok || e.AccountID != accountID {
		return entity.ErrNotFound
	}
	delete(m.cart, entryID)
	return nil
}

func (m memCarts) Count(_ context.Context, accountID string) (int, error) {
	return m.cartSize(accountID), nil
}

// addToCart seeds a cart entry directly.
func (m *memStore) addToCart(id, accountID, listingID string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cart[id] = &entity.CartEntry{ID: id, AccountID: accountID, ListingID: listingID, Qty: qty, CreatedAt: m.tick()}
}

// --- orders ---

type memOrders struct{ *memStore }

func (m memOrders) ListByAccount(_ context.Context, accountID string, limit int) ([]entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Order{}
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].AccountID == accountID {
			out = append(out, *cloneOrder(m.orders[i]))
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m memOrders) FindByID(_ context.Context, accountID, orderID string) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == orderID && o.AccountID == accountID {
			return cloneOrder(o), nil
		}
	}
	return nil, entity.ErrNotFound
}

// --- checkout unit of work ---

// memCheckout serializes transactions on the store mutex and applies the
// staged copy only when fn succeeds.
type memCheckout struct{ *memStore }

func (m memCheckout) RunInTx(ctx context.Context, fn func(ctx context.Context, tx repository.CheckoutTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCalls++
	if m.conflicts > 0 {
		m.conflicts--
		return fmt.Errorf("%w: deadlock detected", entity.ErrRetryable)
	}

	tx := &memTx{store: m.memStore, listings: map[string]*entity.Listing{}, cart: map[string]*entity.CartEntry{}}
	for id, l := range m.listings {
		tx.listings[id] = cloneListing(l)
	}
	for id, e := range m.cart {
		c := *e
		tx.cart[id] = &c
	}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	m.listings = tx.listings
	m.cart = tx.cart
	m.orders = append(m.orders, tx.orders...)
	m.outbox = append(m.outbox, tx.outbox...)
	return nil
}

type memTx struct {
	store    *memStore
	listings map[string]*entity.Listing
	cart     map[string]*entity.CartEntry
	orders   []*entity.Order
	outbox   []entity.OutboxRecord
}

func (t *memTx) CartEntries(_ context.Context, accountID string) ([]entity.CartEntry, error) {
	var out []entity.CartEntry
	for _, e := range t.cart {
		if e.AccountID == accountID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *memTx) LockListings(_ context.Context, ids []string) (map[string]*entity.Listing, error) {
	if !sort.StringsAreSorted(ids) {
		return nil, fmt.Errorf("listings locked out of order: %v", ids)
	}
	out := map[string]*entity.Listing{}
	for _, id := range ids {
		if l, ok := t.listings[id]; ok {
			out[id] = cloneListing(l)
		}
	}
	return out, nil
}

func (t *memTx) InsertOrder(_ context.Context, o *entity.Order) error {
	o.CreatedAt = t.store.tick()
	t.orders = append(t.orders, cloneOrder(o))
	return nil
}

func (t *memTx) SaveStock(_ context.Context, l *entity.Listing) error {
	cur, ok := t.listings[l.ID]
	if !ok {
		return entity.ErrNotFound
	}
	cur.Quantity = cloneListing(l).Quantity
	cur.IsAvailable = l.IsAvailable
	return nil
}

func (t *memTx) ClearCart(_ context.Context, accountID string) error {
	for id, e := range t.cart {
		if e.AccountID == accountID {
			delete(t.cart, id)
		}
	}
	return nil
}

func (t *memTx) Enqueue(_ context.Context, topic, key string, event entity.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	t.outbox = append(t.outbox, entity.OutboxRecord{
		ID:      int64(len(t.store.outbox) + len(t.outbox) + 1),
		EventID: fmt.Sprintf("evt-%s", key),
		Topic:   topic,
		Key:     key,
		Payload: payload,
	})
	return nil
}

// --- blobs ---

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	// failAt makes the n-th Put (1-based) fail.
	failAt int
	puts   int
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: map[string][]byte{}}
}

func (b *memBlobs) Put(_ context.Context, objectName, _ string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts++
	if b.puts == b.failAt {
		return "", errors.New("bucket unavailable")
	}
	b.objects[objectName] = buf.Bytes()
	return "https://blobs.test/" + objectName, nil
}

func (b *memBlobs) Delete(_ context.Context, objectName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, objectName)
	b.deleted = append(b.deleted, objectName)
	return nil
}

// --- recorder ---

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *outcomeRecorder) ObserveCheckout(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *outcomeRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.outcomes...)
}

// harness wires every service to one memStore.
type harness struct {
	store    *memStore
	blobs    *memBlobs
	recorder *outcomeRecorder
	carts    *CartService
	checkout *CheckoutService
	orders   *OrderService
	listings *ListingService
	accounts *AccountService
}

func newHarness(opts ...CheckoutOption) *harness {
	store := newMemStore()
	blobs := newMemBlobs()
	rec := &outcomeRecorder{}
	h := &harness{store: store, blobs: blobs, recorder: rec}
	h.carts = NewCartService(memCarts{store}, memListings{store})
	h.checkout = NewCheckoutService(memCheckout{store}, append([]CheckoutOption{WithRetries(3, 0), WithRecorder(rec)}, opts...)...)
	h.orders = NewOrderService(memOrders{store})
	h.listings = NewListingService(memListings{store}, blobs)
	h.accounts = NewAccountService(memAccounts{store}, blobs, h.listings, h.orders, h.carts)
	return h
}
