package services

import (
	"context"
	"sync"
	"time"

	"agrilink/internal/domain/catalog"
	"agrilink/internal/domain/connection"
	"agrilink/internal/domain/conversation"
	"agrilink/internal/domain/identity"
	"agrilink/internal/domain/notification"
	"agrilink/internal/domain/quote"
	"agrilink/internal/events"
	agrilink_errors "agrilink/pkg/errors"
	"agrilink/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The fakes below mirror the Postgres repositories' contracts: pair
// uniqueness on connections, conditional resolve/resign writes, and
// per-connection sequence assignment. All of them are safe for
// concurrent use so the race tests exercise the same guarantees the
// real constraints give.

type pairKey struct {
	producerID uuid.UUID
	buyerID    uuid.UUID
}

type fakeConnectionRepo struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*connection.Request
	pairs map[pairKey]uuid.UUID
	convs *fakeConversationRepo
}

func newFakeConnectionRepo(convs *fakeConversationRepo) *fakeConnectionRepo {
	return &fakeConnectionRepo{
		byID:  make(map[uuid.UUID]*connection.Request),
		pairs: make(map[pairKey]uuid.UUID),
		convs: convs,
	}
}

func (r *fakeConnectionRepo) Create(ctx context.Context, req *connection.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{req.ProducerID, req.BuyerID}
	if _, exists := r.pairs[key]; exists {
		return agrilink_errors.ErrAlreadyExists
	}

	req.ID = uuid.New()
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt

	stored := *req
	r.byID[req.ID] = &stored
	r.pairs[key] = req.ID
	return nil
}

func (r *fakeConnectionRepo) GetByID(ctx context.Context, id uuid.UUID) (connection.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.byID[id]
	if !ok {
		return connection.Request{}, agrilink_errors.ErrNotFound
	}
	return *req, nil
}

func (r *fakeConnectionRepo) GetByPair(ctx context.Context, producerID, buyerID uuid.UUID) (connection.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.pairs[pairKey{producerID, buyerID}]
	if !ok {
		return connection.Request{}, agrilink_errors.ErrNotFound
	}
	return *r.byID[id], nil
}

func (r *fakeConnectionRepo) Resolve(ctx context.Context, id uuid.UUID, to connection.Status, migrated []*conversation.Item) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.byID[id]
	if !ok {
		return false, agrilink_errors.ErrNotFound
	}
	if req.Status != connection.StatusPending {
		return false, nil
	}
	req.Status = to
	req.IntroMessage.Valid = false
	req.IntroMessage.String = ""
	req.PendingInquiry = nil
	req.UpdatedAt = time.Now()

	for _, item := range migrated {
		r.convs.insert(item)
	}
	return true, nil
}

func (r *fakeConnectionRepo) Resign(ctx context.Context, id, resignedBy uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.byID[id]
	if !ok {
		return false, agrilink_errors.ErrNotFound
	}
	if req.Status != connection.StatusAccepted || req.ResignedAt.Valid {
		return false, nil
	}
	req.ResignedAt.Valid = true
	req.ResignedAt.Time = time.Now()
	req.ResignedBy = uuid.NullUUID{UUID: resignedBy, Valid: true}
	return true, nil
}

func (r *fakeConnectionRepo) SetPendingInquiry(ctx context.Context, id uuid.UUID, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.byID[id]
	if !ok {
		return agrilink_errors.ErrNotFound
	}
	req.PendingInquiry = payload
	return nil
}

func (r *fakeConnectionRepo) ListByProfile(ctx context.Context, profileID uuid.UUID, status *connection.Status) ([]connection.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []connection.Request
	for _, req := range r.byID {
		if !req.IsParty(profileID) {
			continue
		}
		if status != nil && req.Status != *status {
			continue
		}
		out = append(out, *req)
	}
	return out, nil
}

type fakeConversationRepo struct {
	mu      sync.Mutex
	items   []*conversation.Item
	lastSeq map[uuid.UUID]int64
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{lastSeq: make(map[uuid.UUID]int64)}
}

// insert assigns identity and sequence the way the real repository's
// transaction does.
func (r *fakeConversationRepo) insert(item *conversation.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item.ID = uuid.New()
	r.lastSeq[item.ConnectionID]++
	item.Seq = r.lastSeq[item.ConnectionID]
	item.CreatedAt = time.Now()

	stored := copyItem(*item)
	r.items = append(r.items, &stored)
}

func (r *fakeConversationRepo) Insert(ctx context.Context, item *conversation.Item) error {
	r.insert(item)
	return nil
}

func (r *fakeConversationRepo) GetItem(ctx context.Context, id uuid.UUID) (conversation.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ID == id {
			return copyItem(*item), nil
		}
	}
	return conversation.Item{}, agrilink_errors.ErrNotFound
}

func (r *fakeConversationRepo) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]conversation.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []conversation.Item
	for _, item := range r.items {
		if item.ConnectionID == connectionID {
			out = append(out, copyItem(*item))
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) ResolveQuote(ctx context.Context, itemID uuid.UUID, to quote.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ID != itemID {
			continue
		}
		if item.Type != conversation.ItemTypeQuote || item.Quote == nil || item.Quote.Status != quote.StatusPending {
			return false, nil
		}
		item.Quote.Status = to
		return true, nil
	}
	return false, agrilink_errors.ErrNotFound
}

func copyItem(item conversation.Item) conversation.Item {
	if item.Message != nil {
		m := *item.Message
		item.Message = &m
	}
	if item.Quote != nil {
		q := *item.Quote
		item.Quote = &q
	}
	if item.Inquiry != nil {
		i := *item.Inquiry
		item.Inquiry = &i
	}
	return item
}

type fakeProfileDirectory struct {
	mu       sync.Mutex
	profiles []identity.Profile
}

func (d *fakeProfileDirectory) CreateProfile(ctx context.Context, p *identity.Profile) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	d.profiles = append(d.profiles, *p)
	return nil
}

func (d *fakeProfileDirectory) GetByUser(ctx context.Context, userID uuid.UUID, role identity.Role) (identity.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.profiles {
		if p.UserID == userID && p.Role == role {
			return p, nil
		}
	}
	return identity.Profile{}, agrilink_errors.ErrNotFound
}

func (d *fakeProfileDirectory) GetByID(ctx context.Context, profileID uuid.UUID, role identity.Role) (identity.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.profiles {
		if p.ID == profileID && p.Role == role {
			return p, nil
		}
	}
	return identity.Profile{}, agrilink_errors.ErrNotFound
}

type fakeNotificationRepo struct {
	mu      sync.Mutex
	entries []notification.Notification
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	r.entries = append(r.entries, *n)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Notification
	for _, n := range r.entries {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.entries {
		if n.ID == id && n.UserID == userID && !n.IsRead {
			r.entries[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.entries {
		if n.UserID == userID {
			r.entries[i].IsRead = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) byType(userID uuid.UUID, typ notification.Type) []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Notification
	for _, n := range r.entries {
		if n.UserID == userID && n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]catalog.ProductSnapshot
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: make(map[uuid.UUID]catalog.ProductSnapshot)}
}

func (c *fakeCatalog) GetProduct(ctx context.Context, id uuid.UUID) (catalog.ProductSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return catalog.ProductSnapshot{}, agrilink_errors.ErrNotFound
	}
	return p, nil
}

func (c *fakeCatalog) add(producerID uuid.UUID, name, price string) catalog.ProductSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := catalog.ProductSnapshot{
		ID:         uuid.New(),
		ProducerID: producerID,
		Name:       name,
		UnitPrice:  decimal.RequireFromString(price),
		Unit:       "kg",
		Stock:      100,
		Category:   "produce",
		UpdatedAt:  time.Now(),
	}
	c.products[p.ID] = p
	return p
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users []identity.User
}

func (r *fakeUserRepo) Create(ctx context.Context, u *identity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return agrilink_errors.ErrAlreadyExists
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	r.users = append(r.users, *u)
	return nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return identity.User{}, agrilink_errors.ErrNotFound
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (identity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return identity.User{}, agrilink_errors.ErrNotFound
}

// captureBus records every publish so tests can assert on fan-out
// without a real broker.
type captureBus struct {
	mu        sync.Mutex
	published []capturedEvent
}

type capturedEvent struct {
	Channel  string
	Envelope events.Envelope
}

func (b *captureBus) Publish(ctx context.Context, channel string, env events.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, capturedEvent{Channel: channel, Envelope: env})
	return nil
}

func (b *captureBus) onChannel(channel string) []capturedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []capturedEvent
	for _, e := range b.published {
		if e.Channel == channel {
			out = append(out, e)
		}
	}
	return out
}

// fixture wires the services against the in-memory fakes.
type fixture struct {
	conns   *fakeConnectionRepo
	convs   *fakeConversationRepo
	notifs  *fakeNotificationRepo
	dir     *fakeProfileDirectory
	catalog *fakeCatalog
	bus     *captureBus

	connections *ConnectionService
	messaging   *MessagingService
	quotes      *QuoteService
}

func newFixture() *fixture {
	convs := newFakeConversationRepo()
	conns := newFakeConnectionRepo(convs)
	notifs := &fakeNotificationRepo{}
	dir := &fakeProfileDirectory{}
	cat := newFakeCatalog()
	bus := &captureBus{}
	log := logger.NewNop()

	notificationService := NewNotificationService(notifs, bus, log)
	return &fixture{
		conns:       conns,
		convs:       convs,
		notifs:      notifs,
		dir:         dir,
		catalog:     cat,
		bus:         bus,
		connections: NewConnectionService(conns, dir, notificationService, bus, log),
		messaging:   NewMessagingService(conns, convs, dir, cat, notificationService, bus, log),
		quotes:      NewQuoteService(conns, convs, dir, notificationService, bus, log),
	}
}

// newParty registers a profile of the given role and returns the
// principal that acts as it.
func (f *fixture) newParty(role identity.Role, name string) (Principal, identity.Profile) {
	p := identity.Profile{UserID: uuid.New(), Role: role, Name: name}
	_ = f.dir.CreateProfile(context.Background(), &p)
	return Principal{UserID: p.UserID, Role: role}, p
}

// acceptedPair sets up a producer and buyer with an accepted connection
// between them.
func (f *fixture) acceptedPair() (producer, buyer Principal, producerProfile, buyerProfile identity.Profile, req connection.Request) {
	ctx := context.Background()
	producer, producerProfile = f.newParty(identity.RoleProducer, "Green Valley Farms")
	buyer, buyerProfile = f.newParty(identity.RoleBuyer, "Fresh Market Co")

	created, err := f.connections.RequestConnection(ctx, buyer, producerProfile.ID, "")
	if err != nil {
		panic(err)
	}
	req, err = f.connections.RespondToConnection(ctx, producer, created.ID, connection.StatusAccepted)
	if err != nil {
		panic(err)
	}
	return producer, buyer, producerProfile, buyerProfile, req
}
