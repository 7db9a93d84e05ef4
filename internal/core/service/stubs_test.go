package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/silianos/voyage-api/internal/core/domain"
)

func newID(n int) string { return fmt.Sprintf("%024x", n) }

// ----------------------------------------------------------------------------
// Customers
// ----------------------------------------------------------------------------

type stubCustomerRepo struct {
	customers map[string]*domain.Customer
	seq       int
	// raceOnCreate makes Create fail as if another request won the unique index.
	raceOnCreate bool
}

func newStubCustomerRepo() *stubCustomerRepo {
	return &stubCustomerRepo{customers: make(map[string]*domain.Customer)}
}

func cloneCustomer(c *domain.Customer) *domain.Customer {
	clone := *c
	if c.Phone != nil {
		p := *c.Phone
		clone.Phone = &p
	}
	return &clone
}

func (r *stubCustomerRepo) Create(_ context.Context, c *domain.Customer) (*domain.Customer, error) {
	if r.raceOnCreate {
		return nil, domain.ErrDuplicateEmail
	}
	for _, existing := range r.customers {
		if existing.Email == c.Email {
			return nil, domain.ErrDuplicateEmail
		}
	}
	r.seq++
	stored := cloneCustomer(c)
	stored.ID = newID(r.seq)
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	r.customers[stored.ID] = stored
	return cloneCustomer(stored), nil
}

func (r *stubCustomerRepo) FindByEmail(_ context.Context, email string) (*domain.Customer, error) {
	for _, c := range r.customers {
		if c.Email == email {
			return cloneCustomer(c), nil
		}
	}
	return nil, domain.NotFound("User")
}

func (r *stubCustomerRepo) FindByID(_ context.Context, id string) (*domain.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, domain.NotFound("User")
	}
	return cloneCustomer(c), nil
}

func (r *stubCustomerRepo) EmailTaken(_ context.Context, email, excludeID string) (bool, error) {
	for id, c := range r.customers {
		if c.Email == email && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubCustomerRepo) Update(_ context.Context, id string, ch domain.CustomerChanges) (*domain.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, domain.NotFound("User")
	}
	if ch.Name != nil {
		c.Name = *ch.Name
	}
	if ch.Email != nil {
		c.Email = *ch.Email
	}
	if ch.PhoneSet {
		c.Phone = ch.Phone
	}
	if ch.PreferredCurrency != nil {
		c.PreferredCurrency = *ch.PreferredCurrency
	}
	c.UpdatedAt = time.Now().UTC()
	return cloneCustomer(c), nil
}

// ----------------------------------------------------------------------------
// Administrators
// ----------------------------------------------------------------------------

type stubAdminRepo struct {
	admins map[string]*domain.Administrator
	seq    int
}

func newStubAdminRepo() *stubAdminRepo {
	return &stubAdminRepo{admins: make(map[string]*domain.Administrator)}
}

func cloneAdmin(a *domain.Administrator) *domain.Administrator {
	clone := *a
	return &clone
}

func (r *stubAdminRepo) Create(_ context.Context, a *domain.Administrator) (*domain.Administrator, error) {
	for _, existing := range r.admins {
		if existing.Username == a.Username || existing.Email == a.Email {
			return nil, domain.ErrDuplicateIdentity
		}
	}
	r.seq++
	stored := cloneAdmin(a)
	stored.ID = newID(1000 + r.seq)
	r.admins[stored.ID] = stored
	return cloneAdmin(stored), nil
}

func (r *stubAdminRepo) FindActiveByEmail(_ context.Context, email string) (*domain.Administrator, error) {
	for _, a := range r.admins {
		if a.Email == email && a.IsActive {
			return cloneAdmin(a), nil
		}
	}
	return nil, domain.NotFound("Administrator")
}

func (r *stubAdminRepo) FindActiveByID(_ context.Context, id string) (*domain.Administrator, error) {
	a, ok := r.admins[id]
	if !ok || !a.IsActive {
		return nil, domain.NotFound("Administrator")
	}
	return cloneAdmin(a), nil
}

func (r *stubAdminRepo) Exists(_ context.Context, username, email string) (bool, error) {
	for _, a := range r.admins {
		if a.Username == username || a.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubAdminRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	a, ok := r.admins[id]
	if !ok {
		return domain.NotFound("Administrator")
	}
	a.LastLogin = &at
	return nil
}

// ----------------------------------------------------------------------------
// Throttle and audit
// ----------------------------------------------------------------------------

type stubThrottle struct {
	failures map[string]int
	limit    int
	resetErr error
}

func newStubThrottle(limit int) *stubThrottle {
	return &stubThrottle{failures: make(map[string]int), limit: limit}
}

func (t *stubThrottle) Allowed(_ context.Context, key string) (bool, error) {
	return t.failures[key] < t.limit, nil
}

func (t *stubThrottle) RecordFailure(_ context.Context, key string) error {
	t.failures[key]++
	return nil
}

func (t *stubThrottle) Reset(_ context.Context, key string) error {
	if t.resetErr != nil {
		return t.resetErr
	}
	delete(t.failures, key)
	return nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (a *recordingAudit) Record(e domain.AuthEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) types() []domain.AuthEventType {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuthEventType, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Type)
	}
	return out
}

// ----------------------------------------------------------------------------
// Documents
// ----------------------------------------------------------------------------

type memoryCollection struct {
	docs map[string]*domain.Document
	seq  int
	// lastFilter and lastSort capture the arguments of the latest Find.
	lastFilter    map[string]any
	lastSort      []domain.SortField
	distinctCalls int
}

func newMemoryCollection() *memoryCollection {
	return &memoryCollection{docs: make(map[string]*domain.Document)}
}

func cloneDoc(d *domain.Document) *domain.Document {
	clone := *d
	clone.Fields = make(map[string]any, len(d.Fields))
	for k, v := range d.Fields {
		clone.Fields[k] = v
	}
	return &clone
}

func (m *memoryCollection) Find(_ context.Context, filter map[string]any, sortBy []domain.SortField) ([]*domain.Document, error) {
	m.lastFilter = filter
	m.lastSort = sortBy

	out := make([]*domain.Document, 0)
	for _, d := range m.docs {
		match := true
		for k, v := range filter {
			if d.Fields[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, cloneDoc(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryCollection) FindByID(_ context.Context, id string) (*domain.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDoc(d), nil
}

func (m *memoryCollection) Create(_ context.Context, fields map[string]any) (*domain.Document, error) {
	m.seq++
	now := time.Now().UTC()
	d := &domain.Document{ID: newID(m.seq), Fields: fields, CreatedAt: now, UpdatedAt: now}
	m.docs[d.ID] = cloneDoc(d)
	return cloneDoc(d), nil
}

func (m *memoryCollection) UpdateByID(_ context.Context, id string, fields map[string]any) (*domain.Document, error) {
	d, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	for k, v := range fields {
		d.Fields[k] = v
	}
	d.UpdatedAt = time.Now().UTC()
	return cloneDoc(d), nil
}

func (m *memoryCollection) DeleteByID(_ context.Context, id string) (bool, error) {
	if _, ok := m.docs[id]; !ok {
		return false, nil
	}
	delete(m.docs, id)
	return true, nil
}

func (m *memoryCollection) Distinct(ctx context.Context, field string, filter map[string]any) ([]any, error) {
	m.distinctCalls++
	docs, err := m.Find(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0)
	for _, d := range docs {
		v, ok := d.Fields[field]
		if ok && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out, nil
}
