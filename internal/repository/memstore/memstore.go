// Package memstore is an in-memory repository.Store used by tests and
// by local runs without a database.
package memstore

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/bizznex/internal/repository"
)

type tables struct {
	clients     map[uuid.UUID]repository.Client
	jobs        map[uuid.UUID]repository.Job
	invoices    map[uuid.UUID]repository.Invoice
	items       map[uuid.UUID]repository.InvoiceItem
	payments    map[uuid.UUID]repository.InvoicePayment
	profiles    map[string]repository.Profile
	equipment   map[uuid.UUID]repository.Equipment
	maintenance map[uuid.UUID]repository.EquipmentMaintenance
	expenses    map[uuid.UUID]repository.Expense
	emails      map[uuid.UUID]repository.EmailHistory
	background  map[uuid.UUID]repository.BackgroundJob
}

func newTables() tables {
	return tables{
		clients:     map[uuid.UUID]repository.Client{},
		jobs:        map[uuid.UUID]repository.Job{},
		invoices:    map[uuid.UUID]repository.Invoice{},
		items:       map[uuid.UUID]repository.InvoiceItem{},
		payments:    map[uuid.UUID]repository.InvoicePayment{},
		profiles:    map[string]repository.Profile{},
		equipment:   map[uuid.UUID]repository.Equipment{},
		maintenance: map[uuid.UUID]repository.EquipmentMaintenance{},
		expenses:    map[uuid.UUID]repository.Expense{},
		emails:      map[uuid.UUID]repository.EmailHistory{},
		background:  map[uuid.UUID]repository.BackgroundJob{},
	}
}

func (t tables) clone() tables {
	return tables{
		clients:     maps.Clone(t.clients),
		jobs:        maps.Clone(t.jobs),
		invoices:    maps.Clone(t.invoices),
		items:       maps.Clone(t.items),
		payments:    maps.Clone(t.payments),
		profiles:    maps.Clone(t.profiles),
		equipment:   maps.Clone(t.equipment),
		maintenance: maps.Clone(t.maintenance),
		expenses:    maps.Clone(t.expenses),
		emails:      maps.Clone(t.emails),
		background:  maps.Clone(t.background),
	}
}

// Store implements repository.Store in memory. Transactions are emulated
// by restoring a snapshot when the transaction function fails.
// Transactions run one at a time, like rows locked FOR UPDATE.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	t    tables
	seq  int64

	// Now supplies timestamps. Defaults to time.Now.
	Now func() time.Time

	// FailOn makes the named method return the given error. Used to
	// simulate store outages.
	FailOn map[string]error
}

var _ repository.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		t:      newTables(),
		Now:    time.Now,
		FailOn: map[string]error{},
	}
}

// InTx runs fn against the store and rolls every table back if fn fails.
func (s *Store) InTx(ctx context.Context, fn func(q repository.Querier) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.t.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) fail(method string) error {
	if s.FailOn == nil {
		return nil
	}
	return s.FailOn[method]
}

// now returns a strictly increasing timestamp so ordering by creation
// time is deterministic.
func (s *Store) now() time.Time {
	s.seq++
	return s.Now().Add(time.Duration(s.seq) * time.Microsecond)
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint, Message: "duplicate key value violates unique constraint"}
}

func foreignKeyViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint, Message: "violates foreign key constraint"}
}

// =============================================================================
// Clients
// =============================================================================

func (s *Store) clientStats(c repository.Client) repository.Client {
	c.ActiveJobs = 0
	c.TotalSpent = decimal.Zero
	c.LastService = nil
	for _, j := range s.t.jobs {
		if j.ClientID != c.ID {
			continue
		}
		switch j.Status {
		case "Scheduled", "InProgress":
			c.ActiveJobs++
		case "Completed":
			if c.LastService == nil || j.Date.After(*c.LastService) {
				d := j.Date
				c.LastService = &d
			}
		}
	}
	for _, inv := range s.t.invoices {
		if inv.ClientID == c.ID {
			c.TotalSpent = c.TotalSpent.Add(inv.AmountPaid)
		}
	}
	return c
}

func (s *Store) CreateClient(ctx context.Context, arg repository.CreateClientParams) (repository.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateClient"); err != nil {
		return repository.Client{}, err
	}

	now := s.now()
	c := repository.Client{
		ID:         uuid.New(),
		Name:       arg.Name,
		Email:      arg.Email,
		Phone:      arg.Phone,
		Address:    arg.Address,
		Type:       arg.Type,
		Notes:      arg.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
		TotalSpent: decimal.Zero,
	}
	s.t.clients[c.ID] = c
	return c, nil
}

func (s *Store) GetClient(ctx context.Context, id uuid.UUID) (repository.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetClient"); err != nil {
		return repository.Client{}, err
	}

	c, ok := s.t.clients[id]
	if !ok {
		return repository.Client{}, pgx.ErrNoRows
	}
	return s.clientStats(c), nil
}

func (s *Store) ListClients(ctx context.Context, arg repository.ListClientsParams) ([]repository.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListClients"); err != nil {
		return nil, err
	}

	var out []repository.Client
	for _, c := range s.t.clients {
		if arg.Type != nil && c.Type != *arg.Type {
			continue
		}
		if arg.Search != nil {
			needle := strings.ToLower(*arg.Search)
			if !strings.Contains(strings.ToLower(c.Name), needle) && !strings.Contains(strings.ToLower(c.Email), needle) {
				continue
			}
		}
		out = append(out, s.clientStats(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateClient(ctx context.Context, arg repository.UpdateClientParams) (repository.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateClient"); err != nil {
		return repository.Client{}, err
	}

	c, ok := s.t.clients[arg.ID]
	if !ok {
		return repository.Client{}, pgx.ErrNoRows
	}
	c.Name = arg.Name
	c.Email = arg.Email
	c.Phone = arg.Phone
	c.Address = arg.Address
	c.Type = arg.Type
	c.Notes = arg.Notes
	c.UpdatedAt = s.now()
	s.t.clients[c.ID] = c
	return c, nil
}

func (s *Store) DeleteClient(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteClient"); err != nil {
		return 0, err
	}

	if _, ok := s.t.clients[id]; !ok {
		return 0, nil
	}
	delete(s.t.clients, id)
	for jid, j := range s.t.jobs {
		if j.ClientID == id {
			s.deleteJobLocked(jid)
		}
	}
	for iid, inv := range s.t.invoices {
		if inv.ClientID == id {
			s.deleteInvoiceLocked(iid)
		}
	}
	return 1, nil
}

// =============================================================================
// Jobs
// =============================================================================

func (s *Store) CreateJob(ctx context.Context, arg repository.CreateJobParams) (repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateJob"); err != nil {
		return repository.Job{}, err
	}

	if _, ok := s.t.clients[arg.ClientID]; !ok {
		return repository.Job{}, foreignKeyViolation("jobs_client_id_fkey")
	}
	now := s.now()
	j := repository.Job{
		ID:            uuid.New(),
		ClientID:      arg.ClientID,
		Service:       arg.Service,
		Date:          arg.Date,
		TimeSlot:      arg.TimeSlot,
		Status:        arg.Status,
		TotalAmount:   arg.TotalAmount,
		RecurringType: arg.RecurringType,
		RecurringDay:  arg.RecurringDay,
		Notes:         arg.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.t.jobs[j.ID] = j
	return j, nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetJob"); err != nil {
		return repository.Job{}, err
	}

	j, ok := s.t.jobs[id]
	if !ok {
		return repository.Job{}, pgx.ErrNoRows
	}
	return j, nil
}

func (s *Store) ListJobs(ctx context.Context, arg repository.ListJobsParams) ([]repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListJobs"); err != nil {
		return nil, err
	}

	var out []repository.Job
	for _, j := range s.t.jobs {
		if arg.ClientID != nil && j.ClientID != *arg.ClientID {
			continue
		}
		if arg.Status != nil && j.Status != *arg.Status {
			continue
		}
		if arg.From != nil && j.Date.Before(*arg.From) {
			continue
		}
		if arg.To != nil && j.Date.After(*arg.To) {
			continue
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool {
		if !out[i].Date.Equal(out[k].Date) {
			return out[i].Date.Before(out[k].Date)
		}
		return out[i].TimeSlot < out[k].TimeSlot
	})
	return out, nil
}

func (s *Store) UpdateJob(ctx context.Context, arg repository.UpdateJobParams) (repository.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateJob"); err != nil {
		return repository.Job{}, err
	}

	j, ok := s.t.jobs[arg.ID]
	if !ok {
		return repository.Job{}, pgx.ErrNoRows
	}
	if _, ok := s.t.clients[arg.ClientID]; !ok {
		return repository.Job{}, foreignKeyViolation("jobs_client_id_fkey")
	}
	j.ClientID = arg.ClientID
	j.Service = arg.Service
	j.Date = arg.Date
	j.TimeSlot = arg.TimeSlot
	j.Status = arg.Status
	j.TotalAmount = arg.TotalAmount
	j.RecurringType = arg.RecurringType
	j.RecurringDay = arg.RecurringDay
	j.Notes = arg.Notes
	j.UpdatedAt = s.now()
	s.t.jobs[j.ID] = j
	return j, nil
}

func (s *Store) DeleteJob(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteJob"); err != nil {
		return 0, err
	}

	if _, ok := s.t.jobs[id]; !ok {
		return 0, nil
	}
	s.deleteJobLocked(id)
	return 1, nil
}

func (s *Store) deleteJobLocked(id uuid.UUID) {
	delete(s.t.jobs, id)
	for iid, inv := range s.t.invoices {
		if inv.JobID != nil && *inv.JobID == id {
			inv.JobID = nil
			s.t.invoices[iid] = inv
		}
	}
	for eid, e := range s.t.expenses {
		if e.JobID != nil && *e.JobID == id {
			e.JobID = nil
			s.t.expenses[eid] = e
		}
	}
}

// =============================================================================
// Invoices
// =============================================================================

func (s *Store) CreateInvoice(ctx context.Context, arg repository.CreateInvoiceParams) (repository.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateInvoice"); err != nil {
		return repository.Invoice{}, err
	}

	if _, ok := s.t.clients[arg.ClientID]; !ok {
		return repository.Invoice{}, foreignKeyViolation("invoices_client_id_fkey")
	}
	for _, inv := range s.t.invoices {
		if inv.InvoiceNumber == arg.InvoiceNumber {
			return repository.Invoice{}, uniqueViolation("invoices_invoice_number_key")
		}
	}
	now := s.now()
	inv := repository.Invoice{
		ID:            uuid.New(),
		ClientID:      arg.ClientID,
		JobID:         arg.JobID,
		InvoiceNumber: arg.InvoiceNumber,
		InvoiceDate:   arg.InvoiceDate,
		DueDate:       arg.DueDate,
		Subtotal:      arg.Subtotal,
		TaxRate:       arg.TaxRate,
		TaxAmount:     arg.TaxAmount,
		TotalAmount:   arg.TotalAmount,
		AmountPaid:    decimal.Zero,
		Status:        arg.Status,
		Notes:         arg.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.t.invoices[inv.ID] = inv
	return inv, nil
}

func (s *Store) GetInvoice(ctx context.Context, id uuid.UUID) (repository.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetInvoice"); err != nil {
		return repository.Invoice{}, err
	}

	inv, ok := s.t.invoices[id]
	if !ok {
		return repository.Invoice{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (s *Store) GetInvoiceForUpdate(ctx context.Context, id uuid.UUID) (repository.Invoice, error) {
	return s.GetInvoice(ctx, id)
}

func (s *Store) ListInvoices(ctx context.Context, arg repository.ListInvoicesParams) ([]repository.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListInvoices"); err != nil {
		return nil, err
	}

	var out []repository.Invoice
	for _, inv := range s.t.invoices {
		if arg.ClientID != nil && inv.ClientID != *arg.ClientID {
			continue
		}
		if arg.Status != nil && inv.Status != *arg.Status {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].InvoiceDate.Equal(out[j].InvoiceDate) {
			return out[i].InvoiceDate.After(out[j].InvoiceDate)
		}
		return out[i].InvoiceNumber > out[j].InvoiceNumber
	})
	return page(out, arg.Limit, arg.Offset), nil
}

func page[T any](items []T, limit, offset int32) []T {
	if offset > 0 {
		if int(offset) >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *Store) MaxInvoiceSequence(ctx context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MaxInvoiceSequence"); err != nil {
		return 0, err
	}

	var highest int64
	for _, inv := range s.t.invoices {
		suffix, ok := strings.CutPrefix(inv.InvoiceNumber, prefix)
		if !ok || suffix == "" || strings.Trim(suffix, "0123456789") != "" {
			continue
		}
		if n, err := strconv.ParseInt(suffix, 10, 64); err == nil && n > highest {
			highest = n
		}
	}
	return highest, nil
}

func (s *Store) ApplyInvoicePayment(ctx context.Context, arg repository.ApplyInvoicePaymentParams) (repository.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ApplyInvoicePayment"); err != nil {
		return repository.Invoice{}, err
	}

	inv, ok := s.t.invoices[arg.ID]
	if !ok {
		return repository.Invoice{}, pgx.ErrNoRows
	}
	inv.AmountPaid = arg.AmountPaid
	inv.Status = arg.Status
	inv.PaymentDate = arg.PaymentDate
	inv.PaymentMethod = arg.PaymentMethod
	inv.PaymentNote = arg.PaymentNote
	inv.UpdatedAt = s.now()
	s.t.invoices[inv.ID] = inv
	return inv, nil
}

func (s *Store) UpdateInvoiceStatus(ctx context.Context, arg repository.UpdateInvoiceStatusParams) (repository.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateInvoiceStatus"); err != nil {
		return repository.Invoice{}, err
	}

	inv, ok := s.t.invoices[arg.ID]
	if !ok {
		return repository.Invoice{}, pgx.ErrNoRows
	}
	inv.Status = arg.Status
	inv.UpdatedAt = s.now()
	s.t.invoices[inv.ID] = inv
	return inv, nil
}

func (s *Store) MarkInvoicesOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("MarkInvoicesOverdue"); err != nil {
		return 0, err
	}

	var n int64
	for id, inv := range s.t.invoices {
		if inv.Status == "Pending" && dateOf(inv.DueDate).Before(dateOf(asOf)) && inv.AmountPaid.LessThan(inv.TotalAmount) {
			inv.Status = "Overdue"
			inv.UpdatedAt = s.now()
			s.t.invoices[id] = inv
			n++
		}
	}
	return n, nil
}

// dateOf truncates t the way a DATE column does.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Store) DeleteInvoice(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteInvoice"); err != nil {
		return 0, err
	}

	if _, ok := s.t.invoices[id]; !ok {
		return 0, nil
	}
	s.deleteInvoiceLocked(id)
	return 1, nil
}

func (s *Store) deleteInvoiceLocked(id uuid.UUID) {
	delete(s.t.invoices, id)
	for itemID, item := range s.t.items {
		if item.InvoiceID == id {
			delete(s.t.items, itemID)
		}
	}
	for pid, p := range s.t.payments {
		if p.InvoiceID == id {
			delete(s.t.payments, pid)
		}
	}
	for eid, e := range s.t.emails {
		if e.InvoiceID != nil && *e.InvoiceID == id {
			e.InvoiceID = nil
			s.t.emails[eid] = e
		}
	}
}

func (s *Store) CreateInvoiceItem(ctx context.Context, arg repository.CreateInvoiceItemParams) (repository.InvoiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateInvoiceItem"); err != nil {
		return repository.InvoiceItem{}, err
	}

	if _, ok := s.t.invoices[arg.InvoiceID]; !ok {
		return repository.InvoiceItem{}, foreignKeyViolation("invoice_items_invoice_id_fkey")
	}
	item := repository.InvoiceItem{
		ID:          uuid.New(),
		InvoiceID:   arg.InvoiceID,
		Description: arg.Description,
		Quantity:    arg.Quantity,
		Rate:        arg.Rate,
		Amount:      arg.Amount,
		Position:    arg.Position,
	}
	s.t.items[item.ID] = item
	return item, nil
}

func (s *Store) ListInvoiceItems(ctx context.Context, invoiceID uuid.UUID) ([]repository.InvoiceItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListInvoiceItems"); err != nil {
		return nil, err
	}

	var out []repository.InvoiceItem
	for _, item := range s.t.items {
		if item.InvoiceID == invoiceID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (s *Store) CreateInvoicePayment(ctx context.Context, arg repository.CreateInvoicePaymentParams) (repository.InvoicePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateInvoicePayment"); err != nil {
		return repository.InvoicePayment{}, err
	}

	if _, ok := s.t.invoices[arg.InvoiceID]; !ok {
		return repository.InvoicePayment{}, foreignKeyViolation("invoice_payments_invoice_id_fkey")
	}
	p := repository.InvoicePayment{
		ID:        uuid.New(),
		InvoiceID: arg.InvoiceID,
		Amount:    arg.Amount,
		PaidOn:    arg.PaidOn,
		Method:    arg.Method,
		Note:      arg.Note,
		CreatedAt: s.now(),
	}
	s.t.payments[p.ID] = p
	return p, nil
}

func (s *Store) ListInvoicePayments(ctx context.Context, invoiceID uuid.UUID) ([]repository.InvoicePayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListInvoicePayments"); err != nil {
		return nil, err
	}

	var out []repository.InvoicePayment
	for _, p := range s.t.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PaidOn.Equal(out[j].PaidOn) {
			return out[i].PaidOn.Before(out[j].PaidOn)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// =============================================================================
// Profiles
// =============================================================================

func (s *Store) GetProfile(ctx context.Context, id string) (repository.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetProfile"); err != nil {
		return repository.Profile{}, err
	}

	p, ok := s.t.profiles[id]
	if !ok {
		return repository.Profile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (s *Store) GetProfileBySubscriptionID(ctx context.Context, subscriptionID string) (repository.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetProfileBySubscriptionID"); err != nil {
		return repository.Profile{}, err
	}

	for _, p := range s.t.profiles {
		if p.StripeSubscriptionID != nil && *p.StripeSubscriptionID == subscriptionID {
			return p, nil
		}
	}
	return repository.Profile{}, pgx.ErrNoRows
}

func (s *Store) UpsertProfileSubscription(ctx context.Context, arg repository.UpsertProfileSubscriptionParams) (repository.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpsertProfileSubscription"); err != nil {
		return repository.Profile{}, err
	}

	if arg.StripeSubscriptionID != nil {
		for _, other := range s.t.profiles {
			if other.ID != arg.ID && other.StripeSubscriptionID != nil && *other.StripeSubscriptionID == *arg.StripeSubscriptionID {
				return repository.Profile{}, uniqueViolation("profiles_stripe_subscription_id_key")
			}
		}
	}

	now := s.now()
	p, ok := s.t.profiles[arg.ID]
	if !ok {
		p = repository.Profile{ID: arg.ID, CreatedAt: now}
	}
	if arg.Email != "" {
		p.Email = arg.Email
	}
	p.StripeCustomerID = arg.StripeCustomerID
	p.StripeSubscriptionID = arg.StripeSubscriptionID
	p.SubscriptionStatus = arg.SubscriptionStatus
	p.Plan = arg.Plan
	p.UpdatedAt = now
	s.t.profiles[p.ID] = p
	return p, nil
}

func (s *Store) UpdateProfileSubscriptionState(ctx context.Context, arg repository.UpdateProfileSubscriptionStateParams) (repository.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateProfileSubscriptionState"); err != nil {
		return repository.Profile{}, err
	}

	for id, p := range s.t.profiles {
		if p.StripeSubscriptionID != nil && *p.StripeSubscriptionID == arg.StripeSubscriptionID {
			p.SubscriptionStatus = arg.SubscriptionStatus
			p.Plan = arg.Plan
			p.UpdatedAt = s.now()
			s.t.profiles[id] = p
			return p, nil
		}
	}
	return repository.Profile{}, pgx.ErrNoRows
}

// PutProfile seeds a profile row.
func (s *Store) PutProfile(p repository.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.profiles[p.ID] = p
}

// =============================================================================
// Equipment
// =============================================================================

func (s *Store) CreateEquipment(ctx context.Context, arg repository.CreateEquipmentParams) (repository.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateEquipment"); err != nil {
		return repository.Equipment{}, err
	}

	now := s.now()
	e := repository.Equipment{
		ID:           uuid.New(),
		Name:         arg.Name,
		Type:         arg.Type,
		Status:       arg.Status,
		Condition:    arg.Condition,
		PurchaseDate: arg.PurchaseDate,
		Notes:        arg.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.t.equipment[e.ID] = e
	return e, nil
}

func (s *Store) GetEquipment(ctx context.Context, id uuid.UUID) (repository.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetEquipment"); err != nil {
		return repository.Equipment{}, err
	}

	e, ok := s.t.equipment[id]
	if !ok {
		return repository.Equipment{}, pgx.ErrNoRows
	}
	return e, nil
}

func (s *Store) ListEquipment(ctx context.Context, status *string) ([]repository.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListEquipment"); err != nil {
		return nil, err
	}

	var out []repository.Equipment
	for _, e := range s.t.equipment {
		if status != nil && e.Status != *status {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateEquipment(ctx context.Context, arg repository.UpdateEquipmentParams) (repository.Equipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateEquipment"); err != nil {
		return repository.Equipment{}, err
	}

	e, ok := s.t.equipment[arg.ID]
	if !ok {
		return repository.Equipment{}, pgx.ErrNoRows
	}
	e.Name = arg.Name
	e.Type = arg.Type
	e.Status = arg.Status
	e.Condition = arg.Condition
	e.PurchaseDate = arg.PurchaseDate
	e.Notes = arg.Notes
	e.UpdatedAt = s.now()
	s.t.equipment[e.ID] = e
	return e, nil
}

func (s *Store) DeleteEquipment(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteEquipment"); err != nil {
		return 0, err
	}

	if _, ok := s.t.equipment[id]; !ok {
		return 0, nil
	}
	delete(s.t.equipment, id)
	for mid, m := range s.t.maintenance {
		if m.EquipmentID == id {
			delete(s.t.maintenance, mid)
		}
	}
	return 1, nil
}

func (s *Store) CreateMaintenanceRecord(ctx context.Context, arg repository.CreateMaintenanceRecordParams) (repository.EquipmentMaintenance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateMaintenanceRecord"); err != nil {
		return repository.EquipmentMaintenance{}, err
	}

	if _, ok := s.t.equipment[arg.EquipmentID]; !ok {
		return repository.EquipmentMaintenance{}, foreignKeyViolation("equipment_maintenance_equipment_id_fkey")
	}
	m := repository.EquipmentMaintenance{
		ID:          uuid.New(),
		EquipmentID: arg.EquipmentID,
		PerformedOn: arg.PerformedOn,
		Description: arg.Description,
		Cost:        arg.Cost,
		CreatedAt:   s.now(),
	}
	s.t.maintenance[m.ID] = m
	return m, nil
}

func (s *Store) ListMaintenanceRecords(ctx context.Context, equipmentID uuid.UUID) ([]repository.EquipmentMaintenance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListMaintenanceRecords"); err != nil {
		return nil, err
	}

	var out []repository.EquipmentMaintenance
	for _, m := range s.t.maintenance {
		if m.EquipmentID == equipmentID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PerformedOn.After(out[j].PerformedOn) })
	return out, nil
}

// =============================================================================
// Expenses
// =============================================================================

func (s *Store) CreateExpense(ctx context.Context, arg repository.CreateExpenseParams) (repository.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateExpense"); err != nil {
		return repository.Expense{}, err
	}

	if arg.JobID != nil {
		if _, ok := s.t.jobs[*arg.JobID]; !ok {
			return repository.Expense{}, foreignKeyViolation("expenses_job_id_fkey")
		}
	}
	now := s.now()
	e := repository.Expense{
		ID:          uuid.New(),
		Date:        arg.Date,
		Category:    arg.Category,
		Vendor:      arg.Vendor,
		Description: arg.Description,
		Amount:      arg.Amount,
		JobID:       arg.JobID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.t.expenses[e.ID] = e
	return e, nil
}

func (s *Store) GetExpense(ctx context.Context, id uuid.UUID) (repository.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("GetExpense"); err != nil {
		return repository.Expense{}, err
	}

	e, ok := s.t.expenses[id]
	if !ok {
		return repository.Expense{}, pgx.ErrNoRows
	}
	return e, nil
}

func (s *Store) filterExpenses(from, to *time.Time, category *string) []repository.Expense {
	var out []repository.Expense
	for _, e := range s.t.expenses {
		if from != nil && e.Date.Before(*from) {
			continue
		}
		if to != nil && e.Date.After(*to) {
			continue
		}
		if category != nil && e.Category != *category {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (s *Store) ListExpenses(ctx context.Context, arg repository.ListExpensesParams) ([]repository.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListExpenses"); err != nil {
		return nil, err
	}

	out := s.filterExpenses(arg.From, arg.To, arg.Category)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateExpense(ctx context.Context, arg repository.UpdateExpenseParams) (repository.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("UpdateExpense"); err != nil {
		return repository.Expense{}, err
	}

	e, ok := s.t.expenses[arg.ID]
	if !ok {
		return repository.Expense{}, pgx.ErrNoRows
	}
	if arg.JobID != nil {
		if _, ok := s.t.jobs[*arg.JobID]; !ok {
			return repository.Expense{}, foreignKeyViolation("expenses_job_id_fkey")
		}
	}
	e.Date = arg.Date
	e.Category = arg.Category
	e.Vendor = arg.Vendor
	e.Description = arg.Description
	e.Amount = arg.Amount
	e.JobID = arg.JobID
	e.UpdatedAt = s.now()
	s.t.expenses[e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteExpense"); err != nil {
		return 0, err
	}

	if _, ok := s.t.expenses[id]; !ok {
		return 0, nil
	}
	delete(s.t.expenses, id)
	return 1, nil
}

func (s *Store) SummarizeExpenses(ctx context.Context, arg repository.SummarizeExpensesParams) ([]repository.ExpenseCategoryTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SummarizeExpenses"); err != nil {
		return nil, err
	}

	totals := map[string]*repository.ExpenseCategoryTotal{}
	for _, e := range s.filterExpenses(arg.From, arg.To, nil) {
		t, ok := totals[e.Category]
		if !ok {
			t = &repository.ExpenseCategoryTotal{Category: e.Category, Total: decimal.Zero}
			totals[e.Category] = t
		}
		t.Count++
		t.Total = t.Total.Add(e.Amount)
	}

	var out []repository.ExpenseCategoryTotal
	for _, category := range slices.Sorted(maps.Keys(totals)) {
		out = append(out, *totals[category])
	}
	return out, nil
}

// =============================================================================
// Email history
// =============================================================================

func (s *Store) CreateEmailHistory(ctx context.Context, arg repository.CreateEmailHistoryParams) (repository.EmailHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CreateEmailHistory"); err != nil {
		return repository.EmailHistory{}, err
	}

	e := repository.EmailHistory{
		ID:                uuid.New(),
		ToAddress:         arg.ToAddress,
		Subject:           arg.Subject,
		Body:              arg.Body,
		IsHTML:            arg.IsHTML,
		Status:            arg.Status,
		Error:             arg.Error,
		ProviderMessageID: arg.ProviderMessageID,
		InvoiceID:         arg.InvoiceID,
		CreatedAt:         s.now(),
	}
	s.t.emails[e.ID] = e
	return e, nil
}

func (s *Store) ListEmailHistory(ctx context.Context, limit int32) ([]repository.EmailHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ListEmailHistory"); err != nil {
		return nil, err
	}

	out := slices.Collect(maps.Values(s.t.emails))
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, 0), nil
}

func (s *Store) DeleteEmailHistory(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteEmailHistory"); err != nil {
		return 0, err
	}

	if _, ok := s.t.emails[id]; !ok {
		return 0, nil
	}
	delete(s.t.emails, id)
	return 1, nil
}

// =============================================================================
// Background jobs
// =============================================================================

func (s *Store) EnqueueJob(ctx context.Context, arg repository.EnqueueJobParams) (repository.BackgroundJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("EnqueueJob"); err != nil {
		return repository.BackgroundJob{}, err
	}

	now := s.now()
	payload := arg.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	j := repository.BackgroundJob{
		ID:             uuid.New(),
		JobType:        arg.JobType,
		Queue:          arg.Queue,
		Payload:        payload,
		Status:         "pending",
		Priority:       arg.Priority,
		MaxRetries:     arg.MaxRetries,
		TimeoutSeconds: arg.TimeoutSeconds,
		ScheduledAt:    arg.ScheduledAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.t.background[j.ID] = j
	return j, nil
}

func (s *Store) ClaimNextJob(ctx context.Context, queue string) (repository.BackgroundJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ClaimNextJob"); err != nil {
		return repository.BackgroundJob{}, err
	}

	now := s.Now()
	var candidates []repository.BackgroundJob
	for _, j := range s.t.background {
		if j.Status != "pending" || j.ScheduledAt.After(now) {
			continue
		}
		if queue != "" && j.Queue != queue {
			continue
		}
		candidates = append(candidates, j)
	}
	if len(candidates) == 0 {
		return repository.BackgroundJob{}, pgx.ErrNoRows
	}
	sort.Slice(candidates, func(i, k int) bool {
		if candidates[i].Priority != candidates[k].Priority {
			return candidates[i].Priority > candidates[k].Priority
		}
		return candidates[i].ScheduledAt.Before(candidates[k].ScheduledAt)
	})

	j := candidates[0]
	started := s.now()
	j.Status = "processing"
	j.Attempts++
	j.StartedAt = &started
	j.UpdatedAt = started
	s.t.background[j.ID] = j
	return j, nil
}

func (s *Store) CompleteJob(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("CompleteJob"); err != nil {
		return err
	}

	j, ok := s.t.background[id]
	if !ok {
		return nil
	}
	done := s.now()
	j.Status = "completed"
	j.CompletedAt = &done
	j.LastError = nil
	j.UpdatedAt = done
	s.t.background[id] = j
	return nil
}

func (s *Store) FailJob(ctx context.Context, arg repository.FailJobParams) (repository.BackgroundJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("FailJob"); err != nil {
		return repository.BackgroundJob{}, err
	}

	j, ok := s.t.background[arg.ID]
	if !ok {
		return repository.BackgroundJob{}, pgx.ErrNoRows
	}
	if j.Attempts < j.MaxRetries {
		j.Status = "pending"
		j.ScheduledAt = arg.RetryAt
	} else {
		j.Status = "failed"
	}
	msg := arg.LastError
	j.LastError = &msg
	j.UpdatedAt = s.now()
	s.t.background[j.ID] = j
	return j, nil
}

func (s *Store) DeleteFinishedJobs(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DeleteFinishedJobs"); err != nil {
		return 0, err
	}

	var n int64
	for id, j := range s.t.background {
		if (j.Status == "completed" || j.Status == "failed") && j.UpdatedAt.Before(before) {
			delete(s.t.background, id)
			n++
		}
	}
	return n, nil
}

// BackgroundJobs returns every queued job, oldest first.
func (s *Store) BackgroundJobs() []repository.BackgroundJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Collect(maps.Values(s.t.background))
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
