// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	DeletePrefix(prefix string)
}

// Clock abstracts the current time so schedules can be tested.
type Clock interface {
	Now() time.Time
}

// CustomerStore persists CRM clients.
type CustomerStore interface {
	CreateCustomer(ctx context.Context, c *domain.Customer) error
	UpdateCustomer(ctx context.Context, c *domain.Customer) error
	DeleteCustomer(ctx context.Context, tenant domain.Tenant, id string) error
	GetCustomer(ctx context.Context, tenant domain.Tenant, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context, tenant domain.Tenant) ([]domain.Customer, error)
}

// InvoiceStore persists receivables.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv *domain.Invoice) error
	UpdateInvoice(ctx context.Context, inv *domain.Invoice) error
	DeleteInvoice(ctx context.Context, tenant domain.Tenant, id string) error
	GetInvoice(ctx context.Context, tenant domain.Tenant, id string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, tenant domain.Tenant) ([]domain.Invoice, error)
	// ListOpenInvoicesByPortfolio returns pending/overdue invoices of a
	// carteira. An empty carteiraID matches invoices without a portfolio.
	ListOpenInvoicesByPortfolio(ctx context.Context, tenant domain.Tenant, carteiraID string) ([]domain.Invoice, error)
}

// PayableStore persists accounts payable.
type PayableStore interface {
	CreatePayable(ctx context.Context, p *domain.Payable) error
	UpdatePayable(ctx context.Context, p *domain.Payable) error
	DeletePayable(ctx context.Context, tenant domain.Tenant, id string) error
	GetPayable(ctx context.Context, tenant domain.Tenant, id string) (*domain.Payable, error)
	ListPayables(ctx context.Context, tenant domain.Tenant) ([]domain.Payable, error)
}

// HRStore persists departments, sectors and employees.
type HRStore interface {
	CreateDepartment(ctx context.Context, d *domain.Department) error
	UpdateDepartment(ctx context.Context, d *domain.Department) error
	DeleteDepartment(ctx context.Context, tenant domain.Tenant, id string) error
	GetDepartment(ctx context.Context, tenant domain.Tenant, id string) (*domain.Department, error)
	ListDepartments(ctx context.Context, tenant domain.Tenant) ([]domain.Department, error)

	CreateSector(ctx context.Context, s *domain.Sector) error
	UpdateSector(ctx context.Context, s *domain.Sector) error
	DeleteSector(ctx context.Context, tenant domain.Tenant, id string) error
	GetSector(ctx context.Context, tenant domain.Tenant, id string) (*domain.Sector, error)
	ListSectors(ctx context.Context, tenant domain.Tenant) ([]domain.Sector, error)

	CreateEmployee(ctx context.Context, e *domain.Employee) error
	UpdateEmployee(ctx context.Context, e *domain.Employee) error
	DeleteEmployee(ctx context.Context, tenant domain.Tenant, id string) error
	GetEmployee(ctx context.Context, tenant domain.Tenant, id string) (*domain.Employee, error)
	ListEmployees(ctx context.Context, tenant domain.Tenant) ([]domain.Employee, error)
}

// AgendaStore persists events, company holidays and meetings.
type AgendaStore interface {
	CreateEvent(ctx context.Context, e *domain.Event) error
	UpdateEvent(ctx context.Context, e *domain.Event) error
	DeleteEvent(ctx context.Context, tenant domain.Tenant, id string) error
	GetEvent(ctx context.Context, tenant domain.Tenant, id string) (*domain.Event, error)
	ListEvents(ctx context.Context, tenant domain.Tenant) ([]domain.Event, error)

	CreateHoliday(ctx context.Context, h *domain.AgendaHoliday) error
	DeleteHoliday(ctx context.Context, tenant domain.Tenant, id string) error
	ListHolidays(ctx context.Context, tenant domain.Tenant) ([]domain.AgendaHoliday, error)

	CreateMeeting(ctx context.Context, m *domain.Meeting) error
	UpdateMeeting(ctx context.Context, m *domain.Meeting) error
	DeleteMeeting(ctx context.Context, tenant domain.Tenant, id string) error
	GetMeeting(ctx context.Context, tenant domain.Tenant, id string) (*domain.Meeting, error)
	ListMeetings(ctx context.Context, tenant domain.Tenant) ([]domain.Meeting, error)
}

// RuleStore persists billing rules (régua de cobrança).
type RuleStore interface {
	CreateRule(ctx context.Context, r *domain.BillingRule) error
	UpdateRule(ctx context.Context, r *domain.BillingRule) error
	// UpdateRuleState writes only the engine-owned fields of a rule. An empty
	// status leaves the stored one unchanged.
	UpdateRuleState(ctx context.Context, tenant domain.Tenant, id string, consecutiveErrors int, status domain.RuleStatus, at time.Time) error
	DeleteRule(ctx context.Context, tenant domain.Tenant, id string) error
	GetRule(ctx context.Context, tenant domain.Tenant, id string) (*domain.BillingRule, error)
	ListRules(ctx context.Context, tenant domain.Tenant) ([]domain.BillingRule, error)
	// ListActiveRules returns active rules of every tenant (used by the engine).
	ListActiveRules(ctx context.Context) ([]domain.BillingRule, error)
}

// HistoryStore persists reminder send records.
type HistoryStore interface {
	CreateHistory(ctx context.Context, h *domain.CollectionHistory) error
	UpdateHistory(ctx context.Context, h *domain.CollectionHistory) error
	GetHistory(ctx context.Context, tenant domain.Tenant, id string) (*domain.CollectionHistory, error)
	FindHistoryByKey(ctx context.Context, tenant domain.Tenant, key string) (*domain.CollectionHistory, error)
	ListHistory(ctx context.Context, tenant domain.Tenant, filter domain.HistoryFilter) ([]domain.CollectionHistory, error)
	// ListRetryable returns error records of a tenant that still have attempts left.
	ListRetryable(ctx context.Context, tenant domain.Tenant, maxAttempts int, ruleID string) ([]domain.CollectionHistory, error)
}

// UserStore persists back-office users.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Message is a rendered reminder ready for delivery.
type Message struct {
	Channel   domain.ChannelKind
	To        string
	Subject   string
	Body      string
	Config    map[string]string
	Reference string // dedupe key, forwarded to providers as idempotency key
}

// DeliveryReceipt is what a channel returns after accepting a message.
type DeliveryReceipt struct {
	ProviderID string
	Status     domain.DeliveryStatus
	Link       string
}

// Sender delivers reminders through one channel.
type Sender interface {
	Channel() domain.ChannelKind
	Send(ctx context.Context, msg *Message) (*DeliveryReceipt, error)
}
