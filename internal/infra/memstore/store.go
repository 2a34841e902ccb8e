package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/boddenberg/pj-gestao-bfa-go/internal/domain"
)

// Store implements every store port in memory.
type Store struct {
	customers   *table[domain.Customer]
	invoices    *table[domain.Invoice]
	payables    *table[domain.Payable]
	departments *table[domain.Department]
	sectors     *table[domain.Sector]
	employees   *table[domain.Employee]
	events      *table[domain.Event]
	holidays    *table[domain.AgendaHoliday]
	meetings    *table[domain.Meeting]
	rules       *table[domain.BillingRule]
	history     *table[domain.CollectionHistory]
	users       *table[domain.User]
}

// New creates an empty store.
func New() *Store {
	return &Store{
		customers:   newTable("cliente", func(v *domain.Customer) (string, domain.Tenant) { return v.ID, v.Tenant }),
		invoices:    newTable("fatura", func(v *domain.Invoice) (string, domain.Tenant) { return v.ID, v.Tenant }),
		payables:    newTable("conta a pagar", func(v *domain.Payable) (string, domain.Tenant) { return v.ID, v.Tenant }),
		departments: newTable("departamento", func(v *domain.Department) (string, domain.Tenant) { return v.ID, v.Tenant }),
		sectors:     newTable("setor", func(v *domain.Sector) (string, domain.Tenant) { return v.ID, v.Tenant }),
		employees:   newTable("colaborador", func(v *domain.Employee) (string, domain.Tenant) { return v.ID, v.Tenant }),
		events:      newTable("evento", func(v *domain.Event) (string, domain.Tenant) { return v.ID, v.Tenant }),
		holidays:    newTable("feriado", func(v *domain.AgendaHoliday) (string, domain.Tenant) { return v.ID, v.Tenant }),
		meetings:    newTable("reunião", func(v *domain.Meeting) (string, domain.Tenant) { return v.ID, v.Tenant }),
		rules:       newTable("regra de cobrança", func(v *domain.BillingRule) (string, domain.Tenant) { return v.ID, v.Tenant }),
		history:     newTable("histórico de cobrança", func(v *domain.CollectionHistory) (string, domain.Tenant) { return v.ID, v.Tenant }),
		// users are company-wide; the filial is not part of their scope
		users: newTable("usuário", func(v *domain.User) (string, domain.Tenant) {
			return v.ID, domain.Tenant{EmpresaID: v.EmpresaID, FilialID: "*"}
		}),
	}
}

// --- Customers ---

func (s *Store) CreateCustomer(_ context.Context, c *domain.Customer) error {
	return s.customers.create(c)
}

func (s *Store) UpdateCustomer(_ context.Context, c *domain.Customer) error {
	return s.customers.update(c)
}

func (s *Store) DeleteCustomer(_ context.Context, tenant domain.Tenant, id string) error {
	return s.customers.delete(tenant, id)
}

func (s *Store) GetCustomer(_ context.Context, tenant domain.Tenant, id string) (*domain.Customer, error) {
	return s.customers.get(tenant, id)
}

func (s *Store) ListCustomers(_ context.Context, tenant domain.Tenant) ([]domain.Customer, error) {
	return s.customers.list(tenant, nil), nil
}

// --- Invoices ---

func (s *Store) CreateInvoice(_ context.Context, inv *domain.Invoice) error {
	return s.invoices.create(inv)
}

func (s *Store) UpdateInvoice(_ context.Context, inv *domain.Invoice) error {
	return s.invoices.update(inv)
}

func (s *Store) DeleteInvoice(_ context.Context, tenant domain.Tenant, id string) error {
	return s.invoices.delete(tenant, id)
}

func (s *Store) GetInvoice(_ context.Context, tenant domain.Tenant, id string) (*domain.Invoice, error) {
	return s.invoices.get(tenant, id)
}

func (s *Store) ListInvoices(_ context.Context, tenant domain.Tenant) ([]domain.Invoice, error) {
	return s.invoices.list(tenant, nil), nil
}

func (s *Store) ListOpenInvoicesByPortfolio(_ context.Context, tenant domain.Tenant, carteiraID string) ([]domain.Invoice, error) {
	return s.invoices.list(tenant, func(inv *domain.Invoice) bool {
		return inv.Open() && inv.CarteiraID == carteiraID
	}), nil
}

// --- Payables ---

func (s *Store) CreatePayable(_ context.Context, p *domain.Payable) error {
	return s.payables.create(p)
}

func (s *Store) UpdatePayable(_ context.Context, p *domain.Payable) error {
	return s.payables.update(p)
}

func (s *Store) DeletePayable(_ context.Context, tenant domain.Tenant, id string) error {
	return s.payables.delete(tenant, id)
}

func (s *Store) GetPayable(_ context.Context, tenant domain.Tenant, id string) (*domain.Payable, error) {
	return s.payables.get(tenant, id)
}

func (s *Store) ListPayables(_ context.Context, tenant domain.Tenant) ([]domain.Payable, error) {
	return s.payables.list(tenant, nil), nil
}

// --- HR ---

func (s *Store) CreateDepartment(_ context.Context, d *domain.Department) error {
	return s.departments.create(d)
}

func (s *Store) UpdateDepartment(_ context.Context, d *domain.Department) error {
	return s.departments.update(d)
}

func (s *Store) DeleteDepartment(_ context.Context, tenant domain.Tenant, id string) error {
	return s.departments.delete(tenant, id)
}

func (s *Store) GetDepartment(_ context.Context, tenant domain.Tenant, id string) (*domain.Department, error) {
	return s.departments.get(tenant, id)
}

func (s *Store) ListDepartments(_ context.Context, tenant domain.Tenant) ([]domain.Department, error) {
	return s.departments.list(tenant, nil), nil
}

func (s *Store) CreateSector(_ context.Context, sec *domain.Sector) error {
	return s.sectors.create(sec)
}

func (s *Store) UpdateSector(_ context.Context, sec *domain.Sector) error {
	return s.sectors.update(sec)
}

func (s *Store) DeleteSector(_ context.Context, tenant domain.Tenant, id string) error {
	return s.sectors.delete(tenant, id)
}

func (s *Store) GetSector(_ context.Context, tenant domain.Tenant, id string) (*domain.Sector, error) {
	return s.sectors.get(tenant, id)
}

func (s *Store) ListSectors(_ context.Context, tenant domain.Tenant) ([]domain.Sector, error) {
	return s.sectors.list(tenant, nil), nil
}

func (s *Store) CreateEmployee(_ context.Context, e *domain.Employee) error {
	return s.employees.create(e)
}

func (s *Store) UpdateEmployee(_ context.Context, e *domain.Employee) error {
	return s.employees.update(e)
}

func (s *Store) DeleteEmployee(_ context.Context, tenant domain.Tenant, id string) error {
	return s.employees.delete(tenant, id)
}

func (s *Store) GetEmployee(_ context.Context, tenant domain.Tenant, id string) (*domain.Employee, error) {
	return s.employees.get(tenant, id)
}

func (s *Store) ListEmployees(_ context.Context, tenant domain.Tenant) ([]domain.Employee, error) {
	return s.employees.list(tenant, nil), nil
}

// --- Agenda ---

func (s *Store) CreateEvent(_ context.Context, e *domain.Event) error {
	return s.events.create(e)
}

func (s *Store) UpdateEvent(_ context.Context, e *domain.Event) error {
	return s.events.update(e)
}

func (s *Store) DeleteEvent(_ context.Context, tenant domain.Tenant, id string) error {
	return s.events.delete(tenant, id)
}

func (s *Store) GetEvent(_ context.Context, tenant domain.Tenant, id string) (*domain.Event, error) {
	return s.events.get(tenant, id)
}

func (s *Store) ListEvents(_ context.Context, tenant domain.Tenant) ([]domain.Event, error) {
	return s.events.list(tenant, nil), nil
}

func (s *Store) CreateHoliday(_ context.Context, h *domain.AgendaHoliday) error {
	return s.holidays.create(h)
}

func (s *Store) DeleteHoliday(_ context.Context, tenant domain.Tenant, id string) error {
	return s.holidays.delete(tenant, id)
}

func (s *Store) ListHolidays(_ context.Context, tenant domain.Tenant) ([]domain.AgendaHoliday, error) {
	return s.holidays.list(tenant, nil), nil
}

func (s *Store) CreateMeeting(_ context.Context, m *domain.Meeting) error {
	return s.meetings.create(m)
}

func (s *Store) UpdateMeeting(_ context.Context, m *domain.Meeting) error {
	return s.meetings.update(m)
}

func (s *Store) DeleteMeeting(_ context.Context, tenant domain.Tenant, id string) error {
	return s.meetings.delete(tenant, id)
}

func (s *Store) GetMeeting(_ context.Context, tenant domain.Tenant, id string) (*domain.Meeting, error) {
	return s.meetings.get(tenant, id)
}

func (s *Store) ListMeetings(_ context.Context, tenant domain.Tenant) ([]domain.Meeting, error) {
	return s.meetings.list(tenant, nil), nil
}

// --- Billing rules ---

func (s *Store) CreateRule(_ context.Context, r *domain.BillingRule) error {
	return s.rules.create(r)
}

func (s *Store) UpdateRule(_ context.Context, r *domain.BillingRule) error {
	return s.rules.update(r)
}

func (s *Store) UpdateRuleState(_ context.Context, tenant domain.Tenant, id string, consecutiveErrors int, status domain.RuleStatus, at time.Time) error {
	return s.rules.modify(tenant, id, func(r *domain.BillingRule) {
		r.ConsecutiveErrors = consecutiveErrors
		if status != "" {
			r.Status = status
		}
		r.UpdatedAt = at
	})
}

func (s *Store) DeleteRule(_ context.Context, tenant domain.Tenant, id string) error {
	return s.rules.delete(tenant, id)
}

func (s *Store) GetRule(_ context.Context, tenant domain.Tenant, id string) (*domain.BillingRule, error) {
	return s.rules.get(tenant, id)
}

func (s *Store) ListRules(_ context.Context, tenant domain.Tenant) ([]domain.BillingRule, error) {
	return s.rules.list(tenant, nil), nil
}

func (s *Store) ListActiveRules(_ context.Context) ([]domain.BillingRule, error) {
	return s.rules.scan(func(r *domain.BillingRule) bool {
		return r.Ativa && r.Status != domain.RulePaused
	}), nil
}

// --- Collection history ---

func (s *Store) CreateHistory(_ context.Context, h *domain.CollectionHistory) error {
	return s.history.create(h)
}

func (s *Store) UpdateHistory(_ context.Context, h *domain.CollectionHistory) error {
	return s.history.update(h)
}

func (s *Store) GetHistory(_ context.Context, tenant domain.Tenant, id string) (*domain.CollectionHistory, error) {
	return s.history.get(tenant, id)
}

func (s *Store) FindHistoryByKey(_ context.Context, tenant domain.Tenant, key string) (*domain.CollectionHistory, error) {
	h, ok := s.history.find(func(h *domain.CollectionHistory) bool {
		return h.Tenant.Owns(tenant) && h.DedupeKey() == key
	})
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "histórico de cobrança", ID: key}
	}
	return h, nil
}

func (s *Store) ListHistory(_ context.Context, tenant domain.Tenant, filter domain.HistoryFilter) ([]domain.CollectionHistory, error) {
	return s.history.list(tenant, filter.Match), nil
}

func (s *Store) ListRetryable(_ context.Context, tenant domain.Tenant, maxAttempts int, ruleID string) ([]domain.CollectionHistory, error) {
	return s.history.list(tenant, func(h *domain.CollectionHistory) bool {
		return h.RegraID == ruleID && h.Status == domain.DeliveryError && h.Tentativas < maxAttempts
	}), nil
}

// --- Users ---

func (s *Store) CreateUser(_ context.Context, u *domain.User) error {
	if _, err := s.GetUserByEmail(context.Background(), u.Email); err == nil {
		return &domain.ErrConflict{Message: "e-mail já cadastrado"}
	}
	return s.users.create(u)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := s.users.find(func(u *domain.User) bool {
		return strings.EqualFold(u.Email, strings.TrimSpace(email))
	})
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "usuário", ID: email}
	}
	return u, nil
}
