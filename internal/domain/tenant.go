package domain

import "time"

// DateLayout is the wire format of calendar dates (due dates, payment dates).
const DateLayout = "2006-01-02"

// Tenant identifies the company/branch pair every record is scoped by.
type Tenant struct {
	EmpresaID string `json:"empresaId"`
	FilialID  string `json:"filialId"`
}

// Valid reports whether both keys are set.
func (t Tenant) Valid() bool {
	return t.EmpresaID != "" && t.FilialID != ""
}

// Owns reports whether a record scoped by other belongs to this tenant.
func (t Tenant) Owns(other Tenant) bool {
	return t.EmpresaID == other.EmpresaID && t.FilialID == other.FilialID
}

// ParseDate parses a YYYY-MM-DD date in the given location.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

// Midnight truncates t to the start of its day in t's location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days from a to b (b - a).
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
