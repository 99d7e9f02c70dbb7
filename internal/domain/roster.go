package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var cikPattern = regexp.MustCompile(`^\d{1,10}$`)

// Manager is one entry of the fixed roster of tracked institutional managers.
type Manager struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	CIK  string `json:"cik"` // 10-digit with leading zeros
}

// Roster is an immutable, ordered list of managers.
// Order is significant: portfolio picks follow roster declaration order.
type Roster struct {
	managers []Manager
	bySlug   map[string]int
}

// NormalizeCIK validates a CIK of 1-10 decimal digits and left-pads it to 10 digits.
func NormalizeCIK(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !cikPattern.MatchString(raw) {
		return "", fmt.Errorf("invalid CIK %q: must be 1-10 decimal digits", raw)
	}
	return strings.Repeat("0", 10-len(raw)) + raw, nil
}

// StripLeadingZeros returns the CIK form used in EDGAR archive paths.
func StripLeadingZeros(cik string) string {
	trimmed := strings.TrimLeft(cik, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// NewRoster validates and normalizes the given managers.
func NewRoster(managers []Manager) (*Roster, error) {
	r := &Roster{
		managers: make([]Manager, 0, len(managers)),
		bySlug:   make(map[string]int, len(managers)),
	}
	for i, m := range managers {
		if strings.TrimSpace(m.Name) == "" {
			return nil, fmt.Errorf("roster entry %d: name is required", i)
		}
		if strings.TrimSpace(m.Slug) == "" {
			return nil, fmt.Errorf("roster entry %d (%s): slug is required", i, m.Name)
		}
		cik, err := NormalizeCIK(m.CIK)
		if err != nil {
			return nil, fmt.Errorf("roster entry %d (%s): %w", i, m.Name, err)
		}
		if _, dup := r.bySlug[m.Slug]; dup {
			return nil, fmt.Errorf("roster entry %d: duplicate slug %q", i, m.Slug)
		}
		m.CIK = cik
		r.bySlug[m.Slug] = len(r.managers)
		r.managers = append(r.managers, m)
	}
	return r, nil
}

// LoadRosterFile reads a JSON array of managers from path.
func LoadRosterFile(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}
	var managers []Manager
	if err := json.Unmarshal(data, &managers); err != nil {
		return nil, fmt.Errorf("failed to parse roster file %s: %w", path, err)
	}
	return NewRoster(managers)
}

// Len returns the number of managers.
func (r *Roster) Len() int {
	return len(r.managers)
}

// Managers returns a copy of the roster in declaration order.
func (r *Roster) Managers() []Manager {
	out := make([]Manager, len(r.managers))
	copy(out, r.managers)
	return out
}

// BySlug looks up a manager by slug.
func (r *Roster) BySlug(slug string) (Manager, bool) {
	i, ok := r.bySlug[slug]
	if !ok {
		return Manager{}, false
	}
	return r.managers[i], true
}

// ByCIK looks up a manager by normalized CIK.
func (r *Roster) ByCIK(cik string) (Manager, bool) {
	for _, m := range r.managers {
		if m.CIK == cik {
			return m, true
		}
	}
	return Manager{}, false
}

// DefaultRoster returns the built-in roster of tracked managers.
func DefaultRoster() *Roster {
	r, err := NewRoster([]Manager{
		{Name: "First Eagle Investment Management, LLC", Slug: "first-eagle", CIK: "0001325447"},
		{Name: "Yacktman Asset Management LP", Slug: "yacktman", CIK: "0000905567"},
		{Name: "Primecap Management Co/CA/", Slug: "primecap", CIK: "0000763212"},
		{Name: "Ariel Investments, LLC", Slug: "ariel", CIK: "0000936753"},
		{Name: "Himalaya Capital Management LLC", Slug: "himalaya", CIK: "0001709323"},
		{Name: "Harris Associates L.P.", Slug: "harris", CIK: "0000813917"},
		{Name: "Dorsey Asset Management, LLC", Slug: "dorsey", CIK: "0001671657"},
		{Name: "Akre Capital Management, LLC", Slug: "akre", CIK: "0001112520"},
		{Name: "Wedgewood Partners, Inc.", Slug: "wedgewood", CIK: "0000859804"},
		{Name: "Berkshire Hathaway Inc.", Slug: "berkshire", CIK: "0001067983"},
	})
	if err != nil {
		panic(fmt.Sprintf("built-in roster is invalid: %v", err))
	}
	return r
}
