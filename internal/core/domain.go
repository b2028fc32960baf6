package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Payment struct {
		ID     string `json:"id"`
		Amount Money  `json:"amount"`
		Date   Date   `json:"date"`
		Note   string `json:"note,omitempty"`
	}

	Expense struct {
		ID       string `json:"id"`
		Category string `json:"category"`
		Amount   Money  `json:"amount"`
		Date     Date   `json:"date"`
		Note     string `json:"note,omitempty"`
	}

	Project struct {
		ID           string    `json:"id"`
		CustomerName string    `json:"customerName"`
		Location     string    `json:"location"`
		SquareFeet   float64   `json:"squareFeet"`
		QuotedPrice  Money     `json:"quotedPrice"`
		Categories   []string  `json:"categories"`
		Payments     []Payment `json:"payments"`
		Expenses     []Expense `json:"expenses"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
	}

	// ProjectPatch carries a partial update; nil fields are left untouched.
	ProjectPatch struct {
		CustomerName *string   `json:"customerName,omitempty"`
		Location     *string   `json:"location,omitempty"`
		SquareFeet   *float64  `json:"squareFeet,omitempty"`
		QuotedPrice  *Money    `json:"quotedPrice,omitempty"`
		Categories   *[]string `json:"categories,omitempty"`
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCustomer      = errors.New("empty customer name")
	ErrEmptyLocation      = errors.New("empty location")
	ErrInvalidSquareFeet  = errors.New("square feet must be positive")
	ErrInvalidQuotedPrice = errors.New("quoted price must be positive")
	ErrEmptyCategory      = errors.New("empty category")
	ErrNoteTooLong        = errors.New("note too long (max 500 characters)")
)

const maxNoteLength = 500

// DefaultCategories is the expense taxonomy seeded into projects created
// without categories.
var DefaultCategories = []string{
	"Fall Ceiling",
	"Electrical Work",
	"Painting",
	"Wood Work",
	"Hardware",
	"Glasswork",
	"CNC",
	"Stone Work",
	"AC",
	"Fabrication",
	"Mesh",
	"miscellaneous",
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts a calendar date (2006-01-02) or a full RFC 3339 timestamp,
// keeping only the calendar part.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p Payment) Validate() error {
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if len(p.Note) > maxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Note) > maxNoteLength {
		return ErrNoteTooLong
	}
	return nil
}

// Validate checks the fields a user submits when creating a project.
func (p Project) Validate() error {
	if strings.TrimSpace(p.CustomerName) == "" {
		return ErrEmptyCustomer
	}
	if len(p.CustomerName) > 200 {
		return errors.New("customer name too long (max 200 characters)")
	}
	if strings.TrimSpace(p.Location) == "" {
		return ErrEmptyLocation
	}
	if p.SquareFeet <= 0 {
		return ErrInvalidSquareFeet
	}
	if p.QuotedPrice.Cents <= 0 {
		return ErrInvalidQuotedPrice
	}
	return nil
}

// HasCategory reports whether name is part of the project's taxonomy.
func (p Project) HasCategory(name string) bool {
	for _, c := range p.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can't mutate shared slices.
func (p Project) Clone() Project {
	out := p
	out.Categories = append([]string(nil), p.Categories...)
	out.Payments = append([]Payment(nil), p.Payments...)
	out.Expenses = append([]Expense(nil), p.Expenses...)
	return out
}

func (pp ProjectPatch) Validate() error {
	if pp.CustomerName != nil && strings.TrimSpace(*pp.CustomerName) == "" {
		return ErrEmptyCustomer
	}
	if pp.Location != nil && strings.TrimSpace(*pp.Location) == "" {
		return ErrEmptyLocation
	}
	if pp.SquareFeet != nil && *pp.SquareFeet <= 0 {
		return ErrInvalidSquareFeet
	}
	if pp.QuotedPrice != nil && pp.QuotedPrice.Cents <= 0 {
		return ErrInvalidQuotedPrice
	}
	return nil
}

// Apply returns p with the patch fields written over it.
func (pp ProjectPatch) Apply(p Project) Project {
	out := p.Clone()
	if pp.CustomerName != nil {
		out.CustomerName = strings.TrimSpace(*pp.CustomerName)
	}
	if pp.Location != nil {
		out.Location = strings.TrimSpace(*pp.Location)
	}
	if pp.SquareFeet != nil {
		out.SquareFeet = *pp.SquareFeet
	}
	if pp.QuotedPrice != nil {
		out.QuotedPrice = *pp.QuotedPrice
	}
	if pp.Categories != nil {
		out.Categories = NormalizeCategories(*pp.Categories)
	}
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (pp ProjectPatch) IsEmpty() bool {
	return pp.CustomerName == nil && pp.Location == nil && pp.SquareFeet == nil &&
		pp.QuotedPrice == nil && pp.Categories == nil
}

// NormalizeCategories trims names, drops blanks and removes duplicates while
// preserving first-seen order.
func NormalizeCategories(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
