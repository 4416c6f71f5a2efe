package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// ContactRequestTable is the table contact requests are stored in
const ContactRequestTable = "contact_requests"

// Column names used when querying contact requests
const (
	FieldID              = "id"
	FieldStatus          = "status"
	FieldCreatedOn       = "created_at"
	FieldRequestType     = "request_type"
	FieldProductInterest = "product_interest"
)

// ContactRequest represents a quote, information or support request from a customer
type ContactRequest struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Name            string          `gorm:"not null" json:"name"`
	Email           string          `gorm:"not null;index" json:"email"`
	Company         string          `gorm:"not null" json:"company"`
	Phone           *string         `json:"phone,omitempty"`
	RequestType     RequestType     `gorm:"type:varchar(16);not null;default:'quote'" json:"request_type"`
	ProductInterest ProductInterest `gorm:"type:text;not null" json:"product_interest"`
	Message         string          `gorm:"type:text;not null" json:"message"`
	Deadline        *time.Time      `gorm:"type:date" json:"deadline,omitempty"`
	Status          Status          `gorm:"type:varchar(16);not null;default:'new';index" json:"status"`
	CreatedAt       time.Time       `gorm:"index" json:"created_on"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for ContactRequest
func (ContactRequest) TableName() string {
	return ContactRequestTable
}

// Status is the triage state of a contact request
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every status in display order
var Statuses = []Status{StatusNew, StatusInProgress, StatusCompleted, StatusCancelled}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus parses a status string
func ParseStatus(s string) (Status, error) {
	status := Status(strings.TrimSpace(s))
	if !status.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return status, nil
}

// strictTransitions is the transition graph used when triage runs in strict mode.
var strictTransitions = map[Status][]Status{
	StatusNew:        {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a request may move from one status to another
// under the strict workflow. Setting a status to itself is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range strictTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequestType is the kind of inquiry
type RequestType string

const (
	RequestQuote   RequestType = "quote"
	RequestInfo    RequestType = "info"
	RequestSupport RequestType = "support"
)

// Valid reports whether t is a known request type
func (t RequestType) Valid() bool {
	switch t {
	case RequestQuote, RequestInfo, RequestSupport:
		return true
	}
	return false
}

// Option is an id/label pair offered to visitors
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// RequestTypes are the selectable request types
var RequestTypes = []Option{
	{ID: string(RequestQuote), Label: "Request a Quote"},
	{ID: string(RequestInfo), Label: "Product Information"},
	{ID: string(RequestSupport), Label: "Technical Support"},
}

// ProductCatalog is the fixed list of product categories a request can be about
var ProductCatalog = []Option{
	{ID: "cnc-components", Label: "CNC Components"},
	{ID: "sheet-metal", Label: "Sheet Metal Fabrication"},
	{ID: "assemblies", Label: "Mechanical Assemblies"},
	{ID: "injection-molding", Label: "Injection Molding"},
	{ID: "electronics", Label: "Electronic Components"},
	{ID: "custom", Label: "Custom Manufacturing"},
}

// IsCatalogProduct reports whether tag is in the product catalog
func IsCatalogProduct(tag string) bool {
	for _, p := range ProductCatalog {
		if p.ID == tag {
			return true
		}
	}
	return false
}

// productSeparator joins product tags in storage
const productSeparator = ","

// ProductInterest is a set of product catalog tags. Insertion order is kept so
// the stored form is stable; it carries no meaning.
type ProductInterest []string

// ParseProductInterest parses the stored, comma separated form
func ParseProductInterest(s string) ProductInterest {
	var p ProductInterest
	for _, tag := range strings.Split(s, productSeparator) {
		p = p.With(strings.TrimSpace(tag))
	}
	return p
}

// Contains reports whether tag is in the set
func (p ProductInterest) Contains(tag string) bool {
	for _, t := range p {
		if t == tag {
			return true
		}
	}
	return false
}

// With returns the set with tag added
func (p ProductInterest) With(tag string) ProductInterest {
	if tag == "" || p.Contains(tag) {
		return p
	}
	out := make(ProductInterest, len(p), len(p)+1)
	copy(out, p)
	return append(out, tag)
}

// Without returns the set with tag removed
func (p ProductInterest) Without(tag string) ProductInterest {
	if !p.Contains(tag) {
		return p
	}
	out := make(ProductInterest, 0, len(p)-1)
	for _, t := range p {
		if t != tag {
			out = append(out, t)
		}
	}
	return out
}

func (p ProductInterest) String() string {
	return strings.Join(p, productSeparator)
}

// Value implements driver.Valuer
func (p ProductInterest) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner
func (p *ProductInterest) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*p = nil
	case string:
		*p = ParseProductInterest(v)
	case []byte:
		*p = ParseProductInterest(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ProductInterest", src)
	}
	return nil
}
