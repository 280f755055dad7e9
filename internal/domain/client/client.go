package client

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Client struct {
	ID           uuid.UUID `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Document     string    `json:"document"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Address      string    `json:"address,omitempty"`
	RegisteredAt time.Time `json:"registeredAt"`
	Active       bool      `json:"active"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Details are the caller-editable fields of a client.
type Details struct {
	FirstName string
	LastName  string
	Document  string
	Phone     string
	Email     string
	Address   string
}

func (d Details) normalize() Details {
	return Details{
		FirstName: strings.TrimSpace(d.FirstName),
		LastName:  strings.TrimSpace(d.LastName),
		Document:  strings.TrimSpace(d.Document),
		Phone:     strings.TrimSpace(d.Phone),
		Email:     strings.TrimSpace(d.Email),
		Address:   strings.TrimSpace(d.Address),
	}
}

func NewClient(details Details) *Client {
	now := time.Now().UTC().Truncate(time.Second)
	c := &Client{
		ID:           uuid.New(),
		Active:       true,
		RegisteredAt: now,
		UpdatedAt:    now,
	}
	c.apply(details)
	return c
}

func (c *Client) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

func (c *Client) apply(d Details) {
	c.FirstName = d.FirstName
	c.LastName = d.LastName
	c.Document = d.Document
	c.Phone = d.Phone
	c.Email = d.Email
	c.Address = d.Address
}

// Update replaces the editable fields and reports whether anything changed.
func (c *Client) Update(d Details) bool {
	if c.FirstName == d.FirstName && c.LastName == d.LastName && c.Document == d.Document &&
		c.Phone == d.Phone && c.Email == d.Email && c.Address == d.Address {
		return false
	}
	c.apply(d)
	c.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	return true
}
