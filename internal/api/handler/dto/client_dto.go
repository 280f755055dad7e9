package dto

import (
	"time"

	"loan-tracker/internal/domain/client"
	"loan-tracker/internal/domain/user"
)

type ClientRequest struct {
	FirstName string `json:"firstName" example:"Ana"`
	LastName  string `json:"lastName" example:"Pérez"`
	Document  string `json:"document" example:"1234567890"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
}

func (r *ClientRequest) Details() client.Details {
	return client.Details{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Document:  r.Document,
		Phone:     r.Phone,
		Email:     r.Email,
		Address:   r.Address,
	}
}

type ClientResponse struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	FullName     string    `json:"fullName"`
	Document     string    `json:"document"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Address      string    `json:"address,omitempty"`
	Active       bool      `json:"active"`
	RegisteredAt time.Time `json:"registeredAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func NewClientResponse(c *client.Client) ClientResponse {
	if c == nil {
		return ClientResponse{}
	}
	return ClientResponse{
		ID:           c.ID.String(),
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		FullName:     c.FullName(),
		Document:     c.Document,
		Phone:        c.Phone,
		Email:        c.Email,
		Address:      c.Address,
		Active:       c.Active,
		RegisteredAt: c.RegisteredAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func NewClientResponses(clients []*client.Client) []ClientResponse {
	out := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		out = append(out, NewClientResponse(c))
	}
	return out
}

type LoginRequest struct {
	Username string `json:"username" example:"admin"`
	Password string `json:"password" example:"admin123"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}
