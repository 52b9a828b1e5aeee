package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prohmpiriya/ticket-storefront/internal/apiclient"
	"github.com/prohmpiriya/ticket-storefront/internal/domain"
)

// ErrInvalidCredentials is returned when the Auth API rejects a login
var ErrInvalidCredentials = errors.New("invalid email or password")

// Credentials for a password login
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Registration is the sign-up form
type Registration struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	FirstName   string `json:"firstName" binding:"required"`
	LastName    string `json:"lastName" binding:"required"`
	PhoneNumber string `json:"phoneNumber"`
	City        string `json:"city"`
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	PhoneNumber string `json:"phoneNumber"`
	Address     struct {
		City string `json:"city"`
	} `json:"address"`
}

type userPayload struct {
	ID       interface{} `json:"id"`
	Name     string      `json:"name"`
	LastName string      `json:"lastName"`
	Email    string      `json:"email" validate:"required"`
	Role     string      `json:"role"`
}

func (u *userPayload) profile() *domain.UserProfile {
	p := &domain.UserProfile{
		Name:  u.LastName,
		Email: u.Email,
		Role:  u.Role,
	}
	if p.Name == "" {
		p.Name = u.Name
	}
	if p.Role == "" {
		p.Role = "client"
	}
	if u.ID != nil {
		p.ID = fmt.Sprint(u.ID)
	}
	return p
}

type loginResponse struct {
	Token string       `json:"token" validate:"required"`
	Data  *userPayload `json:"data" validate:"required"`
}

type userResponse struct {
	User *userPayload `json:"user" validate:"required"`
}

// Client talks to the remote Auth API
type Client struct {
	api *apiclient.Client
}

// NewClient creates an Auth API client
func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// Login exchanges credentials for a bearer token and profile
func (c *Client) Login(ctx context.Context, creds Credentials) (string, *domain.UserProfile, error) {
	resp, err := c.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: "/auth/login", Body: creds})
	if err != nil {
		return "", nil, domain.NewNetworkError(err)
	}
	if resp.Status == http.StatusUnauthorized {
		return "", nil, ErrInvalidCredentials
	}
	if err := statusError(resp); err != nil {
		return "", nil, err
	}

	var body loginResponse
	if err := apiclient.DecodeStrict(resp.Body, &body); err != nil {
		return "", nil, domain.NewMalformedResponseError("login response", err)
	}
	return body.Token, body.Data.profile(), nil
}

// Register creates an account. The Auth API does not sign the user in.
func (c *Client) Register(ctx context.Context, reg Registration) (*domain.UserProfile, error) {
	req := registerRequest{
		Email:       reg.Email,
		Password:    reg.Password,
		FirstName:   reg.FirstName,
		LastName:    reg.LastName,
		PhoneNumber: reg.PhoneNumber,
	}
	req.Address.City = reg.City

	resp, err := c.api.Do(ctx, apiclient.Request{Method: http.MethodPost, Path: "/auth/register", Body: req})
	if err != nil {
		return nil, domain.NewNetworkError(err)
	}
	if resp.Status == http.StatusConflict {
		return nil, domain.NewConflictError("an account already exists for this email")
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}

	var body userResponse
	if err := apiclient.DecodeStrict(resp.Body, &body); err != nil {
		// some deployments answer with an empty body
		return &domain.UserProfile{Name: reg.LastName, Email: reg.Email, Role: "client"}, nil
	}
	return body.User.profile(), nil
}

// Me returns the profile behind token
func (c *Client) Me(ctx context.Context, token string) (*domain.UserProfile, error) {
	resp, err := c.api.Do(ctx, apiclient.Request{Method: http.MethodGet, Path: "/auth/me", Token: token})
	if err != nil {
		return nil, domain.NewNetworkError(err)
	}
	if resp.Status == http.StatusUnauthorized {
		return nil, domain.NewAuthRequiredError("token rejected")
	}
	if err := statusError(resp); err != nil {
		return nil, err
	}

	var body userResponse
	if err := apiclient.DecodeStrict(resp.Body, &body); err != nil {
		return nil, domain.NewMalformedResponseError("profile response", err)
	}
	return body.User.profile(), nil
}

func statusError(resp *apiclient.Response) error {
	switch {
	case resp.OK():
		return nil
	case resp.Status == http.StatusBadRequest:
		msg := apiclient.ServerMessage(resp.Body)
		if msg == "" {
			msg = "invalid data"
		}
		return domain.NewValidationError(msg)
	case resp.Status == http.StatusNotFound:
		return domain.NewNotFoundError("authentication service unavailable")
	default:
		return domain.NewTransportError(resp.Status, apiclient.ServerMessage(resp.Body))
	}
}
