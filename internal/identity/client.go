package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/apperr"
)

// Provider is the identity collaborator used to provision accounts for
// brand-new members before any membership row exists.
type Provider interface {
	ProvisionUser(ctx context.Context, user NewUser) (string, error)
}

type NewUser struct {
	Email    string
	Name     string
	UserType string
	Password string
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, serviceToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      serviceToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type provisionRequest struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	UserType     string `json:"userType"`
	Password     string `json:"password"`
	PreConfirmed bool   `json:"preConfirmed"`
}

type provisionResponse struct {
	ID string `json:"id"`
}

func (c *Client) ProvisionUser(ctx context.Context, user NewUser) (string, error) {
	payload, err := json.Marshal(provisionRequest{
		Email:        user.Email,
		Name:         user.Name,
		UserType:     user.UserType,
		Password:     user.Password,
		PreConfirmed: true,
	})
	if err != nil {
		return "", apperr.New(apperr.CollaboratorFailure, "identity_request_failed")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.New(apperr.CollaboratorFailure, "identity_request_failed")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.New(apperr.CollaboratorFailure, "identity_unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", apperr.New(apperr.CollaboratorFailure, "identity_provision_failed")
	}

	var decoded provisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil || decoded.ID == "" {
		return "", apperr.New(apperr.CollaboratorFailure, "identity_provision_failed")
	}
	return decoded.ID, nil
}
