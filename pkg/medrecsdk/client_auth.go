package medrecsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	var user UserResponse
	if err := c.call(ctx, http.MethodPost, "/auth/register", req, http.StatusCreated, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates with the form endpoint, which takes the email as
// "username".
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	resp, err := c.do(ctx, http.MethodPost, "/auth/login",
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}

	var tok TokenResponse
	if err := decodeJSON(resp, &tok, http.StatusOK); err != nil {
		return nil, err
	}
	return &tok, nil
}

// LoginJSON authenticates with the JSON endpoint.
func (c *Client) LoginJSON(ctx context.Context, email, password string) (*TokenResponse, error) {
	var tok TokenResponse
	err := c.call(ctx, http.MethodPost, "/auth/login/json",
		LoginRequest{Email: email, Password: password}, http.StatusOK, &tok)
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (*MeResponse, error) {
	var me MeResponse
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, http.StatusOK, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// SetUserActive enables or disables an account. Admin only.
func (c *Client) SetUserActive(ctx context.Context, userID string, active bool) (*UserResponse, error) {
	var user UserResponse
	err := c.call(ctx, http.MethodPatch, "/users/"+url.PathEscape(userID)+"/active",
		SetActiveRequest{IsActive: active}, http.StatusOK, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
