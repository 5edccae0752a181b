package musicapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"music-player-go/logcolors"

	log "github.com/sirupsen/logrus"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthResult is the server's answer to a login flow step.
type AuthResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Login starts a session with email and password. The session cookie is
// stored in the client's jar.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return AuthResult{}, ErrInvalidCredentials
	}

	var result AuthResult
	err := c.postJSON(ctx, "/login", map[string]string{"email": email, "password": password}, &result)
	if StatusCode(err) == http.StatusUnauthorized {
		return AuthResult{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if err != nil {
		return AuthResult{}, err
	}

	result.Success = true
	log.Infof("%s Logged in as %s", logcolors.LogAuth, email)
	return result, nil
}

// SendVerificationCode asks the server to email a one-time login code.
func (c *Client) SendVerificationCode(ctx context.Context, email string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return AuthResult{}, errors.New("email is required")
	}

	var result AuthResult
	payload := map[string]string{"email": email, "purpose": "login"}
	if err := c.postJSON(ctx, "/send_verification_code", payload, &result); err != nil {
		return AuthResult{}, err
	}

	result.Success = true
	log.Infof("%s Verification code sent to %s", logcolors.LogAuth, email)
	return result, nil
}

// VerificationLogin completes a login with an emailed code.
func (c *Client) VerificationLogin(ctx context.Context, email, code string) (AuthResult, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return AuthResult{}, errors.New("email and code are required")
	}

	var result AuthResult
	payload := map[string]string{"email": email, "code": code}
	if err := c.postJSON(ctx, "/verification_login", payload, &result); err != nil {
		return AuthResult{}, err
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = result.Error
		}
		return result, fmt.Errorf("verification login rejected: %s", msg)
	}

	log.Infof("%s Logged in as %s with verification code", logcolors.LogAuth, email)
	return result, nil
}
