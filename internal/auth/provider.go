package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSession = errors.New("no signed-in identity")

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type Tokens struct {
	AccessToken string `json:"accessToken"`
	IDToken     string `json:"idToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Provider is the external identity provider boundary: sign-up, code-based
// confirmation, sign-in, sign-out and current-identity resolution.
type Provider interface {
	SignUp(ctx context.Context, cred Credentials) error
	ConfirmSignUp(ctx context.Context, email, code string) error
	SignIn(ctx context.Context, cred Credentials) (*Tokens, error)
	SignOut(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (*Identity, error)
}

// HTTPProvider talks JSON to a hosted identity service.
type HTTPProvider struct {
	HTTP    *http.Client
	BaseURL string
}

func NewHTTPProvider(baseURL string, httpClient *http.Client) *HTTPProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPProvider{HTTP: httpClient, BaseURL: baseURL}
}

func (p *HTTPProvider) post(ctx context.Context, path, bearer string, in, out any) error {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return err
		}
	}
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+path, &body)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	res, err := p.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusUnauthorized {
		return ErrNoSession
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("identity provider %s: %s", path, res.Status)
	}
	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}

func (p *HTTPProvider) SignUp(ctx context.Context, cred Credentials) error {
	return p.post(ctx, "/signup", "", cred, nil)
}

func (p *HTTPProvider) ConfirmSignUp(ctx context.Context, email, code string) error {
	in := map[string]string{"email": email, "confirmationCode": code}
	return p.post(ctx, "/confirm-signup", "", in, nil)
}

func (p *HTTPProvider) SignIn(ctx context.Context, cred Credentials) (*Tokens, error) {
	var tok Tokens
	if err := p.post(ctx, "/signin", "", cred, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func (p *HTTPProvider) SignOut(ctx context.Context, accessToken string) error {
	return p.post(ctx, "/signout", accessToken, nil, nil)
}

func (p *HTTPProvider) CurrentUser(ctx context.Context, accessToken string) (*Identity, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/me", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	res, err := p.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusNotFound {
		return nil, ErrNoSession
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider /me: %s", res.Status)
	}
	var id Identity
	if err := json.NewDecoder(res.Body).Decode(&id); err != nil {
		return nil, err
	}
	return &id, nil
}

type idTokenClaims struct {
	Role  string `json:"custom:role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// RoleFromIDToken reads the custom role claim out of the provider's ID token.
// The token was just handed to us by the provider over TLS; only its claims
// are of interest here.
func RoleFromIDToken(idToken string) (string, error) {
	var claims idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err != nil {
		return "", err
	}
	return claims.Role, nil
}
