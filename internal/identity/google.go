package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	googleTokenURL   = "https://oauth2.googleapis.com/token"
	googleProfileURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Claims are the verified claims of a popup sign-in.
type Claims struct {
	Subject string
	Email   string
}

// PopupAuthenticator verifies the credential produced by a third-party
// sign-in popup.
type PopupAuthenticator interface {
	Authenticate(ctx context.Context, credential string) (*Claims, error)
}

// GoogleOption is a function type that may configure a Google instance.
type GoogleOption func(*Google)

// WithGoogleEndpoints configures the token and profile endpoints used by a
// Google instance.
func WithGoogleEndpoints(tokenURL, profileURL string) GoogleOption {
	return func(g *Google) {
		g.tokenURL = tokenURL
		g.profileURL = profileURL
	}
}

// WithGoogleHTTPClient configures the http.Client used by a Google instance.
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(g *Google) { g.client = client }
}

// NewGoogle creates a new Google instance.
func NewGoogle(clientID, clientSecret, redirectURL string, options ...GoogleOption) *Google {
	g := &Google{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURL:  redirectURL,
		tokenURL:     googleTokenURL,
		profileURL:   googleProfileURL,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// Google authenticates Google sign-in popups by exchanging the authorization
// code produced by the popup.
type Google struct {
	clientID     string
	clientSecret string
	redirectURL  string
	tokenURL     string
	profileURL   string
	client       *http.Client
}

// Authenticate exchanges code for an access token and retrieves the verified
// email of the Google account.
func (g Google) Authenticate(ctx context.Context, code string) (*Claims, error) {
	if code == "" {
		return nil, newError(CodeInvalidCredential, nil)
	}

	data := url.Values{
		"code":          {code},
		"client_id":     {g.clientID},
		"client_secret": {g.clientSecret},
		"redirect_uri":  {g.redirectURL},
		"grant_type":    {"authorization_code"},
	}
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		g.tokenURL,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return nil, fmt.Errorf("create google token request; error: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := g.do(req, &token); err != nil {
		return nil, err
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, g.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create google profile request; error: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	var profile struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := g.do(req, &profile); err != nil {
		return nil, err
	}
	if !profile.VerifiedEmail || profile.Email == "" {
		return nil, newError(CodeInvalidCredential, fmt.Errorf("google email not verified"))
	}

	return &Claims{Subject: profile.ID, Email: profile.Email}, nil
}

func (g Google) do(req *http.Request, dst interface{}) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return newError(CodeNetworkRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return newError(
			CodeInvalidCredential,
			fmt.Errorf("google request failed; status: %d, body: %s", resp.StatusCode, body),
		)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return newError(CodeNetworkRequestFailed, fmt.Errorf("decode google response; error: %w", err))
	}
	return nil
}
