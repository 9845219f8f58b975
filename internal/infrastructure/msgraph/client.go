package msgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/askdesk/knowledge-assistant/internal/core/domain"
)

// scopes covers the sign-in profile read plus delegated read access to the
// user's document libraries.
const scopes = "User.Read Files.Read.All offline_access"

// Client drives the Microsoft identity authorization-code flow and reads
// drive contents through the Graph API on behalf of the signed-in user.
type Client struct {
	opts       Options
	httpClient *http.Client
}

type Options struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// LoginBase and GraphBase override the Microsoft endpoints. Empty means
	// the public cloud.
	LoginBase string
	GraphBase string
}

func (o *Options) normalize() {
	if o.LoginBase == "" {
		o.LoginBase = "https://login.microsoftonline.com"
	}
	if o.GraphBase == "" {
		o.GraphBase = "https://graph.microsoft.com"
	}
	o.LoginBase = strings.TrimRight(o.LoginBase, "/")
	o.GraphBase = strings.TrimRight(o.GraphBase, "/")
}

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.TenantID) == "" || strings.TrimSpace(opts.ClientID) == "" || strings.TrimSpace(opts.ClientSecret) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "msgraph", errors.New("tenant id, client id and client secret are required"))
	}
	opts.normalize()
	return &Client{
		opts:       opts,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// LoginURL builds the authorization-code URL the user opens to sign in.
func (c *Client) LoginURL(state string) string {
	query := url.Values{
		"client_id":     {c.opts.ClientID},
		"response_type": {"code"},
		"redirect_uri":  {c.opts.RedirectURI},
		"response_mode": {"query"},
		"scope":         {scopes},
	}
	if state != "" {
		query.Set("state", state)
	}
	return fmt.Sprintf("%s/%s/oauth2/v2.0/authorize?%s", c.opts.LoginBase, c.opts.TenantID, query.Encode())
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// ExchangeCode trades the authorization code for a delegated access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "exchange_code", errors.New("authorization code is required"))
	}

	form := url.Values{
		"client_id":     {c.opts.ClientID},
		"client_secret": {c.opts.ClientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.opts.RedirectURI},
		"scope":         {scopes},
	}
	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.opts.LoginBase, c.opts.TenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("msgraph token request: %w", err)
	}
	defer resp.Body.Close()

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if resp.StatusCode >= 400 || token.AccessToken == "" {
		detail := token.Description
		if detail == "" {
			detail = token.Error
		}
		if detail == "" {
			detail = resp.Status
		}
		return "", domain.WrapError(domain.ErrUnauthorized, "exchange_code", fmt.Errorf("token exchange failed: %s", detail))
	}
	return token.AccessToken, nil
}

// UserDisplayName verifies the token against the /me profile and returns the
// signed-in user's name.
func (c *Client) UserDisplayName(ctx context.Context, accessToken string) (string, error) {
	var profile struct {
		DisplayName       string `json:"displayName"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := c.getJSON(ctx, "/v1.0/me", accessToken, &profile, "profile"); err != nil {
		return "", err
	}
	if profile.DisplayName != "" {
		return profile.DisplayName, nil
	}
	return profile.UserPrincipalName, nil
}

type driveItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	File *struct {
		MimeType string `json:"mimeType"`
	} `json:"file"`
	Folder *struct{} `json:"folder"`
}

// ListFiles returns the files in the root of the user's default drive.
// Folders are skipped.
func (c *Client) ListFiles(ctx context.Context, accessToken string) ([]domain.RemoteFile, error) {
	var listing struct {
		Value []driveItem `json:"value"`
	}
	if err := c.getJSON(ctx, "/v1.0/me/drive/root/children", accessToken, &listing, "list_files"); err != nil {
		return nil, err
	}

	files := make([]domain.RemoteFile, 0, len(listing.Value))
	for _, item := range listing.Value {
		if item.Folder != nil {
			continue
		}
		file := domain.RemoteFile{ID: item.ID, Name: item.Name, Size: item.Size}
		if item.File != nil {
			file.MimeType = item.File.MimeType
		}
		files = append(files, file)
	}
	return files, nil
}

// OpenFile streams the content of one drive item. The caller closes the
// returned reader.
func (c *Client) OpenFile(ctx context.Context, accessToken, fileID string) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/v1.0/me/drive/items/%s/content", c.opts.GraphBase, url.PathEscape(fileID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("msgraph download request: %w", err)
	}
	if err := checkStatus(resp, "download"); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) getJSON(ctx context.Context, path, accessToken string, out any, operation string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.GraphBase+path, nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("msgraph %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, operation); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func checkStatus(resp *http.Response, operation string) error {
	// Graph answers 401 for expired tokens and 403 for missing consent. Both
	// mean the user has to sign in again.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.WrapError(domain.ErrUnauthorized, operation, fmt.Errorf("msgraph status: %s", resp.Status))
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			return fmt.Errorf("msgraph %s status: %s", operation, resp.Status)
		}
		return fmt.Errorf("msgraph %s status: %s: %s", operation, resp.Status, msg)
	}
	return nil
}
