// Package article is the persistence adapter between editing sessions and
// the newspaper REST backend.
package article

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/starford/gaceta/internal/apperr"
	"github.com/starford/gaceta/internal/models"
)

// Backend routes. They belong to the backend and are not configurable.
const (
	profilePath = "/api/perfil"
	articlePath = "/api/noticias/{id}"
	uploadPath  = "/api/imagenes"
)

type tokenKey struct{}

// WithToken returns a context carrying the principal's bearer token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the bearer token stored by WithToken.
func TokenFrom(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// Client is a REST client for the backend. It never retries.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	return &Client{http: c}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if tok := TokenFrom(ctx); tok != "" {
		req.SetAuthToken(tok)
	}
	return req
}

// Profile fetches the acting principal.
func (c *Client) Profile(ctx context.Context) (*models.Profile, error) {
	resp, err := c.request(ctx).Get(profilePath)
	if err := classify(resp, err); err != nil {
		return nil, fmt.Errorf("article: profile: %w", err)
	}
	var p models.Profile
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return nil, fmt.Errorf("article: decode profile: %w", err)
	}
	return &p, nil
}

// GetArticle fetches the raw fields of an article.
func (c *Client) GetArticle(ctx context.Context, id string) (map[string]any, error) {
	resp, err := c.request(ctx).SetPathParam("id", id).Get(articlePath)
	if err := classify(resp, err); err != nil {
		return nil, fmt.Errorf("article: get %s: %w", id, err)
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(resp.Body(), &fields); err != nil {
		return nil, fmt.Errorf("article: decode %s: %w", id, err)
	}
	return fields, nil
}

// PutArticle replaces the fields of an article.
func (c *Client) PutArticle(ctx context.Context, id string, fields map[string]any) error {
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetHeader("Content-Type", "application/json").
		SetBody(fields).
		Put(articlePath)
	if err := classify(resp, err); err != nil {
		return fmt.Errorf("article: put %s: %w", id, err)
	}
	return nil
}

type uploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// UploadImage posts r as a multipart file and returns the stored URL.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader) (string, error) {
	resp, err := c.request(ctx).SetFileReader("file", filename, r).Post(uploadPath)
	if err := classify(resp, err); err != nil {
		return "", fmt.Errorf("article: upload %s: %w", filename, err)
	}
	var out uploadResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("article: decode upload response: %w", err)
	}
	if !out.Success || out.URL == "" {
		return "", fmt.Errorf("article: upload %s: backend reported failure", filename)
	}
	return out.URL, nil
}

// classify maps a transport error or HTTP status onto the apperr taxonomy.
func classify(resp *resty.Response, err error) error {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", apperr.ErrNetwork, err)
	}
	code := resp.StatusCode()
	switch {
	case code < 400:
		return nil
	case code == http.StatusUnauthorized:
		return apperr.ErrUnauthenticated
	case code == http.StatusForbidden:
		return apperr.ErrUnauthorized
	case code == http.StatusNotFound:
		return apperr.ErrNotFound
	case code == http.StatusConflict:
		return apperr.ErrConflict
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return validationError(resp.Body())
	case code >= 500:
		return fmt.Errorf("%w: backend returned %d", apperr.ErrNetwork, code)
	default:
		return fmt.Errorf("backend returned %d: %s", code, strings.TrimSpace(resp.String()))
	}
}

// validationError reads field messages from either {"errors": {...}} or a
// flat object, where each value is a message or a list of messages.
func validationError(body []byte) error {
	fields := make(map[string]string)
	if gjson.ValidBytes(body) {
		root := gjson.ParseBytes(body)
		if errs := root.Get("errors"); errs.IsObject() {
			root = errs
		}
		root.ForEach(func(k, v gjson.Result) bool {
			if msg := message(v); msg != "" {
				fields[k.String()] = msg
			}
			return true
		})
	}
	if len(fields) == 0 {
		fields["detail"] = "the backend rejected the article"
	}
	return &apperr.ValidationError{Fields: fields}
}

func message(v gjson.Result) string {
	if v.IsArray() {
		var parts []string
		for _, item := range v.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	if v.IsObject() {
		return ""
	}
	return strings.TrimSpace(v.String())
}
