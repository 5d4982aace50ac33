package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"bloc-editor/internal/bloc"
	"bloc-editor/internal/errors"

	"github.com/goccy/go-json"
	"golang.org/x/xerrors"
)

// Client is a bloc.Store talking to the bloc HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ bloc.Store = (*Client)(nil)

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (c *Client) path(format string, args ...any) string {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = url.PathEscape(fmt.Sprint(a))
	}
	return c.baseURL + fmt.Sprintf(format, escaped...)
}

// do sends payload as JSON and decodes the response into out when non-nil.
func (c *Client) do(ctx context.Context, method, target string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		var apiErr errors.APIError
		if json.Unmarshal(b, &apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = string(b)
		}
		return errors.New(resp.StatusCode, apiErr.Message,
			xerrors.Errorf("bloc api %s %s: status=%d", method, target, resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type idResponse struct {
	ID string `json:"id"`
}

type statusResponse struct {
	Status bloc.Status `json:"status"`
}

type updatedResponse struct {
	Updated bool `json:"updated"`
}

type deletedResponse struct {
	Deleted bool `json:"deleted"`
}

func (c *Client) CreateBloc(ctx context.Context, b *bloc.Bloc) (string, error) {
	payload := bloc.CreateBlocRequest{
		ID:        b.ID,
		Position:  b.Position,
		Content:   b.Content,
		BlocType:  b.BlocType,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	var res idResponse
	if err := c.do(ctx, http.MethodPost, c.path("/pages/%s/blocs", b.PageID), payload, &res); err != nil {
		return "", err
	}
	return res.ID, nil
}

func (c *Client) UpdateBloc(ctx context.Context, b *bloc.Bloc) (bool, error) {
	payload := bloc.UpdateBlocRequest{
		Position:  b.Position,
		Content:   b.Content,
		BlocType:  b.BlocType,
		UpdatedAt: b.UpdatedAt,
	}
	var res updatedResponse
	err := c.do(ctx, http.MethodPut, c.path("/blocs/%s", b.ID), payload, &res)
	return res.Updated, err
}

func (c *Client) UpdateBlocContent(ctx context.Context, id, content string, updatedAt int64) (bloc.Status, error) {
	payload := bloc.UpdateContentRequest{Content: content, UpdatedAt: updatedAt}
	var res statusResponse
	if err := c.do(ctx, http.MethodPut, c.path("/blocs/%s/content", id), payload, &res); err != nil {
		return bloc.StatusError, err
	}
	return res.Status, nil
}

func (c *Client) UpdateBlocPosition(ctx context.Context, id, position string, updatedAt int64) (bloc.Status, error) {
	payload := bloc.UpdatePositionRequest{Position: position, UpdatedAt: updatedAt}
	var res statusResponse
	if err := c.do(ctx, http.MethodPut, c.path("/blocs/%s/position", id), payload, &res); err != nil {
		return bloc.StatusError, err
	}
	return res.Status, nil
}

func (c *Client) UpdateBlocPageID(ctx context.Context, id, pageID string) (bool, error) {
	var res updatedResponse
	err := c.do(ctx, http.MethodPut, c.path("/blocs/%s/page", id), bloc.UpdatePageRequest{PageID: pageID}, &res)
	return res.Updated, err
}

func (c *Client) DeleteBloc(ctx context.Context, id string) (bool, error) {
	var res deletedResponse
	err := c.do(ctx, http.MethodDelete, c.path("/blocs/%s", id), nil, &res)
	return res.Deleted, err
}

func (c *Client) DeleteBlocByPageID(ctx context.Context, pageID string) (bool, error) {
	var res deletedResponse
	err := c.do(ctx, http.MethodDelete, c.path("/pages/%s/blocs", pageID), nil, &res)
	return res.Deleted, err
}

func (c *Client) GetChecksum(ctx context.Context, id string) (string, error) {
	var res struct {
		Checksum string `json:"checksum"`
	}
	err := c.do(ctx, http.MethodGet, c.path("/blocs/%s/checksum", id), nil, &res)
	return res.Checksum, err
}

func (c *Client) GetBlocByID(ctx context.Context, id string) (*bloc.Bloc, error) {
	var b bloc.Bloc
	if err := c.do(ctx, http.MethodGet, c.path("/blocs/%s", id), nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *Client) GetBlocsByPageID(ctx context.Context, pageID string) ([]bloc.Bloc, error) {
	blocs := []bloc.Bloc{}
	if err := c.do(ctx, http.MethodGet, c.path("/pages/%s/blocs", pageID), nil, &blocs); err != nil {
		return nil, err
	}
	return blocs, nil
}
