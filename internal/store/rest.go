package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const maxErrorBody = 4 << 10

// RESTClient speaks the PostgREST flavour of the table protocol.
type RESTClient struct {
	baseURL string
	apiKey  string
	token   string
	http    *http.Client
}

// NewRESTClient builds a client for baseURL (e.g. https://x.supabase.co/rest/v1).
// An empty token falls back to apiKey for the bearer credential.
func NewRESTClient(baseURL, apiKey, token string, client *http.Client) *RESTClient {
	if token == "" {
		token = apiKey
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		token:   token,
		http:    client,
	}
}

func (c *RESTClient) List(ctx context.Context, table string, opts ListOptions) ([]Record, error) {
	q := url.Values{}
	q.Set("select", "*")
	if opts.OrderBy != "" {
		dir := "asc"
		if opts.Desc {
			dir = "desc"
		}
		q.Set("order", opts.OrderBy+"."+dir)
	}

	body, err := c.do(ctx, http.MethodGet, table, q, nil, "list")
	if err != nil {
		return nil, err
	}

	rows, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: invalid response: %v", ErrStore, table, err)
	}
	return rows, nil
}

func (c *RESTClient) Create(ctx context.Context, table string, rec Record) (Record, error) {
	body, err := c.do(ctx, http.MethodPost, table, nil, []Record{rec}, "create")
	if err != nil {
		return nil, err
	}

	rows, err := decodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("%w: create %s: invalid response: %v", ErrStore, table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: create %s: empty response", ErrStore, table)
	}
	return rows[0], nil
}

func (c *RESTClient) Update(ctx context.Context, table string, id int64, patch Record) error {
	_, err := c.do(ctx, http.MethodPatch, table, idFilter(id), patch, "update")
	return err
}

func (c *RESTClient) Delete(ctx context.Context, table string, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, table, idFilter(id), nil, "delete")
	return err
}

func idFilter(id int64) url.Values {
	q := url.Values{}
	q.Set("id", fmt.Sprintf("eq.%d", id))
	return q
}

func (c *RESTClient) do(ctx context.Context, method, table string, q url.Values, payload any, op string) ([]byte, error) {
	u := c.baseURL + "/" + url.PathEscape(table)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", op, table, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, op, table, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrTransport, op, table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: read body: %v", ErrTransport, op, table, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, &StoreError{Op: op, Table: table, Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
