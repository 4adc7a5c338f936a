// Package tablestore implements the remote table-store collaborator: a
// REST endpoint accepting JSON rows with insert-only and upsert-by-key
// write modes.
package tablestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	interfaces "github.com/FacuFre/SHD/internal/domain/interfaces"
)

const restPrefix = "/rest/v1/"

// Client talks to the table-store REST API. Safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logrus.Entry

	now func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a table-store client for the given base URL and key.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logrus.NewEntry(logrus.New()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Entry) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Insert posts all rows to the table in one batched request with
// insert-only semantics. No-op on empty input.
func (c *Client) Insert(ctx context.Context, table string, rows []interfaces.Row) error {
	if len(rows) == 0 {
		return nil
	}
	stamp := c.now()
	payload := make([]interfaces.Row, 0, len(rows))
	for _, row := range rows {
		payload = append(payload, normalizeRow(row, stamp))
	}
	if err := c.post(ctx, c.tableURL(table, nil), payload); err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	c.logger.WithFields(logrus.Fields{
		"table": table,
		"rows":  len(rows),
	}).Info("rows inserted")
	return nil
}

// Upsert posts rows one by one with conflict resolution on key. A failed
// row is logged and skipped; the remaining rows are still sent. The
// per-row errors are joined into the returned error.
func (c *Client) Upsert(ctx context.Context, table, key string, rows []interfaces.Row) error {
	if len(rows) == 0 {
		return nil
	}
	query := url.Values{"on_conflict": {key}}
	target := c.tableURL(table, query)

	stamp := c.now()
	var errs []error
	sent := 0
	for _, row := range rows {
		if err := c.postOne(ctx, target, normalizeRow(row, stamp)); err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"table":  table,
				"symbol": row["symbol"],
			}).Warn("row upsert failed")
			errs = append(errs, err)
			continue
		}
		sent++
	}
	c.logger.WithFields(logrus.Fields{
		"table":  table,
		"rows":   sent,
		"failed": len(errs),
	}).Info("rows upserted")
	return errors.Join(errs...)
}

// DeleteAll removes every row whose key column is non-empty, i.e. the
// whole table for key columns that are always populated.
func (c *Client) DeleteAll(ctx context.Context, table, key string) error {
	query := url.Values{key: {"neq."}}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.tableURL(table, query), nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	c.setHeaders(req)
	if _, err := c.do(req); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}

// Select reads up to limit rows from the table.
func (c *Client) Select(ctx context.Context, table string, limit int) ([]interfaces.Row, error) {
	query := url.Values{
		"select": {"*"},
		"limit":  {strconv.Itoa(limit)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.tableURL(table, query), nil)
	if err != nil {
		return nil, fmt.Errorf("create select request: %w", err)
	}
	c.setHeaders(req)
	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", table, err)
	}
	var rows []interfaces.Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode rows from %s: %w", table, err)
	}
	return rows, nil
}

func (c *Client) post(ctx context.Context, target string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rows: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	_, err = c.do(req)
	return err
}

func (c *Client) postOne(ctx context.Context, target string, row interfaces.Row) error {
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("marshal row: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", "resolution=merge-duplicates")
	_, err = c.do(req)
	return err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &interfaces.StoreError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

func (c *Client) tableURL(table string, query url.Values) string {
	target := c.baseURL + restPrefix + table
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target
}
