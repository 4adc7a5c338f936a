// Package bcra fetches macro rate series (CER, TAMAR) from the public
// statistics API. Series numeric ids are resolved once from the catalog
// by case-insensitive substring match on the series name.
package bcra

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	rates "github.com/FacuFre/SHD/internal/domain/entity/rates"
)

const (
	catalogPath = "/estadisticas/v3.0/monetarias"
	seriesLimit = 3000
	dateLayout  = "2006-01-02"
)

// Client talks to the statistics REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Entry

	mu      sync.Mutex
	catalog []seriesDescriptor
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a statistics client. The public API needs no token;
// pass an empty string unless the deployment gates access.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logrus.NewEntry(logrus.New()),
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

type seriesDescriptor struct {
	ID   int64  `json:"id_variable"`
	Name string `json:"nombre"`
}

type seriesPoint struct {
	Date  string  `json:"d"`
	Value float64 `json:"v"`
}

// Series fetches the points of the series whose catalog name contains
// name (case-insensitive), from the given date onward.
func (c *Client) Series(ctx context.Context, name string, from time.Time) ([]rates.Point, error) {
	id, err := c.resolveID(ctx, name)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"limit": {strconv.Itoa(seriesLimit)},
		"desde": {from.Format(dateLayout)},
	}
	target := fmt.Sprintf("%s%s/%d?%s", c.baseURL, catalogPath, id, query.Encode())

	var points []seriesPoint
	if err := c.get(ctx, target, &points); err != nil {
		return nil, fmt.Errorf("fetch series %s: %w", name, err)
	}

	out := make([]rates.Point, 0, len(points))
	for _, p := range points {
		date, err := time.Parse(dateLayout, p.Date)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"series": name,
				"date":   p.Date,
			}).Warn("skip point with malformed date")
			continue
		}
		out = append(out, rates.Point{
			Series: name,
			Date:   date,
			Value:  p.Value,
		})
	}
	return out, nil
}

// resolveID finds the numeric id of a series by substring match on its
// catalog name. The catalog is fetched once and cached.
func (c *Client) resolveID(ctx context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.catalog == nil {
		var catalog []seriesDescriptor
		if err := c.get(ctx, c.baseURL+catalogPath, &catalog); err != nil {
			return 0, fmt.Errorf("fetch series catalog: %w", err)
		}
		c.catalog = catalog
	}

	needle := strings.ToLower(name)
	for _, d := range c.catalog {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return d.ID, nil
		}
	}
	return 0, fmt.Errorf("series %q not found in catalog", name)
}

func (c *Client) get(ctx context.Context, target string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "BEARER "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("statistics api error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
