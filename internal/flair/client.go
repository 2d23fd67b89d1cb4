package flair

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"flairbridge/internal/model"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
)

// Gateway sends partial attribute updates to Flair.
type Gateway interface {
	Update(ctx context.Context, resourceType, id string, attributes, relationships map[string]interface{}) error
}

// Fetcher retrieves a full snapshot of the account.
type Fetcher interface {
	Fetch(ctx context.Context) (*model.Snapshot, error)
}

// FlairClient is everything the bridge needs from the Flair API
type FlairClient interface {
	Gateway
	Fetcher
}

// DefaultScopes are requested for the client-credentials grant.
var DefaultScopes = []string{
	"structures.view", "structures.edit",
	"rooms.view", "rooms.edit",
	"pucks.view", "pucks.edit",
	"vents.view", "vents.edit",
	"hvac-units.view", "hvac-units.edit",
	"thermostats.view", "users.view",
}

// structureCollections are fetched below every structure.
var structureCollections = []model.Collection{
	model.CollectionRooms,
	model.CollectionPucks,
	model.CollectionVents,
	model.CollectionHVACUnits,
	model.CollectionSchedules,
	model.CollectionThermostats,
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	// FetchConcurrency bounds parallel structure fetches.
	FetchConcurrency int
	Now              func() time.Time
}

// Client talks to the Flair REST API.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
	opts   Options
}

// NewClient creates a Flair API client authenticated with client credentials
func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")

	creds := clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     baseURL + "/oauth2/token",
		Scopes:       DefaultScopes,
	}

	httpClient := resty.NewWithClient(creds.Client(context.Background())).
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/vnd.api+json")

	return &Client{
		http:   httpClient,
		logger: logger.Named("flair"),
		opts:   opts,
	}
}

// Update sends one PATCH with the given attributes. Failed writes are
// returned to the caller and never retried.
func (c *Client) Update(ctx context.Context, resourceType, id string, attributes, relationships map[string]interface{}) error {
	if relationships == nil {
		relationships = map[string]interface{}{}
	}
	body := updateDocument{Data: updateData{
		Type:          resourceType,
		ID:            id,
		Attributes:    attributes,
		Relationships: relationships,
	}}
	path := fmt.Sprintf("/api/%s/%s", resourceType, id)

	c.logger.Debug("Sending update",
		zap.String("type", resourceType),
		zap.String("id", id),
		zap.Any("attributes", attributes))

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Patch(path)
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", resourceType, id, err)
	}
	if resp.IsError() {
		return &APIError{Method: "PATCH", Path: path, Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// Fetch retrieves every structure with its children and device readings.
func (c *Client) Fetch(ctx context.Context) (*model.Snapshot, error) {
	start := c.opts.Now()

	structures, err := c.list(ctx, "/api/structures")
	if err != nil {
		return nil, fmt.Errorf("failed to list structures: %w", err)
	}

	snap := model.NewSnapshot()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.FetchConcurrency)

	for _, obj := range structures {
		obj := obj
		g.Go(func() error {
			st, err := c.fetchStructure(gctx, obj)
			if err != nil {
				return err
			}
			mu.Lock()
			snap.AddStructure(st)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.FetchedAt = c.opts.Now()
	c.logger.Debug("Fetched snapshot",
		zap.Int("structures", len(snap.Structures)),
		zap.Duration("elapsed", snap.FetchedAt.Sub(start)))

	return snap, nil
}

func (c *Client) fetchStructure(ctx context.Context, obj resourceObject) (*model.Structure, error) {
	st := model.NewStructure(obj.ID)
	res := obj.toModel()
	st.Attributes = res.Attributes
	st.Relationships = res.Relationships

	for _, coll := range structureCollections {
		objs, err := c.list(ctx, fmt.Sprintf("/api/structures/%s/%s", obj.ID, coll))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s for structure %s: %w", coll, obj.ID, err)
		}
		for _, child := range objs {
			r := child.toModel()
			if coll == model.CollectionPucks || coll == model.CollectionVents {
				reading, err := c.currentReading(ctx, string(coll), child.ID)
				if err != nil {
					return nil, err
				}
				r.CurrentReading = reading
			}
			if err := st.Add(coll, r); err != nil {
				return nil, err
			}
		}
	}

	return st, nil
}

func (c *Client) currentReading(ctx context.Context, resourceType, id string) (map[string]interface{}, error) {
	doc, err := c.get(ctx, fmt.Sprintf("/api/%s/%s/current-reading", resourceType, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get current reading for %s/%s: %w", resourceType, id, err)
	}
	obj, err := decodeOne(doc)
	if err != nil {
		return nil, err
	}
	if obj == nil || obj.Attributes == nil {
		return map[string]interface{}{}, nil
	}
	return obj.Attributes, nil
}

// list follows pagination links until exhausted.
func (c *Client) list(ctx context.Context, path string) ([]resourceObject, error) {
	var all []resourceObject
	for path != "" {
		doc, err := c.get(ctx, path)
		if err != nil {
			return nil, err
		}
		objs, err := decodeList(doc)
		if err != nil {
			return nil, err
		}
		all = append(all, objs...)

		path = ""
		if doc.Links != nil {
			path = doc.Links.Next
		}
	}
	return all, nil
}

func (c *Client) get(ctx context.Context, path string) (*document, error) {
	var doc document
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&doc).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, &APIError{Method: "GET", Path: path, Status: resp.StatusCode(), Body: resp.String()}
	}
	return &doc, nil
}
