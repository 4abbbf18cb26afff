// Package hopsworks talks to the Hopsworks REST API for feature-store teardown.
package hopsworks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i474232898/energy-price-forecast/internal/featurestore"
	"github.com/i474232898/energy-price-forecast/internal/transport"
)

// Config identifies the project and its stores.
type Config struct {
	Host            string // e.g. https://c.app.hopsworks.ai
	APIKey          string
	ProjectID       int
	FeatureStoreID  int
	ModelRegistryID int
}

// Client implements the featurestore admin capabilities over REST.
type Client struct {
	cfg  Config
	http *transport.Client
}

func NewClient(cfg Config, client *transport.Client) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("hopsworks host is not configured")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("hopsworks api key is not configured")
	}
	if cfg.ModelRegistryID == 0 {
		// The project's own registry shares its id.
		cfg.ModelRegistryID = cfg.ProjectID
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	return &Client{cfg: cfg, http: client}, nil
}

// versioned is the common shape of feature group, view and model DTOs.
// Model ids are strings, everything else is numeric.
type versioned struct {
	ID      json.RawMessage `json:"id"`
	Name    string          `json:"name"`
	Version int             `json:"version"`
}

func (v versioned) id() string {
	return strings.Trim(string(v.ID), `"`)
}

type itemList struct {
	Items []versioned `json:"items"`
}

func (c *Client) FeatureGroups(ctx context.Context, name string) ([]featurestore.Resource, error) {
	var groups []versioned
	if err := c.getJSON(ctx, c.featureStorePath("featuregroups", url.PathEscape(name)), &groups, featurestore.KindFeatureGroup, name); err != nil {
		return nil, ignoreMissing(err)
	}
	return toResources(featurestore.KindFeatureGroup, groups), nil
}

func (c *Client) FeatureViews(ctx context.Context, name string) ([]featurestore.Resource, error) {
	var views itemList
	if err := c.getJSON(ctx, c.featureStorePath("featureview", url.PathEscape(name)), &views, featurestore.KindFeatureView, name); err != nil {
		return nil, ignoreMissing(err)
	}
	return toResources(featurestore.KindFeatureView, views.Items), nil
}

func (c *Client) Models(ctx context.Context, name string) ([]featurestore.Resource, error) {
	q := url.Values{}
	q.Set("filter_by", "name_eq:"+name)
	path := c.projectPath("modelregistries", strconv.Itoa(c.cfg.ModelRegistryID), "models") + "?" + q.Encode()

	var models itemList
	if err := c.getJSON(ctx, path, &models, featurestore.KindModel, name); err != nil {
		return nil, ignoreMissing(err)
	}
	return toResources(featurestore.KindModel, models.Items), nil
}

// Delete removes one version of a feature group or feature view.
func (c *Client) Delete(ctx context.Context, r featurestore.Resource) error {
	switch r.Kind {
	case featurestore.KindFeatureGroup:
		// Groups are deleted by id, so resolve the version first.
		var groups []versioned
		if err := c.getJSON(ctx, c.featureStorePath("featuregroups", url.PathEscape(r.Name))+"?version="+strconv.Itoa(r.Version), &groups, r.Kind, r.Name); err != nil {
			return err
		}
		for _, g := range groups {
			if g.Version == r.Version {
				return c.delete(ctx, c.featureStorePath("featuregroups", g.id()), r)
			}
		}
		return featurestore.NotFound(r.Kind, r.String())
	case featurestore.KindFeatureView:
		return c.delete(ctx, c.featureStorePath("featureview", url.PathEscape(r.Name), "version", strconv.Itoa(r.Version)), r)
	default:
		return fmt.Errorf("hopsworks: cannot delete %s through the feature store", r.Kind)
	}
}

func (c *Client) DeleteModel(ctx context.Context, r featurestore.Resource) error {
	id := fmt.Sprintf("%s_%d", r.Name, r.Version)
	return c.delete(ctx, c.projectPath("modelregistries", strconv.Itoa(c.cfg.ModelRegistryID), "models", url.PathEscape(id)), r)
}

func (c *Client) DeleteSecret(ctx context.Context, name string) error {
	return c.delete(ctx, c.cfg.Host+"/hopsworks-api/api/users/secrets/"+url.PathEscape(name),
		featurestore.Resource{Kind: featurestore.KindSecret, Name: name})
}

func (c *Client) projectPath(parts ...string) string {
	return fmt.Sprintf("%s/hopsworks-api/api/project/%d/%s", c.cfg.Host, c.cfg.ProjectID, strings.Join(parts, "/"))
}

func (c *Client) featureStorePath(parts ...string) string {
	return c.projectPath(append([]string{"featurestores", strconv.Itoa(c.cfg.FeatureStoreID)}, parts...)...)
}

func (c *Client) request(method, rawURL string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "ApiKey "+c.cfg.APIKey)
		req.Header.Set("Accept", "application/json")
		return req, nil
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out any, kind featurestore.Kind, name string) error {
	body, err := c.http.Do(ctx, c.request(http.MethodGet, rawURL))
	if err != nil {
		return classify(err, kind, name)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: hopsworks %s %q payload: %w", transport.ErrNetwork, kind, name, err)
	}
	return nil
}

func (c *Client) delete(ctx context.Context, rawURL string, r featurestore.Resource) error {
	_, err := c.http.Do(ctx, c.request(http.MethodDelete, rawURL))
	if err != nil {
		return classify(err, r.Kind, r.String())
	}
	return nil
}

// classify maps a 404 to ErrResourceNotFound and leaves anything else as is.
func classify(err error, kind featurestore.Kind, name string) error {
	if transport.IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("%w: %v", featurestore.NotFound(kind, name), err)
	}
	return err
}

// ignoreMissing turns a missing collection into an empty listing.
func ignoreMissing(err error) error {
	if errors.Is(err, featurestore.ErrResourceNotFound) {
		return nil
	}
	return err
}

func toResources(kind featurestore.Kind, in []versioned) []featurestore.Resource {
	out := make([]featurestore.Resource, 0, len(in))
	for _, v := range in {
		out = append(out, featurestore.Resource{Kind: kind, Name: v.Name, Version: v.Version})
	}
	return out
}
