// Package ontology talks to the ontology collaborator service. The
// pipeline only consumes it: metatype and relationship-pair lookups for
// validating key mappings, and version counterparts for mapping upgrades.
package ontology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Metatype describes a node type and its required property set.
type Metatype struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Version            string   `json:"version"`
	RequiredProperties []string `json:"required_properties"`
}

// RelationshipPair describes an edge type between two metatypes.
type RelationshipPair struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	Version               string   `json:"version"`
	OriginMetatypeID      string   `json:"origin_metatype_id"`
	DestinationMetatypeID string   `json:"destination_metatype_id"`
	RequiredProperties    []string `json:"required_properties"`
}

// Resolver is the contract the pipeline depends on. The HTTP client
// implements it; tests substitute fakes.
type Resolver interface {
	Metatype(ctx context.Context, id string) (*Metatype, error)
	RelationshipPair(ctx context.Context, id string) (*RelationshipPair, error)
	// Counterpart resolves the identifier of the same metatype or
	// relationship pair in another ontology version.
	Counterpart(ctx context.Context, id, targetVersion string) (string, error)
}

// HTTPClient is a Resolver backed by the ontology service's REST API.
type HTTPClient struct {
	BaseURL    string
	HttpClient *http.Client
}

// NewHTTPClient creates a client with a bounded request timeout.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL:    baseURL,
		HttpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Metatype fetches one metatype by id.
func (c *HTTPClient) Metatype(ctx context.Context, id string) (*Metatype, error) {
	var mt Metatype
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/v1/metatypes/%s", c.BaseURL, id), &mt); err != nil {
		return nil, err
	}
	return &mt, nil
}

// RelationshipPair fetches one relationship pair by id.
func (c *HTTPClient) RelationshipPair(ctx context.Context, id string) (*RelationshipPair, error) {
	var pair RelationshipPair
	if err := c.getJSON(ctx, fmt.Sprintf("%s/api/v1/relationship-pairs/%s", c.BaseURL, id), &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Counterpart resolves a reference into a target ontology version.
func (c *HTTPClient) Counterpart(ctx context.Context, id, targetVersion string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	url := fmt.Sprintf("%s/api/v1/counterparts/%s?version=%s", c.BaseURL, id, targetVersion)
	if err := c.getJSON(ctx, url, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.Errorf("no counterpart for %s in ontology version %s", id, targetVersion)
	}
	return out.ID, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "creating ontology request")
	}

	resp, err := c.HttpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "calling ontology service at %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("ontology service returned status %d for %s", resp.StatusCode, url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding ontology response")
	}
	return nil
}
