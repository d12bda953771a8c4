package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/agyemangopoku/farmlink-backend/internal/recommendation"
	"github.com/agyemangopoku/farmlink-backend/pkg/config"
	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/errors"
)

// DirectoryClient reads eligibility data from the national farm registry.
type DirectoryClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewDirectoryClient builds a directory client from config.
func NewDirectoryClient(cfg config.IntegrationsConfig) (*DirectoryClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.DirectoryBaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("directory base url is required")
	}
	return &DirectoryClient{
		baseURL: base,
		apiKey:  cfg.DirectoryAPIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type farmListResponse struct {
	Farms []recommendation.Farm `json:"farms"`
}

// LookupEligibleFarms returns approved farms carrying live inventory of the
// requested product type.
func (c *DirectoryClient) LookupEligibleFarms(ctx context.Context, productType enums.ProductType) ([]recommendation.Farm, error) {
	endpoint := fmt.Sprintf("%s/v1/farms?product_type=%s&approval_status=approved", c.baseURL, url.QueryEscape(productType.String()))

	var body farmListResponse
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}
	return body.Farms, nil
}

type distressResponse struct {
	Score int `json:"score"`
}

// GetDistressScore returns the registry's composite distress score for one farm.
func (c *DirectoryClient) GetDistressScore(ctx context.Context, farmID uuid.UUID) (int, error) {
	endpoint := fmt.Sprintf("%s/v1/farms/%s/distress", c.baseURL, farmID)

	var body distressResponse
	if err := c.getJSON(ctx, endpoint, &body); err != nil {
		return 0, err
	}
	return body.Score, nil
}

func (c *DirectoryClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "building directory request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(errors.CodeDependency, err, "calling farm directory")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.CodeDependency, "farm directory returned an error").WithDetails(map[string]any{"status": resp.StatusCode})
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "decoding directory response")
	}
	return nil
}
