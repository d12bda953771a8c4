package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/agyemangopoku/farmlink-backend/internal/fulfillment"
	"github.com/agyemangopoku/farmlink-backend/pkg/config"
	"github.com/agyemangopoku/farmlink-backend/pkg/errors"
)

// RailClient moves money over the treasury transfer service.
type RailClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRailClient builds a payment rail client from config.
func NewRailClient(cfg config.IntegrationsConfig) (*RailClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.RailBaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("payment rail base url is required")
	}
	return &RailClient{
		baseURL: base,
		apiKey:  cfg.RailAPIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type transferRequest struct {
	Amount             decimal.Decimal `json:"amount"`
	DestinationAccount string          `json:"destination_account"`
	Reference          string          `json:"reference"`
}

type transferResponse struct {
	Success     bool   `json:"success"`
	ReferenceID string `json:"reference_id"`
}

// ExecuteTransfer submits one transfer. The reference doubles as the rail's
// dedupe key, so retrying with the same invoice number is safe.
func (c *RailClient) ExecuteTransfer(ctx context.Context, amount decimal.Decimal, destinationAccount string, reference string) (fulfillment.TransferResult, error) {
	payload, err := json.Marshal(transferRequest{
		Amount:             amount,
		DestinationAccount: destinationAccount,
		Reference:          reference,
	})
	if err != nil {
		return fulfillment.TransferResult{}, errors.Wrap(errors.CodeDependency, err, "encoding transfer request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(payload))
	if err != nil {
		return fulfillment.TransferResult{}, errors.Wrap(errors.CodeDependency, err, "building transfer request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", reference)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fulfillment.TransferResult{}, errors.Wrap(errors.CodeDependency, err, "calling payment rail")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fulfillment.TransferResult{}, errors.New(errors.CodeDependency, "payment rail returned an error").WithDetails(map[string]any{"status": resp.StatusCode})
	}

	var body transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fulfillment.TransferResult{}, errors.Wrap(errors.CodeDependency, err, "decoding transfer response")
	}
	return fulfillment.TransferResult{Success: body.Success, ReferenceID: body.ReferenceID}, nil
}
