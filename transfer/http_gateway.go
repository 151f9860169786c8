package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stakeledger/metrics"
	"stakeledger/models"
)

// HTTPGateway is a client for the external value-transfer service. Transfers
// are synchronous: the response status is the success/failure signal, and the
// caller's transaction commits or rolls back on it.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPGateway creates a new transfer gateway for the given base URL
func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type transferRequest struct {
	AccountID int64 `json:"account_id"`
	Amount    int64 `json:"amount"`
}

// TransferIn pulls amount from the account into custody
func (g *HTTPGateway) TransferIn(ctx context.Context, accountID int64, amount int64) error {
	if err := g.post(ctx, "/v1/transfers/in", accountID, amount); err != nil {
		metrics.TransferFailures.WithLabelValues("in").Inc()
		return err
	}
	return nil
}

// TransferOut pays amount out to the account
func (g *HTTPGateway) TransferOut(ctx context.Context, accountID int64, amount int64) error {
	if err := g.post(ctx, "/v1/transfers/out", accountID, amount); err != nil {
		metrics.TransferFailures.WithLabelValues("out").Inc()
		return err
	}
	return nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, accountID, amount int64) error {
	body, err := json.Marshal(transferRequest{AccountID: accountID, Amount: amount})
	if err != nil {
		return fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrTransferFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", models.ErrTransferFailed, resp.StatusCode, detail)
	}

	return nil
}
