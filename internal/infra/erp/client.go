// Package erp implements the remote ledger client against the accounting
// ERP's HTTP API.
package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dimesagro/finance-sync-go/internal/domain"
	"github.com/dimesagro/finance-sync-go/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("infra/erp")

// Client pushes invoices and payments to the remote ledger and probes its
// availability. All calls go through retry + circuit breaker.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
}

// NewClient creates a remote ledger client.
func NewClient(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		cfg:        cfg,
	}
}

// remoteError is the ERP's error body.
type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendInvoice pushes one invoice to the remote ledger.
// The Idempotency-Key header is derived from the local record id, so a
// resend after a crash between remote-success and local-persist cannot
// create a duplicate remote document.
func (c *Client) SendInvoice(ctx context.Context, inv *domain.Invoice) (*domain.RemoteAck, error) {
	ctx, span := tracer.Start(ctx, "ERPClient.SendInvoice")
	defer span.End()
	span.SetAttributes(attribute.String("invoice.number", inv.InvoiceNumber))

	return c.send(ctx, "/v1/invoices", "invoice:"+inv.ID, inv)
}

// SendPayment pushes one payment to the remote ledger.
func (c *Client) SendPayment(ctx context.Context, p *domain.Payment) (*domain.RemoteAck, error) {
	ctx, span := tracer.Start(ctx, "ERPClient.SendPayment")
	defer span.End()
	span.SetAttributes(attribute.String("payment.number", p.PaymentNumber))

	return c.send(ctx, "/v1/payments", "payment:"+p.ID, p)
}

func (c *Client) send(ctx context.Context, path, idempotencyKey string, record any) (*domain.RemoteAck, error) {
	var ack domain.RemoteAck

	result, err := c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			body, err := json.Marshal(record)
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Idempotency-Key", idempotencyKey)
			if c.apiKey != "" {
				req.Header.Set("Authorization", "Bearer "+c.apiKey)
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 400 {
				var re remoteError
				if decErr := json.NewDecoder(resp.Body).Decode(&re); decErr != nil || re.Message == "" {
					re.Message = fmt.Sprintf("remote ledger returned status %d", resp.StatusCode)
				}
				if re.Code == "" {
					re.Code = fmt.Sprintf("HTTP_%d", resp.StatusCode)
				}
				return &domain.ErrExternalSync{Code: re.Code, Message: re.Message}
			}

			return json.NewDecoder(resp.Body).Decode(&ack)
		})
		if innerErr != nil {
			return nil, innerErr
		}
		return &ack, nil
	})

	if err != nil {
		return nil, c.wrapError(err)
	}
	return result.(*domain.RemoteAck), nil
}

// SystemStatus probes the ERP availability endpoint. A transport failure is
// reported as unavailable, not as an error.
func (c *Client) SystemStatus(ctx context.Context) (bool, error) {
	ctx, span := tracer.Start(ctx, "ERPClient.SystemStatus")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/status", nil)
	if err != nil {
		return false, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	var status struct {
		IsAvailable bool `json:"isAvailable"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false, nil
	}
	return status.IsAvailable, nil
}

// wrapError normalizes breaker and context errors into domain errors so the
// sync coordinator can classify them for the audit trail.
func (c *Client) wrapError(err error) error {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return &domain.ErrCircuitOpen{Service: "erp"}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: "erp send"}
	}

	var external *domain.ErrExternalSync
	if errors.As(err, &external) {
		return external
	}
	return &domain.ErrExternalSync{Code: "UNKNOWN", Message: err.Error(), Err: err}
}
