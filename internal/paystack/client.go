// Package paystack is a thin client for the Paystack payment gateway.
// The core only uses it to move money across the platform boundary; wallet
// balances are always mutated locally through the ledger, never inferred
// from gateway state.
package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client encapsulates HTTP interaction with the Paystack API.
type Client struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
}

// NewClient creates a gateway client. webhookSecret falls back to the secret
// key, matching Paystack's default webhook signing behavior.
func NewClient(baseURL, secretKey, webhookSecret string) *Client {
	if webhookSecret == "" {
		webhookSecret = secretKey
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Charge is the result of initializing a payment.
type Charge struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// ChargeStatus is the result of verifying a payment.
type ChargeStatus struct {
	Status    string `json:"status"` // "success", "failed", "abandoned"
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"` // minor units
	Currency  string `json:"currency"`
}

// Recipient identifies a payout destination registered with the gateway.
type Recipient struct {
	RecipientCode string `json:"recipient_code"`
}

// Transfer is the result of initiating a payout.
type Transfer struct {
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
	Reference    string `json:"reference"`
}

// InitializeCharge starts a payment for the given email and minor-unit
// amount, returning the redirect URL the payer must visit. Metadata is
// echoed back in webhook events, which is how a settlement is traced back
// to an internal user.
func (c *Client) InitializeCharge(ctx context.Context, email string, amount int64, reference, callbackURL string, metadata map[string]string) (*Charge, error) {
	payload := map[string]interface{}{
		"email":     email,
		"amount":    amount,
		"reference": reference,
	}
	if callbackURL != "" {
		payload["callback_url"] = callbackURL
	}
	if len(metadata) > 0 {
		payload["metadata"] = metadata
	}

	var charge Charge
	if err := c.post(ctx, "/transaction/initialize", payload, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// VerifyCharge looks up the settlement status of a payment reference.
func (c *Client) VerifyCharge(ctx context.Context, reference string) (*ChargeStatus, error) {
	var status ChargeStatus
	if err := c.get(ctx, "/transaction/verify/"+reference, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CreateTransferRecipient registers a bank account as a payout destination.
func (c *Client) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode, currency string) (*Recipient, error) {
	payload := map[string]interface{}{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       currency,
	}

	var recipient Recipient
	if err := c.post(ctx, "/transferrecipient", payload, &recipient); err != nil {
		return nil, err
	}
	return &recipient, nil
}

// InitiateTransfer starts a payout of the given minor-unit amount to a
// previously created recipient.
func (c *Client) InitiateTransfer(ctx context.Context, recipientCode string, amount int64, reference, reason string) (*Transfer, error) {
	payload := map[string]interface{}{
		"source":    "balance",
		"recipient": recipientCode,
		"amount":    amount,
		"reference": reference,
		"reason":    reason,
	}

	var transfer Transfer
	if err := c.post(ctx, "/transfer", payload, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// VerifyWebhookSignature checks the X-Paystack-Signature header against the
// HMAC-SHA512 of the raw payload, using a constant-time compare.
func (c *Client) VerifyWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(c.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || !envelope.Status {
		return fmt.Errorf("gateway error (%d): %s", resp.StatusCode, envelope.Message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
