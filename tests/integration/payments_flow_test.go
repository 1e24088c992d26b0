package integration

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chamapool/internal/models"
)

// fakeGateway is a minimal Paystack stand-in for the endpoints the app calls.
func fakeGateway(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/transaction/initialize", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":true,"message":"Authorization URL created","data":{
			"authorization_url":"https://checkout.paystack.test/abc123",
			"access_code":"abc123","reference":"TOP-TESTREF1"}}`)
	})
	mux.HandleFunc("/transaction/verify/", func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimPrefix(r.URL.Path, "/transaction/verify/")
		fmt.Fprintf(w, `{"status":true,"message":"Verification successful","data":{
			"status":"success","reference":%q,"amount":2500000,"currency":"KES"}}`, ref)
	})
	mux.HandleFunc("/transferrecipient", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":true,"message":"Transfer recipient created","data":{
			"recipient_code":"RCP_testrecipient"}}`)
	})
	mux.HandleFunc("/transfer", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":true,"message":"Transfer has been queued","data":{
			"transfer_code":"TRF_testtransfer","status":"pending","reference":"WDL-TESTREF"}}`)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func signWebhook(payload string) string {
	mac := hmac.New(sha512.New, []byte(testWebhookSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestTopUpVerifyFlow(t *testing.T) {
	gateway := fakeGateway(t)
	app := setupApp(t, gateway.URL)

	token, userID := app.provisionUser(t, "topup-user", 0)

	rec := app.request("POST", "/api/v1/payments/topup", `{"amount":2500000}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("topup init failed: %d %s", rec.Code, rec.Body.String())
	}
	charge := parseJSON(t, rec)["charge"].(map[string]interface{})
	if charge["authorization_url"] == "" {
		t.Error("expected an authorization URL")
	}

	rec = app.request("GET", "/api/v1/payments/verify/TOP-TESTREF1", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify failed: %d %s", rec.Code, rec.Body.String())
	}

	var wallet models.Wallet
	app.DB.Where("user_id = ?", userID).First(&wallet)
	if wallet.Balance != 2_500_000 {
		t.Errorf("expected balance 2500000 after verify, got %d", wallet.Balance)
	}

	// Verifying again must not credit twice
	rec = app.request("GET", "/api/v1/payments/verify/TOP-TESTREF1", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("re-verify failed: %d %s", rec.Code, rec.Body.String())
	}
	app.DB.Where("user_id = ?", userID).First(&wallet)
	if wallet.Balance != 2_500_000 {
		t.Errorf("expected balance unchanged on re-verify, got %d", wallet.Balance)
	}
}

func TestWebhookFlow(t *testing.T) {
	t.Run("charge_success_credits_wallet", func(t *testing.T) {
		app := setupApp(t, "")
		_, userID := app.provisionUser(t, "webhook-user", 0)

		payload := fmt.Sprintf(`{"event":"charge.success","data":{
			"reference":"TOP-HOOK0001","amount":1500000,"status":"success",
			"metadata":{"user_id":%q}}}`, userID)

		req := httptest.NewRequest("POST", "/api/v1/payments/webhook", strings.NewReader(payload))
		req.Header.Set("X-Paystack-Signature", signWebhook(payload))
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("webhook failed: %d %s", rec.Code, rec.Body.String())
		}

		var wallet models.Wallet
		app.DB.Where("user_id = ?", userID).First(&wallet)
		if wallet.Balance != 1_500_000 {
			t.Errorf("expected balance 1500000 after webhook, got %d", wallet.Balance)
		}

		// Redelivery of the same event is a no-op
		req = httptest.NewRequest("POST", "/api/v1/payments/webhook", strings.NewReader(payload))
		req.Header.Set("X-Paystack-Signature", signWebhook(payload))
		rec = httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("webhook redelivery failed: %d %s", rec.Code, rec.Body.String())
		}
		app.DB.Where("user_id = ?", userID).First(&wallet)
		if wallet.Balance != 1_500_000 {
			t.Errorf("expected balance unchanged on redelivery, got %d", wallet.Balance)
		}
	})

	t.Run("rejects_bad_signature", func(t *testing.T) {
		app := setupApp(t, "")
		payload := `{"event":"charge.success","data":{"reference":"TOP-FORGED","amount":9900000}}`

		req := httptest.NewRequest("POST", "/api/v1/payments/webhook", strings.NewReader(payload))
		req.Header.Set("X-Paystack-Signature", "deadbeef")
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for forged signature, got %d", rec.Code)
		}
	})

	t.Run("ignores_other_events", func(t *testing.T) {
		app := setupApp(t, "")
		payload := `{"event":"transfer.success","data":{"reference":"TRF-123"}}`

		req := httptest.NewRequest("POST", "/api/v1/payments/webhook", strings.NewReader(payload))
		req.Header.Set("X-Paystack-Signature", signWebhook(payload))
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 acknowledging unrelated event, got %d", rec.Code)
		}
	})
}

func TestWithdrawalTransferFlow(t *testing.T) {
	gateway := fakeGateway(t)
	app := setupApp(t, gateway.URL)

	token, userID := app.provisionUser(t, "transfer-user", 40_000_00)

	rec := app.request("POST", "/api/v1/wallet/withdrawals", `{"amount":1500000,"reason":"school fees"}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("withdrawal request failed: %d %s", rec.Code, rec.Body.String())
	}
	withdrawal := parseJSON(t, rec)["withdrawal"].(map[string]interface{})
	withdrawalID := withdrawal["id"].(string)

	// Requesting alone holds no funds
	var wallet models.Wallet
	app.DB.Where("user_id = ?", userID).First(&wallet)
	if wallet.Balance != 40_000_00 {
		t.Errorf("expected untouched balance 4000000, got %d", wallet.Balance)
	}

	rec = app.request("POST", "/api/v1/payments/withdrawals/"+withdrawalID+"/transfer",
		`{"account_name":"Test User","account_number":"0123456789","bank_code":"044"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer failed: %d %s", rec.Code, rec.Body.String())
	}
	processed := parseJSON(t, rec)["withdrawal"].(map[string]interface{})
	if processed["status"] != "completed" {
		t.Errorf("expected completed withdrawal, got %v", processed["status"])
	}
	if processed["gateway_reference"] != "TRF_testtransfer" {
		t.Errorf("expected gateway reference recorded, got %v", processed["gateway_reference"])
	}

	app.DB.Where("user_id = ?", userID).First(&wallet)
	if wallet.Balance != 25_000_00 {
		t.Errorf("expected balance 2500000 after payout, got %d", wallet.Balance)
	}
}

func TestAuthenticationRequired(t *testing.T) {
	app := setupApp(t, "")

	rec := app.request("GET", "/api/v1/wallet", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	rec = app.request("GET", "/api/v1/wallet", "", "not-a-real-token")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with garbage token, got %d", rec.Code)
	}
}
