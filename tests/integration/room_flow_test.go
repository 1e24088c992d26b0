package integration

import (
	"fmt"
	"net/http"
	"testing"

	"chamapool/internal/models"
)

// TestRoomInvestmentFlow walks the whole lifecycle: create, join by code,
// fund to the goal, execute, vote, and settle.
func TestRoomInvestmentFlow(t *testing.T) {
	app := setupApp(t, "")

	creatorToken, creatorID := app.provisionUser(t, "flow-creator", 80_000_00)
	memberToken, memberID := app.provisionUser(t, "flow-member", 50_000_00)

	// Create a room with a 100k goal
	rec := app.request("POST", "/api/v1/rooms", `{
		"name": "Nairobi Growth Fund",
		"goal_amount": 10000000,
		"max_members": 5,
		"risk_level": "moderate",
		"investment_type": "mixed",
		"visibility": "public"
	}`, creatorToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create room failed: %d %s", rec.Code, rec.Body.String())
	}
	room := parseJSON(t, rec)["room"].(map[string]interface{})
	roomID := room["id"].(string)
	roomCode := room["room_code"].(string)

	// Second member joins by shareable code
	rec = app.request("POST", "/api/v1/rooms/join", fmt.Sprintf(`{"room":%q}`, roomCode), memberToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("join failed: %d %s", rec.Code, rec.Body.String())
	}

	// Fund the pool to the goal
	rec = app.request("POST", "/api/v1/contributions",
		fmt.Sprintf(`{"room_id":%q,"amount":6000000}`, roomID), creatorToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("creator contribution failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = app.request("POST", "/api/v1/contributions",
		fmt.Sprintf(`{"room_id":%q,"amount":4000000}`, roomID), memberToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("member contribution failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = app.request("GET", "/api/v1/rooms/"+roomID, "", creatorToken)
	detail := parseJSON(t, rec)["room"].(map[string]interface{})
	if detail["status"] != "ready" {
		t.Fatalf("expected room ready after reaching goal, got %v", detail["status"])
	}
	if detail["collected_amount"].(float64) != 10000000 {
		t.Errorf("expected pool of 10000000, got %v", detail["collected_amount"])
	}

	// A contribution past the goal is rejected
	rec = app.request("POST", "/api/v1/contributions",
		fmt.Sprintf(`{"room_id":%q,"amount":500000}`, roomID), memberToken)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 contributing to a ready room, got %d", rec.Code)
	}

	// Execute the pooled investment
	rec = app.request("POST", "/api/v1/rooms/"+roomID+"/invest", `{
		"allocations": [
			{"id": "safaricom", "name": "Safaricom", "allocation": 60},
			{"id": "tbills", "name": "Treasury Bills", "allocation": 40}
		]
	}`, creatorToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("execute failed: %d %s", rec.Code, rec.Body.String())
	}

	// Both members approve the recommendation
	voteBody := `{"recommendation_id":"rec-1","vote":"approve"}`
	for _, token := range []string{creatorToken, memberToken} {
		rec = app.request("POST", "/api/v1/rooms/"+roomID+"/votes", voteBody, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("vote failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec = app.request("GET", "/api/v1/rooms/"+roomID+"/votes?recommendation_id=rec-1", "", creatorToken)
	tally := parseJSON(t, rec)["votes"].(map[string]interface{})
	if tally["approve"].(float64) != 2 || tally["reject"].(float64) != 0 {
		t.Errorf("expected 2 approvals, got %v approve / %v reject", tally["approve"], tally["reject"])
	}

	// Only the creator may end the investment
	rec = app.request("POST", "/api/v1/rooms/"+roomID+"/end", "", memberToken)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-creator end, got %d", rec.Code)
	}

	rec = app.request("POST", "/api/v1/rooms/"+roomID+"/end", "", creatorToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("end failed: %d %s", rec.Code, rec.Body.String())
	}
	summary := parseJSON(t, rec)["summary"].(map[string]interface{})
	if summary["total_invested"].(float64) != 10000000 {
		t.Errorf("expected invested 10000000, got %v", summary["total_invested"])
	}
	if summary["final_value"].(float64) <= summary["total_invested"].(float64) {
		t.Errorf("expected growth at 5%% per period, got final %v", summary["final_value"])
	}

	// Each member got back at least their stake
	var creatorWallet, memberWallet models.Wallet
	app.DB.Where("user_id = ?", creatorID).First(&creatorWallet)
	app.DB.Where("user_id = ?", memberID).First(&memberWallet)
	if creatorWallet.Balance < 80_000_00 {
		t.Errorf("expected creator balance >= original 8000000, got %d", creatorWallet.Balance)
	}
	if memberWallet.Balance < 50_000_00 {
		t.Errorf("expected member balance >= original 5000000, got %d", memberWallet.Balance)
	}

	// Room is closed with a final snapshot
	var closed models.InvestmentRoom
	app.DB.Where("id = ?", roomID).First(&closed)
	if closed.Status != models.RoomStatusClosed {
		t.Errorf("expected closed room, got %s", closed.Status)
	}
	if closed.FinalInvestedAmount != 100_000_00 || closed.FinalProfit <= 0 {
		t.Errorf("unexpected final snapshot: invested %d profit %d", closed.FinalInvestedAmount, closed.FinalProfit)
	}
}

// TestLeaveRefundsWhileOpen verifies the refund path and that the pool never
// shrinks once collected.
func TestLeaveRefundsWhileOpen(t *testing.T) {
	app := setupApp(t, "")

	creatorToken, _ := app.provisionUser(t, "leave-creator", 80_000_00)
	memberToken, memberID := app.provisionUser(t, "leave-member", 50_000_00)

	rec := app.request("POST", "/api/v1/rooms", `{
		"name": "Exit Test Pool",
		"goal_amount": 50000000,
		"max_members": 5,
		"risk_level": "conservative",
		"investment_type": "bonds"
	}`, creatorToken)
	room := parseJSON(t, rec)["room"].(map[string]interface{})
	roomID := room["id"].(string)

	rec = app.request("POST", "/api/v1/rooms/join", fmt.Sprintf(`{"room":%q}`, roomID), memberToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("join failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = app.request("POST", "/api/v1/contributions",
		fmt.Sprintf(`{"room_id":%q,"amount":2000000}`, roomID), memberToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("contribution failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = app.request("POST", "/api/v1/rooms/"+roomID+"/leave", "", memberToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("leave failed: %d %s", rec.Code, rec.Body.String())
	}
	if refunded := parseJSON(t, rec)["refunded"].(float64); refunded != 2000000 {
		t.Errorf("expected refund of 2000000, got %v", refunded)
	}

	var wallet models.Wallet
	app.DB.Where("user_id = ?", memberID).First(&wallet)
	if wallet.Balance != 50_000_00 {
		t.Errorf("expected balance restored to 5000000, got %d", wallet.Balance)
	}

	// The creator cannot leave their own room
	rec = app.request("POST", "/api/v1/rooms/"+roomID+"/leave", "", creatorToken)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for creator leave, got %d", rec.Code)
	}
}
