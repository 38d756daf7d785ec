package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestMoneyJSONAcceptsStringAndNumber(t *testing.T) {
	var payload struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"12.345","b":7.5}`), &payload); err != nil {
		t.Fatalf("unmarshal money failed: %v", err)
	}
	if payload.A.String() != "12.35" {
		t.Fatalf("string money want 12.35 got %s", payload.A.String())
	}
	if payload.B.String() != "7.50" {
		t.Fatalf("number money want 7.50 got %s", payload.B.String())
	}
	out, err := json.Marshal(payload.B.MulQty(3))
	if err != nil {
		t.Fatalf("marshal money failed: %v", err)
	}
	if string(out) != `"22.50"` {
		t.Fatalf("marshal money want \"22.50\" got %s", out)
	}
}

func TestFlexibleIDAcceptsNumberAndString(t *testing.T) {
	var user User
	if err := json.Unmarshal([]byte(`{"id":42,"email":"a@b.co"}`), &user); err != nil {
		t.Fatalf("unmarshal numeric id failed: %v", err)
	}
	if user.ID != "42" || !user.HasBackendID() {
		t.Fatalf("numeric id should be backend id, got %q", user.ID)
	}
	if err := json.Unmarshal([]byte(`{"id":"guest_1700000000000"}`), &user); err != nil {
		t.Fatalf("unmarshal string id failed: %v", err)
	}
	if user.HasBackendID() {
		t.Fatalf("guest id must not count as backend id")
	}
}

func TestGuestAndLocalUsersHaveNoBackendID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	guest := NewGuestUser(now)
	if guest.ID != "guest_1700000000000" || !guest.IsGuest() || guest.HasBackendID() {
		t.Fatalf("unexpected guest identity: %+v", guest)
	}
	local := NewLocalUser(now, "Ana", "Cruz", "ana@example.com", "", "")
	if !strings.HasPrefix(local.ID.String(), "u_") || local.HasBackendID() {
		t.Fatalf("unexpected local identity: %+v", local)
	}
	var nilUser *User
	if nilUser.HasBackendID() {
		t.Fatalf("nil user has no backend id")
	}
}

func TestSplitFullName(t *testing.T) {
	first, last := SplitFullName("  Maria  Clara de la Cruz ")
	if first != "Maria" || last != "Clara de la Cruz" {
		t.Fatalf("unexpected split: %q %q", first, last)
	}
	first, last = SplitFullName("Cher")
	if first != "Cher" || last != "" {
		t.Fatalf("single name split: %q %q", first, last)
	}
}

func TestNormalizeCartDropsInvalidAndMergesDuplicates(t *testing.T) {
	got := NormalizeCart([]CartEntry{
		{ProductID: 1, Quantity: 2},
		{ProductID: 0, Quantity: 1},
		{ProductID: 2, Quantity: 0},
		{ProductID: 1, Quantity: 3},
	})
	if len(got) != 1 || got[0].ProductID != 1 || got[0].Quantity != 5 {
		t.Fatalf("unexpected normalized cart: %+v", got)
	}
	if CartQuantity(got) != 5 {
		t.Fatalf("cart quantity want 5 got %d", CartQuantity(got))
	}
}

func TestAuthTokensHeuristicExpiry(t *testing.T) {
	issued := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tokens := &AuthTokens{AccessToken: "a", RefreshToken: "r", IssuedAt: issued}
	if tokens.ExpiredAfter(10*time.Minute, issued.Add(9*time.Minute)) {
		t.Fatalf("token should be fresh within window")
	}
	if !tokens.ExpiredAfter(10*time.Minute, issued.Add(10*time.Minute)) {
		t.Fatalf("token should expire at window boundary")
	}
	if !(&AuthTokens{}).ExpiredAfter(time.Minute, issued) {
		t.Fatalf("missing access token counts as expired")
	}
}
