// ABOUTME: End-to-end scenarios for login, fallback data, cached data and logout
// ABOUTME: Exercises degraded upstream behaviour through the full middleware chain

package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
)

func TestScenario_LoginStoresToken(t *testing.T) {
	_, apiServer := newMockAPI(t)
	portal := newPortal(t, apiServer.URL, nil)
	b := newBrowser(t, portal.URL)

	b.login()

	resp := b.get("/profile")
	expectStatus(t, resp, http.StatusOK)
	if body := readBody(t, resp); !strings.Contains(body, "ana@example.com") {
		t.Error("profile page should show the signed-in user")
	}
}

func TestScenario_PromotionsFallBackToSamples(t *testing.T) {
	api, apiServer := newMockAPI(t)
	api.breakEndpoint("GET /user/promotions")
	portal := newPortal(t, apiServer.URL, nil)
	b := newBrowser(t, portal.URL)
	b.login()

	resp := b.get("/api/user/promotions")
	expectStatus(t, resp, http.StatusOK)

	var envelope struct {
		Success bool `json:"success"`
		Data    []struct {
			Title string `json:"title"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(envelope.Data) != 2 || envelope.Data[0].Title != "Oferta Especial" || envelope.Data[1].Title != "Descuento VIP" {
		t.Errorf("promotions = %+v, want the two samples", envelope.Data)
	}
}

func TestScenario_CachedHistorySurvivesOutage(t *testing.T) {
	api, apiServer := newMockAPI(t)
	portal := newPortal(t, apiServer.URL, nil)
	b := newBrowser(t, portal.URL)
	b.login()

	for i := 0; i < 2; i++ {
		resp := b.get("/api/user/history")
		expectStatus(t, resp, http.StatusOK)
	}
	if got := api.count("GET /user/history"); got != 1 {
		t.Errorf("history calls = %d, want 1 with a warm cache", got)
	}

	apiServer.Close()

	resp := b.get("/api/user/history")
	expectStatus(t, resp, http.StatusOK)
	if body := readBody(t, resp); !strings.Contains(body, "Autódromo Norte") {
		t.Errorf("body = %s, want cached history", body)
	}
}

func TestScenario_LogoutClearsSessionWhenAPIDown(t *testing.T) {
	_, apiServer := newMockAPI(t)
	portal := newPortal(t, apiServer.URL, nil)
	b := newBrowser(t, portal.URL)
	b.login()
	expectStatus(t, b.get("/"), http.StatusOK)

	apiServer.Close()

	expectRedirect(t, b.get("/logout"), "/login")
	expectRedirect(t, b.get("/"), "/login")
}
