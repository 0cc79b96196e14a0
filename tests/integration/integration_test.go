//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go/modules/compose"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	baseURL    string
	httpClient *http.Client
)

// Response types — defined locally to keep tests truly black-box (no internal imports).

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type receiptResponse struct {
	ID       string         `json:"id"`
	Owner    string         `json:"owner"`
	Merchant string         `json:"merchant"`
	Currency string         `json:"currency"`
	TaxRate  string         `json:"taxRate"`
	TipRate  string         `json:"tipRate"`
	Status   string         `json:"status"`
	Items    []itemResponse `json:"items"`
}

type itemResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
	TotalPrice  string `json:"totalPrice"`
}

type uploadURLResponse struct {
	URL string `json:"url"`
}

type shareResponse struct {
	Participant string `json:"participant"`
	Subtotal    string `json:"subtotal"`
	Tax         string `json:"tax"`
	Tip         string `json:"tip"`
	Total       string `json:"total"`
}

type splitResponse struct {
	Shares []shareResponse `json:"shares"`
}

type inviteResponse struct {
	Token  string `json:"token"`
	Email  string `json:"email"`
	Link   string `json:"link"`
	Status string `json:"status"`
}

type createInvitesResponse struct {
	Invites []inviteResponse `json:"invites"`
}

type inviteViewResponse struct {
	Email   string          `json:"email"`
	Status  string          `json:"status"`
	Receipt receiptResponse `json:"receipt"`
}

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Coverage output directory for the instrumented binary.
	if err := os.MkdirAll("coverdir", 0o777); err != nil {
		log.Fatalf("create coverdir: %v", err)
	}

	dc, err := tc.NewDockerCompose("docker-compose.test.yml")
	if err != nil {
		log.Fatalf("compose init: %v", err)
	}

	// Start postgres + api, wait until the API health check passes.
	err = dc.
		WaitForService("api", wait.ForHTTP("/readyz").WithPort("8080/tcp")).
		Up(ctx, tc.Wait(true))
	if err != nil {
		log.Fatalf("compose up: %v", err)
	}

	apiContainer, err := dc.ServiceContainer(ctx, "api")
	if err != nil {
		log.Fatalf("api container: %v", err)
	}

	host, err := apiContainer.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}

	mappedPort, err := apiContainer.MappedPort(ctx, "8080/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}

	baseURL = fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
	httpClient = &http.Client{Timeout: 10 * time.Second}
	log.Printf("API available at %s", baseURL)

	result := m.Run()

	// Stop the API container gracefully so the coverage-instrumented binary
	// flushes coverage data to GOCOVERDIR (bind-mounted to ./coverdir).
	// The compose file sets stop_signal: SIGINT because app.Run handles
	// SIGINT (not SIGTERM) for graceful shutdown.
	stopTimeout := 30 * time.Second
	if err := apiContainer.Stop(ctx, &stopTimeout); err != nil {
		log.Printf("stop api container: %v", err)
	}

	if err := dc.Down(context.Background(), tc.RemoveOrphans(true)); err != nil {
		log.Printf("compose down: %v", err)
	}

	return result
}

// HTTP helpers.

func doGet(t *testing.T, path string) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodGet, path, nil)
}

func doPost(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodPost, path, body)
}

func doPut(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodPut, path, body)
}

func doRequest(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, baseURL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// createProcessedReceipt drives a receipt through create, upload-url, and
// process. Extraction runs in stub mode, so items are the canned set.
func createProcessedReceipt(t *testing.T, owner string) receiptResponse {
	t.Helper()

	resp := doPost(t, "/api/receipts", map[string]any{"owner": owner, "merchant": "Demo Diner"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create receipt: expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON[receiptResponse](t, resp)

	resp = doPost(t, "/api/receipts/"+created.ID+"/upload-url", map[string]any{"contentType": "image/jpeg"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload-url: expected 200, got %d", resp.StatusCode)
	}

	resp = doPost(t, "/api/receipts/"+created.ID+"/process", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("process: expected 200, got %d", resp.StatusCode)
	}
	return decodeJSON[receiptResponse](t, resp)
}
