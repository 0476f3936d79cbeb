package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	cfgpkg "github.com/TorratDev/Grace/internal/config"
	"github.com/TorratDev/Grace/internal/runtime"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Fsync = "never"
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Config: cfg})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })

	s := New(rt, nil)
	ts := httptest.NewServer(s.srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body map[string]interface{}) (int, map[string]interface{}) {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]interface{}{}
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/v1/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health returned %d", resp.StatusCode)
	}
}

func TestOwnerLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	status, body := postJSON(t, ts, "/v1/owners/create", map[string]interface{}{
		"correlationId": "c-1",
		"ownerName":     "alice",
		"ownerType":     "User",
	})
	if status != http.StatusOK {
		t.Fatalf("create returned %d: %v", status, body)
	}
	if body["correlationId"] != "c-1" {
		t.Fatalf("response must echo the correlation id: %v", body)
	}
	ret, _ := body["returnValue"].(map[string]interface{})
	if ret == nil || ret["eventType"] != "OwnerCreated" {
		t.Fatalf("unexpected return value: %v", body)
	}

	// Query by name.
	resp, err := http.Get(ts.URL + "/v1/owners/get?correlationId=c-2&ownerName=alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get returned %d: %s", resp.StatusCode, raw)
	}
	var q map[string]interface{}
	_ = json.Unmarshal(raw, &q)
	dto, _ := q["returnValue"].(map[string]interface{})
	if dto == nil || dto["ownerName"] != "alice" {
		t.Fatalf("unexpected dto: %s", raw)
	}
}

func TestMissingCorrelationIDRejected(t *testing.T) {
	ts := newTestServer(t)
	status, body := postJSON(t, ts, "/v1/owners/create", map[string]interface{}{
		"ownerName": "alice",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("want 400, got %d: %v", status, body)
	}
	if body["errorCode"] != "CorrelationIdRequired" {
		t.Fatalf("want CorrelationIdRequired, got %v", body)
	}
}

func TestInvalidNameRejectedWithStructuredBody(t *testing.T) {
	ts := newTestServer(t)
	status, body := postJSON(t, ts, "/v1/owners/create", map[string]interface{}{
		"correlationId": "c-1",
		"ownerName":     "9bad name",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", status)
	}
	if body["errorCode"] != "InvalidName" || body["error"] == "" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

func TestRepositoryAndBranchFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	if status, body := postJSON(t, ts, "/v1/owners/create", map[string]interface{}{
		"correlationId": "c-1", "ownerName": "alice",
	}); status != http.StatusOK {
		t.Fatalf("owner create: %d %v", status, body)
	}
	if status, body := postJSON(t, ts, "/v1/organizations/create", map[string]interface{}{
		"correlationId": "c-2", "ownerName": "alice", "organizationName": "eng",
	}); status != http.StatusOK {
		t.Fatalf("org create: %d %v", status, body)
	}
	status, body := postJSON(t, ts, "/v1/repositories/create", map[string]interface{}{
		"correlationId": "c-3", "ownerName": "alice", "organizationName": "eng", "repositoryName": "demo",
	})
	if status != http.StatusOK {
		t.Fatalf("repo create: %d %v", status, body)
	}
	props, _ := body["properties"].(map[string]interface{})
	if props == nil || props["ownerId"] == nil || props["organizationId"] == nil {
		t.Fatalf("resolved ancestor ids must be enriched: %v", body)
	}

	status, body = postJSON(t, ts, "/v1/branches/create", map[string]interface{}{
		"correlationId": "c-4", "ownerName": "alice", "organizationName": "eng",
		"repositoryName": "demo", "branchName": "main",
	})
	if status != http.StatusOK {
		t.Fatalf("branch create: %d %v", status, body)
	}
	ret, _ := body["returnValue"].(map[string]interface{})
	branchProps, _ := ret["properties"].(map[string]interface{})
	branchID, _ := branchProps["branchId"].(string)
	if branchID == "" {
		t.Fatalf("branch id missing from result: %v", body)
	}

	status, body = postJSON(t, ts, "/v1/branches/save", map[string]interface{}{
		"correlationId": "c-5", "branchId": branchID,
		"sha256Hash": "h1", "message": "wip",
	})
	if status != http.StatusOK {
		t.Fatalf("save: %d %v", status, body)
	}

	// Duplicate correlation id on the same branch is rejected.
	status, body = postJSON(t, ts, "/v1/branches/set-name", map[string]interface{}{
		"correlationId": "c-5", "branchId": branchID, "newName": "trunk",
	})
	if status != http.StatusBadRequest || body["errorCode"] != "DuplicateCorrelationId" {
		t.Fatalf("want DuplicateCorrelationId, got %d %v", status, body)
	}
}
