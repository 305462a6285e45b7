package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensyte/automation/pkg/engine"
	"github.com/opensyte/automation/pkg/handlers"
	"github.com/opensyte/automation/pkg/log"
	"github.com/opensyte/automation/pkg/models"
	"github.com/opensyte/automation/pkg/notifier"
	"github.com/opensyte/automation/pkg/ops"
	"github.com/opensyte/automation/pkg/persistence/memory"
	"github.com/opensyte/automation/pkg/web"
)

const testOrg = "org-1"

func setupTestApp(t *testing.T) (*fiber.App, *memory.Persistence, *notifier.Recorder) {
	t.Helper()

	store := memory.NewPersistence()
	store.SeedOrganization(models.Organization{ID: testOrg, Name: "Acme"})
	store.SeedUser(models.User{ID: "u-1", Name: "Olga", Email: "olga@example.com"})

	recorder := notifier.NewRecorder()
	logger := log.WithModule("web_test")

	registry := handlers.NewRegistry(handlers.Deps{
		Store:    store,
		Ops:      ops.New(store, logger),
		Notifier: recorder,
	})

	eng := engine.New(store, registry, logger, nil)
	api := web.NewAPI(logger, store, registry, eng)

	return api.App(), store, recorder
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()

	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any

	require.NoError(t, json.Unmarshal(raw, &decoded))

	return decoded
}

func TestPostEvent_NoMatchIsAccepted(t *testing.T) {
	app, store, _ := setupTestApp(t)

	resp := postJSON(t, app, "/v1/events", web.EventRequest{
		OrganizationID: testOrg,
		Module:         "hr",
		EntityType:     "employee",
		EventType:      "created",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Empty(t, body["summaries"])
	assert.Empty(t, store.AllRuns())
}

func TestPostEvent_MissingFields(t *testing.T) {
	app, _, _ := setupTestApp(t)

	resp := postJSON(t, app, "/v1/events", map[string]any{
		"module": "crm",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostEvent_InvalidJSON(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostEvent_DispatchesEnabledWorkflow(t *testing.T) {
	app, store, recorder := setupTestApp(t)

	store.SeedCustomer(models.Customer{
		ID:             "c-1",
		OrganizationID: testOrg,
		Name:           "Ana",
		Email:          "ana@example.com",
		Type:           models.CustomerTypeLead,
		Status:         models.CustomerStatusProspect,
	})
	store.SeedConfig(models.WorkflowConfig{
		OrganizationID: testOrg,
		WorkflowKey:    handlers.LeadToClientKey,
		Enabled:        true,
	})

	resp := postJSON(t, app, "/v1/events", web.EventRequest{
		OrganizationID: testOrg,
		Module:         "crm",
		EntityType:     "deal",
		EventType:      "status_changed",
		UserID:         "u-1",
		Payload: map[string]any{
			"customerId": "c-1",
			"status":     "WON",
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	summaries, ok := body["summaries"].([]any)
	require.True(t, ok)
	require.Len(t, summaries, 1)

	summary, ok := summaries[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, handlers.LeadToClientKey, summary["workflow_key"])
	assert.Equal(t, true, summary["success"])
	assert.NotEmpty(t, summary["run_id"])

	require.Len(t, recorder.Messages(), 1)
	assert.Equal(t, "ana@example.com", recorder.Messages()[0].To)
}

func TestGetRuns(t *testing.T) {
	app, store, _ := setupTestApp(t)

	require.NoError(t, store.Runs().Create(t.Context(), &models.WorkflowRun{
		OrganizationID: testOrg,
		WorkflowKey:    handlers.LeadToClientKey,
		Status:         models.RunStatusCompleted,
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/runs?organization_id="+testOrg, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["count"])
}

func TestGetRuns_RequiresOrganization(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetRun_NotFound(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/missing?organization_id="+testOrg, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPutConfig_RoundTrip(t *testing.T) {
	app, store, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/configs/"+handlers.InvoiceTrackingKey, bytes.NewReader(mustJSON(t, web.UpsertConfigRequest{
		OrganizationID: testOrg,
		Enabled:        true,
		EmailSubject:   "Your invoice",
		UpdatedBy:      "u-1",
	})))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	configs, err := store.Configs().ListByOrganization(t.Context(), testOrg)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, handlers.InvoiceTrackingKey, configs[0].WorkflowKey)
	assert.True(t, configs[0].Enabled)
	assert.Equal(t, "Your invoice", configs[0].EmailSubject)
	assert.Equal(t, 1, configs[0].TemplateVersion)

	listReq := httptest.NewRequest(http.MethodGet, "/v1/configs?organization_id="+testOrg, nil)
	listResp, err := app.Test(listReq)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	body := decodeBody(t, listResp)
	assert.Len(t, body["configs"], 1)
	assert.Len(t, body["workflow_keys"], 6)
}

func TestPutConfig_UnknownKey(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/configs/not-a-workflow", bytes.NewReader(mustJSON(t, web.UpsertConfigRequest{
		OrganizationID: testOrg,
		Enabled:        true,
	})))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	app, _, _ := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()

	encoded, err := json.Marshal(v)
	require.NoError(t, err)

	return encoded
}
