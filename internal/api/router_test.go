package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Intake/internal/broker"
	"github.com/MikeSquared-Agency/Intake/internal/config"
	"github.com/MikeSquared-Agency/Intake/internal/metrics"
	"github.com/MikeSquared-Agency/Intake/internal/store"
	"github.com/MikeSquared-Agency/Intake/internal/store/storetest"
)

const adminToken = "test-token"

func setupTestRouter(t *testing.T) (http.Handler, *storetest.Memory) {
	t.Helper()
	ctx := context.Background()
	mem := storetest.NewMemory()
	require.NoError(t, mem.CreateOrganization(ctx, &store.Organization{ID: "org_demo", Name: "Demo Org", Active: true}))
	require.NoError(t, mem.CreateCaseworker(ctx, &store.Caseworker{ID: "cw_1", OrganizationID: "org_demo", Name: "Alex", Zones: []string{"downtown"}, Active: true}))
	require.NoError(t, mem.CreateCaseworker(ctx, &store.Caseworker{ID: "cw_2", OrganizationID: "org_demo", Name: "Sam", Zones: []string{"east"}, Active: true}))
	require.NoError(t, mem.CreateQRCode(ctx, &store.QRCode{Code: "QR001", OrganizationID: "org_demo", Location: "Library", Zone: "downtown", Active: true}))
	require.NoError(t, mem.CreateQRCode(ctx, &store.QRCode{Code: "QR002", OrganizationID: "org_demo", Location: "Bridge", Zone: "west", Active: true}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{Assignment: config.AssignmentConfig{DefaultZone: "default", SweepIntervalMs: 1000, SweepBatchSize: 10}}
	m := metrics.New(prometheus.NewRegistry())
	b := broker.New(mem, nil, nil, m, cfg, logger)
	router := NewRouter(mem, b, RouterOptions{AdminToken: adminToken, RateLimitPerMinute: 1000}, logger)
	return router, mem
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func asCaseworker(id string) map[string]string {
	return map[string]string{"X-Caseworker-ID": id}
}

func asAdmin() map[string]string {
	return map[string]string{"Authorization": "Bearer " + adminToken}
}

const highIntake = `{
	"qr_code": "QR001",
	"first_name": "Jane",
	"last_name": "Doe",
	"date_of_birth": "1980-04-02",
	"intake_data": {
		"currently_homeless": true,
		"nights_homeless_past_3_years": 400,
		"transportation_barriers": true,
		"childcare_barriers": true,
		"employment_barriers": true,
		"chronic_health": true,
		"substance_use": true,
		"mental_health": true
	}
}`

type submitResponse struct {
	Client struct {
		ID                   uuid.UUID `json:"id"`
		AssignedCaseworkerID *string   `json:"assigned_caseworker_id"`
		DateOfBirth          *string   `json:"date_of_birth"`
	} `json:"client"`
	Assessment struct {
		Score struct {
			TotalScore int    `json:"total_score"`
			AcuityTier string `json:"acuity_level"`
		} `json:"vi_spdat_score"`
	} `json:"assessment"`
	Recommendations struct {
		HousingType string `json:"housing_type"`
	} `json:"recommendations"`
	ActionItem *struct {
		ID       uuid.UUID `json:"id"`
		Priority int       `json:"priority"`
	} `json:"action_item"`
}

func submit(t *testing.T, h http.Handler, body string) submitResponse {
	t.Helper()
	w := do(t, h, "POST", "/api/v1/intake/submit", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res submitResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	return res
}

func TestSubmitIntake(t *testing.T) {
	router, _ := setupTestRouter(t)

	res := submit(t, router, highIntake)
	assert.Equal(t, 15, res.Assessment.Score.TotalScore)
	assert.Equal(t, "high", res.Assessment.Score.AcuityTier)
	assert.Equal(t, "permanent_supportive", res.Recommendations.HousingType)
	require.NotNil(t, res.Client.AssignedCaseworkerID)
	assert.Equal(t, "cw_1", *res.Client.AssignedCaseworkerID)
	require.NotNil(t, res.Client.DateOfBirth)
	require.NotNil(t, res.ActionItem)
	assert.Equal(t, 5, res.ActionItem.Priority)
}

func TestSubmitIntakeUnassignedZone(t *testing.T) {
	router, _ := setupTestRouter(t)

	res := submit(t, router, `{"qr_code":"QR002","first_name":"Jo","last_name":"Roe","intake_data":{}}`)
	assert.Nil(t, res.Client.AssignedCaseworkerID)
	assert.Nil(t, res.ActionItem)
	assert.Equal(t, 3, res.Assessment.Score.TotalScore)
	assert.Equal(t, "low", res.Assessment.Score.AcuityTier)
}

func TestSubmitIntakeValidation(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := do(t, router, "POST", "/api/v1/intake/submit", `{"qr_code":"QR001","email":"nope","intake_data":{}}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "validation failed", body.Error)
	assert.Contains(t, body.Fields, "first_name")
	assert.Contains(t, body.Fields, "last_name")
	assert.Contains(t, body.Fields, "email")

	w = do(t, router, "POST", "/api/v1/intake/submit", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "POST", "/api/v1/intake/submit", `{"qr_code":"NOPE","first_name":"A","last_name":"B"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartIntake(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := do(t, router, "POST", "/api/v1/intake/start", `{"qr_code":"QR001"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res broker.IntakeStart
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "Demo Org", res.OrganizationName)
	assert.Equal(t, "downtown", res.Zone)
	assert.Equal(t, int64(1), res.ScanCount)

	w = do(t, router, "POST", "/api/v1/intake/start", `{"qr_code":"MISSING"}`, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIntakeStatus(t *testing.T) {
	router, _ := setupTestRouter(t)
	res := submit(t, router, highIntake)

	w := do(t, router, "GET", "/api/v1/intake/"+res.Client.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st broker.IntakeStatus
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.True(t, st.CaseworkerAssigned)
	assert.True(t, st.IntakeCompleted)

	w = do(t, router, "GET", "/api/v1/intake/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, "GET", "/api/v1/intake/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaseworkerQueueAndComplete(t *testing.T) {
	router, _ := setupTestRouter(t)
	res := submit(t, router, highIntake)

	w := do(t, router, "GET", "/api/v1/caseworkers/cw_1/queue", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, router, "GET", "/api/v1/caseworkers/cw_1/queue", "", asCaseworker("cw_2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, "GET", "/api/v1/caseworkers/cw_1/queue?limit=0", "", asCaseworker("cw_1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "GET", "/api/v1/caseworkers/cw_1/queue", "", asCaseworker("cw_1"))
	require.Equal(t, http.StatusOK, w.Code)
	var queue []store.ActionItem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&queue))
	require.Len(t, queue, 1)
	assert.Equal(t, res.ActionItem.ID, queue[0].ID)

	path := "/api/v1/caseworkers/cw_1/actions/" + res.ActionItem.ID.String() + "/complete"
	w = do(t, router, "POST", path, `{"notes":"left voicemail"}`, asCaseworker("cw_1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var item store.ActionItem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&item))
	assert.True(t, item.Completed)
	assert.Equal(t, "left voicemail", item.CompletionNotes)

	w = do(t, router, "POST", path, "", asCaseworker("cw_1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, "GET", "/api/v1/caseworkers/cw_1/queue", "", asCaseworker("cw_1"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = do(t, router, "POST", "/api/v1/caseworkers/cw_2/actions/"+res.ActionItem.ID.String()+"/complete", "", asCaseworker("cw_2"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaseworkerClients(t *testing.T) {
	router, _ := setupTestRouter(t)
	res := submit(t, router, highIntake)

	w := do(t, router, "GET", "/api/v1/caseworkers/cw_1/clients?page_size=10", "", asCaseworker("cw_1"))
	require.Equal(t, http.StatusOK, w.Code)
	var page broker.ClientPage
	require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 10, page.PageSize)

	w = do(t, router, "GET", "/api/v1/caseworkers/cw_1/clients?status=bogus", "", asCaseworker("cw_1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "GET", "/api/v1/caseworkers/cw_1/clients/"+res.Client.ID.String(), "", asCaseworker("cw_1"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, "GET", "/api/v1/caseworkers/cw_2/clients/"+res.Client.ID.String(), "", asCaseworker("cw_2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, "GET", "/api/v1/caseworkers/cw_1/stats", "", asCaseworker("cw_1"))
	require.Equal(t, http.StatusOK, w.Code)
	var summary broker.CaseworkerSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.Equal(t, "cw_1", summary.Caseworker.ID)
	assert.Equal(t, 1, summary.Stats.PendingActions)
	assert.Equal(t, 1, summary.Stats.HighPriorityActions)

	w = do(t, router, "GET", "/api/v1/caseworkers/cw_9/stats", "", asCaseworker("cw_9"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReassessAndHistory(t *testing.T) {
	router, _ := setupTestRouter(t)
	res := submit(t, router, highIntake)
	path := "/api/v1/caseworkers/cw_1/clients/" + res.Client.ID.String() + "/assessments"
	lowBody := `{"intake_data":{"has_income":true,"has_id":true,"has_social_security_card":true,"has_family_support":true}}`

	w := do(t, router, "POST", path, lowBody, asCaseworker("cw_1"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var re struct {
		PreviousScore *int `json:"previous_score"`
		ActionItem    *struct {
			ActionType string `json:"action_type"`
		} `json:"action_item"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&re))
	require.NotNil(t, re.PreviousScore)
	assert.Equal(t, 15, *re.PreviousScore)
	require.NotNil(t, re.ActionItem)
	assert.Equal(t, "follow_up", re.ActionItem.ActionType)

	w = do(t, router, "GET", path, "", asCaseworker("cw_1"))
	require.Equal(t, http.StatusOK, w.Code)
	var history []struct {
		Score struct {
			TotalScore int `json:"total_score"`
		} `json:"vi_spdat_score"`
		Factors []struct {
			Name string `json:"name"`
		} `json:"factors"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&history))
	require.Len(t, history, 2)
	assert.Equal(t, 15, history[0].Score.TotalScore)
	assert.NotEmpty(t, history[0].Factors)
	assert.Equal(t, 0, history[1].Score.TotalScore)

	w = do(t, router, "GET", "/api/v1/caseworkers/cw_1/clients/"+uuid.NewString()+"/assessments", "", asCaseworker("cw_1"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssessmentsRequireAccess(t *testing.T) {
	router, _ := setupTestRouter(t)
	res := submit(t, router, highIntake)
	id := res.Client.ID.String()
	scoped := "/api/v1/caseworkers/cw_1/clients/" + id + "/assessments"
	body := `{"intake_data":{}}`

	// The old public paths are gone.
	w := do(t, router, "GET", "/api/v1/clients/"+id+"/assessments", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, "GET", scoped, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(t, router, "POST", scoped, body, asCaseworker("cw_2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	// cw_2 may act as themself but the client is not theirs.
	w = do(t, router, "GET", "/api/v1/caseworkers/cw_2/clients/"+id+"/assessments", "", asCaseworker("cw_2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := "/api/v1/admin/clients/" + id + "/assessments"
	w = do(t, router, "GET", admin, "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(t, router, "GET", admin, "", asAdmin())
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, router, "POST", admin, body, asAdmin())
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestUpdateClientEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t)
	res := submit(t, router, highIntake)
	path := "/api/v1/caseworkers/cw_1/clients/" + res.Client.ID.String()

	w := do(t, router, "PATCH", path, `{"status":"matched","matched_housing_id":"unit_7","note":"unit offered"}`, asCaseworker("cw_1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var c store.Client
	require.NoError(t, json.NewDecoder(w.Body).Decode(&c))
	assert.Equal(t, store.ClientStatusMatched, c.Status)
	assert.Equal(t, "unit_7", c.MatchedHousingID)
	assert.Equal(t, []string{"unit offered"}, c.Notes)

	w = do(t, router, "PATCH", path, `{"status":"placed"}`, asCaseworker("cw_1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.NewDecoder(w.Body).Decode(&c))
	assert.Equal(t, store.ClientStatusPlaced, c.Status)
	assert.NotNil(t, c.HousingPlacedAt)

	w = do(t, router, "PATCH", path, `{"status":"housed"}`, asCaseworker("cw_1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, router, "PATCH", path, `{"status":"intake"}`, asCaseworker("cw_1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, router, "PATCH", path, `{}`, asCaseworker("cw_1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(t, router, "PATCH", "/api/v1/caseworkers/cw_2/clients/"+res.Client.ID.String(), `{"status":"inactive"}`, asCaseworker("cw_2"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, "GET", "/api/v1/caseworkers/cw_1/stats", "", asCaseworker("cw_1"))
	require.Equal(t, http.StatusOK, w.Code)
	var summary broker.CaseworkerSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&summary))
	assert.InDelta(t, 100.0, summary.Stats.PlacementRate, 0.001)
}

func TestClientPortal(t *testing.T) {
	router, _ := setupTestRouter(t)
	res := submit(t, router, highIntake)
	base := "/api/v1/client/" + res.Client.ID.String()

	w := do(t, router, "GET", base+"/profile", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var profile broker.ClientPortalProfile
	require.NoError(t, json.NewDecoder(w.Body).Decode(&profile))
	assert.Equal(t, "Jane", profile.Client.FirstName)
	require.NotNil(t, profile.Caseworker)
	assert.Equal(t, "Alex", profile.Caseworker.Name)
	require.NotNil(t, profile.Assessment)
	assert.Equal(t, 15, profile.Assessment.TotalScore)

	w = do(t, router, "GET", base+"/progress", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var progress broker.ClientProgress
	require.NoError(t, json.NewDecoder(w.Body).Decode(&progress))
	assert.Equal(t, 60, progress.CompletionPercentage)
	assert.Len(t, progress.Milestones, 5)

	w = do(t, router, "GET", base+"/caseworker", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var contact broker.CaseworkerContactView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&contact))
	assert.True(t, contact.Assigned)

	w = do(t, router, "GET", "/api/v1/client/"+uuid.NewString()+"/profile", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, router, "GET", "/api/v1/client/not-a-uuid/progress", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminGetQRCode(t *testing.T) {
	router, _ := setupTestRouter(t)

	for i := 0; i < 2; i++ {
		w := do(t, router, "POST", "/api/v1/intake/start", `{"qr_code":"QR001"}`, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := do(t, router, "GET", "/api/v1/admin/qr-codes/QR001", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, router, "GET", "/api/v1/admin/qr-codes/QR001", "", asAdmin())
	require.Equal(t, http.StatusOK, w.Code)
	var qr store.QRCode
	require.NoError(t, json.NewDecoder(w.Body).Decode(&qr))
	assert.Equal(t, int64(2), qr.ScanCount)
	assert.NotNil(t, qr.LastScannedAt)

	w = do(t, router, "GET", "/api/v1/admin/qr-codes/QR404", "", asAdmin())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminEndpoints(t *testing.T) {
	router, _ := setupTestRouter(t)

	w := do(t, router, "POST", "/api/v1/admin/organizations", `{"id":"org_2","name":"Second"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, router, "POST", "/api/v1/admin/organizations", `{"id":"org_2","name":"Second","zones":["west"]}`, asAdmin())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, "POST", "/api/v1/admin/caseworkers", `{"id":"cw_3","organization_id":"org_2","name":"Kim","assigned_zones":["west"]}`, asAdmin())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var cw store.Caseworker
	require.NoError(t, json.NewDecoder(w.Body).Decode(&cw))
	assert.True(t, cw.Active)

	w = do(t, router, "POST", "/api/v1/admin/caseworkers", `{"id":"cw_4","organization_id":"org_2","name":"Lee","assigned_zones":[]}`, asAdmin())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "POST", "/api/v1/admin/caseworkers", `{"id":"cw_5","organization_id":"org_x","name":"Lee","assigned_zones":["west"]}`, asAdmin())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "POST", "/api/v1/admin/qr-codes", `{"code":"QR100","organization_id":"org_2","location":"Depot","zone":"west","latitude":91}`, asAdmin())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, "POST", "/api/v1/admin/qr-codes", `{"code":"QR100","organization_id":"org_2","location":"Depot","zone":"west"}`, asAdmin())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, "GET", "/api/v1/admin/caseworkers?zone=west", "", asAdmin())
	require.Equal(t, http.StatusOK, w.Code)
	var list []store.Caseworker
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, "cw_3", list[0].ID)

	res := submit(t, router, `{"qr_code":"QR100","first_name":"Ana","last_name":"Diaz","intake_data":{}}`)
	require.NotNil(t, res.Client.AssignedCaseworkerID)
	assert.Equal(t, "cw_3", *res.Client.AssignedCaseworkerID)
}

func TestCityMetrics(t *testing.T) {
	router, _ := setupTestRouter(t)
	submit(t, router, highIntake)
	submit(t, router, `{"qr_code":"QR002","first_name":"Jo","last_name":"Roe","intake_data":{}}`)

	w := do(t, router, "GET", "/api/v1/city/metrics", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, router, "GET", "/api/v1/city/metrics", "", asAdmin())
	require.Equal(t, http.StatusOK, w.Code)
	var report broker.CityReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	assert.Equal(t, 2, report.Overview.TotalClients)
	assert.Equal(t, 1, report.Overview.UnassignedClients)
	assert.Equal(t, 2, report.Overview.ActiveCaseworkers)
}

func TestMetricsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.IncQRScan()

	h := NewMetricsRouter(reg, func() map[string]bool { return map[string]bool{"database": true} })
	w := do(t, h, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "GET", "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "intake_qr_scans_total 1")

	down := NewMetricsRouter(reg, func() map[string]bool { return map[string]bool{"nats": false} })
	w = do(t, down, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
