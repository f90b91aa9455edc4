package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cto-inventory-backend/config"
	"cto-inventory-backend/internal/store"
	"cto-inventory-backend/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingAlerts struct {
	mu    sync.Mutex
	boxes []string
}

func (r *recordingAlerts) Dispatch(boxID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boxes = append(r.boxes, boxID)
	return true
}

func (r *recordingAlerts) dispatched() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.boxes...)
}

type testServer struct {
	router *gin.Engine
	alerts *recordingAlerts
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := store.NewGormStore(testutil.NewSQLiteDB(t), nil)
	alerts := &recordingAlerts{}
	cfg := config.ServerConfig{CacheTTLSeconds: 60}
	opts := &webpush.Options{VAPIDPublicKey: "test-public-key"}
	return &testServer{router: NewRouter(cfg, s, alerts, opts, nil), alerts: alerts}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (ts *testServer) createBox(t *testing.T, name string, ports int) string {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/ctos", gin.H{
		"name": name, "latitude": -23.55, "longitude": -46.63,
		"splitterType": "1x8", "totalPorts": ports,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct{ ID string }
	decode(t, w, &out)
	return out.ID
}

func (ts *testServer) connect(t *testing.T, boxID string, port int, contract string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.do(t, http.MethodPost, "/api/client-connections", gin.H{
		"ctoId": boxID, "portNumber": port, "contractId": contract, "onuSerialNumber": "ONU-" + contract,
	})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func TestCreateBox(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/ctos", gin.H{
		"name": "CTO-Centro", "latitude": 0, "longitude": 0,
		"splitterType": "1x8", "totalPorts": 8, "installationDate": "2024-01-15",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var box map[string]interface{}
	decode(t, w, &box)
	assert.NotEmpty(t, box["id"])
	assert.Equal(t, "ACTIVE", box["status"])
	assert.EqualValues(t, 8, box["splitterOutputs"])
	assert.Contains(t, box["installationDate"], "2024-01-15")
}

func TestCreateBox_Validation(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name string
		body gin.H
		want string
	}{
		{"latitude out of range", gin.H{"name": "x", "latitude": 91, "longitude": 0, "splitterType": "1x8", "totalPorts": 8}, "latitude"},
		{"missing longitude", gin.H{"name": "x", "latitude": 0, "splitterType": "1x8", "totalPorts": 8}, "longitude"},
		{"zero ports", gin.H{"name": "x", "latitude": 0, "longitude": 0, "splitterType": "1x8", "totalPorts": 0}, "totalPorts"},
		{"unknown status", gin.H{"name": "x", "latitude": 0, "longitude": 0, "splitterType": "1x8", "totalPorts": 8, "status": "BROKEN"}, "status"},
		{"bad date", gin.H{"name": "x", "latitude": 0, "longitude": 0, "splitterType": "1x8", "totalPorts": 8, "installationDate": "15/01/2024"}, "installationDate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/ctos", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body errorBody
			decode(t, w, &body)
			assert.Equal(t, codeInvalidInput, body.Code)
			assert.Contains(t, body.Error, tc.want)
		})
	}
}

func TestBoxLifecycle(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createBox(t, "CTO-A", 8)
	ts.createBox(t, "CTO-B", 16)

	w := ts.do(t, http.MethodGet, "/api/ctos", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]interface{}
	decode(t, w, &list)
	assert.Len(t, list, 2)

	w = ts.do(t, http.MethodPatch, "/api/ctos/"+id, gin.H{"status": "MAINTENANCE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/ctos?status=maintenance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0]["id"])
	assert.Equal(t, "CTO-A", list[0]["name"])

	w = ts.do(t, http.MethodGet, "/api/ctos?status=BROKEN", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodGet, "/api/ctos/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail map[string]interface{}
	decode(t, w, &detail)
	assert.Equal(t, []interface{}{}, detail["connections"])

	w = ts.do(t, http.MethodDelete, "/api/ctos/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/ctos/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodDelete, "/api/ctos/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPatchBox_NotFoundAndInvalid(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createBox(t, "CTO-A", 8)

	w := ts.do(t, http.MethodPatch, "/api/ctos/00000000-0000-0000-0000-000000000000", gin.H{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPatch, "/api/ctos/"+id, gin.H{"longitude": 181})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectionScenario(t *testing.T) {
	ts := newTestServer(t)
	boxID := ts.createBox(t, "CTO-Centro", 8)

	w := ts.connect(t, boxID, 3, "C-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var conn map[string]interface{}
	decode(t, w, &conn)
	connID := conn["id"].(string)
	assert.Equal(t, boxID, conn["ctoId"])

	w = ts.do(t, http.MethodGet, "/api/client-connections/ports-status/"+boxID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ports struct {
		OccupiedPorts  int `json:"occupiedPorts"`
		AvailablePorts int `json:"availablePorts"`
		Ports          []struct {
			PortNumber int    `json:"portNumber"`
			Status     string `json:"status"`
		} `json:"ports"`
	}
	decode(t, w, &ports)
	assert.Equal(t, 1, ports.OccupiedPorts)
	assert.Equal(t, 7, ports.AvailablePorts)
	require.Len(t, ports.Ports, 8)
	assert.Equal(t, "occupied", ports.Ports[2].Status)

	w = ts.do(t, http.MethodGet, "/api/ctos/occupancy-stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats []map[string]interface{}
	decode(t, w, &stats)
	require.Len(t, stats, 1)
	assert.EqualValues(t, 13, stats[0]["occupancyRate"])
	assert.Equal(t, "low", stats[0]["occupancyLevel"])

	w = ts.connect(t, boxID, 3, "C-2")
	assert.Equal(t, http.StatusConflict, w.Code)
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, codePortOccupied, body.Code)
	assert.Contains(t, body.Error, "C-1")

	w = ts.connect(t, boxID, 9, "C-3")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.connect(t, boxID, 4, "C-1")
	assert.Equal(t, http.StatusConflict, w.Code)
	decode(t, w, &body)
	assert.Equal(t, codeDuplicateContract, body.Code)

	w = ts.connect(t, "00000000-0000-0000-0000-000000000000", 1, "C-9")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodGet, "/api/client-connections/search/contract/C-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/client-connections/search/contract/C-404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodGet, "/api/client-connections/search/onu/ONU-C-1", nil)
	var found []map[string]interface{}
	decode(t, w, &found)
	assert.Len(t, found, 1)
	w = ts.do(t, http.MethodGet, "/api/client-connections/search/onu/none", nil)
	decode(t, w, &found)
	assert.Empty(t, found)

	w = ts.do(t, http.MethodPatch, "/api/client-connections/"+connID, gin.H{"portNumber": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &conn)
	assert.EqualValues(t, 5, conn["portNumber"])

	w = ts.do(t, http.MethodDelete, "/api/ctos/"+boxID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, "/api/client-connections/"+connID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateConnection_Validation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/client-connections", gin.H{"ctoId": "not-a-uuid", "portNumber": 1, "contractId": "C", "onuSerialNumber": "O"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/client-connections", gin.H{"portNumber": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteConnection(t *testing.T) {
	ts := newTestServer(t)
	boxID := ts.createBox(t, "CTO-A", 4)
	w := ts.connect(t, boxID, 1, "C-1")
	var conn struct{ ID string }
	decode(t, w, &conn)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, "/api/client-connections/"+conn.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, "/api/client-connections/"+conn.ID, nil).Code)

	w = ts.connect(t, boxID, 1, "C-1")
	assert.Equal(t, http.StatusCreated, w.Code, "freed port and contract can be reused")
}

func TestCacheInvalidatedByWrites(t *testing.T) {
	ts := newTestServer(t)
	boxID := ts.createBox(t, "CTO-A", 4)

	path := "/api/client-connections/ports-status/" + boxID
	var ports struct {
		OccupiedPorts int `json:"occupiedPorts"`
	}
	decode(t, ts.do(t, http.MethodGet, path, nil), &ports)
	assert.Equal(t, 0, ports.OccupiedPorts)

	ts.connect(t, boxID, 1, "C-1")
	w := ts.do(t, http.MethodGet, path, nil)
	assert.Empty(t, w.Header().Get("X-Cache"))
	decode(t, w, &ports)
	assert.Equal(t, 1, ports.OccupiedPorts)
}

func TestCapacityAlertOnEnteringHigh(t *testing.T) {
	ts := newTestServer(t)
	boxID := ts.createBox(t, "CTO-A", 4)

	ts.connect(t, boxID, 1, "C-1")
	ts.connect(t, boxID, 2, "C-2")
	ts.connect(t, boxID, 3, "C-3")
	assert.Empty(t, ts.alerts.dispatched(), "75% is still medium")

	ts.connect(t, boxID, 4, "C-4")
	assert.Equal(t, []string{boxID}, ts.alerts.dispatched())
}

func TestCapacityAlert_NotRepeatedByPatches(t *testing.T) {
	ts := newTestServer(t)
	boxID := ts.createBox(t, "CTO-A", 8)

	var last struct{ ID string }
	for port := 1; port <= 7; port++ {
		w := ts.connect(t, boxID, port, fmt.Sprintf("C-%d", port))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		decode(t, w, &last)
	}
	require.Equal(t, []string{boxID}, ts.alerts.dispatched(), "7 of 8 ports is high")

	w := ts.do(t, http.MethodPatch, "/api/client-connections/"+last.ID, gin.H{"portNumber": 8})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, ts.alerts.dispatched(), 1, "moving within the box keeps its occupancy")

	w = ts.do(t, http.MethodPatch, "/api/client-connections/"+last.ID, gin.H{"portNumber": 8})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = ts.do(t, http.MethodPatch, "/api/client-connections/"+last.ID, gin.H{"ctoId": boxID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, ts.alerts.dispatched(), 1, "patches that change nothing do not alert")

	other := ts.createBox(t, "CTO-B", 4)
	for port := 1; port <= 3; port++ {
		require.Equal(t, http.StatusCreated, ts.connect(t, other, port, fmt.Sprintf("B-%d", port)).Code)
	}
	w = ts.do(t, http.MethodPatch, "/api/client-connections/"+last.ID, gin.H{"ctoId": other, "portNumber": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{boxID, other}, ts.alerts.dispatched(), "moving into another box can push it into high")
}

func TestConnectionReadsEmbedBox(t *testing.T) {
	ts := newTestServer(t)
	boxID := ts.createBox(t, "CTO-Centro", 8)
	w := ts.connect(t, boxID, 2, "C-1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	type withBox struct {
		ID  string `json:"id"`
		Cto struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"cto"`
	}

	var found withBox
	w = ts.do(t, http.MethodGet, "/api/client-connections/search/contract/C-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &found)
	assert.Equal(t, boxID, found.Cto.ID)
	assert.Equal(t, "CTO-Centro", found.Cto.Name)

	var byID withBox
	w = ts.do(t, http.MethodGet, "/api/client-connections/"+found.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &byID)
	assert.Equal(t, "CTO-Centro", byID.Cto.Name)

	var list []withBox
	decode(t, ts.do(t, http.MethodGet, "/api/client-connections", nil), &list)
	require.Len(t, list, 1)
	assert.Equal(t, "CTO-Centro", list[0].Cto.Name)

	decode(t, ts.do(t, http.MethodGet, "/api/client-connections/search/onu/ONU-C-1", nil), &list)
	require.Len(t, list, 1)
	assert.Equal(t, "CTO-Centro", list[0].Cto.Name)
}

func TestExportOccupancyStats(t *testing.T) {
	ts := newTestServer(t)
	ts.createBox(t, "CTO-A", 8)

	w := ts.do(t, http.MethodGet, "/api/ctos/occupancy-stats/export?format=pdf", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = ts.do(t, http.MethodGet, "/api/ctos/occupancy-stats/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")

	w = ts.do(t, http.MethodGet, "/api/ctos/occupancy-stats/export?format=csv", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthzAndVAPID(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/vapid_public_key", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"test-public-key"}`, w.Body.String())
}
