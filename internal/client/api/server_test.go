package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/dmitrijs2005/healthsync/internal/client/models"
	"github.com/dmitrijs2005/healthsync/internal/client/reconciler"
	"github.com/dmitrijs2005/healthsync/internal/client/services"
	"github.com/dmitrijs2005/healthsync/internal/client/status"
	"github.com/dmitrijs2005/healthsync/internal/clockx"
	"github.com/dmitrijs2005/healthsync/internal/common"
	"github.com/dmitrijs2005/healthsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	services.SyncService

	publisher *status.Publisher

	patients   []models.Patient
	screenings map[string][]models.Screening
	records    []*models.Record
	failed     []*models.QueueEntry
	syncRes    reconciler.Result
	syncErr    error
	last       *reconciler.Result
	retried    []string
	acked      bool
}

func newFakeService() *fakeService {
	return &fakeService{
		publisher:  status.New(clockx.NewFake(time.Unix(0, 0)), time.Second, logging.Nop{}),
		screenings: map[string][]models.Screening{},
	}
}

func (f *fakeService) EnqueueParentCreate(_ context.Context, p models.Patient) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	f.patients = append(f.patients, p)
	return fmt.Sprintf("local_%d", len(f.patients)), nil
}

func (f *fakeService) EnqueueDependentCreate(_ context.Context, parentLocalID string, s models.Screening) (string, error) {
	if parentLocalID != "local_1" {
		return "", fmt.Errorf("failed to load patient: %w", common.ErrNotFound)
	}
	f.screenings[parentLocalID] = append(f.screenings[parentLocalID], s)
	return "local_s1", nil
}

func (f *fakeService) ListPatients(context.Context) ([]*models.Record, error) {
	return f.records, nil
}

func (f *fakeService) ListScreenings(_ context.Context, parentLocalID string) ([]*models.DependentRecord, error) {
	if parentLocalID != "local_1" {
		return nil, common.ErrNotFound
	}
	return nil, nil
}

func (f *fakeService) TriggerSyncNow(context.Context) (reconciler.Result, error) {
	return f.syncRes, f.syncErr
}

func (f *fakeService) SubscribeStatus(fn func(status.Snapshot)) func() {
	return f.publisher.Subscribe(fn)
}

func (f *fakeService) CurrentStatus() status.Snapshot { return f.publisher.Current() }

func (f *fakeService) LastResult() *reconciler.Result { return f.last }

func (f *fakeService) GetPendingCount(context.Context) (int, error) { return 3, nil }

func (f *fakeService) LocalStats(context.Context) (services.LocalStats, error) {
	return services.LocalStats{Patients: 2, Screenings: 1, Pending: 3}, nil
}

func (f *fakeService) ListFailed(context.Context) ([]*models.QueueEntry, error) {
	return f.failed, nil
}

func (f *fakeService) RetryFailed(_ context.Context, id string) error {
	if id != "q1" {
		return fmt.Errorf("failed to requeue entry %s: %w", id, common.ErrNotFound)
	}
	f.retried = append(f.retried, id)
	return nil
}

func (f *fakeService) AcknowledgeFailures() { f.acked = true }

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreatePatient(t *testing.T) {
	svc := newFakeService()
	h := NewServer(svc, nil, logging.Nop{}).Routes()

	rec := do(t, h, http.MethodPost, "/api/patients", `{"full_name":"Asha","age":30,"gender":"Female","village":"Rampur"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"local_id":"local_1"}`, rec.Body.String())
	require.Len(t, svc.patients, 1)
	assert.Equal(t, "Asha", svc.patients[0].FullName)
}

func TestCreatePatient_BadRequests(t *testing.T) {
	h := NewServer(newFakeService(), nil, logging.Nop{}).Routes()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"full_name":`},
		{name: "unknown field", body: `{"full_name":"A","age":1,"gender":"Male","village":"V","risk":9}`},
		{name: "invalid", body: `{"full_name":"","age":-1,"gender":"Male","village":"V"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/patients", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "validation error")
		})
	}
}

func TestCreateScreening(t *testing.T) {
	svc := newFakeService()
	h := NewServer(svc, nil, logging.Nop{}).Routes()

	rec := do(t, h, http.MethodPost, "/api/patients/local_1/screenings", `{"systolic_bp":120,"smoking_status":"Never"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"local_id":"local_s1"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/patients/local_404/screenings", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListEndpoints(t *testing.T) {
	svc := newFakeService()
	sid := int64(101)
	svc.records = []*models.Record{{LocalID: "local_1", ServerID: &sid, Synced: true, Payload: json.RawMessage(`{"full_name":"Asha"}`)}}
	h := NewServer(svc, nil, logging.Nop{}).Routes()

	rec := do(t, h, http.MethodGet, "/api/patients", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(101), *got[0].ServerID)

	rec = do(t, h, http.MethodGet, "/api/patients/local_1/screenings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/queue/failed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/queue/pending-count", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pending_count":3}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"local_patients":2,"local_screenings":1,"pending_sync":3,"failed_sync":0}`, rec.Body.String())
}

func TestSyncNow_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "ok", code: http.StatusOK},
		{name: "draining", err: reconciler.ErrAlreadyDraining, code: http.StatusConflict},
		{name: "offline", err: reconciler.ErrOffline, code: http.StatusServiceUnavailable},
		{name: "no token", err: reconciler.ErrUnauthenticated, code: http.StatusUnauthorized},
		{name: "store", err: fmt.Errorf("failed to count pending entries: disk I/O error"), code: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.syncRes = reconciler.Result{Attempted: 2, Synced: 2}
			svc.syncErr = tt.err
			h := NewServer(svc, nil, logging.Nop{}).Routes()

			rec := do(t, h, http.MethodPost, "/api/sync", "")
			assert.Equal(t, tt.code, rec.Code)
			if tt.err == nil {
				var res reconciler.Result
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				assert.Equal(t, 2, res.Synced)
			}
		})
	}
}

func TestRetryAndAcknowledge(t *testing.T) {
	svc := newFakeService()
	h := NewServer(svc, nil, logging.Nop{}).Routes()

	rec := do(t, h, http.MethodPost, "/api/queue/failed/q1/retry", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"q1"}, svc.retried)

	rec = do(t, h, http.MethodPost, "/api/queue/failed/nope/retry", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/status/ack", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, svc.acked)
}

func TestGetStatus(t *testing.T) {
	svc := newFakeService()
	svc.publisher.UpdateCounts(4, 0)
	h := NewServer(svc, nil, logging.Nop{}).Routes()

	rec := do(t, h, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap status.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, status.Idle, snap.Status)
	assert.Equal(t, 4, snap.PendingCount)
	assert.NotContains(t, rec.Body.String(), "last_result")

	svc.last = &reconciler.Result{Attempted: 2, Synced: 1, TerminalFailures: 1, Pending: 1, Failed: 1}
	rec = do(t, h, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		status.Snapshot
		LastResult *reconciler.Result `json:"last_result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 4, body.PendingCount)
	require.NotNil(t, body.LastResult)
	assert.Equal(t, *svc.last, *body.LastResult)
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("healthsync_online 1\n"))
	})
	h := NewServer(newFakeService(), metrics, logging.Nop{}).Routes()

	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthsync_online")

	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, "ok", rec.Body.String())
}

func TestStreamStatus(t *testing.T) {
	svc := newFakeService()
	srv := httptest.NewServer(NewServer(svc, nil, logging.Nop{}).Routes())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/status/stream"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	var snap status.Snapshot
	require.NoError(t, wsjson.Read(ctx, conn, &snap))
	assert.Equal(t, status.Idle, snap.Status)

	svc.publisher.Syncing(2, 0)
	require.NoError(t, wsjson.Read(ctx, conn, &snap))
	assert.Equal(t, status.Syncing, snap.Status)
	assert.Equal(t, 2, snap.PendingCount)
}
