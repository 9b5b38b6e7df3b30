package task

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/CognitionIES/teamsync/internal/auth"
	"github.com/CognitionIES/teamsync/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testSecret = "test-secret-key-with-at-least-32-bytes!!"

func (f *fixture) mux() *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(f.svc).RegisterHandlers(context.Background(), mux)
	return mux
}

func do(t *testing.T, h http.Handler, p *auth.Principal, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHTTPAssignAndMark(t *testing.T) {
	f := newFixture(t)
	pid, lines, _ := f.pid("P-77", 2, 0)
	mux := f.mux()

	rec := do(t, mux, &f.lead, http.MethodPost, "/tasks/assign-pid", dto.AssignPIDRequest{
		PIDID:     pid.ID.String(),
		UserID:    f.alice.UserID.String(),
		TaskType:  "Redline",
		ProjectID: f.project.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var assigned dto.AssignPIDResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&assigned))
	assert.Equal(t, "P-77", assigned.PIDNumber)
	assert.Equal(t, 2, assigned.ItemsCount)
	assert.True(t, assigned.IsNewTask)

	rec = do(t, mux, &f.lead, http.MethodPost, "/tasks/assign-pid", dto.AssignPIDRequest{
		PIDID:     pid.ID.String(),
		UserID:    f.bob.UserID.String(),
		TaskType:  "Redline",
		ProjectID: f.project.ID.String(),
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	var conflict struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&conflict))
	assert.Equal(t, "PID_ALREADY_ASSIGNED", conflict.Code)
	assert.Equal(t, "Alice", conflict.Details["assigneeName"])

	lineID := lines[0].ID.String()
	rec = do(t, mux, &f.alice, http.MethodPost, "/work-items/pid/status", dto.MarkPIDItemRequest{
		PIDID:    pid.ID.String(),
		LineID:   &lineID,
		UserID:   f.alice.UserID.String(),
		TaskType: "Redline",
		Status:   "Completed",
		Blocks:   5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var marked dto.MarkItemResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&marked))
	assert.Equal(t, "Completed", marked.Status)
	assert.Equal(t, 5, marked.Blocks)
	assert.Equal(t, 50, marked.TaskProgress)
	assert.Equal(t, assigned.TaskID, marked.TaskID)

	rec = do(t, mux, &f.alice, http.MethodGet, "/tasks/"+assigned.TaskID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var task dto.TaskResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&task))
	assert.Equal(t, "InProgress", task.Status)
	assert.Len(t, task.PIDItems, 2)

	rec = do(t, mux, &f.alice, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.TaskListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list.Tasks, 1)
}

func TestHTTPErrors(t *testing.T) {
	f := newFixture(t)
	mux := f.mux()

	rec := do(t, mux, nil, http.MethodGet, "/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, mux, &f.lead, http.MethodPost, "/tasks", map[string]interface{}{"unknown": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, &f.alice, http.MethodPost, "/tasks", dto.AssignItemsRequest{
		TaskType:   "QC",
		AssigneeID: f.alice.UserID.String(),
		Items:      []dto.AssignItem{{Name: "L-1", Type: "Line"}},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, mux, &f.alice, http.MethodGet, "/tasks/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, &f.alice, http.MethodPost, "/work-items/"+f.alice.UserID.String()+"/complete", dto.CompleteWorkItemRequest{Blocks: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPExplicitTaskFlow(t *testing.T) {
	f := newFixture(t)
	mux := f.mux()

	rec := do(t, mux, &f.lead, http.MethodPost, "/tasks", dto.AssignItemsRequest{
		TaskType:   "QC",
		AssigneeID: f.alice.UserID.String(),
		Items:      []dto.AssignItem{{Name: "L-1", Type: "Line"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created dto.TaskResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "Assigned", created.Status)
	require.Len(t, created.Items, 1)

	rec = do(t, mux, &f.alice, http.MethodPatch, "/tasks/"+created.ID+"/status", dto.UpdateTaskStatusRequest{Status: "Completed"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, mux, &f.alice, http.MethodPost, "/work-items/"+created.Items[0].ID+"/complete", dto.CompleteWorkItemRequest{Blocks: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var completed dto.MarkItemResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&completed))
	assert.Equal(t, "Completed", completed.TaskStatus)
	assert.Equal(t, 100, completed.TaskProgress)
}

func startGRPC(t *testing.T, f *fixture) *TaskServiceClient {
	t.Helper()
	authenticator, err := auth.NewAuthenticator(testSecret, nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer(grpc.UnaryInterceptor(authenticator.UnaryServerInterceptor()))
	RegisterTaskServiceServer(server, NewGrpcHandler(f.svc))
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewTaskServiceClient(conn)
}

func withToken(t *testing.T, p auth.Principal) context.Context {
	t.Helper()
	token, err := auth.SignToken(p, []byte(testSecret), time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+token)
}

func TestGRPCAssignAndMark(t *testing.T) {
	f := newFixture(t)
	pid, _, equipment := f.pid("P-88", 1, 1)
	client := startGRPC(t, f)

	_, err := client.GetTask(context.Background(), &dto.GetTaskRequest{ID: pid.ID.String()})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	assigned, err := client.AssignPID(withToken(t, f.lead), &dto.AssignPIDRequest{
		PIDID:     pid.ID.String(),
		UserID:    f.alice.UserID.String(),
		TaskType:  "UPV",
		ProjectID: f.project.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, assigned.ItemsCount)

	_, err = client.AssignPID(withToken(t, f.lead), &dto.AssignPIDRequest{
		PIDID:     pid.ID.String(),
		UserID:    f.bob.UserID.String(),
		TaskType:  "UPV",
		ProjectID: f.project.ID.String(),
	})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	equipmentID := equipment[0].ID.String()
	marked, err := client.MarkPIDItem(withToken(t, f.alice), &dto.MarkPIDItemRequest{
		PIDID:       pid.ID.String(),
		EquipmentID: &equipmentID,
		UserID:      f.alice.UserID.String(),
		TaskType:    "UPV",
		Status:      "Completed",
		Blocks:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, 50, marked.TaskProgress)

	_, err = client.MarkPIDItem(withToken(t, f.alice), &dto.MarkPIDItemRequest{
		PIDID:       pid.ID.String(),
		EquipmentID: &equipmentID,
		UserID:      f.alice.UserID.String(),
		TaskType:    "UPV",
		Status:      "Skipped",
	})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	task, err := client.GetTask(withToken(t, f.alice), &dto.GetTaskRequest{ID: assigned.TaskID})
	require.NoError(t, err)
	assert.Equal(t, "InProgress", task.Status)

	_, err = client.GetTask(withToken(t, f.bob), &dto.GetTaskRequest{ID: assigned.TaskID})
	assert.Equal(t, codes.NotFound, status.Code(err))
}
