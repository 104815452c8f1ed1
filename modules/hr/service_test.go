package hr_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/common/model"
	"github.com/guarzo/hrapi/modules/hr"
)

// mockHrClient answers GETs from a canned table of JSON payloads keyed by
// endpoint and records writes.
type mockHrClient struct {
	gets     map[string]string
	getErr   error
	params   map[string]map[string]string
	writes   []write
	writeErr error
}

type write struct {
	method   string
	endpoint string
	payload  interface{}
}

func newMockHrClient() *mockHrClient {
	return &mockHrClient{gets: map[string]string{}, params: map[string]map[string]string{}}
}

func (m *mockHrClient) GetJSON(ctx context.Context, endpoint string, params map[string]string, out interface{}) error {
	m.params[endpoint] = params
	if m.getErr != nil {
		return m.getErr
	}
	data, ok := m.gets[endpoint]
	if !ok {
		return common.NewHTTPError(http.StatusNotFound, []byte(`{"message":"not found"}`))
	}
	return json.Unmarshal([]byte(data), out)
}
func (m *mockHrClient) PostJSON(ctx context.Context, endpoint string, payload, out interface{}) error {
	m.writes = append(m.writes, write{http.MethodPost, endpoint, payload})
	return m.writeErr
}
func (m *mockHrClient) PutJSON(ctx context.Context, endpoint string, payload, out interface{}) error {
	m.writes = append(m.writes, write{http.MethodPut, endpoint, payload})
	return m.writeErr
}
func (m *mockHrClient) DeleteJSON(ctx context.Context, endpoint string, out interface{}) error {
	m.writes = append(m.writes, write{http.MethodDelete, endpoint, nil})
	return m.writeErr
}
func (m *mockHrClient) DoRequest(ctx context.Context, method, endpoint string, params map[string]string, body io.Reader) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func TestHrService_GetUserInfo(t *testing.T) {
	m := newMockHrClient()
	m.gets["/employee/info"] = `{"employeeId":9,"firstName":"Grace","lastName":"Hopper","email":"grace@example.com","role":"PM"}`
	svc := hr.NewHrService(m)

	info, err := svc.GetUserInfo(context.Background())
	require.NoError(t, err)

	want := &model.UserInfo{Name: "Grace Hopper", Role: "PM", EmployeeID: 9, Email: "grace@example.com"}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("GetUserInfo mismatch (-want +got):\n%s", diff)
	}
}

func TestHrService_ListEmployeesPaging(t *testing.T) {
	m := newMockHrClient()
	m.gets["/employee/admin"] = `{"content":[],"totalElements":0}`
	svc := hr.NewHrService(m)

	_, err := svc.ListEmployees(context.Background(), 2, 20, model.RolePM)
	require.NoError(t, err)
	want := map[string]string{"page": "1", "size": "20", "role": "PM"}
	if diff := cmp.Diff(want, m.params["/employee/admin"]); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}

	_, err = svc.ListEmployees(context.Background(), 0, 20, "")
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
}

func TestHrService_ListManagedProjectsDropsMissingIDs(t *testing.T) {
	m := newMockHrClient()
	m.gets["/project/project-manager"] = `[{"projectId":1,"projectName":"Apollo"},{"projectName":"Ghost"},{"projectId":2,"projectName":"Gemini"}]`
	svc := hr.NewHrService(m)

	got, err := svc.ListManagedProjects(context.Background())
	require.NoError(t, err)
	names := make([]string, 0, len(got))
	for _, p := range got {
		names = append(names, p.ProjectName)
	}
	assert.Equal(t, []string{"Apollo", "Gemini"}, names)
}

func TestHrService_NotFound(t *testing.T) {
	svc := hr.NewHrService(newMockHrClient())
	_, err := svc.ListMembers(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.True(t, common.IsStatus(err, http.StatusNotFound))
}

func TestHrService_Assign(t *testing.T) {
	m := newMockHrClient()
	m.gets["/project/project-manager"] = `[{"projectId":5,"projectName":"Apollo","startDate":"01-01-2024","endDate":"31-12-2024"}]`
	m.gets["/project/5/members"] = `[{"employeeId":7,"startDate":"01-02-2024","endDate":"29-02-2024","workloadPercent":50}]`
	svc := hr.NewHrService(m)

	req := model.AssignmentRequest{
		EmployeeID:      7,
		ProjectID:       5,
		WorkloadPercent: 40,
		StartDate:       model.NewDate(2024, time.March, 1),
		EndDate:         model.DatePtr(model.NewDate(2024, time.June, 30)),
	}
	require.NoError(t, svc.Assign(context.Background(), req))
	require.Len(t, m.writes, 1)
	assert.Equal(t, "/project/assign", m.writes[0].endpoint)
	assert.Equal(t, req, m.writes[0].payload)
}

func TestHrService_AssignRejectedLocally(t *testing.T) {
	m := newMockHrClient()
	m.gets["/project/project-manager"] = `[{"projectId":5,"startDate":"01-01-2024","endDate":"31-12-2024"}]`
	m.gets["/project/5/members"] = `[{"employeeId":7,"startDate":"01-02-2024","endDate":null}]`
	svc := hr.NewHrService(m)

	err := svc.Assign(context.Background(), model.AssignmentRequest{
		EmployeeID:      7,
		ProjectID:       5,
		WorkloadPercent: 40,
		StartDate:       model.NewDate(2024, time.March, 1),
		EndDate:         model.DatePtr(model.NewDate(2024, time.April, 1)),
	})
	var verr *hr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
	assert.Equal(t, []hr.FieldError{{Field: "employeeId", Message: hr.MsgOverlap}}, verr.Fields)
	assert.Empty(t, m.writes, "nothing sent")

	err = svc.Assign(context.Background(), model.AssignmentRequest{ProjectID: 99, StartDate: model.NewDate(2024, time.March, 1)})
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
}

func TestHrService_Writes(t *testing.T) {
	m := newMockHrClient()
	svc := hr.NewHrService(m)
	ctx := context.Background()

	_, err := svc.CreateEmployee(ctx, model.EmployeeInput{EmployeeID: 3, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Role: model.RoleEmployee})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteEmployee(ctx, 3))
	require.NoError(t, svc.ChangeRole(ctx, 3, model.RolePM))
	_, err = svc.CreateProject(ctx, model.ProjectInput{ProjectName: "Apollo", StartDate: model.NewDate(2024, time.January, 1)})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteProject(ctx, 5))
	require.NoError(t, svc.UpdateAssignment(ctx, model.AssignmentUpdate{AssignmentID: 8, WorkloadPercent: 80}))

	got := make([]string, 0, len(m.writes))
	for _, w := range m.writes {
		got = append(got, w.method+" "+w.endpoint)
	}
	want := []string{
		"POST /employee",
		"DELETE /employee/3",
		"PUT /employee/change-role",
		"POST /project",
		"DELETE /project/5",
		"PUT /project/update-assignment",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
	created := m.writes[0].payload.(model.EmployeeInput)
	assert.Zero(t, created.EmployeeID, "id is never sent on create")
}

func TestHrService_WriteValidation(t *testing.T) {
	m := newMockHrClient()
	svc := hr.NewHrService(m)
	ctx := context.Background()

	_, err := svc.CreateEmployee(ctx, model.EmployeeInput{FirstName: "Ada"})
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
	_, err = svc.UpdateProject(ctx, model.ProjectInput{ProjectName: "Apollo"})
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
	_, err = svc.CreateProject(ctx, model.ProjectInput{
		ProjectName: "Apollo",
		StartDate:   model.NewDate(2024, time.May, 1),
		EndDate:     model.DatePtr(model.NewDate(2024, time.April, 1)),
	})
	assert.ErrorIs(t, err, common.ErrInvalidRequest)
	assert.ErrorIs(t, svc.UpdateAssignment(ctx, model.AssignmentUpdate{AssignmentID: 1, WorkloadPercent: 0}), common.ErrInvalidRequest)
	assert.Empty(t, m.writes)
}
