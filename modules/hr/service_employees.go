package hr

import (
	"context"
	"fmt"
	"strings"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/common/model"
)

// ListEmployees returns one page of the admin employee listing. page is
// 1-based; role filters when non-empty.
func (s *hrService) ListEmployees(ctx context.Context, page, size int, role string) (*model.Page[model.Employee], error) {
	params, err := wirePage(page, size)
	if err != nil {
		return nil, err
	}
	if role != "" {
		params["role"] = role
	}
	var out model.Page[model.Employee]
	if err := s.client.GetJSON(ctx, "/employee/admin", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *hrService) CreateEmployee(ctx context.Context, in model.EmployeeInput) (*model.Employee, error) {
	in.EmployeeID = 0
	if err := validateEmployee(in); err != nil {
		return nil, err
	}
	var out model.Employee
	if err := s.client.PostJSON(ctx, "/employee", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *hrService) UpdateEmployee(ctx context.Context, in model.EmployeeInput) (*model.Employee, error) {
	if in.EmployeeID == 0 {
		return nil, fmt.Errorf("%w: employee id is required", common.ErrInvalidRequest)
	}
	if err := validateEmployee(in); err != nil {
		return nil, err
	}
	var out model.Employee
	if err := s.client.PutJSON(ctx, "/employee", in, &out); err != nil {
		return nil, mapNotFound(err)
	}
	return &out, nil
}

func (s *hrService) DeleteEmployee(ctx context.Context, employeeID int64) error {
	endpoint := fmt.Sprintf("/employee/%d", employeeID)
	return mapNotFound(s.client.DeleteJSON(ctx, endpoint, nil))
}

func (s *hrService) ListRoles(ctx context.Context) ([]string, error) {
	var roles []string
	if err := s.client.GetJSON(ctx, "/employee/role-list", nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *hrService) ChangeRole(ctx context.Context, employeeID int64, role string) error {
	if role == "" {
		return fmt.Errorf("%w: role is required", common.ErrInvalidRequest)
	}
	req := model.ChangeRoleRequest{EmployeeID: employeeID, Role: role}
	return mapNotFound(s.client.PutJSON(ctx, "/employee/change-role", req, nil))
}

func (s *hrService) ProjectHistory(ctx context.Context, employeeID int64) ([]model.ProjectHistoryEntry, error) {
	endpoint := fmt.Sprintf("/employee/project-history/%d", employeeID)
	var out []model.ProjectHistoryEntry
	if err := s.client.GetJSON(ctx, endpoint, nil, &out); err != nil {
		return nil, mapNotFound(err)
	}
	return out, nil
}

// SearchEmployees looks employees up by email fragment, optionally limited to a role.
func (s *hrService) SearchEmployees(ctx context.Context, email, role string) ([]model.EmployeeSearchResult, error) {
	params := map[string]string{"email": email}
	if role != "" {
		params["role"] = role
	}
	var out []model.EmployeeSearchResult
	if err := s.client.GetJSON(ctx, "/employee/search", params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ParticipationPeriods lists the periods employeeID spent on projectID.
func (s *hrService) ParticipationPeriods(ctx context.Context, projectID, employeeID int64) ([]model.ParticipationPeriod, error) {
	endpoint := fmt.Sprintf("/employee/%d/%d", projectID, employeeID)
	var out []model.ParticipationPeriod
	if err := s.client.GetJSON(ctx, endpoint, nil, &out); err != nil {
		return nil, mapNotFound(err)
	}
	return out, nil
}

func validateEmployee(in model.EmployeeInput) error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.FirstName) == "" {
		verr.add("firstName", "First name is required.")
	}
	if strings.TrimSpace(in.LastName) == "" {
		verr.add("lastName", "Last name is required.")
	}
	if !strings.Contains(in.Email, "@") {
		verr.add("email", "Please enter a valid email!")
	}
	return verr.orNil()
}
