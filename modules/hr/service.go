package hr

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/common/model"
)

// HrService is the higher-level interface over the HR API used by the CLI.
type HrService interface {
	// Profile
	GetUserInfo(ctx context.Context) (*model.UserInfo, error)
	GetMyEmployee(ctx context.Context) (*model.Employee, error)

	// Employees
	ListEmployees(ctx context.Context, page, size int, role string) (*model.Page[model.Employee], error)
	CreateEmployee(ctx context.Context, in model.EmployeeInput) (*model.Employee, error)
	UpdateEmployee(ctx context.Context, in model.EmployeeInput) (*model.Employee, error)
	DeleteEmployee(ctx context.Context, employeeID int64) error
	ListRoles(ctx context.Context) ([]string, error)
	ChangeRole(ctx context.Context, employeeID int64, role string) error
	ProjectHistory(ctx context.Context, employeeID int64) ([]model.ProjectHistoryEntry, error)
	SearchEmployees(ctx context.Context, email, role string) ([]model.EmployeeSearchResult, error)
	ParticipationPeriods(ctx context.Context, projectID, employeeID int64) ([]model.ParticipationPeriod, error)

	// Projects
	ListProjects(ctx context.Context, page, size int) (*model.Page[model.Project], error)
	ListEmployeeProjects(ctx context.Context, employeeID int64) ([]model.Project, error)
	ListManagedProjects(ctx context.Context) ([]model.Project, error)
	CreateProject(ctx context.Context, in model.ProjectInput) (*model.Project, error)
	UpdateProject(ctx context.Context, in model.ProjectInput) (*model.Project, error)
	DeleteProject(ctx context.Context, projectID int64) error
	ListMembers(ctx context.Context, projectID int64) ([]model.ProjectMember, error)

	// Assignments
	Assign(ctx context.Context, req model.AssignmentRequest) error
	UpdateAssignment(ctx context.Context, upd model.AssignmentUpdate) error
}

type hrService struct {
	client HrClient
}

// NewHrService constructs an HrService.
func NewHrService(client HrClient) HrService {
	return &hrService{client: client}
}

// GetUserInfo loads the profile of the logged-in user.
func (s *hrService) GetUserInfo(ctx context.Context) (*model.UserInfo, error) {
	emp, err := s.GetMyEmployee(ctx)
	if err != nil {
		return nil, err
	}
	info := emp.UserInfo()
	return &info, nil
}

func (s *hrService) GetMyEmployee(ctx context.Context) (*model.Employee, error) {
	var emp model.Employee
	if err := s.client.GetJSON(ctx, "/employee/info", nil, &emp); err != nil {
		return nil, mapNotFound(err)
	}
	return &emp, nil
}

// wirePage converts a 1-based page number to the API's 0-based one.
func wirePage(page, size int) (map[string]string, error) {
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be at least 1", common.ErrInvalidRequest)
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: page size must be at least 1", common.ErrInvalidRequest)
	}
	return map[string]string{
		"page": fmt.Sprint(page - 1),
		"size": fmt.Sprint(size),
	}, nil
}

// mapNotFound lets callers test for common.ErrNotFound.
func mapNotFound(err error) error {
	var httpErr *common.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", common.ErrNotFound, err)
	}
	return err
}
