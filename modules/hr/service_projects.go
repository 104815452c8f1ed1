package hr

import (
	"context"
	"fmt"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/common/model"
)

// ListProjects returns one page of the admin project listing. page is 1-based.
func (s *hrService) ListProjects(ctx context.Context, page, size int) (*model.Page[model.Project], error) {
	params, err := wirePage(page, size)
	if err != nil {
		return nil, err
	}
	var out model.Page[model.Project]
	if err := s.client.GetJSON(ctx, "/project/admin", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEmployeeProjects returns the projects employeeID takes part in.
func (s *hrService) ListEmployeeProjects(ctx context.Context, employeeID int64) ([]model.Project, error) {
	endpoint := fmt.Sprintf("/project/%d", employeeID)
	var out []model.Project
	if err := s.client.GetJSON(ctx, endpoint, nil, &out); err != nil {
		return nil, mapNotFound(err)
	}
	return out, nil
}

// ListManagedProjects returns the projects the caller manages. Rows without a
// project id cannot be assigned to and are dropped.
func (s *hrService) ListManagedProjects(ctx context.Context) ([]model.Project, error) {
	var raw []model.Project
	if err := s.client.GetJSON(ctx, "/project/project-manager", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]model.Project, 0, len(raw))
	for _, p := range raw {
		if p.ProjectID == 0 {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *hrService) CreateProject(ctx context.Context, in model.ProjectInput) (*model.Project, error) {
	in.ProjectID = 0
	if err := ValidateProject(in); err != nil {
		return nil, err
	}
	var out model.Project
	if err := s.client.PostJSON(ctx, "/project", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *hrService) UpdateProject(ctx context.Context, in model.ProjectInput) (*model.Project, error) {
	if in.ProjectID == 0 {
		return nil, fmt.Errorf("%w: project id is required", common.ErrInvalidRequest)
	}
	if err := ValidateProject(in); err != nil {
		return nil, err
	}
	var out model.Project
	if err := s.client.PutJSON(ctx, "/project", in, &out); err != nil {
		return nil, mapNotFound(err)
	}
	return &out, nil
}

func (s *hrService) DeleteProject(ctx context.Context, projectID int64) error {
	endpoint := fmt.Sprintf("/project/%d", projectID)
	return mapNotFound(s.client.DeleteJSON(ctx, endpoint, nil))
}

func (s *hrService) ListMembers(ctx context.Context, projectID int64) ([]model.ProjectMember, error) {
	endpoint := fmt.Sprintf("/project/%d/members", projectID)
	var out []model.ProjectMember
	if err := s.client.GetJSON(ctx, endpoint, nil, &out); err != nil {
		return nil, mapNotFound(err)
	}
	return out, nil
}
