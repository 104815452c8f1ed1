package hr

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/common/model"
)

// Assign adds an employee to a project. The project must be one the caller
// manages; the request is checked against it and its current members before
// anything is sent.
func (s *hrService) Assign(ctx context.Context, req model.AssignmentRequest) error {
	projects, err := s.ListManagedProjects(ctx)
	if err != nil {
		return err
	}
	var project *model.Project
	for i := range projects {
		if projects[i].ProjectID == req.ProjectID {
			project = &projects[i]
			break
		}
	}
	if project == nil {
		return fmt.Errorf("%w: invalid project selected", common.ErrInvalidRequest)
	}

	members, err := s.ListMembers(ctx, project.ProjectID)
	if err != nil {
		return err
	}
	if err := ValidateAssignment(*project, members, req); err != nil {
		return err
	}

	if err := s.client.PostJSON(ctx, "/project/assign", req, nil); err != nil {
		return err
	}
	log.Info().Int64("employee", req.EmployeeID).Int64("project", req.ProjectID).Msg("assigned")
	return nil
}

func (s *hrService) UpdateAssignment(ctx context.Context, upd model.AssignmentUpdate) error {
	if upd.AssignmentID == 0 {
		return fmt.Errorf("%w: assignment id is required", common.ErrInvalidRequest)
	}
	verr := &ValidationError{}
	if upd.WorkloadPercent < 1 || upd.WorkloadPercent > 100 {
		verr.add("workloadPercent", MsgWorkload)
	}
	if upd.StartDate != nil && !upd.StartDate.IsZero() {
		if end := openEnd(upd.EndDate); end != nil && upd.StartDate.AfterDay(*end) {
			verr.add("startDate", MsgProjectDates)
		}
	}
	if err := verr.orNil(); err != nil {
		return err
	}
	return mapNotFound(s.client.PutJSON(ctx, "/project/update-assignment", upd, nil))
}
