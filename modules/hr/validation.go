package hr

import (
	"fmt"
	"strings"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/common/model"
)

// Field error messages shown to the user.
const (
	MsgStartBeforeProject = "Assignment start date cannot be before the project start date."
	MsgEndAfterProject    = "Assignment end date cannot be after the project end date."
	MsgStartAfterEnd      = "Assignment start date cannot be after assignment end date."
	MsgOverlap            = "This employee already has an overlapping assignment period in this project."
	MsgWorkload           = "Workload must be between 1 and 100."
	MsgProjectDates       = "Start date must be before end date!"
	MsgStartRequired      = "Start date is required."
)

// FieldError is one rejected form field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every rejected field of a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return common.ErrInvalidRequest }

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ValidateAssignment checks an assignment against its project and the
// project's current members before it is submitted. All violations are
// reported together.
func ValidateAssignment(project model.Project, members []model.ProjectMember, req model.AssignmentRequest) error {
	verr := &ValidationError{}
	start := req.StartDate
	end := openEnd(req.EndDate)

	if start.IsZero() {
		verr.add("startDate", MsgStartRequired)
		return verr
	}
	if !project.StartDate.IsZero() && start.BeforeDay(project.StartDate) {
		verr.add("startDate", MsgStartBeforeProject)
	}
	if projEnd := openEnd(project.EndDate); end != nil && projEnd != nil && end.AfterDay(*projEnd) {
		verr.add("endDate", MsgEndAfterProject)
	}
	if end != nil && start.AfterDay(*end) {
		verr.add("startDate", MsgStartAfterEnd)
	}

	for _, m := range members {
		if m.EmployeeID != req.EmployeeID {
			continue
		}
		if Overlaps(m.StartDate, openEnd(m.EndDate), start, end) {
			verr.add("employeeId", MsgOverlap)
			break
		}
	}

	if req.WorkloadPercent < 1 || req.WorkloadPercent > 100 {
		verr.add("workloadPercent", MsgWorkload)
	}
	return verr.orNil()
}

// Overlaps reports whether the new period [start, end] collides with an
// existing one, at day granularity with inclusive bounds. A nil end is
// open-ended. Two open-ended periods only collide when they start on the
// same day.
func Overlaps(existingStart model.Date, existingEnd *model.Date, start model.Date, end *model.Date) bool {
	switch {
	case end == nil && existingEnd == nil:
		return start.SameDay(existingStart)
	case end == nil:
		return !start.BeforeDay(existingStart) && !start.AfterDay(*existingEnd)
	case existingEnd == nil:
		return !end.BeforeDay(existingStart)
	default:
		return !start.AfterDay(*existingEnd) && !end.BeforeDay(existingStart)
	}
}

// ValidateProject checks the dates of a project form.
func ValidateProject(in model.ProjectInput) error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.ProjectName) == "" {
		verr.add("projectName", "Project name is required.")
	}
	if in.StartDate.IsZero() {
		verr.add("startDate", MsgStartRequired)
	} else if end := openEnd(in.EndDate); end != nil && in.StartDate.AfterDay(*end) {
		verr.add("startDate", MsgProjectDates)
	}
	return verr.orNil()
}

// openEnd treats a zero date the same as a missing one.
func openEnd(d *model.Date) *model.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}
