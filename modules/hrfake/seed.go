package hrfake

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guarzo/hrapi/common/model"
	"github.com/guarzo/hrapi/modules/hr"
)

// Demo accounts created by SeedDemo. Every one uses DemoPassword.
const (
	DemoAdminEmail    = "admin@example.com"
	DemoPMEmail       = "pm@example.com"
	DemoEmployeeEmail = "employee@example.com"
	DemoPassword      = "password123"
)

// AddEmployee creates an account that can log in with password.
func (s *Server) AddEmployee(in model.EmployeeInput, password string) (model.Employee, error) {
	return s.store.addEmployee(in, password)
}

// AddProject creates a project.
func (s *Server) AddProject(in model.ProjectInput) model.Project {
	return s.store.addProject(in)
}

// Assign adds an assignment after the same checks the API applies.
func (s *Server) Assign(req model.AssignmentRequest) (int64, error) {
	project, found := s.store.project(req.ProjectID)
	if found {
		if err := hr.ValidateAssignment(project, s.store.members(project.ProjectID), req); err != nil {
			return 0, err
		}
	}
	return s.store.addAssignment(req)
}

// SeedDemo loads one account per role, two projects and a few assignments.
func (s *Server) SeedDemo() error {
	admin, err := s.AddEmployee(model.EmployeeInput{FirstName: "Alice", LastName: "Admin", Email: DemoAdminEmail, Role: model.RoleAdmin}, DemoPassword)
	if err != nil {
		return err
	}
	pm, err := s.AddEmployee(model.EmployeeInput{FirstName: "Paul", LastName: "Manager", Email: DemoPMEmail, Role: model.RolePM}, DemoPassword)
	if err != nil {
		return err
	}
	emp, err := s.AddEmployee(model.EmployeeInput{
		FirstName: "Eve",
		LastName:  "Engineer",
		Email:     DemoEmployeeEmail,
		Role:      model.RoleEmployee,
		Dob:       model.DatePtr(model.NewDate(1994, time.May, 17)),
	}, DemoPassword)
	if err != nil {
		return err
	}

	year := time.Now().Year()
	apollo := s.AddProject(model.ProjectInput{
		ProjectName: "Apollo",
		PMEmail:     pm.Email,
		StartDate:   model.NewDate(year, time.January, 1),
		EndDate:     model.DatePtr(model.NewDate(year, time.December, 31)),
		Description: "Customer portal rewrite",
	})
	gemini := s.AddProject(model.ProjectInput{
		ProjectName: "Gemini",
		PMEmail:     pm.Email,
		StartDate:   model.NewDate(year, time.March, 1),
		Description: "Internal tooling",
	})

	for _, req := range []model.AssignmentRequest{
		{EmployeeID: emp.EmployeeID, ProjectID: apollo.ProjectID, WorkloadPercent: 60, StartDate: model.NewDate(year, time.January, 15), EndDate: model.DatePtr(model.NewDate(year, time.June, 30))},
		{EmployeeID: emp.EmployeeID, ProjectID: gemini.ProjectID, WorkloadPercent: 40, StartDate: model.NewDate(year, time.March, 1)},
		{EmployeeID: pm.EmployeeID, ProjectID: apollo.ProjectID, WorkloadPercent: 20, StartDate: model.NewDate(year, time.January, 1)},
	} {
		if _, err := s.Assign(req); err != nil {
			return err
		}
	}

	log.Info().
		Int64("admin", admin.EmployeeID).
		Int64("pm", pm.EmployeeID).
		Int64("employee", emp.EmployeeID).
		Msg("seeded demo data")
	return nil
}
