package hrfake

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/guarzo/hrapi/common/model"
	"github.com/guarzo/hrapi/modules/hr"
)

// DefaultPassword is given to accounts created through POST /employee.
const DefaultPassword = "changeme"

// ----------------------------------------------------------------------
// Auth
// ----------------------------------------------------------------------

func (s *Server) login(c *fiber.Ctx) error {
	var req model.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	emp, found := s.store.authenticate(req.Email, req.Password)
	if !found {
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	return s.issue(c, emp)
}

func (s *Server) refresh(c *fiber.Ctx) error {
	var req model.RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return fail(c, fiber.StatusBadRequest, "Refresh token is required")
	}
	id, err := s.tokens.redeem(req.RefreshToken)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid or expired refresh token")
	}
	emp, found := s.store.employee(id)
	if !found {
		return fail(c, fiber.StatusUnauthorized, "Unknown user")
	}
	return s.issue(c, emp)
}

func (s *Server) issue(c *fiber.Ctx, emp model.Employee) error {
	access, err := s.tokens.accessToken(emp.EmployeeID, emp.Role)
	if err != nil {
		return err
	}
	return ok(c, model.TokenPair{
		AccessToken:  access,
		RefreshToken: s.tokens.newRefreshToken(emp.EmployeeID),
	})
}

func (s *Server) logout(c *fiber.Ctx) error {
	s.tokens.revoke(callerID(c))
	return ok(c, nil)
}

// ----------------------------------------------------------------------
// Employees
// ----------------------------------------------------------------------

func (s *Server) getInfo(c *fiber.Ctx) error {
	emp, found := s.store.employee(callerID(c))
	if !found {
		return fail(c, fiber.StatusNotFound, "Employee not found")
	}
	return ok(c, emp)
}

func (s *Server) listRoles(c *fiber.Ctx) error {
	return ok(c, []string{model.RoleAdmin, model.RolePM, model.RoleEmployee})
}

func (s *Server) listEmployees(c *fiber.Ctx) error {
	page, size := c.QueryInt("page", 0), c.QueryInt("size", 10)
	if page < 0 || size < 1 {
		return fail(c, fiber.StatusBadRequest, "Invalid page")
	}
	all := s.store.listEmployees(c.Query("role"))
	return ok(c, paginate(all, page, size))
}

func (s *Server) searchEmployees(c *fiber.Ctx) error {
	needle := strings.ToLower(c.Query("email"))
	out := []model.EmployeeSearchResult{}
	for _, e := range s.store.listEmployees(c.Query("role")) {
		if needle != "" && !strings.Contains(strings.ToLower(e.Email), needle) {
			continue
		}
		out = append(out, model.EmployeeSearchResult{EmployeeID: e.EmployeeID, FullName: e.FullName(), Email: e.Email})
	}
	return ok(c, out)
}

func (s *Server) createEmployee(c *fiber.Ctx) error {
	var in model.EmployeeInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	emp, err := s.store.addEmployee(in, DefaultPassword)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, emp)
}

func (s *Server) updateEmployee(c *fiber.Ctx) error {
	var in model.EmployeeInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	emp, err := s.store.updateEmployee(in)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, emp)
}

func (s *Server) deleteEmployee(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid employee id")
	}
	if err := s.store.deleteEmployee(int64(id)); err != nil {
		return failErr(c, err)
	}
	s.tokens.revoke(int64(id))
	return ok(c, nil)
}

func (s *Server) changeRole(c *fiber.Ctx) error {
	var req model.ChangeRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	switch req.Role {
	case model.RoleAdmin, model.RolePM, model.RoleEmployee:
	default:
		return fail(c, fiber.StatusBadRequest, "Unknown role")
	}
	if err := s.store.setRole(req.EmployeeID, req.Role); err != nil {
		return failErr(c, err)
	}
	return ok(c, nil)
}

func (s *Server) projectHistory(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid employee id")
	}
	if _, found := s.store.employee(int64(id)); !found {
		return fail(c, fiber.StatusNotFound, "Employee not found")
	}
	return ok(c, nonNil(s.store.history(int64(id))))
}

func (s *Server) participationPeriods(c *fiber.Ctx) error {
	projectID, err1 := c.ParamsInt("projectId")
	employeeID, err2 := c.ParamsInt("employeeId")
	if err1 != nil || err2 != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid id")
	}
	return ok(c, nonNil(s.store.periods(int64(projectID), int64(employeeID))))
}

// ----------------------------------------------------------------------
// Projects
// ----------------------------------------------------------------------

func (s *Server) listProjects(c *fiber.Ctx) error {
	page, size := c.QueryInt("page", 0), c.QueryInt("size", 10)
	if page < 0 || size < 1 {
		return fail(c, fiber.StatusBadRequest, "Invalid page")
	}
	return ok(c, paginate(s.store.listProjects(nil), page, size))
}

func (s *Server) managedProjects(c *fiber.Ctx) error {
	email := callerEmail(c)
	return ok(c, s.store.listProjects(func(p *model.Project) bool {
		return strings.EqualFold(p.PMEmail, email)
	}))
}

func (s *Server) employeeProjects(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid employee id")
	}
	return ok(c, s.store.employeeProjects(int64(id)))
}

func (s *Server) createProject(c *fiber.Ctx) error {
	var in model.ProjectInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := hr.ValidateProject(in); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	return ok(c, s.store.addProject(in))
}

func (s *Server) updateProject(c *fiber.Ctx) error {
	var in model.ProjectInput
	if err := c.BodyParser(&in); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := hr.ValidateProject(in); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	p, err := s.store.updateProject(in)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, p)
}

func (s *Server) deleteProject(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid project id")
	}
	if err := s.store.deleteProject(int64(id)); err != nil {
		return failErr(c, err)
	}
	return ok(c, nil)
}

func (s *Server) members(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid project id")
	}
	if _, found := s.store.project(int64(id)); !found {
		return fail(c, fiber.StatusNotFound, "Project not found")
	}
	return ok(c, nonNil(s.store.members(int64(id))))
}

// ----------------------------------------------------------------------
// Assignments
// ----------------------------------------------------------------------

func (s *Server) assign(c *fiber.Ctx) error {
	var req model.AssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	project, found := s.store.project(req.ProjectID)
	if !found {
		return fail(c, fiber.StatusNotFound, "Project not found")
	}
	if !s.manages(c, project) {
		return fail(c, fiber.StatusForbidden, "Not the manager of this project")
	}
	if err := hr.ValidateAssignment(project, s.store.members(project.ProjectID), req); err != nil {
		return fail(c, fiber.StatusBadRequest, err.Error())
	}
	id, err := s.store.addAssignment(req)
	if err != nil {
		return failErr(c, err)
	}
	return ok(c, fiber.Map{"assignmentId": id})
}

func (s *Server) updateAssignment(c *fiber.Ctx) error {
	var upd model.AssignmentUpdate
	if err := c.BodyParser(&upd); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if upd.WorkloadPercent < 1 || upd.WorkloadPercent > 100 {
		return fail(c, fiber.StatusBadRequest, hr.MsgWorkload)
	}
	projectID, found := s.store.assignmentProject(upd.AssignmentID)
	if !found {
		return fail(c, fiber.StatusNotFound, "Assignment not found")
	}
	project, _ := s.store.project(projectID)
	if !s.manages(c, project) {
		return fail(c, fiber.StatusForbidden, "Not the manager of this project")
	}
	if _, err := s.store.updateAssignment(upd); err != nil {
		return failErr(c, err)
	}
	return ok(c, nil)
}

// manages reports whether the caller may change assignments of project.
func (s *Server) manages(c *fiber.Ctx, project model.Project) bool {
	role, _ := c.Locals("role").(string)
	return role == model.RoleAdmin || strings.EqualFold(project.PMEmail, callerEmail(c))
}

func callerID(c *fiber.Ctx) int64 {
	id, _ := c.Locals("employeeId").(int64)
	return id
}

func callerEmail(c *fiber.Ctx) string {
	email, _ := c.Locals("email").(string)
	return email
}

func paginate[T any](all []T, page, size int) model.Page[T] {
	start := page * size
	if start > len(all) {
		start = len(all)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	return model.Page[T]{Content: all[start:end], TotalElements: int64(len(all))}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
