package hrfake

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/guarzo/hrapi/common"
	"github.com/guarzo/hrapi/common/model"
)

type account struct {
	model.Employee
	passwordHash []byte
}

type assignment struct {
	id         int64
	employeeID int64
	projectID  int64
	workload   int
	start      model.Date
	end        *model.Date
}

// store holds every record of the fake backend in memory.
type store struct {
	mu          sync.RWMutex
	nextID      int64
	employees   map[int64]*account
	projects    map[int64]*model.Project
	assignments map[int64]*assignment
}

func newStore() *store {
	return &store{
		employees:   make(map[int64]*account),
		projects:    make(map[int64]*model.Project),
		assignments: make(map[int64]*assignment),
	}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

// HashPassword generates a bcrypt hash of the password
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
}

func (s *store) addEmployee(in model.EmployeeInput, password string) (model.Employee, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return model.Employee{}, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byEmailLocked(in.Email) != nil {
		return model.Employee{}, fmt.Errorf("%w: email %s already exists", common.ErrInvalidRequest, in.Email)
	}
	id := s.id()
	role := in.Role
	if role == "" {
		role = model.RoleEmployee
	}
	acc := &account{
		Employee: model.Employee{
			EmployeeID:   id,
			EmployeeCode: fmt.Sprintf("EMP%03d", id),
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Email:        in.Email,
			Role:         role,
			Dob:          in.Dob,
		},
		passwordHash: hash,
	}
	s.employees[id] = acc
	return acc.Employee, nil
}

func (s *store) updateEmployee(in model.EmployeeInput) (model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.employees[in.EmployeeID]
	if !ok {
		return model.Employee{}, common.ErrNotFound
	}
	if other := s.byEmailLocked(in.Email); other != nil && other.EmployeeID != in.EmployeeID {
		return model.Employee{}, fmt.Errorf("%w: email %s already exists", common.ErrInvalidRequest, in.Email)
	}
	acc.FirstName = in.FirstName
	acc.LastName = in.LastName
	acc.Email = in.Email
	acc.Dob = in.Dob
	if in.Role != "" {
		acc.Role = in.Role
	}
	return acc.Employee, nil
}

func (s *store) deleteEmployee(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.employees, id)
	for aid, a := range s.assignments {
		if a.employeeID == id {
			delete(s.assignments, aid)
		}
	}
	return nil
}

func (s *store) setRole(id int64, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.employees[id]
	if !ok {
		return common.ErrNotFound
	}
	acc.Role = role
	return nil
}

func (s *store) employee(id int64) (model.Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.employees[id]
	if !ok {
		return model.Employee{}, false
	}
	return acc.Employee, true
}

// authenticate returns the employee whose email and password match.
func (s *store) authenticate(email, password string) (model.Employee, bool) {
	s.mu.RLock()
	acc := s.byEmailLocked(email)
	s.mu.RUnlock()
	if acc == nil {
		return model.Employee{}, false
	}
	if bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		return model.Employee{}, false
	}
	return acc.Employee, true
}

func (s *store) byEmailLocked(email string) *account {
	for _, acc := range s.employees {
		if strings.EqualFold(acc.Email, email) {
			return acc
		}
	}
	return nil
}

func (s *store) listEmployees(role string) []model.Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Employee, 0, len(s.employees))
	for _, acc := range s.employees {
		if role != "" && acc.Role != role {
			continue
		}
		out = append(out, acc.Employee)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out
}

func (s *store) addProject(in model.ProjectInput) model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	p := &model.Project{
		ProjectID:   id,
		ProjectCode: fmt.Sprintf("PRJ%03d", id),
		ProjectName: in.ProjectName,
		PMEmail:     in.PMEmail,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Description: in.Description,
	}
	s.projects[id] = p
	return *p
}

func (s *store) updateProject(in model.ProjectInput) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[in.ProjectID]
	if !ok {
		return model.Project{}, common.ErrNotFound
	}
	p.ProjectName = in.ProjectName
	p.PMEmail = in.PMEmail
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
	p.Description = in.Description
	return *p, nil
}

func (s *store) deleteProject(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return common.ErrNotFound
	}
	delete(s.projects, id)
	for aid, a := range s.assignments {
		if a.projectID == id {
			delete(s.assignments, aid)
		}
	}
	return nil
}

func (s *store) project(id int64) (model.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return model.Project{}, false
	}
	return *p, true
}

// listProjects returns the projects accepted by keep, ordered by id.
func (s *store) listProjects(keep func(p *model.Project) bool) []model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Project, 0, len(s.projects))
	for _, p := range s.projects {
		if keep == nil || keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out
}

// employeeProjects returns every project employeeID has an assignment in.
func (s *store) employeeProjects(employeeID int64) []model.Project {
	s.mu.RLock()
	ids := make(map[int64]bool)
	for _, a := range s.assignments {
		if a.employeeID == employeeID {
			ids[a.projectID] = true
		}
	}
	s.mu.RUnlock()
	return s.listProjects(func(p *model.Project) bool { return ids[p.ProjectID] })
}

func (s *store) members(projectID int64) []model.ProjectMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ProjectMember
	for _, a := range s.sortedAssignmentsLocked() {
		if a.projectID != projectID {
			continue
		}
		acc, ok := s.employees[a.employeeID]
		if !ok {
			continue
		}
		out = append(out, model.ProjectMember{
			EmployeeID:      acc.EmployeeID,
			EmployeeCode:    acc.EmployeeCode,
			Email:           acc.Email,
			Role:            acc.Role,
			FullName:        acc.FullName(),
			WorkloadPercent: a.workload,
			StartDate:       a.start,
			EndDate:         a.end,
		})
	}
	return out
}

func (s *store) history(employeeID int64) []model.ProjectHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ProjectHistoryEntry
	for _, a := range s.sortedAssignmentsLocked() {
		if a.employeeID != employeeID {
			continue
		}
		p, ok := s.projects[a.projectID]
		if !ok {
			continue
		}
		out = append(out, model.ProjectHistoryEntry{
			AssignmentID:    a.id,
			ProjectID:       p.ProjectID,
			ProjectCode:     p.ProjectCode,
			ProjectName:     p.ProjectName,
			WorkloadPercent: a.workload,
			StartDate:       a.start,
			EndDate:         a.end,
		})
	}
	return out
}

func (s *store) periods(projectID, employeeID int64) []model.ParticipationPeriod {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ParticipationPeriod
	for _, a := range s.sortedAssignmentsLocked() {
		if a.projectID != projectID || a.employeeID != employeeID {
			continue
		}
		out = append(out, model.ParticipationPeriod{
			AssignmentID:    a.id,
			StartDate:       a.start,
			EndDate:         a.end,
			WorkloadPercent: a.workload,
		})
	}
	return out
}

func (s *store) addAssignment(req model.AssignmentRequest) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.employees[req.EmployeeID]; !ok {
		return 0, fmt.Errorf("%w: employee %d", common.ErrNotFound, req.EmployeeID)
	}
	if _, ok := s.projects[req.ProjectID]; !ok {
		return 0, fmt.Errorf("%w: project %d", common.ErrNotFound, req.ProjectID)
	}
	id := s.id()
	s.assignments[id] = &assignment{
		id:         id,
		employeeID: req.EmployeeID,
		projectID:  req.ProjectID,
		workload:   req.WorkloadPercent,
		start:      req.StartDate,
		end:        req.EndDate,
	}
	return id, nil
}

// updateAssignment applies upd. Nil dates leave the stored value unchanged.
func (s *store) updateAssignment(upd model.AssignmentUpdate) (projectID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[upd.AssignmentID]
	if !ok {
		return 0, common.ErrNotFound
	}
	a.workload = upd.WorkloadPercent
	if upd.StartDate != nil && !upd.StartDate.IsZero() {
		a.start = *upd.StartDate
	}
	if upd.EndDate != nil {
		if upd.EndDate.IsZero() {
			a.end = nil
		} else {
			end := *upd.EndDate
			a.end = &end
		}
	}
	return a.projectID, nil
}

func (s *store) assignmentProject(assignmentID int64) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[assignmentID]
	if !ok {
		return 0, false
	}
	return a.projectID, true
}

func (s *store) sortedAssignmentsLocked() []*assignment {
	out := make([]*assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}
