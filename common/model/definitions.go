package model

import (
	"encoding/json"
	"strings"
)

// If you want a helper for JSON unmarshal:
func JSONUnmarshal(data []byte, out interface{}) error {
	return json.Unmarshal(data, out)
}

// Roles known to the HR API.
const (
	RoleAdmin    = "ADMIN"
	RolePM       = "PM"
	RoleEmployee = "EMPLOYEE"
)

// DefaultUserRole is shown when the profile carries no role.
const DefaultUserRole = "Employee"

// ----------------------------------------------------------------------
// Wire envelope
// ----------------------------------------------------------------------

// Envelope wraps every HR API response body.
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

// Page is the paginated shape returned by the admin listings.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements"`
}

// ----------------------------------------------------------------------
// Auth
// ----------------------------------------------------------------------

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// TokenPair is the data payload of login and refresh responses.
// RefreshToken is optional on refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// UserInfo is the display profile of the logged-in user. It is never persisted.
type UserInfo struct {
	Name       string `json:"name"`
	Role       string `json:"role"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	EmployeeID int64  `json:"employeeId"`
	Email      string `json:"email"`
}

// ----------------------------------------------------------------------
// Employees
// ----------------------------------------------------------------------

// Employee is an employee record as returned by the API.
type Employee struct {
	EmployeeID   int64  `json:"employeeId"`
	EmployeeCode string `json:"employeeCode"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Dob          *Date  `json:"dob"`
	AvatarURL    string `json:"avatarUrl,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// FullName joins first and last name, trimming the gap when either is empty.
func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

// UserInfo derives the display profile from an employee record.
func (e Employee) UserInfo() UserInfo {
	role := e.Role
	if role == "" {
		role = DefaultUserRole
	}
	return UserInfo{
		Name:       e.FullName(),
		Role:       role,
		AvatarURL:  e.AvatarURL,
		EmployeeID: e.EmployeeID,
		Email:      e.Email,
	}
}

// EmployeeInput is the body of POST /employee and PUT /employee.
// EmployeeID is only sent on update.
type EmployeeInput struct {
	EmployeeID int64  `json:"employeeId,omitempty"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Dob        *Date  `json:"dob"`
	Role       string `json:"role"`
}

// ChangeRoleRequest is the body of PUT /employee/change-role.
type ChangeRoleRequest struct {
	EmployeeID int64  `json:"employeeId"`
	Role       string `json:"role"`
}

// EmployeeSearchResult is one hit of GET /employee/search.
type EmployeeSearchResult struct {
	EmployeeID int64  `json:"employeeId"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
}

// ProjectHistoryEntry is one assignment in an employee's history.
type ProjectHistoryEntry struct {
	AssignmentID    int64  `json:"assignmentId"`
	ProjectID       int64  `json:"projectId"`
	ProjectCode     string `json:"projectCode"`
	ProjectName     string `json:"projectName"`
	WorkloadPercent int    `json:"workloadPercent"`
	StartDate       Date   `json:"startDate"`
	EndDate         *Date  `json:"endDate"`
}

// ParticipationPeriod is one period an employee spent on a project.
type ParticipationPeriod struct {
	AssignmentID    int64 `json:"assignmentId"`
	StartDate       Date  `json:"startDate"`
	EndDate         *Date `json:"endDate"`
	WorkloadPercent int   `json:"workloadPercent"`
}

// ----------------------------------------------------------------------
// Projects
// ----------------------------------------------------------------------

// Project is a project record as returned by the API.
type Project struct {
	ProjectID   int64  `json:"projectId"`
	ProjectCode string `json:"projectCode"`
	ProjectName string `json:"projectName"`
	PMEmail     string `json:"pmEmail"`
	StartDate   Date   `json:"startDate"`
	EndDate     *Date  `json:"endDate"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// ProjectInput is the body of POST /project and PUT /project.
// ProjectID is only sent on update.
type ProjectInput struct {
	ProjectID   int64  `json:"projectId,omitempty"`
	ProjectName string `json:"projectName"`
	PMEmail     string `json:"pmEmail"`
	StartDate   Date   `json:"startDate"`
	EndDate     *Date  `json:"endDate"`
	Description string `json:"description"`
}

// ProjectMember is one row of GET /project/{id}/members.
type ProjectMember struct {
	EmployeeID      int64  `json:"employeeId"`
	EmployeeCode    string `json:"employeeCode"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	FullName        string `json:"fullName"`
	WorkloadPercent int    `json:"workloadPercent"`
	StartDate       Date   `json:"startDate"`
	EndDate         *Date  `json:"endDate"`
}

// ----------------------------------------------------------------------
// Assignments
// ----------------------------------------------------------------------

// AssignmentRequest is the body of POST /project/assign.
type AssignmentRequest struct {
	EmployeeID      int64 `json:"employeeId"`
	ProjectID       int64 `json:"projectId"`
	WorkloadPercent int   `json:"workloadPercent"`
	StartDate       Date  `json:"startDate"`
	EndDate         *Date `json:"endDate"`
}

// AssignmentUpdate is the body of PUT /project/update-assignment.
type AssignmentUpdate struct {
	AssignmentID    int64 `json:"assignmentId"`
	WorkloadPercent int   `json:"workloadPercent"`
	StartDate       *Date `json:"startDate"`
	EndDate         *Date `json:"endDate"`
}
