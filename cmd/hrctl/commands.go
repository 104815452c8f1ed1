package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/guarzo/hrapi/common/model"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":             {"sign in and store the session", cmdLogin},
	"logout":            {"sign out and clear the stored session", cmdLogout},
	"status":            {"report whether a session is stored", cmdStatus},
	"whoami":            {"show the signed-in user's profile", cmdWhoami},
	"roles":             {"list the roles known to the API", cmdRoles},
	"employees":         {"list employees (admin)", cmdEmployees},
	"employee-create":   {"create an employee (admin)", cmdEmployeeCreate},
	"employee-update":   {"update an employee (admin)", cmdEmployeeUpdate},
	"employee-delete":   {"delete an employee (admin)", cmdEmployeeDelete},
	"change-role":       {"change an employee's role (admin)", cmdChangeRole},
	"search":            {"search employees by email", cmdSearch},
	"history":           {"show an employee's project history", cmdHistory},
	"periods":           {"show participation periods of an employee in a project", cmdPeriods},
	"projects":          {"list projects (admin) or an employee's projects", cmdProjects},
	"managed":           {"list the projects you manage", cmdManaged},
	"members":           {"list the members of a project", cmdMembers},
	"project-create":    {"create a project (admin)", cmdProjectCreate},
	"project-update":    {"update a project (admin)", cmdProjectUpdate},
	"project-delete":    {"delete a project (admin)", cmdProjectDelete},
	"assign":            {"assign an employee to a project you manage", cmdAssign},
	"update-assignment": {"change an assignment's workload or dates", cmdUpdateAssignment},
}

var stdout io.Writer = os.Stdout

func printYAML(v interface{}) error {
	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func newFlags(name string) *flag.FlagSet {
	return flag.NewFlagSet(appname+" "+name, flag.ContinueOnError)
}

// usageError marks bad command-line input.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return &usageError{err: err}
	}
	return nil
}

// dateFlag parses DD-MM-YYYY values.
type dateFlag struct {
	set  bool
	date model.Date
}

func (d *dateFlag) String() string { return d.date.String() }

func (d *dateFlag) Set(s string) error {
	parsed, err := model.ParseDate(s)
	if err != nil {
		return err
	}
	d.date, d.set = parsed, true
	return nil
}

func (d *dateFlag) ptr() *model.Date {
	if !d.set {
		return nil
	}
	return model.DatePtr(d.date)
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlags("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (read from stdin when empty)")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("HRAPI_PASSWORD")
	}
	if *password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		*password = strings.TrimRight(line, "\r\n")
	}
	if err := a.sessions.Login(ctx, *email, *password); err != nil {
		return err
	}
	info, err := a.hr.GetUserInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Logged in as %s (%s)\n", info.Name, info.Role)
	return nil
}

func cmdLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.sessions.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Logged out")
	return nil
}

func cmdStatus(ctx context.Context, a *app, _ []string) error {
	if a.sessions.IsAuthenticated(ctx) {
		fmt.Fprintf(stdout, "session stored (%s backend)\n", a.cfg.Session.Backend)
		return nil
	}
	fmt.Fprintf(stdout, "not logged in, run `%s login`\n", appname)
	return nil
}

func cmdWhoami(ctx context.Context, a *app, _ []string) error {
	info, err := a.hr.GetUserInfo(ctx)
	if err != nil {
		return err
	}
	return printYAML(info)
}

func cmdRoles(ctx context.Context, a *app, _ []string) error {
	roles, err := a.hr.ListRoles(ctx)
	if err != nil {
		return err
	}
	return printYAML(roles)
}

func cmdEmployees(ctx context.Context, a *app, args []string) error {
	fs := newFlags("employees")
	page := fs.Int("page", 1, "page number, starting at 1")
	size := fs.Int("size", 10, "page size")
	role := fs.String("role", "", "only this role")
	if err := parse(fs, args); err != nil {
		return err
	}
	out, err := a.hr.ListEmployees(ctx, *page, *size, *role)
	if err != nil {
		return err
	}
	return printYAML(out)
}

func employeeFlags(name string) (*flag.FlagSet, *model.EmployeeInput, *dateFlag) {
	fs := newFlags(name)
	in := &model.EmployeeInput{}
	dob := &dateFlag{}
	fs.StringVar(&in.FirstName, "first", "", "first name")
	fs.StringVar(&in.LastName, "last", "", "last name")
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Role, "role", model.RoleEmployee, "role")
	fs.Var(dob, "dob", "date of birth, DD-MM-YYYY")
	return fs, in, dob
}

func cmdEmployeeCreate(ctx context.Context, a *app, args []string) error {
	fs, in, dob := employeeFlags("employee-create")
	if err := parse(fs, args); err != nil {
		return err
	}
	in.Dob = dob.ptr()
	emp, err := a.hr.CreateEmployee(ctx, *in)
	if err != nil {
		return err
	}
	return printYAML(emp)
}

func cmdEmployeeUpdate(ctx context.Context, a *app, args []string) error {
	fs, in, dob := employeeFlags("employee-update")
	fs.Int64Var(&in.EmployeeID, "id", 0, "employee id")
	if err := parse(fs, args); err != nil {
		return err
	}
	in.Dob = dob.ptr()
	emp, err := a.hr.UpdateEmployee(ctx, *in)
	if err != nil {
		return err
	}
	return printYAML(emp)
}

func cmdEmployeeDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags("employee-delete")
	id := fs.Int64("id", 0, "employee id")
	if err := parse(fs, args); err != nil {
		return err
	}
	return a.hr.DeleteEmployee(ctx, *id)
}

func cmdChangeRole(ctx context.Context, a *app, args []string) error {
	fs := newFlags("change-role")
	id := fs.Int64("id", 0, "employee id")
	role := fs.String("role", "", "new role")
	if err := parse(fs, args); err != nil {
		return err
	}
	return a.hr.ChangeRole(ctx, *id, *role)
}

func cmdSearch(ctx context.Context, a *app, args []string) error {
	fs := newFlags("search")
	email := fs.String("email", "", "email fragment")
	role := fs.String("role", "", "only this role")
	if err := parse(fs, args); err != nil {
		return err
	}
	out, err := a.hr.SearchEmployees(ctx, *email, *role)
	if err != nil {
		return err
	}
	return printYAML(out)
}

func cmdHistory(ctx context.Context, a *app, args []string) error {
	fs := newFlags("history")
	id := fs.Int64("id", 0, "employee id (default: yourself)")
	if err := parse(fs, args); err != nil {
		return err
	}
	employeeID, err := selfOr(ctx, a, *id)
	if err != nil {
		return err
	}
	out, err := a.hr.ProjectHistory(ctx, employeeID)
	if err != nil {
		return err
	}
	return printYAML(out)
}

func cmdPeriods(ctx context.Context, a *app, args []string) error {
	fs := newFlags("periods")
	project := fs.Int64("project", 0, "project id")
	id := fs.Int64("id", 0, "employee id (default: yourself)")
	if err := parse(fs, args); err != nil {
		return err
	}
	employeeID, err := selfOr(ctx, a, *id)
	if err != nil {
		return err
	}
	out, err := a.hr.ParticipationPeriods(ctx, *project, employeeID)
	if err != nil {
		return err
	}
	return printYAML(out)
}

// cmdProjects shows the admin listing to admins and the caller's own
// projects to everyone else.
func cmdProjects(ctx context.Context, a *app, args []string) error {
	fs := newFlags("projects")
	page := fs.Int("page", 1, "page number, starting at 1 (admin)")
	size := fs.Int("size", 10, "page size (admin)")
	if err := parse(fs, args); err != nil {
		return err
	}
	info, err := a.hr.GetUserInfo(ctx)
	if err != nil {
		return err
	}
	if info.Role == model.RoleAdmin {
		out, err := a.hr.ListProjects(ctx, *page, *size)
		if err != nil {
			return err
		}
		return printYAML(out)
	}
	out, err := a.hr.ListEmployeeProjects(ctx, info.EmployeeID)
	if err != nil {
		return err
	}
	return printYAML(out)
}

func cmdManaged(ctx context.Context, a *app, _ []string) error {
	out, err := a.hr.ListManagedProjects(ctx)
	if err != nil {
		return err
	}
	return printYAML(out)
}

func cmdMembers(ctx context.Context, a *app, args []string) error {
	fs := newFlags("members")
	project := fs.Int64("project", 0, "project id")
	if err := parse(fs, args); err != nil {
		return err
	}
	out, err := a.hr.ListMembers(ctx, *project)
	if err != nil {
		return err
	}
	return printYAML(out)
}

func projectFlags(name string) (*flag.FlagSet, *model.ProjectInput, *dateFlag, *dateFlag) {
	fs := newFlags(name)
	in := &model.ProjectInput{}
	start, end := &dateFlag{}, &dateFlag{}
	fs.StringVar(&in.ProjectName, "name", "", "project name")
	fs.StringVar(&in.PMEmail, "pm", "", "project manager email")
	fs.StringVar(&in.Description, "description", "", "description")
	fs.Var(start, "start", "start date, DD-MM-YYYY")
	fs.Var(end, "end", "end date, DD-MM-YYYY (optional)")
	return fs, in, start, end
}

func cmdProjectCreate(ctx context.Context, a *app, args []string) error {
	fs, in, start, end := projectFlags("project-create")
	if err := parse(fs, args); err != nil {
		return err
	}
	in.StartDate, in.EndDate = start.date, end.ptr()
	p, err := a.hr.CreateProject(ctx, *in)
	if err != nil {
		return err
	}
	return printYAML(p)
}

func cmdProjectUpdate(ctx context.Context, a *app, args []string) error {
	fs, in, start, end := projectFlags("project-update")
	fs.Int64Var(&in.ProjectID, "id", 0, "project id")
	if err := parse(fs, args); err != nil {
		return err
	}
	in.StartDate, in.EndDate = start.date, end.ptr()
	p, err := a.hr.UpdateProject(ctx, *in)
	if err != nil {
		return err
	}
	return printYAML(p)
}

func cmdProjectDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags("project-delete")
	id := fs.Int64("id", 0, "project id")
	if err := parse(fs, args); err != nil {
		return err
	}
	return a.hr.DeleteProject(ctx, *id)
}

func cmdAssign(ctx context.Context, a *app, args []string) error {
	fs := newFlags("assign")
	req := model.AssignmentRequest{}
	start, end := &dateFlag{}, &dateFlag{}
	fs.Int64Var(&req.EmployeeID, "employee", 0, "employee id")
	fs.Int64Var(&req.ProjectID, "project", 0, "project id")
	fs.IntVar(&req.WorkloadPercent, "workload", 100, "workload percent, 1-100")
	fs.Var(start, "start", "start date, DD-MM-YYYY")
	fs.Var(end, "end", "end date, DD-MM-YYYY (optional)")
	if err := parse(fs, args); err != nil {
		return err
	}
	req.StartDate, req.EndDate = start.date, end.ptr()
	if err := a.hr.Assign(ctx, req); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Assigned successfully")
	return nil
}

func cmdUpdateAssignment(ctx context.Context, a *app, args []string) error {
	fs := newFlags("update-assignment")
	upd := model.AssignmentUpdate{}
	start, end := &dateFlag{}, &dateFlag{}
	fs.Int64Var(&upd.AssignmentID, "id", 0, "assignment id")
	fs.IntVar(&upd.WorkloadPercent, "workload", 100, "workload percent, 1-100")
	fs.Var(start, "start", "new start date, DD-MM-YYYY")
	fs.Var(end, "end", "new end date, DD-MM-YYYY")
	if err := parse(fs, args); err != nil {
		return err
	}
	upd.StartDate, upd.EndDate = start.ptr(), end.ptr()
	return a.hr.UpdateAssignment(ctx, upd)
}

func selfOr(ctx context.Context, a *app, id int64) (int64, error) {
	if id != 0 {
		return id, nil
	}
	info, err := a.hr.GetUserInfo(ctx)
	if err != nil {
		return 0, err
	}
	return info.EmployeeID, nil
}
