package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/emporia-labs/emporia-backend/internal/model"
	"github.com/emporia-labs/emporia-backend/internal/query"
)

const employeeResource = "Employee profile"

var employeeColumns = []string{
	"id", "user_id", "employee_code", "employee_type", "phone", "gender", "date_of_birth",
	"address", "emergency_contact", "employment_type", "designation", "department",
	"joining_date", "status", "salary", "salary_currency", "salary_frequency",
	"supervisor_id", "skills", "created_by", "updated_by", "created_at", "updated_at",
}

type CreateEmployeeProfileParams struct {
	UserID           uuid.UUID
	EmployeeCode     string
	EmployeeType     model.EmployeeType
	Phone            string
	Gender           model.Gender
	DateOfBirth      model.Date
	Address          *model.Address
	EmergencyContact model.EmergencyContact
	EmploymentType   model.EmploymentType
	Designation      string
	Department       string
	JoiningDate      model.Date
	Salary           float64
	SalaryCurrency   string
	SalaryFrequency  string
	SupervisorID     *uuid.UUID
	Skills           []string
	CreatedBy        uuid.UUID
}

func scanEmployee(row rowScanner) (model.EmployeeProfile, error) {
	var e model.EmployeeProfile
	err := row.Scan(
		&e.ID,
		&e.UserID,
		&e.EmployeeCode,
		&e.EmployeeType,
		&e.Phone,
		&e.Gender,
		&e.DateOfBirth,
		&e.Address,
		&e.EmergencyContact,
		&e.EmploymentType,
		&e.Designation,
		&e.Department,
		&e.JoiningDate,
		&e.Status,
		&e.Salary,
		&e.SalaryCurrency,
		&e.SalaryFrequency,
		&e.SupervisorID,
		pq.Array(&e.Skills),
		&e.CreatedBy,
		&e.UpdatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if e.Skills == nil {
		e.Skills = []string{}
	}
	return e, err
}

func (q *Queries) CreateEmployeeProfile(ctx context.Context, arg CreateEmployeeProfileParams) (model.EmployeeProfile, error) {
	sqlStr, args, err := psql.Insert("employee_profiles").
		Columns(
			"user_id", "employee_code", "employee_type", "phone", "gender", "date_of_birth",
			"address", "emergency_contact", "employment_type", "designation", "department",
			"joining_date", "salary", "salary_currency", "salary_frequency", "supervisor_id",
			"skills", "created_by", "updated_by",
		).
		Values(
			arg.UserID, arg.EmployeeCode, string(arg.EmployeeType), arg.Phone, string(arg.Gender), arg.DateOfBirth,
			arg.Address, arg.EmergencyContact, string(arg.EmploymentType), arg.Designation, arg.Department,
			arg.JoiningDate, arg.Salary, arg.SalaryCurrency, arg.SalaryFrequency, arg.SupervisorID,
			pq.Array(arg.Skills), arg.CreatedBy, arg.CreatedBy,
		).
		Suffix("RETURNING " + joinColumns(employeeColumns)).
		ToSql()
	if err != nil {
		return model.EmployeeProfile{}, fmt.Errorf("failed to build insert: %w", err)
	}
	e, err := scanEmployee(q.db.QueryRowContext(ctx, sqlStr, args...))
	if err != nil {
		return model.EmployeeProfile{}, mapError(err, employeeResource)
	}
	return e, nil
}

func (q *Queries) GetEmployeeByID(ctx context.Context, id uuid.UUID) (model.EmployeeProfile, error) {
	b := psql.Select(employeeColumns...).From("employee_profiles").Where(sq.Eq{"id": id.String()})
	return getOne(ctx, q.db, b, employeeResource, scanEmployee)
}

func (q *Queries) GetEmployeeByUserID(ctx context.Context, userID uuid.UUID) (model.EmployeeProfile, error) {
	b := psql.Select(employeeColumns...).From("employee_profiles").Where(sq.Eq{"user_id": userID.String()})
	return getOne(ctx, q.db, b, employeeResource, scanEmployee)
}

func (q *Queries) EmployeeProfileExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return q.exists(ctx, psql.Select("1").From("employee_profiles").Where(sq.Eq{"user_id": userID.String()}))
}

func (q *Queries) EmployeeCodeExists(ctx context.Context, code string) (bool, error) {
	return q.exists(ctx, psql.Select("1").From("employee_profiles").Where(sq.Eq{"employee_code": code}))
}

func (q *Queries) ListEmployees(ctx context.Context, rq query.ResolvedQuery) ([]model.EmployeeProfile, int64, error) {
	base := psql.Select(employeeColumns...).From("employee_profiles")
	count := psql.Select("COUNT(*)").From("employee_profiles")
	return listPage(ctx, q.db, base, count, rq, scanEmployee)
}

// RegisterEmployee attaches a profile to an existing account and switches the
// account to the role its employee type signs in with.
func (s *Store) RegisterEmployee(ctx context.Context, user model.User, profile CreateEmployeeProfileParams) (model.EmployeeProfile, error) {
	var e model.EmployeeProfile
	err := s.ExecTx(ctx, func(q *Queries) error {
		var err error
		profile.UserID = user.ID
		e, err = q.CreateEmployeeProfile(ctx, profile)
		if err != nil {
			return err
		}
		if user.Role == model.RoleAdmin {
			return nil
		}
		return q.SetUserRole(ctx, user.ID, profile.EmployeeType.Role())
	})
	if err != nil {
		return model.EmployeeProfile{}, err
	}
	return e, nil
}
