package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/emporia-labs/emporia-backend/internal/query"
)

type EmployeeType string

const (
	EmployeeManager  EmployeeType = "manager"
	EmployeeStaff    EmployeeType = "staff"
	EmployeeDelivery EmployeeType = "delivery"
	EmployeeSupport  EmployeeType = "support"
)

// Role is the account role an employee of this type signs in with.
func (t EmployeeType) Role() Role {
	if t == EmployeeManager {
		return RoleManager
	}
	return RoleEmployee
}

type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full_time"
	EmploymentPartTime EmploymentType = "part_time"
	EmploymentContract EmploymentType = "contract"
	EmploymentIntern   EmploymentType = "intern"
)

type EmploymentStatus string

const (
	EmploymentActive     EmploymentStatus = "active"
	EmploymentSuspended  EmploymentStatus = "suspended"
	EmploymentTerminated EmploymentStatus = "terminated"
	EmploymentResigned   EmploymentStatus = "resigned"
)

type EmergencyContact struct {
	Name     string `json:"name" validate:"required,max=100"`
	Phone    string `json:"phone" validate:"required,max=30"`
	Relation string `json:"relation" validate:"required,max=50"`
}

func (c EmergencyContact) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *EmergencyContact) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		*c = EmergencyContact{}
		return nil
	case []byte:
		return json.Unmarshal(s, c)
	case string:
		return json.Unmarshal([]byte(s), c)
	default:
		return fmt.Errorf("cannot scan %T into EmergencyContact", src)
	}
}

type EmployeeProfile struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"userId"`
	EmployeeCode     string           `json:"employeeCode"`
	EmployeeType     EmployeeType     `json:"employeeType"`
	Phone            string           `json:"phone"`
	Gender           Gender           `json:"gender"`
	DateOfBirth      Date             `json:"dateOfBirth"`
	Address          *Address         `json:"address,omitempty"`
	EmergencyContact EmergencyContact `json:"emergencyContact"`
	EmploymentType   EmploymentType   `json:"employmentType"`
	Designation      string           `json:"designation"`
	Department       string           `json:"department"`
	JoiningDate      Date             `json:"joiningDate"`
	Status           EmploymentStatus `json:"status"`
	Salary           float64          `json:"salary"`
	SalaryCurrency   string           `json:"salaryCurrency"`
	SalaryFrequency  string           `json:"salaryFrequency"`
	SupervisorID     *uuid.UUID       `json:"supervisor,omitempty"`
	Skills           []string         `json:"skills"`
	CreatedBy        *uuid.UUID       `json:"createdBy"`
	UpdatedBy        *uuid.UUID       `json:"updatedBy"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// RegisterEmployeeRequest attaches an employee profile to an existing account
type RegisterEmployeeRequest struct {
	Email            string           `json:"email" validate:"required,email"`
	EmployeeType     EmployeeType     `json:"employeeType" validate:"required,oneof=manager staff delivery support"`
	Phone            string           `json:"phone" validate:"required,max=30"`
	Gender           Gender           `json:"gender" validate:"required,oneof=male female other"`
	DateOfBirth      Date             `json:"dateOfBirth" validate:"required"`
	Address          *Address         `json:"address,omitempty" validate:"omitempty"`
	EmergencyContact EmergencyContact `json:"emergencyContact" validate:"required"`
	EmploymentType   EmploymentType   `json:"employmentType" validate:"required,oneof=full_time part_time contract intern"`
	Designation      string           `json:"designation" validate:"required,max=100"`
	Department       string           `json:"department" validate:"required,max=100"`
	JoiningDate      Date             `json:"joiningDate" validate:"required"`
	Salary           *float64         `json:"salary" validate:"required,gte=0,lte=999999999999.99"`
	SalaryCurrency   string           `json:"salaryCurrency" validate:"required,len=3"`
	SalaryFrequency  string           `json:"salaryFrequency" validate:"required,oneof=hourly weekly monthly"`
	Supervisor       *string          `json:"supervisor,omitempty" validate:"omitempty,uuid"`
	Skills           []string         `json:"skills,omitempty" validate:"omitempty,max=50,dive,required,max=50"`
}

// Validate normalizes the request and returns field errors
func (r *RegisterEmployeeRequest) Validate() map[string]string {
	r.Email = normalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Designation = strings.TrimSpace(r.Designation)
	r.Department = strings.TrimSpace(r.Department)
	r.SalaryCurrency = strings.ToUpper(strings.TrimSpace(r.SalaryCurrency))
	if r.SalaryCurrency == "" {
		r.SalaryCurrency = "BDT"
	}
	if r.SalaryFrequency == "" {
		r.SalaryFrequency = "monthly"
	}
	if r.Address != nil {
		r.Address.trim()
	}
	r.Supervisor = trimOptional(r.Supervisor)
	if r.Skills == nil {
		r.Skills = []string{}
	}
	errs := validateStruct(r)
	checkBirthDate(errs, r.DateOfBirth)
	return errs
}

// EmployeeQueryConfig drives GET /employees.
func EmployeeQueryConfig() query.EntityQueryConfig {
	return query.EntityQueryConfig{
		SortFields: map[string]string{
			"createdAt":   "created_at",
			"joiningDate": "joining_date",
			"salary":      "salary",
			"department":  "department",
		},
		DefaultSort: "createdAt",
		Fields: []string{
			"userId", "employeeCode", "employeeType", "phone", "gender", "dateOfBirth",
			"address", "emergencyContact", "employmentType", "designation", "department",
			"joiningDate", "status", "salary", "salaryCurrency", "salaryFrequency",
			"supervisor", "skills", "createdAt", "updatedAt",
		},
		SearchFields: []query.SearchField{
			{Column: "employee_code"},
			{Column: "designation"},
			{Column: "department"},
		},
	}
}
