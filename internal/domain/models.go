package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type Role string

const (
	RoleSuperAdmin        Role = "super_admin"
	RoleComplianceManager Role = "compliance_manager"
	RoleHROfficer         Role = "hr_officer"
	RolePayrollOfficer    Role = "payroll_officer"
	RoleInspector         Role = "inspector"
	RoleEmployee          Role = "employee"
)

var AllRoles = []Role{
	RoleSuperAdmin,
	RoleComplianceManager,
	RoleHROfficer,
	RolePayrollOfficer,
	RoleInspector,
	RoleEmployee,
}

func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Credential is the opaque bearer token issued by the compliance API.
type Credential string

type Identity struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	FullName       string     `json:"full_name"`
	Role           Role       `json:"role"`
	IsActive       bool       `json:"is_active"`
	OrganisationID string     `json:"organisation_id"`
	WorkerID       *string    `json:"worker_id,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

func (i Identity) Validate() error {
	if i.ID == "" || i.Role == "" {
		return fmt.Errorf("%w: identity without id or role", ErrInvalidInput)
	}
	return nil
}

type Worker struct {
	ID                 string `json:"id"`
	FullName           string `json:"full_name"`
	Email              string `json:"email"`
	Department         string `json:"department"`
	JobTitle           string `json:"job_title"`
	VisaType           string `json:"visa_type"`
	Status             string `json:"status"`
	VisaExpiry         *Date  `json:"visa_expiry_date"`
	PassportExpiry     *Date  `json:"passport_expiry_date"`
	BRPExpiry          *Date  `json:"brp_expiry_date"`
	ChecklistTotal     int    `json:"checklist_total"`
	ChecklistCompleted int    `json:"checklist_completed"`
}

// ExpiryDocument names one of the hard deadlines a worker carries.
type ExpiryDocument string

const (
	DocumentVisa     ExpiryDocument = "visa"
	DocumentPassport ExpiryDocument = "passport"
	DocumentBRP      ExpiryDocument = "brp"
)

var ExpiryDocuments = []ExpiryDocument{DocumentVisa, DocumentPassport, DocumentBRP}

func (w Worker) Expiry(doc ExpiryDocument) *Date {
	switch doc {
	case DocumentVisa:
		return w.VisaExpiry
	case DocumentPassport:
		return w.PassportExpiry
	case DocumentBRP:
		return w.BRPExpiry
	default:
		return nil
	}
}

type LeaveType string

const (
	LeaveAnnual    LeaveType = "annual"
	LeaveSick      LeaveType = "sick"
	LeaveMaternity LeaveType = "maternity"
	LeavePaternity LeaveType = "paternity"
	LeaveUnpaid    LeaveType = "unpaid"
	LeaveOther     LeaveType = "other"
)

// CalendarEvent is either a Holiday or a Leave.
type CalendarEvent interface {
	OccursOn(day Date) bool
	calendarEvent()
}

type Holiday struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Date        Date   `json:"date"`
	Description string `json:"description,omitempty"`
}

func (h Holiday) OccursOn(day Date) bool { return h.Date == day }

func (Holiday) calendarEvent() {}

type Leave struct {
	ID         string    `json:"id"`
	WorkerName string    `json:"worker_name"`
	Department string    `json:"department,omitempty"`
	LeaveType  LeaveType `json:"leave_type"`
	StartDate  Date      `json:"start_date"`
	EndDate    Date      `json:"end_date"`
	Days       int       `json:"days"`
}

// OccursOn reports whether day falls inside the leave, both ends included.
// StartDate and EndDate were validated on decode so the comparison is plain string order.
func (l Leave) OccursOn(day Date) bool {
	return l.StartDate <= day && day <= l.EndDate
}

func (Leave) calendarEvent() {}

type MonthEvents struct {
	Holidays []Holiday `json:"holidays"`
	Leaves   []Leave   `json:"leaves"`
}

func (m MonthEvents) All() []CalendarEvent {
	out := make([]CalendarEvent, 0, len(m.Holidays)+len(m.Leaves))
	for _, h := range m.Holidays {
		out = append(out, h)
	}
	for _, l := range m.Leaves {
		out = append(out, l)
	}
	return out
}
