package model

import "time"

const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

type Institution struct {
	ID                string
	Name              string
	ContactEmail      string
	MaxStudents       int
	ContractStart     *time.Time
	ContractEnd       *time.Time
	PaymentStatus     string
	IsActive          bool
	IsPremium         bool
	GuidanceTeacherID *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Membership is the source of truth for which institution a user currently
// belongs to. At most one active row per user under normal operation,
// enforced by the coordinator rather than a storage constraint.
type Membership struct {
	UserID        string
	InstitutionID string
	Role          string
	IsActive      bool
	JoinedAt      time.Time
}

type AdminCredential struct {
	InstitutionID string
	Username      string
	PasswordHash  string
	IsActive      bool
}

type Teacher struct {
	ID            string
	UserID        string
	Name          string
	Email         string
	InstitutionID *string
	Branch        string
}

type Student struct {
	ID            string
	UserID        string
	Name          string
	Email         string
	InstitutionID *string
	Grade         string
	ParentName    string
	ParentPhone   string
}

type UserProfile struct {
	UserID        string
	Name          string
	Email         string
	UserType      string
	InstitutionID *string
}

type Plan struct {
	ID            string
	InstitutionID string
	StudentID     string
	TeacherID     string
	Title         string
	Subject       string
	StartsAt      time.Time
	EndsAt        time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type StudyLog struct {
	ID            string
	StudentID     string
	InstitutionID string
	Subject       string
	Minutes       int
	LoggedOn      time.Time
}

type Message struct {
	ID                 string
	InstitutionID      string
	SenderTeacherID    string
	RecipientStudentID string
	Body               string
	SentAt             time.Time
}
