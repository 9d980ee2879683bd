package http

import (
	"net/http"
	"time"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/guidance"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/model"
)

// studentRef lets callers address a student by exactly one of three
// identifiers. Ambiguous references are rejected before any lookup runs.
type studentRef struct {
	ID     string `json:"id,omitempty"`
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
}

func (ref studentRef) key() (guidance.StudentKey, bool) {
	set := 0
	var key guidance.StudentKey
	if ref.ID != "" {
		set++
		key = guidance.ByID(ref.ID)
	}
	if ref.UserID != "" {
		set++
		key = guidance.ByUserID(ref.UserID)
	}
	if ref.Email != "" {
		set++
		key = guidance.ByEmail(ref.Email)
	}
	if set != 1 {
		return guidance.StudentKey{}, false
	}
	return key, true
}

type studentSummary struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Grade       string `json:"grade,omitempty"`
	ParentName  string `json:"parent_name,omitempty"`
	ParentPhone string `json:"parent_phone,omitempty"`
}

func mapStudent(st model.Student) studentSummary {
	return studentSummary{
		ID:          st.ID,
		UserID:      st.UserID,
		Name:        st.Name,
		Email:       st.Email,
		Grade:       st.Grade,
		ParentName:  st.ParentName,
		ParentPhone: st.ParentPhone,
	}
}

type planSummary struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	TeacherID string    `json:"teacher_id"`
	Title     string    `json:"title"`
	Subject   string    `json:"subject"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
}

type listStudentsRequest struct {
	InstitutionID string `json:"institution_id"`
}

func (s *Server) handleGuidanceListStudents(w http.ResponseWriter, r *http.Request) {
	var req listStudentsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}
	if req.InstitutionID == "" {
		writeBadRequest(w, "missing_institution_id")
		return
	}

	principal, err := s.resolvePrincipal(r, tenantAuth{})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	students, err := s.guidance.ListStudents(r.Context(), principal, req.InstitutionID)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	summaries := make([]studentSummary, 0, len(students))
	for _, st := range students {
		summaries = append(summaries, mapStudent(st))
	}
	writeData(w, summaries)
}

type getStudentRequest struct {
	InstitutionID string     `json:"institution_id"`
	Student       studentRef `json:"student"`
}

func (s *Server) handleGuidanceGetStudent(w http.ResponseWriter, r *http.Request) {
	var req getStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}
	if req.InstitutionID == "" {
		writeBadRequest(w, "missing_institution_id")
		return
	}
	key, ok := req.Student.key()
	if !ok {
		writeBadRequest(w, "invalid_student_ref")
		return
	}

	principal, err := s.resolvePrincipal(r, tenantAuth{})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	student, err := s.guidance.GetStudent(r.Context(), principal, req.InstitutionID, key)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, mapStudent(student))
}

type createPlanRequest struct {
	InstitutionID string     `json:"institution_id"`
	Student       studentRef `json:"student"`
	Title         string     `json:"title"`
	Subject       string     `json:"subject"`
	StartsAt      string     `json:"starts_at"`
	EndsAt        string     `json:"ends_at"`
}

func (req createPlanRequest) planInput(key guidance.StudentKey) (guidance.PlanInput, string) {
	if req.Title == "" {
		return guidance.PlanInput{}, "missing_title"
	}
	starts, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return guidance.PlanInput{}, "invalid_starts_at"
	}
	ends, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return guidance.PlanInput{}, "invalid_ends_at"
	}
	if !ends.After(starts) {
		return guidance.PlanInput{}, "invalid_plan_window"
	}
	return guidance.PlanInput{
		Student:  key,
		Title:    req.Title,
		Subject:  req.Subject,
		StartsAt: starts.UTC(),
		EndsAt:   ends.UTC(),
	}, ""
}

func (s *Server) handleGuidanceCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}
	if req.InstitutionID == "" {
		writeBadRequest(w, "missing_institution_id")
		return
	}
	key, ok := req.Student.key()
	if !ok {
		writeBadRequest(w, "invalid_student_ref")
		return
	}
	input, code := req.planInput(key)
	if code != "" {
		writeBadRequest(w, code)
		return
	}

	principal, err := s.resolvePrincipal(r, tenantAuth{})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	plan, err := s.guidance.CreatePlan(r.Context(), principal, req.InstitutionID, input)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, planSummary{
		ID:        plan.ID,
		StudentID: plan.StudentID,
		TeacherID: plan.TeacherID,
		Title:     plan.Title,
		Subject:   plan.Subject,
		StartsAt:  plan.StartsAt,
		EndsAt:    plan.EndsAt,
	})
}

type updatePlanRequest struct {
	InstitutionID string `json:"institution_id"`
	PlanID        string `json:"plan_id"`
	Title         string `json:"title"`
	Subject       string `json:"subject"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
}

func (s *Server) handleGuidanceUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req updatePlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}
	if req.InstitutionID == "" || req.PlanID == "" {
		writeBadRequest(w, "missing_fields")
		return
	}
	create := createPlanRequest{
		Title:    req.Title,
		Subject:  req.Subject,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	}
	input, code := create.planInput(guidance.StudentKey{})
	if code != "" {
		writeBadRequest(w, code)
		return
	}

	principal, err := s.resolvePrincipal(r, tenantAuth{})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	if err := s.guidance.UpdatePlan(r.Context(), principal, req.InstitutionID, req.PlanID, input); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, map[string]string{"status": "updated"})
}

type deletePlanRequest struct {
	InstitutionID string `json:"institution_id"`
	PlanID        string `json:"plan_id"`
}

func (s *Server) handleGuidanceDeletePlan(w http.ResponseWriter, r *http.Request) {
	var req deletePlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}
	if req.InstitutionID == "" || req.PlanID == "" {
		writeBadRequest(w, "missing_fields")
		return
	}

	principal, err := s.resolvePrincipal(r, tenantAuth{})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	if err := s.guidance.DeletePlan(r.Context(), principal, req.InstitutionID, req.PlanID); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, map[string]string{"status": "deleted"})
}

type listStudyLogsRequest struct {
	InstitutionID string     `json:"institution_id"`
	Student       studentRef `json:"student"`
}

type studyLogSummary struct {
	ID       string `json:"id"`
	Subject  string `json:"subject"`
	Minutes  int    `json:"minutes"`
	LoggedOn string `json:"logged_on"`
}

func (s *Server) handleGuidanceListStudyLogs(w http.ResponseWriter, r *http.Request) {
	var req listStudyLogsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}
	if req.InstitutionID == "" {
		writeBadRequest(w, "missing_institution_id")
		return
	}
	key, ok := req.Student.key()
	if !ok {
		writeBadRequest(w, "invalid_student_ref")
		return
	}

	principal, err := s.resolvePrincipal(r, tenantAuth{})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	logs, err := s.guidance.ListStudyLogs(r.Context(), principal, req.InstitutionID, key)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	summaries := make([]studyLogSummary, 0, len(logs))
	for _, entry := range logs {
		summaries = append(summaries, studyLogSummary{
			ID:       entry.ID,
			Subject:  entry.Subject,
			Minutes:  entry.Minutes,
			LoggedOn: entry.LoggedOn.UTC().Format(contractDateLayout),
		})
	}
	writeData(w, summaries)
}

type sendMessageRequest struct {
	InstitutionID string     `json:"institution_id"`
	Student       studentRef `json:"student"`
	Body          string     `json:"body"`
}

type messageSummary struct {
	ID                 string    `json:"id"`
	RecipientStudentID string    `json:"recipient_student_id"`
	Body               string    `json:"body"`
	SentAt             time.Time `json:"sent_at"`
}

func (s *Server) handleGuidanceSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid_request")
		return
	}
	if req.InstitutionID == "" {
		writeBadRequest(w, "missing_institution_id")
		return
	}
	if req.Body == "" {
		writeBadRequest(w, "missing_body")
		return
	}
	key, ok := req.Student.key()
	if !ok {
		writeBadRequest(w, "invalid_student_ref")
		return
	}

	principal, err := s.resolvePrincipal(r, tenantAuth{})
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}

	msg, err := s.guidance.SendMessage(r.Context(), principal, req.InstitutionID, key, req.Body)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeData(w, messageSummary{
		ID:                 msg.ID,
		RecipientStudentID: msg.RecipientStudentID,
		Body:               msg.Body,
		SentAt:             msg.SentAt,
	})
}
