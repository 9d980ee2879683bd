package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/apperr"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/guidance"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		header string
		expect string
	}{
		{"", ""},
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"Bearer  abc ", "abc"},
	}
	for _, tc := range cases {
		if got := bearerToken(tc.header); got != tc.expect {
			t.Fatalf("header %q: expected %q, got %q", tc.header, tc.expect, got)
		}
	}
}

func TestTenantAuthCredential(t *testing.T) {
	if (tenantAuth{}).credential() != nil {
		t.Fatal("empty tenant auth should resolve to no credential")
	}
	cred := tenantAuth{InstitutionID: "inst-a", AdminUsername: "admin", AdminPassword: "pw"}.credential()
	if cred == nil || cred.InstitutionID != "inst-a" || cred.Username != "admin" {
		t.Fatalf("unexpected credential: %+v", cred)
	}
}

func TestStudentRefRequiresExactlyOneIdentifier(t *testing.T) {
	if _, ok := (studentRef{}).key(); ok {
		t.Fatal("empty ref must be invalid")
	}
	if _, ok := (studentRef{ID: "a", Email: "b@example.com"}).key(); ok {
		t.Fatal("ambiguous ref must be invalid")
	}
	key, ok := (studentRef{UserID: "u"}).key()
	if !ok || !key.Valid() {
		t.Fatalf("single identifier must be valid, got %+v", key)
	}
}

func TestPlanInputValidation(t *testing.T) {
	base := createPlanRequest{
		Title:    "Review",
		StartsAt: "2026-09-01T09:00:00Z",
		EndsAt:   "2026-09-01T10:00:00Z",
	}
	if _, code := base.planInput(guidance.ByID("student-1")); code != "" {
		t.Fatalf("valid input rejected: %s", code)
	}

	missingTitle := base
	missingTitle.Title = ""
	if _, code := missingTitle.planInput(guidance.ByID("student-1")); code != "missing_title" {
		t.Fatalf("expected missing_title, got %s", code)
	}

	badStart := base
	badStart.StartsAt = "yesterday"
	if _, code := badStart.planInput(guidance.ByID("student-1")); code != "invalid_starts_at" {
		t.Fatalf("expected invalid_starts_at, got %s", code)
	}

	inverted := base
	inverted.StartsAt, inverted.EndsAt = base.EndsAt, base.StartsAt
	if _, code := inverted.planInput(guidance.ByID("student-1")); code != "invalid_plan_window" {
		t.Fatalf("expected invalid_plan_window, got %s", code)
	}
}

func TestCORSPreflight(t *testing.T) {
	server := &Server{logger: zap.NewNop()}
	router := server.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/members/add", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected allow-origin header")
	}
}

func TestWriteAppErrorMapping(t *testing.T) {
	server := &Server{logger: zap.NewNop()}

	cases := []struct {
		err    error
		status int
	}{
		{apperr.New(apperr.Unauthenticated, "missing_credentials"), http.StatusUnauthorized},
		{apperr.New(apperr.Forbidden, "wrong_tenant"), http.StatusForbidden},
		{apperr.New(apperr.NotFound, "student_not_found"), http.StatusNotFound},
		{apperr.WithDetails(apperr.Conflict, "active_membership_elsewhere", "Institution A"), http.StatusConflict},
		{apperr.New(apperr.LimitReached, "student_limit_reached"), http.StatusConflict},
		{apperr.New(apperr.CollaboratorFailure, "identity_unreachable"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/test", nil)
		server.writeAppError(rec, req, tc.err)
		if rec.Code != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, rec.Code)
		}

		var body errorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if body.Error != apperr.CodeOf(tc.err) {
			t.Fatalf("expected code %q, got %q", apperr.CodeOf(tc.err), body.Error)
		}
		if details := apperr.DetailsOf(tc.err); details != "" && body.Details != details {
			t.Fatalf("expected details %q, got %q", details, body.Details)
		}
	}
}

func TestParseDateRoundTrip(t *testing.T) {
	parsed, err := parseDate("2026-01-15")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := formatDate(parsed); got == nil || *got != "2026-01-15" {
		t.Fatalf("round trip mismatch: %v", got)
	}
	if formatDate(nil) != nil {
		t.Fatal("nil date should format to nil")
	}
	if _, err := parseDate("15/01/2026"); err == nil {
		t.Fatal("expected parse error")
	}
}
