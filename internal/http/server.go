package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/apperr"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/auth"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/config"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/guidance"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/lifecycle"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/membership"
	"github.com/MrBATIR/Verimly---Updated-Version-sub003/internal/repository"
)

type Server struct {
	cfg       config.Config
	store     *repository.Store
	resolver  *auth.Resolver
	lifecycle *lifecycle.Engine
	members   *membership.Coordinator
	guidance  *guidance.Scope
	logger    *zap.Logger
}

func NewServer(cfg config.Config, store *repository.Store, resolver *auth.Resolver,
	engine *lifecycle.Engine, members *membership.Coordinator, scope *guidance.Scope, logger *zap.Logger) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		resolver:  resolver,
		lifecycle: engine,
		members:   members,
		guidance:  scope,
		logger:    logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.corsMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/institutions/create", s.handleCreateInstitution)
	r.Post("/institutions/update", s.handleUpdateInstitution)
	r.Post("/institutions/toggle-active", s.handleToggleInstitution)
	r.Post("/institutions/list", s.handleListInstitutions)

	r.Post("/admins/change-password", s.handleChangeAdminPassword)

	r.Post("/members/add", s.handleAddMember)
	r.Post("/members/remove", s.handleRemoveMember)

	r.Post("/guidance/students/list", s.handleGuidanceListStudents)
	r.Post("/guidance/students/get", s.handleGuidanceGetStudent)
	r.Post("/guidance/plans/create", s.handleGuidanceCreatePlan)
	r.Post("/guidance/plans/update", s.handleGuidanceUpdatePlan)
	r.Post("/guidance/plans/delete", s.handleGuidanceDeletePlan)
	r.Post("/guidance/study-logs/list", s.handleGuidanceListStudyLogs)
	r.Post("/guidance/messages/send", s.handleGuidanceSendMessage)

	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if recovered := recover(); recovered != nil {
				s.logger.Error("panic in handler",
					zap.Any("panic", recovered),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"))
				writeError(w, http.StatusInternalServerError, "server_error", "", string(apperr.Unexpected))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// tenantAuth is embedded in request bodies so that the institution's
// self-hosted admin can authenticate without a bearer token.
type tenantAuth struct {
	InstitutionID string `json:"institution_id"`
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
}

func (a tenantAuth) credential() *auth.TenantCredential {
	if a.InstitutionID == "" && a.AdminUsername == "" && a.AdminPassword == "" {
		return nil
	}
	return &auth.TenantCredential{
		InstitutionID: a.InstitutionID,
		Username:      a.AdminUsername,
		Password:      a.AdminPassword,
	}
}

func (s *Server) resolvePrincipal(r *http.Request, tenant tenantAuth) (*auth.Principal, error) {
	return s.resolver.Resolve(r.Context(), auth.Credentials{
		BearerToken: bearerToken(r.Header.Get("Authorization")),
		Tenant:      tenant.credential(),
	})
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(out)
}

type envelope struct {
	Data  interface{} `json:"data"`
	Error interface{} `json:"error"`
}

type errorBody struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	ErrorType string `json:"errorType,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Data: data, Error: nil})
}

func writeError(w http.ResponseWriter, status int, code, details, errorType string) {
	writeJSON(w, status, errorBody{Error: code, Details: details, ErrorType: errorType})
}

func writeBadRequest(w http.ResponseWriter, code string) {
	writeError(w, http.StatusBadRequest, code, "", "")
}

// writeAppError maps the error taxonomy onto the response envelope.
// Collaborator and unexpected failures are logged with message and stack
// before responding.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("operation failed",
			zap.String("path", r.URL.Path),
			zap.String("error", err.Error()),
			zap.String("kind", string(kind)),
			zap.Stack("stack"))
	}
	writeError(w, status, apperr.CodeOf(err), apperr.DetailsOf(err), string(kind))
}
