package http

import (
	"cmp"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/integrations/itchapi"
	"storefront/internal/localizer"
	"storefront/internal/reactor"
	"storefront/internal/service/credentials"
	"storefront/internal/state"
	storepkg "storefront/internal/store"
)

type contextKey string

const contextKeyControlSubject contextKey = "control_subject"

// ProfileAPI looks up the profile an api key belongs to.
type ProfileAPI interface {
	Me(ctx context.Context, apiKey string) (domain.Profile, error)
}

// Server is the local control API of a running client.
type Server struct {
	cfg       config.Config
	app       *state.Store
	store     storepkg.Store
	resolver  *credentials.Resolver
	profiles  ProfileAPI
	localizer *localizer.Localizer
}

func NewServer(
	cfg config.Config,
	app *state.Store,
	store storepkg.Store,
	resolver *credentials.Resolver,
	profiles ProfileAPI,
	loc *localizer.Localizer,
) *Server {
	return &Server{
		cfg:       cfg,
		app:       app,
		store:     store,
		resolver:  resolver,
		profiles:  profiles,
		localizer: loc,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/control/token", s.handleControlToken)

	r.Group(func(protected chi.Router) {
		protected.Use(s.requireControl)
		protected.Get("/state", s.handleState)

		protected.Post("/session/login", s.handleLogin)
		protected.Post("/session/logout", s.handleLogout)
		protected.Post("/session/use-saved", s.handleUseSavedLogin)
		protected.Delete("/session/remembered/{profileID}", s.handleForgetSession)

		protected.Get("/games/{gameID}/credentials", s.handleGameCredentials)
		protected.Post("/games/{gameID}/download", s.handleQueueDownload)

		protected.Post("/download-keys", s.handleCreateDownloadKey)
		protected.Delete("/download-keys/{keyID}", s.handleRemoveDownloadKey)

		protected.Post("/caves/{caveID}/uninstall", s.handleRequestUninstall)

		protected.Get("/modals", s.handleListModals)
		protected.Post("/modals/{modalID}/buttons/{buttonID}", s.handleModalButton)

		protected.Post("/tabs/{tabID}/navigate", s.handleNavigateTab)
		protected.Get("/tabs/{tabID}", s.handleGetTab)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleControlToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(s.cfg.ControlSecret)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid control secret")
		return
	}
	token, expiresAt, err := s.signControlToken("control")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create control token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"type":       "Bearer",
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st := s.app.State()
	var me *domain.Profile
	if st.Session.Credentials != nil {
		profile := st.Session.Credentials.Me
		me = &profile
	}
	remembered := make([]domain.Profile, 0, len(st.RememberedSessions))
	for _, rs := range st.RememberedSessions {
		remembered = append(remembered, rs.Me)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logged_in":         me != nil,
		"me":                me,
		"remembered":        sortProfiles(remembered),
		"page":              st.UI.Page,
		"unlocked_tabs":     st.UI.UnlockedTabs,
		"opened":            st.UI.Opened,
		"downloads_paused":  st.Downloads.Paused,
		"downloads":         st.Downloads.Queue,
		"blocked_downloads": st.Downloads.Blocked,
		"modals":            len(st.Modals),
		"control_subject":   controlSubject(r.Context()),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}
	me, err := s.profiles.Me(r.Context(), req.APIKey)
	if err != nil {
		switch {
		case errors.Is(err, itchapi.ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "api key rejected")
		case itchapi.IsNetworkError(err):
			writeError(w, http.StatusBadGateway, "remote api unreachable")
		default:
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	st, ok := s.dispatch(w, r, domain.LoginSucceeded{Credentials: domain.Credentials{Key: req.APIKey, Me: me}})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"me":   me,
		"page": st.UI.Page,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.dispatch(w, r, domain.Logout{}); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleUseSavedLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfileID int64 `json:"profile_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, ok := s.dispatch(w, r, domain.UseSavedLogin{ProfileID: req.ProfileID})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":   true,
		"page": st.UI.Page,
	})
}

func (s *Server) handleForgetSession(w http.ResponseWriter, r *http.Request) {
	profileID, ok := pathInt(w, r, "profileID")
	if !ok {
		return
	}
	if _, ok := s.dispatch(w, r, domain.ForgetRememberedSession{ProfileID: profileID}); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleGameCredentials(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathInt(w, r, "gameID")
	if !ok {
		return
	}
	st := s.app.State()
	creds, err := s.resolver.ResolveByID(r.Context(), st.Identity(), gameID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if creds == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"access": false})
		return
	}
	// the api key itself never leaves the process
	body := map[string]interface{}{
		"access":          true,
		"api_key_profile": keyOwner(st, creds.APIKey),
		"download_key":    creds.DownloadKey,
	}
	writeJSON(w, http.StatusOK, body)
}

// keyOwner returns the profile id whose session holds apiKey, or 0.
func keyOwner(st state.AppState, apiKey string) int64 {
	if c := st.Session.Credentials; c != nil && c.Key == apiKey {
		return c.Me.ID
	}
	for id, rs := range st.RememberedSessions {
		if rs.Key == apiKey {
			return id
		}
	}
	return 0
}

func (s *Server) handleQueueDownload(w http.ResponseWriter, r *http.Request) {
	gameID, ok := pathInt(w, r, "gameID")
	if !ok {
		return
	}
	st, ok := s.dispatch(w, r, domain.QueueGameDownload{GameID: gameID})
	if !ok {
		return
	}
	if reason, blocked := st.Downloads.Blocked[gameID]; blocked {
		writeJSON(w, http.StatusConflict, map[string]interface{}{
			"queued": false,
			"reason": reason,
		})
		return
	}
	var queued *domain.Download
	for i := len(st.Downloads.Queue) - 1; i >= 0; i-- {
		if st.Downloads.Queue[i].GameID == gameID {
			dl := st.Downloads.Queue[i]
			queued = &dl
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"queued":   queued != nil,
		"download": queued,
	})
}

func (s *Server) handleCreateDownloadKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      int64 `json:"id"`
		GameID  int64 `json:"game_id"`
		OwnerID int64 `json:"owner_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.GameID <= 0 || req.OwnerID <= 0 {
		writeError(w, http.StatusBadRequest, "game_id and owner_id are required")
		return
	}
	key, err := s.store.SaveDownloadKey(r.Context(), domain.DownloadKey{
		ID:      req.ID,
		GameID:  req.GameID,
		OwnerID: req.OwnerID,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, key)
}

func (s *Server) handleRemoveDownloadKey(w http.ResponseWriter, r *http.Request) {
	keyID, ok := pathInt(w, r, "keyID")
	if !ok {
		return
	}
	if err := s.store.RemoveDownloadKey(r.Context(), keyID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleRequestUninstall(w http.ResponseWriter, r *http.Request) {
	caveID := chi.URLParam(r, "caveID")
	st, ok := s.dispatch(w, r, domain.RequestCaveUninstall{CaveID: caveID})
	if !ok {
		return
	}
	// the reactor opens exactly one modal, last in the settled snapshot
	modals := st.Modals
	if len(modals) == 0 {
		writeError(w, http.StatusInternalServerError, "no modal opened")
		return
	}
	writeJSON(w, http.StatusOK, s.renderModal(modals[len(modals)-1]))
}

type renderedButton struct {
	ID     string             `json:"id"`
	Label  string             `json:"label"`
	Icon   string             `json:"icon,omitempty"`
	Action *domain.ActionType `json:"action,omitempty"`
}

type renderedModal struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Buttons []renderedButton `json:"buttons"`
}

func (s *Server) renderModal(m domain.Modal) renderedModal {
	out := renderedModal{
		ID:      m.ID,
		Title:   s.localizer.Localize(m.Title),
		Message: s.localizer.Localize(m.Message),
		Buttons: make([]renderedButton, 0, len(m.Buttons)),
	}
	for _, b := range m.Buttons {
		rb := renderedButton{ID: b.ID, Label: s.localizer.Localize(b.Label), Icon: b.Icon}
		if b.Action != nil {
			t := b.Action.Type
			rb.Action = &t
		}
		out.Buttons = append(out.Buttons, rb)
	}
	return out
}

func (s *Server) handleListModals(w http.ResponseWriter, r *http.Request) {
	modals := s.app.State().Modals
	out := make([]renderedModal, 0, len(modals))
	for _, m := range modals {
		out = append(out, s.renderModal(m))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lang":   s.localizer.Lang(),
		"modals": out,
	})
}

func (s *Server) handleModalButton(w http.ResponseWriter, r *http.Request) {
	modalID := chi.URLParam(r, "modalID")
	buttonID := chi.URLParam(r, "buttonID")

	var button *domain.ModalButton
	for _, m := range s.app.State().Modals {
		if m.ID != modalID {
			continue
		}
		for i := range m.Buttons {
			if m.Buttons[i].ID == buttonID {
				button = &m.Buttons[i]
			}
		}
	}
	if button == nil {
		writeError(w, http.StatusNotFound, "modal button not found")
		return
	}
	if _, ok := s.dispatch(w, r, domain.CloseModal{ModalID: modalID}); !ok {
		return
	}
	var dispatched *domain.ActionType
	if button.Action != nil {
		if _, ok := s.dispatch(w, r, button.Action.Payload); !ok {
			return
		}
		t := button.Action.Type
		dispatched = &t
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":         true,
		"dispatched": dispatched,
	})
}

func (s *Server) handleNavigateTab(w http.ResponseWriter, r *http.Request) {
	tabID := chi.URLParam(r, "tabID")
	var req struct {
		Path string `json:"path"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}
	st, ok := s.dispatch(w, r, domain.NavigateTab{TabID: tabID, Path: req.Path})
	if !ok {
		return
	}
	writeTab(w, st, tabID)
}

func (s *Server) handleGetTab(w http.ResponseWriter, r *http.Request) {
	writeTab(w, s.app.State(), chi.URLParam(r, "tabID"))
}

func writeTab(w http.ResponseWriter, st state.AppState, tabID string) {
	tab, ok := st.Tabs[tabID]
	if !ok {
		writeError(w, http.StatusNotFound, "tab not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tab_id": tabID,
		"data":   tab,
		"error":  st.TabErrors[tabID],
	})
}

// dispatch reports whether payload settled without error, writing the error
// response otherwise. The returned state is the snapshot at settlement.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, payload domain.Payload) (state.AppState, bool) {
	st, err := s.app.DispatchSettled(r.Context(), domain.NewAction(payload))
	if err != nil {
		writeStoreError(w, err)
		return st, false
	}
	return st, true
}

func (s *Server) signControlToken(subject string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (s *Server) requireControl(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		var claims jwt.RegisteredClaims
		parsed, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !parsed.Valid {
			writeError(w, http.StatusUnauthorized, "invalid control token")
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyControlSubject, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func controlSubject(ctx context.Context) string {
	sub, _ := ctx.Value(contextKeyControlSubject).(string)
	return sub
}

func writeStoreError(w http.ResponseWriter, err error) {
	var rerr *reactor.Error
	switch {
	case errors.Is(err, storepkg.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &rerr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return v, true
}

func sortProfiles(profiles []domain.Profile) []domain.Profile {
	slices.SortFunc(profiles, func(a, b domain.Profile) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return profiles
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, target interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
