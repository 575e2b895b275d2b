// Package web serves the dashboard page and the JSON endpoints its script
// calls for each interaction. The browser keeps a copy of its favorites in
// local storage and a session id; the server list for that session is the
// one mutations apply to, so overlapping requests cannot lose updates.
package web

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"regexp"
	"time"

	"github.com/nanzhong/stonkboard/dashboard"
	"github.com/nanzhong/stonkboard/favorites"
	"github.com/nanzhong/stonkboard/httperr"
	"github.com/nanzhong/stonkboard/market"
	"github.com/phuslu/log"
)

//go:embed static/index.html
var staticFS embed.FS

var pageTemplate = template.Must(template.ParseFS(staticFS, "static/index.html"))

var sessionIDRegexp = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

type inputRequest struct {
	Value string `json:"value"`
}

type inputResponse struct {
	Value string `json:"value"`
}

type quoteRequest struct {
	Symbol    string `json:"symbol"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type favoritesRequest struct {
	Session   string               `json:"session"`
	Trigger   *favorites.ControlID `json:"trigger"`
	AddClicks int                  `json:"add_clicks"`
	Symbol    string               `json:"symbol"`
	Favorites []string             `json:"favorites"`
}

type pageData struct {
	Symbol    string
	StartDate string
	EndDate   string
}

// Handler routes dashboard requests.
type Handler struct {
	dash         *dashboard.Dashboard
	store        favorites.Store
	log          *log.Logger
	now          func() time.Time
	defaultStart time.Time

	mux     *http.ServeMux
	handler http.Handler
}

// Option configures a Handler.
type Option func(*Handler)

// WithSlack mounts a Slack event handler at /slack/event.
func WithSlack(h http.Handler) Option {
	return func(wh *Handler) {
		wh.mux.Handle("/slack/event", h)
	}
}

// WithFavoritesStore sets where browser sessions' favorites are kept. The
// default is an in-memory store.
func WithFavoritesStore(s favorites.Store) Option {
	return func(wh *Handler) {
		wh.store = s
	}
}

// WithDefaultStart sets the start of the date range used when a request
// leaves it empty.
func WithDefaultStart(t time.Time) Option {
	return func(wh *Handler) {
		wh.defaultStart = t
	}
}

func NewHandler(dash *dashboard.Dashboard, logger *log.Logger, opts ...Option) *Handler {
	h := &Handler{
		dash:         dash,
		store:        favorites.NewMemoryStore(),
		log:          logger,
		now:          time.Now,
		defaultStart: market.DefaultStart,
		mux:          http.NewServeMux(),
	}
	h.mux.HandleFunc("/", h.page)
	h.mux.HandleFunc("/healthz", h.health)
	h.mux.HandleFunc("/api/input", h.input)
	h.mux.HandleFunc("/api/quote", h.quote)
	h.mux.HandleFunc("/api/favorites", h.favorites)
	for _, opt := range opts {
		opt(h)
	}
	h.handler = h.withMiddleware(h.mux)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.respondWithErr(w, r, httperr.New(errors.New("not found"), http.StatusNotFound))
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		h.respondWithErr(w, r, httperr.New(fmt.Errorf("invalid method: %s", r.Method), http.StatusMethodNotAllowed))
		return
	}

	rng := h.defaultRange()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := pageTemplate.Execute(w, pageData{
		Symbol:    "NVDA",
		StartDate: rng.Start.Format("2006-01-02"),
		EndDate:   rng.End.Format("2006-01-02"),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("rendering page")
	}
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{"ok": true})
}

func (h *Handler) input(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	writeJSON(w, inputResponse{Value: dashboard.NormalizeInput(req.Value)})
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithErr(w, r, err)
		return
	}
	rng, err := market.ParseDateRange(req.StartDate, req.EndDate, h.defaultRange())
	if err != nil {
		h.respondWithErr(w, r, httperr.NewWithMessage(err, "invalid date range", http.StatusBadRequest))
		return
	}
	writeJSON(w, h.dash.UpdateQuote(r.Context(), req.Symbol, rng))
}

func (h *Handler) favorites(w http.ResponseWriter, r *http.Request) {
	var req favoritesRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondWithErr(w, r, err)
		return
	}

	if !sessionIDRegexp.MatchString(req.Session) {
		h.respondWithErr(w, r, httperr.New(fmt.Errorf("invalid session id %q", req.Session), http.StatusBadRequest))
		return
	}

	session := &dashboard.Session{ID: "web:" + req.Session}
	ev := favorites.Event{
		Trigger:   req.Trigger,
		AddClicks: req.AddClicks,
		Symbol:    req.Symbol,
	}
	var view dashboard.FavoritesView
	_, err := h.store.Update(r.Context(), session.ID, func(current favorites.List) favorites.List {
		// The browser copy only seeds a session the server has not seen.
		if current == nil {
			current = dashboard.RestoreFavorites(req.Favorites)
		}
		session.Favorites = current
		view = dashboard.UpdateFavorites(session, ev)
		return session.Favorites
	})
	if err != nil {
		h.respondWithErr(w, r, httperr.NewWithMessage(err, "updating favorites", http.StatusInternalServerError))
		return
	}
	h.log.Debug().Str("request_id", requestID(r.Context())).Str("session", session.ID).
		Strs("favorites", session.Favorites).Msg("favorites updated")
	writeJSON(w, view)
}

func (h *Handler) defaultRange() market.DateRange {
	return market.RangeFrom(h.defaultStart, h.now())
}

func decodeJSON(r *http.Request, v any) error {
	if r.Method != http.MethodPost {
		return httperr.New(fmt.Errorf("invalid method: %s", r.Method), http.StatusMethodNotAllowed)
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return httperr.NewWithMessage(err, "decoding request body", http.StatusBadRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
