package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appextract "github.com/bryanwahyu/brandcount/internal/application/extraction"
	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
	"github.com/bryanwahyu/brandcount/internal/middleware"
)

// Options carries the optional surfaces of the router. Zero values disable them.
type Options struct {
	AllowedOrigins []string
	APIKeys        map[string]string
	RateLimiter    *middleware.RateLimiter
	Metrics        *middleware.Metrics
	HealthCheckers map[string]middleware.HealthChecker
	MaxTextChars   int
	MaxBodyBytes   int64
	Logger         *zap.Logger
}

type Router struct {
	svc    *appextract.Service
	opts   Options
	logger *zap.Logger
}

func NewRouter(svc *appextract.Service, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{svc: svc, opts: opts, logger: logger}
	mux := chi.NewRouter()

	mux.Use(chimw.Recoverer)
	mux.Use(middleware.Logging(logger))
	if opts.Metrics != nil {
		mux.Use(opts.Metrics.Middleware)
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	if len(opts.APIKeys) > 0 {
		mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	}

	mux.Get("/health", middleware.HealthHandler(opts.HealthCheckers))
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}

	mux.Route("/extract", func(rt chi.Router) {
		rt.Get("/", r.wrap(r.handleExtractProbe))
		rt.Get("/results", r.wrap(r.handleResults))
		rt.Group(func(g chi.Router) {
			if opts.RateLimiter != nil {
				g.Use(opts.RateLimiter.Middleware)
			}
			g.Use(middleware.MaxBodyBytes(opts.MaxBodyBytes))
			g.Post("/", r.wrap(r.handleExtract))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			r.writeError(w, req, err)
		}
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError mapping kind error ke status code
func (r *Router) writeError(w http.ResponseWriter, req *http.Request, err error) {
	kind := domain.KindOf(err)
	status := http.StatusInternalServerError
	body := errorBody{Error: string(kind), Message: domain.Message(err)}
	switch kind {
	case domain.KindInvalidInput:
		status = http.StatusBadRequest
	case domain.KindUpstream, domain.KindParse, domain.KindShape:
		status = http.StatusBadGateway
		body.Message = "LLM call failed: " + body.Message
	case domain.KindStorage:
		body.Message = "Internal server error"
	default:
		body.Error = string(domain.KindInternal)
		body.Message = "Internal server error"
	}
	if status >= 500 {
		r.logger.Error("request failed",
			zap.String("request_id", middleware.RequestIDFromContext(req.Context())),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /extract
// Body: {"text": "<free text>"}
func (r *Router) handleExtract(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Text *string `json:"text"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &domain.Error{Kind: domain.KindInvalidInput, Op: "decode", Err: fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)}
		}
		return &domain.Error{Kind: domain.KindInvalidInput, Op: "decode", Err: fmt.Errorf("malformed JSON body: %w", err)}
	}
	if body.Text == nil {
		return &domain.Error{Kind: domain.KindInvalidInput, Op: "decode", Err: errors.New("text is required")}
	}
	if err := middleware.ValidateText(*body.Text, r.opts.MaxTextChars); err != nil {
		return &domain.Error{Kind: domain.KindInvalidInput, Op: "validate", Err: err}
	}

	res, err := r.svc.Extract(req.Context(), *body.Text)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /extract/results
func (r *Router) handleResults(w http.ResponseWriter, req *http.Request) error {
	res, err := r.svc.List(req.Context())
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

// GET /extract
func (r *Router) handleExtractProbe(w http.ResponseWriter, _ *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Extract endpoint is working",
		"method":  "GET",
	})
	return nil
}
