package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sumd/internal/profile"
	"sumd/internal/summarizer"
	"sumd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Summarize(ctx context.Context, text, profile string) (summarizer.Result, error)
	Compare(ctx context.Context, text string) (summarizer.Comparison, error)
	Profiles() []types.ProfileInfo
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		methods := corsAllowedMethods
		if len(methods) == 0 {
			methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
		}
		headers := corsAllowedHeaders
		if len(headers) == 0 {
			headers = []string{"Content-Type", "X-Log-Level"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			MaxAge:         300,
		}))
	}

	// @Summary      Summarize text
	// @Description  Returns a 10 to 15 word summary with latency and energy of the run.
	// @Tags         summarize
	// @Accept       json
	// @Produce      json
	// @Param        request  body      types.SummarizeRequest  true  "Text and profile"
	// @Success      200      {object}  types.SummarizeResponse
	// @Failure      400      {object}  types.ErrorResponse
	// @Failure      404      {object}  types.ErrorResponse
	// @Failure      429      {object}  types.ErrorResponse
	// @Failure      503      {object}  types.ErrorResponse
	// @Router       /summarize [post]
	r.Post("/summarize", func(w http.ResponseWriter, r *http.Request) {
		var req types.SummarizeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		name := req.Profile
		if name == "" {
			name = profile.ForMode(req.Optimized != nil && *req.Optimized)
		}
		text := req.InputText()
		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, "summarize", name, utf8.RuneCountInString(text))

		ctx, cancel := requestContext(r)
		defer cancel()
		res, err := svc.Summarize(ctx, text, name)
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := writeServiceError(w, err)
			logEnd(r, lvl, "summarize", status, start, err)
			return
		}
		writeJSON(w, res.Response())
		logEnd(r, lvl, "summarize", http.StatusOK, start, nil)
	})

	// @Summary      Compare profiles
	// @Description  Summarizes the same text with the baseline and then the optimized profile.
	// @Tags         summarize
	// @Accept       json
	// @Produce      json
	// @Param        request  body      types.CompareRequest  true  "Text"
	// @Success      200      {object}  types.CompareResponse
	// @Failure      400      {object}  types.ErrorResponse
	// @Failure      429      {object}  types.ErrorResponse
	// @Failure      503      {object}  types.ErrorResponse
	// @Router       /compare [post]
	r.Post("/compare", func(w http.ResponseWriter, r *http.Request) {
		var req types.CompareRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		text := req.InputText()
		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, "compare", profile.Baseline+","+profile.Optimized, utf8.RuneCountInString(text))

		ctx, cancel := requestContext(r)
		defer cancel()
		c, err := svc.Compare(ctx, text)
		if err != nil {
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			status := writeServiceError(w, err)
			logEnd(r, lvl, "compare", status, start, err)
			return
		}
		writeJSON(w, c.Response())
		logEnd(r, lvl, "compare", http.StatusOK, start, nil)
	})

	// @Summary   List profiles
	// @Tags      profiles
	// @Produce   json
	// @Success   200  {object}  types.ProfilesResponse
	// @Router    /profiles [get]
	r.Get("/profiles", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ProfilesResponse{Profiles: svc.Profiles()})
	})

	// @Summary   Service status
	// @Tags      status
	// @Produce   json
	// @Success   200  {object}  types.StatusResponse
	// @Router    /status [get]
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	if webDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(webDir)))
	}

	return r
}

// decodeJSON enforces the content type and body limit and decodes into v.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// requestContext joins the server base context with the request context so
// shutdown cancels work too, and applies the request timeout.
func writeServiceError(w http.ResponseWriter, err error) int {
	status := statusFor(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("queue")
	}
	writeJSONError(w, status, err.Error())
	return status
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
	}
}
