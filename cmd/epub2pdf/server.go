package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	epub2pdf "github.com/alnah/go-epub2pdf"
	"github.com/alnah/go-epub2pdf/internal/assets"
	"github.com/alnah/go-epub2pdf/internal/fileutil"
)

// HTTP headers set by the server.
const (
	requestIDHeader = "X-Request-ID"
	warningsHeader  = "X-Render-Warnings"
)

// ctxRequestID is the gin context key holding the request ID.
const ctxRequestID = "request_id"

// maxTrackedClients caps the per-client limiter table. When full it is reset.
const maxTrackedClients = 10000

// backendLabels are shown in the upload form.
var backendLabels = map[epub2pdf.Backend]string{
	epub2pdf.BackendHTML:         "Styled, with images",
	epub2pdf.BackendHTMLNoImages: "Styled, without images",
	epub2pdf.BackendUnicode:      "Plain text, any script",
	epub2pdf.BackendText:         "Plain text, Latin only",
}

// serverOptions configures the HTTP front end.
type serverOptions struct {
	MaxUploadMB    int
	RatePerSecond  float64
	Burst          int
	DefaultBackend epub2pdf.Backend
	AcquireTimeout time.Duration
}

// server handles uploads. Every POST /convert runs exactly one job.
type server struct {
	pool           Pool
	log            *slog.Logger
	maxUploadMB    int
	limiters       *clientLimiters // nil = unlimited
	page           *template.Template
	defaultBackend epub2pdf.Backend
	acquireTimeout time.Duration
}

// newServer parses the upload form from loader and wires the pool.
func newServer(opts serverOptions, pool Pool, loader assets.AssetLoader, log *slog.Logger) (*server, error) {
	content, err := loader.LoadTemplate(assets.UploadTemplateName)
	if err != nil {
		return nil, fmt.Errorf("loading upload form: %w", err)
	}
	page, err := template.New(assets.UploadTemplateName).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing upload form: %w", err)
	}

	s := &server{
		pool:           pool,
		log:            log,
		maxUploadMB:    opts.MaxUploadMB,
		page:           page,
		defaultBackend: opts.DefaultBackend,
		acquireTimeout: opts.AcquireTimeout,
	}
	if s.defaultBackend == "" {
		s.defaultBackend = epub2pdf.DefaultBackend
	}
	if s.acquireTimeout <= 0 {
		s.acquireTimeout = defaultAcquireTimeout
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = defaultMaxUploadMB
	}
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = max(1, int(opts.RatePerSecond*2))
		}
		s.limiters = newClientLimiters(rate.Limit(opts.RatePerSecond), burst)
	}
	return s, nil
}

// routes builds the gin router.
func (s *server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(s.requestID(), s.logRequests(), gin.Recovery())
	r.SetHTMLTemplate(s.page)

	r.GET("/", s.handleIndex)
	r.GET("/healthz", s.handleHealth)
	r.POST("/convert", s.rateLimit(), s.handleConvert)
	return r
}

// handler wraps the router with CORS. No origins means any origin.
func (s *server) handler(origins []string) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		ExposedHeaders: []string{"Content-Disposition", requestIDHeader, warningsHeader},
	})
	return c.Handler(s.routes())
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// requestID reuses a valid incoming X-Request-ID or assigns a new one.
func (s *server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("request",
			"request_id", c.GetString(ctxRequestID),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func (s *server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiters != nil && !s.limiters.allow(c.ClientIP()) {
			s.fail(c, http.StatusTooManyRequests, epub2pdf.StageIntake, "rate limit exceeded, retry later")
			return
		}
		c.Next()
	}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

type backendOption struct {
	Name     string
	Label    string
	Selected bool
}

func (s *server) handleIndex(c *gin.Context) {
	options := make([]backendOption, 0, len(epub2pdf.Backends()))
	for _, b := range epub2pdf.Backends() {
		options = append(options, backendOption{
			Name:     b.String(),
			Label:    backendLabels[b],
			Selected: b == s.defaultBackend,
		})
	}
	c.HTML(http.StatusOK, assets.UploadTemplateName, gin.H{
		"MaxUploadMB": s.maxUploadMB,
		"Backends":    options,
	})
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) handleConvert(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(s.maxUploadMB)<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		if isTooLarge(err) {
			s.fail(c, http.StatusRequestEntityTooLarge, epub2pdf.StageIntake,
				fmt.Sprintf("upload exceeds %d MB", s.maxUploadMB))
			return
		}
		s.fail(c, http.StatusBadRequest, epub2pdf.StageIntake, `multipart field "file" is required`)
		return
	}

	var backend epub2pdf.Backend
	if v := c.PostForm("backend"); v != "" {
		backend, err = epub2pdf.ParseBackend(v)
		if err != nil {
			s.fail(c, http.StatusBadRequest, epub2pdf.StageIntake, err.Error())
			return
		}
	}

	data, err := readUpload(fh)
	if err != nil {
		s.fail(c, http.StatusBadRequest, epub2pdf.StageIntake, err.Error())
		return
	}

	ctx := c.Request.Context()
	acquireCtx, cancel := context.WithTimeout(ctx, s.acquireTimeout)
	conv, err := s.pool.Acquire(acquireCtx)
	cancel()
	if err != nil {
		s.log.Warn("no converter available", "request_id", c.GetString(ctxRequestID), "error", err)
		s.fail(c, http.StatusServiceUnavailable, epub2pdf.StageIntake, "server busy, retry later")
		return
	}
	defer s.pool.Release(conv)

	res, err := conv.Convert(ctx, epub2pdf.Input{
		Filename: fh.Filename,
		Data:     data,
		Backend:  backend,
	})
	if err != nil {
		s.log.Error("conversion failed",
			"request_id", c.GetString(ctxRequestID),
			"stage", epub2pdf.StageOf(err).String(),
			"error", err,
		)
		s.fail(c, statusFor(err), epub2pdf.StageOf(err), err.Error())
		return
	}

	c.Header("Content-Disposition", contentDisposition(res.Filename))
	if res.Warnings != nil {
		c.Header(warningsHeader, strconv.Itoa(len(res.Warnings.Issues)))
	}
	c.Data(http.StatusOK, epub2pdf.MediaTypePDF, res.PDF)
}

// fail writes the JSON error body and aborts the chain.
func (s *server) fail(c *gin.Context, status int, stage epub2pdf.Stage, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"stage":      stage.String(),
		"request_id": c.GetString(ctxRequestID),
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// statusFor maps a job error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, epub2pdf.ErrInputTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, epub2pdf.ErrEmptyInput),
		errors.Is(err, epub2pdf.ErrUnknownBackend):
		return http.StatusBadRequest
	case errors.Is(err, epub2pdf.ErrFontResourceMissing),
		errors.Is(err, epub2pdf.ErrConversion):
		return http.StatusUnprocessableEntity
	case errors.Is(err, epub2pdf.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// contentDisposition builds an attachment header with an ASCII fallback
// and the RFC 5987 UTF-8 name.
func contentDisposition(name string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, fileutil.ASCIIName(name), encoded)
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return data, nil
}

// clientLimiters holds one token bucket per client IP.
type clientLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newClientLimiters(limit rate.Limit, burst int) *clientLimiters {
	return &clientLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

func (l *clientLimiters) allow(client string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[client]
	if !ok {
		if len(l.limiters) >= maxTrackedClients {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[client] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
