package api

import (
	"bytes"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/samcharles93/mnistpng/internal/logger"
	"github.com/samcharles93/mnistpng/pkg/idx"
)

// RecordSource is the cursor the server reads from.
type RecordSource interface {
	RecordCount() int
	Index() int
	Dims() (cols, rows int)
	Seek(target int) error
	Record() (*idx.Record, error)
	NextRecord() (*idx.Record, error)
}

var _ RecordSource = (*idx.Cursor)(nil)

type Config struct {
	// RequestsPerSecond limits record requests; zero disables the limit.
	RequestsPerSecond float64
	Burst             int
}

// Server exposes one cursor over HTTP. Requests are serialized on the
// cursor, which is single-owner.
type Server struct {
	mu      sync.Mutex
	src     RecordSource
	limiter *rate.Limiter
	log     logger.Logger
}

func NewServer(src RecordSource, cfg Config, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	s := &Server{src: src, log: log}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return s
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/dataset", s.handleDataset)

	g := e.Group("/v1", s.rateLimit)
	g.GET("/records/:index", s.handleRecordImage)
	g.GET("/records/:index/label", s.handleRecordLabel)
	g.POST("/cursor/next", s.handleCursorNext)
}

func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if s.limiter != nil && !s.limiter.Allow() {
			return writeError(c, http.StatusTooManyRequests, "rate_limit_error", "too many requests")
		}
		return next(c)
	}
}

func (s *Server) handleDataset(c *echo.Context) error {
	s.mu.Lock()
	cols, rows := s.src.Dims()
	info := DatasetInfo{
		Object: "dataset",
		Count:  s.src.RecordCount(),
		Rows:   rows,
		Cols:   cols,
		Index:  s.src.Index(),
	}
	s.mu.Unlock()
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleRecordImage(c *echo.Context) error {
	rec, err := s.recordAt(c.Param("index"))
	if err != nil {
		return writeDecodeError(c, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, rec.Pixels.Image()); err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}
	h := c.Response().Header()
	h.Set("X-Record-Index", strconv.Itoa(rec.Index))
	h.Set("X-Record-Label", rec.Label)
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) handleRecordLabel(c *echo.Context) error {
	rec, err := s.recordAt(c.Param("index"))
	if err != nil {
		return writeDecodeError(c, err)
	}
	return c.JSON(http.StatusOK, recordInfo(rec))
}

func (s *Server) handleCursorNext(c *echo.Context) error {
	s.mu.Lock()
	rec, err := s.src.NextRecord()
	next := s.src.Index()
	s.mu.Unlock()
	if err != nil {
		s.log.Warn("cursor next failed", "error", err)
		return writeDecodeError(c, err)
	}
	info := recordInfo(rec)
	info.Next = &next
	return c.JSON(http.StatusOK, info)
}

// recordAt seeks the cursor to the record named by raw and decodes it.
func (s *Server) recordAt(raw string) (*idx.Record, error) {
	target, err := strconv.Atoi(raw)
	if err != nil || target < 0 {
		return nil, invalidIndexError{raw: raw}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src.Index() != target {
		if err := s.src.Seek(target); err != nil {
			return nil, err
		}
	}
	rec, err := s.src.Record()
	if err != nil {
		s.log.Warn("record decode failed", "index", target, "error", err)
		return nil, err
	}
	return rec, nil
}

func recordInfo(rec *idx.Record) RecordInfo {
	return RecordInfo{
		Object: "record",
		Index:  rec.Index,
		Label:  rec.Label,
		URL:    fmt.Sprintf("/v1/records/%d", rec.Index),
	}
}
