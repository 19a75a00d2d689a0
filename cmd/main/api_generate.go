package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/CTAG07/ngramgen/pkg/corpus"
	"github.com/CTAG07/ngramgen/pkg/ngram"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
)

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// GenerateRequest is the body of POST /api/generate. Zero values fall back to
// the configured defaults.
type GenerateRequest struct {
	Text     string `json:"text"`
	Order    int    `json:"order"`
	Count    int    `json:"count"`
	MaxSteps int    `json:"max_steps"`
	Seed     uint64 `json:"seed"`
}

// GenerateResponse is returned for a successful generation.
type GenerateResponse struct {
	ID        string           `json:"id"`
	Sentences []string         `json:"sentences"`
	Stats     ngram.ModelStats `json:"stats"`
}

// GenerateAPI serves text generation over HTTP. Every request trains its own
// model, so requests never share state.
type GenerateAPI struct {
	server    *ServerConfig
	generator *GeneratorConfig
	newTable  corpus.TableFactory
	logger    *slog.Logger
}

// NewGenerateAPI creates a new instance of the GenerateAPI.
func NewGenerateAPI(server *ServerConfig, generator *GeneratorConfig, newTable corpus.TableFactory, logger *slog.Logger) *GenerateAPI {
	return &GenerateAPI{
		server:    server,
		generator: generator,
		newTable:  newTable,
		logger:    logger,
	}
}

// Register sets up the routing for all /api endpoints.
func (a *GenerateAPI) Register(e *echo.Echo) {
	e.POST("/api/generate", a.handleGenerate)
	e.GET("/api/health", a.handleHealthCheck)
	e.GET("/api/version", a.handleVersion)
}

func respondWithError(c *echo.Context, code int, message string) error {
	return c.JSON(code, map[string]string{"error": message})
}

// handleGenerate trains a model on the request text and returns the sampled
// sentences.
func (a *GenerateAPI) handleGenerate(c *echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, a.server.MaxTextBytes+1))
	if err != nil {
		return respondWithError(c, http.StatusBadRequest, "Failed to read request body")
	}
	if int64(len(body)) > a.server.MaxTextBytes {
		return respondWithError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", a.server.MaxTextBytes))
	}

	var req GenerateRequest
	if err = json.Unmarshal(body, &req); err != nil {
		return respondWithError(c, http.StatusBadRequest, "Invalid JSON request body")
	}
	if err = a.normalize(&req); err != nil {
		return respondWithError(c, http.StatusBadRequest, err.Error())
	}

	id := uuid.NewString()
	src, err := corpus.NewSource(id, req.Text)
	if err != nil {
		return respondWithError(c, http.StatusBadRequest, "Text must be valid UTF-8")
	}

	runner := &corpus.Runner{
		Order:     req.Order,
		Sentences: req.Count,
		Workers:   1,
		MaxSteps:  req.MaxSteps,
		Seed:      req.Seed,
		NewTable:  a.newTable,
		Logger:    a.logger.With(slog.String("request_id", id)),
	}
	batch := runner.Run(c.Request().Context(), []corpus.Source{src})[0]

	if batch.Err != nil {
		status := statusForError(batch.Err)
		if status == http.StatusInternalServerError {
			a.logger.Error("Generation failed", slog.String("request_id", id), slog.Any("error", batch.Err))
			return respondWithError(c, status, "Generation failed")
		}
		return respondWithError(c, status, batch.Err.Error())
	}

	a.logger.Info("Generated sentences",
		slog.String("request_id", id),
		slog.Int("order", req.Order),
		slog.Int("count", len(batch.Sentences)),
		slog.Int("text_bytes", len(req.Text)),
	)
	return c.JSON(http.StatusOK, GenerateResponse{ID: id, Sentences: batch.Sentences, Stats: batch.Stats})
}

// normalize fills in defaults and enforces the server limits. A step cap is
// always applied.
func (a *GenerateAPI) normalize(req *GenerateRequest) error {
	if req.Text == "" {
		return errors.New("text is required")
	}
	if req.Order == 0 {
		req.Order = a.generator.Order
	}
	if req.Order < 1 || req.Order > a.server.MaxOrder {
		return fmt.Errorf("order must be between 1 and %d", a.server.MaxOrder)
	}
	if req.Count == 0 {
		req.Count = 1
	}
	if req.Count < 1 || req.Count > a.server.MaxSentences {
		return fmt.Errorf("count must be between 1 and %d", a.server.MaxSentences)
	}
	if req.MaxSteps < 0 {
		return errors.New("max_steps must not be negative")
	}
	if req.MaxSteps == 0 || req.MaxSteps > a.server.MaxSteps {
		req.MaxSteps = a.server.MaxSteps
	}
	return nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ngram.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, ngram.ErrNoMatchingContext), errors.Is(err, ngram.ErrStepLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *GenerateAPI) handleHealthCheck(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion returns the application's build information.
func (a *GenerateAPI) handleVersion(c *echo.Context) error {
	return c.JSON(http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}
