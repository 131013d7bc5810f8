package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/docassembly/internal/layout"
	"github.com/Lllllllleong/docassembly/internal/models"
	"github.com/Lllllllleong/docassembly/internal/services"
)

var (
	generatorInstance *services.GeneratorFunction
	once              sync.Once
	initErr           error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.HTTP("GenerateDocument", handleGenerateDocument)
}

func main() {}

// handleGenerateDocument is the HTTP handler for the generator service.
func handleGenerateDocument(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		generatorInstance, initErr = services.NewGenerator(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Generator initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := generatorInstance.Process(r.Context(), &req)
	if err != nil {
		writeResponse(w, statusFor(err), &models.GenerateResponse{Status: "error", Error: err.Error()})
		return
	}
	writeResponse(w, http.StatusOK, res)
}

// statusFor maps caller mistakes to 400 and everything else to 500.
func statusFor(err error) int {
	var (
		unknown     *models.UnknownValueError
		unsupported *models.UnsupportedFormatError
		missing     *models.MissingResourceError
		invalid     *models.TemplateValidationError
	)
	switch {
	case errors.As(err, &unknown), errors.As(err, &unsupported), errors.As(err, &missing):
		return http.StatusBadRequest
	case errors.As(err, &invalid), errors.Is(err, layout.ErrPageRange):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeResponse(w http.ResponseWriter, status int, res *models.GenerateResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "jobId", res.JobID)
	}
}
