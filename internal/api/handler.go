package api

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-ventilation/internal/extractor"
	"github.com/insightdelivered/statement-ventilation/internal/logger"
	"github.com/insightdelivered/statement-ventilation/internal/metrics"
	"github.com/insightdelivered/statement-ventilation/internal/models"
	"github.com/insightdelivered/statement-ventilation/internal/parser"
	"github.com/insightdelivered/statement-ventilation/internal/ventilation"
	"github.com/insightdelivered/statement-ventilation/internal/writer"
)

// Error kinds reported by the API besides the parser's own.
const (
	KindExtraction      = "ExtractionFailed"
	KindUnknownTemplate = "UnknownTemplate"
	KindAmbiguous       = "Ambiguous"
	KindSumMismatch     = "SumMismatch"
	KindInvalidPattern  = "InvalidPattern"
	KindInvalidSpec     = "InvalidSpec"
)

// ParseResponse is the JSON response from the /api/parse endpoint.
type ParseResponse struct {
	Success     bool              `json:"success"`
	Template    string            `json:"template"`
	Statement   *models.Statement `json:"statement"`
	CSV         string            `json:"csv,omitempty"`
	TotalDebit  models.Amount     `json:"totalDebit"`
	TotalCredit models.Amount     `json:"totalCredit"`
	Count       int               `json:"count"`
	RawText     string            `json:"rawText,omitempty"`
	Version     string            `json:"version,omitempty"`
}

// VentilateRequest is the JSON body of the /api/ventilate endpoint.
type VentilateRequest struct {
	Spec       models.CategorySpec `json:"spec"`
	Statements []models.Statement  `json:"statements"`
}

// VentilateResponse is the JSON response from the /api/ventilate endpoint.
type VentilateResponse struct {
	Success  bool                      `json:"success"`
	Result   *models.VentilationResult `json:"result"`
	Ranked   []models.CategoryTotal    `json:"ranked"`
	Markdown string                    `json:"markdown"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Success     bool                `json:"success"`
	Error       string              `json:"error"`
	Kind        string              `json:"kind,omitempty"`
	Document    string              `json:"document,omitempty"`
	Line        int                 `json:"line,omitempty"`
	Text        string              `json:"text,omitempty"`
	Declared    *models.Amount      `json:"declared,omitempty"`
	Computed    *models.Amount      `json:"computed,omitempty"`
	Transaction *models.Transaction `json:"transaction,omitempty"`
	Matches     []ventilation.Match `json:"matches,omitempty"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Templates   *parser.Registry
	Extractor   *extractor.Extractor
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	MetricsPath string
	StaticDir   string
	Version     string
	Log         zerolog.Logger
}

// Register sets up the routes.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/api/health", h.HandleHealth)
	app.Post("/api/parse", h.HandleParse)
	app.Post("/api/ventilate", h.HandleVentilate)

	if h.Gatherer != nil {
		path := h.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.HandlerFor(h.Gatherer, promhttp.HandlerOpts{})))
	}

	// Serve the web front-end; unknown non-API paths get index.html.
	if h.StaticDir != "" {
		app.Static("/", h.StaticDir)
		app.Get("/*", func(c *fiber.Ctx) error {
			if strings.HasPrefix(c.Path(), "/api/") {
				return fiber.ErrNotFound
			}
			return c.SendFile(filepath.Join(h.StaticDir, "index.html"))
		})
	}
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	var templates []string
	if h.Templates != nil {
		templates = h.Templates.Names()
	}
	return c.JSON(fiber.Map{
		"status":    "ok",
		"engine":    "fiber",
		"version":   h.Version,
		"templates": templates,
	})
}

func (h *Handler) HandleParse(c *fiber.Ctx) error {
	log := logger.FromContext(c.UserContext())

	source := c.FormValue("name")
	text := c.FormValue("text")
	if text == "" {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, ErrorResponse{Error: "No statement uploaded. Use form field 'file' or 'text'."})
		}
		if h.Extractor == nil || !h.Extractor.Supports(fh.Filename) {
			return writeError(c, fiber.StatusBadRequest, ErrorResponse{Error: "Only PDF and text files are supported."})
		}
		if source == "" {
			source = filepath.Base(fh.Filename)
		}

		tmp, err := os.CreateTemp("", "statement-*"+strings.ToLower(filepath.Ext(fh.Filename)))
		if err != nil {
			return err
		}
		tmp.Close()
		defer os.Remove(tmp.Name())

		if err := c.SaveFile(fh, tmp.Name()); err != nil {
			return err
		}
		text, err = h.Extractor.Extract(c.UserContext(), tmp.Name())
		if err != nil {
			log.Warn().Err(err).Str("document", source).Msg("extraction failed")
			reason := err
			var ee *extractor.ExtractionError
			if errors.As(err, &ee) {
				reason = ee.Err
			}
			return writeError(c, fiber.StatusUnprocessableEntity, ErrorResponse{
				Error:    "Text extraction failed: " + reason.Error(),
				Kind:     KindExtraction,
				Document: source,
			})
		}
	}

	var (
		t   parser.Template
		err error
	)
	if name := c.FormValue("template"); name != "" {
		if t, err = h.Templates.Lookup(name); err != nil {
			return writeError(c, fiber.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: KindUnknownTemplate})
		}
	} else if t, err = h.Templates.Detect(text); err != nil {
		return writeError(c, fiber.StatusUnprocessableEntity, ErrorResponse{Error: err.Error(), Kind: KindUnknownTemplate, Document: source})
	}

	opts := []parser.Option{parser.WithLogger(log)}
	if h.Metrics != nil {
		opts = append(opts, parser.WithObserver(h.Metrics))
	}
	p, err := parser.New(t, opts...)
	if err != nil {
		return err
	}

	st, err := p.ParseDocument(source, text)
	if err != nil {
		var pe *parser.ParseError
		if errors.As(err, &pe) {
			return writeError(c, fiber.StatusUnprocessableEntity, parseErrorResponse(pe))
		}
		return err
	}

	var csvBuf bytes.Buffer
	csvWriter := &writer.CSVWriter{IncludeHeader: c.FormValue("header") != "false"}
	if err := csvWriter.Write(&csvBuf, []models.Statement{*st}); err != nil {
		return err
	}

	if st.Transactions == nil {
		st.Transactions = []models.Transaction{}
	}
	resp := ParseResponse{
		Success:     true,
		Template:    t.Name,
		Statement:   st,
		CSV:         csvBuf.String(),
		TotalDebit:  st.Sum(models.Debit),
		TotalCredit: st.Sum(models.Credit),
		Count:       len(st.Transactions),
		Version:     h.Version,
	}
	if c.FormValue("debug") == "true" {
		resp.RawText = text
	}
	return c.JSON(resp)
}

func (h *Handler) HandleVentilate(c *fiber.Ctx) error {
	log := logger.FromContext(c.UserContext())

	var req VentilateRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, fiber.StatusBadRequest, ErrorResponse{Error: "Invalid request body: " + err.Error()})
	}
	if err := req.Spec.Validate(); err != nil {
		return writeError(c, fiber.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: KindInvalidSpec})
	}

	res, err := ventilation.Ventilate(req.Spec, req.Statements, ventilation.WithLogger(log))
	if h.Metrics != nil {
		h.Metrics.ObserveVentilation(res, err)
	}
	if err != nil {
		return writeVentilationError(c, err)
	}

	var md bytes.Buffer
	if err := (&writer.MarkdownWriter{}).Write(&md, res); err != nil {
		return err
	}
	return c.JSON(VentilateResponse{
		Success:  true,
		Result:   res,
		Ranked:   res.Ranked(),
		Markdown: md.String(),
	})
}

func parseErrorResponse(pe *parser.ParseError) ErrorResponse {
	resp := ErrorResponse{
		Error:    pe.Error(),
		Kind:     string(pe.Kind),
		Document: pe.Document,
		Line:     pe.Line,
		Text:     pe.Text,
	}
	if pe.Kind == parser.KindDebitMismatch || pe.Kind == parser.KindCreditMismatch {
		declared, computed := pe.Declared, pe.Computed
		resp.Declared = &declared
		resp.Computed = &computed
	}
	return resp
}

func writeVentilationError(c *fiber.Ctx, err error) error {
	var (
		amb *ventilation.AmbiguousError
		sum *ventilation.SumMismatchError
		pat *ventilation.PatternError
	)
	switch {
	case errors.As(err, &amb):
		txn := amb.Transaction
		return writeError(c, fiber.StatusUnprocessableEntity, ErrorResponse{
			Error:       err.Error(),
			Kind:        KindAmbiguous,
			Document:    amb.Document,
			Transaction: &txn,
			Matches:     amb.Matches,
		})
	case errors.As(err, &sum):
		expected, actual := sum.Expected, sum.Actual
		return writeError(c, fiber.StatusUnprocessableEntity, ErrorResponse{
			Error:    err.Error(),
			Kind:     KindSumMismatch,
			Declared: &expected,
			Computed: &actual,
		})
	case errors.As(err, &pat):
		return writeError(c, fiber.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: KindInvalidPattern})
	case errors.Is(err, ventilation.ErrNoStatements):
		return writeError(c, fiber.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	return err
}

func writeError(c *fiber.Ctx, status int, resp ErrorResponse) error {
	resp.Success = false
	return c.Status(status).JSON(resp)
}
