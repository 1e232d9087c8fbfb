package server

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ginjaninja78/xero-bills-converter/internal/config"
	"github.com/ginjaninja78/xero-bills-converter/internal/converter"
	"github.com/ginjaninja78/xero-bills-converter/internal/csvwriter"
	"github.com/ginjaninja78/xero-bills-converter/internal/logger"
	"github.com/ginjaninja78/xero-bills-converter/internal/types"
	"github.com/ginjaninja78/xero-bills-converter/pkg/utils"
	"github.com/ginjaninja78/xero-bills-converter/web"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Row     int    `json:"row,omitempty"`
	Field   string `json:"field,omitempty"`
}

// Server serves the upload form and converts uploaded exports.
type Server struct {
	app     *fiber.App
	cfg     *config.MainConfig
	layouts map[string]*config.LayoutConfig
	files   *utils.FileManager
	log     zerolog.Logger
}

// New builds the fiber app and registers the routes.
func New(cfg *config.MainConfig, layouts map[string]*config.LayoutConfig, log zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		layouts: layouts,
		files:   utils.NewFileManager(cfg),
		log:     log,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "xero-bills-converter",
		BodyLimit:             cfg.MaxUploadBytes,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(ErrorResponse{Code: "INTERNAL", Message: err.Error()})
		},
	})

	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)

	s.app.Get("/", s.home)
	s.app.Post("/upload", s.upload)
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving on the configured address.
func (s *Server) Listen() error {
	if err := s.files.EnsureDirectories(); err != nil {
		return err
	}
	s.log.Info().Str("addr", s.cfg.HTTPAddr).Msg("Listening")
	return s.app.Listen(s.cfg.HTTPAddr)
}

// Shutdown stops the server, waiting for in-flight conversions.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// requestLogger tags each request with an id and logs its outcome.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	id := c.Get(fiber.HeaderXRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(fiber.HeaderXRequestID, id)
	c.Locals("log", logger.WithRequestID(s.log, id))

	start := time.Now()
	err := c.Next()

	l := s.reqLog(c)
	l.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("elapsed", time.Since(start)).
		Msg("Request")
	return err
}

func (s *Server) reqLog(c *fiber.Ctx) *zerolog.Logger {
	if l, ok := c.Locals("log").(zerolog.Logger); ok {
		return &l
	}
	return &s.log
}

// home serves the upload form.
// GET /
func (s *Server) home(c *fiber.Ctx) error {
	page, err := fs.ReadFile(web.StaticFS, "static/upload.html")
	if err != nil {
		return err
	}
	c.Type("html", "utf-8")
	return c.Send(page)
}

// upload converts the uploaded export and returns the Xero import file.
// POST /upload
//
// Form fields: file (required), kind (orders|cancellations), date_format
// (input day/month order), output_date_format, profile.
// A request without a file, or with an empty file name, is sent back to the
// form.
func (s *Server) upload(c *fiber.Ctx) error {
	log := s.reqLog(c)

	fh, err := c.FormFile("file")
	if err != nil || fh.Filename == "" {
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	opts, errResp := s.optionsFromForm(c)
	if errResp != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errResp)
	}

	src, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_UPLOAD", Message: err.Error()})
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_UPLOAD", Message: err.Error()})
	}

	saved, err := s.files.SaveUpload(fh.Filename, bytes.NewReader(data))
	if err != nil {
		log.Error().Err(err).Msg("Failed to save upload")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Code: "INTERNAL", Message: "could not store upload"})
	}
	log.Debug().Str("upload", saved).Int("bytes", len(data)).Msg("Saved upload")

	out, err := converter.Convert(bytes.NewReader(data), fh.Filename, opts)
	if err != nil {
		log.Warn().Err(err).Str("file", fh.Filename).Msg("Conversion failed")
		return c.Status(statusFor(err)).JSON(errorResponse(err))
	}

	var buf bytes.Buffer
	if err := csvwriter.Write(&buf, out.Lines); err != nil {
		return err
	}
	if _, err := s.files.SaveProcessed(buf.Bytes()); err != nil {
		log.Error().Err(err).Msg("Failed to keep processed copy")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Code: "INTERNAL", Message: "could not store result"})
	}

	log.Info().
		Str("file", fh.Filename).
		Str("kind", kindLabel(opts.Kind)).
		Int("records", out.Stats.RecordsConverted).
		Int("lines", len(out.Lines)).
		Str("total", out.Stats.Total.StringFixed(2)).
		Msg("Converted upload")

	c.Attachment(utils.ProcessedFileName)
	return c.Send(buf.Bytes())
}

func (s *Server) optionsFromForm(c *fiber.Ctx) (converter.Options, *ErrorResponse) {
	var opts converter.Options

	kind, err := converter.ParseKind(c.FormValue("kind"))
	if err != nil {
		return opts, &ErrorResponse{Code: "INVALID_KIND", Message: err.Error(), Field: "kind"}
	}
	opts.Kind = kind

	if v := c.FormValue("date_format"); v != "" {
		f, err := converter.ParseDateFormat(v)
		if err != nil {
			return opts, &ErrorResponse{Code: "INVALID_DATE_FORMAT", Message: err.Error(), Field: "date_format"}
		}
		opts.InputDateFormat = f
	}
	if v := c.FormValue("output_date_format"); v != "" {
		f, err := converter.ParseDateFormat(v)
		if err != nil {
			return opts, &ErrorResponse{Code: "INVALID_DATE_FORMAT", Message: err.Error(), Field: "output_date_format"}
		}
		opts.OutputDateFormat = f
	}

	profile := c.FormValue("profile", s.cfg.Profile)
	layout, ok := s.layouts[profile]
	if !ok {
		return opts, &ErrorResponse{Code: "UNKNOWN_PROFILE", Message: "unknown profile " + profile, Field: "profile"}
	}
	opts.Layout = layout

	return opts, nil
}

// statusFor maps a conversion error to an HTTP status: 415 for an
// unsupported file type and 422 for any problem with the content.
func statusFor(err error) int {
	switch {
	case errors.Is(err, converter.ErrInvalidAmount),
		errors.Is(err, converter.ErrInvalidFlag),
		errors.Is(err, converter.ErrInvalidDate),
		errors.Is(err, converter.ErrMissingColumn),
		errors.Is(err, converter.ErrEmptyInput):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, converter.ErrUnsupportedFile):
		return fiber.StatusUnsupportedMediaType
	}
	// Parser errors (bad CSV quoting, corrupt workbook) are the upload's fault too.
	return fiber.StatusUnprocessableEntity
}

func errorResponse(err error) ErrorResponse {
	resp := ErrorResponse{
		Message: err.Error(),
		Row:     converter.RowOf(err),
		Field:   converter.FieldOf(err),
	}
	switch {
	case errors.Is(err, converter.ErrInvalidAmount):
		resp.Code = "INVALID_AMOUNT"
	case errors.Is(err, converter.ErrInvalidFlag):
		resp.Code = "INVALID_FLAG"
	case errors.Is(err, converter.ErrInvalidDate):
		resp.Code = "INVALID_DATE"
	case errors.Is(err, converter.ErrMissingColumn):
		resp.Code = "MISSING_COLUMN"
	case errors.Is(err, converter.ErrEmptyInput):
		resp.Code = "EMPTY_INPUT"
	case errors.Is(err, converter.ErrUnsupportedFile):
		resp.Code = "UNSUPPORTED_FILE"
	default:
		resp.Code = "INVALID_FILE"
	}
	return resp
}

// kindLabel is used in log lines.
func kindLabel(k types.RecordKind) string {
	if k == "" {
		return string(types.KindOrders)
	}
	return string(k)
}
