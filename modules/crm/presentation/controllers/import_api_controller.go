package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"runtime/debug"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/iota-crm/modules/crm/domain/entities/importrun"
	"github.com/iota-uz/iota-crm/modules/crm/presentation/controllers/dtos"
	"github.com/iota-uz/iota-crm/modules/crm/services"
	"github.com/iota-uz/iota-crm/pkg/application"
	"github.com/iota-uz/iota-crm/pkg/composables"
	"github.com/iota-uz/iota-crm/pkg/excel"
	"github.com/iota-uz/iota-crm/pkg/middleware"
	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

const (
	msgNoValidRecords = "No se encontraron registros válidos para importar"
	msgLookupFailed   = "Error al verificar registros existentes"
	msgInternal       = "Error interno del servidor"
	msgNoImport       = "No hay importaciones registradas"
	msgTooLarge       = "El archivo supera el tamaño máximo permitido"
)

type importer interface {
	Entity() string
	Import(ctx context.Context, payload reconcile.Payload, source string) (*reconcile.Report, error)
	LastRun(ctx context.Context) (importrun.Run, error)
}

type ImportAPIController struct {
	importer      importer
	basePath      string
	maxUploadSize int64
}

func NewImportAPIController(basePath string, svc importer, maxUploadSize int64) *ImportAPIController {
	return &ImportAPIController{importer: svc, basePath: basePath, maxUploadSize: maxUploadSize}
}

func NewClientImportAPIController(app application.Application, maxUploadSize int64) application.Controller {
	svc := app.Service(services.ClientImportService{}).(*services.ClientImportService)
	return NewImportAPIController("/crm/api/clients", svc, maxUploadSize)
}

func NewSupplierImportAPIController(app application.Application, maxUploadSize int64) application.Controller {
	svc := app.Service(services.SupplierImportService{}).(*services.SupplierImportService)
	return NewImportAPIController("/crm/api/suppliers", svc, maxUploadSize)
}

func (c *ImportAPIController) Key() string {
	return c.basePath
}

func (c *ImportAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.RequireAuthenticated())
	router.HandleFunc("/import", c.Import).Methods(http.MethodPost)
	router.HandleFunc("/import/last", c.LastImport).Methods(http.MethodGet)
}

func (c *ImportAPIController) logger(r *http.Request) *logrus.Entry {
	if l, err := composables.TryUseLogger(r.Context()); err == nil {
		return l.WithField("entity", c.importer.Entity())
	}
	return logrus.NewEntry(logrus.StandardLogger()).WithField("entity", c.importer.Entity())
}

func (c *ImportAPIController) Import(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger(r).WithFields(logrus.Fields{
				"panic": recovered,
				"stack": string(debug.Stack()),
			}).Error("import: unexpected fault")
			writeServerError(w, msgInternal)
		}
	}()

	payload, source, status, err := c.readPayload(w, r)
	if err != nil {
		c.logger(r).WithError(err).Info("import: payload rejected")
		writeClientError(w, status, clientMessage(err))
		return
	}

	report, err := c.importer.Import(r.Context(), payload, source)
	if err != nil {
		if errors.Is(err, reconcile.ErrDuplicateLookupFailed) {
			writeServerError(w, msgLookupFailed)
			return
		}
		c.logger(r).WithError(err).Error("import: failed")
		writeServerError(w, msgInternal)
		return
	}

	results := dtos.ResultsFromReport(report)
	if report.Total > 0 && report.Invalid == report.Total {
		writeJSON(w, http.StatusBadRequest, dtos.ImportResponse{
			Success:    false,
			Message:    msgNoValidRecords,
			Resultados: results,
		})
		return
	}
	writeJSON(w, http.StatusOK, dtos.ImportResponse{
		Success:    true,
		Message:    summaryMessage(report),
		Resultados: results,
	})
}

func (c *ImportAPIController) LastImport(w http.ResponseWriter, r *http.Request) {
	run, err := c.importer.LastRun(r.Context())
	if err != nil {
		if errors.Is(err, importrun.ErrNotFound) {
			writeClientError(w, http.StatusNotFound, msgNoImport)
			return
		}
		c.logger(r).WithError(err).Error("import: failed to load last run")
		writeServerError(w, msgInternal)
		return
	}
	writeJSON(w, http.StatusOK, dtos.LastImportFromRun(run))
}

// readPayload accepts a JSON body or a multipart upload with a .xlsx or .csv "file" field.
func (c *ImportAPIController) readPayload(w http.ResponseWriter, r *http.Request) (reconcile.Payload, string, int, error) {
	if c.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadSize)
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		payload, source, err := c.readUpload(r)
		return payload, source, statusFor(err), err
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", statusFor(err), err
	}
	payload, err := reconcile.DecodePayload(body)
	return payload, "api", statusFor(err), err
}

func (c *ImportAPIController) readUpload(r *http.Request) (reconcile.Payload, string, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("%w: missing file field", reconcile.ErrInvalidPayload)
	}
	defer file.Close()

	var records []reconcile.RawRecord
	switch strings.ToLower(filepath.Ext(header.Filename)) {
	case ".xlsx":
		records, err = excel.ReadXLSX(file, r.FormValue("sheet"))
	case ".csv":
		records, err = excel.ReadCSV(file)
	default:
		return nil, "", fmt.Errorf("%w: unsupported file type %q", reconcile.ErrInvalidPayload, header.Filename)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", reconcile.ErrInvalidPayload, err)
	}
	payload, err := reconcile.NewRecordsPayload(records, r.FormValue("updateStrategy"))
	return payload, "api:" + filepath.Base(header.Filename), err
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func clientMessage(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return msgTooLarge
	}
	return err.Error()
}

func summaryMessage(r *reconcile.Report) string {
	msg := fmt.Sprintf("Importación completada: %d nuevos, %d actualizados, %d omitidos, %d errores",
		r.Created, r.Updated, r.Skipped, r.Failed)
	if r.Invalid > 0 {
		msg += fmt.Sprintf(", %d inválidos", r.Invalid)
	}
	if r.TimedOut {
		msg += fmt.Sprintf(". Tiempo agotado: %d registros pendientes", r.Unprocessed)
	}
	return msg
}
