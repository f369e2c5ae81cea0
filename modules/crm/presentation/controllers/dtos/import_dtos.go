package dtos

import (
	"time"

	"github.com/iota-uz/iota-crm/modules/crm/domain/entities/importrun"
	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

type ImportResults struct {
	Nuevos       int   `json:"nuevos"`
	Actualizados int   `json:"actualizados"`
	Omitidos     int   `json:"omitidos"`
	Errores      int   `json:"errores"`
	Invalidados  int   `json:"invalidados"`
	TiempoMS     int64 `json:"tiempo_ms"`
	Procesados   int   `json:"procesados"`
	Pendientes   int   `json:"pendientes"`
}

type ImportResponse struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	Resultados ImportResults `json:"resultados"`
}

type ErrorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
}

type LastImportResponse struct {
	Entidad    string        `json:"entidad"`
	Estrategia string        `json:"estrategia"`
	Origen     string        `json:"origen"`
	Simulacion bool          `json:"simulacion"`
	TimedOut   bool          `json:"tiempo_agotado"`
	Finalizado time.Time     `json:"finalizado"`
	Resultados ImportResults `json:"resultados"`
}

func ResultsFromReport(r *reconcile.Report) ImportResults {
	return ImportResults{
		Nuevos:       r.Created,
		Actualizados: r.Updated,
		Omitidos:     r.Skipped,
		Errores:      r.Failed,
		Invalidados:  r.Invalid,
		TiempoMS:     r.Elapsed.Milliseconds(),
		Procesados:   r.Processed(),
		Pendientes:   r.Unprocessed,
	}
}

func LastImportFromRun(run importrun.Run) LastImportResponse {
	return LastImportResponse{
		Entidad:    run.Entity,
		Estrategia: run.Strategy,
		Origen:     run.Source,
		Simulacion: run.DryRun,
		TimedOut:   run.TimedOut,
		Finalizado: run.FinishedAt,
		Resultados: ImportResults{
			Nuevos:       run.Created,
			Actualizados: run.Updated,
			Omitidos:     run.Skipped,
			Errores:      run.Failed,
			Invalidados:  run.Invalid,
			TiempoMS:     run.ElapsedMS,
			Procesados:   run.Processed(),
			Pendientes:   run.Pending,
		},
	}
}
