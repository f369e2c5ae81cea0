package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/iota-uz/iota-crm/modules/crm/presentation/controllers/dtos"
	"github.com/iota-uz/iota-crm/pkg/reconcile"
)

type importSummary struct {
	Entity     string             `json:"entidad"`
	Strategy   string             `json:"estrategia"`
	Source     string             `json:"origen"`
	DryRun     bool               `json:"simulacion"`
	TimedOut   bool               `json:"tiempo_agotado"`
	Resultados dtos.ImportResults `json:"resultados"`
}

func newImportSummary(entity, source string, dryRun bool, report *reconcile.Report) importSummary {
	return importSummary{
		Entity:     entity,
		Strategy:   report.Strategy.String(),
		Source:     source,
		DryRun:     dryRun,
		TimedOut:   report.TimedOut,
		Resultados: dtos.ResultsFromReport(report),
	}
}

func writeJSONLine(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}
