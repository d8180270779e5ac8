// Package export flattens claim records into a downloadable file. Styling
// and spreadsheet formatting belong to the consuming tool; this is data-out
// only.
package export

import (
	"encoding/csv"
	"io"
	"time"

	"claims-service/internal/model"
)

var header = []string{
	"id", "nombre", "telefono", "direccion", "motivo", "estado",
	"tecnico", "resolucion", "recibido_por", "archivado", "creado", "actualizado",
}

// WriteClaimsCSV streams the claim list as CSV, one row per claim, in the
// order given.
func WriteClaimsCSV(w io.Writer, claims []model.ClaimView) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return err
	}

	for _, claim := range claims {
		technician := ""
		if claim.TechnicianName != nil {
			technician = *claim.TechnicianName
		}
		resolution := ""
		if claim.Resolution != nil {
			resolution = *claim.Resolution
		}
		archived := "no"
		if claim.IsArchived {
			archived = "si"
		}

		row := []string{
			claim.ID.String(),
			claim.Name,
			claim.Phone,
			claim.Address,
			claim.Reason,
			string(claim.Status),
			technician,
			resolution,
			claim.ReceivedBy,
			archived,
			claim.CreatedAt.Format(time.RFC3339),
			claim.UpdatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
