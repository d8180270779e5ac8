package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"claims-service/internal/model"
)

// MessageSender is the outbound messaging collaborator (WhatsApp-class).
type MessageSender interface {
	Send(ctx context.Context, phone, body string) error
}

// PushSender is the browser push collaborator.
type PushSender interface {
	Send(ctx context.Context, registrationToken, title, body string) error
}

// Dispatcher formats and fires claim notifications. Every recipient is
// attempted independently; failures come back as warnings and never abort
// the operation that triggered them.
type Dispatcher struct {
	whatsapp MessageSender
	push     PushSender
	log      zerolog.Logger
}

func NewDispatcher(whatsapp MessageSender, push PushSender, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{whatsapp: whatsapp, push: push, log: log}
}

func (d *Dispatcher) ClaimCreated(ctx context.Context, claim *model.Claim, technician *model.Technician) []string {
	var warnings []string

	customerBody := fmt.Sprintf(
		"Cospec Comunicaciones: hola %s, registramos su reclamo por %q. Su número de seguimiento es %s.",
		claim.Name, claim.Reason, claim.ID,
	)
	if err := d.whatsapp.Send(ctx, claim.Phone, customerBody); err != nil {
		d.log.Warn().Err(err).Str("claim_id", claim.ID.String()).Msg("customer whatsapp dispatch failed")
		warnings = append(warnings, "no se pudo notificar al cliente por WhatsApp")
	}

	if technician != nil {
		warnings = append(warnings, d.notifyTechnician(ctx, claim, technician, "Nuevo reclamo asignado")...)
	}

	return warnings
}

func (d *Dispatcher) ClaimAssigned(ctx context.Context, claim *model.Claim, technician *model.Technician) []string {
	if technician == nil {
		return nil
	}
	return d.notifyTechnician(ctx, claim, technician, "Reclamo reasignado")
}

func (d *Dispatcher) notifyTechnician(ctx context.Context, claim *model.Claim, technician *model.Technician, title string) []string {
	var warnings []string

	body := fmt.Sprintf(
		"%s: %s. Motivo: %s. Cliente: %s (%s).",
		title, claim.Address, claim.Reason, claim.Name, claim.Phone,
	)
	if err := d.whatsapp.Send(ctx, technician.Phone, body); err != nil {
		d.log.Warn().Err(err).Str("claim_id", claim.ID.String()).Str("technician_id", technician.ID.String()).
			Msg("technician whatsapp dispatch failed")
		warnings = append(warnings, "no se pudo notificar al técnico por WhatsApp")
	}

	if technician.PushToken != nil && *technician.PushToken != "" {
		if err := d.push.Send(ctx, *technician.PushToken, title, claim.Address); err != nil {
			d.log.Warn().Err(err).Str("technician_id", technician.ID.String()).Msg("technician push dispatch failed")
			warnings = append(warnings, "no se pudo enviar la notificación push al técnico")
		}
	}

	return warnings
}
