package live

import (
	"time"

	"github.com/google/uuid"

	"claims-service/internal/model"
)

// PendingOp is an optimistic local mutation not yet confirmed by the store.
type PendingOp struct {
	ClaimID   uuid.UUID
	Field     string
	Value     interface{}
	AppliedAt time.Time
}

// Reconcile overlays pending local ops onto an authoritative snapshot.
// Precedence rule: a pending op younger than window wins over the server
// value for its field; anything older is dropped, trusting the server to
// have echoed it back by now. The snapshot itself is never mutated.
func Reconcile(server []model.ClaimView, pending []PendingOp, window time.Duration, now time.Time) []model.ClaimView {
	out := make([]model.ClaimView, len(server))
	copy(out, server)

	if len(pending) == 0 {
		return out
	}

	index := make(map[uuid.UUID]int, len(out))
	for i, claim := range out {
		index[claim.ID] = i
	}

	for _, op := range pending {
		if now.Sub(op.AppliedAt) >= window {
			continue
		}
		i, ok := index[op.ClaimID]
		if !ok {
			continue
		}
		applyField(&out[i], op.Field, op.Value)
	}

	return out
}

// CoerceOpValue converts a JSON-decoded op value into the typed value the
// overlay expects. Returns false for fields or shapes it cannot map.
func CoerceOpValue(field string, raw interface{}) (interface{}, bool) {
	switch field {
	case "name", "phone", "address", "reason":
		v, ok := raw.(string)
		return v, ok
	case "status":
		v, ok := raw.(string)
		if !ok {
			return nil, false
		}
		status := model.ClaimStatus(v)
		return status, status.Valid()
	case "technician_id":
		v, ok := raw.(string)
		if !ok {
			return nil, false
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, false
		}
		return &id, true
	case "resolution":
		v, ok := raw.(string)
		if !ok {
			return nil, false
		}
		return &v, true
	case "is_archived":
		v, ok := raw.(bool)
		return v, ok
	}
	return nil, false
}

func applyField(claim *model.ClaimView, field string, value interface{}) {
	switch field {
	case "name":
		if v, ok := value.(string); ok {
			claim.Name = v
		}
	case "phone":
		if v, ok := value.(string); ok {
			claim.Phone = v
		}
	case "address":
		if v, ok := value.(string); ok {
			claim.Address = v
		}
	case "reason":
		if v, ok := value.(string); ok {
			claim.Reason = v
		}
	case "status":
		if v, ok := value.(model.ClaimStatus); ok && v.Valid() {
			claim.Status = v
		}
	case "technician_id":
		if v, ok := value.(*uuid.UUID); ok {
			claim.TechnicianID = v
		}
	case "resolution":
		if v, ok := value.(*string); ok {
			claim.Resolution = v
		}
	case "is_archived":
		if v, ok := value.(bool); ok {
			claim.IsArchived = v
		}
	}
}
