package source

import (
	"fmt"
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	apperrors "github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/errors"
)

// maxReportedFields caps how many field errors ValidationError.Error prints.
const maxReportedFields = 10

// FieldError is one invalid field of one record.
type FieldError struct {
	Index   int    `json:"index"`
	ID      string `json:"id,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError holds every field failure found in a catalogue payload.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, min(len(e.Fields), maxReportedFields))
	for i, f := range e.Fields {
		if i == maxReportedFields {
			break
		}
		parts = append(parts, fmt.Sprintf("record %d (%s) %s: %s", f.Index, f.ID, f.Field, f.Message))
	}
	msg := strings.Join(parts, "; ")
	if extra := len(e.Fields) - maxReportedFields; extra > 0 {
		msg += fmt.Sprintf("; and %d more", extra)
	}
	return "invalid catalogue records: " + msg
}

func (e *ValidationError) Is(target error) bool {
	return target == apperrors.ErrInvalidRecord
}

// Validate converts wire records into frame records, collecting every
// missing identifier, missing or non-finite measurement, non-positive reach
// and duplicate id.
func Validate(wire []wireRecord) ([]frame.Record, error) {
	var errs []FieldError
	add := func(i int, id, field, msg string) {
		errs = append(errs, FieldError{Index: i, ID: id, Field: field, Message: msg})
	}

	seen := make(map[string]int, len(wire))
	records := make([]frame.Record, 0, len(wire))
	for i := range wire {
		w := &wire[i]
		id := w.ID.Value

		keys := []struct {
			name string
			key  Key
		}{
			{"_id", w.ID}, {"brand", w.Brand}, {"model", w.Model}, {"size", w.Size}, {"year", w.Year},
		}
		for _, k := range keys {
			if !k.key.Set || strings.TrimSpace(k.key.Value) == "" {
				add(i, id, k.name, "is required")
			}
		}
		if w.ID.Set && id != "" {
			if first, dup := seen[id]; dup {
				add(i, id, "_id", fmt.Sprintf("duplicates record %d", first))
			} else {
				seen[id] = i
			}
		}

		rec := frame.Record{
			ID:    id,
			Brand: w.Brand.Value,
			Model: w.Model.Value,
			Size:  w.Size.Value,
			Year:  w.Year.Value,
		}
		dst := rec.GeometryPointers()
		for j, v := range w.geometry() {
			field := frame.GeometryFields[j]
			switch {
			case v == nil:
				add(i, id, field, "is required")
			case math.IsNaN(*v) || math.IsInf(*v, 0):
				add(i, id, field, "must be finite")
			default:
				*dst[j] = *v
			}
		}
		if w.Reach != nil && *w.Reach <= 0 {
			add(i, id, "reach", "must be positive")
		}
		records = append(records, rec)
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}
	return records, nil
}
