// Package source fetches raw frame records from the catalogue. Every source
// decodes into the same wire schema and validates it before handing records
// to the index, so malformed data is rejected at the load boundary.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	apperrors "github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/errors"
)

// Key is an identifying field delivered either as a JSON string or as a
// JSON number (years usually arrive as 2011, not "2011"). Numbers are
// stored in their shortest decimal form, so 2011, 2011.0 and 2.011e3 are
// the same key.
type Key struct {
	Value string
	Set   bool
}

func (k *Key) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*k = Key{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = Key{Value: s, Set: true}
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		if f == 0 {
			f = 0 // drop the sign of -0
		}
		*k = Key{Value: strconv.FormatFloat(f, 'f', -1, 64), Set: true}
		return nil
	}
}

// wireRecord mirrors the catalogue JSON. Pointers distinguish a missing
// measurement from a zero one.
type wireRecord struct {
	ID    Key `json:"_id"`
	Brand Key `json:"brand"`
	Model Key `json:"model"`
	Size  Key `json:"size"`
	Year  Key `json:"year"`

	VirtualSeatTube   *float64 `json:"virtual_seat_tube"`
	VirtualTopTube    *float64 `json:"virtual_top_tube"`
	SeatTube          *float64 `json:"seat_tube"`
	TopTube           *float64 `json:"top_tube"`
	HeadTubeAngle     *float64 `json:"head_tube_angle"`
	SeatTubeAngle     *float64 `json:"seat_tube_angle"`
	HeadTubeLength    *float64 `json:"head_tube_length"`
	ChainStayLength   *float64 `json:"chain_stay_length"`
	FrontCenter       *float64 `json:"front_center"`
	Wheelbase         *float64 `json:"wheelbase"`
	BottomBracketDrop *float64 `json:"bottom_bracket_drop"`
	BracketHeight     *float64 `json:"bracket_height"`
	Stack             *float64 `json:"stack"`
	Reach             *float64 `json:"reach"`
	CrankLength       *float64 `json:"crank_length"`
	ForkRate          *float64 `json:"fork_rate"`
}

// geometry returns the measurement pointers in frame.GeometryFields order.
func (w *wireRecord) geometry() []*float64 {
	return []*float64{
		w.VirtualSeatTube,
		w.VirtualTopTube,
		w.SeatTube,
		w.TopTube,
		w.HeadTubeAngle,
		w.SeatTubeAngle,
		w.HeadTubeLength,
		w.ChainStayLength,
		w.FrontCenter,
		w.Wheelbase,
		w.BottomBracketDrop,
		w.BracketHeight,
		w.Stack,
		w.Reach,
		w.CrankLength,
		w.ForkRate,
	}
}

// DecodeError reports a catalogue payload that is not a JSON array of
// records.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding catalogue: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == apperrors.ErrInvalidRecord
}

// Decode reads a JSON array of catalogue records from r and validates it.
// Unknown fields are ignored; trailing data after the array is an error.
func Decode(r io.Reader) ([]frame.Record, error) {
	dec := json.NewDecoder(r)
	var wire []wireRecord
	if err := dec.Decode(&wire); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if wire == nil {
		return nil, &DecodeError{Err: errors.New("payload is null, expected an array")}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Err: errors.New("unexpected data after catalogue array")}
	}
	return Validate(wire)
}
