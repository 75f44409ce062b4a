package source

import (
	"fmt"
	"strings"
)

// catalogueJSON renders records in the catalogue wire format. Each entry is
// (id, brand, model, size, year); year is emitted as a JSON number.
func catalogueJSON(entries ...[5]string) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf(`{
			"_id": %q, "brand": %q, "model": %q, "size": %q, "year": %s,
			"virtual_seat_tube": 50, "virtual_top_tube": 52, "seat_tube": 48, "top_tube": 51,
			"head_tube_angle": 72, "seat_tube_angle": 74, "head_tube_length": 12,
			"chain_stay_length": 40.5, "front_center": 58, "wheelbase": 97.5,
			"bottom_bracket_drop": 7, "bracket_height": 26.5, "stack": 52, "reach": 38,
			"crank_length": 170, "fork_rate": 45, "color": "red"
		}`, e[0], e[1], e[2], e[3], e[4]))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
