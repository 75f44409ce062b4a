// Package frame defines the raw frame geometry record delivered by catalogue
// sources and the derived Frame entity used for selection and ranking.
package frame

// Record is one frame's geometry exactly as the catalogue delivers it.
// Records are validated at the load boundary and never modified afterwards.
type Record struct {
	ID    string `json:"_id"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Size  string `json:"size"`
	Year  string `json:"year"`

	VirtualSeatTube   float64 `json:"virtual_seat_tube"`
	VirtualTopTube    float64 `json:"virtual_top_tube"`
	SeatTube          float64 `json:"seat_tube"`
	TopTube           float64 `json:"top_tube"`
	HeadTubeAngle     float64 `json:"head_tube_angle"`
	SeatTubeAngle     float64 `json:"seat_tube_angle"`
	HeadTubeLength    float64 `json:"head_tube_length"`
	ChainStayLength   float64 `json:"chain_stay_length"`
	FrontCenter       float64 `json:"front_center"`
	Wheelbase         float64 `json:"wheelbase"`
	BottomBracketDrop float64 `json:"bottom_bracket_drop"`
	BracketHeight     float64 `json:"bracket_height"`
	Stack             float64 `json:"stack"`
	Reach             float64 `json:"reach"`
	CrankLength       float64 `json:"crank_length"`
	ForkRate          float64 `json:"fork_rate"`
}

// Path is the (brand, model, size, year) tuple a record is indexed under.
type Path struct {
	Brand string `json:"brand"`
	Model string `json:"model"`
	Size  string `json:"size"`
	Year  string `json:"year"`
}

func (r Record) Path() Path {
	return Path{Brand: r.Brand, Model: r.Model, Size: r.Size, Year: r.Year}
}

// GeometryFields lists the numeric catalogue fields in wire order. Sources
// use it to build queries and to report missing values.
var GeometryFields = []string{
	"virtual_seat_tube",
	"virtual_top_tube",
	"seat_tube",
	"top_tube",
	"head_tube_angle",
	"seat_tube_angle",
	"head_tube_length",
	"chain_stay_length",
	"front_center",
	"wheelbase",
	"bottom_bracket_drop",
	"bracket_height",
	"stack",
	"reach",
	"crank_length",
	"fork_rate",
}

// GeometryPointers returns pointers to the numeric fields in the same order
// as GeometryFields, for scanning rows into a Record.
func (r *Record) GeometryPointers() []*float64 {
	return []*float64{
		&r.VirtualSeatTube,
		&r.VirtualTopTube,
		&r.SeatTube,
		&r.TopTube,
		&r.HeadTubeAngle,
		&r.SeatTubeAngle,
		&r.HeadTubeLength,
		&r.ChainStayLength,
		&r.FrontCenter,
		&r.Wheelbase,
		&r.BottomBracketDrop,
		&r.BracketHeight,
		&r.Stack,
		&r.Reach,
		&r.CrankLength,
		&r.ForkRate,
	}
}
