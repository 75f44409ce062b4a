package frameindex

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"time"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
)

// Snapshot is one fully built, immutable generation of the index: the raw
// records, the selection tree and the normalized frames derived from them.
// All methods are safe for concurrent use.
type Snapshot struct {
	Version  uint64
	LoadedAt time.Time
	Source   string
	Rider    frame.Rider
	Policy   DuplicatePolicy

	records []frame.Record
	tree    *Tree
	frames  []*frame.Frame
	byID    map[string]*frame.Frame
	stats   Stats

	fingerprint string
}

// NewSnapshot runs the tree builder and the normalizer over records. Nothing
// is shared with the caller's slice.
func NewSnapshot(records []frame.Record, rider frame.Rider, policy DuplicatePolicy) (*Snapshot, error) {
	owned := make([]frame.Record, len(records))
	copy(owned, records)

	tree, err := BuildTree(owned, policy)
	if err != nil {
		return nil, err
	}
	frames, stats, err := Normalize(owned, rider)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*frame.Frame, len(frames))
	for _, f := range frames {
		if _, ok := byID[f.ID]; !ok {
			byID[f.ID] = f
		}
	}
	return &Snapshot{
		Rider:       rider,
		Policy:      policy,
		records:     owned,
		tree:        tree,
		frames:      frames,
		byID:        byID,
		stats:       stats,
		fingerprint: fingerprint(owned, rider, policy),
	}, nil
}

// Fingerprint identifies the snapshot's content: two snapshots built from
// the same records, rider and policy share it whatever their Version.
func (s *Snapshot) Fingerprint() string {
	return s.fingerprint
}

func fingerprint(records []frame.Record, rider frame.Rider, policy DuplicatePolicy) string {
	h := sha256.New()
	writeFloat(h, rider.SaddleHeight)
	writeFloat(h, rider.SaddleForeAft)
	writeString(h, policy.String())
	for i := range records {
		r := &records[i]
		for _, key := range []string{r.ID, r.Brand, r.Model, r.Size, r.Year} {
			writeString(h, key)
		}
		for _, v := range r.GeometryPointers() {
			writeFloat(h, *v)
		}
	}
	return hex.EncodeToString(h.Sum(nil)[:12])
}

func writeString(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

func writeFloat(h hash.Hash, v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	h.Write(b[:])
}

func (s *Snapshot) Brands() []string {
	return s.tree.Brands()
}

func (s *Snapshot) Models(brand string) ([]string, error) {
	return s.tree.Models(brand)
}

func (s *Snapshot) Sizes(brand, model string) ([]string, error) {
	return s.tree.Sizes(brand, model)
}

func (s *Snapshot) Years(brand, model, size string) ([]string, error) {
	return s.tree.Years(brand, model, size)
}

func (s *Snapshot) ID(brand, model, size, year string) (string, error) {
	return s.tree.ID(brand, model, size, year)
}

// Frame resolves a full selection path to its normalized frame.
func (s *Snapshot) Frame(p frame.Path) (*frame.Frame, error) {
	id, err := s.tree.ID(p.Brand, p.Model, p.Size, p.Year)
	if err != nil {
		return nil, err
	}
	return s.FrameByID(id)
}

func (s *Snapshot) FrameByID(id string) (*frame.Frame, error) {
	f, ok := s.byID[id]
	if !ok {
		return nil, &NotFoundError{Level: LevelID, Path: []string{id}}
	}
	return f, nil
}

// Frames returns the normalized population in load order.
func (s *Snapshot) Frames() []*frame.Frame {
	out := make([]*frame.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Records returns a copy of the raw records the snapshot was built from.
func (s *Snapshot) Records() []frame.Record {
	out := make([]frame.Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Snapshot) Stats() Stats {
	return s.stats
}

// Len is the population size.
func (s *Snapshot) Len() int {
	return len(s.frames)
}

// Tuples is the number of distinct (brand, model, size, year) paths.
func (s *Snapshot) Tuples() int {
	return s.tree.Len()
}

// Nearest ranks the population against the frame with the given id.
func (s *Snapshot) Nearest(id string, q frame.Query, k int) ([]Match, error) {
	ref, err := s.FrameByID(id)
	if err != nil {
		return nil, err
	}
	return Nearest(s.frames, ref, q, k), nil
}

// NearestTo ranks the population against an arbitrary reference frame.
func (s *Snapshot) NearestTo(ref *frame.Frame, q frame.Query, k int) []Match {
	return Nearest(s.frames, ref, q, k)
}
