/*
 * Filename: track.go
 * Path: modisco
 */

package modisco

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kshedden/gonpy"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/shenwei356/xopen"
)

// Alphabet is the channel order of one-hot tracks. Reversing the channels
// complements the base.
const Alphabet = "ACGT"

// Track stores the values of one named track over a region, row-major with
// Width values per position. Rev is the reverse complement of Fwd.
type Track struct {
	Name  string
	Width int
	Fwd   []float64
	Rev   []float64
}

// NewTrack makes a track and derives its reverse complement
func NewTrack(name string, fwd []float64, width int) (*Track, error) {
	if width <= 0 || len(fwd)%width != 0 {
		return nil, fmt.Errorf("%w: track %s has %d values, not a multiple of width %d",
			ErrInvariantViolation, name, len(fwd), width)
	}
	return &Track{
		Name:  name,
		Width: width,
		Fwd:   fwd,
		Rev:   reverseComplement(fwd, width),
	}, nil
}

// Len returns the number of positions
func (r *Track) Len() int {
	return len(r.Fwd) / r.Width
}

// Flip swaps the forward and reverse strands
func (r *Track) Flip() *Track {
	return &Track{Name: r.Name, Width: r.Width, Fwd: r.Rev, Rev: r.Fwd}
}

// Slice cuts positions [lo, hi) of the forward strand into a new track
func (r *Track) Slice(lo, hi int) *Track {
	fwd := make([]float64, (hi-lo)*r.Width)
	copy(fwd, r.Fwd[lo*r.Width:hi*r.Width])
	return &Track{
		Name:  r.Name,
		Width: r.Width,
		Fwd:   fwd,
		Rev:   reverseComplement(fwd, r.Width),
	}
}

// reverseComplement reverses the positions and the channel order
func reverseComplement(a []float64, width int) []float64 {
	n := len(a) / width
	rc := make([]float64, len(a))
	for i := 0; i < n; i++ {
		for k := 0; k < width; k++ {
			rc[(n-1-i)*width+(width-1-k)] = a[i*width+k]
		}
	}
	return rc
}

// TrackSet holds the full length tracks of every example, the source that
// seqlets are cut from (and re-cut from when they are expanded)
type TrackSet struct {
	names    []string
	tracks   map[string][]*Track
	nExample int
}

// NewTrackSet makes an empty TrackSet
func NewTrackSet() *TrackSet {
	return &TrackSet{tracks: map[string][]*Track{}}
}

// AddTrack registers a track given as one Track per example
func (r *TrackSet) AddTrack(name string, perExample []*Track) error {
	if _, ok := r.tracks[name]; ok {
		return fmt.Errorf("%w: track %s added twice", ErrConfiguration, name)
	}
	if len(r.names) > 0 && len(perExample) != r.nExample {
		return fmt.Errorf("%w: track %s has %d examples, expected %d",
			ErrConfiguration, name, len(perExample), r.nExample)
	}
	if len(r.names) > 0 {
		ref := r.tracks[r.names[0]]
		for i, t := range perExample {
			if t.Len() != ref[i].Len() {
				return fmt.Errorf("%w: example %d of track %s has length %d, expected %d",
					ErrConfiguration, i, name, t.Len(), ref[i].Len())
			}
		}
	}
	r.nExample = len(perExample)
	r.names = append(r.names, name)
	r.tracks[name] = perExample
	return nil
}

// HasTrack tells if a track is registered
func (r *TrackSet) HasTrack(name string) bool {
	_, ok := r.tracks[name]
	return ok
}

// TrackNames returns the track names in registration order
func (r *TrackSet) TrackNames() []string {
	return append([]string(nil), r.names...)
}

// NumExamples returns the number of examples
func (r *TrackSet) NumExamples() int {
	return r.nExample
}

// ExampleLen returns the length of an example
func (r *TrackSet) ExampleLen(idx int) int {
	if len(r.names) == 0 || idx < 0 || idx >= r.nExample {
		return 0
	}
	return r.tracks[r.names[0]][idx].Len()
}

// CreateSeqlet cuts all tracks at the coordinate. The returned seqlet is
// oriented according to c.RevComp.
func (r *TrackSet) CreateSeqlet(c Coordinate) (*Seqlet, error) {
	if c.ExampleIdx < 0 || c.ExampleIdx >= r.nExample {
		return nil, fmt.Errorf("%w: example %d out of range [0, %d)",
			ErrConfiguration, c.ExampleIdx, r.nExample)
	}
	L := r.ExampleLen(c.ExampleIdx)
	if c.Start < 0 || c.End > L || c.Start >= c.End {
		return nil, fmt.Errorf("%w: seqlet %s outside example of length %d",
			ErrConfiguration, c, L)
	}
	tracks := make(map[string]*Track, len(r.names))
	for _, name := range r.names {
		t := r.tracks[name][c.ExampleIdx].Slice(c.Start, c.End)
		if c.RevComp {
			t = t.Flip()
		}
		tracks[name] = t
	}
	return &Seqlet{Coordinate: c, tracks: tracks}, nil
}

// CreateSeqlets cuts a list of coordinates
func (r *TrackSet) CreateSeqlets(coords []Coordinate) ([]*Seqlet, error) {
	seqlets := make([]*Seqlet, 0, len(coords))
	for _, c := range coords {
		s, err := r.CreateSeqlet(c)
		if err != nil {
			return nil, err
		}
		seqlets = append(seqlets, s)
	}
	return seqlets, nil
}

// LoadNpyTrack reads a track from a .npy file (optionally gzipped) of shape
// (examples, length) or (examples, length, width)
func LoadNpyTrack(name, filename string) ([]*Track, error) {
	fh, err := xopen.Ropen(filename)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	log.Noticef("Parse npy file `%s` as track `%s`", filename, name)

	rdr, err := gonpy.NewReader(fh)
	if err != nil {
		return nil, err
	}
	var data []float64
	switch rdr.Dtype {
	case "f8":
		data, err = rdr.GetFloat64()
	case "f4":
		var data32 []float32
		data32, err = rdr.GetFloat32()
		data = make([]float64, len(data32))
		for i, x := range data32 {
			data[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported dtype %s in %s", ErrConfiguration, rdr.Dtype, filename)
	}
	if err != nil {
		return nil, err
	}
	if rdr.ColumnMajor {
		return nil, fmt.Errorf("%w: %s is stored in Fortran order", ErrConfiguration, filename)
	}

	shape := rdr.Shape
	width := 1
	switch len(shape) {
	case 2:
	case 3:
		width = shape[2]
	default:
		return nil, fmt.Errorf("%w: %s has shape %v, expected 2 or 3 dimensions",
			ErrConfiguration, filename, shape)
	}
	n, L := shape[0], shape[1]
	step := L * width
	tracks := make([]*Track, n)
	for i := 0; i < n; i++ {
		fwd := make([]float64, step)
		copy(fwd, data[i*step:(i+1)*step])
		if tracks[i], err = NewTrack(name, fwd, width); err != nil {
			return nil, err
		}
	}
	return tracks, nil
}

// OnehotFromFasta encodes every record of a FASTA file as a one-hot track,
// ambiguous bases get all-zero rows
func OnehotFromFasta(name, filename string) ([]*Track, error) {
	reader, err := fastx.NewDefaultReader(filename)
	if err != nil {
		return nil, err
	}
	seq.ValidateSeq = false
	log.Noticef("Parse fasta file `%s` as track `%s`", filename, name)

	var tracks []*Track
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		t, err := NewTrack(name, Onehot(rec.Seq.Seq), len(Alphabet))
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// Onehot encodes a DNA sequence in the Alphabet channel order
func Onehot(s []byte) []float64 {
	w := len(Alphabet)
	enc := make([]float64, len(s)*w)
	for i, b := range s {
		k := strings.IndexByte(Alphabet, upper(b))
		if k >= 0 {
			enc[i*w+k] = 1
		}
	}
	return enc
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}

// sortedTrackNames returns the keys of a track map in sorted order
func sortedTrackNames(tracks map[string]*Track) []string {
	names := make([]string, 0, len(tracks))
	for name := range tracks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
