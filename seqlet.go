/*
 * Filename: seqlet.go
 * Path: modisco
 */

package modisco

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shenwei356/xopen"
)

// Coordinate locates a seqlet on one example
type Coordinate struct {
	ExampleIdx int
	Start      int
	End        int
	RevComp    bool
}

// String gives the strand-less key used for deduplication
func (r Coordinate) String() string {
	return fmt.Sprintf("%d:%d-%d", r.ExampleIdx, r.Start, r.End)
}

// Seqlet is a short region with its tracks already oriented to the strand in
// Coordinate. Seqlets are never modified, trimming or expanding makes a new one.
type Seqlet struct {
	Coordinate
	tracks map[string]*Track
}

// NewSeqlet builds a seqlet from tracks that have already been cut out
func NewSeqlet(c Coordinate, tracks map[string]*Track) (*Seqlet, error) {
	for name, t := range tracks {
		if t.Len() != c.End-c.Start {
			return nil, fmt.Errorf("%w: track %s spans %d positions on seqlet %s",
				ErrInvariantViolation, name, t.Len(), c)
		}
	}
	return &Seqlet{Coordinate: c, tracks: tracks}, nil
}

// Len returns the seqlet length
func (r *Seqlet) Len() int {
	return r.End - r.Start
}

// Track returns the named track, nil when absent
func (r *Seqlet) Track(name string) *Track {
	return r.tracks[name]
}

// TrackNames lists the tracks carried by the seqlet
func (r *Seqlet) TrackNames() []string {
	return sortedTrackNames(r.tracks)
}

// RevComp returns the same region on the opposite strand
func (r *Seqlet) RevComp() *Seqlet {
	tracks := make(map[string]*Track, len(r.tracks))
	for name, t := range r.tracks {
		tracks[name] = t.Flip()
	}
	c := r.Coordinate
	c.RevComp = !c.RevComp
	return &Seqlet{Coordinate: c, tracks: tracks}
}

// Trim keeps positions [lo, hi) in the seqlet's own orientation
func (r *Seqlet) Trim(lo, hi int) *Seqlet {
	L := r.Len()
	c := r.Coordinate
	if c.RevComp {
		c.Start, c.End = r.Start+L-hi, r.Start+L-lo
	} else {
		c.Start, c.End = r.Start+lo, r.Start+hi
	}
	tracks := make(map[string]*Track, len(r.tracks))
	for name, t := range r.tracks {
		tracks[name] = t.Slice(lo, hi)
	}
	return &Seqlet{Coordinate: c, tracks: tracks}
}

// Expand grows the seqlet by left and right positions in its own orientation,
// re-cutting the tracks from ts. Negative amounts trim.
func (r *Seqlet) Expand(ts *TrackSet, left, right int) (*Seqlet, error) {
	c := r.Coordinate
	if c.RevComp {
		c.Start, c.End = c.Start-right, c.End+left
	} else {
		c.Start, c.End = c.Start-left, c.End+right
	}
	return ts.CreateSeqlet(c)
}

// TotalAbs is the summed absolute value over the named tracks, the default
// priority when seqlets are ranked
func (r *Seqlet) TotalAbs(names []string) float64 {
	total := 0.0
	for _, name := range names {
		if t := r.tracks[name]; t != nil {
			total += sumAbs(t.Fwd)
		}
	}
	return total
}

// SortSeqlets orders seqlets by descending total absolute signal over the
// named tracks, ties by coordinate
func SortSeqlets(seqlets []*Seqlet, names []string) {
	scores := make(map[*Seqlet]float64, len(seqlets))
	for _, s := range seqlets {
		scores[s] = s.TotalAbs(names)
	}
	sort.SliceStable(seqlets, func(i, j int) bool {
		a, b := seqlets[i], seqlets[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return coordLess(a.Coordinate, b.Coordinate)
	})
}

func coordLess(a, b Coordinate) bool {
	if a.ExampleIdx != b.ExampleIdx {
		return a.ExampleIdx < b.ExampleIdx
	}
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}

// DedupSeqlets drops repeated regions, keeping the first occurrence
func DedupSeqlets(seqlets []*Seqlet) []*Seqlet {
	seen := map[string]bool{}
	var ans []*Seqlet
	for _, s := range seqlets {
		key := s.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		ans = append(ans, s)
	}
	return ans
}

// ReadCoordinates parses a tab separated seqlet file with columns
// example, start, end and an optional strand (+ or -). Lines starting
// with # are skipped.
func ReadCoordinates(filename string) ([]Coordinate, error) {
	fh, err := xopen.Ropen(filename)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	log.Noticef("Parse seqlet file `%s`", filename)

	var coords []Coordinate
	scanner := bufio.NewScanner(fh)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		row := strings.TrimSpace(scanner.Text())
		if row == "" || row[0] == '#' {
			continue
		}
		words := strings.Fields(row)
		if len(words) < 3 {
			return nil, fmt.Errorf("%w: %s line %d has %d columns",
				ErrConfiguration, filename, lineNo, len(words))
		}
		var vals [3]int
		for i := 0; i < 3; i++ {
			if vals[i], err = strconv.Atoi(words[i]); err != nil {
				return nil, fmt.Errorf("%w: %s line %d: %v", ErrConfiguration, filename, lineNo, err)
			}
		}
		c := Coordinate{ExampleIdx: vals[0], Start: vals[1], End: vals[2]}
		if len(words) > 3 {
			c.RevComp = words[3] == "-"
		}
		coords = append(coords, c)
	}
	return coords, scanner.Err()
}

// WriteCoordinates writes seqlet coordinates in the format of ReadCoordinates
func WriteCoordinates(filename string, seqlets []*Seqlet) error {
	fw, err := xopen.Wopen(filename)
	if err != nil {
		return err
	}
	defer fw.Close()
	for _, s := range seqlets {
		strand := "+"
		if s.Coordinate.RevComp {
			strand = "-"
		}
		fmt.Fprintf(fw, "%d\t%d\t%d\t%s\n", s.ExampleIdx, s.Start, s.End, strand)
	}
	return nil
}
