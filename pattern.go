/*
 * Filename: pattern.go
 * Path: modisco
 */

package modisco

// AlignedSeqlet is a seqlet, already oriented to the pattern, starting at
// position Offset of the pattern
type AlignedSeqlet struct {
	Seqlet *Seqlet
	Offset int
}

// End is the pattern position right after the seqlet
func (r AlignedSeqlet) End() int {
	return r.Offset + r.Seqlet.Len()
}

// Pattern is an aggregate of aligned seqlets. Track values are the mean over
// the seqlets covering each position. Operations return new patterns.
type Pattern struct {
	aligned []AlignedSeqlet
	keys    map[string]bool
	length  int
	names   []string
	widths  map[string]int
	sums    map[string][]float64
	support []int
}

// NewPattern seeds a pattern with one seqlet
func NewPattern(seed *Seqlet) *Pattern {
	p := &Pattern{
		keys:    map[string]bool{},
		length:  seed.Len(),
		names:   seed.TrackNames(),
		widths:  map[string]int{},
		sums:    map[string][]float64{},
		support: make([]int, seed.Len()),
	}
	for _, name := range p.names {
		t := seed.Track(name)
		p.widths[name] = t.Width
		p.sums[name] = make([]float64, p.length*t.Width)
	}
	p.add(AlignedSeqlet{Seqlet: seed, Offset: 0})
	return p
}

// FromAligned builds a pattern from seqlets already placed in a common
// frame. Offsets are shifted so that the leftmost seqlet starts at zero.
func FromAligned(aligned []AlignedSeqlet) *Pattern {
	if len(aligned) == 0 {
		return nil
	}
	lo := aligned[0].Offset
	for _, a := range aligned {
		if a.Offset < lo {
			lo = a.Offset
		}
	}
	first := aligned[0]
	p := NewPattern(first.Seqlet)
	p.extend(first.Offset-lo, 0)
	for _, a := range aligned[1:] {
		p.place(AlignedSeqlet{Seqlet: a.Seqlet, Offset: a.Offset - lo})
	}
	return p
}

// Len returns the pattern length
func (r *Pattern) Len() int {
	return r.length
}

// NumSeqlets returns the number of distinct seqlets
func (r *Pattern) NumSeqlets() int {
	return len(r.aligned)
}

// Seqlets returns the oriented seqlets
func (r *Pattern) Seqlets() []*Seqlet {
	ans := make([]*Seqlet, len(r.aligned))
	for i, a := range r.aligned {
		ans[i] = a.Seqlet
	}
	return ans
}

// Aligned returns the seqlets with their offsets
func (r *Pattern) Aligned() []AlignedSeqlet {
	return append([]AlignedSeqlet(nil), r.aligned...)
}

// Support returns the number of seqlets covering each position
func (r *Pattern) Support() []int {
	return append([]int(nil), r.support...)
}

// TrackNames lists the aggregated tracks
func (r *Pattern) TrackNames() []string {
	return append([]string(nil), r.names...)
}

// Contains tells if the region of s is already in the pattern
func (r *Pattern) Contains(s *Seqlet) bool {
	return r.keys[s.String()]
}

// Sum returns the summed values of a track, nil when absent
func (r *Pattern) Sum(name string) *Track {
	sums, ok := r.sums[name]
	if !ok {
		return nil
	}
	t, _ := NewTrack(name, append([]float64(nil), sums...), r.widths[name])
	return t
}

// Track returns the per-position mean of a track, nil when absent
func (r *Pattern) Track(name string) *Track {
	sums, ok := r.sums[name]
	if !ok {
		return nil
	}
	w := r.widths[name]
	mean := make([]float64, len(sums))
	for p, n := range r.support {
		if n == 0 {
			continue
		}
		for c := 0; c < w; c++ {
			mean[p*w+c] = sums[p*w+c] / float64(n)
		}
	}
	t, _ := NewTrack(name, mean, w)
	return t
}

// extend grows the frame by left and right positions
func (r *Pattern) extend(left, right int) {
	if left <= 0 && right <= 0 {
		return
	}
	if left < 0 {
		left = 0
	}
	if right < 0 {
		right = 0
	}
	for i := range r.aligned {
		r.aligned[i].Offset += left
	}
	for _, name := range r.names {
		w := r.widths[name]
		sums := make([]float64, (r.length+left+right)*w)
		copy(sums[left*w:], r.sums[name])
		r.sums[name] = sums
	}
	support := make([]int, r.length+left+right)
	copy(support[left:], r.support)
	r.support = support
	r.length += left + right
}

// place adds a seqlet at an offset of the current frame, growing the frame
// as needed. It returns false for a region already in the pattern.
func (r *Pattern) place(a AlignedSeqlet) bool {
	if r.keys[a.Seqlet.String()] {
		return false
	}
	left := -a.Offset
	right := a.End() - r.length
	r.extend(left, right)
	if left > 0 {
		a.Offset = 0
	}
	r.add(a)
	return true
}

// add accumulates a seqlet that fits the frame
func (r *Pattern) add(a AlignedSeqlet) {
	s := a.Seqlet
	r.keys[s.String()] = true
	r.aligned = append(r.aligned, a)
	for _, name := range r.names {
		t := s.Track(name)
		if t == nil {
			continue
		}
		w := r.widths[name]
		sums := r.sums[name]
		for p := 0; p < s.Len(); p++ {
			for c := 0; c < w; c++ {
				sums[(a.Offset+p)*w+c] += t.Fwd[p*w+c]
			}
		}
	}
	for p := a.Offset; p < a.End(); p++ {
		r.support[p]++
	}
}

// Add places s into the pattern according to its alignment against the
// pattern. Regions already present are skipped.
func (r *Pattern) Add(s *Seqlet, al Alignment) bool {
	if al.RevComp {
		s = s.RevComp()
	}
	return r.place(AlignedSeqlet{Seqlet: s, Offset: al.Offset})
}

// RevComp returns the pattern on the opposite strand
func (r *Pattern) RevComp() *Pattern {
	aligned := make([]AlignedSeqlet, len(r.aligned))
	for i, a := range r.aligned {
		aligned[i] = AlignedSeqlet{
			Seqlet: a.Seqlet.RevComp(),
			Offset: r.length - a.End(),
		}
	}
	return r.withFrame(aligned, r.length)
}

// Merge folds q into a copy of the pattern, al placing q relative to r
func (r *Pattern) Merge(q *Pattern, al Alignment) *Pattern {
	if al.RevComp {
		q = q.RevComp()
	}
	p := r.clone()
	for _, a := range q.aligned {
		// offsets move whenever the frame grows on the left
		shift := p.aligned[0].Offset - r.aligned[0].Offset
		p.place(AlignedSeqlet{Seqlet: a.Seqlet, Offset: a.Offset + al.Offset + shift})
	}
	return p
}

// Trim keeps pattern positions [lo, hi). Seqlets are cut to the window and
// those outside it are dropped. Returns nil when nothing is left.
func (r *Pattern) Trim(lo, hi int) *Pattern {
	var aligned []AlignedSeqlet
	for _, a := range r.aligned {
		from, to := lo-a.Offset, hi-a.Offset
		if from < 0 {
			from = 0
		}
		if to > a.Seqlet.Len() {
			to = a.Seqlet.Len()
		}
		if from >= to {
			continue
		}
		offset := a.Offset - lo
		if offset < 0 {
			offset = 0
		}
		aligned = append(aligned, AlignedSeqlet{Seqlet: a.Seqlet.Trim(from, to), Offset: offset})
	}
	return r.withFrame(aligned, hi-lo)
}

// withFrame builds a pattern of the given length from seqlets whose offsets
// are already in that frame
func (r *Pattern) withFrame(aligned []AlignedSeqlet, length int) *Pattern {
	if len(aligned) == 0 {
		return nil
	}
	p := FromAligned(aligned)
	lo := aligned[0].Offset - p.aligned[0].Offset
	p.extend(lo, length-lo-p.length)
	return p
}

func (r *Pattern) clone() *Pattern {
	p := &Pattern{
		aligned: append([]AlignedSeqlet(nil), r.aligned...),
		keys:    make(map[string]bool, len(r.keys)),
		length:  r.length,
		names:   r.names,
		widths:  r.widths,
		sums:    make(map[string][]float64, len(r.sums)),
		support: append([]int(nil), r.support...),
	}
	for k := range r.keys {
		p.keys[k] = true
	}
	for name, sums := range r.sums {
		p.sums[name] = append([]float64(nil), sums...)
	}
	return p
}
