/*
 * Filename: export.go
 * Path: modisco
 */

package modisco

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/kshedden/gonpy"
	"github.com/shenwei356/xopen"
)

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// writeNpy writes a float64 array of the given shape in npy format
func writeNpy(w io.Writer, data []float64, shape []int) error {
	bufw := bufio.NewWriter(w)
	npw, err := gonpy.NewWriter(nopCloser{bufw})
	if err != nil {
		return err
	}
	npw.Shape = shape
	if err = npw.WriteFloat64(data); err != nil {
		return err
	}
	return bufw.Flush()
}

// encodeTrack serializes a track as a (len, width) npy array
func encodeTrack(t *Track) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeNpy(&buf, t.Fwd, []int{t.Len(), t.Width}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeTrack reverses encodeTrack
func decodeTrack(name string, blob []byte) (*Track, error) {
	rdr, err := gonpy.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	if len(rdr.Shape) != 2 {
		return nil, fmt.Errorf("%w: track %s stored with shape %v", ErrInvariantViolation, name, rdr.Shape)
	}
	data, err := rdr.GetFloat64()
	if err != nil {
		return nil, err
	}
	return NewTrack(name, data, rdr.Shape[1])
}

// WritePatterns writes the mean of every named track of every pattern to
// dir/pattern_<k>.<track>.npy, and the aligned seqlets to
// dir/pattern_<k>.seqlets.tsv
func WritePatterns(dir string, patterns []*Pattern, names []string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for k, p := range patterns {
		prefix := path.Join(dir, fmt.Sprintf("pattern_%d", k))
		for _, name := range names {
			t := p.Track(name)
			if t == nil {
				return fmt.Errorf("%w: pattern %d has no track %s", ErrConfiguration, k, name)
			}
			if err := writeTrackFile(prefix+"."+name+".npy", t); err != nil {
				return err
			}
		}
		if err := WriteCoordinates(prefix+".seqlets.tsv", p.Seqlets()); err != nil {
			return err
		}
	}
	log.Noticef("%d patterns written to `%s`", len(patterns), dir)
	return nil
}

func writeTrackFile(filename string, t *Track) error {
	fw, err := xopen.Wopen(filename)
	if err != nil {
		return err
	}
	defer fw.Close()
	return writeNpy(fw, t.Fwd, []int{t.Len(), t.Width})
}
