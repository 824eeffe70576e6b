/*
 * Filename: batch.go
 * Path: modisco
 */

package modisco

// RunInBatches evaluates fn over consecutive chunks of inputs and
// concatenates the outputs in input order. fn must return one output per
// input of its chunk.
func RunInBatches[In, Out any](inputs []In, batchSize int, progressUpdate int,
	fn func([]In) ([]Out, error)) ([]Out, error) {
	outs, err := RunInBatchesMultimodal(inputs, batchSize, progressUpdate,
		func(chunk []In) ([][]Out, error) {
			ans, err := fn(chunk)
			return [][]Out{ans}, err
		})
	if err != nil || len(outs) == 0 {
		return nil, err
	}
	return outs[0], nil
}

// RunInBatchesMultimodal is RunInBatches for functions with several parallel
// output streams, each stream is concatenated separately
func RunInBatchesMultimodal[In, Out any](inputs []In, batchSize int, progressUpdate int,
	fn func([]In) ([][]Out, error)) ([][]Out, error) {
	if batchSize <= 0 {
		batchSize = len(inputs)
	}
	var outs [][]Out
	for start := 0; start < len(inputs); start += batchSize {
		end := start + batchSize
		if end > len(inputs) {
			end = len(inputs)
		}
		if progressUpdate > 0 && (start/batchSize)%progressUpdate == 0 {
			log.Debugf("Batch starting at %s", Percentage(start, len(inputs)))
		}
		modes, err := fn(inputs[start:end])
		if err != nil {
			return nil, err
		}
		if outs == nil {
			outs = make([][]Out, len(modes))
		}
		for k, m := range modes {
			outs[k] = append(outs[k], m...)
		}
	}
	return outs, nil
}
