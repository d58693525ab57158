package ml

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
)

// Node is a single split in an isolation tree. Leaves carry the sample
// count that reached them; internal nodes carry the split.
type Node struct {
	Attr  int     `json:"attr"`
	Value float64 `json:"value"`
	Left  *Node   `json:"left,omitempty"`
	Right *Node   `json:"right,omitempty"`
	Size  int     `json:"size,omitempty"`
}

// Forest is a trained isolation forest together with the
// standardization statistics captured at training time.
type Forest struct {
	Version    string    `json:"version"`
	Features   int       `json:"features"`
	SampleSize int       `json:"sample_size"`
	Trees      []*Node   `json:"trees"`
	Means      []float64 `json:"means"`
	Stds       []float64 `json:"stds"`
}

// TrainOptions control forest construction.
type TrainOptions struct {
	Trees      int
	SampleSize int
	Seed       int64
	Version    string
}

func (o TrainOptions) withDefaults() TrainOptions {
	if o.Trees <= 0 {
		o.Trees = 100
	}
	if o.SampleSize <= 0 {
		o.SampleSize = 256
	}
	if o.Version == "" {
		o.Version = "1"
	}
	return o
}

// Train fits an isolation forest on the given rows. Rows are
// standardized with per-column mean and deviation before splitting; the
// statistics are stored on the model so scoring applies the same
// transform.
func Train(rows [][]float64, opts TrainOptions) (*Forest, error) {
	opts = opts.withDefaults()
	if len(rows) == 0 {
		return nil, fmt.Errorf("train: no rows")
	}
	width := len(rows[0])
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("train: row %d has %d features, want %d", i, len(r), width)
		}
	}

	means, stds := columnStats(rows, width)
	scaled := make([][]float64, len(rows))
	for i, r := range rows {
		scaled[i] = standardize(r, means, stds)
	}

	sampleSize := opts.SampleSize
	if sampleSize > len(scaled) {
		sampleSize = len(scaled)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sampleSize))))

	rng := rand.New(rand.NewSource(opts.Seed))
	trees := make([]*Node, opts.Trees)
	for i := range trees {
		sample := subsample(scaled, sampleSize, rng)
		trees[i] = buildTree(sample, 0, maxDepth, rng)
	}

	return &Forest{
		Version:    opts.Version,
		Features:   width,
		SampleSize: sampleSize,
		Trees:      trees,
		Means:      means,
		Stds:       stds,
	}, nil
}

// Score returns the anomaly score for one raw (unstandardized) row in
// [0,1], where higher means more isolated.
func (f *Forest) Score(row []float64) (float64, error) {
	if len(row) != f.Features {
		return 0, fmt.Errorf("score: got %d features, want %d", len(row), f.Features)
	}
	x := standardize(row, f.Means, f.Stds)

	var total float64
	for _, tree := range f.Trees {
		total += pathLength(tree, x, 0)
	}
	avg := total / float64(len(f.Trees))

	// s = 2^(-E[h(x)] / c(n)), the standard isolation forest score
	score := math.Pow(2, -avg/avgPathLength(f.SampleSize))
	return clamp01(score), nil
}

// Save writes the model as JSON.
func (f *Forest) Save(path string) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// LoadForest reads a JSON model and validates its shape.
func LoadForest(path string) (*Forest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	if len(f.Trees) == 0 || f.SampleSize <= 0 {
		return nil, fmt.Errorf("load model: empty forest")
	}
	if len(f.Means) != f.Features || len(f.Stds) != f.Features {
		return nil, fmt.Errorf("load model: statistics width %d does not match feature width %d", len(f.Means), f.Features)
	}
	return &f, nil
}

func buildTree(sample [][]float64, depth, maxDepth int, rng *rand.Rand) *Node {
	if len(sample) <= 1 || depth >= maxDepth {
		return &Node{Size: len(sample)}
	}

	attr := rng.Intn(len(sample[0]))
	lo, hi := sample[0][attr], sample[0][attr]
	for _, r := range sample[1:] {
		if r[attr] < lo {
			lo = r[attr]
		}
		if r[attr] > hi {
			hi = r[attr]
		}
	}
	if lo == hi {
		return &Node{Size: len(sample)}
	}

	split := lo + rng.Float64()*(hi-lo)
	var left, right [][]float64
	for _, r := range sample {
		if r[attr] < split {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	return &Node{
		Attr:  attr,
		Value: split,
		Left:  buildTree(left, depth+1, maxDepth, rng),
		Right: buildTree(right, depth+1, maxDepth, rng),
	}
}

func pathLength(n *Node, x []float64, depth float64) float64 {
	if n.Left == nil && n.Right == nil {
		return depth + avgPathLength(n.Size)
	}
	if x[n.Attr] < n.Value {
		return pathLength(n.Left, x, depth+1)
	}
	return pathLength(n.Right, x, depth+1)
}

// avgPathLength is c(n), the expected path length of an unsuccessful
// BST search over n points.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	nf := float64(n)
	return 2*(math.Log(nf-1)+0.5772156649) - 2*(nf-1)/nf
}

func columnStats(rows [][]float64, width int) (means, stds []float64) {
	means = make([]float64, width)
	stds = make([]float64, width)
	n := float64(len(rows))

	for _, r := range rows {
		for j, v := range r {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, r := range rows {
		for j, v := range r {
			d := v - means[j]
			stds[j] += d * d
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
	}
	return means, stds
}

func standardize(row, means, stds []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if stds[j] > 0 {
			out[j] = (v - means[j]) / stds[j]
		} else {
			out[j] = 0
		}
	}
	return out
}

func subsample(rows [][]float64, size int, rng *rand.Rand) [][]float64 {
	if size >= len(rows) {
		return rows
	}
	idx := rng.Perm(len(rows))[:size]
	out := make([][]float64, size)
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
