package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Params are the boosting hyperparameters. Defaults follow the LightGBM
// regressor defaults with the pipeline's fixed depth and regularisation.
type Params struct {
	Rounds          int     `yaml:"rounds" json:"rounds" default:"100"`
	LearningRate    float64 `yaml:"learning_rate" json:"learning_rate" default:"0.1"`
	NumLeaves       int     `yaml:"num_leaves" json:"num_leaves" default:"31"`
	MaxDepth        int     `yaml:"max_depth" json:"max_depth" default:"100"`
	MinChildSamples int     `yaml:"min_child_samples" json:"min_child_samples" default:"20"`
	MinChildWeight  float64 `yaml:"min_child_weight" json:"min_child_weight" default:"0.001"`
	RegAlpha        float64 `yaml:"reg_alpha" json:"reg_alpha" default:"0.05"`
	RegLambda       float64 `yaml:"reg_lambda" json:"reg_lambda" default:"0.05"`
}

// DefaultParams returns the pipeline's training configuration.
func DefaultParams() Params {
	return Params{
		Rounds:          100,
		LearningRate:    0.1,
		NumLeaves:       31,
		MaxDepth:        100,
		MinChildSamples: 20,
		MinChildWeight:  1e-3,
		RegAlpha:        0.05,
		RegLambda:       0.05,
	}
}

func (p Params) validate() error {
	switch {
	case p.Rounds <= 0:
		return errors.New("rounds must be positive")
	case p.LearningRate <= 0:
		return errors.New("learning_rate must be positive")
	case p.NumLeaves < 2:
		return errors.New("num_leaves must be at least 2")
	case p.MinChildSamples < 1:
		return errors.New("min_child_samples must be at least 1")
	case p.RegAlpha < 0 || p.RegLambda < 0:
		return errors.New("regularisation must be non-negative")
	}
	return nil
}

// Node is a tree node. Leaves have Feature == -1. Rows with
// x[Feature] <= Threshold go Left; NaN follows DefaultLeft.
type Node struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold,omitempty"`
	DefaultLeft bool    `json:"default_left,omitempty"`
	Left        int     `json:"left,omitempty"`
	Right       int     `json:"right,omitempty"`
	Value       float64 `json:"value,omitempty"`
}

// Tree is a flat regression tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t Tree) predict(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		v := row[n.Feature]
		switch {
		case math.IsNaN(v):
			if n.DefaultLeft {
				i = n.Left
			} else {
				i = n.Right
			}
		case v <= n.Threshold:
			i = n.Left
		default:
			i = n.Right
		}
	}
}

// Booster is an additive ensemble of regression trees fitted on squared loss.
type Booster struct {
	Features  []string `json:"features"`
	InitScore float64  `json:"init_score"`
	Params    Params   `json:"params"`
	Trees     []Tree   `json:"trees"`
}

// Predict scores one row. The row must follow Features order.
func (b *Booster) Predict(row []float64) float64 {
	out := b.InitScore
	for _, t := range b.Trees {
		out += t.predict(row)
	}
	return out
}

// Marshal encodes the booster as JSON.
func (b *Booster) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// LoadBooster decodes a booster produced by Marshal.
func LoadBooster(data []byte) (*Booster, error) {
	var b Booster
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode booster: %w", err)
	}
	for i, t := range b.Trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("decode booster: tree %d is empty", i)
		}
	}
	return &b, nil
}

// Fit trains a booster. Trees grow leaf-wise: the leaf with the largest
// split gain is split next until NumLeaves is reached or no split helps.
// The context is checked between boosting rounds.
func Fit(ctx context.Context, features []string, x [][]float64, y []float64, p Params) (*Booster, error) {
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	n := len(y)
	if n == 0 {
		return nil, errors.New("empty training set")
	}
	if len(x) != n {
		return nil, fmt.Errorf("x has %d rows, y has %d", len(x), n)
	}
	for i, row := range x {
		if len(row) != len(features) {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), len(features))
		}
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("target %d is not finite", i)
		}
	}

	mean := 0.0
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)

	b := &Booster{
		Features:  append([]string(nil), features...),
		InitScore: mean,
		Params:    p,
		Trees:     make([]Tree, 0, p.Rounds),
	}

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = mean
	}
	grad := make([]float64, n)
	g := grower{x: x, grad: grad, p: p}

	for round := 0; round < p.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range grad {
			grad[i] = pred[i] - y[i]
		}
		tree := g.grow()
		b.Trees = append(b.Trees, tree)
		for i, row := range x {
			pred[i] += tree.predict(row)
		}
	}
	return b, nil
}

// grower builds one tree from the current gradients. Squared loss has unit
// hessians, so hessian sums equal sample counts.
type grower struct {
	x    [][]float64
	grad []float64
	p    Params
}

type split struct {
	feature     int
	threshold   float64
	defaultLeft bool
	gain        float64
	left, right []int
}

type leaf struct {
	node  int
	depth int
	rows  []int
	best  *split
}

func (g *grower) grow() Tree {
	rows := make([]int, len(g.grad))
	for i := range rows {
		rows[i] = i
	}
	t := Tree{Nodes: []Node{{Feature: -1}}}
	root := &leaf{node: 0, rows: rows}
	root.best = g.findSplit(root)
	leaves := []*leaf{root}

	for len(leaves) < g.p.NumLeaves {
		pick := -1
		for i, l := range leaves {
			if l.best == nil {
				continue
			}
			if pick < 0 || l.best.gain > leaves[pick].best.gain {
				pick = i
			}
		}
		if pick < 0 {
			break
		}
		l := leaves[pick]
		s := l.best
		left := &leaf{node: len(t.Nodes), depth: l.depth + 1, rows: s.left}
		right := &leaf{node: len(t.Nodes) + 1, depth: l.depth + 1, rows: s.right}
		t.Nodes = append(t.Nodes, Node{Feature: -1}, Node{Feature: -1})
		t.Nodes[l.node] = Node{
			Feature:     s.feature,
			Threshold:   s.threshold,
			DefaultLeft: s.defaultLeft,
			Left:        left.node,
			Right:       right.node,
		}
		left.best = g.findSplit(left)
		right.best = g.findSplit(right)
		leaves[pick] = left
		leaves = append(leaves, right)
	}

	for _, l := range leaves {
		t.Nodes[l.node].Value = g.leafValue(l.rows)
	}
	return t
}

func (g *grower) leafValue(rows []int) float64 {
	sum := 0.0
	for _, r := range rows {
		sum += g.grad[r]
	}
	return -g.p.LearningRate * thresholdL1(sum, g.p.RegAlpha) / (float64(len(rows)) + g.p.RegLambda)
}

func (g *grower) score(sum float64, count int) float64 {
	t := thresholdL1(sum, g.p.RegAlpha)
	return t * t / (float64(count) + g.p.RegLambda)
}

func (g *grower) childOK(count int) bool {
	return count >= g.p.MinChildSamples && float64(count) >= g.p.MinChildWeight
}

func (g *grower) findSplit(l *leaf) *split {
	if g.p.MaxDepth > 0 && l.depth >= g.p.MaxDepth {
		return nil
	}
	if len(l.rows) < 2*g.p.MinChildSamples {
		return nil
	}
	total := 0.0
	for _, r := range l.rows {
		total += g.grad[r]
	}
	parent := g.score(total, len(l.rows))

	var best *split
	present := make([]int, 0, len(l.rows))
	missing := make([]int, 0)
	for f := 0; f < len(g.x[l.rows[0]]); f++ {
		present = present[:0]
		missing = missing[:0]
		missSum := 0.0
		for _, r := range l.rows {
			if math.IsNaN(g.x[r][f]) {
				missing = append(missing, r)
				missSum += g.grad[r]
				continue
			}
			present = append(present, r)
		}
		if len(present) < 2 {
			continue
		}
		sort.Slice(present, func(i, j int) bool {
			a, b := g.x[present[i]][f], g.x[present[j]][f]
			if a != b {
				return a < b
			}
			return present[i] < present[j]
		})

		leftSum := 0.0
		for i := 0; i < len(present)-1; i++ {
			leftSum += g.grad[present[i]]
			lo, hi := g.x[present[i]][f], g.x[present[i+1]][f]
			if lo == hi {
				continue
			}
			nLeft := i + 1
			for _, missLeft := range []bool{false, true} {
				ls, ln := leftSum, nLeft
				if missLeft {
					if len(missing) == 0 {
						continue
					}
					ls += missSum
					ln += len(missing)
				}
				rn := len(l.rows) - ln
				if !g.childOK(ln) || !g.childOK(rn) {
					continue
				}
				gain := g.score(ls, ln) + g.score(total-ls, rn) - parent
				if gain <= 0 || (best != nil && gain <= best.gain) {
					continue
				}
				th := lo + (hi-lo)/2
				if th >= hi {
					th = lo
				}
				best = &split{
					feature:     f,
					threshold:   th,
					defaultLeft: missLeft,
					gain:        gain,
				}
			}
		}

		// present values left, missing right
		if len(missing) > 0 && g.childOK(len(present)) && g.childOK(len(missing)) {
			presentSum := total - missSum
			gain := g.score(presentSum, len(present)) + g.score(missSum, len(missing)) - parent
			if gain > 0 && (best == nil || gain > best.gain) {
				best = &split{
					feature:   f,
					threshold: g.x[present[len(present)-1]][f],
					gain:      gain,
				}
			}
		}
	}
	if best == nil {
		return nil
	}
	for _, r := range l.rows {
		v := g.x[r][best.feature]
		goLeft := v <= best.threshold
		if math.IsNaN(v) {
			goLeft = best.defaultLeft
		}
		if goLeft {
			best.left = append(best.left, r)
		} else {
			best.right = append(best.right, r)
		}
	}
	return best
}

func thresholdL1(s, alpha float64) float64 {
	switch {
	case s > alpha:
		return s - alpha
	case s < -alpha:
		return s + alpha
	}
	return 0
}
