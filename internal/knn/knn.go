// Package knn implements the K-nearest-neighbour classifier shared by the
// gesture and sentence paths. All scratch space is allocated when the
// classifier is built; Classify itself never allocates.
package knn

import (
	"errors"
	"fmt"
	"math"
)

// Unknown is the label reported when no class can be assigned.
const Unknown = -1

var (
	// ErrInvalidTrainingSet is wrapped by NewTrainingSet for every rejected set.
	ErrInvalidTrainingSet = errors.New("knn: invalid training set")
	// ErrDimension is returned when a query does not match the training dimension.
	ErrDimension = errors.New("knn: query dimension mismatch")
)

// TrainingSet is an immutable collection of N labelled vectors of dimension D,
// stored row-major.
type TrainingSet struct {
	data    []float64
	labels  []int
	n, d    int
	classes int
	k       int
}

// NewTrainingSet validates and wraps the given rows. data must hold
// len(labels)*dim values; every label must be below classes; k must be in [1, N].
// The slices are owned by the training set afterwards.
func NewTrainingSet(data []float64, labels []int, dim, classes, k int) (*TrainingSet, error) {
	n := len(labels)
	switch {
	case n == 0:
		return nil, fmt.Errorf("%w: no samples", ErrInvalidTrainingSet)
	case dim <= 0:
		return nil, fmt.Errorf("%w: dimension %d", ErrInvalidTrainingSet, dim)
	case len(data) != n*dim:
		return nil, fmt.Errorf("%w: %d values for %d samples of dimension %d", ErrInvalidTrainingSet, len(data), n, dim)
	case classes <= 0:
		return nil, fmt.Errorf("%w: %d classes", ErrInvalidTrainingSet, classes)
	case k < 1 || k > n:
		return nil, fmt.Errorf("%w: k=%d with %d samples", ErrInvalidTrainingSet, k, n)
	}
	for i, l := range labels {
		if l < 0 || l >= classes {
			return nil, fmt.Errorf("%w: sample %d has label %d (classes=%d)", ErrInvalidTrainingSet, i, l, classes)
		}
	}
	return &TrainingSet{
		data:    data,
		labels:  labels,
		n:       n,
		d:       dim,
		classes: classes,
		k:       k,
	}, nil
}

func (ts *TrainingSet) Len() int     { return ts.n }
func (ts *TrainingSet) Dim() int     { return ts.d }
func (ts *TrainingSet) Classes() int { return ts.classes }
func (ts *TrainingSet) K() int       { return ts.k }

// Row returns a read-only view of sample i.
func (ts *TrainingSet) Row(i int) []float64 {
	return ts.data[i*ts.d : (i+1)*ts.d]
}

// Label returns the class index of sample i.
func (ts *TrainingSet) Label(i int) int {
	return ts.labels[i]
}

// Result is the outcome of one classification.
type Result struct {
	Label        int
	MeanDistance float64
}

// Classifier runs KNN queries against one training set. It is not safe for
// concurrent use: the scratch arrays are shared between calls.
type Classifier struct {
	ts *TrainingSet

	nearestDist   []float64
	nearestLabels []int
	votes         []int
}

// NewClassifier allocates the K-sized scratch arrays and vote counters.
func NewClassifier(ts *TrainingSet) *Classifier {
	return &Classifier{
		ts:            ts,
		nearestDist:   make([]float64, ts.k),
		nearestLabels: make([]int, ts.k),
		votes:         make([]int, ts.classes),
	}
}

// TrainingSet returns the set this classifier queries.
func (c *Classifier) TrainingSet() *TrainingSet {
	return c.ts
}

// Classify returns the majority label among the K nearest training samples
// and the mean of their K distances.
func (c *Classifier) Classify(query []float64) (Result, error) {
	ts := c.ts
	if len(query) != ts.d {
		return Result{Label: Unknown}, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(query), ts.d)
	}

	k := ts.k
	for i := 0; i < k; i++ {
		c.nearestDist[i] = math.Inf(1)
		c.nearestLabels[i] = Unknown
	}

	for i := 0; i < ts.n; i++ {
		row := ts.data[i*ts.d : (i+1)*ts.d]
		var sum float64
		for d, v := range row {
			diff := query[d] - v
			sum += diff * diff
		}
		dist := math.Sqrt(sum)

		// Strict comparisons keep the earlier sample on equal distance.
		if !(dist < c.nearestDist[k-1]) {
			continue
		}
		pos := k - 1
		for pos > 0 && dist < c.nearestDist[pos-1] {
			pos--
		}
		for j := k - 1; j > pos; j-- {
			c.nearestDist[j] = c.nearestDist[j-1]
			c.nearestLabels[j] = c.nearestLabels[j-1]
		}
		c.nearestDist[pos] = dist
		c.nearestLabels[pos] = ts.labels[i]
	}

	for i := range c.votes {
		c.votes[i] = 0
	}
	var sum float64
	for i := 0; i < k; i++ {
		if l := c.nearestLabels[i]; l != Unknown {
			c.votes[l]++
		}
		sum += c.nearestDist[i]
	}

	best, maxVotes := Unknown, 0
	for label, v := range c.votes {
		if v > maxVotes {
			best, maxVotes = label, v
		}
	}

	return Result{Label: best, MeanDistance: sum / float64(k)}, nil
}

// Nearest returns the distances and labels retained by the last Classify call,
// sorted by ascending distance. The slices alias internal scratch space and
// are overwritten by the next call.
func (c *Classifier) Nearest() ([]float64, []int) {
	return c.nearestDist, c.nearestLabels
}
