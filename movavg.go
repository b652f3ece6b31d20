// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Default window of the keyed moving averages
const MOVING_AVERAGE_WINDOW = 5

// MovingAverage keeps an independent bounded window per key.
// Keys never share samples.
type MovingAverage struct {
	size    int
	windows map[string][]float64
}

func NewMovingAverage(size int) (*MovingAverage, error) {
	if size < 1 {
		return nil, errors.Wrapf(ErrConfiguration, "moving average window must be >= 1, got %d", size)
	}
	return &MovingAverage{
		size:    size,
		windows: map[string][]float64{},
	}, nil
}

// Filter appends v to the window of key and returns the window mean.
// The oldest sample is evicted once the window is full.
func (m *MovingAverage) Filter(key string, v float64) float64 {
	w, ok := m.windows[key]
	if !ok {
		w = make([]float64, 0, m.size)
	}
	if len(w) == m.size {
		copy(w, w[1:])
		w = w[:m.size-1]
	}
	w = append(w, v)
	m.windows[key] = w
	return stat.Mean(w, nil)
}

// Len returns the number of samples held for key
func (m *MovingAverage) Len(key string) int {
	return len(m.windows[key])
}

// Reset forgets the history of key
func (m *MovingAverage) Reset(key string) {
	delete(m.windows, key)
}

func (m *MovingAverage) Size() int {
	return m.size
}
