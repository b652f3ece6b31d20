// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSolveLS(t *testing.T) {
	G := mat.NewDense(4, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		1, 0, 0,
	})
	dr := mat.NewVecDense(4, []float64{1, 2, 3, 3})

	dx, cov, err := SolveLS(G, dr, nil)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, dx.AtVec(0), 1e-12)
	assert.InDelta(t, 2.0, dx.AtVec(1), 1e-12)
	assert.InDelta(t, 3.0, dx.AtVec(2), 1e-12)
	assert.InDelta(t, 0.5, cov.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, cov.At(1, 1), 1e-12)
	assert.InDelta(t, 0.0, cov.At(0, 1), 1e-12)

	// The first row counts three times
	dx, cov, err = SolveLS(G, dr, []float64{3, 1, 1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, dx.AtVec(0), 1e-12)
	assert.InDelta(t, 0.25, cov.At(0, 0), 1e-12)
}

func TestSolveLSErrors(t *testing.T) {
	G := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		2, 0, 0,
		0, 1, 0,
	})
	_, _, err := SolveLS(G, mat.NewVecDense(3, nil), nil)
	assert.Error(t, err, "no z information")

	_, _, err = SolveLS(G, mat.NewVecDense(2, nil), nil)
	assert.Error(t, err)

	_, _, err = SolveLS(G, mat.NewVecDense(3, nil), []float64{1})
	assert.Error(t, err)
}

func TestMatrixRank(t *testing.T) {
	line := mat.NewDense(3, 3, []float64{
		1, 1, 0,
		2, 2, 0,
		-3, -3, 0,
	})
	assert.Equal(t, 1, matrixRank(line, 1e-9))

	plane := mat.NewDense(3, 3, []float64{
		500, 0, 0,
		0, 500, 0,
		500, 500, 0,
	})
	assert.Equal(t, 2, matrixRank(plane, 1e-9))
	assert.Equal(t, 3, matrixRank(mat.NewDiagDense(3, []float64{1, 2, 3}), 1e-9))
}
