// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.15
//

package gouwb

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Solve the linearized range equations using weighted least squares
//   - dx = (G^t W G)^-1 G^t W dr
//   - Return (G^t W G)^-1 as cov
//   - w is the diagonal of W. nil means unit weights
//
// G^t W G is factorized with Cholesky, so a rank deficient geometry fails here.
func SolveLS(G *mat.Dense, dr *mat.VecDense, w []float64) (dx *mat.VecDense, cov *mat.SymDense, err error) {

	n, m := G.Dims()
	if dr.Len() != n {
		return nil, nil, fmt.Errorf("invalid matrix size. G(%d x %d), dr(%d x 1)", n, m, dr.Len())
	}
	if w != nil && len(w) != n {
		return nil, nil, fmt.Errorf("invalid weight size. G(%d x %d), w(%d)", n, m, len(w))
	}

	// Weighted rows (W G, W dr)
	WG := mat.DenseCopyOf(G)
	Wdr := mat.VecDenseCopyOf(dr)
	if w != nil {
		for i := 0; i < n; i++ {
			row := WG.RawRowView(i)
			for j := range row {
				row[j] *= w[i]
			}
			Wdr.SetVec(i, w[i]*dr.AtVec(i))
		}
	}

	// A (G^t W G), symmetric
	var GtWG mat.Dense
	GtWG.Mul(G.T(), WG)
	A := mat.NewSymDense(m, nil)
	for i := 0; i < m; i++ {
		for j := i; j < m; j++ {
			A.SetSym(i, j, GtWG.At(i, j))
		}
	}

	// b (G^t W dr)
	var b mat.VecDense
	b.MulVec(G.T(), Wdr)

	var chol mat.Cholesky
	if ok := chol.Factorize(A); !ok {
		return nil, nil, fmt.Errorf("G^t W G is not positive definite")
	}

	// Solve for x (A x = b)
	dx = mat.NewVecDense(m, nil)
	if err = chol.SolveVecTo(dx, &b); err != nil {
		return nil, nil, err
	}

	// Set (G^t W G)^-1 as the covariance matrix
	cov = mat.NewSymDense(m, nil)
	if err = chol.InverseTo(cov); err != nil {
		return nil, nil, err
	}
	return
}

// Number of singular values above tol
func matrixRank(A mat.Matrix, tol float64) int {
	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDThin) {
		return 0
	}

	// Retrieve singular values
	s := svd.Values(nil)

	// Count singular values that are greater than tol
	rank := 0
	for _, v := range s {
		if v > tol {
			rank++
		}
	}
	return rank
}
