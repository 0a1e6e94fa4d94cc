// Package linalg provides the small set of dense matrix and vector primitives
// the state-space engine is built on.
//
// Everything here is a thin layer over gonum: vectors and matrices are
// *mat.VecDense, *mat.SymDense and *mat.Dense, and the hot operations go
// straight to blas64 on the raw strided storage so that no call allocates when
// it is handed correctly sized destinations.
//
// # Covariance updates
//
// Covariance matrices are always held as *mat.SymDense and modified with the
// symmetric rank updates below instead of forming a full matrix and
// subtracting it:
//
//	// P = P - (1/f) m m'
//	linalg.SymRankUpdate(p, -1/f, m)
//
//	// P = T P T', explicitly symmetrized
//	linalg.Sandwich(p, t, p, w1, w2)
//
// # Square-root factors
//
// SqrtFactor returns S with S S' = P for a positive semi-definite, possibly
// singular, P, and TriangularizeRows turns a pre-array into its lower
// triangular post-array with Householder reflections (QR):
//
//	s, err := linalg.SqrtFactor(p, 1e-8)
//	post := linalg.TriangularizeRows(pre)
package linalg
