// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package spatial provides the 4x4 matrix math and coordinate-system
// abstraction shared by the camera pipeline.
//
// Matrices are stored column-major and follow the column-vector convention:
// a point p is transformed as M·p, so A.Mul(B) applies B first and A second.
// This is the memory layout in which capture devices deliver their view and
// projection transforms, so decoded buffers can be used without transposing.
package spatial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// MatrixSize is the encoded size of a Matrix in bytes.
const MatrixSize = 16 * 4

var (
	// ErrMatrixSize is returned when a raw buffer does not hold exactly
	// sixteen float32 values.
	ErrMatrixSize = errors.New("spatial: matrix buffer must be 64 bytes")

	// ErrSingular is returned when a matrix cannot be inverted.
	ErrSingular = errors.New("spatial: matrix is singular")
)

// Matrix is a 4x4 float32 matrix in column-major order.
// Element (row r, column c) lives at index c*4+r.
type Matrix [16]float32

// Identity returns the identity matrix.
func Identity() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translation returns a matrix translating points by (x, y, z).
func Translation(x, y, z float32) Matrix {
	m := Identity()
	m[12], m[13], m[14] = x, y, z
	return m
}

// RotationY returns a right-handed rotation about the Y axis (yaw).
func RotationY(radians float64) Matrix {
	c := float32(math.Cos(radians))
	s := float32(math.Sin(radians))
	m := Identity()
	m.Set(0, 0, c)
	m.Set(0, 2, s)
	m.Set(2, 0, -s)
	m.Set(2, 2, c)
	return m
}

// RotationX returns a right-handed rotation about the X axis (pitch).
func RotationX(radians float64) Matrix {
	c := float32(math.Cos(radians))
	s := float32(math.Sin(radians))
	m := Identity()
	m.Set(1, 1, c)
	m.Set(1, 2, -s)
	m.Set(2, 1, s)
	m.Set(2, 2, c)
	return m
}

// At returns the element at the given row and column.
func (m Matrix) At(row, col int) float32 {
	return m[col*4+row]
}

// Set stores v at the given row and column.
func (m *Matrix) Set(row, col int, v float32) {
	m[col*4+row] = v
}

// Mul returns m·n. The result applies n first, then m.
func (m Matrix) Mul(n Matrix) Matrix {
	var out mat.Dense
	out.Mul(m.dense(), n.dense())
	return fromDense(&out)
}

// Inverse returns the inverse of m.
// It returns ErrSingular when m has no usable inverse.
func (m Matrix) Inverse() (Matrix, error) {
	var inv mat.Dense
	if err := inv.Inverse(m.dense()); err != nil {
		return Matrix{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return fromDense(&inv), nil
}

// TransformPoint applies the affine part of m to p (w = 1, no perspective
// divide).
func (m Matrix) TransformPoint(p r3.Vector) r3.Vector {
	return r3.Vector{
		X: float64(m.At(0, 0))*p.X + float64(m.At(0, 1))*p.Y + float64(m.At(0, 2))*p.Z + float64(m.At(0, 3)),
		Y: float64(m.At(1, 0))*p.X + float64(m.At(1, 1))*p.Y + float64(m.At(1, 2))*p.Z + float64(m.At(1, 3)),
		Z: float64(m.At(2, 0))*p.X + float64(m.At(2, 1))*p.Y + float64(m.At(2, 2))*p.Z + float64(m.At(2, 3)),
	}
}

// ApproxEqual reports whether every element of m is within eps of n.
func (m Matrix) ApproxEqual(n Matrix, eps float32) bool {
	for i := range m {
		d := m[i] - n[i]
		if d < -eps || d > eps {
			return false
		}
	}
	return true
}

// IsIdentity reports whether m is exactly the identity matrix.
func (m Matrix) IsIdentity() bool {
	return m == Identity()
}

// MatrixFromBytes decodes sixteen little-endian float32 values laid out in
// column-major order.
func MatrixFromBytes(b []byte) (Matrix, error) {
	if len(b) != MatrixSize {
		return Matrix{}, fmt.Errorf("%w: got %d", ErrMatrixSize, len(b))
	}
	var m Matrix
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return m, nil
}

// Bytes encodes m in the layout accepted by MatrixFromBytes.
func (m Matrix) Bytes() []byte {
	b := make([]byte, MatrixSize)
	for i, v := range m {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// String formats m row by row.
func (m Matrix) String() string {
	return fmt.Sprintf("[%g %g %g %g; %g %g %g %g; %g %g %g %g; %g %g %g %g]",
		m.At(0, 0), m.At(0, 1), m.At(0, 2), m.At(0, 3),
		m.At(1, 0), m.At(1, 1), m.At(1, 2), m.At(1, 3),
		m.At(2, 0), m.At(2, 1), m.At(2, 2), m.At(2, 3),
		m.At(3, 0), m.At(3, 1), m.At(3, 2), m.At(3, 3))
}

// dense converts m into a row-major gonum matrix.
func (m Matrix) dense() *mat.Dense {
	data := make([]float64, 16)
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			data[r*4+c] = float64(m.At(r, c))
		}
	}
	return mat.NewDense(4, 4, data)
}

func fromDense(d *mat.Dense) Matrix {
	var m Matrix
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m.Set(r, c, float32(d.At(r, c)))
		}
	}
	return m
}
