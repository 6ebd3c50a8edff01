/*
Copyright © 2024 the scarp authors.
This file is part of scarp.

scarp is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

scarp is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with scarp.  If not, see <http://www.gnu.org/licenses/>.
*/

package scarp

import "math"

// Affine is an affine transform from pixel (col, row) space to
// real-world (x, y) space:
//	x = A*col + B*row + C
//	y = D*col + E*row + F
// The coefficient order follows the GDAL/rasterio convention.
type Affine struct {
	A, B, C, D, E, F float64
}

// NorthUp returns the transform of a north-up grid whose upper-left
// corner is at (xUL, yUL) and whose cells are dx wide and dy tall.
func NorthUp(xUL, yUL, dx, dy float64) Affine {
	return Affine{A: dx, C: xUL, E: -dy, F: yUL}
}

// Center returns the real-world coordinates of the center of the
// pixel at the given row and column.
func (t Affine) Center(row, col int) (east, north float64) {
	x, y := float64(col)+0.5, float64(row)+0.5
	return t.A*x + t.B*y + t.C, t.D*x + t.E*y + t.F
}

// CellArea returns the area covered by a single pixel.
func (t Affine) CellArea() float64 {
	return math.Abs(t.A*t.E - t.B*t.D)
}

// IsNorthUp returns whether the transform has no rotation terms and
// rows increase southward.
func (t Affine) IsNorthUp() bool {
	return t.B == 0 && t.D == 0 && t.A > 0 && t.E < 0
}
