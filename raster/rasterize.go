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

package raster

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/scarp"
)

// Rasterize returns a mask with the given shape and transform in which
// cells whose centers are inside any of the given polygons are set
// to 1 and all other cells are 0. Centers on a polygon edge count as
// inside.
func Rasterize(polys []geom.Polygonal, rows, cols int, t scarp.Affine) *sparse.DenseArray {
	o := sparse.ZerosDense(rows, cols)
	bounds := make([]*geom.Bounds, len(polys))
	for i, p := range polys {
		bounds[i] = p.Bounds()
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			x, y := t.Center(i, j)
			pt := geom.Point{X: x, Y: y}
			for k, p := range polys {
				b := bounds[k]
				if x < b.Min.X || x > b.Max.X || y < b.Min.Y || y > b.Max.Y {
					continue
				}
				if pt.Within(p) != geom.Outside {
					o.Elements[i*cols+j] = 1
					break
				}
			}
		}
	}
	return o
}
