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

import (
	"fmt"

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
	"gonum.org/v1/gonum/floats"
)

// Summary holds aggregate statistics of a release-depth grid.
type Summary struct {
	Rows, Cols int

	// ReleaseCells is the number of cells with a release depth > 0.
	ReleaseCells int

	ReleaseArea *unit.Unit // [m²]
	MaxDepth    float64    // [m]
	MeanDepth   float64    // mean over release cells [m]
	Volume      *unit.Unit // [m³]
}

// Summarize computes statistics of the given release-depth grid, where
// t is the transform of the grid. Grid units are assumed to be meters.
func Summarize(release *sparse.DenseArray, t Affine) Summary {
	s := Summary{Rows: release.Shape[0], Cols: release.Shape[1]}
	var depths []float64
	for _, v := range release.Elements {
		if v > 0 {
			depths = append(depths, v)
		}
	}
	s.ReleaseCells = len(depths)
	cellArea := unit.New(t.CellArea(), unit.Meter2)
	s.ReleaseArea = unit.New(float64(s.ReleaseCells)*cellArea.Value(), unit.Meter2)
	if len(depths) == 0 {
		s.Volume = unit.New(0, unit.Meter3)
		return s
	}
	sum := floats.Sum(depths)
	s.MaxDepth = floats.Max(depths)
	s.MeanDepth = sum / float64(len(depths))
	s.Volume = unit.Mul(unit.New(sum, unit.Meter), cellArea)
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%dx%d grid; %d release cells; area %v; max depth %.3g m; mean depth %.3g m; volume %v",
		s.Rows, s.Cols, s.ReleaseCells, s.ReleaseArea, s.MaxDepth, s.MeanDepth, s.Volume)
}
