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
	"runtime"
	"sync"

	"github.com/ctessum/sparse"
)

// Calculations returns a function that concurrently computes the scarp
// elevation of every grid cell using model m.
// Inside the perimeter the model's clipping rule is applied to its
// candidate; outside the perimeter the terrain is left untouched.
// Each cell depends only on its own inputs, so rows are split among
// goroutines without any locking.
func Calculations(m Model) DomainManipulator {
	return func(d *Domain) error {
		if m == nil {
			return fmt.Errorf("scarp: no model specified")
		}
		rows, cols := d.Elevation.Shape[0], d.Elevation.Shape[1]
		d.Scarp = sparse.ZerosDense(rows, cols)

		nprocs := runtime.GOMAXPROCS(0) // number of processors
		var wg sync.WaitGroup
		wg.Add(nprocs)
		for pp := 0; pp < nprocs; pp++ {
			go func(pp int) {
				defer wg.Done()
				for i := pp; i < rows; i += nprocs {
					for j := 0; j < cols; j++ {
						ii := i*cols + j
						z := d.Elevation.Elements[ii]
						if d.Perimeter.Elements[ii] > 0 {
							east, north := d.Transform.Center(i, j)
							d.Scarp.Elements[ii] = m.Clip(z, m.Candidate(east, north, z))
						} else {
							d.Scarp.Elements[ii] = z
						}
					}
				}
			}(pp)
		}
		wg.Wait()
		return nil
	}
}

// CalcReleaseDepth returns a function that computes the release depth
// as the difference between the terrain and the scarp surface. It must
// be run after Calculations.
func CalcReleaseDepth() DomainManipulator {
	return func(d *Domain) error {
		if d.Scarp == nil {
			return fmt.Errorf("scarp: the scarp surface must be calculated before the release depth")
		}
		d.Release = sparse.ZerosDense(d.Elevation.Shape...)
		for i, z := range d.Elevation.Elements {
			d.Release.Elements[i] = z - d.Scarp.Elements[i]
		}
		return nil
	}
}
