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

// Package scarp derives failure (scarp) surfaces and release-depth grids
// for avalanche and landslide release modeling. Given a digital elevation
// model and a perimeter mask marking where release is permitted, the scarp
// surface is built from one or more analytic failure geometries (sliding
// planes or ellipsoidal depressions) and clipped against the terrain.
package scarp

import (
	"errors"
	"fmt"

	"github.com/ctessum/sparse"
)

// Version gives the version number.
const Version = "0.1.0"

// ErrShapeMismatch is returned when the elevation and perimeter grids
// do not have the same dimensions.
var ErrShapeMismatch = errors.New("scarp: elevation and perimeter grids have different shapes")

// Domain holds the grids of a single scarp run, along with the
// functions that initialize, compute and finalize them.
type Domain struct {
	// Elevation is the terrain elevation grid, with shape [rows, cols].
	Elevation *sparse.DenseArray

	// Perimeter is the release perimeter mask. A cell is inside the
	// release area if its value is > 0.
	Perimeter *sparse.DenseArray

	// Transform maps pixel indices to real-world coordinates.
	Transform Affine

	// Scarp is the failure surface elevation, filled by Calculations.
	Scarp *sparse.DenseArray

	// Release is the release depth (Elevation - Scarp), filled by
	// CalcReleaseDepth.
	Release *sparse.DenseArray

	// InitFuncs are functions to be called in the given order
	// at the beginning of the run.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be called in the given order
	// to compute the output grids.
	RunFuncs []DomainManipulator

	// CleanupFuncs are functions to be called in the given order
	// after the run has finished.
	CleanupFuncs []DomainManipulator
}

// DomainManipulator is a class of functions that operate on the entire
// scarp domain.
type DomainManipulator func(d *Domain) error

// Init initializes the domain by running d.InitFuncs.
func (d *Domain) Init() error {
	for _, f := range d.InitFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the computation by running d.RunFuncs.
func (d *Domain) Run() error {
	for _, f := range d.RunFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup finalizes the run by running d.CleanupFuncs.
func (d *Domain) Cleanup() error {
	for _, f := range d.CleanupFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// SetInputs returns a function that sets the input grids and transform
// of the domain.
func SetInputs(elevation, perimeter *sparse.DenseArray, t Affine) DomainManipulator {
	return func(d *Domain) error {
		d.Elevation = elevation
		d.Perimeter = perimeter
		d.Transform = t
		return nil
	}
}

// CheckShapes returns a function that makes sure the elevation and
// perimeter grids are both two-dimensional and have the same shape.
func CheckShapes() DomainManipulator {
	return func(d *Domain) error {
		if d.Elevation == nil || d.Perimeter == nil {
			return fmt.Errorf("scarp: missing input grid")
		}
		if len(d.Elevation.Shape) != 2 {
			return fmt.Errorf("scarp: elevation grid must be 2-dimensional but has %d dimensions", len(d.Elevation.Shape))
		}
		if len(d.Perimeter.Shape) != 2 ||
			d.Elevation.Shape[0] != d.Perimeter.Shape[0] ||
			d.Elevation.Shape[1] != d.Perimeter.Shape[1] {
			return fmt.Errorf("%w: %v != %v", ErrShapeMismatch, d.Elevation.Shape, d.Perimeter.Shape)
		}
		return nil
	}
}

// Composite computes the scarp and release-depth grids for the given
// elevation and perimeter grids using model m.
func Composite(elevation, perimeter *sparse.DenseArray, t Affine, m Model) (scarp, release *sparse.DenseArray, err error) {
	d := &Domain{
		InitFuncs: []DomainManipulator{
			SetInputs(elevation, perimeter, t),
			CheckShapes(),
		},
		RunFuncs: []DomainManipulator{
			Calculations(m),
			CalcReleaseDepth(),
		},
	}
	if err = d.Init(); err != nil {
		return nil, nil, err
	}
	if err = d.Run(); err != nil {
		return nil, nil, err
	}
	return d.Scarp, d.Release, nil
}
