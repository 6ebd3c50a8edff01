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
	"errors"
	"fmt"
)

// ErrAxis is returned when an ellipsoid has a semi-axis that is not
// strictly positive.
var ErrAxis = errors.New("scarp: ellipsoid semi-axes must be > 0")

// EllipsoidFeature describes an ellipsoidal depression with a
// paraboloid depth profile: full depth at the center and zero depth
// at the edge of its elliptical footprint.
type EllipsoidFeature struct {
	CenterEast, CenterNorth float64 // center coordinates
	MaxDepth                float64 // depth at the center
	SemiMajor               float64 // semi-axis in the east-west direction
	SemiMinor               float64 // semi-axis in the north-south direction
}

// distance2 returns the squared normalized radial distance of the
// given point from the center of the footprint.
func (f EllipsoidFeature) distance2(east, north float64) float64 {
	de := (east - f.CenterEast) / f.SemiMajor
	dn := (north - f.CenterNorth) / f.SemiMinor
	return de*de + dn*dn
}

// Depth returns the depression depth at the given point and whether the
// point lies within the footprint.
func (f EllipsoidFeature) Depth(east, north float64) (float64, bool) {
	d2 := f.distance2(east, north)
	if d2 > 1 {
		return 0, false
	}
	return f.MaxDepth * (1 - d2), true
}

// Ellipsoids is a failure surface made of one or more ellipsoidal
// depressions carved into the terrain. Where footprints overlap, the
// deepest excavation governs.
type Ellipsoids struct {
	features []EllipsoidFeature
}

// NewEllipsoids returns an ellipsoid model for the given features.
func NewEllipsoids(features ...EllipsoidFeature) (*Ellipsoids, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no ellipsoids specified", ErrFeatureCount)
	}
	for i, f := range features {
		if !(f.SemiMajor > 0) || !(f.SemiMinor > 0) {
			return nil, fmt.Errorf("%w: ellipsoid %d has semi-axes %g and %g", ErrAxis, i, f.SemiMajor, f.SemiMinor)
		}
	}
	return &Ellipsoids{features: features}, nil
}

// Len returns the number of ellipsoids.
func (e *Ellipsoids) Len() int { return len(e.features) }

// Candidate returns the lowest carved surface at the given coordinates,
// or the terrain elevation if the point is in no footprint.
func (e *Ellipsoids) Candidate(east, north, elevation float64) float64 {
	s := elevation
	for _, f := range e.features {
		if depth, ok := f.Depth(east, north); ok {
			if v := elevation - depth; v < s {
				s = v
			}
		}
	}
	return s
}

// Clip returns the candidate unchanged. Candidates are derived from the
// terrain elevation and are never above it.
func (e *Ellipsoids) Clip(_, candidate float64) float64 {
	return candidate
}
