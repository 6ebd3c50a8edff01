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
	"math"
)

// PlaneFeature describes a sliding plane passing through a seed point.
type PlaneFeature struct {
	SeedEast, SeedNorth float64 // seed point coordinates
	SeedElevation       float64 // elevation of the plane at the seed point
	Dip                 float64 // dip direction [degrees]
	Slope               float64 // slope angle [degrees]
}

// Planes is a failure surface made of one or more sliding planes.
// At any point the governing plane is the highest one.
type Planes struct {
	features  []PlaneFeature
	betaEast  []float64
	betaNorth []float64
}

// NewPlanes returns a sliding-plane model for the given features.
func NewPlanes(features ...PlaneFeature) (*Planes, error) {
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: no planes specified", ErrFeatureCount)
	}
	p := &Planes{
		features:  features,
		betaEast:  make([]float64, len(features)),
		betaNorth: make([]float64, len(features)),
	}
	for i, f := range features {
		tanSlope := math.Tan(f.Slope * math.Pi / 180)
		p.betaEast[i] = tanSlope * math.Cos(f.Dip*math.Pi/180)
		p.betaNorth[i] = tanSlope * math.Sin(f.Dip*math.Pi/180)
	}
	return p, nil
}

// Len returns the number of planes.
func (p *Planes) Len() int { return len(p.features) }

// Elevation returns the elevation of plane k at the given coordinates.
func (p *Planes) Elevation(k int, east, north float64) float64 {
	f := p.features[k]
	return f.SeedElevation + (north-f.SeedNorth)*p.betaNorth[k] - (east-f.SeedEast)*p.betaEast[k]
}

// Candidate returns the highest plane elevation at the given coordinates.
// The terrain elevation is not used.
func (p *Planes) Candidate(east, north, _ float64) float64 {
	s := p.Elevation(0, east, north)
	for k := 1; k < len(p.features); k++ {
		if v := p.Elevation(k, east, north); v > s {
			s = v
		}
	}
	return s
}

// Clip returns the lower of the terrain elevation and the candidate
// scarp elevation: planes can only lower the terrain.
func (p *Planes) Clip(elevation, candidate float64) float64 {
	if candidate < elevation {
		return candidate
	}
	return elevation
}
