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
	"strconv"
	"strings"
)

// FeatureFields is the number of values describing a single feature.
const FeatureFields = 5

var (
	// ErrUnknownMethod is returned for a method other than
	// MethodPlane or MethodEllipsoid.
	ErrUnknownMethod = errors.New("scarp: unsupported method; choose 'plane' or 'ellipsoid'")

	// ErrFeatureCount is returned when a feature list is empty or its
	// length is not a multiple of FeatureFields.
	ErrFeatureCount = errors.New("scarp: the number of feature values must be a positive multiple of 5")
)

// Model is a failure geometry that can be evaluated at any point of
// the grid.
type Model interface {
	// Candidate returns the candidate scarp elevation at the given
	// coordinates, where elevation is the terrain elevation.
	Candidate(east, north, elevation float64) float64

	// Clip applies the model's terrain clipping rule to a candidate
	// scarp elevation inside the release perimeter.
	Clip(elevation, candidate float64) float64
}

// Method specifies the failure geometry used to build the scarp.
type Method string

// The available methods.
const (
	MethodPlane     Method = "plane"
	MethodEllipsoid Method = "ellipsoid"
)

// ParseMethod returns the method with the given name. Names are
// matched exactly.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodPlane, MethodEllipsoid:
		return m, nil
	default:
		return "", fmt.Errorf("%w: got %q", ErrUnknownMethod, s)
	}
}

// ParseFeatures parses a comma-separated list of feature values, for
// example "68247,299770,920,0,0".
func ParseFeatures(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: got 0", ErrFeatureCount)
	}
	fields := strings.Split(s, ",")
	o := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, fmt.Errorf("scarp: parsing feature value %d (%q): %v", i, f, err)
		}
		o[i] = v
	}
	return o, nil
}

func checkFeatureCount(values []float64) error {
	if len(values) == 0 || len(values)%FeatureFields != 0 {
		return fmt.Errorf("%w: got %d", ErrFeatureCount, len(values))
	}
	return nil
}

// PlaneFeatures groups a flat list of values into plane features in the
// order (seed east, seed north, seed elevation, dip, slope).
func PlaneFeatures(values []float64) ([]PlaneFeature, error) {
	if err := checkFeatureCount(values); err != nil {
		return nil, err
	}
	o := make([]PlaneFeature, len(values)/FeatureFields)
	for i := range o {
		v := values[i*FeatureFields : (i+1)*FeatureFields]
		o[i] = PlaneFeature{SeedEast: v[0], SeedNorth: v[1], SeedElevation: v[2], Dip: v[3], Slope: v[4]}
	}
	return o, nil
}

// EllipsoidFeatures groups a flat list of values into ellipsoid features
// in the order (center east, center north, max depth, semi-major axis,
// semi-minor axis).
func EllipsoidFeatures(values []float64) ([]EllipsoidFeature, error) {
	if err := checkFeatureCount(values); err != nil {
		return nil, err
	}
	o := make([]EllipsoidFeature, len(values)/FeatureFields)
	for i := range o {
		v := values[i*FeatureFields : (i+1)*FeatureFields]
		o[i] = EllipsoidFeature{CenterEast: v[0], CenterNorth: v[1], MaxDepth: v[2], SemiMajor: v[3], SemiMinor: v[4]}
	}
	return o, nil
}

// NewModel returns the model for the given method, built from a flat
// list of feature values.
func NewModel(m Method, values []float64) (Model, error) {
	switch m {
	case MethodPlane:
		f, err := PlaneFeatures(values)
		if err != nil {
			return nil, err
		}
		p, err := NewPlanes(f...)
		if err != nil {
			return nil, err
		}
		return p, nil
	case MethodEllipsoid:
		f, err := EllipsoidFeatures(values)
		if err != nil {
			return nil, err
		}
		e, err := NewEllipsoids(f...)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: got %q", ErrUnknownMethod, m)
	}
}

// Config holds the validated configuration of a scarp run.
type Config struct {
	// Method is the failure geometry to use.
	Method Method

	// Features is the flat list of feature values, interpreted
	// according to Method. Its length must be a positive multiple
	// of FeatureFields.
	Features []float64
}

// Model checks the configuration and returns the model it describes.
func (c *Config) Model() (Model, error) {
	return NewModel(c.Method, c.Features)
}
