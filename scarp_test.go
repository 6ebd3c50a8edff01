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
	"math"
	"math/rand"
	"testing"

	"github.com/ctessum/sparse"
)

// filled returns a grid of the given shape with every cell set to v.
func filled(rows, cols int, v float64) *sparse.DenseArray {
	a := sparse.ZerosDense(rows, cols)
	for i := range a.Elements {
		a.Elements[i] = v
	}
	return a
}

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func TestPlaneScenario(t *testing.T) {
	elev := filled(4, 6, 1000)
	mask := filled(4, 6, 1)
	m, err := NewModel(MethodPlane, []float64{0, 0, 900, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	scarp, release, err := Composite(elev, mask, NorthUp(-100, 100, 10, 10), m)
	if err != nil {
		t.Fatal(err)
	}
	for i := range elev.Elements {
		if scarp.Elements[i] != 900 {
			t.Errorf("cell %d: scarp = %g; want 900", i, scarp.Elements[i])
		}
		if release.Elements[i] != 100 {
			t.Errorf("cell %d: release = %g; want 100", i, release.Elements[i])
		}
	}
}

func TestEllipsoidScenario(t *testing.T) {
	// Cell centers are at (0,0), (10,0), (20,0) and (30,0).
	tr := NorthUp(-5, 5, 10, 10)
	elev := filled(1, 4, 1000)
	mask := filled(1, 4, 1)
	m, err := NewModel(MethodEllipsoid, []float64{0, 0, 50, 10, 10})
	if err != nil {
		t.Fatal(err)
	}
	scarp, release, err := Composite(elev, mask, tr, m)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{950, 1000, 1000, 1000}
	for j, w := range want {
		if scarp.Get(0, j) != w {
			t.Errorf("col %d: scarp = %g; want %g", j, scarp.Get(0, j), w)
		}
		if release.Get(0, j) != 1000-w {
			t.Errorf("col %d: release = %g; want %g", j, release.Get(0, j), 1000-w)
		}
	}
}

func TestOutsidePerimeter(t *testing.T) {
	elev := sparse.ZerosDense(5, 5)
	mask := sparse.ZerosDense(5, 5)
	for i := range elev.Elements {
		elev.Elements[i] = 1000 + float64(i)
		if i%2 == 0 {
			mask.Elements[i] = 1
		} else if i%3 == 0 {
			mask.Elements[i] = -1
		}
	}
	tr := NorthUp(-25, 25, 10, 10)
	for _, test := range []struct {
		method   Method
		features []float64
	}{
		{method: MethodPlane, features: []float64{0, 0, 500, 45, 30}},
		{method: MethodEllipsoid, features: []float64{0, 0, 80, 30, 30}},
	} {
		t.Run(string(test.method), func(t *testing.T) {
			m, err := NewModel(test.method, test.features)
			if err != nil {
				t.Fatal(err)
			}
			scarp, release, err := Composite(elev, mask, tr, m)
			if err != nil {
				t.Fatal(err)
			}
			for i, v := range mask.Elements {
				if v > 0 {
					continue
				}
				if scarp.Elements[i] != elev.Elements[i] {
					t.Errorf("cell %d: scarp %g != elevation %g", i, scarp.Elements[i], elev.Elements[i])
				}
				if release.Elements[i] != 0 {
					t.Errorf("cell %d: release %g != 0", i, release.Elements[i])
				}
			}
		})
	}
}

func TestConstantPlane(t *testing.T) {
	elev := sparse.ZerosDense(3, 3)
	for i := range elev.Elements {
		elev.Elements[i] = 850 + 25*float64(i)
	}
	mask := filled(3, 3, 1)
	p, err := NewPlanes(PlaneFeature{SeedEast: 1234, SeedNorth: -50, SeedElevation: 900, Dip: 135, Slope: 0})
	if err != nil {
		t.Fatal(err)
	}
	scarp, _, err := Composite(elev, mask, NorthUp(0, 0, 5, 5), p)
	if err != nil {
		t.Fatal(err)
	}
	for i, z := range elev.Elements {
		want := math.Min(z, 900)
		if scarp.Elements[i] != want {
			t.Errorf("cell %d: scarp = %g; want %g", i, scarp.Elements[i], want)
		}
	}
}

func TestPlaneElevation(t *testing.T) {
	p, err := NewPlanes(
		PlaneFeature{SeedEast: 100, SeedNorth: 200, SeedElevation: 1000, Dip: 0, Slope: 45},
		PlaneFeature{SeedEast: 100, SeedNorth: 200, SeedElevation: 1000, Dip: 90, Slope: 45},
	)
	if err != nil {
		t.Fatal(err)
	}
	// Dip 0: the plane descends eastward by tan(45°) = 1 m per m.
	if v := p.Elevation(0, 110, 200); different(v, 990, 1e-12) {
		t.Errorf("plane 0 elevation = %g; want 990", v)
	}
	// Dip 90: the plane rises northward.
	if v := p.Elevation(1, 100, 210); different(v, 1010, 1e-12) {
		t.Errorf("plane 1 elevation = %g; want 1010", v)
	}
	if v := p.Elevation(1, 110, 200); different(v, 1000, 1e-12) {
		t.Errorf("plane 1 elevation = %g; want 1000", v)
	}
}

func TestMultiPlaneMax(t *testing.T) {
	features := []PlaneFeature{
		{SeedEast: 68247, SeedNorth: 299770, SeedElevation: 920, Dip: 0, Slope: 0},
		{SeedEast: 68111, SeedNorth: 299832, SeedElevation: 850, Dip: 90, Slope: 50},
		{SeedEast: 68340, SeedNorth: 299799, SeedElevation: 850, Dip: 270, Slope: 50},
	}
	p, err := NewPlanes(features...)
	if err != nil {
		t.Fatal(err)
	}
	reversed := make([]PlaneFeature, len(features))
	for i, f := range features {
		reversed[len(features)-1-i] = f
	}
	pr, err := NewPlanes(reversed...)
	if err != nil {
		t.Fatal(err)
	}
	r := rand.New(rand.NewSource(1))
	for n := 0; n < 1000; n++ {
		east := 68000 + 400*r.Float64()
		north := 299600 + 400*r.Float64()
		want := math.Inf(-1)
		for k := 0; k < p.Len(); k++ {
			want = math.Max(want, p.Elevation(k, east, north))
		}
		if c := p.Candidate(east, north, 0); c != want {
			t.Fatalf("(%g, %g): candidate = %g; want %g", east, north, c, want)
		}
		if c := pr.Candidate(east, north, 0); c != want {
			t.Fatalf("(%g, %g): reversed candidate = %g; want %g", east, north, c, want)
		}
	}
}

func TestEllipsoidDepth(t *testing.T) {
	f := EllipsoidFeature{CenterEast: 68270, CenterNorth: 299807, MaxDepth: 80, SemiMajor: 50, SemiMinor: 25}
	if d, ok := f.Depth(68270, 299807); !ok || d != 80 {
		t.Errorf("center depth = %g, %v; want 80, true", d, ok)
	}
	if d, ok := f.Depth(68270+50, 299807); !ok || d != 0 {
		t.Errorf("east boundary depth = %g, %v; want 0, true", d, ok)
	}
	if d, ok := f.Depth(68270, 299807-25); !ok || d != 0 {
		t.Errorf("south boundary depth = %g, %v; want 0, true", d, ok)
	}
	if _, ok := f.Depth(68270+51, 299807); ok {
		t.Errorf("point outside footprint should not be inside")
	}
	if d2 := f.distance2(68270+25, 299807-12.5); different(d2, 0.5, 1e-12) {
		t.Errorf("squared distance = %g; want 0.5", d2)
	}
	if d, _ := f.Depth(68270+25, 299807); different(d, 60, 1e-12) {
		t.Errorf("depth at half radius = %g; want 60", d)
	}
}

func TestOverlappingEllipsoids(t *testing.T) {
	a := EllipsoidFeature{CenterEast: 0, CenterNorth: 0, MaxDepth: 40, SemiMajor: 20, SemiMinor: 20}
	b := EllipsoidFeature{CenterEast: 10, CenterNorth: 0, MaxDepth: 30, SemiMajor: 40, SemiMinor: 10}
	e, err := NewEllipsoids(a, b)
	if err != nil {
		t.Fatal(err)
	}
	for _, pt := range [][2]float64{{0, 0}, {5, 0}, {12, 3}, {-15, 2}, {30, 1}} {
		da, _ := a.Depth(pt[0], pt[1])
		db, _ := b.Depth(pt[0], pt[1])
		want := math.Max(da, db)
		got := 1000 - e.Candidate(pt[0], pt[1], 1000)
		if different(got, want, 1e-12) && !(got == 0 && want == 0) {
			t.Errorf("%v: depth = %g; want %g", pt, got, want)
		}
	}
}

func TestEllipsoidNeverAboveTerrain(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	elev := sparse.ZerosDense(20, 30)
	mask := sparse.ZerosDense(20, 30)
	for i := range elev.Elements {
		elev.Elements[i] = 1500 + 300*r.Float64()
		mask.Elements[i] = float64(r.Intn(3) - 1)
	}
	var features []float64
	for k := 0; k < 4; k++ {
		features = append(features, 300*r.Float64(), -200*r.Float64(), 100*r.Float64()-10, 20+100*r.Float64(), 20+100*r.Float64())
	}
	m, err := NewModel(MethodEllipsoid, features)
	if err != nil {
		t.Fatal(err)
	}
	scarp, release, err := Composite(elev, mask, NorthUp(0, 0, 10, 10), m)
	if err != nil {
		t.Fatal(err)
	}
	for i, z := range elev.Elements {
		if scarp.Elements[i] > z {
			t.Errorf("cell %d: scarp %g > elevation %g", i, scarp.Elements[i], z)
		}
		if release.Elements[i] < 0 {
			t.Errorf("cell %d: negative release depth %g", i, release.Elements[i])
		}
	}
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	elev := sparse.ZerosDense(15, 12)
	mask := sparse.ZerosDense(15, 12)
	for i := range elev.Elements {
		elev.Elements[i] = 1000 + 500*r.Float64()
		mask.Elements[i] = float64(r.Intn(2))
	}
	tr := NorthUp(0, 0, 2, 2)
	for _, test := range []struct {
		method   Method
		features []float64
	}{
		{method: MethodPlane, features: []float64{12, -15, 1000, 30, 5, 0, 0, 950, 200, 3}},
		{method: MethodEllipsoid, features: []float64{12, -15, 90, 10, 8, 5, -5, 60, 6, 12}},
	} {
		t.Run(string(test.method), func(t *testing.T) {
			m, err := NewModel(test.method, test.features)
			if err != nil {
				t.Fatal(err)
			}
			scarp, release, err := Composite(elev, mask, tr, m)
			if err != nil {
				t.Fatal(err)
			}
			for i, z := range elev.Elements {
				if scarp.Elements[i]+release.Elements[i] != z {
					t.Errorf("cell %d: %g + %g != %g", i, scarp.Elements[i], release.Elements[i], z)
				}
			}
		})
	}
}

// TestCalculationsSequential checks the concurrent calculation against a
// plain nested loop.
func TestCalculationsSequential(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	elev := sparse.ZerosDense(37, 23)
	mask := sparse.ZerosDense(37, 23)
	for i := range elev.Elements {
		elev.Elements[i] = 2000 + 100*r.Float64()
		mask.Elements[i] = float64(r.Intn(2))
	}
	tr := Affine{A: 5, B: 0.5, C: 1000, D: 0.25, E: -5, F: 2000}
	m, err := NewModel(MethodPlane, []float64{1050, 1900, 2050, 20, 10, 1100, 1850, 2040, 300, 15})
	if err != nil {
		t.Fatal(err)
	}
	scarp, _, err := Composite(elev, mask, tr, m)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 37; i++ {
		for j := 0; j < 23; j++ {
			z := elev.Get(i, j)
			want := z
			if mask.Get(i, j) > 0 {
				e, n := tr.Center(i, j)
				want = math.Min(z, m.Candidate(e, n, z))
			}
			if scarp.Get(i, j) != want {
				t.Errorf("(%d, %d): %g != %g", i, j, scarp.Get(i, j), want)
			}
		}
	}
}

func TestShapeMismatch(t *testing.T) {
	m, err := NewModel(MethodPlane, []float64{0, 0, 900, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = Composite(filled(3, 4, 1000), filled(4, 3, 1), NorthUp(0, 0, 1, 1), m)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("err = %v; want ErrShapeMismatch", err)
	}
}

func TestDomainOrder(t *testing.T) {
	d := &Domain{
		InitFuncs: []DomainManipulator{
			SetInputs(filled(2, 2, 10), filled(2, 2, 1), NorthUp(0, 0, 1, 1)),
			CheckShapes(),
		},
		RunFuncs: []DomainManipulator{CalcReleaseDepth()},
	}
	if err := d.Init(); err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err == nil {
		t.Error("release depth before scarp calculation should fail")
	}
}

func TestSummarize(t *testing.T) {
	release := sparse.ZerosDense(2, 3)
	copy(release.Elements, []float64{0, 1, 2, 0, 3, 0})
	s := Summarize(release, NorthUp(0, 0, 10, 10))
	if s.ReleaseCells != 3 {
		t.Errorf("release cells = %d; want 3", s.ReleaseCells)
	}
	if s.MaxDepth != 3 {
		t.Errorf("max depth = %g; want 3", s.MaxDepth)
	}
	if s.MeanDepth != 2 {
		t.Errorf("mean depth = %g; want 2", s.MeanDepth)
	}
	if s.ReleaseArea.Value() != 300 {
		t.Errorf("area = %v; want 300 m²", s.ReleaseArea)
	}
	if s.Volume.Value() != 600 {
		t.Errorf("volume = %v; want 600 m³", s.Volume)
	}

	empty := Summarize(sparse.ZerosDense(2, 2), NorthUp(0, 0, 1, 1))
	if empty.ReleaseCells != 0 || empty.MaxDepth != 0 || empty.Volume.Value() != 0 {
		t.Errorf("empty summary = %v", empty)
	}
}
