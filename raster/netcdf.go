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
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/scarp"
)

// DefaultVariable is the NetCDF variable name used for rasters that
// have no name.
const DefaultVariable = "elevation"

// ReadNetCDF reads the first two-dimensional variable of a NetCDF file.
// The georeferencing is taken from the global "transform" attribute if
// present, and otherwise from the "x0", "y0", "dx" and "dy" attributes,
// where (x0, y0) is the upper-left corner of the grid.
func ReadNetCDF(rw cdf.ReaderWriterAt) (*Raster, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, err
	}
	var name string
	for _, v := range f.Header.Variables() {
		if len(f.Header.Lengths(v)) == 2 {
			name = v
			break
		}
	}
	if name == "" {
		return nil, fmt.Errorf("no 2-dimensional variable found")
	}
	o := &Raster{Name: name}

	if t, ok := f.Header.GetAttribute("", "transform").([]float64); ok && len(t) == 6 {
		o.Transform = scarp.Affine{A: t[0], B: t[1], C: t[2], D: t[3], E: t[4], F: t[5]}
	} else {
		var v [4]float64
		for i, a := range []string{"x0", "y0", "dx", "dy"} {
			at, ok := f.Header.GetAttribute("", a).([]float64)
			if !ok || len(at) == 0 {
				return nil, fmt.Errorf("missing georeferencing attribute %s", a)
			}
			v[i] = at[0]
		}
		o.Transform = scarp.NorthUp(v[0], v[1], v[2], v[3])
	}
	if wkt, ok := f.Header.GetAttribute("", "crs_wkt").(string); ok {
		o.WKT = wkt
	}
	if nd, ok := f.Header.GetAttribute(name, "nodata").([]float64); ok && len(nd) > 0 {
		o.NoData = nd[0]
		o.HasNoData = true
	}

	dims := f.Header.Lengths(name)
	o.Data = sparse.ZerosDense(dims...)
	tmp := make([]float32, len(o.Data.Elements))
	r := f.Reader(name, nil, nil)
	if _, err = r.Read(tmp); err != nil {
		return nil, err
	}
	for i, v := range tmp {
		o.Data.Elements[i] = float64(v)
	}
	return o, nil
}

// WriteNetCDF writes r to NetCDF file w as a float32 variable with
// dimensions (y, x).
func WriteNetCDF(w *os.File, r *Raster) error {
	name := r.Name
	if name == "" {
		name = DefaultVariable
	}
	rows, cols := r.Rows(), r.Cols()
	t := r.Transform

	h := cdf.NewHeader([]string{"y", "x"}, []int{rows, cols})
	h.AddAttribute("", "comment", "scarp raster file")
	h.AddAttribute("", "transform", []float64{t.A, t.B, t.C, t.D, t.E, t.F})
	h.AddAttribute("", "x0", []float64{t.C})
	h.AddAttribute("", "y0", []float64{t.F})
	h.AddAttribute("", "dx", []float64{t.A})
	h.AddAttribute("", "dy", []float64{-t.E})
	h.AddAttribute("", "nx", []int32{int32(cols)})
	h.AddAttribute("", "ny", []int32{int32(rows)})
	if r.WKT != "" {
		h.AddAttribute("", "crs_wkt", r.WKT)
	}
	h.AddVariable(name, []string{"y", "x"}, []float32{0})
	h.AddAttribute(name, "units", "m")
	if r.HasNoData {
		h.AddAttribute(name, "nodata", []float64{float64(float32(r.NoData))})
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	data32 := make([]float32, len(r.Data.Elements))
	for i, e := range r.Data.Elements {
		data32[i] = float32(e)
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	if _, err = f.Writer(name, start, end).Write(data32); err != nil {
		return fmt.Errorf("writing variable %s: %v", name, err)
	}
	return cdf.UpdateNumRecs(w)
}
