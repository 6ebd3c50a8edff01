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

package scarputil

import (
	"fmt"
	"io"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/spatialmodel/scarp/raster"
	"gonum.org/v1/gonum/floats"
)

// Info writes a description of raster r, read from path, to w.
func Info(w io.Writer, path string, r *raster.Raster) error {
	t := r.Transform
	fmt.Fprintf(w, "%s\n", path)
	if r.Name != "" {
		fmt.Fprintf(w, "  variable:   %s\n", r.Name)
	}
	fmt.Fprintf(w, "  shape:      %d rows x %d cols\n", r.Rows(), r.Cols())
	fmt.Fprintf(w, "  transform:  %g, %g, %g, %g, %g, %g\n", t.A, t.B, t.C, t.D, t.E, t.F)
	fmt.Fprintf(w, "  cell area:  %g\n", t.CellArea())
	fmt.Fprintf(w, "  crs:        %s\n", crsName(r.WKT))
	if r.HasNoData {
		fmt.Fprintf(w, "  nodata:     %g\n", r.NoData)
	}

	valid := make([]float64, 0, len(r.Data.Elements))
	for _, v := range r.Data.Elements {
		if !r.IsNoData(v) {
			valid = append(valid, v)
		}
	}
	fmt.Fprintf(w, "  valid:      %d of %d cells\n", len(valid), len(r.Data.Elements))
	if len(valid) == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "  min/mean/max: %g / %g / %g\n",
		floats.Min(valid), floats.Sum(valid)/float64(len(valid)), floats.Max(valid))
	return err
}

// crsName returns a short description of the spatial reference
// described by wkt.
func crsName(wkt string) string {
	if wkt == "" {
		return "unknown"
	}
	sr, err := proj.Parse(wkt)
	if err != nil {
		return fmt.Sprintf("unparseable (%v)", err)
	}
	name := sr.Name
	if i := strings.Index(wkt, "\""); i >= 0 {
		if j := strings.Index(wkt[i+1:], "\""); j >= 0 {
			name = wkt[i+1 : i+1+j]
		}
	}
	return fmt.Sprintf("%s (%s)", name, sr.Name)
}
