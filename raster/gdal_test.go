//go:build gdal

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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/scarp"
)

// TestGDALInterop checks that files written by GDAL can be read
// without it, and the other way around.
func TestGDALInterop(t *testing.T) {
	dir, err := ioutil.TempDir("", "scarp_gdal")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	r := &Raster{
		Data:      sparse.ZerosDense(4, 5),
		Transform: scarp.NorthUp(500, 1000, 2, 2),
		NoData:    -9999,
		HasNoData: true,
	}
	for i := range r.Data.Elements {
		r.Data.Elements[i] = 100 + 0.5*float64(i)
	}

	gdalPath := filepath.Join(dir, "gdal.tif")
	if err := Write(gdalPath, r); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(gdalPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	fromGDAL, err := ReadGeoTIFF(f)
	if err != nil {
		t.Fatal(err)
	}

	goPath := filepath.Join(dir, "go.tif")
	w, err := os.Create(goPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteGeoTIFF(w, r); err != nil {
		t.Fatal(err)
	}
	w.Close()
	fromGo, err := Read(goPath)
	if err != nil {
		t.Fatal(err)
	}

	for _, r2 := range []*Raster{fromGDAL, fromGo} {
		for i, v := range r.Data.Elements {
			if r2.Data.Elements[i] != v {
				t.Errorf("element %d: %g != %g", i, r2.Data.Elements[i], v)
			}
		}
		if r2.Transform != r.Transform {
			t.Errorf("transform = %+v; want %+v", r2.Transform, r.Transform)
		}
		if !r2.HasNoData || r2.NoData != -9999 {
			t.Errorf("nodata = %g, %v", r2.NoData, r2.HasNoData)
		}
	}
}
