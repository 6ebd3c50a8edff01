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
	"fmt"
	"os"

	"github.com/ctessum/sparse"
	"github.com/lukeroth/gdal"
	"github.com/spatialmodel/scarp"
)

func init() {
	readGeoTIFFFile = readGDAL
	writeGeoTIFFFile = writeGDAL
}

// readGDAL reads the first band of a raster file using GDAL.
func readGDAL(f *os.File) (*Raster, error) {
	ds, err := gdal.Open(f.Name(), gdal.ReadOnly)
	if err != nil {
		return nil, err
	}
	defer ds.Close()
	if ds.RasterCount() < 1 {
		return nil, fmt.Errorf("gdal: %s has no raster bands", f.Name())
	}
	cols, rows := ds.RasterXSize(), ds.RasterYSize()
	g := ds.GeoTransform()
	o := &Raster{
		Data:      sparse.ZerosDense(rows, cols),
		Transform: scarp.Affine{A: g[1], B: g[2], C: g[0], D: g[4], E: g[5], F: g[3]},
		WKT:       ds.Projection(),
	}
	band := ds.RasterBand(1)
	if err := band.IO(gdal.Read, 0, 0, cols, rows, o.Data.Elements, cols, rows, 0, 0); err != nil {
		return nil, err
	}
	o.NoData, o.HasNoData = band.NoDataValue()
	return o, nil
}

// writeGDAL writes r as a deflate-compressed float32 GeoTIFF using GDAL.
func writeGDAL(f *os.File, r *Raster) error {
	drv, err := gdal.GetDriverByName("GTiff")
	if err != nil {
		return err
	}
	rows, cols := r.Rows(), r.Cols()
	ds := drv.Create(f.Name(), cols, rows, 1, gdal.Float32, []string{"COMPRESS=DEFLATE"})
	defer ds.Close()
	t := r.Transform
	if err := ds.SetGeoTransform([6]float64{t.C, t.A, t.B, t.F, t.D, t.E}); err != nil {
		return err
	}
	if r.WKT != "" {
		if err := ds.SetProjection(r.WKT); err != nil {
			return err
		}
	}
	band := ds.RasterBand(1)
	if r.HasNoData {
		if err := band.SetNoDataValue(r.NoData); err != nil {
			return err
		}
	}
	data := make([]float32, len(r.Data.Elements))
	for i, v := range r.Data.Elements {
		data[i] = float32(v)
	}
	return band.IO(gdal.Write, 0, 0, cols, rows, data, cols, rows, 0, 0)
}
