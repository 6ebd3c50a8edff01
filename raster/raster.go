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

// Package raster reads and writes georeferenced single-band grids and
// converts polygons to grid masks.
package raster

import (
	"errors"
	"fmt"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/scarp"
)

// ErrFormat is returned for files whose extension does not correspond
// to a supported raster format.
var ErrFormat = errors.New("raster: unsupported file format; use .asc, .tif, .tiff, .nc, or .ncf")

// Raster is a georeferenced single-band grid.
type Raster struct {
	// Name is the name of the variable holding the data.
	Name string

	// Data holds the cell values with shape [rows, cols], where
	// row 0 is at the top of the grid.
	Data *sparse.DenseArray

	// Transform maps pixel indices to real-world coordinates.
	Transform scarp.Affine

	// NoData is the value marking missing cells. It is only
	// meaningful when HasNoData is true.
	NoData    float64
	HasNoData bool

	// WKT is the well-known-text description of the coordinate
	// reference system, if known.
	WKT string
}

// Rows returns the number of rows in the grid.
func (r *Raster) Rows() int { return r.Data.Shape[0] }

// Cols returns the number of columns in the grid.
func (r *Raster) Cols() int { return r.Data.Shape[1] }

// IsNoData returns whether v marks a missing cell.
func (r *Raster) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return r.HasNoData && float32(v) == float32(r.NoData)
}

// Like returns a raster holding data with the same georeferencing
// as r.
func (r *Raster) Like(name string, data *sparse.DenseArray) *Raster {
	return &Raster{
		Name:      name,
		Data:      data,
		Transform: r.Transform,
		NoData:    r.NoData,
		HasNoData: r.HasNoData,
		WKT:       r.WKT,
	}
}

// Format returns the raster format name for the given file path.
func Format(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc":
		return "asc", nil
	case ".tif", ".tiff":
		return "geotiff", nil
	case ".nc", ".ncf":
		return "netcdf", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrFormat, path)
	}
}

// Read reads the raster file at path, choosing the format from the
// file extension. ESRI ASCII grids, and GeoTIFFs without well-known
// text in their GeoTIFF keys, pick up the coordinate reference system
// from a sidecar .prj file if one exists.
func Read(path string) (*Raster, error) {
	format, err := Format(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("raster: %v", err)
	}
	defer f.Close()

	var r *Raster
	switch format {
	case "asc":
		r, err = ReadASCII(f)
		if err != nil {
			return nil, fmt.Errorf("raster: reading %s: %v", path, err)
		}
		if b, err := ioutil.ReadFile(prjPath(path)); err == nil {
			r.WKT = strings.TrimSpace(string(b))
		}
		r.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	case "geotiff":
		r, err = readGeoTIFFFile(f)
		if err != nil {
			return nil, fmt.Errorf("raster: reading %s: %v", path, err)
		}
		if b, err := ioutil.ReadFile(prjPath(path)); err == nil && r.WKT == "" {
			r.WKT = strings.TrimSpace(string(b))
		}
		r.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	case "netcdf":
		r, err = ReadNetCDF(f)
		if err != nil {
			return nil, fmt.Errorf("raster: reading %s: %v", path, err)
		}
	}
	return r, nil
}

// Write writes r to path, choosing the format from the file extension.
// Values are stored with 32-bit floating point precision.
func Write(path string, r *Raster) error {
	format, err := Format(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("raster: %v", err)
	}
	switch format {
	case "asc":
		err = WriteASCII(f, r)
		if err == nil && r.WKT != "" {
			err = ioutil.WriteFile(prjPath(path), []byte(r.WKT), 0644)
		}
	case "geotiff":
		err = writeGeoTIFFFile(f, r)
	case "netcdf":
		err = WriteNetCDF(f, r)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("raster: writing %s: %v", path, err)
	}
	return f.Close()
}

// prjPath returns the path of the projection sidecar of a raster file.
func prjPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".prj"
}
