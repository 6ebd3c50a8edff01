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
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/scarp/raster"
)

// readPerimeter returns the release perimeter mask at path on the grid
// of dem. Polygon files are rasterized onto the grid; rasters must
// have the same shape as dem. Cells that are nodata in the perimeter
// raster are outside the perimeter.
func readPerimeter(path string, dem *raster.Raster, log logrus.FieldLogger) (*sparse.DenseArray, error) {
	var polys []geom.Polygonal
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		polys, err = readShapefile(path, dem.WKT, log)
	case ".geojson", ".json":
		polys, err = readGeoJSON(path)
	default:
		var r *raster.Raster
		if r, err = raster.Read(path); err != nil {
			return nil, err
		}
		for i, v := range r.Data.Elements {
			if r.IsNoData(v) {
				r.Data.Elements[i] = 0
			}
		}
		return r.Data, nil
	}
	if err != nil {
		return nil, err
	}
	if len(polys) == 0 {
		return nil, fmt.Errorf("scarp: perimeter file %s contains no polygons", path)
	}
	return raster.Rasterize(polys, dem.Rows(), dem.Cols(), dem.Transform), nil
}

// readShapefile reads the polygons in a shapefile. If the shapefile has
// a projection file and wkt is not empty, the polygons are transformed
// to the spatial reference described by wkt.
func readShapefile(path, wkt string, log logrus.FieldLogger) ([]geom.Polygonal, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("scarp: opening perimeter shapefile: %v", err)
	}
	defer d.Close()

	var ct proj.Transformer
	if wkt != "" {
		if src, err := d.SR(); err == nil {
			dst, err := proj.Parse(wkt)
			if err != nil {
				return nil, fmt.Errorf("scarp: parsing elevation spatial reference: %v", err)
			}
			if !src.Equal(dst, 0) {
				if ct, err = src.NewTransform(dst); err != nil {
					return nil, fmt.Errorf("scarp: perimeter projection: %v", err)
				}
				if log != nil {
					log.WithField("file", path).Info("reprojecting perimeter to the elevation spatial reference")
				}
			}
		}
	}

	var o []geom.Polygonal
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		if ct != nil {
			if g, err = g.Transform(ct); err != nil {
				return nil, fmt.Errorf("scarp: reprojecting perimeter: %v", err)
			}
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("scarp: perimeter shapefile geometries must be polygons; got %T", g)
		}
		o = append(o, p)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("scarp: reading perimeter shapefile: %v", err)
	}
	return o, nil
}

// geoJSONObject holds the parts of a GeoJSON object that are needed to
// find its polygons.
type geoJSONObject struct {
	Type        string            `json:"type"`
	Features    []json.RawMessage `json:"features"`
	Geometry    json.RawMessage   `json:"geometry"`
	Geometries  []json.RawMessage `json:"geometries"`
	Coordinates []json.RawMessage `json:"coordinates"`
}

// readGeoJSON reads the polygons in a GeoJSON file. The coordinates are
// assumed to be in the spatial reference of the elevation raster.
func readGeoJSON(path string) ([]geom.Polygonal, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scarp: reading perimeter file: %w", err)
	}
	o, err := geoJSONPolygons(b)
	if err != nil {
		return nil, fmt.Errorf("scarp: decoding perimeter file %s: %w", path, err)
	}
	return o, nil
}

func geoJSONPolygons(b []byte) ([]geom.Polygonal, error) {
	var obj geoJSONObject
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, err
	}
	var children []json.RawMessage
	switch obj.Type {
	case "FeatureCollection":
		children = obj.Features
	case "Feature":
		children = []json.RawMessage{obj.Geometry}
	case "GeometryCollection":
		children = obj.Geometries
	case "MultiPolygon":
		for _, c := range obj.Coordinates {
			children = append(children, json.RawMessage(`{"type":"Polygon","coordinates":`+string(c)+`}`))
		}
	case "Polygon":
		g, err := geojson.Decode(b)
		if err != nil {
			return nil, err
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("invalid polygon geometry %T", g)
		}
		return []geom.Polygonal{p}, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q; perimeters must be polygons", obj.Type)
	}
	var o []geom.Polygonal
	for _, c := range children {
		p, err := geoJSONPolygons(c)
		if err != nil {
			return nil, err
		}
		o = append(o, p...)
	}
	return o, nil
}
