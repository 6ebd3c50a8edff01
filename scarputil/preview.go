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
	"os"

	"github.com/spatialmodel/scarp/raster"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// gridXYZ adapts a raster to the plotter.GridXYZ interface. Row 0 of the
// plot is the southernmost row of the raster, and nodata cells are
// plotted as 0.
type gridXYZ struct {
	r *raster.Raster
}

func (g gridXYZ) Dims() (c, r int) { return g.r.Cols(), g.r.Rows() }

func (g gridXYZ) Z(c, r int) float64 {
	v := g.r.Data.Get(g.r.Rows()-1-r, c)
	if g.r.IsNoData(v) {
		return 0
	}
	return v
}

func (g gridXYZ) X(c int) float64 {
	x, _ := g.r.Transform.Center(0, c)
	return x
}

func (g gridXYZ) Y(r int) float64 {
	_, y := g.r.Transform.Center(g.r.Rows()-1-r, 0)
	return y
}

// Preview renders the release-depth raster r as a PNG heat map with a
// color bar and writes it to w.
func Preview(w io.Writer, r *raster.Raster) error {
	if !r.Transform.IsNorthUp() {
		return fmt.Errorf("scarp: preview requires a north-up raster")
	}
	const width, height = 8 * vg.Inch, 6 * vg.Inch

	g := gridXYZ{r: r}
	cm := moreland.ExtendedBlackBody()
	h := plotter.NewHeatMap(g, cm.Palette(255))
	if h.Max <= h.Min {
		h.Max = h.Min + 1
	}
	cm.SetMin(h.Min)
	cm.SetMax(h.Max)

	p := plot.New()
	p.Title.Text = "Release depth"
	p.X.Label.Text = "Easting"
	p.Y.Label.Text = "Northing"
	p.Add(h)

	legend := plot.New()
	legend.HideX()
	legend.Y.Label.Text = "Depth (m)"
	legend.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})

	img := vgimg.New(width, height)
	dc := draw.New(img)
	p.Draw(draw.Crop(dc, 0, -width/6, 0, 0))
	legend.Draw(draw.Crop(dc, width*5/6, 0, 0, 0))

	_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
	return err
}

// writePreview writes a preview image of r to the file at path.
func writePreview(path string, r *raster.Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("scarp: creating preview file: %v", err)
	}
	if err = Preview(f, r); err != nil {
		f.Close()
		return fmt.Errorf("scarp: creating preview: %v", err)
	}
	return f.Close()
}
