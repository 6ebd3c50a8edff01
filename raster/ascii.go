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
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/scarp"
)

// ascHeader holds the header of an ESRI ASCII grid.
type ascHeader struct {
	ncols, nrows int
	xll, yll     float64
	center       bool // xll and yll give the center of the lower-left cell
	dx, dy       float64
	nodata       float64
	hasNoData    bool

	haveNcol, haveNrow, haveX, haveY, haveDX, haveDY bool
}

// set stores the header value v for key. It returns false if key is
// not a header key.
func (h *ascHeader) set(key, v string) (bool, error) {
	parseF := func() (float64, error) { return strconv.ParseFloat(v, 64) }
	var err error
	switch strings.ToLower(key) {
	case "ncols":
		h.ncols, err = strconv.Atoi(v)
		h.haveNcol = true
	case "nrows":
		h.nrows, err = strconv.Atoi(v)
		h.haveNrow = true
	case "xllcorner":
		h.xll, err = parseF()
		h.haveX = true
	case "xllcenter":
		h.xll, err = parseF()
		h.haveX, h.center = true, true
	case "yllcorner":
		h.yll, err = parseF()
		h.haveY = true
	case "yllcenter":
		h.yll, err = parseF()
		h.haveY, h.center = true, true
	case "cellsize":
		h.dx, err = parseF()
		h.dy = h.dx
		h.haveDX, h.haveDY = true, true
	case "dx":
		h.dx, err = parseF()
		h.haveDX = true
	case "dy":
		h.dy, err = parseF()
		h.haveDY = true
	case "nodata_value":
		h.nodata, err = parseF()
		h.hasNoData = true
	default:
		return false, nil
	}
	if err != nil {
		return true, fmt.Errorf("invalid value %q for header key %s", v, key)
	}
	return true, nil
}

func (h *ascHeader) check() error {
	switch {
	case !h.haveNcol || !h.haveNrow:
		return fmt.Errorf("header must contain ncols and nrows")
	case !h.haveX || !h.haveY:
		return fmt.Errorf("header must contain the lower-left corner or center")
	case !h.haveDX || !h.haveDY:
		return fmt.Errorf("header must contain cellsize, or dx and dy")
	case h.ncols <= 0 || h.nrows <= 0:
		return fmt.Errorf("grid dimensions must be positive; got %d x %d", h.nrows, h.ncols)
	case !(h.dx > 0) || !(h.dy > 0):
		return fmt.Errorf("cell size must be positive")
	}
	return nil
}

// transform returns the pixel-to-world transform described by the header.
func (h *ascHeader) transform() scarp.Affine {
	x0, y0 := h.xll, h.yll
	if h.center {
		x0 -= h.dx / 2
		y0 -= h.dy / 2
	}
	return scarp.NorthUp(x0, y0+float64(h.nrows)*h.dy, h.dx, h.dy)
}

// ReadASCII reads an ESRI ASCII grid.
func ReadASCII(r io.Reader) (*Raster, error) {
	s := bufio.NewScanner(r)
	s.Split(bufio.ScanWords)

	h := new(ascHeader)
	var first string
	for s.Scan() {
		key := s.Text()
		if isValue(key) {
			first = key
			break
		}
		if !s.Scan() {
			return nil, fmt.Errorf("missing value for header key %s", key)
		}
		ok, err := h.set(key, s.Text())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("unknown header key %s", key)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if err := h.check(); err != nil {
		return nil, err
	}

	data := sparse.ZerosDense(h.nrows, h.ncols)
	n := 0
	parse := func(tok string) error {
		if n >= len(data.Elements) {
			return fmt.Errorf("too many values; want %d", len(data.Elements))
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return fmt.Errorf("value %d: %v", n, err)
		}
		data.Elements[n] = v
		n++
		return nil
	}
	if first != "" {
		if err := parse(first); err != nil {
			return nil, err
		}
	}
	for s.Scan() {
		if err := parse(s.Text()); err != nil {
			return nil, err
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if n != len(data.Elements) {
		return nil, fmt.Errorf("grid has %d values; want %d", n, len(data.Elements))
	}
	return &Raster{
		Data:      data,
		Transform: h.transform(),
		NoData:    h.nodata,
		HasNoData: h.hasNoData,
	}, nil
}

// WriteASCII writes r as an ESRI ASCII grid. The grid must be north-up.
func WriteASCII(w io.Writer, r *Raster) error {
	t := r.Transform
	if !t.IsNorthUp() {
		return fmt.Errorf("ESRI ASCII grids must be north-up; transform is %+v", t)
	}
	rows, cols := r.Rows(), r.Cols()
	dx, dy := t.A, -t.E
	b := bufio.NewWriter(w)
	fmt.Fprintf(b, "ncols %d\n", cols)
	fmt.Fprintf(b, "nrows %d\n", rows)
	fmt.Fprintf(b, "xllcorner %s\n", formatFloat64(t.C))
	fmt.Fprintf(b, "yllcorner %s\n", formatFloat64(t.F-float64(rows)*dy))
	if dx == dy {
		fmt.Fprintf(b, "cellsize %s\n", formatFloat64(dx))
	} else {
		fmt.Fprintf(b, "dx %s\n", formatFloat64(dx))
		fmt.Fprintf(b, "dy %s\n", formatFloat64(dy))
	}
	if r.HasNoData {
		fmt.Fprintf(b, "NODATA_value %s\n", formatFloat32(r.NoData))
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(formatFloat32(r.Data.Elements[i*cols+j]))
		}
		b.WriteByte('\n')
	}
	return b.Flush()
}

// isValue returns whether tok is a grid value rather than a header key.
func isValue(tok string) bool {
	if c := tok[0]; (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' {
		return true
	}
	l := strings.ToLower(tok)
	return strings.HasPrefix(l, "nan") || strings.HasPrefix(l, "inf")
}

// formatFloat32 formats v rounded to float32 precision so that parsing
// the text as a float64 gives back exactly float64(float32(v)).
func formatFloat32(v float64) string {
	return strconv.FormatFloat(float64(float32(v)), 'g', -1, 64)
}

func formatFloat64(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
