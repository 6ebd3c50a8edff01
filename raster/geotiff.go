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
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/scarp"
	"golang.org/x/image/tiff/lzw"
)

// TIFF and GeoTIFF tags.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagPredictor       = 317
	tagTileWidth       = 322
	tagTileLength      = 323
	tagTileOffsets     = 324
	tagTileByteCounts  = 325
	tagSampleFormat    = 339
	tagPixelScale      = 33550
	tagTiepoint        = 33922
	tagTransformation  = 34264
	tagGeoKeyDirectory = 34735
	tagGeoASCIIParams  = 34737
	tagGDALNoData      = 42113
)

// TIFF field types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
)

var fieldSize = map[uint16]int{
	dtByte: 1, dtASCII: 1, dtShort: 2, dtLong: 4, dtRational: 8, dtSByte: 1,
	dtUndefined: 1, dtSShort: 2, dtSLong: 4, dtSRational: 8, dtFloat: 4, dtDouble: 8,
}

// Compression schemes.
const (
	cNone       = 1
	cLZW        = 5
	cDeflate    = 8
	cDeflateOld = 32946
)

// GeoTIFF keys.
const (
	keyModelType     = 1024
	keyRasterType    = 1025
	keyCitation      = 1026
	keyGeogCitation  = 2049
	keyPCSCitation   = 3073
	modelProjected   = 1
	modelGeographic  = 2
	rasterPixelArea  = 1
	rasterPixelPoint = 2
)

// readGeoTIFFFile and writeGeoTIFFFile are used by Read and Write for
// GeoTIFF files. Builds with the gdal tag replace them with versions
// backed by the GDAL library.
var (
	readGeoTIFFFile  = func(f *os.File) (*Raster, error) { return ReadGeoTIFF(f) }
	writeGeoTIFFFile = func(f *os.File, r *Raster) error { return WriteGeoTIFF(f, r) }
)

type tiffField struct {
	typ   uint16
	count int
	raw   []byte
}

type tiffDecoder struct {
	r      io.ReaderAt
	bo     binary.ByteOrder
	fields map[uint16]tiffField
}

// ReadGeoTIFF reads the first band of the first image in a GeoTIFF
// file. Integer and floating point samples are supported, stored in
// strips or tiles, uncompressed or with LZW or deflate compression.
// The coordinate reference system is taken from a GeoTIFF citation
// key holding well-known text, if there is one.
func ReadGeoTIFF(r io.ReaderAt) (*Raster, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, fmt.Errorf("reading TIFF header: %v", err)
	}
	d := &tiffDecoder{r: r, fields: make(map[uint16]tiffField)}
	switch string(hdr[:2]) {
	case "II":
		d.bo = binary.LittleEndian
	case "MM":
		d.bo = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a TIFF file")
	}
	switch d.bo.Uint16(hdr[2:]) {
	case 42:
	case 43:
		return nil, fmt.Errorf("BigTIFF files are not supported")
	default:
		return nil, fmt.Errorf("not a TIFF file")
	}
	if err := d.readIFD(int64(d.bo.Uint32(hdr[4:]))); err != nil {
		return nil, err
	}
	return d.decode()
}

func (d *tiffDecoder) readIFD(off int64) error {
	var n [2]byte
	if _, err := d.r.ReadAt(n[:], off); err != nil {
		return fmt.Errorf("reading TIFF directory: %v", err)
	}
	entries := make([]byte, 12*int(d.bo.Uint16(n[:])))
	if _, err := d.r.ReadAt(entries, off+2); err != nil {
		return fmt.Errorf("reading TIFF directory: %v", err)
	}
	for e := entries; len(e) >= 12; e = e[12:] {
		tag, typ := d.bo.Uint16(e[0:]), d.bo.Uint16(e[2:])
		size, ok := fieldSize[typ]
		if !ok {
			continue
		}
		count := int(d.bo.Uint32(e[4:]))
		raw := make([]byte, size*count)
		if len(raw) <= 4 {
			copy(raw, e[8:])
		} else if _, err := d.r.ReadAt(raw, int64(d.bo.Uint32(e[8:]))); err != nil {
			return fmt.Errorf("reading TIFF tag %d: %v", tag, err)
		}
		d.fields[tag] = tiffField{typ: typ, count: count, raw: raw}
	}
	return nil
}

// ints returns the values of an integer field.
func (d *tiffDecoder) ints(tag uint16) []int {
	f, ok := d.fields[tag]
	if !ok {
		return nil
	}
	o := make([]int, f.count)
	for i := range o {
		switch f.typ {
		case dtByte, dtUndefined:
			o[i] = int(f.raw[i])
		case dtShort:
			o[i] = int(d.bo.Uint16(f.raw[2*i:]))
		case dtLong:
			o[i] = int(d.bo.Uint32(f.raw[4*i:]))
		default:
			return nil
		}
	}
	return o
}

// value returns the first value of an integer field, or def if the
// field is missing.
func (d *tiffDecoder) value(tag uint16, def int) int {
	if v := d.ints(tag); len(v) > 0 {
		return v[0]
	}
	return def
}

// floats returns the values of a floating point field.
func (d *tiffDecoder) floats(tag uint16) []float64 {
	f, ok := d.fields[tag]
	if !ok {
		return nil
	}
	o := make([]float64, f.count)
	for i := range o {
		switch f.typ {
		case dtDouble:
			o[i] = math.Float64frombits(d.bo.Uint64(f.raw[8*i:]))
		case dtFloat:
			o[i] = float64(math.Float32frombits(d.bo.Uint32(f.raw[4*i:])))
		default:
			return nil
		}
	}
	return o
}

func (d *tiffDecoder) ascii(tag uint16) string {
	f, ok := d.fields[tag]
	if !ok || f.typ != dtASCII {
		return ""
	}
	return strings.TrimRight(string(f.raw), "\x00")
}

func (d *tiffDecoder) decode() (*Raster, error) {
	cols, rows := d.value(tagImageWidth, 0), d.value(tagImageLength, 0)
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("missing TIFF image dimensions")
	}
	bits := d.value(tagBitsPerSample, 1)
	sample, err := sampleReader(d.bo, bits, d.value(tagSampleFormat, 1))
	if err != nil {
		return nil, err
	}
	size := bits / 8
	spp := d.value(tagSamplesPerPixel, 1)
	if d.value(tagPlanarConfig, 1) == 2 {
		spp = 1 // the first chunks hold the first band only
	}
	predictor := d.value(tagPredictor, 1)
	if predictor != 1 && predictor != 2 {
		return nil, fmt.Errorf("unsupported TIFF predictor %d", predictor)
	}
	compression := d.value(tagCompression, cNone)

	var chunkW, chunkH int
	var offsets, counts []int
	if _, tiled := d.fields[tagTileWidth]; tiled {
		chunkW, chunkH = d.value(tagTileWidth, 0), d.value(tagTileLength, 0)
		offsets, counts = d.ints(tagTileOffsets), d.ints(tagTileByteCounts)
	} else {
		chunkW, chunkH = cols, d.value(tagRowsPerStrip, rows)
		if chunkH > rows {
			chunkH = rows
		}
		offsets, counts = d.ints(tagStripOffsets), d.ints(tagStripByteCounts)
	}
	if chunkW <= 0 || chunkH <= 0 {
		return nil, fmt.Errorf("invalid TIFF chunk size %dx%d", chunkW, chunkH)
	}
	across, down := (cols+chunkW-1)/chunkW, (rows+chunkH-1)/chunkH
	if len(offsets) < across*down || len(counts) < across*down {
		return nil, fmt.Errorf("TIFF file has %d data chunks; want %d", len(offsets), across*down)
	}

	o := &Raster{Data: sparse.ZerosDense(rows, cols)}
	for cy := 0; cy < down; cy++ {
		for cx := 0; cx < across; cx++ {
			k := cy*across + cx
			buf, err := d.chunk(int64(offsets[k]), int64(counts[k]), compression)
			if err != nil {
				return nil, err
			}
			if predictor == 2 {
				undoHorizontalPredictor(buf, d.bo, chunkW*spp*size, size, spp)
			}
			for i := 0; i < chunkH && cy*chunkH+i < rows; i++ {
				for j := 0; j < chunkW && cx*chunkW+j < cols; j++ {
					p := ((i*chunkW + j) * spp) * size
					if p+size > len(buf) {
						return nil, fmt.Errorf("TIFF data chunk %d is too short", k)
					}
					o.Data.Elements[(cy*chunkH+i)*cols+cx*chunkW+j] = sample(buf[p:])
				}
			}
		}
	}

	keys, err := d.geoKeys()
	if err != nil {
		return nil, err
	}
	if o.Transform, err = d.transform(keys); err != nil {
		return nil, err
	}
	for _, k := range []int{keyCitation, keyPCSCitation, keyGeogCitation} {
		if s, ok := keys[k].(string); ok && isWKT(s) {
			o.WKT = s
			break
		}
	}
	if nd := strings.TrimSpace(d.ascii(tagGDALNoData)); nd != "" {
		if o.NoData, err = strconv.ParseFloat(nd, 64); err != nil {
			return nil, fmt.Errorf("invalid nodata value %q", nd)
		}
		o.HasNoData = true
	}
	return o, nil
}

// chunk returns the decompressed contents of a strip or tile.
func (d *tiffDecoder) chunk(offset, n int64, compression int) ([]byte, error) {
	sr := io.NewSectionReader(d.r, offset, n)
	switch compression {
	case cNone:
		return ioutil.ReadAll(sr)
	case cLZW:
		r := lzw.NewReader(sr, lzw.MSB, 8)
		defer r.Close()
		return ioutil.ReadAll(r)
	case cDeflate, cDeflateOld:
		r, err := zlib.NewReader(sr)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return ioutil.ReadAll(r)
	default:
		return nil, fmt.Errorf("unsupported TIFF compression %d", compression)
	}
}

// sampleReader returns a function that converts one stored sample to
// a float64.
func sampleReader(bo binary.ByteOrder, bits, format int) (func([]byte) float64, error) {
	switch {
	case format == 3 && bits == 32:
		return func(b []byte) float64 { return float64(math.Float32frombits(bo.Uint32(b))) }, nil
	case format == 3 && bits == 64:
		return func(b []byte) float64 { return math.Float64frombits(bo.Uint64(b)) }, nil
	case format == 2 && bits == 8:
		return func(b []byte) float64 { return float64(int8(b[0])) }, nil
	case format == 2 && bits == 16:
		return func(b []byte) float64 { return float64(int16(bo.Uint16(b))) }, nil
	case format == 2 && bits == 32:
		return func(b []byte) float64 { return float64(int32(bo.Uint32(b))) }, nil
	case format == 1 && bits == 8:
		return func(b []byte) float64 { return float64(b[0]) }, nil
	case format == 1 && bits == 16:
		return func(b []byte) float64 { return float64(bo.Uint16(b)) }, nil
	case format == 1 && bits == 32:
		return func(b []byte) float64 { return float64(bo.Uint32(b)) }, nil
	}
	return nil, fmt.Errorf("unsupported TIFF sample format %d with %d bits", format, bits)
}

// undoHorizontalPredictor reverses horizontal differencing of integer
// samples, row by row.
func undoHorizontalPredictor(buf []byte, bo binary.ByteOrder, rowLen, size, spp int) {
	for r := 0; r+rowLen <= len(buf); r += rowLen {
		row := buf[r : r+rowLen]
		for i := size * spp; i+size <= len(row); i += size {
			prev := i - size*spp
			switch size {
			case 1:
				row[i] += row[prev]
			case 2:
				bo.PutUint16(row[i:], bo.Uint16(row[i:])+bo.Uint16(row[prev:]))
			case 4:
				bo.PutUint32(row[i:], bo.Uint32(row[i:])+bo.Uint32(row[prev:]))
			}
		}
	}
}

// geoKeys returns the GeoTIFF keys, holding either int or string values.
func (d *tiffDecoder) geoKeys() (map[int]interface{}, error) {
	dir := d.ints(tagGeoKeyDirectory)
	keys := make(map[int]interface{})
	if len(dir) < 4 {
		return keys, nil
	}
	params := d.ascii(tagGeoASCIIParams)
	for k := dir[4:]; len(k) >= 4; k = k[4:] {
		id, loc, count, value := k[0], k[1], k[2], k[3]
		switch loc {
		case 0:
			keys[id] = value
		case tagGeoASCIIParams:
			if value+count > len(params) {
				return nil, fmt.Errorf("GeoTIFF key %d is out of range", id)
			}
			keys[id] = strings.TrimRight(params[value:value+count], "|\x00")
		}
	}
	return keys, nil
}

func (d *tiffDecoder) transform(keys map[int]interface{}) (scarp.Affine, error) {
	var t scarp.Affine
	if m := d.floats(tagTransformation); len(m) == 16 {
		t = scarp.Affine{A: m[0], B: m[1], C: m[3], D: m[4], E: m[5], F: m[7]}
	} else if s, tp := d.floats(tagPixelScale), d.floats(tagTiepoint); len(s) >= 2 && len(tp) >= 6 {
		t = scarp.Affine{A: s[0], C: tp[3] - tp[0]*s[0], E: -s[1], F: tp[4] + tp[1]*s[1]}
	} else {
		return t, fmt.Errorf("GeoTIFF file has no georeferencing")
	}
	if keys[keyRasterType] == rasterPixelPoint {
		// Tie points refer to pixel centers.
		t.C -= (t.A + t.B) / 2
		t.F -= (t.D + t.E) / 2
	}
	return t, nil
}

func isWKT(s string) bool {
	for _, p := range []string{"PROJCS[", "GEOGCS[", "PROJCRS[", "GEOGCRS[", "COMPD_CS["} {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// ifdEntry is a TIFF directory entry with its value encoded.
type ifdEntry struct {
	tag, typ uint16
	count    int
	data     []byte
}

func shortEntry(bo binary.ByteOrder, tag uint16, v ...int) ifdEntry {
	b := make([]byte, 2*len(v))
	for i, x := range v {
		bo.PutUint16(b[2*i:], uint16(x))
	}
	return ifdEntry{tag: tag, typ: dtShort, count: len(v), data: b}
}

func longEntry(bo binary.ByteOrder, tag uint16, v ...int) ifdEntry {
	b := make([]byte, 4*len(v))
	for i, x := range v {
		bo.PutUint32(b[4*i:], uint32(x))
	}
	return ifdEntry{tag: tag, typ: dtLong, count: len(v), data: b}
}

func doubleEntry(bo binary.ByteOrder, tag uint16, v ...float64) ifdEntry {
	b := make([]byte, 8*len(v))
	for i, x := range v {
		bo.PutUint64(b[8*i:], math.Float64bits(x))
	}
	return ifdEntry{tag: tag, typ: dtDouble, count: len(v), data: b}
}

func asciiEntry(tag uint16, s string) ifdEntry {
	return ifdEntry{tag: tag, typ: dtASCII, count: len(s) + 1, data: append([]byte(s), 0)}
}

// writeTIFF writes a single-image TIFF file whose pixel data is stored
// in one strip. The strip location entries are added to entries.
func writeTIFF(w io.Writer, bo binary.ByteOrder, entries []ifdEntry, strip []byte) error {
	const hdrLen = 8
	entries = append(entries,
		longEntry(bo, tagStripOffsets, hdrLen),
		longEntry(bo, tagStripByteCounts, len(strip)),
	)
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	ifdOff := hdrLen + len(strip)
	pad := ifdOff % 2
	ifdOff += pad
	valueOff := ifdOff + 2 + 12*len(entries) + 4

	var b bytes.Buffer
	if bo == binary.ByteOrder(binary.BigEndian) {
		b.WriteString("MM")
	} else {
		b.WriteString("II")
	}
	var u16 [2]byte
	var u32 [4]byte
	bo.PutUint16(u16[:], 42)
	b.Write(u16[:])
	bo.PutUint32(u32[:], uint32(ifdOff))
	b.Write(u32[:])
	b.Write(strip)
	b.Write(make([]byte, pad))

	var values []byte
	bo.PutUint16(u16[:], uint16(len(entries)))
	b.Write(u16[:])
	for _, e := range entries {
		var ent [12]byte
		bo.PutUint16(ent[0:], e.tag)
		bo.PutUint16(ent[2:], e.typ)
		bo.PutUint32(ent[4:], uint32(e.count))
		if len(e.data) <= 4 {
			copy(ent[8:], e.data)
		} else {
			bo.PutUint32(ent[8:], uint32(valueOff+len(values)))
			values = append(values, e.data...)
			if len(values)%2 == 1 {
				values = append(values, 0)
			}
		}
		b.Write(ent[:])
	}
	b.Write(make([]byte, 4)) // no next directory
	b.Write(values)
	_, err := b.WriteTo(w)
	return err
}

// WriteGeoTIFF writes r to w as a deflate-compressed float32 GeoTIFF.
// The coordinate reference system is stored as well-known text in the
// GeoTIFF citation key and the nodata value in the GDAL nodata tag.
func WriteGeoTIFF(w io.Writer, r *Raster) error {
	bo := binary.LittleEndian
	rows, cols := r.Rows(), r.Cols()

	var strip bytes.Buffer
	zw := zlib.NewWriter(&strip)
	var v [4]byte
	for _, e := range r.Data.Elements {
		bo.PutUint32(v[:], math.Float32bits(float32(e)))
		if _, err := zw.Write(v[:]); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}

	entries := []ifdEntry{
		longEntry(bo, tagImageWidth, cols),
		longEntry(bo, tagImageLength, rows),
		shortEntry(bo, tagBitsPerSample, 32),
		shortEntry(bo, tagCompression, cDeflate),
		shortEntry(bo, tagPhotometric, 1),
		shortEntry(bo, tagSamplesPerPixel, 1),
		longEntry(bo, tagRowsPerStrip, rows),
		shortEntry(bo, tagPlanarConfig, 1),
		shortEntry(bo, tagSampleFormat, 3),
	}
	t := r.Transform
	if t.B == 0 && t.D == 0 {
		entries = append(entries,
			doubleEntry(bo, tagPixelScale, t.A, -t.E, 0),
			doubleEntry(bo, tagTiepoint, 0, 0, 0, t.C, t.F, 0),
		)
	} else {
		entries = append(entries, doubleEntry(bo, tagTransformation,
			t.A, t.B, 0, t.C,
			t.D, t.E, 0, t.F,
			0, 0, 0, 0,
			0, 0, 0, 1))
	}

	keys := [][4]int{{keyRasterType, 0, 1, rasterPixelArea}}
	if r.WKT != "" {
		if strings.HasPrefix(r.WKT, "GEOGCS[") || strings.HasPrefix(r.WKT, "GEOGCRS[") {
			keys = append(keys, [4]int{keyModelType, 0, 1, modelGeographic})
		} else {
			keys = append(keys, [4]int{keyModelType, 0, 1, modelProjected})
		}
		keys = append(keys, [4]int{keyCitation, tagGeoASCIIParams, len(r.WKT) + 1, 0})
		entries = append(entries, asciiEntry(tagGeoASCIIParams, r.WKT+"|"))
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i][0] < keys[j][0] })
	dir := []int{1, 1, 0, len(keys)}
	for _, k := range keys {
		dir = append(dir, k[:]...)
	}
	entries = append(entries, shortEntry(bo, tagGeoKeyDirectory, dir...))

	if r.HasNoData {
		entries = append(entries, asciiEntry(tagGDALNoData, formatFloat32(r.NoData)))
	}
	return writeTIFF(w, bo, entries, strip.Bytes())
}
