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
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/scarp/raster"
	"github.com/spf13/cobra"
)

func tempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "scarp_test")
	if err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRunPlane(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	Cfg.Set("Elevation", "testdata/dem.asc")
	Cfg.Set("Perimeter", "testdata/perimeter.geojson")
	Cfg.Set("ScarpOutput", filepath.Join(dir, "scarp.asc"))
	Cfg.Set("ReleaseOutput", filepath.Join(dir, "release.nc"))
	Cfg.Set("PreviewFile", filepath.Join(dir, "release.png"))
	Cfg.Set("Method", "plane")
	Cfg.Set("Features", "0,0,900,0,0")

	var out bytes.Buffer
	Root.SetOut(&out)
	Root.SetArgs([]string{"run"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}

	release, err := raster.Read(filepath.Join(dir, "release.nc"))
	if err != nil {
		t.Fatal(err)
	}
	scarp, err := raster.Read(filepath.Join(dir, "scarp.asc"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			wantRelease, wantScarp := 0., 1000.
			if i >= 1 && i <= 4 && j >= 1 && j <= 4 {
				wantRelease, wantScarp = 100, 900
			}
			if i == 0 && j == 0 {
				wantRelease, wantScarp = -9999, -9999
			}
			if v := release.Data.Get(i, j); v != wantRelease {
				t.Errorf("release (%d, %d) = %g; want %g", i, j, v, wantRelease)
			}
			if v := scarp.Data.Get(i, j); v != wantScarp {
				t.Errorf("scarp (%d, %d) = %g; want %g", i, j, v, wantScarp)
			}
		}
	}

	for _, f := range []string{"scarp.log", "release.png"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("missing output %s: %v", f, err)
		}
	}
	logText, err := ioutil.ReadFile(filepath.Join(dir, "scarp.log"))
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"release_cells=16", "max_depth=100", "volume=160000"} {
		if !strings.Contains(string(logText), s) {
			t.Errorf("log does not contain %q:\n%s", s, logText)
		}
	}
	if !strings.Contains(out.String(), "release_cells=16") {
		t.Errorf("command output does not contain the summary:\n%s", out.String())
	}
}

func TestRunConfigFile(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	cfg := viper.New()
	cfg.SetConfigFile("testdata/config.toml")
	if err := cfg.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	cfg.Set("ScarpOutput", filepath.Join(dir, "scarp.tif"))
	cfg.Set("ReleaseOutput", filepath.Join(dir, "release.asc"))
	c, err := ReadConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if c.NumProcessors != 2 {
		t.Errorf("NumProcessors = %d; want 2", c.NumProcessors)
	}

	cmd := new(cobra.Command)
	var out bytes.Buffer
	cmd.SetOut(&out)
	s, err := Run(cmd, c)
	if err != nil {
		t.Fatal(err)
	}
	if s.ReleaseCells != 9 {
		t.Errorf("release cells = %d; want 9", s.ReleaseCells)
	}
	if s.MaxDepth != 50 {
		t.Errorf("max depth = %g; want 50", s.MaxDepth)
	}
	if s.Volume.Value() != 30000 {
		t.Errorf("volume = %v; want 30000 m³", s.Volume)
	}

	release, err := raster.Read(filepath.Join(dir, "release.asc"))
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range []struct {
		i, j int
		want float64
	}{
		{i: 3, j: 2, want: 50},
		{i: 2, j: 2, want: 37.5},
		{i: 3, j: 3, want: 37.5},
		{i: 4, j: 3, want: 25},
		{i: 1, j: 2, want: 0},
		{i: 5, j: 5, want: 0},
		{i: 0, j: 0, want: -9999},
	} {
		if v := release.Data.Get(test.i, test.j); v != test.want {
			t.Errorf("release (%d, %d) = %g; want %g", test.i, test.j, v, test.want)
		}
	}
	scarpTIF, err := raster.Read(filepath.Join(dir, "scarp.tif"))
	if err != nil {
		t.Fatal(err)
	}
	if v := scarpTIF.Data.Get(3, 2); v != 950 {
		t.Errorf("scarp (3, 2) = %g; want 950", v)
	}
	if scarpTIF.Transform != release.Transform {
		t.Errorf("scarp transform = %+v; want %+v", scarpTIF.Transform, release.Transform)
	}
	if _, err := os.Stat(filepath.Join(dir, "scarp.log")); err != nil {
		t.Errorf("missing log file: %v", err)
	}
}

func TestRunShapeMismatch(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)

	small := "ncols 2\nnrows 2\nxllcorner 0\nyllcorner 0\ncellsize 10\n1 1\n1 1\n"
	perim := filepath.Join(dir, "small.asc")
	if err := ioutil.WriteFile(perim, []byte(small), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := viper.New()
	cfg.Set("Elevation", "testdata/dem.asc")
	cfg.Set("Perimeter", perim)
	cfg.Set("ScarpOutput", filepath.Join(dir, "scarp.asc"))
	cfg.Set("ReleaseOutput", filepath.Join(dir, "release.asc"))
	cfg.Set("Method", "plane")
	cfg.Set("Features", "0,0,900,0,0")
	c, err := ReadConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	cmd := new(cobra.Command)
	cmd.SetOut(ioutil.Discard)
	if _, err := Run(cmd, c); err == nil || !strings.Contains(err.Error(), "different shapes") {
		t.Errorf("err = %v; want shape mismatch", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "scarp.asc")); !os.IsNotExist(err) {
		t.Error("no output should be written when the shapes differ")
	}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	Root.SetOut(&out)
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "scarp v") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestInfoCommand(t *testing.T) {
	var out bytes.Buffer
	Root.SetOut(&out)
	Root.SetArgs([]string{"info", "testdata/dem.asc"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"6 rows x 6 cols", "nodata:     -9999", "35 of 36 cells", "1000 / 1000 / 1000"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("info output does not contain %q:\n%s", s, out.String())
		}
	}
}

func TestPreviewCommand(t *testing.T) {
	dir := tempDir(t)
	defer os.RemoveAll(dir)
	png := filepath.Join(dir, "dem.png")
	Cfg.Set("PreviewFile", png)
	Root.SetOut(ioutil.Discard)
	Root.SetArgs([]string{"preview", "testdata/perimeter.asc"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	b, err := ioutil.ReadFile(png)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Error("preview is not a PNG image")
	}
}
