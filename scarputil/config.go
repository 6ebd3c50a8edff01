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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/scarp"
	"github.com/spatialmodel/scarp/cloud"
	"github.com/spatialmodel/scarp/raster"
	"github.com/spf13/cast"
)

// ConfigData holds the validated configuration of a scarp run.
type ConfigData struct {
	// Elevation and Perimeter are the input locations.
	Elevation, Perimeter string

	// ScarpOutput and ReleaseOutput are the output raster locations.
	ScarpOutput, ReleaseOutput string

	// LogFile is the log file location.
	LogFile string

	// PreviewFile is the location of the release-depth image, or ""
	// if no image should be created.
	PreviewFile string

	// NumProcessors is the number of processors to use, where
	// values <= 0 mean all available processors.
	NumProcessors int

	scarp.Config
}

// ReadConfig reads and checks the configuration in cfg.
func ReadConfig(cfg *viper.Viper) (*ConfigData, error) {
	c := new(ConfigData)
	var err error

	if c.Elevation, err = checkInputFile("Elevation", cfg.GetString("Elevation")); err != nil {
		return nil, err
	}
	if c.Perimeter, err = checkInputFile("Perimeter", cfg.GetString("Perimeter")); err != nil {
		return nil, err
	}
	if c.ScarpOutput, err = checkRasterOutput("ScarpOutput", cfg.GetString("ScarpOutput")); err != nil {
		return nil, err
	}
	if c.ReleaseOutput, err = checkRasterOutput("ReleaseOutput", cfg.GetString("ReleaseOutput")); err != nil {
		return nil, err
	}
	if c.ScarpOutput == c.ReleaseOutput {
		return nil, fmt.Errorf("scarp: ScarpOutput and ReleaseOutput must be different files")
	}
	c.LogFile = checkLogFile(os.ExpandEnv(cfg.GetString("LogFile")), c.ScarpOutput)
	if p := cfg.GetString("PreviewFile"); p != "" {
		if c.PreviewFile, err = checkOutputFile(p); err != nil {
			return nil, err
		}
	}
	c.NumProcessors = cfg.GetInt("NumProcessors")

	if c.Method, err = scarp.ParseMethod(cfg.GetString("Method")); err != nil {
		return nil, err
	}
	if c.Features, err = features(cfg.Get("Features")); err != nil {
		return nil, err
	}
	// Check the features now rather than after the inputs are loaded.
	if _, err = c.Model(); err != nil {
		return nil, err
	}
	return c, nil
}

// features converts a feature configuration value, which may be a
// comma-separated string or a list of numbers, to a list of values.
func features(v interface{}) ([]float64, error) {
	if s, ok := v.(string); ok {
		return scarp.ParseFeatures(os.ExpandEnv(s))
	}
	list, err := cast.ToSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("scarp: invalid Features value %#v: %v", v, err)
	}
	o := make([]float64, len(list))
	for i, f := range list {
		if o[i], err = cast.ToFloat64E(f); err != nil {
			return nil, fmt.Errorf("scarp: invalid feature value %d: %v", i, err)
		}
	}
	return o, nil
}

// checkInputFile makes sure that an input file is specified and expands
// any environment variables.
func checkInputFile(name, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("scarp: you need to specify the %s configuration variable (for example: %s=\"dem.asc\")", name, name)
	}
	return os.ExpandEnv(f), nil
}

// checkRasterOutput checks an output file location and makes sure
// that it has a supported raster format.
func checkRasterOutput(name, f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("scarp: you need to specify the %s configuration variable (for example: %s=\"out.asc\")", name, name)
	}
	f, err := checkOutputFile(f)
	if err != nil {
		return f, err
	}
	if _, err = raster.Format(f); err != nil {
		return f, fmt.Errorf("scarp: %s: %w", name, err)
	}
	return f, nil
}

// checkOutputFile makes sure that the directory of the output file exists,
// and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("scarp: output file not specified")
	}
	f = os.ExpandEnv(f)
	if cloud.IsBlob(f) {
		bucketName, _, err := cloud.SplitURL(f)
		if err != nil {
			return f, err
		}
		b, err := cloud.OpenBucket(context.TODO(), bucketName)
		if err != nil {
			return f, fmt.Errorf("scarp: error when checking output location %s: %v", f, err)
		}
		b.Close()
		return f, nil
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("scarp: the output directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}
