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

// Package scarputil contains the command-line interface and the
// input/output plumbing of scarp.
package scarputil

import (
	"context"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/scarp"
	"github.com/spatialmodel/scarp/raster"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to scarp.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Elevation",
			usage: `
              Elevation is the path to the digital elevation model raster
              (.asc, .tif, or .nc). It can be a local file, an http(s) address, or a
              blob storage location such as s3://bucket/dem.asc.`,
			shorthand:  "e",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Perimeter",
			usage: `
              Perimeter is the path to the release perimeter. It can be a
              raster with the same shape as the elevation raster, where cells
              with values > 0 are inside the perimeter, or a polygon file
              (.shp, .geojson, or .json) which will be rasterized onto the
              elevation grid.`,
			shorthand:  "p",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ScarpOutput",
			usage: `
              ScarpOutput is the path where the scarp surface raster should
              be written. The format is chosen from the extension: .asc,
              .tif/.tiff, or .nc/.ncf.`,
			defaultVal: "scarp.asc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ReleaseOutput",
			usage: `
              ReleaseOutput is the path where the release depth raster should
              be written.`,
			defaultVal: "release.asc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to the log file. If it is empty,
              the log is written next to ScarpOutput with a .log extension.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Method",
			usage: `
              Method is the failure geometry used to build the scarp surface:
              'plane' for sliding planes or 'ellipsoid' for ellipsoidal
              depressions.`,
			shorthand:  "m",
			defaultVal: "plane",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Features",
			usage: `
              Features is a comma-separated list of feature values, five per
              feature. For planes the values are
              (seed east, seed north, seed elevation, dip, slope) with angles
              in degrees; for ellipsoids they are
              (center east, center north, max depth, semi-major axis,
              semi-minor axis).`,
			shorthand:  "f",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "PreviewFile",
			usage: `
              PreviewFile is the path of a PNG image showing the release
              depth. If it is empty, no image is created.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), previewCmd.Flags()},
		},
		{
			name: "NumProcessors",
			usage: `
              NumProcessors is the number of processors to use for the
              calculations. Values <= 0 use all available processors.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("SCARP")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(previewCmd)
	Root.AddCommand(infoCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("scarp: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "scarp",
	Short: "Generate failure surfaces and release depths.",
	Long: `scarp derives failure (scarp) surfaces and release-depth grids for
avalanche and landslide release modeling from a digital elevation model, a
release perimeter, and one or more sliding planes or ellipsoidal depressions.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SCARP_var' where 'var' is the
name of the variable to be set. Path variables are additionally allowed to
contain environment variables within them.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of scarp.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("scarp v%s\n", scarp.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute the scarp surface and release depth.",
	Long: `run computes the scarp surface and the release depth for the
configured elevation raster, perimeter, method and features, and writes
them to ScarpOutput and ReleaseOutput.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ReadConfig(Cfg)
		if err != nil {
			return err
		}
		_, err = Run(cmd, c)
		return err
	},
	DisableAutoGenTag: true,
}

var previewCmd = &cobra.Command{
	Use:   "preview release_raster",
	Short: "Render a release-depth raster as a PNG image.",
	Long: `preview renders an existing release-depth raster as a PNG image
and writes it to PreviewFile.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		out, err := checkOutputFile(Cfg.GetString("PreviewFile"))
		if err != nil {
			return err
		}
		var up uploader
		path, err := maybeDownload(ctx, os.ExpandEnv(args[0]), nil)
		if err != nil {
			return err
		}
		r, err := raster.Read(path)
		if err != nil {
			return err
		}
		if err = writePreview(up.maybeUpload(out), r); err != nil {
			return err
		}
		return up.uploadOutput(ctx)
	},
	DisableAutoGenTag: true,
}

var infoCmd = &cobra.Command{
	Use:   "info raster [raster...]",
	Short: "Print information about rasters.",
	Long: `info prints the shape, georeferencing, coordinate reference
system and value statistics of one or more rasters.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		for _, a := range args {
			path, err := maybeDownload(ctx, os.ExpandEnv(a), nil)
			if err != nil {
				return err
			}
			r, err := raster.Read(path)
			if err != nil {
				return err
			}
			if err = Info(cmd.OutOrStdout(), a, r); err != nil {
				return err
			}
		}
		return nil
	},
	DisableAutoGenTag: true,
}
