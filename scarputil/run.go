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
	"io"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/ctessum/sparse"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/scarp"
	"github.com/spatialmodel/scarp/raster"
	"github.com/spf13/cobra"
)

// Run computes the scarp surface and release depth described by c,
// writes the outputs, and returns a summary of the release depth.
// Log messages are written to the output of cmd and to c.LogFile.
func Run(cmd *cobra.Command, c *ConfigData) (*scarp.Summary, error) {
	startTime := time.Now()
	ctx := context.Background()

	var upload uploader

	logfile, err := os.Create(upload.maybeUpload(c.LogFile))
	if err != nil {
		return nil, fmt.Errorf("scarp: problem creating log file: %v", err)
	}
	log := logrus.New()
	log.SetOutput(io.MultiWriter(cmd.OutOrStdout(), logfile))
	log.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})

	s, err := run(ctx, log, c, &upload)
	if err != nil {
		log.WithError(err).Error("scarp run failed")
	} else {
		log.WithField("duration", time.Since(startTime).String()).Info("scarp run completed")
	}
	if cerr := logfile.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return s, upload.uploadOutput(ctx)
}

func run(ctx context.Context, log logrus.FieldLogger, c *ConfigData, upload *uploader) (*scarp.Summary, error) {
	if c.NumProcessors > 0 {
		defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(c.NumProcessors))
	}

	m, err := c.Model()
	if err != nil {
		return nil, err
	}

	elevPath, err := maybeDownload(ctx, c.Elevation, log)
	if err != nil {
		return nil, err
	}
	dem, err := raster.Read(elevPath)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"file": c.Elevation,
		"rows": dem.Rows(),
		"cols": dem.Cols(),
	}).Info("read elevation")

	perimPath, err := maybeDownload(ctx, c.Perimeter, log)
	if err != nil {
		return nil, err
	}
	perimeter, err := readPerimeter(perimPath, dem, log)
	if err != nil {
		return nil, err
	}

	scarpOut := upload.maybeUpload(c.ScarpOutput)
	releaseOut := upload.maybeUpload(c.ReleaseOutput)
	var previewOut string
	if c.PreviewFile != "" {
		previewOut = upload.maybeUpload(c.PreviewFile)
	}
	if upload.err != nil {
		return nil, upload.err
	}

	var summary scarp.Summary
	d := &scarp.Domain{
		InitFuncs: []scarp.DomainManipulator{
			scarp.SetInputs(dem.Data, perimeter, dem.Transform),
			scarp.CheckShapes(),
			excludeNoData(dem),
		},
		RunFuncs: []scarp.DomainManipulator{
			scarp.Calculations(m),
			scarp.CalcReleaseDepth(),
			func(d *scarp.Domain) error {
				summary = scarp.Summarize(d.Release, d.Transform)
				return nil
			},
			restoreNoData(dem),
		},
		CleanupFuncs: []scarp.DomainManipulator{
			writeOutput(scarpOut, dem, "scarp", func(d *scarp.Domain) *sparse.DenseArray { return d.Scarp }),
			writeOutput(releaseOut, dem, "release_depth", func(d *scarp.Domain) *sparse.DenseArray { return d.Release }),
		},
	}
	if previewOut != "" {
		d.CleanupFuncs = append(d.CleanupFuncs, func(d *scarp.Domain) error {
			return writePreview(previewOut, dem.Like("release_depth", d.Release))
		})
	}

	if err = d.Init(); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"method":   c.Method,
		"features": len(c.Features) / scarp.FeatureFields,
	}).Info("computing scarp surface")
	if err = d.Run(); err != nil {
		return nil, err
	}
	if err = d.Cleanup(); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"rows":          summary.Rows,
		"cols":          summary.Cols,
		"release_cells": summary.ReleaseCells,
		"max_depth":     summary.MaxDepth,
		"volume":        summary.Volume.Value(),
	}).Info(summary.String())
	return &summary, nil
}

// excludeNoData returns a function that removes nodata elevation cells
// from the release perimeter. The perimeter grid is copied first so that
// the input is left unchanged.
func excludeNoData(dem *raster.Raster) scarp.DomainManipulator {
	return func(d *scarp.Domain) error {
		p := sparse.ZerosDense(d.Perimeter.Shape...)
		copy(p.Elements, d.Perimeter.Elements)
		for i, z := range d.Elevation.Elements {
			if dem.IsNoData(z) {
				p.Elements[i] = 0
			}
		}
		d.Perimeter = p
		return nil
	}
}

// restoreNoData returns a function that marks the scarp and release depth of
// nodata elevation cells as nodata.
func restoreNoData(dem *raster.Raster) scarp.DomainManipulator {
	return func(d *scarp.Domain) error {
		fill := math.NaN()
		if dem.HasNoData {
			fill = dem.NoData
		}
		for i, z := range d.Elevation.Elements {
			if dem.IsNoData(z) {
				d.Scarp.Elements[i] = fill
				d.Release.Elements[i] = fill
			}
		}
		return nil
	}
}

// writeOutput returns a function that writes the grid selected by get
// to path, georeferenced like dem.
func writeOutput(path string, dem *raster.Raster, name string, get func(*scarp.Domain) *sparse.DenseArray) scarp.DomainManipulator {
	return func(d *scarp.Domain) error {
		return raster.Write(path, dem.Like(name, get(d)))
	}
}
