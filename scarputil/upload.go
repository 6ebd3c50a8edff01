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
	"io/ioutil"
	"os"
	"path"
	"path/filepath"

	"github.com/spatialmodel/scarp/cloud"
)

type uploader struct {
	// files holds the local file paths and the blob storage paths
	// they should be uploaded to.
	files []upload
	err   error
	dir   string
}

type upload struct {
	local, remote string

	// sidecar files are skipped if they were never written.
	sidecar bool
}

// uploadOutput uploads the registered files to blob storage.
func (u *uploader) uploadOutput(ctx context.Context) error {
	if u.err != nil {
		return u.err
	}
	for _, f := range u.files {
		if _, err := os.Stat(f.local); os.IsNotExist(err) && f.sidecar {
			continue
		}
		if err := cloud.Upload(ctx, f.local, f.remote); err != nil {
			return err
		}
	}
	return nil
}

// maybeUpload checks whether the given output file path refers to
// a blob storage location. If it does, then a temporary file location
// is returned. The file will then be uploaded to blob storage when
// uploadOutput method is run.
func (u *uploader) maybeUpload(p string) string {
	if u.err != nil {
		return ""
	}
	if !cloud.IsBlob(p) {
		return p
	}
	if u.dir == "" {
		u.dir, u.err = ioutil.TempDir("", "scarp")
		if u.err != nil {
			return ""
		}
	}
	for i, f := range append([]string{p}, cloud.Sidecars(p)...) {
		u.files = append(u.files, upload{
			local:   filepath.Join(u.dir, path.Base(f)),
			remote:  f,
			sidecar: i != 0,
		})
	}
	return filepath.Join(u.dir, path.Base(p))
}
