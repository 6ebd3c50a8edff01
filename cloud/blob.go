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

package cloud

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Download copies the blob at url to the local file path.
func Download(ctx context.Context, url, path string) error {
	bucketName, key, err := SplitURL(url)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return err
	}
	defer bucket.Close()
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("cloud: reading blob %s: %w", url, err)
	}
	defer r.Close()
	w, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cloud: %v", err)
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("cloud: downloading blob %s: %v", url, err)
	}
	return w.Close()
}

// Upload copies the local file at path to the blob at url.
func Upload(ctx context.Context, path, url string) error {
	bucketName, key, err := SplitURL(url)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketName)
	if err != nil {
		return err
	}
	defer bucket.Close()
	r, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cloud: opening file '%s' for upload: %v", path, err)
	}
	defer r.Close()
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", url, err)
	}
	if _, err = io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("cloud: copying blob %s: %v", url, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: writing blob %s: %v", url, err)
	}
	return nil
}

// IsNotExist returns whether err indicates that a blob does not exist.
func IsNotExist(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

// Sidecars returns the files that accompany the given file: the
// [.dbf, .shx, .prj] files of a shapefile and the .prj file of an
// ESRI ASCII grid. A missing .prj file is not an error.
func Sidecars(filename string) []string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	switch strings.ToLower(ext) {
	case ".shp":
		return []string{base + ".dbf", base + ".shx", base + ".prj"}
	case ".asc", ".tif", ".tiff":
		return []string{base + ".prj"}
	default:
		return nil
	}
}
