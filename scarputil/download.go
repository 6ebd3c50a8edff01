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
	"io/ioutil"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/scarp/cloud"
)

// maybeDownload checks if the input is an existing file locally.
// If not, it checks if the file is a URL or blob location.
// If it is, it downloads the file along with its sidecar files and
// returns the path to the downloaded file. Otherwise, it returns path.
// log, if not nil, receives progress messages.
func maybeDownload(ctx context.Context, p string, log logrus.FieldLogger) (string, error) {
	// Check if local file exists. If it does, return the given path.
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		return p, nil
	}

	var get func(src, dst string) (notFound bool, err error)
	switch {
	case strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://"):
		get = downloadHTTP
	case cloud.IsBlob(p):
		get = func(src, dst string) (bool, error) {
			err := cloud.Download(ctx, src, dst)
			return cloud.IsNotExist(err), err
		}
	default:
		return p, nil
	}

	// Prepare a temporary directory for the downloads.
	dir, err := ioutil.TempDir("", "scarp")
	if err != nil {
		return p, fmt.Errorf("scarp: failed creating temporary download directory: %v", err)
	}
	if log != nil {
		log.WithField("source", p).Info("downloading input")
	}
	for i, src := range append([]string{p}, cloud.Sidecars(p)...) {
		dst := filepath.Join(dir, path.Base(src))
		notFound, err := get(src, dst)
		if err != nil {
			if i != 0 && notFound && strings.HasSuffix(src, ".prj") {
				continue // projection files are optional.
			}
			return p, fmt.Errorf("scarp: downloading %s: %v", src, err)
		}
	}
	return filepath.Join(dir, path.Base(p)), nil
}

// downloadHTTP downloads a file from the specified URL to the local
// path dst.
func downloadHTTP(url, dst string) (notFound bool, err error) {
	resp, err := http.Get(url)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode == http.StatusNotFound, fmt.Errorf("http status %s", resp.Status)
	}
	w, err := os.Create(dst)
	if err != nil {
		return false, err
	}
	if _, err = io.Copy(w, resp.Body); err != nil {
		w.Close()
		return false, err
	}
	return false, w.Close()
}
