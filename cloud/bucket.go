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

// Package cloud provides access to the blob storage locations that
// scarp reads inputs from and writes outputs to.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/s3blob"
	"gocloud.dev/gcp"
)

// IsBlob returns whether the given filename represents a blob
// (i.e., if it starts with 'gs://', 's3://', or 'file://').
func IsBlob(path string) bool {
	return strings.HasPrefix(path, "gs://") || strings.HasPrefix(path, "s3://") || strings.HasPrefix(path, "file://")
}

// SplitURL splits a blob URL such as 's3://bucket/dir/dem.asc' into
// the bucket name ('s3://bucket') and the key within the bucket
// ('dir/dem.asc').
func SplitURL(path string) (bucketName, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("cloud: parsing blob url: %v", err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Scheme == "" || u.Host == "" || key == "" {
		return "", "", fmt.Errorf("cloud: invalid blob url %q; want 'provider://bucket/key'", path)
	}
	return u.Scheme + "://" + u.Host, key, nil
}

// ErrProvider is returned for blob URLs whose scheme is not a
// supported storage provider.
var ErrProvider = errors.New("cloud: unsupported storage provider; use file, gs, or s3")

// providers open a bucket by name for each URL scheme.
var providers = map[string]func(ctx context.Context, name string) (*blob.Bucket, error){
	"file": fileBucket,
	"gs":   gsBucket,
	"s3":   s3Bucket,
}

// OpenBucket opens the bucket named by a 'provider://name' URL, for
// example 'gs://my-bucket'. Anything after the bucket name is ignored.
// A "file" bucket is a directory on the local filesystem, relative to
// the working directory, and is mostly useful for testing.
func OpenBucket(ctx context.Context, bucketName string) (*blob.Bucket, error) {
	u, err := url.Parse(bucketName)
	if err != nil {
		return nil, fmt.Errorf("cloud: parsing bucket name: %v", err)
	}
	open, ok := providers[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProvider, bucketName)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("cloud: no bucket name in %q", bucketName)
	}
	b, err := open(ctx, u.Hostname())
	if err != nil {
		return nil, fmt.Errorf("cloud: opening bucket %s: %v", bucketName, err)
	}
	return b, nil
}

func fileBucket(_ context.Context, dir string) (*blob.Bucket, error) {
	return fileblob.OpenBucket(dir, nil)
}

// gsBucket opens a Google Cloud Storage bucket using the application
// default credentials.
func gsBucket(ctx context.Context, name string) (*blob.Bucket, error) {
	creds, err := gcp.DefaultCredentials(ctx)
	if err != nil {
		return nil, err
	}
	client, err := gcp.NewHTTPClient(gcp.DefaultTransport(), gcp.CredentialsTokenSource(creds))
	if err != nil {
		return nil, err
	}
	return gcsblob.OpenBucket(ctx, client, name, nil)
}

// s3Bucket opens an AWS S3 bucket with credentials from
// AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY. The region is taken
// from AWS_REGION and defaults to us-east-2.
func s3Bucket(ctx context.Context, name string) (*blob.Bucket, error) {
	region, ok := os.LookupEnv("AWS_REGION")
	if !ok || region == "" {
		region = "us-east-2"
	}
	sess, err := session.NewSession(aws.NewConfig().
		WithRegion(region).
		WithCredentials(credentials.NewEnvCredentials()))
	if err != nil {
		return nil, err
	}
	return s3blob.OpenBucket(ctx, sess, name, nil)
}
