// Copyright (C) 2026 Realm Sync Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSStore implements Store on a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
}

var _ Store = (*GCSStore)(nil)

// NewGCS opens a GCS-backed store. An empty credentialsFile uses
// application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket name is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

func (s *GCSStore) Driver() Driver { return DriverGCS }

func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	obj := s.client.Bucket(s.bucket).Object(key)
	w := obj.NewWriter(ctx)
	w.ContentType = opts.ContentType
	w.Metadata = cloneMetadata(opts.Metadata)
	w.CacheControl = "no-cache, no-store, must-revalidate"

	size, err := io.Copy(w, r)
	if err != nil {
		_ = w.Close()
		return Info{}, fmt.Errorf("failed to copy to GCS object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return Info{}, fmt.Errorf("failed to close GCS writer for %s: %w", key, err)
	}
	return Info{Key: key, Size: size, ContentType: opts.ContentType,
		Metadata: cloneMetadata(opts.Metadata), LastModified: time.Now().UTC()}, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucket).Object(key)
	attrs, err := obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return Info{}, nil, ErrNotFound
	}
	if err != nil {
		return Info{}, nil, err
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		return Info{}, nil, err
	}
	return infoFromAttrs(attrs), r, nil
}

func (s *GCSStore) Head(ctx context.Context, key string) (Info, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return Info{}, ErrNotFound
	}
	if err != nil {
		return Info{}, err
	}
	return infoFromAttrs(attrs), nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) (bool, error) {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]Info, error) {
	var out []Info
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, infoFromAttrs(attrs))
	}
}

func (s *GCSStore) SignedURL(_ context.Context, key string, opts SignedURLOptions) (string, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	expiry := opts.Expiry
	if expiry == 0 {
		expiry = 15 * time.Minute
	}
	return s.client.Bucket(s.bucket).SignedURL(key, &storage.SignedURLOptions{
		Method:  method,
		Expires: time.Now().Add(expiry),
	})
}

func infoFromAttrs(attrs *storage.ObjectAttrs) Info {
	return Info{
		Key:          attrs.Name,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		Metadata:     cloneMetadata(attrs.Metadata),
		LastModified: attrs.Updated,
	}
}
