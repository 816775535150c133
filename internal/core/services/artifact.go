// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package services contains the operations the HTTP layer exposes. This file
// defines ArtifactService, which lists the stored products of a session and
// issues time-limited download URLs for them.
package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/jaycherian/gcp-go-video-summarizer/internal/cloud"
)

type ArtifactInfo struct {
	URI         string    `json:"uri"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	Created     time.Time `json:"created"`
}

type ArtifactService struct {
	StorageClient *storage.Client
	IAMClient     *credentials.IamCredentialsClient
	SignerEmail   string // Service account whose key signs download URLs.
	Bucket        string
	Prefix        string
	Expiry        time.Duration
}

// SignedURL returns a V4 GET URL for a gs:// artifact. Only objects under the
// service's bucket and prefix can be signed.
func (s *ArtifactService) SignedURL(ctx context.Context, uri string) (string, error) {
	object, err := cloud.ParseGCSURI(uri)
	if err != nil {
		return "", err
	}
	if object.Bucket != s.Bucket || !strings.HasPrefix(object.Name, s.Prefix) {
		return "", fmt.Errorf("%s is not a summary artifact", uri)
	}
	if s.SignerEmail == "" {
		return "", errors.New("no signer service account configured")
	}

	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(s.Expiry),
		GoogleAccessID: s.SignerEmail,
		// Signing goes through the IAM Credentials API, so no key file is needed.
		SignBytes: func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		},
	}

	u, err := s.StorageClient.Bucket(object.Bucket).SignedURL(object.Name, opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", object.Bucket, object.Name, err)
	}
	return u, nil
}

// List returns the artifacts stored for sessionID, oldest first.
func (s *ArtifactService) List(ctx context.Context, sessionID string) ([]ArtifactInfo, error) {
	query := &storage.Query{Prefix: path.Join(s.Prefix, sessionID) + "/"}
	it := s.StorageClient.Bucket(s.Bucket).Objects(ctx, query)

	out := make([]ArtifactInfo, 0)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing gs://%s/%s: %w", s.Bucket, query.Prefix, err)
		}
		out = append(out, ArtifactInfo{
			URI:         cloud.GCSObject{Bucket: attrs.Bucket, Name: attrs.Name}.URI(),
			ContentType: attrs.ContentType,
			Size:        attrs.Size,
			Created:     attrs.Created,
		})
	}
	return out, nil
}
