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

package cloud

import (
	"context"
	"fmt"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

const gcsScheme = "gs://"

// GCSObject addresses a single object in Cloud Storage.
type GCSObject struct {
	Bucket   string
	Name     string
	MIMEType string
}

// URI renders the object as gs://bucket/name.
func (o GCSObject) URI() string {
	return gcsScheme + o.Bucket + "/" + o.Name
}

// ParseGCSURI is the inverse of GCSObject.URI.
func ParseGCSURI(uri string) (GCSObject, error) {
	if !strings.HasPrefix(uri, gcsScheme) {
		return GCSObject{}, fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, name, ok := strings.Cut(strings.TrimPrefix(uri, gcsScheme), "/")
	if !ok || bucket == "" || name == "" {
		return GCSObject{}, fmt.Errorf("gs:// uri needs a bucket and an object name: %q", uri)
	}
	return GCSObject{Bucket: bucket, Name: name}, nil
}

// ArtifactObjectName places a run artifact under prefix/sessionID/runID.ext.
func ArtifactObjectName(prefix, sessionID, runID, ext string) string {
	if sessionID == "" {
		sessionID = "anonymous"
	}
	return path.Join(prefix, sessionID, runID+ext)
}

// ObjectWriter stores a complete object.
type ObjectWriter interface {
	WriteObject(ctx context.Context, object GCSObject, data []byte) error
}

// StorageObjectWriter writes objects with a Cloud Storage client.
type StorageObjectWriter struct {
	client *storage.Client
}

func NewStorageObjectWriter(client *storage.Client) *StorageObjectWriter {
	return &StorageObjectWriter{client: client}
}

func (w *StorageObjectWriter) WriteObject(ctx context.Context, object GCSObject, data []byte) error {
	writer := w.client.Bucket(object.Bucket).Object(object.Name).NewWriter(ctx)
	writer.ContentType = object.MIMEType
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write %s: %w", object.URI(), err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", object.URI(), err)
	}
	return nil
}
