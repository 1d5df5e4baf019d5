/*
Copyright (C) 2026  Loro-Go Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 layout: <prefix>/<store>/<key>. S3 has no directories; keys just
// happen to share a "/"-delimited namespace, which is all ListObjectsV2
// with a Prefix needs to emulate our List(prefix).

func init() {
	BackendRegistry["s3"] = func(raw json.RawMessage) BackendFactory {
		var cfg S3Factory
		if err := json.Unmarshal(raw, &cfg); err != nil {
			panic("s3 backend: invalid config: " + err.Error())
		}
		return &cfg
	}
}

type S3Factory struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`        // custom endpoint for S3-compatible storage (MinIO, etc.)
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	ForcePathStyle  bool   `json:"force_path_style"` // required for MinIO
}

func (f *S3Factory) Open(store string) Backend {
	pfx := strings.TrimSuffix(f.Prefix, "/")
	if pfx != "" {
		pfx = pfx + "/" + store
	} else {
		pfx = store
	}
	return &S3Backend{factory: f, prefix: pfx}
}

type S3Backend struct {
	factory *S3Factory
	prefix  string

	mu     sync.Mutex
	client *s3.Client
	opened bool
}

func (s *S3Backend) ensureOpen() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return
	}

	ctx := context.Background()
	var opts []func(*config.LoadOptions) error
	if s.factory.Region != "" {
		opts = append(opts, config.WithRegion(s.factory.Region))
	}
	if s.factory.AccessKeyID != "" && s.factory.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				s.factory.AccessKeyID,
				s.factory.SecretAccessKey,
				"",
			),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		panic(fmt.Sprintf("S3Backend: failed to load AWS config: %v", err))
	}

	var s3Opts []func(*s3.Options)
	if s.factory.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(s.factory.Endpoint)
		})
	}
	if s.factory.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	s.client = s3.NewFromConfig(cfg, s3Opts...)
	s.opened = true
}

func (s *S3Backend) key(name string) string {
	return s.prefix + "/" + name
}

func (s *S3Backend) Read(key string) io.ReadCloser {
	s.ensureOpen()
	resp, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.factory.Bucket),
		Key:    aws.String(s.key(key)),
	})
	if err != nil {
		return ErrorReader{err}
	}
	return resp.Body
}

type s3WriteCloser struct {
	s      *S3Backend
	key    string
	buf    bytes.Buffer
	closed bool
}

func (w *s3WriteCloser) Write(p []byte) (int, error) {
	if w.closed {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

func (w *s3WriteCloser) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	_, err := w.s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(w.s.factory.Bucket),
		Key:    aws.String(w.key),
		Body:   bytes.NewReader(w.buf.Bytes()),
	})
	return err
}

func (s *S3Backend) Write(key string) io.WriteCloser {
	s.ensureOpen()
	return &s3WriteCloser{s: s, key: s.key(key)}
}

func (s *S3Backend) Remove(key string) {
	s.ensureOpen()
	_, _ = s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.factory.Bucket),
		Key:    aws.String(s.key(key)),
	})
}

func (s *S3Backend) List(prefix string) []string {
	s.ensureOpen()
	var out []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.factory.Bucket),
		Prefix: aws.String(s.key(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(context.Background())
		if err != nil {
			break
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			out = append(out, strings.TrimPrefix(*obj.Key, s.prefix+"/"))
		}
	}
	return out
}
