package chunk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

var _ Sink = &S3Sink{}

// S3Sink uploads each raster as its own object under bucket/prefix.
type S3Sink struct {
	svc    s3iface.S3API
	bucket string
	prefix string
	name   string
	codec  Codec
	buf    bytes.Buffer
}

// NewS3Sink returns a sink writing s3://bucket/prefix/<name>_<index><ext>.
func NewS3Sink(svc s3iface.S3API, bucket, prefix, name string, codec Codec) *S3Sink {
	if name == "" {
		name = DefaultPrefix
	}
	return &S3Sink{svc: svc, bucket: bucket, prefix: prefix, name: name, codec: codec}
}

// Key returns the object key of raster index.
func (s *S3Sink) Key(index uint32) string {
	return path.Join(s.prefix, RasterName(s.name, index, s.codec))
}

func (s *S3Sink) Put(ctx context.Context, index uint32, r *Raster) error {
	s.buf.Reset()
	if err := encodeRaster(&s.buf, s.codec, r); err != nil {
		return err
	}
	_, err := s.svc.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.Key(index)),
		Body:        bytes.NewReader(s.buf.Bytes()),
		ContentType: aws.String(s.codec.ContentType()),
	})
	return err
}

func (s *S3Sink) Close() error { return nil }

var _ Source = &S3Source{}

// S3Source downloads the raster objects under bucket/prefix sorted by the
// integer suffix of their keys.
type S3Source struct {
	svc     s3iface.S3API
	bucket  string
	codec   Codec
	entries []sequenceEntry
	next    int
}

// NewS3Source lists the objects under bucket/prefix whose base name starts
// with name and carries the codec's extension. An empty name matches any.
func NewS3Source(ctx context.Context, svc s3iface.S3API, bucket, prefix, name string, codec Codec) (*S3Source, error) {
	listPrefix := prefix
	if listPrefix != "" && !strings.HasSuffix(listPrefix, "/") {
		listPrefix += "/"
	}
	var keys []string
	err := svc.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(listPrefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			key := aws.StringValue(obj.Key)
			base := path.Base(key)
			if !strings.EqualFold(path.Ext(base), codec.Ext()) {
				continue
			}
			if name != "" && !strings.HasPrefix(base, name+"_") {
				continue
			}
			keys = append(keys, key)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	entries, err := sortEntries(keys)
	if err != nil {
		return nil, err
	}
	return &S3Source{svc: svc, bucket: bucket, codec: codec, entries: entries}, nil
}

// Len returns the number of rasters found.
func (s *S3Source) Len() int { return len(s.entries) }

func (s *S3Source) Next(ctx context.Context) (*Raster, error) {
	if s.next >= len(s.entries) {
		return nil, io.EOF
	}
	entry := s.entries[s.next]
	s.next++

	out, err := s.svc.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(entry.name),
	})
	if err != nil {
		return nil, fmt.Errorf("s3://%v/%v: %w", s.bucket, entry.name, err)
	}
	defer func() { _ = out.Body.Close() }()

	r, err := decodeRaster(out.Body, s.codec)
	if err != nil {
		return nil, fmt.Errorf("s3://%v/%v: %w", s.bucket, entry.name, err)
	}
	return r, nil
}

func (s *S3Source) Close() error { return nil }
