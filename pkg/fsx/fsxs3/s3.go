// Package fsxs3 implements fsx.FileSystem on an S3 bucket.
package fsxs3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/Abraxas-365/debouncex/pkg/errx"
	"github.com/Abraxas-365/debouncex/pkg/fsx"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// API is the subset of *s3.Client used by FileSystem.
type API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// FileSystem stores files as objects below an optional key prefix.
type FileSystem struct {
	client API
	bucket string
	prefix string
}

var _ fsx.FileSystem = (*FileSystem)(nil)

// New returns a FileSystem writing to bucket. prefix may be empty.
func New(client API, bucket, prefix string) *FileSystem {
	return &FileSystem{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// Bucket returns the bucket name.
func (fs *FileSystem) Bucket() string {
	return fs.bucket
}

func (fs *FileSystem) ReadFile(ctx context.Context, p string) ([]byte, error) {
	body, err := fs.ReadFileStream(ctx, p)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fsx.Wrap(fsx.ErrRead, p, err)
	}
	return data, nil
}

func (fs *FileSystem) ReadFileStream(ctx context.Context, p string) (io.ReadCloser, error) {
	out, err := fs.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(p)),
	})
	if err != nil {
		return nil, fs.mapErr(p, err)
	}
	return out.Body, nil
}

func (fs *FileSystem) Stat(ctx context.Context, p string) (fsx.FileInfo, error) {
	out, err := fs.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(p)),
	})
	if err != nil {
		return fsx.FileInfo{}, fs.mapErr(p, err)
	}

	info := fsx.FileInfo{
		Name:        path.Base(p),
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}
	if out.LastModified != nil {
		info.ModTime = *out.LastModified
	}
	return info, nil
}

func (fs *FileSystem) Exists(ctx context.Context, p string) (bool, error) {
	_, err := fs.Stat(ctx, p)
	if err == nil {
		return true, nil
	}
	if errx.HasCode(err, fsx.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (fs *FileSystem) WriteFile(ctx context.Context, p string, data []byte) error {
	_, err := fs.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(fs.bucket),
		Key:           aws.String(fs.key(p)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(fsx.DetectContentType(path.Ext(p))),
	})
	if err != nil {
		return fsx.Wrap(fsx.ErrWrite, p, err)
	}
	return nil
}

func (fs *FileSystem) WriteFileStream(ctx context.Context, p string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fsx.Wrap(fsx.ErrWrite, p, err)
	}
	return fs.WriteFile(ctx, p, data)
}

func (fs *FileSystem) DeleteFile(ctx context.Context, p string) error {
	_, err := fs.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(fs.bucket),
		Key:    aws.String(fs.key(p)),
	})
	if err != nil {
		return fsx.Wrap(fsx.ErrDelete, p, err)
	}
	return nil
}

func (fs *FileSystem) Join(elem ...string) string {
	return path.Join(elem...)
}

func (fs *FileSystem) key(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if fs.prefix == "" {
		return p
	}
	return fs.prefix + "/" + p
}

func (fs *FileSystem) mapErr(p string, err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return fsx.NotFound(p)
	}
	return fsx.Wrap(fsx.ErrRead, p, err)
}
