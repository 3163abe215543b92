package modelstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

const modelContentType = "application/octet-stream"

// ObjectKey returns the object key of name under the configured prefix.
func (s *Store) ObjectKey(name string) string {
	return objectKey(s.cfg.Prefix, name)
}

func objectKey(prefix, name string) string {
	name = strings.TrimLeft(name, "/")
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// Fetch downloads the object name into localPath and returns its size.
func (s *Store) Fetch(ctx context.Context, name, localPath string) (size int64, err error) {
	key := s.ObjectKey(name)
	start := time.Now()
	defer func() {
		s.observeOperation("fetch", key, start, err, size, nil)
	}()

	if err = s.client.FGetObject(ctx, s.Bucket(), key, localPath, minio.GetObjectOptions{}); err != nil {
		err = translateError(err, key)
		s.logger.Error("failed to fetch model", err, map[string]interface{}{"key": key})
		return 0, err
	}
	info, err := os.Stat(localPath)
	if err != nil {
		return 0, err
	}
	size = info.Size()
	s.logger.Debug("fetched model", nil, map[string]interface{}{
		"key":   key,
		"path":  localPath,
		"bytes": size,
	})
	return size, nil
}

// Upload stores localPath as the object name and returns the uploaded size.
func (s *Store) Upload(ctx context.Context, localPath, name string) (size int64, err error) {
	key := s.ObjectKey(name)
	start := time.Now()
	defer func() {
		s.observeOperation("upload", key, start, err, size, nil)
	}()

	info, err := s.client.FPutObject(ctx, s.Bucket(), key, localPath, minio.PutObjectOptions{
		ContentType: modelContentType,
	})
	if err != nil {
		s.logger.Error("failed to upload model", err, map[string]interface{}{"key": key})
		return 0, err
	}
	s.logger.Debug("uploaded model", nil, map[string]interface{}{
		"key":   key,
		"bytes": info.Size,
	})
	return info.Size, nil
}

// UploadModel uploads the files written by a training run with the given
// output prefix: <output>.bin and, if present, <output>.vec. Objects are
// named after the base names of the files.
func (s *Store) UploadModel(ctx context.Context, output string) ([]string, error) {
	var keys []string
	for _, ext := range []string{".bin", ".vec"} {
		local := output + ext
		if _, err := os.Stat(local); err != nil {
			if ext == ".vec" && os.IsNotExist(err) {
				continue
			}
			return keys, fmt.Errorf("model file %s: %w", local, err)
		}
		name := path.Base(local)
		if _, err := s.Upload(ctx, local, name); err != nil {
			return keys, err
		}
		keys = append(keys, s.ObjectKey(name))
	}
	return keys, nil
}

// Opener returns a function that streams objects by name. It matches
// fasttext.FileOpener, so an engine can load a model straight from the bucket.
func (s *Store) Opener(ctx context.Context) func(name string) (io.ReadCloser, error) {
	return func(name string) (io.ReadCloser, error) {
		key := s.ObjectKey(name)
		start := time.Now()

		obj, err := s.client.GetObject(ctx, s.Bucket(), key, minio.GetObjectOptions{})
		if err == nil {
			// GetObject is lazy; Stat surfaces a missing key before the first read.
			var info minio.ObjectInfo
			info, err = obj.Stat()
			if err == nil {
				s.observeOperation("open", key, start, nil, info.Size, nil)
				return obj, nil
			}
			_ = obj.Close()
		}
		err = translateError(err, key)
		s.observeOperation("open", key, start, err, 0, nil)
		return nil, err
	}
}

// List returns the names of all objects under the prefix, relative to it.
func (s *Store) List(ctx context.Context) (names []string, err error) {
	start := time.Now()
	defer func() {
		s.observeOperation("list", s.cfg.Prefix, start, err, int64(len(names)), nil)
	}()

	prefix := strings.Trim(s.cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	for obj := range s.client.ListObjects(ctx, s.Bucket(), minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		names = append(names, strings.TrimPrefix(obj.Key, prefix))
	}
	return names, nil
}

// Delete removes the object name.
func (s *Store) Delete(ctx context.Context, name string) (err error) {
	key := s.ObjectKey(name)
	start := time.Now()
	defer func() {
		s.observeOperation("delete", key, start, err, 0, nil)
	}()

	return s.client.RemoveObject(ctx, s.Bucket(), key, minio.RemoveObjectOptions{})
}
