package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/hupe1980/symcache/blobstore"
	minioblob "github.com/hupe1980/symcache/blobstore/minio"
	s3blob "github.com/hupe1980/symcache/blobstore/s3"
)

var errMirrorURL = errors.New("invalid mirror URL")

type mirrorURL struct {
	scheme   string
	endpoint string // minio host[:port]
	bucket   string
	prefix   string
	dir      string // file mirrors
}

func parseMirrorURL(raw string) (mirrorURL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return mirrorURL{}, fmt.Errorf("%w: %w", errMirrorURL, err)
	}

	m := mirrorURL{scheme: u.Scheme}
	switch u.Scheme {
	case "file":
		m.dir = filepath.FromSlash(u.Path)
		if u.Host != "" {
			return mirrorURL{}, fmt.Errorf("%w: file URLs take no host: %q", errMirrorURL, raw)
		}
		if m.dir == "" {
			return mirrorURL{}, fmt.Errorf("%w: missing directory: %q", errMirrorURL, raw)
		}
	case "s3":
		m.bucket = u.Host
		m.prefix = strings.Trim(u.Path, "/")
	case "minio", "minios":
		m.endpoint = u.Host
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		m.bucket = bucket
		m.prefix = strings.Trim(prefix, "/")
		if m.endpoint == "" {
			return mirrorURL{}, fmt.Errorf("%w: missing host: %q", errMirrorURL, raw)
		}
	default:
		return mirrorURL{}, fmt.Errorf("%w: unsupported scheme %q", errMirrorURL, u.Scheme)
	}
	if m.scheme != "file" && m.bucket == "" {
		return mirrorURL{}, fmt.Errorf("%w: missing bucket: %q", errMirrorURL, raw)
	}
	return m, nil
}

func openMirror(ctx context.Context, raw string) (blobstore.Store, error) {
	m, err := parseMirrorURL(raw)
	if err != nil {
		return nil, err
	}
	switch m.scheme {
	case "file":
		return blobstore.NewLocalStore(m.dir), nil
	case "s3":
		return s3blob.New(ctx, m.bucket, m.prefix)
	default:
		return minioblob.NewFromEnv(m.endpoint, m.bucket, m.prefix, m.scheme == "minios")
	}
}
