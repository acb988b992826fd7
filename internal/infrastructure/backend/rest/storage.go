package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

type storage struct {
	g *gateway
}

func (s *storage) Upload(ctx context.Context, bucket, path, contentType string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	err := s.g.c.do(ctx, request{
		op:      "storage.upload",
		method:  http.MethodPost,
		path:    "/storage/v1/object/" + bucket + "/" + path,
		token:   s.g.token,
		header:  http.Header{"Content-Type": {contentType}, "X-Upsert": {"false"}},
		rawBody: r,
	}, nil)
	if err != nil {
		return "", err
	}
	return path, nil
}

func (s *storage) PublicURL(bucket, path string) string {
	return s.publicPrefix(bucket) + path
}

func (s *storage) PathFromURL(bucket, url string) (string, bool) {
	prefix := s.publicPrefix(bucket)
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

func (s *storage) Remove(ctx context.Context, bucket, path string) error {
	return s.g.c.do(ctx, request{
		op:     "storage.remove",
		method: http.MethodDelete,
		path:   "/storage/v1/object/" + bucket,
		token:  s.g.token,
		body:   map[string][]string{"prefixes": {path}},
	}, nil)
}

func (s *storage) publicPrefix(bucket string) string {
	return s.g.c.baseURL + "/storage/v1/object/public/" + bucket + "/"
}

type procedures struct {
	g *gateway
}

func (p *procedures) Call(ctx context.Context, name string, args map[string]any) (json.RawMessage, error) {
	if args == nil {
		args = map[string]any{}
	}
	var out json.RawMessage
	err := p.g.c.do(ctx, request{
		op:     "rpc." + name,
		method: http.MethodPost,
		path:   "/rest/v1/rpc/" + name,
		token:  p.g.token,
		body:   args,
	}, &out)
	return out, err
}
