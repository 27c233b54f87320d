package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// An Object is one stored file, named by its full path within the bucket.
type Object struct {
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
}

// A Store lists and fetches remote objects.
type Store interface {
	// List returns every object under prefix, recursing into folders.
	List(ctx context.Context, prefix string) ([]Object, error)
	// Fetch opens the named object for reading. The caller owns the
	// returned reader.
	Fetch(ctx context.Context, name string) (io.ReadCloser, error)
}

// supabaseStore speaks the Supabase storage REST surface. Listing is a POST
// to /storage/v1/object/list/<bucket>; entries without metadata are folders
// and get recursed into.
type supabaseStore struct {
	baseURL  string
	bucket   string
	anonKey  string
	pageSize int
	client   *http.Client
}

// NewSupabaseStore returns a Store over the project at cfg.BaseURL. Request
// lifetimes are governed by the caller's context.
func NewSupabaseStore(cfg *Config) Store {
	return &supabaseStore{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		bucket:   cfg.Bucket,
		anonKey:  cfg.AnonKey,
		pageSize: cfg.ListPageSize,
		client:   &http.Client{},
	}
}

type entryMetadata struct {
	Size int64 `json:"size"`
}

type listEntry struct {
	Name string `json:"name"`
	// Metadata is null for folder entries.
	Metadata *entryMetadata `json:"metadata"`
}

func (s *supabaseStore) List(ctx context.Context, prefix string) ([]Object, error) {
	var all []Object
	for offset := 0; ; offset += s.pageSize {
		entries, err := s.listPage(ctx, prefix, offset)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			name := entry.Name
			if prefix != "" {
				name = prefix + "/" + entry.Name
			}
			if entry.Metadata == nil {
				nested, err := s.List(ctx, name)
				if err != nil {
					return nil, err
				}
				all = append(all, nested...)
				continue
			}
			all = append(all, Object{Name: name, Size: entry.Metadata.Size})
		}
		if len(entries) < s.pageSize {
			return all, nil
		}
	}
}

func (s *supabaseStore) listPage(ctx context.Context, prefix string, offset int) ([]listEntry, error) {
	body, err := json.Marshal(map[string]interface{}{
		"prefix": prefix,
		"limit":  s.pageSize,
		"offset": offset,
	})
	if err != nil {
		return nil, err
	}
	listURL := fmt.Sprintf("%s/storage/v1/object/list/%s", s.baseURL, s.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, listURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	//nolint:bodyclose /// closed in UncheckedErrorFunc
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list bucket %s", s.bucket)
	}
	defer utils.UncheckedErrorFunc(resp.Body.Close)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("listing %q: unexpected status %d", prefix, resp.StatusCode)
	}
	var entries []listEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "cannot decode bucket listing")
	}
	return entries, nil
}

func (s *supabaseStore) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	fetchURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", s.baseURL, s.bucket, escapeObjectName(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return nil, err
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot fetch %s", name)
	}
	if resp.StatusCode != http.StatusOK {
		utils.UncheckedErrorFunc(resp.Body.Close)
		return nil, errors.Errorf("fetching %q: unexpected status %d", name, resp.StatusCode)
	}
	return resp.Body, nil
}

func (s *supabaseStore) authorize(req *http.Request) {
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Authorization", "Bearer "+s.anonKey)
}

// escapeObjectName escapes each path segment while keeping the separators,
// since object names are hierarchical.
func escapeObjectName(name string) string {
	segments := strings.Split(name, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
