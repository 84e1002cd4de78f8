package services

import (
	"context"
	"fmt"
	"io"
	"net/url"

	storage_go "github.com/supabase-community/storage-go"
)

// StoredFile is the location of an uploaded object
type StoredFile struct {
	Path string
	URL  string
}

// FileStorage keeps quote attachments
type FileStorage interface {
	Upload(ctx context.Context, path, contentType string, body io.Reader) (*StoredFile, error)
	Remove(ctx context.Context, paths ...string) error
	// Host is the hostname public file URLs are served from
	Host() string
}

// SupabaseStorage stores files in a Supabase Storage bucket
type SupabaseStorage struct {
	client *storage_go.Client
	bucket string
	host   string
}

// NewSupabaseStorage connects to the storage API of the project at projectURL
func NewSupabaseStorage(projectURL, serviceKey, bucket string) (*SupabaseStorage, error) {
	u, err := url.Parse(projectURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid supabase url %q", projectURL)
	}
	return &SupabaseStorage{
		client: storage_go.NewClient(projectURL+"/storage/v1", serviceKey, nil),
		bucket: bucket,
		host:   u.Hostname(),
	}, nil
}

func (s *SupabaseStorage) Upload(ctx context.Context, path, contentType string, body io.Reader) (*StoredFile, error) {
	upsert := false
	cacheControl := "3600"
	_, err := s.client.UploadFile(s.bucket, path, body, storage_go.FileOptions{
		ContentType:  &contentType,
		CacheControl: &cacheControl,
		Upsert:       &upsert,
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}

	public := s.client.GetPublicUrl(s.bucket, path)
	return &StoredFile{Path: path, URL: public.SignedURL}, nil
}

func (s *SupabaseStorage) Remove(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := s.client.RemoveFile(s.bucket, paths)
	return err
}

func (s *SupabaseStorage) Host() string {
	return s.host
}
