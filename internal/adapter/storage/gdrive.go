package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/semmidev/cloudvault/internal/config"
	"github.com/semmidev/cloudvault/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// GDriveStorage maps keys to file names inside one Drive folder, which
// plays the role of the bucket.
type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

// NewGDrive authenticates with a service-account credentials file when one
// is configured, otherwise with an OAuth client secret and refresh token.
func NewGDrive(ctx context.Context, cfg *config.StorageConfig) (*GDriveStorage, error) {
	var auth option.ClientOption
	if cfg.CredentialsFile != "" {
		auth = option.WithCredentialsFile(cfg.CredentialsFile)
	} else {
		oauthCfg, err := DriveOAuthConfig(cfg.OAuthClientSecret)
		if err != nil {
			return nil, err
		}
		token := &oauth2.Token{RefreshToken: cfg.OAuthRefreshToken}
		auth = option.WithTokenSource(oauthCfg.TokenSource(ctx, token))
	}

	service, err := drive.NewService(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return newGDrive(service, cfg.FolderID), nil
}

func newGDrive(service *drive.Service, folderID string) *GDriveStorage {
	return &GDriveStorage{service: service, folderID: folderID}
}

// DriveOAuthConfig reads a Google OAuth client secret limited to files the
// app itself creates.
func DriveOAuthConfig(clientSecretPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret: %w", err)
	}
	return cfg, nil
}

// Upload replaces the content of an existing file with the same name, so
// Drive behaves like a bucket instead of accumulating duplicates.
func (g *GDriveStorage) Upload(ctx context.Context, key string, body io.Reader, size int64) error {
	id, err := g.findFileID(ctx, key)
	if err != nil {
		return err
	}

	if id != "" {
		_, err = g.service.Files.Update(id, &drive.File{}).
			Media(body).
			Context(ctx).
			Do()
	} else {
		_, err = g.service.Files.Create(&drive.File{
			Name:    key,
			Parents: []string{g.folderID},
		}).
			Media(body).
			Context(ctx).
			Do()
	}
	if err != nil {
		return fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return nil
}

func (g *GDriveStorage) Download(ctx context.Context, key string) ([]byte, error) {
	id, err := g.findFileID(ctx, key)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%s: %w", key, domain.ErrNotFound)
	}

	resp, err := g.service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download from gdrive: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gdrive file: %w", err)
	}
	return data, nil
}

func (g *GDriveStorage) List(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(g.folderID))

	files := make([]string, 0)
	err := g.service.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, name)").
		Context(ctx).
		Pages(ctx, func(page *drive.FileList) error {
			for _, file := range page.Files {
				files = append(files, file.Name)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

func (g *GDriveStorage) Delete(ctx context.Context, key string) error {
	id, err := g.findFileID(ctx, key)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}

	if err := g.service.Files.Delete(id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// findFileID returns "" when no file has that name.
func (g *GDriveStorage) findFileID(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false",
		escapeQuery(g.folderID), escapeQuery(name))

	fileList, err := g.service.Files.List().
		Q(query).
		Fields("files(id)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to find file: %w", err)
	}

	if len(fileList.Files) == 0 {
		return "", nil
	}
	return fileList.Files[0].Id, nil
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}
