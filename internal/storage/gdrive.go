package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ErrNotConfigured is returned by uploads when no image store is set up.
var ErrNotConfigured = errors.New("image storage is not configured")

// ImageStore keeps uploaded product images and returns their public URL.
type ImageStore interface {
	Upload(ctx context.Context, file io.Reader, filename, mimeType string) (string, error)
	// Delete removes an image by the URL Upload returned.
	Delete(ctx context.Context, url string) error
}

type GDriveService struct {
	service  *drive.Service
	folderID string
}

// NewGDriveService authenticates with OAuth2 client credentials and a saved
// token. A refreshed token is written back to tokenPath.
func NewGDriveService(ctx context.Context, credentialsPath, tokenPath, folderID string, log *slog.Logger) (*GDriveService, error) {
	credBytes, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(credBytes, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	token, err := tokenFromFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	tokenSource := config.TokenSource(ctx, token)
	fresh, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		if err := saveToken(tokenPath, fresh); err != nil {
			log.Warn("failed to save refreshed drive token", "error", err)
		}
	}

	service, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveService{service: service, folderID: folderID}, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// Upload stores the file in the configured folder, makes it world readable and
// returns its direct download link.
func (g *GDriveService) Upload(ctx context.Context, file io.Reader, filename, mimeType string) (string, error) {
	created, err := g.service.Files.Create(&drive.File{
		Name:     filename,
		MimeType: mimeType,
		Parents:  []string{g.folderID},
	}).Media(file).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	_, err = g.service.Permissions.Create(created.Id, &drive.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to set file permissions: %w", err)
	}

	return PublicURL(created.Id), nil
}

func (g *GDriveService) Delete(ctx context.Context, url string) error {
	fileID, ok := strings.CutPrefix(url, publicURLPrefix)
	if !ok || fileID == "" {
		return fmt.Errorf("not a drive image url: %q", url)
	}
	if err := g.service.Files.Delete(fileID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

const publicURLPrefix = "https://drive.google.com/uc?id="

func PublicURL(fileID string) string {
	return publicURLPrefix + fileID
}

// Disabled rejects every upload with ErrNotConfigured.
type Disabled struct{}

func (Disabled) Upload(context.Context, io.Reader, string, string) (string, error) {
	return "", ErrNotConfigured
}

func (Disabled) Delete(context.Context, string) error { return ErrNotConfigured }
