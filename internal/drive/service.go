package drive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	mimeFolder      = "application/vnd.google-apps.folder"
	mimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
	mimeCSV         = "text/csv"
)

// Files is the subset of Drive the fetcher relies on.
type Files interface {
	Get(ctx context.Context, fileID string) (*File, error)
	Download(ctx context.Context, fileID string, w io.Writer) error
	Export(ctx context.Context, fileID, mimeType string, w io.Writer) error
	FindFile(ctx context.Context, filePath string) (*File, error)
}

type Service struct {
	srv *drive.Service
}

func NewService(ctx context.Context, credentialsJSON string) (*Service, error) {
	// Parse credentials from JSON
	config, err := google.JWTConfigFromJSON(
		[]byte(credentialsJSON),
		drive.DriveReadonlyScope,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to parse drive credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %v", err)
	}

	return &Service{srv: srv}, nil
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

func fromDrive(f *drive.File) *File {
	return &File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: f.ModifiedTime,
		Size:         f.Size,
	}
}

func (s *Service) Get(ctx context.Context, fileID string) (*File, error) {
	f, err := s.srv.Files.Get(fileID).
		Fields("id, name, mimeType, modifiedTime, size").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to get file %s: %v", fileID, err)
	}
	return fromDrive(f), nil
}

func (s *Service) ListFiles(ctx context.Context, folderID string) ([]*File, error) {
	var files []*File

	// If no folder ID is provided, use "root"
	if folderID == "" {
		folderID = "root"
	}

	result, err := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", folderID)).
		Fields("files(id, name, mimeType, modifiedTime, size)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %v", err)
	}

	for _, f := range result.Files {
		files = append(files, fromDrive(f))
	}

	return files, nil
}

func (s *Service) Download(ctx context.Context, fileID string, w io.Writer) error {
	resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("unable to download file: %v", err)
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

// Export converts a native Google document, such as a sheet, to mimeType.
func (s *Service) Export(ctx context.Context, fileID, mimeType string, w io.Writer) error {
	resp, err := s.srv.Files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("unable to export file: %v", err)
	}
	defer resp.Body.Close()

	_, err = io.Copy(w, resp.Body)
	return err
}

func (s *Service) FindFolderByPath(ctx context.Context, folderPath string) (string, error) {
	if folderPath == "" {
		return "root", nil
	}

	folders := strings.Split(folderPath, "/")
	currentID := "root"

	for _, folder := range folders {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				currentID, escapeQuery(folder), mimeFolder)).
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %v", folder, err)
		}

		if len(result.Files) == 0 {
			return "", fmt.Errorf("folder not found: %s", folder)
		}

		currentID = result.Files[0].Id
	}

	return currentID, nil
}

// FindFile resolves "folder/sub/name.csv" to the file of that name in the
// folder.
func (s *Service) FindFile(ctx context.Context, filePath string) (*File, error) {
	dir, name := path.Split(strings.Trim(filePath, "/"))
	folderID, err := s.FindFolderByPath(ctx, strings.Trim(dir, "/"))
	if err != nil {
		return nil, err
	}

	files, err := s.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if f.Name == name && f.MimeType != mimeFolder {
			return f, nil
		}
	}
	return nil, fmt.Errorf("file not found: %s", filePath)
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

var _ Files = (*Service)(nil)
