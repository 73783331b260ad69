package drive

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Fetcher serves drive:// source locations. "drive://<fileID>" addresses a
// file directly; "drive:///Folder/name.csv" resolves the name by path.
type Fetcher struct {
	files Files
}

func NewFetcher(files Files) *Fetcher {
	return &Fetcher{files: files}
}

func (f *Fetcher) Fetch(ctx context.Context, location string) (string, []byte, error) {
	ref, ok := strings.CutPrefix(location, "drive://")
	if !ok || strings.Trim(ref, "/") == "" {
		return "", nil, errors.Errorf("invalid drive location %q", location)
	}

	var (
		file *File
		err  error
	)
	if strings.HasPrefix(ref, "/") {
		file, err = f.files.FindFile(ctx, ref)
	} else {
		file, err = f.files.Get(ctx, ref)
	}
	if err != nil {
		return "", nil, errors.Wrapf(err, "resolve %s", location)
	}

	var buf bytes.Buffer
	name := file.Name
	if file.MimeType == mimeSpreadsheet {
		// Native sheets have no bytes of their own; take the first sheet as CSV.
		err = f.files.Export(ctx, file.ID, mimeCSV, &buf)
		name = strings.TrimSuffix(name, path.Ext(name)) + ".csv"
	} else {
		err = f.files.Download(ctx, file.ID, &buf)
	}
	if err != nil {
		return "", nil, errors.Wrapf(err, "download %s", location)
	}

	log.Debug().Str("file_id", file.ID).Str("name", name).Int("bytes", buf.Len()).Msg("drive file fetched")
	return name, buf.Bytes(), nil
}
