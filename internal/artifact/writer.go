// Package artifact renders executed query results and persists them to
// durable storage under a per-user, per-query path.
package artifact

import (
	"context"
	"path"
	"strconv"
	"time"

	"github.com/querykit/report-delivery/internal/filename"
	"github.com/querykit/report-delivery/internal/queryexec"
)

// resultsFolder is the fixed top-level folder artifacts live under.
const resultsFolder = "query_results"

// Metadata identifies the job an artifact belongs to and feeds the
// filename generator.
type Metadata struct {
	UserID      int64
	QueryID     uint
	QueryName   string
	QueryParams map[string]any
	Format      Format
	Timestamp   time.Time
}

type Writer struct {
	store Store
}

func NewWriter(store Store) *Writer {
	return &Writer{store: store}
}

// Save renders the result set and writes it at
// query_results/<user_id>/<query_id>/<generated>. The returned path is
// relative to the storage root and doubles as the download-link suffix.
func (w *Writer) Save(ctx context.Context, meta Metadata, rs *queryexec.ResultSet) (string, error) {
	name := filename.GenerateWithExtension(
		meta.UserID, meta.QueryName, meta.QueryParams, meta.Timestamp, meta.Format.Extension())

	relPath := path.Join(
		resultsFolder,
		strconv.FormatInt(meta.UserID, 10),
		strconv.FormatUint(uint64(meta.QueryID), 10),
		name,
	)

	data, err := Render(rs, meta.Format)
	if err != nil {
		return "", err
	}

	if err := w.store.Put(ctx, relPath, data); err != nil {
		return "", err
	}
	return relPath, nil
}
