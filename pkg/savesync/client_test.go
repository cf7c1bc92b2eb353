package savesync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/savesync/internal/config"
	"github.com/fenilsonani/savesync/internal/savestore"
)

type memStore struct {
	files FileList
}

func (s *memStore) ReadSave(ctx context.Context) (FileList, error) { return s.files, nil }
func (s *memStore) WriteSave(ctx context.Context, files FileList) error {
	s.files = files
	return nil
}
func (s *memStore) HasSave(ctx context.Context) (bool, error) { return len(s.files) > 0, nil }

func TestOpenRejectsInvalidConfig(t *testing.T) {
	_, err := Open(config.Config{}, nil, nil, nil)
	require.Error(t, err)
}

func TestOpenAndUploadRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Config{
		ServerURL:      srv.URL,
		APIKey:         "key",
		ConsoleID:      "console",
		StateDirectory: t.TempDir(),
	}
	client, err := Open(cfg, srv.Client(), nil, nil)
	require.NoError(t, err)

	store := &memStore{files: savestore.FileList{{Path: "save.dat", Data: []byte("hello")}}}
	titl := Title{ID: 1, Source: RemovableMediaFile}

	_, err = client.Upload(context.Background(), titl, store)
	require.NoError(t, err)
}
