package titlenames

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fenilsonani/savesync/internal/transport"
)

func TestLookupDelegatesToTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/titles/names", r.URL.Path)
		json.NewEncoder(w).Encode(struct {
			Names map[string]string `json:"names"`
		}{Names: map[string]string{"ABCE": "Example Game"}})
	}))
	defer srv.Close()

	tr := transport.New(transport.Config{ServerURL: srv.URL, APIKey: "k", ConsoleID: "c"}, srv.Client())
	c := New(tr)

	names, err := c.Lookup(context.Background(), []string{"ABCE"})
	require.NoError(t, err)
	require.Equal(t, "Example Game", names["ABCE"])
}

func TestHistoryDelegatesToTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/saves/0004000000112233/history", r.URL.Path)
		json.NewEncoder(w).Encode(struct {
			Versions []transport.HistoryVersion `json:"versions"`
		}{Versions: []transport.HistoryVersion{{Timestamp: 100, Size: 10, FileCount: 1}}})
	}))
	defer srv.Close()

	tr := transport.New(transport.Config{ServerURL: srv.URL, APIKey: "k", ConsoleID: "c"}, srv.Client())
	c := New(tr)

	versions, err := c.History(context.Background(), "0004000000112233")
	require.NoError(t, err)
	require.Equal(t, int64(100), versions[0].Timestamp)
}
