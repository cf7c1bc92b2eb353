package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fenilsonani/savesync/internal/savestore"
	"github.com/fenilsonani/savesync/internal/title"
	"github.com/fenilsonani/savesync/pkg/savesync"
)

// parseTitleSpec parses a "title-id:path" flag value into a Title and its
// backing SaveStore. Platform save-archive enumeration itself is out of
// scope here (it's an external collaborator per the engine's own
// boundary) — the CLI only needs one loose save file per invocation.
func parseTitleSpec(spec string) (savesync.Title, savesync.SaveStore, error) {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return savesync.Title{}, nil, fmt.Errorf("invalid --title value %q, want title-id:path", spec)
	}
	id, err := strconv.ParseUint(parts[0], 16, 64)
	if err != nil {
		return savesync.Title{}, nil, fmt.Errorf("invalid title id %q: %w", parts[0], err)
	}
	path := parts[1]

	t := savesync.Title{ID: id, Source: title.RemovableMediaFile, Path: path}
	store := savestore.NewRemovableMediaStore(path)
	return t, store, nil
}
