package scope

import (
	"os"
	"path"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/ksuid"
	"github.com/spf13/afero"

	"github.com/oneconcern/scope/pkg/network"
	"github.com/oneconcern/scope/pkg/scope/status"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const pendingExt = ".json"

// pendingExport holds the objects pushed by a client, until the export is persisted
type pendingExport struct {
	ClientID string             `json:"clientId"`
	Created  time.Time          `json:"created"`
	Objects  network.ObjectList `json:"objects"`
}

func validExportID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return status.ErrPendingExport.Wrapf("invalid export id %q", id)
	}
	return nil
}

func (s *Scope) pendingDir() string {
	return path.Join(s.path, PendingDir)
}

func (s *Scope) pendingPath(exportID string) string {
	return path.Join(s.pendingDir(), exportID+pendingExt)
}

// pendingExports lists the ids of exports waiting to be persisted, oldest first
func (s *Scope) pendingExports() ([]string, error) {
	infos, err := afero.ReadDir(s.fs, s.pendingDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ModTime().Before(infos[j].ModTime())
	})
	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), pendingExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(info.Name(), pendingExt))
	}
	return ids, nil
}

func (s *Scope) readPending(exportID string) (*pendingExport, error) {
	if err := validExportID(exportID); err != nil {
		return nil, err
	}
	b, err := afero.ReadFile(s.fs, s.pendingPath(exportID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var p pendingExport
	if err = json.Unmarshal(b, &p); err != nil {
		return nil, status.ErrPendingExport.Wrapf("%s: %v", exportID, err)
	}
	return &p, nil
}

func (s *Scope) writePending(p *pendingExport) error {
	if err := validExportID(p.ClientID); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.pendingDir(), 0700); err != nil {
		return err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	tmp := path.Join(s.pendingDir(), "."+ksuid.New().String()+".tmp")
	if err = afero.WriteFile(s.fs, tmp, b, 0600); err != nil {
		return err
	}
	return s.fs.Rename(tmp, s.pendingPath(p.ClientID))
}

func (s *Scope) deletePending(exportID string) error {
	err := s.fs.Remove(s.pendingPath(exportID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
