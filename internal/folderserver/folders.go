package folderserver

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sharingconfigs/sharingconfigs/pkg/models"
)

// Folder is a folder served by the reference server. Only writable folders
// accept exports.
type Folder struct {
	Name     string   `json:"name"`
	Writable bool     `json:"writable"`
	Children []Folder `json:"children,omitempty"`
}

// LoadFolders reads a JSON forest of folders from path.
func LoadFolders(path string) ([]Folder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read folder tree: %w", err)
	}
	var folders []Folder
	if err := json.Unmarshal(data, &folders); err != nil {
		return nil, fmt.Errorf("parse folder tree %s: %w", path, err)
	}
	return folders, nil
}

// DemoFolders returns the tree served when no folder file is configured.
func DemoFolders() []Folder {
	return []Folder{
		{Name: "shared", Children: []Folder{
			{Name: "reports", Writable: true},
			{Name: "templates", Children: []Folder{
				{Name: "drafts", Writable: true},
			}},
		}},
		{Name: "archive"},
	}
}

// index validates the forest and returns the writable flag of every folder
// by name. Names address folders in URLs, so they must be unique.
func index(folders []Folder, writable map[string]bool) error {
	for _, f := range folders {
		if f.Name == "" {
			return fmt.Errorf("folder name is empty")
		}
		if _, dup := writable[f.Name]; dup {
			return fmt.Errorf("duplicate folder name %q", f.Name)
		}
		writable[f.Name] = f.Writable
		if err := index(f.Children, writable); err != nil {
			return err
		}
	}
	return nil
}

func toNodes(folders []Folder) []models.FolderNode {
	nodes := make([]models.FolderNode, 0, len(folders))
	for _, f := range folders {
		nodes = append(nodes, models.FolderNode{Name: f.Name, Children: toNodes(f.Children)})
	}
	return nodes
}
