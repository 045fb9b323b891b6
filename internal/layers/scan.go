package layers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDir builds a project from a directory: every sub-directory becomes a
// layer (sorted by name) holding the files accept admits. Files directly in
// dir form a first layer of their own. Hidden files start invisible.
func ScanDir(dir string, accept func(name string) bool) (*Project, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read project directory: %w", err)
	}

	project := NewProject(filepath.Base(dir))

	var subdirs, rootImages []string
	for _, e := range entries {
		switch {
		case e.IsDir():
			subdirs = append(subdirs, e.Name())
		case accept(e.Name()):
			rootImages = append(rootImages, e.Name())
		}
	}
	sort.Strings(subdirs)
	sort.Strings(rootImages)

	if len(rootImages) > 0 {
		addImages(project.AddLayer(filepath.Base(dir)), dir, rootImages)
	}
	for _, sub := range subdirs {
		path := filepath.Join(dir, sub)
		files, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read layer directory: %w", err)
		}
		var images []string
		for _, f := range files {
			if !f.IsDir() && accept(f.Name()) {
				images = append(images, f.Name())
			}
		}
		sort.Strings(images)
		addImages(project.AddLayer(sub), path, images)
	}
	return project, nil
}

func addImages(l *Layer, dir string, names []string) {
	for _, name := range names {
		l.AddPatch(name, filepath.Join(dir, name), !strings.HasPrefix(name, "."))
	}
}
