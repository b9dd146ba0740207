package classfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("kitten.classfile")

// FileName returns the file name a class is stored under.
func FileName(className string) string {
	return className + Extension
}

// WriteFile encodes c into dir and returns the path written.
func WriteFile(dir string, c *Class) (string, error) {
	data, err := Marshal(c)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("classfile: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, FileName(c.name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("classfile: write %s: %w", path, err)
	}
	log.Debugf("wrote %s (%d bytes)", path, len(data))
	return path, nil
}

// ReadFile decodes the class stored at path.
func ReadFile(path string) (*Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classfile: read %s: %w", path, err)
	}
	c, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadDir decodes every class file in dir, sorted by class name, so a class
// always precedes the classes whose names extend it ("A" before "A$Test").
func LoadDir(dir string) ([]*Class, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("classfile: read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Extension) {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.TrimSuffix(names[i], Extension) < strings.TrimSuffix(names[j], Extension)
	})

	classes := make([]*Class, 0, len(names))
	for _, name := range names {
		c, err := ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	log.Debugf("loaded %d classes from %s", len(classes), dir)
	return classes, nil
}
