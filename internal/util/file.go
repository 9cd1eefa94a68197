package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/natefinch/atomic"
)

func ReadIntFromFile(path string) (value int, err error) {
	text, err := ReadStringFromFile(path)
	if err != nil {
		return -1, err
	}
	if len(text) <= 0 {
		return -1, fmt.Errorf("file is empty: %s", path)
	}
	value, err = strconv.Atoi(text)
	return value, err
}

// ReadStringFromFile reads the whole file and trims surrounding whitespace
func ReadStringFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteIntToFile write a single integer to a file path
func WriteIntToFile(value int, path string) error {
	return WriteStringToFile(fmt.Sprintf("%d", value), path)
}

// WriteStringToFile writes the given text to a (sysfs) file, following symlinks
func WriteStringToFile(text string, path string) error {
	evaluatedPath, err := resolvePath(path)
	if len(evaluatedPath) > 0 && err == nil {
		path = evaluatedPath
	}
	return os.WriteFile(path, []byte(text), 0644)
}

func resolvePath(path string) (string, error) {
	return filepath.EvalSymlinks(path)
}

// WriteBytesToFileAtomic replaces the content of the given file in a single rename
func WriteBytesToFileAtomic(data []byte, path string) error {
	evaluatedPath, err := resolvePath(path)
	if len(evaluatedPath) > 0 && err == nil {
		path = evaluatedPath
	}
	return atomic.WriteFile(path, strings.NewReader(string(data)))
}

// FileExists returns true if something exists at the given path
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
