package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const modifiedTimeLayout = "2006-01-02 15:04:05"

// Search lists source documents and template files below a directory
type Search struct {
	validator *Validator
}

// NewSearch creates a new search handler with the specified size limit
func NewSearch(maxFileSize int64) *Search {
	return &Search{
		validator: NewValidator(maxFileSize),
	}
}

// SearchDirectory walks req.Directory and returns the PDFs and JSON templates
// whose names match req.Query.
func (s *Search) SearchDirectory(req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	query := strings.ToLower(strings.TrimSpace(req.Query))

	result := &PDFSearchDirectoryResult{
		Files:       []FileInfo{},
		Templates:   []FileInfo{},
		SearchQuery: req.Query,
	}

	absDirectory, err := s.walk(req.Directory, 0, func(path string, info os.FileInfo) bool {
		if !matchesQuery(info.Name(), query) {
			return false
		}
		switch {
		case isPDFFile(info.Name()):
			if s.validator.ValidateFileInfo(path, info) != nil {
				return false
			}
			result.Files = append(result.Files, newFileInfo(path, info))
		case isTemplateFile(info.Name()):
			result.Templates = append(result.Templates, newFileInfo(path, info))
		default:
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	result.Directory = absDirectory
	result.TotalCount = len(result.Files) + len(result.Templates)
	return result, nil
}

// FindPDFsInDirectoryLimited returns at most limit PDF files; a limit of zero
// means no limit.
func (s *Search) FindPDFsInDirectoryLimited(directory string, limit int) ([]FileInfo, error) {
	var files []FileInfo
	_, err := s.walk(directory, limit, func(path string, info os.FileInfo) bool {
		if !isPDFFile(info.Name()) || s.validator.ValidateFileInfo(path, info) != nil {
			return false
		}
		files = append(files, newFileInfo(path, info))
		return true
	})
	return files, err
}

// walk visits regular files below directory, skipping hidden directories and
// symlinks that leave the tree. It stops once visit has accepted limit files
// when limit > 0.
func (s *Search) walk(directory string, limit int, visit func(path string, info os.FileInfo) bool) (string, error) {
	if directory == "" {
		return "", fmt.Errorf("directory cannot be empty")
	}
	if _, err := os.Stat(directory); os.IsNotExist(err) {
		return "", fmt.Errorf("directory does not exist: %s", directory)
	}

	absDirectory, err := filepath.Abs(directory)
	if err != nil {
		return "", fmt.Errorf("failed to resolve directory path: %w", err)
	}
	realDirectory, err := filepath.EvalSymlinks(absDirectory)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate directory symlinks: %w", err)
	}

	visited := 0
	err = filepath.WalkDir(absDirectory, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // keep walking past unreadable entries
		}
		if d.IsDir() {
			if path != absDirectory && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if limit > 0 && visited >= limit {
			return filepath.SkipAll
		}

		if d.Type()&os.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(path)
			if err != nil || !withinDirectory(target, realDirectory) {
				return nil //nolint:nilerr // dangling or escaping link
			}
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil //nolint:nilerr // skip entries that vanished or are special files
		}

		if visit(path, info) {
			visited++
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("error walking directory: %w", err)
	}
	return absDirectory, nil
}

func withinDirectory(path, directory string) bool {
	rel, err := filepath.Rel(directory, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func newFileInfo(path string, info os.FileInfo) FileInfo {
	return FileInfo{
		Path:         path,
		Name:         info.Name(),
		Size:         info.Size(),
		ModifiedTime: info.ModTime().Format(modifiedTimeLayout),
	}
}

// matchesQuery performs fuzzy matching on the filename: every word of the
// query must appear in some word of the name.
func matchesQuery(filename, query string) bool {
	if query == "" {
		return true
	}

	name := strings.ToLower(filename)
	if strings.Contains(name, query) {
		return true
	}

	words := splitIntoWords(strings.TrimSuffix(strings.TrimSuffix(name, ".pdf"), ".json"))
	for _, queryWord := range splitIntoWords(query) {
		found := false
		for _, word := range words {
			if strings.Contains(word, queryWord) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// splitIntoWords splits a string into words using common separators
func splitIntoWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		switch r {
		case ' ', '_', '-', '.', '(', ')', '[', ']':
			return true
		}
		return false
	})
}
