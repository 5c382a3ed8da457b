package stores

import (
	"os"
	"path/filepath"
	"strings"
)

/*
FileCorpus keeps one .txt file per document under a single directory. It is
the default corpus store: zero external dependencies, trivially inspectable,
and shared between every process pointing at the same directory.
*/
type FileCorpus struct {
	dir string
}

func NewFileCorpus(dir string) *FileCorpus {
	return &FileCorpus{dir: dir}
}

/*
Put writes content under name, creating the directory on first use. The
write replaces any previous document stored under the same name.
*/
func (corpus *FileCorpus) Put(name, content string) error {
	if err := os.MkdirAll(corpus.dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(
		filepath.Join(corpus.dir, name+".txt"), []byte(content), 0o644,
	)
}

/*
LoadAll concatenates every stored document, blank-line separated, in file
name order. A missing directory is an empty corpus, not an error.
*/
func (corpus *FileCorpus) LoadAll() (string, error) {
	entries, err := os.ReadDir(corpus.dir)

	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}

		return "", err
	}

	var documents []string

	// os.ReadDir sorts by file name, which keeps the corpus order stable.
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(corpus.dir, entry.Name()))

		if err != nil {
			return "", err
		}

		documents = append(documents, strings.TrimSpace(string(data)))
	}

	return strings.Join(documents, "\n\n"), nil
}
