package flat

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
)

// Two artifacts are written together: a binary vector file and a JSON sidecar
// with the three parallel metadata arrays. Partial presence of only one file
// is treated as "no index".

type metadataFile struct {
	Texts       []string `json:"texts"`
	PageNumbers []int    `json:"page_numbers"`
	PDFNames    []string `json:"pdf_names"`
}

// save writes both artifacts. Callers must hold the write lock so that an
// observer seeing the in-memory state updated can assume the on-disk copy is
// either consistent or the failure already reported.
func (idx *Index) save() error {
	if idx.indexPath == "" {
		return nil
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint32(idx.dimension)); err != nil {
		return fmt.Errorf("%w: encode dimension: %v", ErrPersistence, err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(idx.vectors))); err != nil {
		return fmt.Errorf("%w: encode count: %v", ErrPersistence, err)
	}
	for _, vec := range idx.vectors {
		if err := binary.Write(&buf, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("%w: encode vectors: %v", ErrPersistence, err)
		}
	}
	if err := os.WriteFile(idx.indexPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: write index file: %v", ErrPersistence, err)
	}

	meta := metadataFile{
		Texts:       idx.texts,
		PageNumbers: idx.pages,
		PDFNames:    idx.documents,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: encode metadata: %v", ErrPersistence, err)
	}
	if err := os.WriteFile(idx.metaPath, data, 0o644); err != nil {
		return fmt.Errorf("%w: write metadata file: %v", ErrPersistence, err)
	}

	idx.logger.Debug("Persisted index", "vectors", len(idx.vectors), "path", idx.indexPath)
	return nil
}

// loadExisting restores a previously persisted index. Both artifacts must be
// present and mutually consistent; any other state is an error the caller
// turns into an empty index.
func (idx *Index) loadExisting() error {
	indexExists := fileExists(idx.indexPath)
	metaExists := fileExists(idx.metaPath)
	if !indexExists && !metaExists {
		return nil
	}
	if indexExists != metaExists {
		return fmt.Errorf("%w: partial index state on disk", ErrPersistence)
	}

	raw, err := os.ReadFile(idx.indexPath)
	if err != nil {
		return fmt.Errorf("%w: read index file: %v", ErrPersistence, err)
	}
	buf := bytes.NewReader(raw)

	var dimension, count uint32
	if err := binary.Read(buf, binary.LittleEndian, &dimension); err != nil {
		return fmt.Errorf("%w: decode dimension: %v", ErrPersistence, err)
	}
	if int(dimension) != idx.dimension {
		return fmt.Errorf("%w: persisted dimension %d does not match configured %d",
			ErrPersistence, dimension, idx.dimension)
	}
	if err := binary.Read(buf, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: decode count: %v", ErrPersistence, err)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, idx.dimension)
		if err := binary.Read(buf, binary.LittleEndian, vec); err != nil {
			return fmt.Errorf("%w: decode vector %d: %v", ErrPersistence, i, err)
		}
		vectors[i] = vec
	}

	data, err := os.ReadFile(idx.metaPath)
	if err != nil {
		return fmt.Errorf("%w: read metadata file: %v", ErrPersistence, err)
	}
	var meta metadataFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("%w: decode metadata: %v", ErrPersistence, err)
	}
	if len(meta.Texts) != int(count) || len(meta.PageNumbers) != int(count) || len(meta.PDFNames) != int(count) {
		return fmt.Errorf("%w: metadata arrays are not aligned with %d vectors", ErrPersistence, count)
	}

	idx.vectors = vectors
	idx.texts = meta.Texts
	idx.pages = meta.PageNumbers
	idx.documents = meta.PDFNames

	idx.logger.Info("Loaded persisted index", "vectors", count, "path", idx.indexPath)
	return nil
}

// removeArtifacts deletes both files when present. Callers hold the write lock.
func (idx *Index) removeArtifacts() error {
	if idx.indexPath == "" {
		return nil
	}
	for _, path := range []string{idx.indexPath, idx.metaPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("%w: remove %s: %v", ErrPersistence, path, err)
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
