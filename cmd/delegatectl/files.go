package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// taskSeparator splits a sector file into one task description per occupation.
const taskSeparator = "\nRelated occupations\n"

type resumeFile struct {
	Name       string
	Path       string
	ExternalID string
}

type taskEntry struct {
	ExternalID  string
	Description string
}

// listResumes returns every .pdf in dir in name order. The external id is the base name
// followed by the file's index among the PDFs, so two resumes with the same stem stay distinct.
func listResumes(dir string) ([]resumeFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume directory: %w", err)
	}

	var resumes []resumeFile

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".pdf") {
			continue
		}

		resumes = append(resumes, resumeFile{
			Name:       name,
			Path:       filepath.Join(dir, name),
			ExternalID: strings.TrimSuffix(name, filepath.Ext(name)) + strconv.Itoa(len(resumes)),
		})
	}

	return resumes, nil
}

// listTasks reads every <sector>.txt in dir in name order and splits it into tasks with
// external ids <sector>_<i>. Blank chunks are skipped but still consume an index.
func listTasks(dir string) ([]taskEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read task directory: %w", err)
	}

	var tasks []taskEntry

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".txt" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read task file %s: %w", name, err)
		}

		tasks = append(tasks, splitTasks(strings.TrimSuffix(name, ".txt"), string(data))...)
	}

	return tasks, nil
}

func splitTasks(sector, content string) []taskEntry {
	var tasks []taskEntry

	for i, chunk := range strings.Split(content, taskSeparator) {
		if strings.TrimSpace(chunk) == "" {
			continue
		}

		tasks = append(tasks, taskEntry{
			ExternalID:  sector + "_" + strconv.Itoa(i),
			Description: chunk,
		})
	}

	return tasks
}
