package config

import (
	"os"
	"path/filepath"
)

// homeDir returns $HOME, falling back to "/home" when unset (matching the
// behaviour of the desktop session files we read alongside it).
func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	return "/home"
}

// Path returns the config file location (~/.config/voxtype/config.yaml).
func Path() string {
	return filepath.Join(homeDir(), ".config", "voxtype", "config.yaml")
}

// DataDir returns the state directory (~/.local/share/voxtype).
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "voxtype")
}

// ModelsDir returns the directory holding downloaded whisper models.
func ModelsDir() string {
	return filepath.Join(DataDir(), "models")
}

// TranscriptsPath returns the persisted transcript list file.
func TranscriptsPath() string {
	return filepath.Join(DataDir(), "transcripts.json")
}

// ModelPath returns the absolute path of the currently configured model.
// The config file is read fresh so a reload always sees the latest choice.
func ModelPath() string {
	cfg := LoadOrDefault()
	return ModelPathFor(cfg.Model)
}

// ModelPathFor returns the absolute path for a model filename.
func ModelPathFor(filename string) string {
	return filepath.Join(ModelsDir(), filename)
}
