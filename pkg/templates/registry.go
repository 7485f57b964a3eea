package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"jordanella.com/tower-pilot/internal/cv"
	"jordanella.com/tower-pilot/internal/logging"
)

// ErrUnknownSymbol is returned when a symbol is neither registered nor present as <dir>/<name>.png
var ErrUnknownSymbol = errors.New("unknown symbol")

// Registry maps symbol names to template files and their reference resolution
type Registry struct {
	mu                     sync.RWMutex
	definitions            map[string]Definition
	basePath               string // Base path for template image files
	defaultReferenceHeight int
	imageCache             *ImageCache
	logger                 *logging.Logger
}

// Definition represents a template in the YAML manifest
type Definition struct {
	Name            string  `yaml:"name"`
	Path            string  `yaml:"path,omitempty"`             // Defaults to <name>.png
	ReferenceHeight int     `yaml:"reference_height,omitempty"` // Client height the bitmap was captured at
	Threshold       float64 `yaml:"threshold,omitempty"`
	Preload         bool    `yaml:"preload,omitempty"` // Decode at load time
}

// Manifest represents the structure of a template YAML file
type Manifest struct {
	ReferenceHeight int          `yaml:"reference_height,omitempty"`
	Templates       []Definition `yaml:"templates"`
}

// NewRegistry creates a registry rooted at basePath. Templates without an
// explicit reference height use defaultReferenceHeight.
func NewRegistry(basePath string, defaultReferenceHeight int, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Registry{
		definitions:            make(map[string]Definition),
		basePath:               basePath,
		defaultReferenceHeight: defaultReferenceHeight,
		imageCache:             NewImageCache(),
		logger:                 logger,
	}
}

// Cache exposes the image cache
func (r *Registry) Cache() *ImageCache {
	return r.imageCache
}

// LoadFromFile loads template definitions from a YAML manifest
func (r *Registry) LoadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read template file %s: %w", filePath, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to unmarshal template YAML: %w", err)
	}

	for i, def := range manifest.Templates {
		if def.Name == "" {
			return fmt.Errorf("template %d: name cannot be empty", i+1)
		}
		if def.ReferenceHeight == 0 {
			def.ReferenceHeight = manifest.ReferenceHeight
		}
		if err := r.Register(def); err != nil {
			return err
		}
	}

	r.logger.DebugWithContext("Loaded template manifest", map[string]interface{}{
		"file":      filePath,
		"templates": len(manifest.Templates),
	})
	return nil
}

// LoadFromDirectory loads all YAML manifests from a directory
func (r *Registry) LoadFromDirectory(dirPath string) error {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read template directory %s: %w", dirPath, err)
	}

	var loadErrors []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		if err := r.LoadFromFile(filepath.Join(dirPath, entry.Name())); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("file %s: %w", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d template files (first error): %w", len(loadErrors), loadErrors[0])
	}
	return nil
}

// Register adds a definition programmatically
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	if def.Path == "" {
		def.Path = def.Name + ".png"
	}
	if def.ReferenceHeight == 0 {
		def.ReferenceHeight = r.defaultReferenceHeight
	}
	if def.ReferenceHeight < 0 {
		return fmt.Errorf("template %s: %w: reference height %d", def.Name, cv.ErrInvalidReference, def.ReferenceHeight)
	}

	r.mu.Lock()
	r.definitions[def.Name] = def
	r.mu.Unlock()

	if def.Preload {
		if _, err := r.imageCache.Get(r.resolve(def.Path)); err != nil {
			// Not fatal, Load retries on demand
			r.logger.WarnWithContext("Template preload failed", map[string]interface{}{
				"symbol": def.Name,
				"error":  err.Error(),
			})
		}
	}
	return nil
}

// Get retrieves a definition by name
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.definitions[name]
	return def, ok
}

// Names returns all registered symbol names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.definitions))
	for name := range r.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load returns the template for a symbol, decoding its bitmap at most once.
// Unregistered symbols fall back to <basePath>/<name>.png at the default
// reference height.
func (r *Registry) Load(name string) (cv.Template, error) {
	def, ok := r.Get(name)
	if !ok {
		def = Definition{Name: name, Path: name + ".png", ReferenceHeight: r.defaultReferenceHeight}
	}

	path := r.resolve(def.Path)
	if !ok {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return cv.Template{}, fmt.Errorf("%w: %q (no manifest entry and no %s)", ErrUnknownSymbol, name, path)
		}
	}

	img, err := r.imageCache.Get(path)
	if err != nil {
		return cv.Template{}, fmt.Errorf("template %s: %w", name, err)
	}

	return cv.Template{
		Name:            def.Name,
		Bitmap:          img,
		ReferenceHeight: def.ReferenceHeight,
		Threshold:       def.Threshold,
	}, nil
}

func (r *Registry) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.basePath, path)
}
