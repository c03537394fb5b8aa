package catalog

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/exercise-engine/internal/models"
)

// Load reads every YAML exercise in dir of fsys, binds each to the verifier
// registered under its slug and builds the catalog. Files that fail to
// parse or have no verifier are skipped with a warning; duplicate slugs
// fail the whole load.
func Load(fsys fs.FS, dir string, verifiers map[string]models.Verifier) (*Catalog, error) {
	slog.Info("loading exercises", "dir", dir)

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read exercise directory: %w", err)
	}

	var exercises []*models.Exercise
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		file := path.Join(dir, entry.Name())
		ex, err := loadFile(fsys, file)
		if err != nil {
			slog.Warn("failed to load exercise", "file", file, "error", err)
			continue
		}

		v, ok := verifiers[ex.Slug]
		if !ok {
			slog.Warn("no verifier registered for exercise", "file", file, "slug", ex.Slug)
			continue
		}
		ex.Verifier = v

		exercises = append(exercises, ex)
		slog.Debug("exercise loaded", "slug", ex.Slug, "kind", ex.Kind)
	}

	c, err := New(exercises...)
	if err != nil {
		return nil, err
	}

	slog.Info("exercises loaded", "count", c.Len(), "total_files", len(entries))
	return c, nil
}

func loadFile(fsys fs.FS, file string) (*models.Exercise, error) {
	data, err := fs.ReadFile(fsys, file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var ef exerciseFile
	if err := yaml.Unmarshal(data, &ef); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return ef.toModel(strings.TrimSuffix(path.Base(file), path.Ext(file)))
}

// --- YAML file structs ---

// exerciseFile represents the YAML structure of one exercise
type exerciseFile struct {
	ID               string        `yaml:"id"`
	Slug             string        `yaml:"slug"`
	Kind             string        `yaml:"kind"`
	Title            string        `yaml:"title"`
	Difficulty       string        `yaml:"difficulty"`
	Category         string        `yaml:"category"`
	Language         string        `yaml:"language"`
	Order            int           `yaml:"order"`
	VideoID          string        `yaml:"video_id"`
	ProblemStatement []string      `yaml:"problem_statement"`
	Examples         []exampleFile `yaml:"examples"`
	Constraints      []string      `yaml:"constraints"`
	Starter          starterFile   `yaml:"starter"`
	Solution         solutionFile  `yaml:"solution"`
}

type exampleFile struct {
	ID          int    `yaml:"id"`
	Input       string `yaml:"input"`
	Output      string `yaml:"output"`
	Explanation string `yaml:"explanation"`
}

type starterFile struct {
	HTML         string `yaml:"html"`
	CSS          string `yaml:"css"`
	Component    string `yaml:"component"`
	FunctionName string `yaml:"function_name"`
}

type solutionFile struct {
	Approach    string   `yaml:"approach"`
	Explanation []string `yaml:"explanation"`
	Code        string   `yaml:"code"`
	HTML        string   `yaml:"html"`
	CSS         string   `yaml:"css"`
}

func (ef exerciseFile) toModel(fallbackSlug string) (*models.Exercise, error) {
	slug := ef.Slug
	if slug == "" {
		slug = fallbackSlug
	}
	id := ef.ID
	if id == "" {
		id = slug
	}

	if ef.Title == "" {
		return nil, fmt.Errorf("exercise title is required")
	}

	kind := models.Kind(ef.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown exercise kind: %q", ef.Kind)
	}

	difficulty, err := models.ParseDifficulty(ef.Difficulty)
	if err != nil {
		return nil, err
	}

	examples := make([]models.Example, 0, len(ef.Examples))
	for _, e := range ef.Examples {
		examples = append(examples, models.Example{
			ID:          e.ID,
			Input:       e.Input,
			Output:      e.Output,
			Explanation: e.Explanation,
		})
	}

	solution := models.Solution{
		Approach:    ef.Solution.Approach,
		Explanation: ef.Solution.Explanation,
		Code:        ef.Solution.Code,
		HTML:        ef.Solution.HTML,
		CSS:         ef.Solution.CSS,
	}
	if solution.Code == "" && kind == models.KindMarkupStyle {
		solution.Code = "<!-- HTML -->\n" + solution.HTML + "\n/* CSS */\n" + solution.CSS
	}

	return &models.Exercise{
		ID:   id,
		Slug: slug,
		Kind: kind,
		Metadata: models.Metadata{
			Title:            ef.Title,
			Difficulty:       difficulty,
			Category:         ef.Category,
			Language:         ef.Language,
			ProblemStatement: ef.ProblemStatement,
			Examples:         examples,
			Constraints:      ef.Constraints,
			Order:            ef.Order,
			VideoID:          ef.VideoID,
		},
		Starter: models.StarterArtifacts{
			HTML:         ef.Starter.HTML,
			CSS:          ef.Starter.CSS,
			Component:    ef.Starter.Component,
			FunctionName: ef.Starter.FunctionName,
		},
		Solution: solution,
	}, nil
}
