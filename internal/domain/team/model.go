package team

import (
	"fmt"
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Team is a club whose squad is pulled from the data provider.
type Team struct {
	// Key parameterizes the provider request (the provider's TeamId).
	Key string
	// Name is stamped into every player record of the team.
	Name string
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.Key) == "" {
		return fmt.Errorf("team key is required")
	}
	return nil
}

// DisplayName falls back to the key when the provider gave no name.
func (t Team) DisplayName() string {
	if name := strings.TrimSpace(t.Name); name != "" {
		return name
	}
	return strings.TrimSpace(t.Key)
}

// Slug is the stable object name for the team inside the lake.
func (t Team) Slug() string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(t.Key)), "-")
	return strings.Trim(slug, "-")
}

// ParseList reads "key[:name]" items separated by commas, e.g.
// "516:Arsenal,517:Chelsea" or "Arsenal,Chelsea".
func ParseList(raw string) ([]Team, error) {
	out := make([]Team, 0, 20)
	seen := make(map[string]struct{}, 20)
	for _, part := range strings.Split(raw, ",") {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}

		key, name, _ := strings.Cut(item, ":")
		t := Team{Key: strings.TrimSpace(key), Name: strings.TrimSpace(name)}
		if t.Name == "" {
			t.Name = t.Key
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("invalid team item %q: %w", item, err)
		}
		if t.Slug() == "" {
			return nil, fmt.Errorf("invalid team item %q: key has no usable characters", item)
		}
		if _, ok := seen[t.Slug()]; ok {
			return nil, fmt.Errorf("duplicate team key %q", t.Key)
		}
		seen[t.Slug()] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}
