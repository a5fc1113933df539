package content

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Greeting pool buckets keyed by how long the user has been away.
const (
	BucketFirstVisit  = "first_visit"
	BucketSameDay     = "same_day"
	BucketYesterday   = "yesterday"
	BucketThisWeek    = "this_week"
	BucketLongAbsence = "long_absence"
)

var knownBuckets = []string{
	BucketFirstVisit,
	BucketSameDay,
	BucketYesterday,
	BucketThisWeek,
	BucketLongAbsence,
}

// QuickAction is one tappable prompt shown alongside the voice control.
type QuickAction struct {
	ID     string `yaml:"id" json:"id"`
	Label  string `yaml:"label" json:"label"`
	Prompt string `yaml:"prompt" json:"prompt"`
	Icon   string `yaml:"icon,omitempty" json:"icon,omitempty"`
}

// Catalog holds the editable front-end content: quick actions and the
// greeting line pools.
type Catalog struct {
	QuickActions []QuickAction       `yaml:"quick_actions" json:"quick_actions"`
	Greetings    map[string][]string `yaml:"greetings" json:"greetings"`
}

// Default returns the built-in catalog used when no content file is set.
func Default() *Catalog {
	return &Catalog{
		QuickActions: []QuickAction{
			{ID: "checkin", Label: "Check in", Prompt: "How are you feeling right now?", Icon: "heart"},
			{ID: "remember", Label: "Remember this", Prompt: "I want you to remember something.", Icon: "bookmark"},
			{ID: "recap", Label: "Recap", Prompt: "What did we talk about last time?", Icon: "history"},
			{ID: "wind-down", Label: "Wind down", Prompt: "Help me wind down for the evening.", Icon: "moon"},
		},
		Greetings: map[string][]string{
			BucketFirstVisit: {
				"Hi, I'm Mira. Tap the circle whenever you want to talk.",
				"Welcome. I'm here whenever you're ready to say hello.",
			},
			BucketSameDay: {
				"Back again? I'm listening.",
				"Hello again. What's on your mind?",
			},
			BucketYesterday: {
				"Good to see you again. How did the rest of yesterday go?",
				"Welcome back. Anything carry over from yesterday?",
			},
			BucketThisWeek: {
				"It's been a few days. What's new with you?",
				"Nice to have you back this week.",
			},
			BucketLongAbsence: {
				"It's been a while. I'm glad you're here.",
				"Welcome back. A lot can happen in a stretch like that, tell me about it.",
			},
		},
	}
}

// Load reads a catalog from a YAML file. An empty path returns the built-in
// defaults; buckets and quick actions omitted from the file fall back to the
// defaults too.
func Load(path string) (*Catalog, error) {
	cat := Default()
	if strings.TrimSpace(path) == "" {
		return cat, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content file %s: %w", path, err)
	}

	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse content file %s: %w", path, err)
	}
	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("content file %s: %w", path, err)
	}

	if len(file.QuickActions) > 0 {
		cat.QuickActions = file.QuickActions
	}
	for bucket, lines := range file.Greetings {
		cat.Greetings[bucket] = lines
	}
	return cat, nil
}

// Validate checks the parts of the catalog that were actually provided.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.QuickActions))
	for i, qa := range c.QuickActions {
		if strings.TrimSpace(qa.ID) == "" {
			return fmt.Errorf("quick_actions[%d]: id must not be empty", i)
		}
		if strings.TrimSpace(qa.Label) == "" {
			return fmt.Errorf("quick_actions[%d]: label must not be empty", i)
		}
		if strings.TrimSpace(qa.Prompt) == "" {
			return fmt.Errorf("quick_actions[%d]: prompt must not be empty", i)
		}
		if seen[qa.ID] {
			return fmt.Errorf("quick_actions[%d]: duplicate id %q", i, qa.ID)
		}
		seen[qa.ID] = true
	}

	for bucket, lines := range c.Greetings {
		if !isKnownBucket(bucket) {
			return fmt.Errorf("greetings: unknown bucket %q, want one of %s", bucket, strings.Join(knownBuckets, ", "))
		}
		if len(lines) == 0 {
			return fmt.Errorf("greetings: bucket %q must have at least one line", bucket)
		}
		for i, line := range lines {
			if strings.TrimSpace(line) == "" {
				return fmt.Errorf("greetings: bucket %q line %d must not be empty", bucket, i)
			}
		}
	}
	return nil
}

// GreetingPool returns the lines for a bucket, falling back to the long
// absence pool for unknown buckets.
func (c *Catalog) GreetingPool(bucket string) []string {
	if lines, ok := c.Greetings[bucket]; ok && len(lines) > 0 {
		return lines
	}
	return c.Greetings[BucketLongAbsence]
}

func isKnownBucket(bucket string) bool {
	for _, b := range knownBuckets {
		if b == bucket {
			return true
		}
	}
	return false
}
