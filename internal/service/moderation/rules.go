package moderation

import (
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// PatternRule is a custom reject rule: content matching Pattern is rejected
// regardless of classifier scores.
type PatternRule struct {
	Pattern string `yaml:"pattern"`
	Reason  string `yaml:"reason"`

	compiled *regexp.Regexp
}

// RuleSet is the hot-reloadable policy file: custom reject patterns plus the
// per-category threshold table consulted for scores in the review band.
type RuleSet struct {
	Patterns           []PatternRule      `yaml:"patterns"`
	CategoryThresholds map[string]float64 `yaml:"category_thresholds"`
}

// defaultCategoryThresholds applies when no rules file is configured or the
// file omits the table.
var defaultCategoryThresholds = map[string]float64{
	"hate":       0.4,
	"harassment": 0.5,
	"sexual":     0.5,
	"violence":   0.6,
	"self-harm":  0.3,
	"spam":       0.7,
}

// Rules owns the current rule set and watches the backing file for changes.
type Rules struct {
	mu   sync.RWMutex
	set  *RuleSet
	path string
	log  *zap.Logger

	watcher *fsnotify.Watcher
}

// LoadRules reads the rules file and starts watching it for edits. An empty
// path yields the built-in defaults with no patterns and no watcher.
func LoadRules(path string, log *zap.Logger) (*Rules, error) {
	r := &Rules{
		path: path,
		log:  log.With(zap.String("module", "moderation_rules")),
		set:  &RuleSet{CategoryThresholds: defaultCategoryThresholds},
	}
	if path == "" {
		return r, nil
	}

	set, err := parseRulesFile(path)
	if err != nil {
		return nil, err
	}
	r.set = set

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		r.log.Warn("rules watcher unavailable, edits require restart", zap.Error(err))
		return r, nil
	}
	if err := watcher.Add(path); err != nil {
		r.log.Warn("cannot watch rules file, edits require restart", zap.Error(err))
		_ = watcher.Close()
		return r, nil
	}
	r.watcher = watcher
	go r.watch()
	return r, nil
}

func (r *Rules) watch() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			set, err := parseRulesFile(r.path)
			if err != nil {
				r.log.Error("rules reload failed, keeping previous set", zap.Error(err))
				continue
			}
			r.mu.Lock()
			r.set = set
			r.mu.Unlock()
			r.log.Info("moderation rules reloaded",
				zap.Int("patterns", len(set.Patterns)),
				zap.Int("category_thresholds", len(set.CategoryThresholds)))
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Error("rules watcher error", zap.Error(err))
		}
	}
}

// Close stops the file watcher.
func (r *Rules) Close() error {
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

// Match returns the first custom rule matching the content, or nil.
func (r *Rules) Match(content string) *PatternRule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.set.Patterns {
		rule := &r.set.Patterns[i]
		if rule.compiled != nil && rule.compiled.MatchString(content) {
			return rule
		}
	}
	return nil
}

// CategoryThreshold returns the review-band threshold for a category and
// whether the category has one.
func (r *Rules) CategoryThreshold(category string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.set.CategoryThresholds[category]
	return t, ok
}

// SetForTest swaps the rule set directly. Test hook.
func (r *Rules) SetForTest(set *RuleSet) {
	for i := range set.Patterns {
		set.Patterns[i].compiled = regexp.MustCompile(set.Patterns[i].Pattern)
	}
	if set.CategoryThresholds == nil {
		set.CategoryThresholds = defaultCategoryThresholds
	}
	r.mu.Lock()
	r.set = set
	r.mu.Unlock()
}

func parseRulesFile(path string) (*RuleSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var set RuleSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	for i := range set.Patterns {
		compiled, err := regexp.Compile(set.Patterns[i].Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%q): %w", i, set.Patterns[i].Pattern, err)
		}
		set.Patterns[i].compiled = compiled
	}
	if set.CategoryThresholds == nil {
		set.CategoryThresholds = defaultCategoryThresholds
	}
	return &set, nil
}
