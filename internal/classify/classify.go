// Package classify implements the heuristic that decides which host nodes look
// like players.
//
// Matching is case-insensitive substring containment against a configurable
// keyword list. It is deliberately loose: decoys are expected and are filtered
// later by the root resolver's junk filter, not here.
package classify

import (
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"playermap/internal/domain"
	"playermap/internal/scene"
)

// DefaultPassCap bounds hits collected per pass
const DefaultPassCap = 120

// StrictKeywords is the minimal keyword set
var StrictKeywords = []string{"player", "character", "avatar"}

// LooseKeywords trades false positives for recall
var LooseKeywords = []string{
	"player", "character", "avatar",
	"network", "photon", "rig", "controller", "pawn",
}

// Config holds classifier settings
type Config struct {
	// Keywords matched against type names and display names
	Keywords []string
	// PassCap limits hits collected by each of the two passes
	PassCap int
}

// DefaultConfig returns the strict keyword set with the standard cap
func DefaultConfig() Config {
	return Config{
		Keywords: append([]string(nil), StrictKeywords...),
		PassCap:  DefaultPassCap,
	}
}

// Classifier matches node names and type names against keywords
type Classifier struct {
	keywords []string // folded
	raw      []string
	passCap  int
	logger   *log.Logger
}

// New creates a classifier. Empty keywords are dropped; a non-positive cap
// falls back to DefaultPassCap.
func New(cfg Config, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.PassCap <= 0 {
		cfg.PassCap = DefaultPassCap
	}

	fold := cases.Fold()
	c := &Classifier{passCap: cfg.PassCap, logger: logger}
	for _, kw := range cfg.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		c.keywords = append(c.keywords, fold.String(kw))
		c.raw = append(c.raw, kw)
	}
	return c
}

// Keywords returns the configured keywords as given
func (c *Classifier) Keywords() []string {
	return append([]string(nil), c.raw...)
}

// PassCap returns the per-pass hit cap
func (c *Classifier) PassCap() int {
	return c.passCap
}

// Match reports the first keyword contained in s, ignoring case
func (c *Classifier) Match(s string) (string, bool) {
	return c.match(cases.Fold(), s)
}

func (c *Classifier) match(fold cases.Caser, s string) (string, bool) {
	if s == "" {
		return "", false
	}
	folded := fold.String(s)
	for i, kw := range c.keywords {
		if strings.Contains(folded, kw) {
			return c.raw[i], true
		}
	}
	return "", false
}

// Classify checks a single node: type names first, then the display name
func (c *Classifier) Classify(n domain.GraphNode) (domain.ClassificationHit, bool) {
	fold := cases.Fold()
	if hit, ok := c.classifyType(fold, n); ok {
		return hit, true
	}
	return c.classifyName(fold, n)
}

func (c *Classifier) classifyType(fold cases.Caser, n domain.GraphNode) (domain.ClassificationHit, bool) {
	for _, tn := range n.TypeNames {
		if kw, ok := c.match(fold, tn); ok {
			return domain.ClassificationHit{
				Node:      n,
				MatchedBy: domain.MatchTypeName,
				Keyword:   kw,
				TypeName:  tn,
			}, true
		}
	}
	return domain.ClassificationHit{}, false
}

func (c *Classifier) classifyName(fold cases.Caser, n domain.GraphNode) (domain.ClassificationHit, bool) {
	if kw, ok := c.match(fold, n.Name); ok {
		return domain.ClassificationHit{
			Node:      n,
			MatchedBy: domain.MatchDisplayName,
			Keyword:   kw,
		}, true
	}
	return domain.ClassificationHit{}, false
}

// Scan runs the type-name pass and the display-name pass over g. Hits are
// returned type pass first, each pass in enumeration order. An enumeration
// error aborts the scan; individual unusable nodes are skipped.
func (c *Classifier) Scan(g scene.Graph, trigger domain.ScanTrigger) (domain.ScanReport, []domain.ClassificationHit, error) {
	report := domain.ScanReport{Trigger: trigger, Started: time.Now()}
	fold := cases.Fold()

	c.logger.Printf("classify: scan start (trigger=%s, keywords=%v)", trigger, c.raw)

	behaviours, err := g.Enumerate(domain.KindBehaviour)
	if err != nil {
		return report, nil, fmt.Errorf("enumerate behaviours: %w", err)
	}

	var hits []domain.ClassificationHit
	for _, n := range behaviours {
		if !usable(n) {
			report.Skipped++
			continue
		}
		hit, ok := c.classifyType(fold, n)
		if !ok {
			continue
		}
		c.logger.Printf("classify: TYPE HIT %s | node=%s | active=%v | pos=%s",
			hit.TypeName, n.Name, n.Active, n.Position)
		hits = append(hits, hit)
		report.TypeHits++
		if report.TypeHits >= c.passCap {
			break
		}
	}
	c.logger.Printf("classify: type pass hits=%d", report.TypeHits)

	transforms, err := g.Enumerate(domain.KindTransform)
	if err != nil {
		return report, hits, fmt.Errorf("enumerate transforms: %w", err)
	}

	for _, n := range transforms {
		if !usable(n) {
			report.Skipped++
			continue
		}
		hit, ok := c.classifyName(fold, n)
		if !ok {
			continue
		}
		c.logger.Printf("classify: NAME HIT node=%s | active=%v | pos=%s", n.Name, n.Active, n.Position)
		hits = append(hits, hit)
		report.NameHits++
		if report.NameHits >= c.passCap {
			break
		}
	}
	c.logger.Printf("classify: name pass hits=%d", report.NameHits)

	report.Duration = time.Since(report.Started)
	c.logger.Printf("classify: scan end (total=%d, skipped=%d)", report.Total(), report.Skipped)
	return report, hits, nil
}

// usable filters out nodes that were destroyed underneath the snapshot or that
// live outside a valid scene (asset previews, prefab copies).
func usable(n domain.GraphNode) bool {
	return n.InstanceID != 0 && n.SceneValid
}
