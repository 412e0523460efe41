package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/htn-go/domain/goal"
	"github.com/felixgeelhaar/htn-go/domain/plan"
	"github.com/felixgeelhaar/htn-go/domain/world"
)

// Key derives the cache key for planning toward g from w with the described
// tasks. Task order matters because it decides which of two equal-cost plans
// wins. Keys in different namespaces never collide.
func Key(namespace string, g goal.Goal, w world.State, tasks []string) string {
	h := sha256.New()
	fmt.Fprintf(h, "ns=%s\x00", namespace)
	fmt.Fprintf(h, "goal=%s\x00req=%s\x00", g.Name, g.Requirements.String())
	fmt.Fprintf(h, "world=%s\x00", w.String())
	h.Write([]byte(strings.Join(tasks, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))
}

// Encode renders a plan for storage.
func Encode(p *plan.Plan) ([]byte, error) {
	return json.Marshal(p)
}

// Decode parses a stored plan.
func Decode(data []byte) (*plan.Plan, error) {
	var p plan.Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	if p.Goal == "" {
		return nil, fmt.Errorf("%w: missing goal", ErrCorruptEntry)
	}
	return &p, nil
}
