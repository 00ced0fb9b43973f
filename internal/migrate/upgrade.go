package migrate

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Tiliavir/ots/internal/storage"
)

// upgradeV1 renames the legacy root fields, turns the single last_running
// pointer into a history stack and converts timesheets into entries.
func upgradeV1(s *Snapshot) error {
	root := s.Root

	next, ok := asInt(root["sequence_next_id"])
	if !ok || next < 1 {
		next = 1
	}
	root["next_id"] = next
	delete(root, "sequence_next_id")
	delete(root, "version")

	running, err := legacyPointer(root["current_running"])
	if err != nil {
		return fmt.Errorf("current_running: %w", err)
	}
	root["running"] = running
	delete(root, "current_running")

	history := []any{}
	last, err := legacyPointer(root["last_running"])
	if err != nil {
		return fmt.Errorf("last_running: %w", err)
	}
	if last != nil {
		history = append(history, last)
	}
	root["history"] = history
	delete(root, "last_running")

	aliases, _ := root["aliases"].(map[string]any)
	if aliases == nil {
		aliases = map[string]any{}
	}
	for name, raw := range aliases {
		if a, ok := raw.(map[string]any); ok {
			a["name"] = name
		}
	}
	root["aliases"] = aliases

	for key, day := range s.Days {
		if _, ok := day["date"]; !ok {
			if date, isDay := storage.DateOf(key); isDay {
				day["date"] = date
			}
		}
		sheets, _ := day["timesheets"].([]any)
		entries := make([]any, 0, len(sheets))
		for i, raw := range sheets {
			e, ok := raw.(map[string]any)
			if !ok {
				return fmt.Errorf("%s: timesheet %d is not an object", key, i)
			}
			if err := upgradeV1Entry(e); err != nil {
				return fmt.Errorf("%s: timesheet %d: %w", key, i, err)
			}
			entries = append(entries, e)
		}
		day["entries"] = entries
		delete(day, "timesheets")
	}
	return nil
}

func upgradeV1Entry(e map[string]any) error {
	minutes, _ := asInt(e["duration"])
	if minutes < 0 {
		minutes = 0
	}
	e["duration_seconds"] = minutes * 60
	delete(e, "duration")

	if start, ok := e["start_time"].(string); ok && start != "" {
		e["started_at"] = start
	}
	delete(e, "start_time")
	delete(e, "running")

	switch ref := e["odoo_id"].(type) {
	case nil, bool:
		// false is how v1 recorded "never pushed"
	case json.Number:
		if id, err := ref.Int64(); err == nil && id > 0 {
			e["remote_ref"] = strconv.FormatInt(id, 10)
		}
	case string:
		if strings.TrimSpace(ref) != "" {
			e["remote_ref"] = ref
		}
	default:
		return fmt.Errorf("unexpected odoo_id %v", ref)
	}
	delete(e, "odoo_id")

	if _, ok := e["is_worktime"]; !ok {
		e["is_worktime"] = true
	}
	return nil
}

// legacyPointer converts {"date", "index"} into {"date", "position"}.
func legacyPointer(raw any) (map[string]any, error) {
	if raw == nil {
		return nil, nil
	}
	p, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("not an object: %v", raw)
	}
	date, _ := p["date"].(string)
	pos, ok := asInt(p["index"])
	if !ok {
		pos, ok = asInt(p["position"])
	}
	if date == "" || !ok {
		return nil, fmt.Errorf("incomplete pointer %v", raw)
	}
	return map[string]any{"date": date, "position": pos}, nil
}

// upgradeV2 assigns a push key to every entry.
func upgradeV2(s *Snapshot) error {
	for key, day := range s.Days {
		entries, _ := day["entries"].([]any)
		for i, raw := range entries {
			e, ok := raw.(map[string]any)
			if !ok {
				return fmt.Errorf("%s: entry %d is not an object", key, i)
			}
			if k, _ := e["push_key"].(string); k == "" {
				e["push_key"] = uuid.NewString()
			}
		}
	}
	return nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}
