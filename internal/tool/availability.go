package tool

import (
	"context"
	"fmt"
	"time"
)

// AvailabilityTool answers whether a given date and time slot is open.
// The check itself is a placeholder; deployments replace it with a real
// calendar lookup.
type AvailabilityTool struct{}

func (AvailabilityTool) Definition() Definition {
	return Definition{
		Type:        "function",
		Name:        "check_availability",
		Description: "Checks availability for a given date and time.",
		Parameters: map[string]any{
			"type":     "object",
			"required": []string{"date", "time"},
			"properties": map[string]any{
				"date": map[string]any{
					"type":        "string",
					"description": "The date to check, formatted as YYYY-MM-DD.",
				},
				"time": map[string]any{
					"type":        "string",
					"description": "The time to check, formatted as HH:MM.",
				},
			},
			"additionalProperties": false,
		},
	}
}

func (AvailabilityTool) Invoke(ctx context.Context, params map[string]any) (any, error) {
	date, _ := params["date"].(string)
	hour, _ := params["time"].(string)
	when, err := time.Parse("2006-01-02 15:04", fmt.Sprintf("%s %s", date, hour))
	if err != nil {
		return map[string]any{
			"error":   "Invalid date/time format",
			"message": err.Error(),
		}, nil
	}
	return map[string]any{
		"available": true,
		"datetime":  when.Format(time.RFC3339),
		"message":   "Available for the requested time",
	}, nil
}
