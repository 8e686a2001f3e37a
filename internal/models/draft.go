package models

import "time"

// Draft is an in-progress booking form kept between visits.
type Draft struct {
	UserID    string                 `json:"user_id"`
	Fields    map[string]interface{} `json:"fields"`
	SavedAt   time.Time              `json:"saved_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

func (d *Draft) Expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && !now.Before(d.ExpiresAt)
}

func (d *Draft) GetInt(key string) int {
	if d.Fields == nil {
		return 0
	}
	val, ok := d.Fields[key]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func (d *Draft) GetString(key string) string {
	if d.Fields == nil {
		return ""
	}
	if str, ok := d.Fields[key].(string); ok {
		return str
	}
	return ""
}

func (d *Draft) GetBool(key string) bool {
	if d.Fields == nil {
		return false
	}
	b, _ := d.Fields[key].(bool)
	return b
}

func (d *Draft) GetTime(key string) time.Time {
	if d.Fields == nil {
		return time.Time{}
	}
	switch v := d.Fields[key].(type) {
	case time.Time:
		return v
	case string:
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}
		}
		return t
	default:
		return time.Time{}
	}
}
