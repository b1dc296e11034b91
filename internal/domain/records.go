package domain

import "time"

// StudyLog records a study session extracted from chat by the
// log_study_time tool.
type StudyLog struct {
	ID              string    `json:"id"`
	Subject         string    `json:"subject"`
	DurationMinutes float64   `json:"duration_minutes"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Goal records a target the user expressed, extracted by the create_goal
// tool.
type Goal struct {
	ID          string    `json:"id"`
	Domain      string    `json:"domain"`
	Title       string    `json:"title"`
	TargetValue float64   `json:"target_value"`
	Unit        string    `json:"unit"`
	CreatedAt   time.Time `json:"created_at"`
}

// Insight records a model-generated observation, extracted by the
// generate_insight tool.
type Insight struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}
