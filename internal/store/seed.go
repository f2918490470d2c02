package store

import "time"

// SeedDemo fills s with the starter board and roster used when no remote
// store is configured.
func SeedDemo(s *MemStore, now time.Time) {
	ts := now.UTC().Format(timestampLayout)
	earlier := now.Add(-time.Minute).UTC().Format(timestampLayout)

	s.Seed(TableTasks,
		Record{
			"id":          int64(1),
			"title":       "Set up Mission Control",
			"description": "Build the mission control dashboard",
			"status":      "in-progress",
			"assigned_to": "claw",
			"priority":    "",
			"tags":        []string{},
			"created_at":  earlier,
			"updated_at":  earlier,
		},
		Record{
			"id":          int64(2),
			"title":       "Review eatmacandcheese.com",
			"description": "Check the site and provide feedback",
			"status":      "todo",
			"assigned_to": "me",
			"priority":    "",
			"tags":        []string{},
			"created_at":  ts,
			"updated_at":  ts,
		},
	)

	s.Seed(TableAgents,
		Record{"id": "main", "name": "Henry", "role": "Main Agent", "status": "working",
			"location_x": 100.0, "location_y": 150.0, "current_task": "Building Mission Control"},
		Record{"id": "coder", "name": "Dev Agent", "role": "Developer", "status": "idle",
			"location_x": 300.0, "location_y": 150.0},
		Record{"id": "writer", "name": "Writer Agent", "role": "Writer", "status": "idle",
			"location_x": 500.0, "location_y": 150.0},
	)
}
