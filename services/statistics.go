package services

import (
	"math"

	"zentask/zentask/models"
)

// chartColors is the fallback palette for categories without a color.
var chartColors = []string{
	"#6366f1",
	"#f43f5e",
	"#10b981",
	"#f59e0b",
	"#8b5cf6",
	"#06b6d4",
	"#ec4899",
	"#475569",
}

type CategoryCount struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Total      int    `json:"total"`
	Completed  int    `json:"completed"`
}

type Statistics struct {
	Total          int             `json:"total"`
	Completed      int             `json:"completed"`
	Pending        int             `json:"pending"`
	CompletionRate int             `json:"completionRate"`
	EstimatedHours float64         `json:"estimatedHours"`
	ByCategory     []CategoryCount `json:"byCategory"`
}

// ComputeStatistics aggregates over every task regardless of the current
// filters. Categories without tasks are left out of ByCategory.
func ComputeStatistics(tasks []models.Task, categories []models.Category) Statistics {
	stats := Statistics{Total: len(tasks), ByCategory: []CategoryCount{}}

	minutes := 0
	for _, task := range tasks {
		if task.Completed {
			stats.Completed++
		}
		minutes += task.EstimatedMinutes
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	stats.EstimatedHours = math.Round(float64(minutes)/60*10) / 10

	for i, category := range categories {
		count := CategoryCount{CategoryID: category.ID, Name: category.Name, Color: category.Color}
		if count.Color == "" {
			count.Color = chartColors[i%len(chartColors)]
		}
		for _, task := range tasks {
			if task.Category() != category.ID {
				continue
			}
			count.Total++
			if task.Completed {
				count.Completed++
			}
		}
		if count.Total > 0 {
			stats.ByCategory = append(stats.ByCategory, count)
		}
	}
	return stats
}
