package domain

import (
	"errors"
	"time"
)

// ErrJobNotFound reports an unknown job identifier.
var ErrJobNotFound = errors.New("job not found")

// Slide carries one deck page through the pipeline. The caller supplies
// the number, layout, content flag and image; the pipeline fills in the
// observations, headline and status.
type Slide struct {
	Number       int    `json:"number"`
	Layout       string `json:"layout,omitempty"`
	ContentSlide bool   `json:"content_slide"`
	ImageBase64  string `json:"image_base64,omitempty"`
	Observations string `json:"observations,omitempty"`
	Headline     string `json:"headline,omitempty"`
	Status       string `json:"status,omitempty"`
}

// DeckRequest is the payload for starting a headline-generation run.
// UserPrompt carries the market and brand framing every stage receives.
type DeckRequest struct {
	Slides                 []Slide `json:"slides" binding:"required"`
	UserPrompt             string  `json:"user_prompt" binding:"required"`
	GeneratorID            string  `json:"generator_id,omitempty"`
	ContextWindowSize      int     `json:"context_window_size,omitempty"`
	FewShotExamples        string  `json:"few_shot_examples,omitempty"`
	AdditionalInstructions string  `json:"additional_instructions,omitempty"`
	TaskDescription        string  `json:"task_description,omitempty"`
}

// JobStatus is the lifecycle state of a deck-processing job.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job tracks one asynchronous deck-processing run.
type Job struct {
	ID          string      `json:"job_id"`
	Status      JobStatus   `json:"status"`
	Message     string      `json:"message"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
	Slides      []Slide     `json:"slides,omitempty"`
	Metrics     *RunMetrics `json:"metrics,omitempty"`
}

// RunMetrics summarizes a pipeline run for reporting.
type RunMetrics struct {
	GeneratorID           string    `json:"generator_id"`
	GeneratorName         string    `json:"generator_name,omitempty"`
	GeneratorVersion      string    `json:"generator_version,omitempty"`
	TaskDescription       string    `json:"task_description,omitempty"`
	TotalSlides           int       `json:"total_slides"`
	ContentSlides         int       `json:"content_slides_processed"`
	ObservationsGenerated int       `json:"observations_generated"`
	HeadlinesGenerated    int       `json:"headlines_generated"`
	Errors                int       `json:"errors"`
	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	TotalSeconds          float64   `json:"total_time_seconds"`
	SecondsPerSlide       float64   `json:"average_time_per_content_slide"`
}
