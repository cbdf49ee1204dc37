package model

import (
	"encoding/json"
	"time"
)

// POI is the stored point-of-interest record. It is created once per
// identifier and never updated by the pipeline.
type POI struct {
	ID        string    `json:"id"`
	City      string    `json:"city"`
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	Random    float64   `json:"random"`
	CreatedAt time.Time `json:"created_at"`
}

// AnnotationKind labels the fact an annotation carries.
type AnnotationKind string

const (
	AnnotationFiling  AnnotationKind = "faillissementsdossier"
	AnnotationAddress AnnotationKind = "address"
)

// Annotation is an append-only fact attached to a POI.
type Annotation struct {
	ID        string          `json:"id"`
	POIID     string          `json:"poi_id"`
	Kind      AnnotationKind  `json:"kind"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// AddressAnnotation is the payload of an address annotation.
type AddressAnnotation struct {
	Address string `json:"address"`
}

// RunStatus represents the state of an ingest run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// IngestSummary counts how the rows of one run settled.
type IngestSummary struct {
	Rows         int `json:"rows"`
	Created      int `json:"created"`
	Existing     int `json:"existing"`
	Invalid      int `json:"invalid"`
	Unclassified int `json:"unclassified"`
}

// Rejected is the number of rows skipped because of row-level errors.
func (s IngestSummary) Rejected() int {
	return s.Invalid + s.Unclassified
}

// IngestRun is the audit record of one pipeline invocation. It is never
// consulted to decide whether a filing was already ingested.
type IngestRun struct {
	ID         string        `json:"id"`
	SourceURL  string        `json:"source_url"`
	Status     RunStatus     `json:"status"`
	Summary    IngestSummary `json:"summary"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}
