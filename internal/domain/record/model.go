package record

import (
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/clinicrecords/clinic/internal/platform/apperr"
)

const (
	maxTitleLen = 100
	DateLayout  = "2006-01-02"
)

type Record struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	FilePath    *string   `json:"file_path"`
	RecordDate  string    `json:"record_date"`
	PatientID   int64     `json:"patient_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Input struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	RecordDate  string  `json:"record_date"`
}

// Upload is an attachment sent with a new record.
type Upload struct {
	Filename string
	Content  io.Reader
}

func (in *Input) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.RecordDate = strings.TrimSpace(in.RecordDate)
	if in.Description != nil && strings.TrimSpace(*in.Description) == "" {
		in.Description = nil
	}
}

func (in *Input) validate() error {
	switch {
	case in.Title == "":
		return apperr.Validation("title is required")
	case utf8.RuneCountInString(in.Title) > maxTitleLen:
		return apperr.Validation("title must be at most %d characters", maxTitleLen)
	case in.RecordDate == "":
		return apperr.Validation("record_date is required")
	}
	if _, err := time.Parse(DateLayout, in.RecordDate); err != nil {
		return apperr.Validation("record_date must be a date in YYYY-MM-DD format")
	}
	return nil
}
