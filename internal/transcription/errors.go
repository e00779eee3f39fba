package transcription

import (
	"errors"
	"fmt"
)

// Error is a semantic rejection whose text is shown to users as-is.
type Error string

func (e Error) Error() string       { return string(e) }
func (e Error) UserMessage() string { return string(e) }

const (
	ErrNoUploads        = Error("File upload failed")
	ErrNoFileURL        = Error("No file URL")
	ErrEmptyTranscript  = Error("Empty transcription returned from Gemini API")
	ErrNoSpeechDetected = Error("No speech detected in the uploaded file. Please upload a file with clear spoken content.")
)

// IsInvalidInput reports whether err rejects the caller's input before any
// download or generation call was made.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrNoUploads) || errors.Is(err, ErrNoFileURL)
}

// FileTooLargeError rejects downloads above the inline payload limit.
type FileTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file too large: %d bytes exceeds %d", e.Size, e.Limit)
}

func (e *FileTooLargeError) UserMessage() string {
	return fmt.Sprintf("File too large (%s). Please use files smaller than %dMB.", FormatSize(e.Size), e.Limit>>20)
}
