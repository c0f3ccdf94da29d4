package pkg

import "time"

// User is a registered account.  Password hashes never leave internal/db,
// so the struct only carries public fields.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// DiagnosisRecord is one completed diagnosis, as persisted in history and
// consumed by the PDF report builder.
type DiagnosisRecord struct {
	ID                int64     `json:"id"`
	UserID            string    `json:"user_id"`
	PatientName       string    `json:"patient_name,omitempty"`
	Symptoms          []string  `json:"symptoms"`
	InitialLabel      string    `json:"initial_label"`
	InitialConfidence float64   `json:"initial_confidence"`
	FinalLabel        string    `json:"final_label"`
	FinalConfidence   float64   `json:"final_confidence"`
	Description       string    `json:"description,omitempty"`
	Precautions       []string  `json:"precautions,omitempty"`
	Advisory          string    `json:"advisory,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest exchanges credentials for a bearer token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse carries the signed JWT returned by register and login.
type TokenResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// SymptomTextRequest is the free-text intake for a session.  Lang is the
// BCP-47 code of the text; anything other than "en" is translated before
// extraction.
type SymptomTextRequest struct {
	PatientName string `json:"patient_name,omitempty"`
	Text        string `json:"text"`
	Lang        string `json:"lang,omitempty"`
}

// IntakeResponse reports the detected symptoms, the initial prediction and
// the follow-up questions to ask next.
type IntakeResponse struct {
	SessionID         string   `json:"session_id"`
	DetectedSymptoms  []string `json:"detected_symptoms"`
	InitialLabel      string   `json:"initial_label"`
	InitialConfidence float64  `json:"initial_confidence"`
	Questions         []string `json:"questions"`
}

// GuidedAnswersRequest confirms a subset of the pending follow-up symptoms.
type GuidedAnswersRequest struct {
	Confirmed []string `json:"confirmed"`
}

// DiagnosisResponse is the final result of a session, enriched with the
// condition description and precautions (translated when Lang != "en").
type DiagnosisResponse struct {
	SessionID       string   `json:"session_id"`
	FinalLabel      string   `json:"final_label"`
	FinalConfidence float64  `json:"final_confidence"`
	Symptoms        []string `json:"symptoms"`
	Description     string   `json:"description,omitempty"`
	Precautions     []string `json:"precautions,omitempty"`
	Advisory        string   `json:"advisory,omitempty"`
}

// ErrorResponse is the uniform JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
