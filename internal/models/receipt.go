package models

import "time"

// ReceiptAudience identifies who a digital receipt is addressed to.
type ReceiptAudience string

const (
	ReceiptAudienceStudent    ReceiptAudience = "student"
	ReceiptAudienceInstructor ReceiptAudience = "instructor"
)

// ReceiptContent is the data rendered into receipt messages.
type ReceiptContent struct {
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	SubmissionTitle string    `json:"submission_title"`
	ModuleName      string    `json:"module_name"`
	CourseFullName  string    `json:"course_fullname"`
	SubmissionDate  time.Time `json:"submission_date"`
	SubmissionID    string    `json:"submission_id"`
}

// DigitalReceipt is a notification confirming a successful upload.
type DigitalReceipt struct {
	Audience     ReceiptAudience `json:"audience"`
	RecipientIDs []string        `json:"recipient_ids"`
	CourseID     string          `json:"course_id"`
	Subject      string          `json:"subject"`
	Body         string          `json:"body"`
	Content      ReceiptContent  `json:"content"`
	CreatedAt    time.Time       `json:"created_at"`
}
