package models

import "time"

// Persisted field names of a lecture session document.
const (
	FieldOwnerID    = "owner_id"
	FieldSessionID  = "session_id"
	FieldStartTime  = "start_time"
	FieldEndTime    = "end_time"
	FieldIsActive   = "is_active"
	FieldTranscript = "transcript"
	FieldImageData  = "image_data"
)

// LectureSession is one recording session for one user.
type LectureSession struct {
	OwnerID    string     `json:"owner_id" bson:"owner_id" firestore:"owner_id"`
	SessionID  string     `json:"session_id" bson:"session_id" firestore:"session_id"`
	StartTime  time.Time  `json:"start_time" bson:"start_time" firestore:"start_time"`
	EndTime    *time.Time `json:"end_time" bson:"end_time" firestore:"end_time"`
	IsActive   bool       `json:"is_active" bson:"is_active" firestore:"is_active"`
	Transcript *string    `json:"transcript,omitempty" bson:"transcript,omitempty" firestore:"transcript,omitempty"`
	ImageData  []byte     `json:"image_data,omitempty" bson:"image_data,omitempty" firestore:"image_data,omitempty"`
}

// TranscriptText returns the stored transcript or "".
func (s *LectureSession) TranscriptText() string {
	if s.Transcript == nil {
		return ""
	}
	return *s.Transcript
}

// Summary is the response of a summary request.
type Summary struct {
	Text   string   `json:"text"`
	Slides []string `json:"slides"`
}

// Question is one generated study question.
type Question struct {
	Question          string  `json:"question"`
	PreSearchedAnswer *string `json:"pre_searched_answer"`
}
