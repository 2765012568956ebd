package lectures

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ar-classroom/backend/internal/models"
	"github.com/ar-classroom/backend/pkg/docstore"
	"github.com/ar-classroom/backend/pkg/gateway"
	"github.com/ar-classroom/backend/pkg/upload"
)

// Policy decides what Start does when the owner already has an active lecture.
type Policy string

const (
	// PolicyAllowMultiple starts another lecture; End without a session id closes one of them.
	PolicyAllowMultiple Policy = "allow_multiple"
	// PolicyReject fails Start with ErrActiveSessionExists.
	PolicyReject Policy = "reject"
	// PolicyAutoClose ends every active lecture of the owner before starting the new one.
	PolicyAutoClose Policy = "auto_close"
)

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	switch p {
	case PolicyAllowMultiple, PolicyReject, PolicyAutoClose:
		return true
	}
	return false
}

// maxAutoClose bounds the close loop of PolicyAutoClose.
const maxAutoClose = 100

// Gateway is the generative AI service used for transcripts, summaries and questions.
type Gateway interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
	Summarize(ctx context.Context, transcript string) (string, error)
	GenerateQuestions(ctx context.Context, transcript string, count int) ([]gateway.QA, error)
}

// Config holds lifecycle settings.
type Config struct {
	LecturesCollection string
	UsersCollection    string
	Policy             Policy
	GatewayTimeout     time.Duration
	QuestionCount      int
}

// UpdateRequest carries the optional uploads of an update. Nil means absent.
type UpdateRequest struct {
	OwnerID   string
	SessionID string
	Audio     *upload.File
	Image     *upload.File
}

// Service implements the lecture lifecycle. It keeps no session state between calls;
// every operation re-reads the store.
type Service struct {
	store   docstore.Store
	gateway Gateway
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
	newID   func() string
}

// NewService creates a lecture service.
func NewService(store docstore.Store, gw Gateway, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.LecturesCollection == "" {
		cfg.LecturesCollection = "lecture-entries"
	}
	if cfg.UsersCollection == "" {
		cfg.UsersCollection = "user-entries"
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyAllowMultiple
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = 60 * time.Second
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = 3
	}
	return &Service{
		store:   store,
		gateway: gw,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Start creates a new active lecture for ownerID and returns its session id.
func (s *Service) Start(ctx context.Context, ownerID string) (string, error) {
	if ownerID == "" {
		return "", invalidInput("owner_id is required")
	}

	switch s.cfg.Policy {
	case PolicyReject:
		var existing models.LectureSession
		err := s.store.FindOne(ctx, s.cfg.LecturesCollection, activeFilter(ownerID), &existing)
		if err == nil {
			return "", &Error{Kind: ErrActiveSessionExists, Detail: "Active lecture already exists: " + existing.SessionID}
		}
		if !errors.Is(err, docstore.ErrNoDocument) {
			return "", fmt.Errorf("find active lecture: %w", err)
		}
	case PolicyAutoClose:
		closed, err := s.closeActive(ctx, ownerID)
		if err != nil {
			return "", err
		}
		if closed > 0 {
			s.logger.Info("closed previous active lectures", zap.String("owner_id", ownerID), zap.Int("count", closed))
		}
	}

	now := s.now().UTC()
	session := models.LectureSession{
		OwnerID:   ownerID,
		SessionID: s.newID(),
		StartTime: now,
		IsActive:  true,
	}
	if err := s.store.Insert(ctx, s.cfg.LecturesCollection, session); err != nil {
		return "", fmt.Errorf("insert lecture: %w", err)
	}
	s.touchUser(ctx, ownerID, now)

	s.logger.Info("lecture started", zap.String("owner_id", ownerID), zap.String("session_id", session.SessionID))
	return session.SessionID, nil
}

// Update attaches audio (transcribed) and/or image data to an active lecture.
// A failed transcription leaves the transcript untouched and does not fail the update.
func (s *Service) Update(ctx context.Context, req UpdateRequest) error {
	if req.OwnerID == "" || req.SessionID == "" {
		return invalidInput("owner_id and session_id are required")
	}

	filter := docstore.Filter{
		models.FieldOwnerID:   req.OwnerID,
		models.FieldSessionID: req.SessionID,
		models.FieldIsActive:  true,
	}
	var session models.LectureSession
	if err := s.store.FindOne(ctx, s.cfg.LecturesCollection, filter, &session); err != nil {
		if errors.Is(err, docstore.ErrNoDocument) {
			return notFound("Active lecture not found")
		}
		return fmt.Errorf("find lecture: %w", err)
	}

	if req.Audio != nil && !upload.IsAudio(req.Audio.Name) {
		return invalidInput("Audio must be a .wav file")
	}

	set := docstore.Fields{}
	if req.Audio != nil {
		text, err := s.transcribe(ctx, req.Audio)
		if err != nil {
			s.logger.Warn("transcription failed, transcript not updated",
				zap.String("session_id", req.SessionID),
				zap.Bool("gateway_error", errors.Is(err, gateway.ErrTranscription)),
				zap.Error(err),
			)
		} else {
			set[models.FieldTranscript] = text
		}
	}
	if req.Image != nil {
		set[models.FieldImageData] = req.Image.Data
	}
	if len(set) == 0 {
		return nil
	}

	if _, err := s.store.UpdateOne(ctx, s.cfg.LecturesCollection, filter, set); err != nil {
		return fmt.Errorf("update lecture: %w", err)
	}
	s.logger.Debug("lecture updated", zap.String("session_id", req.SessionID), zap.Int("fields", len(set)))
	return nil
}

// Summary summarizes the stored transcript of a lecture, active or not.
func (s *Service) Summary(ctx context.Context, ownerID, sessionID string) (models.Summary, error) {
	session, err := s.find(ctx, ownerID, sessionID)
	if err != nil {
		return models.Summary{}, err
	}

	summary := models.Summary{Slides: []string{}}
	transcript := session.TranscriptText()
	if strings.TrimSpace(transcript) == "" {
		return summary, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	summary.Text, err = s.gateway.Summarize(gctx, transcript)
	if err != nil {
		return models.Summary{}, fmt.Errorf("summarize lecture %s: %w", sessionID, err)
	}
	return summary, nil
}

// Questions generates study questions from the stored transcript of a lecture, active or not.
func (s *Service) Questions(ctx context.Context, ownerID, sessionID string) ([]models.Question, error) {
	session, err := s.find(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	out := []models.Question{}
	transcript := session.TranscriptText()
	if strings.TrimSpace(transcript) == "" {
		return out, nil
	}

	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	qas, err := s.gateway.GenerateQuestions(gctx, transcript, s.cfg.QuestionCount)
	if err != nil {
		return nil, fmt.Errorf("generate questions for lecture %s: %w", sessionID, err)
	}
	for _, qa := range qas {
		q := models.Question{Question: qa.Question}
		if qa.Answer != "" {
			answer := qa.Answer
			q.PreSearchedAnswer = &answer
		}
		out = append(out, q)
	}
	return out, nil
}

// End closes an active lecture of ownerID. With an empty sessionID the first active
// lecture the store returns is closed.
func (s *Service) End(ctx context.Context, ownerID, sessionID string) error {
	if ownerID == "" {
		return invalidInput("owner_id is required")
	}

	filter := activeFilter(ownerID)
	if sessionID != "" {
		filter[models.FieldSessionID] = sessionID
	}
	n, err := s.store.UpdateOne(ctx, s.cfg.LecturesCollection, filter, closeFields(s.now().UTC()))
	if err != nil {
		return fmt.Errorf("end lecture: %w", err)
	}
	if n == 0 {
		return notFound("No active lecture found")
	}

	s.logger.Info("lecture ended", zap.String("owner_id", ownerID), zap.String("session_id", sessionID))
	return nil
}

func (s *Service) find(ctx context.Context, ownerID, sessionID string) (*models.LectureSession, error) {
	if ownerID == "" || sessionID == "" {
		return nil, invalidInput("owner_id and session_id are required")
	}
	filter := docstore.Filter{
		models.FieldOwnerID:   ownerID,
		models.FieldSessionID: sessionID,
	}
	var session models.LectureSession
	if err := s.store.FindOne(ctx, s.cfg.LecturesCollection, filter, &session); err != nil {
		if errors.Is(err, docstore.ErrNoDocument) {
			return nil, notFound("Lecture not found")
		}
		return nil, fmt.Errorf("find lecture: %w", err)
	}
	return &session, nil
}

func (s *Service) transcribe(ctx context.Context, audio *upload.File) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()
	return s.gateway.Transcribe(gctx, audio.Data, upload.AudioMIMEType(audio.Name))
}

func (s *Service) closeActive(ctx context.Context, ownerID string) (int, error) {
	closed := 0
	for closed < maxAutoClose {
		n, err := s.store.UpdateOne(ctx, s.cfg.LecturesCollection, activeFilter(ownerID), closeFields(s.now().UTC()))
		if err != nil {
			return closed, fmt.Errorf("close active lecture: %w", err)
		}
		if n == 0 {
			break
		}
		closed++
	}
	return closed, nil
}

// touchUser records the owner in the users collection. Failures are only logged.
func (s *Service) touchUser(ctx context.Context, ownerID string, now time.Time) {
	filter := docstore.Filter{models.FieldOwnerID: ownerID}
	var user models.User
	err := s.store.FindOne(ctx, s.cfg.UsersCollection, filter, &user)
	switch {
	case errors.Is(err, docstore.ErrNoDocument):
		err = s.store.Insert(ctx, s.cfg.UsersCollection, models.User{OwnerID: ownerID, CreatedAt: now, LastSeen: now})
	case err == nil:
		_, err = s.store.UpdateOne(ctx, s.cfg.UsersCollection, filter, docstore.Fields{models.UserFieldLastSeen: now})
	}
	if err != nil {
		s.logger.Warn("record user failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
}

func activeFilter(ownerID string) docstore.Filter {
	return docstore.Filter{
		models.FieldOwnerID:  ownerID,
		models.FieldIsActive: true,
	}
}

func closeFields(now time.Time) docstore.Fields {
	return docstore.Fields{
		models.FieldIsActive: false,
		models.FieldEndTime:  now,
	}
}
