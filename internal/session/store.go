package session

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"chekbot/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoActiveSession means a text message arrived while the submitter has no
// questionnaire in progress.
var ErrNoActiveSession = errors.New("no active session for submitter")

// Store drives the per-submitter questionnaire state machine and owns the
// collected user records. Sessions are keyed by submitter Telegram ID, so
// concurrent submitters never see each other's progress.
type Store struct {
	mu        sync.Mutex
	minAmount float64
	sessions  map[int64]*domain.Session
	records   map[string]*domain.UserRecord
	logger    *zap.Logger
}

func NewStore(minAmount float64, logger *zap.Logger) *Store {
	return &Store{
		minAmount: minAmount,
		sessions:  make(map[int64]*domain.Session),
		records:   make(map[string]*domain.UserRecord),
		logger:    logger,
	}
}

// Open starts a questionnaire for an accepted receipt. A submitter has at
// most one open session; a new accepted receipt replaces any unfinished one.
func (s *Store) Open(submitterID int64, accepted *domain.AcceptedReceipt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if old, ok := s.sessions[submitterID]; ok {
		s.logger.Warn("Replacing unfinished session",
			zap.Int64("submitter_id", submitterID),
			zap.String("old_check_number", old.CheckNumber),
			zap.String("new_check_number", accepted.CheckNumber))
	}

	s.sessions[submitterID] = &domain.Session{
		CheckNumber: accepted.CheckNumber,
		Step:        domain.StepAwaitingName,
		CreatedAt:   now,
	}

	s.records[accepted.CheckNumber] = &domain.UserRecord{
		CheckNumber: accepted.CheckNumber,
		Amount:      accepted.Amount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Submit feeds one text answer into the submitter's open session. The value
// is stored under the current step's field and the session advances. On the
// phone step the record is completed: UIDs are issued, one per qualifying
// multiple of the minimum amount (at least one), and the session is closed.
func (s *Store) Submit(submitterID int64, text string) (*domain.StepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[submitterID]
	if !ok {
		return nil, ErrNoActiveSession
	}

	rec := s.records[sess.CheckNumber]
	rec.UpdatedAt = time.Now()
	text = strings.TrimSpace(text)

	switch sess.Step {
	case domain.StepAwaitingName:
		rec.FIO = text
		sess.Step = domain.StepAwaitingAddress
		return &domain.StepResult{Step: sess.Step}, nil

	case domain.StepAwaitingAddress:
		rec.Address = text
		sess.Step = domain.StepAwaitingPhone
		return &domain.StepResult{Step: sess.Step}, nil

	case domain.StepAwaitingPhone:
		rec.Phone = text
		sess.Step = domain.StepDone

		for i := 0; i < s.uidCount(rec.Amount); i++ {
			rec.UIDs = append(rec.UIDs, uuid.New().String())
		}

		delete(s.sessions, submitterID)

		s.logger.Info("Questionnaire completed",
			zap.Int64("submitter_id", submitterID),
			zap.String("check_number", rec.CheckNumber),
			zap.Int("uid_count", len(rec.UIDs)))

		done := copyRecord(rec)
		return &domain.StepResult{Step: domain.StepDone, Record: &done}, nil

	default:
		return nil, ErrNoActiveSession
	}
}

// uidCount is floor(amount / minAmount), minimum one.
func (s *Store) uidCount(amount float64) int {
	n := int(amount / s.minAmount)
	if n < 1 {
		n = 1
	}
	return n
}

// AssignMissingUIDs gives every complete record without identifiers a single
// fresh one. Existing identifiers are never overwritten, so the call is
// idempotent. Returns copies of the records it changed.
func (s *Store) AssignMissingUIDs() []domain.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var changed []domain.UserRecord
	for _, rec := range s.records {
		if !rec.IsComplete() || len(rec.UIDs) > 0 {
			continue
		}
		rec.UIDs = append(rec.UIDs, uuid.New().String())
		rec.UpdatedAt = time.Now()
		changed = append(changed, copyRecord(rec))
	}
	return changed
}

// Records returns a snapshot of all records, ordered by check number.
func (s *Store) Records() []domain.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.UserRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, copyRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CheckNumber < out[j].CheckNumber
	})
	return out
}

// ActiveSession returns a copy of the submitter's open session, if any.
func (s *Store) ActiveSession(submitterID int64) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[submitterID]
	if !ok {
		return domain.Session{}, false
	}
	return *sess, true
}

func copyRecord(rec *domain.UserRecord) domain.UserRecord {
	out := *rec
	out.UIDs = append([]string(nil), rec.UIDs...)
	return out
}
