package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/escalopa/quran-recite-checker/internal/domain"
	"github.com/escalopa/quran-recite-checker/internal/recite/pipeline"
	"github.com/escalopa/quran-recite-checker/internal/recite/rangebuilder"
)

// RenderFactory builds the display for a new session. ack must be called
// once a requested page flip has been shown.
type RenderFactory func(rng *domain.Range, ack func()) domain.RenderPort

// RecitationService handles range selection and the recitation sessions of
// every user. At most one session runs per user.
type RecitationService struct {
	fsm         domain.FSMPort
	reports     domain.ReportStorePort
	builder     *rangebuilder.Builder
	recognizer  domain.RecognizerPort
	sessionOpts []pipeline.Option
	defaultLang domain.Language
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*pipeline.Session
}

type Option func(*RecitationService)

// WithSessionOptions is applied to every session started by the service.
func WithSessionOptions(opts ...pipeline.Option) Option {
	return func(s *RecitationService) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

func WithDefaultLanguage(lang domain.Language) Option {
	return func(s *RecitationService) {
		s.defaultLang = lang
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *RecitationService) {
		s.logger = l
	}
}

func NewRecitationService(
	fsm domain.FSMPort,
	reports domain.ReportStorePort,
	builder *rangebuilder.Builder,
	recognizer domain.RecognizerPort,
	opts ...Option,
) *RecitationService {
	s := &RecitationService{
		fsm:         fsm,
		reports:     reports,
		builder:     builder,
		recognizer:  recognizer,
		defaultLang: domain.LangEnglish,
		logger:      zap.NewNop(),
		sessions:    make(map[string]*pipeline.Session),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// HandleStart resets the user to the beginning of range selection
func (s *RecitationService) HandleStart(ctx context.Context, userID string, lang domain.Language) error {
	if err := s.fsm.SetState(ctx, userID, domain.StateSelectFromSura); err != nil {
		return fmt.Errorf("set state: %w", err)
	}

	if err := s.SetLanguage(ctx, userID, lang); err != nil {
		return err
	}

	return s.ClearAyahInput(ctx, userID)
}

// GetCurrentState returns the current state for a user
func (s *RecitationService) GetCurrentState(ctx context.Context, userID string) (domain.State, error) {
	return s.fsm.GetState(ctx, userID)
}

// SetLanguage stores the user's preferred language
func (s *RecitationService) SetLanguage(ctx context.Context, userID string, lang domain.Language) error {
	if err := s.fsm.SetData(ctx, userID, domain.SessionKeyLanguage, string(lang)); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

// GetUserLanguage retrieves the user's preferred language
func (s *RecitationService) GetUserLanguage(ctx context.Context, userID string) domain.Language {
	langStr, err := s.fsm.GetData(ctx, userID, domain.SessionKeyLanguage)
	if err != nil || langStr == "" {
		return s.defaultLang
	}
	return domain.Language(langStr)
}

// GetAllSurahs returns all surahs
func (s *RecitationService) GetAllSurahs() []domain.Surah {
	return domain.GetAllSurahs()
}

// HandleSurahSelection stores the surah picked in the current selection
// step, for either end of the range.
func (s *RecitationService) HandleSurahSelection(ctx context.Context, userID string, surahNumber int) (domain.Surah, error) {
	surah, ok := domain.SurahByNumber(surahNumber)
	if !ok {
		return domain.Surah{}, fmt.Errorf("invalid surah number: %d", surahNumber)
	}

	state, err := s.fsm.GetState(ctx, userID)
	if err != nil {
		return domain.Surah{}, fmt.Errorf("get state: %w", err)
	}

	var key string
	var next domain.State
	switch state {
	case domain.StateSelectFromSura:
		key, next = domain.SessionKeyFromSura, domain.StateEnterFromAya
	case domain.StateSelectToSura:
		from, err := s.getInt(ctx, userID, domain.SessionKeyFromSura)
		if err != nil {
			return domain.Surah{}, err
		}
		if surahNumber < from {
			return domain.Surah{}, fmt.Errorf("%w: surah %d is before %d", domain.ErrInvalidRange, surahNumber, from)
		}
		key, next = domain.SessionKeyToSura, domain.StateEnterToAya
	default:
		return domain.Surah{}, fmt.Errorf("unexpected surah selection in state %s", state)
	}

	if err := s.fsm.SetData(ctx, userID, key, strconv.Itoa(surahNumber)); err != nil {
		return domain.Surah{}, fmt.Errorf("set surah: %w", err)
	}
	if err := s.ClearAyahInput(ctx, userID); err != nil {
		return domain.Surah{}, err
	}
	if err := s.fsm.SetState(ctx, userID, next); err != nil {
		return domain.Surah{}, fmt.Errorf("set state: %w", err)
	}

	return surah, nil
}

// HandleAyahInput validates and stores the ayah number of the current
// selection step. It reports whether the range is now complete.
func (s *RecitationService) HandleAyahInput(ctx context.Context, userID, input string) (bool, error) {
	ayahNumber, err := strconv.Atoi(input)
	if err != nil {
		return false, fmt.Errorf("invalid ayah number: %s", input)
	}

	state, err := s.fsm.GetState(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("get state: %w", err)
	}

	var suraKey, ayaKey string
	var next domain.State
	switch state {
	case domain.StateEnterFromAya:
		suraKey, ayaKey, next = domain.SessionKeyFromSura, domain.SessionKeyFromAya, domain.StateSelectToSura
	case domain.StateEnterToAya:
		suraKey, ayaKey, next = domain.SessionKeyToSura, domain.SessionKeyToAya, domain.StateReciting
	default:
		return false, fmt.Errorf("unexpected ayah input in state %s", state)
	}

	surahNumber, err := s.getInt(ctx, userID, suraKey)
	if err != nil {
		return false, err
	}

	pos := domain.Position{Sura: surahNumber, Aya: ayahNumber}
	if !domain.ValidPosition(pos) {
		return false, fmt.Errorf("invalid ayah number: %d (surah %d)", ayahNumber, surahNumber)
	}

	if state == domain.StateEnterToAya {
		sel, err := s.SelectedRange(ctx, userID)
		if err != nil {
			return false, err
		}
		if sel.From.Compare(pos) > 0 {
			return false, fmt.Errorf("%w: %s is after %s", domain.ErrInvalidRange, sel.From, pos)
		}
	}

	if err := s.fsm.SetData(ctx, userID, ayaKey, strconv.Itoa(ayahNumber)); err != nil {
		return false, fmt.Errorf("set ayah: %w", err)
	}
	if err := s.ClearAyahInput(ctx, userID); err != nil {
		return false, err
	}
	if err := s.fsm.SetState(ctx, userID, next); err != nil {
		return false, fmt.Errorf("set state: %w", err)
	}

	return next == domain.StateReciting, nil
}

// SelectedRange returns the positions picked so far. To is zero until the
// end of the range has been entered.
func (s *RecitationService) SelectedRange(ctx context.Context, userID string) (domain.Range, error) {
	var r domain.Range
	var err error

	if r.From.Sura, err = s.getInt(ctx, userID, domain.SessionKeyFromSura); err != nil {
		return r, err
	}
	if r.From.Aya, err = s.getInt(ctx, userID, domain.SessionKeyFromAya); err != nil {
		return r, err
	}

	toSura, err := s.getInt(ctx, userID, domain.SessionKeyToSura)
	if errors.Is(err, domain.ErrNotFound) {
		return r, nil
	}
	if err != nil {
		return r, err
	}
	toAya, err := s.getInt(ctx, userID, domain.SessionKeyToAya)
	if errors.Is(err, domain.ErrNotFound) {
		return r, nil
	}
	if err != nil {
		return r, err
	}
	r.To = domain.Position{Sura: toSura, Aya: toAya}

	return r, nil
}

// GetSelectedSurah returns the surah of the selection step in progress
func (s *RecitationService) GetSelectedSurah(ctx context.Context, userID string) (int, error) {
	state, err := s.fsm.GetState(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get state: %w", err)
	}
	if state == domain.StateEnterToAya {
		return s.getInt(ctx, userID, domain.SessionKeyToSura)
	}
	return s.getInt(ctx, userID, domain.SessionKeyFromSura)
}

// GetAyahInput gets the accumulated ayah input for a user
func (s *RecitationService) GetAyahInput(ctx context.Context, userID string) string {
	input, err := s.fsm.GetData(ctx, userID, domain.SessionKeyAyahInput)
	if err != nil {
		return ""
	}
	return input
}

// SetAyahInput sets the accumulated ayah input for a user
func (s *RecitationService) SetAyahInput(ctx context.Context, userID, input string) error {
	return s.fsm.SetData(ctx, userID, domain.SessionKeyAyahInput, input)
}

// ClearAyahInput clears the accumulated ayah input for a user
func (s *RecitationService) ClearAyahInput(ctx context.Context, userID string) error {
	if err := s.fsm.DeleteData(ctx, userID, domain.SessionKeyAyahInput); err != nil {
		return fmt.Errorf("clear ayah input: %w", err)
	}
	return nil
}

// StartRecitation builds the selected range and starts a session on it.
// The session consumer runs under ctx.
func (s *RecitationService) StartRecitation(ctx context.Context, userID string, newRender RenderFactory) (*domain.Range, error) {
	selected, err := s.SelectedRange(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get selected range: %w", err)
	}
	if selected.To == (domain.Position{}) {
		return nil, fmt.Errorf("%w: end of range not selected", domain.ErrInvalidRange)
	}

	rng, err := s.builder.Build(selected.From, selected.To)
	if err != nil {
		return nil, fmt.Errorf("build range: %w", err)
	}
	if rng.Empty() {
		return nil, domain.ErrEmptyRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[userID]; ok {
		return nil, domain.ErrSessionActive
	}

	var session *pipeline.Session
	render := newRender(rng, func() { session.AcknowledgeFlip() })

	opts := append([]pipeline.Option{pipeline.WithLogger(s.logger.With(zap.String("user_id", userID)))}, s.sessionOpts...)
	session, err = pipeline.Start(ctx, rng, s.recognizer, render, opts...)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	s.sessions[userID] = session

	if err := s.fsm.SetState(ctx, userID, domain.StateReciting); err != nil {
		s.logger.Warn("set reciting state", zap.String("user_id", userID), zap.Error(err))
	}

	return rng, nil
}

// PushAudio queues a WAV chunk on the user's session
func (s *RecitationService) PushAudio(userID string, wav []byte) error {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	s.mu.Unlock()

	if !ok {
		return domain.ErrNoSession
	}
	return session.Push(wav)
}

// HasSession reports whether the user has a running session
func (s *RecitationService) HasSession(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[userID]
	return ok
}

// StopRecitation stops the user's session, stores its report and returns it
func (s *RecitationService) StopRecitation(ctx context.Context, userID string) (*domain.FinalReport, error) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()

	if !ok {
		return nil, domain.ErrNoSession
	}

	report := session.Stop()
	report.UserID = userID

	if err := s.reports.SaveReport(ctx, report); err != nil {
		s.logger.Error("save report", zap.String("user_id", userID), zap.Error(err))
	}
	if err := s.fsm.SetState(ctx, userID, domain.StateStart); err != nil {
		s.logger.Warn("reset state", zap.String("user_id", userID), zap.Error(err))
	}

	return &report, nil
}

// Shutdown stops every running session and stores their reports
func (s *RecitationService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	users := make([]string, 0, len(s.sessions))
	for userID := range s.sessions {
		users = append(users, userID)
	}
	s.mu.Unlock()

	for _, userID := range users {
		if _, err := s.StopRecitation(ctx, userID); err != nil && !errors.Is(err, domain.ErrNoSession) {
			s.logger.Error("stop session on shutdown", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// GetReport retrieves a stored report
func (s *RecitationService) GetReport(ctx context.Context, userID, reportID string) (*domain.FinalReport, error) {
	return s.reports.GetReport(ctx, userID, reportID)
}

// ListReports retrieves the latest reports of a user
func (s *RecitationService) ListReports(ctx context.Context, userID string, limit int) ([]*domain.FinalReport, error) {
	return s.reports.ListReports(ctx, userID, limit)
}

func (s *RecitationService) getInt(ctx context.Context, userID, key string) (int, error) {
	v, err := s.fsm.GetData(ctx, userID, key)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", key, err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
