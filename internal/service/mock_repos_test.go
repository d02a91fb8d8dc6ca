package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"thesis-guidance/backend/config"
	"thesis-guidance/backend/internal/model"
	"thesis-guidance/backend/internal/repository"
	"thesis-guidance/backend/internal/workflow"
	pkgerrors "thesis-guidance/backend/pkg/errors"
	"thesis-guidance/backend/pkg/timeutil"
)

// ── 测试夹具 ──

type mockRepos struct {
	users         *mockUserRepo
	periods       *mockPeriodRepo
	schedules     *mockScheduleRepo
	slots         *mockSlotRepo
	theses        *mockThesisRepo
	sessions      *mockSessionRepo
	notifications *mockNotificationRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		users:         newMockUserRepo(),
		periods:       newMockPeriodRepo(),
		schedules:     newMockScheduleRepo(),
		slots:         newMockSlotRepo(),
		notifications: newMockNotificationRepo(),
	}
	m.theses = newMockThesisRepo(m.users, m.periods)
	m.sessions = newMockSessionRepo(m.users, m.notifications)
	return &repository.Repository{
		User:         m.users,
		Period:       m.periods,
		Schedule:     m.schedules,
		Availability: m.slots,
		Thesis:       m.theses,
		Session:      m.sessions,
		Notification: m.notifications,
	}, m
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-key-for-unit-tests",
			AccessTokenTTL:     15 * time.Minute,
			RefreshTokenTTL:    7 * 24 * time.Hour,
			LoginRateLimit:     3,
			LoginRateWindow:    time.Minute,
			PasswordBcryptCost: 4,
		},
		Guidance: config.GuidanceConfig{BookingLockTTL: 5 * time.Second},
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func mustDate(s string) time.Time {
	d, err := timeutil.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
	seq   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) add(id, name, role, identity string) *model.User {
	u := &model.User{
		UserID:         id,
		Name:           name,
		Email:          strings.ToLower(id) + "@kampus.ac.id",
		IdentityNumber: identity,
		Role:           role,
	}
	m.users[id] = u
	return u
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email || u.IdentityNumber == user.IdentityNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	if user.UserID == "" {
		m.seq++
		user.UserID = fmt.Sprintf("user-%d", m.seq)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByIdentityNumber(_ context.Context, identityNumber string) (*model.User, error) {
	for _, u := range m.users {
		if u.IdentityNumber == identityNumber {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) List(_ context.Context, filter repository.UserFilter, offset, limit int) ([]model.User, int64, error) {
	var result []model.User
	for _, u := range m.users {
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		if filter.Keyword != "" && !strings.Contains(strings.ToLower(u.Name), strings.ToLower(filter.Keyword)) {
			continue
		}
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	total := int64(len(result))
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, total, nil
}

// ── Mock AcademicPeriodRepository ──

type mockPeriodRepo struct {
	periods map[string]*model.AcademicPeriod
	seq     int
}

func newMockPeriodRepo() *mockPeriodRepo {
	return &mockPeriodRepo{periods: make(map[string]*model.AcademicPeriod)}
}

func (m *mockPeriodRepo) add(id, uts, uas string, active bool) *model.AcademicPeriod {
	p := &model.AcademicPeriod{
		PeriodID:  id,
		Name:      "Ganjil " + id,
		StartDate: mustDate("2026-09-01"),
		EndDate:   mustDate("2027-01-31"),
		UTSDate:   mustDate(uts),
		UASDate:   mustDate(uas),
		IsActive:  active,
	}
	m.periods[id] = p
	return p
}

func (m *mockPeriodRepo) Create(_ context.Context, period *model.AcademicPeriod) error {
	if period.PeriodID == "" {
		m.seq++
		period.PeriodID = fmt.Sprintf("period-%d", m.seq)
	}
	m.periods[period.PeriodID] = period
	return nil
}

func (m *mockPeriodRepo) GetByID(_ context.Context, id string) (*model.AcademicPeriod, error) {
	if p, ok := m.periods[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPeriodRepo) GetCurrent(_ context.Context) (*model.AcademicPeriod, error) {
	for _, p := range m.periods {
		if p.IsActive {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPeriodRepo) List(_ context.Context) ([]model.AcademicPeriod, error) {
	var result []model.AcademicPeriod
	for _, p := range m.periods {
		result = append(result, *p)
	}
	return result, nil
}

func (m *mockPeriodRepo) Update(_ context.Context, period *model.AcademicPeriod) error {
	m.periods[period.PeriodID] = period
	return nil
}

func (m *mockPeriodRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.periods, id)
	return nil
}

func (m *mockPeriodRepo) Activate(_ context.Context, id string, _ string) error {
	if _, ok := m.periods[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for pid, p := range m.periods {
		p.IsActive = pid == id
	}
	return nil
}

// ── Mock ScheduleEntryRepository ──

type mockScheduleRepo struct {
	entries map[string]*model.ScheduleEntry
	seq     int
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{entries: make(map[string]*model.ScheduleEntry)}
}

func (m *mockScheduleRepo) Create(_ context.Context, entry *model.ScheduleEntry) error {
	if entry.ScheduleEntryID == "" {
		m.seq++
		entry.ScheduleEntryID = fmt.Sprintf("entry-%d", m.seq)
	}
	m.entries[entry.ScheduleEntryID] = entry
	return nil
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id string) (*model.ScheduleEntry, error) {
	if e, ok := m.entries[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockScheduleRepo) ListByOwner(_ context.Context, ownerID string) ([]model.ScheduleEntry, error) {
	var result []model.ScheduleEntry
	for _, e := range m.entries {
		if e.OwnerID == ownerID {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].DayOfWeek != result[j].DayOfWeek {
			return result[i].DayOfWeek < result[j].DayOfWeek
		}
		return result[i].StartTime < result[j].StartTime
	})
	return result, nil
}

func (m *mockScheduleRepo) ListByOwnerAndDay(ctx context.Context, ownerID string, dayOfWeek int) ([]model.ScheduleEntry, error) {
	all, _ := m.ListByOwner(ctx, ownerID)
	var result []model.ScheduleEntry
	for _, e := range all {
		if e.DayOfWeek == dayOfWeek {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockScheduleRepo) Update(_ context.Context, entry *model.ScheduleEntry) error {
	m.entries[entry.ScheduleEntryID] = entry
	return nil
}

func (m *mockScheduleRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.entries, id)
	return nil
}

func (m *mockScheduleRepo) ReplaceImported(ctx context.Context, ownerID, semester string, entries []model.ScheduleEntry) error {
	for id, e := range m.entries {
		if e.OwnerID == ownerID && e.Semester == semester && e.Source == model.ScheduleSourceICS {
			delete(m.entries, id)
		}
	}
	for i := range entries {
		e := entries[i]
		if err := m.Create(ctx, &e); err != nil {
			return err
		}
	}
	return nil
}

// ── Mock AvailabilitySlotRepository ──

type mockSlotRepo struct {
	slots map[string]*model.AvailabilitySlot
	seq   int
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{slots: make(map[string]*model.AvailabilitySlot)}
}

func (m *mockSlotRepo) Create(_ context.Context, slot *model.AvailabilitySlot) error {
	if slot.AvailabilitySlotID == "" {
		m.seq++
		slot.AvailabilitySlotID = fmt.Sprintf("slot-%d", m.seq)
	}
	m.slots[slot.AvailabilitySlotID] = slot
	return nil
}

func (m *mockSlotRepo) GetByID(_ context.Context, id string) (*model.AvailabilitySlot, error) {
	if s, ok := m.slots[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSlotRepo) ListByAdvisor(_ context.Context, advisorID string, activeOnly bool) ([]model.AvailabilitySlot, error) {
	var result []model.AvailabilitySlot
	for _, s := range m.slots {
		if s.AdvisorID != advisorID || (activeOnly && !s.IsActive) {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AvailabilitySlotID < result[j].AvailabilitySlotID })
	return result, nil
}

func (m *mockSlotRepo) Update(_ context.Context, slot *model.AvailabilitySlot) error {
	m.slots[slot.AvailabilitySlotID] = slot
	return nil
}

func (m *mockSlotRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.slots, id)
	return nil
}

// ── Mock ThesisRepository ──

type mockThesisRepo struct {
	theses   map[string]*model.ThesisProject
	advisors map[string][]string
	users    *mockUserRepo
	periods  *mockPeriodRepo
	seq      int
}

func newMockThesisRepo(users *mockUserRepo, periods *mockPeriodRepo) *mockThesisRepo {
	return &mockThesisRepo{
		theses:   make(map[string]*model.ThesisProject),
		advisors: make(map[string][]string),
		users:    users,
		periods:  periods,
	}
}

// load 模拟 Preload
func (m *mockThesisRepo) load(t *model.ThesisProject) model.ThesisProject {
	cp := *t
	cp.Period = m.periods.periods[t.PeriodID]
	cp.Student = m.users.users[t.StudentID]
	cp.Advisors = nil
	for _, id := range m.advisors[t.ThesisID] {
		if u, ok := m.users.users[id]; ok {
			cp.Advisors = append(cp.Advisors, *u)
		}
	}
	return cp
}

func (m *mockThesisRepo) Create(_ context.Context, thesis *model.ThesisProject, advisorIDs []string) error {
	if thesis.ThesisID == "" {
		m.seq++
		thesis.ThesisID = fmt.Sprintf("thesis-%d", m.seq)
	}
	m.theses[thesis.ThesisID] = thesis
	m.advisors[thesis.ThesisID] = append([]string(nil), advisorIDs...)
	return nil
}

func (m *mockThesisRepo) GetByID(_ context.Context, id string) (*model.ThesisProject, error) {
	t, ok := m.theses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	loaded := m.load(t)
	return &loaded, nil
}

func (m *mockThesisRepo) List(_ context.Context, filter repository.ThesisFilter, offset, limit int) ([]model.ThesisProject, int64, error) {
	var result []model.ThesisProject
	for _, t := range m.theses {
		if filter.PeriodID != "" && t.PeriodID != filter.PeriodID {
			continue
		}
		if filter.StudentID != "" && t.StudentID != filter.StudentID {
			continue
		}
		if filter.AdvisorID != "" {
			found := false
			for _, a := range m.advisors[t.ThesisID] {
				found = found || a == filter.AdvisorID
			}
			if !found {
				continue
			}
		}
		result = append(result, m.load(t))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ThesisID < result[j].ThesisID })
	total := int64(len(result))
	if limit > 0 {
		if offset > len(result) {
			offset = len(result)
		}
		result = result[offset:]
		if limit < len(result) {
			result = result[:limit]
		}
	}
	return result, total, nil
}

func (m *mockThesisRepo) Update(_ context.Context, thesis *model.ThesisProject, advisorIDs []string) error {
	m.theses[thesis.ThesisID] = thesis
	if advisorIDs != nil {
		m.advisors[thesis.ThesisID] = append([]string(nil), advisorIDs...)
	}
	return nil
}

func (m *mockThesisRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.theses, id)
	delete(m.advisors, id)
	return nil
}

// ── Mock GuidanceSessionRepository ──

// mockSessionRepo 模拟部分唯一索引与版本号条件更新
type mockSessionRepo struct {
	sessions      map[string]*model.GuidanceSession
	notes         []model.SessionNote
	users         *mockUserRepo
	notifications *mockNotificationRepo
	seq           int

	// createHook 在唯一索引检查前调用，用于模拟并发写入
	createHook func(session *model.GuidanceSession)
}

func newMockSessionRepo(users *mockUserRepo, notifications *mockNotificationRepo) *mockSessionRepo {
	return &mockSessionRepo{
		sessions:      make(map[string]*model.GuidanceSession),
		users:         users,
		notifications: notifications,
	}
}

func isActiveStatus(status string) bool {
	return workflow.IsActive(workflow.Status(status))
}

func (m *mockSessionRepo) insert(session *model.GuidanceSession) error {
	for _, s := range m.sessions {
		if s.AdvisorID == session.AdvisorID &&
			timeutil.SameDate(s.ScheduledDate, session.ScheduledDate) &&
			s.StartTime == session.StartTime &&
			isActiveStatus(s.Status) {
			return gorm.ErrDuplicatedKey
		}
	}
	if session.SessionID == "" {
		m.seq++
		session.SessionID = fmt.Sprintf("session-%d", m.seq)
	}
	if session.Version == 0 {
		session.Version = 1
	}
	cp := *session
	m.sessions[session.SessionID] = &cp
	return nil
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.GuidanceSession, notice *model.Notification) error {
	if m.createHook != nil {
		m.createHook(session)
	}
	if err := m.insert(session); err != nil {
		return err
	}
	if notice != nil {
		notice.RelatedID = &session.SessionID
		return m.notifications.Create(ctx, notice)
	}
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.GuidanceSession, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	cp.Student = m.users.users[s.StudentID]
	cp.Advisor = m.users.users[s.AdvisorID]
	return &cp, nil
}

func (m *mockSessionRepo) List(_ context.Context, filter repository.SessionFilter, offset, limit int) ([]model.GuidanceSession, int64, error) {
	var result []model.GuidanceSession
	for _, s := range m.sessions {
		if filter.StudentID != "" && s.StudentID != filter.StudentID {
			continue
		}
		if filter.AdvisorID != "" && s.AdvisorID != filter.AdvisorID {
			continue
		}
		if filter.ThesisID != "" && s.ThesisID != filter.ThesisID {
			continue
		}
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SessionID < result[j].SessionID })
	total := int64(len(result))
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, total, nil
}

func (m *mockSessionRepo) listActiveOnDate(match func(*model.GuidanceSession) bool, date time.Time) []model.GuidanceSession {
	var result []model.GuidanceSession
	for _, s := range m.sessions {
		if match(s) && isActiveStatus(s.Status) && timeutil.SameDate(s.ScheduledDate, date) {
			result = append(result, *s)
		}
	}
	return result
}

func (m *mockSessionRepo) ListActiveByAdvisorOnDate(_ context.Context, advisorID string, date time.Time) ([]model.GuidanceSession, error) {
	return m.listActiveOnDate(func(s *model.GuidanceSession) bool { return s.AdvisorID == advisorID }, date), nil
}

func (m *mockSessionRepo) ListActiveByStudentOnDate(_ context.Context, studentID string, date time.Time) ([]model.GuidanceSession, error) {
	return m.listActiveOnDate(func(s *model.GuidanceSession) bool { return s.StudentID == studentID }, date), nil
}

func (m *mockSessionRepo) ListCompletedByTheses(_ context.Context, thesisIDs []string) ([]model.GuidanceSession, error) {
	want := make(map[string]bool, len(thesisIDs))
	for _, id := range thesisIDs {
		want[id] = true
	}
	var result []model.GuidanceSession
	for _, s := range m.sessions {
		if want[s.ThesisID] && s.Status == string(workflow.StatusCompleted) {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSessionRepo) UpdateStatus(ctx context.Context, session *model.GuidanceSession, notice *model.Notification) error {
	stored, ok := m.sessions[session.SessionID]
	if !ok || stored.Version != session.Version {
		return pkgerrors.ErrOptimisticLock
	}
	session.Version++
	cp := *session
	cp.Student, cp.Advisor = nil, nil
	m.sessions[session.SessionID] = &cp
	if notice != nil {
		return m.notifications.Create(ctx, notice)
	}
	return nil
}

func (m *mockSessionRepo) AddNote(ctx context.Context, note *model.SessionNote, notice *model.Notification) error {
	note.NoteID = fmt.Sprintf("note-%d", len(m.notes)+1)
	note.CreatedAt = time.Now()
	m.notes = append(m.notes, *note)
	if notice != nil {
		return m.notifications.Create(ctx, notice)
	}
	return nil
}

func (m *mockSessionRepo) ListNotes(_ context.Context, sessionID string) ([]model.SessionNote, error) {
	var result []model.SessionNote
	for _, n := range m.notes {
		if n.SessionID == sessionID {
			result = append(result, n)
		}
	}
	return result, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	items []*model.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	n.NotificationID = fmt.Sprintf("notice-%d", len(m.items)+1)
	m.items = append(m.items, n)
	return nil
}

func (m *mockNotificationRepo) forUser(userID string) []*model.Notification {
	var result []*model.Notification
	for _, n := range m.items {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	return result
}

func (m *mockNotificationRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, offset, limit int) ([]model.Notification, int64, error) {
	var result []model.Notification
	for _, n := range m.forUser(userID) {
		if unreadOnly && n.IsRead {
			continue
		}
		result = append(result, *n)
	}
	total := int64(len(result))
	if offset > len(result) {
		offset = len(result)
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, total, nil
}

func (m *mockNotificationRepo) CountUnread(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, item := range m.forUser(userID) {
		if !item.IsRead {
			n++
		}
	}
	return n, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id, userID string) error {
	for _, n := range m.forUser(userID) {
		if n.NotificationID == id {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	var updated int64
	for _, n := range m.forUser(userID) {
		if !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

// ── Mock Redis 能力 ──

type mockBlacklist struct {
	revoked map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.revoked[jti]
	return ok, nil
}

type mockLimiter struct {
	hits map[string]int
}

func newMockLimiter() *mockLimiter {
	return &mockLimiter{hits: make(map[string]int)}
}

func (m *mockLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	m.hits[key]++
	return m.hits[key] <= limit, nil
}

type mockLocker struct {
	held     map[string]string
	acquired []string
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]string)}
}

func (m *mockLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, error) {
	if _, busy := m.held[key]; busy {
		return "", nil
	}
	token := fmt.Sprintf("token-%d", len(m.acquired)+1)
	m.held[key] = token
	m.acquired = append(m.acquired, key)
	return token, nil
}

func (m *mockLocker) ReleaseLock(_ context.Context, key, token string) error {
	if m.held[key] != token {
		return fmt.Errorf("锁 %s 未被持有", key)
	}
	delete(m.held, key)
	return nil
}
